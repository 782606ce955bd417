package memory

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

const (
	dateLayout     = "January 2, 2006"
	entrySeparator = "\n\n---\n\n"
)

// Render formats records as the journal text given to the summarizer,
// in the order received.
func Render(records []*model.Record) string {
	entries := make([]string, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		var b strings.Builder
		b.WriteString("Date: ")
		b.WriteString(r.CreatedAt.Format(dateLayout))
		b.WriteString("\nQuery: ")
		b.WriteString(r.Query)
		b.WriteString("\nSummary: ")
		b.WriteString(r.Summary)
		entries = append(entries, b.String())
	}
	return strings.Join(entries, entrySeparator)
}

// BuildContext distills up to maxRecords of the most recent records into a
// short memory for the next reading. It returns "" when there is nothing to
// remember or the summarizer fails; the failure is only logged.
func BuildContext(ctx context.Context, summarizer adapter.Summarizer, records []*model.Record, maxRecords int) string {
	if maxRecords <= 0 || len(records) == 0 {
		return ""
	}
	recent := records[:min(maxRecords, len(records))]

	summary, err := Summarize(ctx, summarizer, recent)
	if err != nil {
		logging.From(ctx).Warn("proceeding without journal context", "error", err, "records", len(recent))
		return ""
	}
	return summary
}

// Summarize distills the given records. Unlike BuildContext it reports a
// failure to the caller.
func Summarize(ctx context.Context, summarizer adapter.Summarizer, records []*model.Record) (string, error) {
	text := Render(records)
	if text == "" {
		return "", nil
	}

	summary, err := summarizer.Summarize(ctx, text)
	if err != nil {
		if errors.Is(err, model.ErrSummarizationFailed) {
			return "", err
		}
		return "", goerr.Wrap(errors.Join(model.ErrSummarizationFailed, err), "failed to summarize journal",
			goerr.V("records", len(records)))
	}
	return summary, nil
}
