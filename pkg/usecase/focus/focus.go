package focus

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

//go:embed prompt/focus.md
var focusPromptRaw string

var focusPromptTmpl = template.Must(template.New("focus").Parse(focusPromptRaw))

const (
	dailyFocusField = "dailyFocus"
	dateLayout      = "2006-01-02"
	keyPrefix       = "kairos/focus/"
)

// Key returns the KV key caching the focus of date
func Key(date time.Time) string {
	return keyPrefix + date.Format(dateLayout)
}

// Today returns the symbolic focus of the given date. A focus already
// perceived for that date is reused; otherwise a new one is generated and
// cached. A cache that cannot be read or written only costs a regeneration.
func Today(ctx context.Context, gen adapter.Generator, kv repository.KV, date time.Time) (string, error) {
	logger := logging.From(ctx)
	key := Key(date)

	cached, err := kv.Get(ctx, key)
	switch {
	case err == nil && len(bytes.TrimSpace(cached)) > 0:
		return string(bytes.TrimSpace(cached)), nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		logger.Warn("failed to read cached focus", "error", err, "key", key)
	}

	var buf bytes.Buffer
	if err := focusPromptTmpl.Execute(&buf, map[string]any{
		"Date": date.Format(dateLayout),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute focus prompt template")
	}

	fields, err := gen.Generate(ctx, &adapter.GenerateRequest{
		Name:   "DailyFocus",
		Prompt: buf.String(),
		Fields: []adapter.Field{
			{
				Name:        dailyFocusField,
				Description: "A single keyword or a 2-3 word symbolic phrase for the thematic focus of the date",
			},
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrGenerationFailed, err), "failed to perceive daily focus",
			goerr.V("date", date.Format(dateLayout)))
	}

	focus := fields.Get(dailyFocusField)
	if focus == "" {
		return "", goerr.Wrap(model.ErrGenerationFailed, "empty daily focus", goerr.V("date", date.Format(dateLayout)))
	}

	if err := kv.Set(ctx, key, []byte(focus)); err != nil {
		logger.Warn("failed to cache focus", "error", err, "key", key)
	}
	return focus, nil
}
