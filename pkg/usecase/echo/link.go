package echo

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

//go:embed prompt/link.md
var linkPromptRaw string

var linkPromptTmpl = template.Must(template.New("link").Parse(linkPromptRaw))

const karmicLinkField = "karmicLinkAnalysis"

type linkReading struct {
	Date    string
	Query   string
	Summary string
}

func newLinkReading(r *model.Record) linkReading {
	return linkReading{
		Date:    r.CreatedAt.Format("January 2, 2006"),
		Query:   r.Query,
		Summary: r.Summary,
	}
}

// Link asks the generator for an analysis of the recurring themes between
// two past readings.
func Link(ctx context.Context, gen adapter.Generator, first, second *model.Record) (string, error) {
	if first == nil || second == nil {
		return "", goerr.Wrap(model.ErrRecordNotFound, "two records are required to link")
	}

	var buf bytes.Buffer
	if err := linkPromptTmpl.Execute(&buf, map[string]any{
		"First":  newLinkReading(first),
		"Second": newLinkReading(second),
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute link prompt template")
	}

	fields, err := gen.Generate(ctx, &adapter.GenerateRequest{
		Name:   "KarmicLink",
		Prompt: buf.String(),
		Fields: []adapter.Field{
			{
				Name:        karmicLinkField,
				Description: "Concise analysis of karmic echoes, symbolic connections, repeating archetypes and evolving narrative threads between the two readings",
			},
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrGenerationFailed, err), "failed to link readings",
			goerr.V("first", first.ID), goerr.V("second", second.ID))
	}

	analysis := fields.Get(karmicLinkField)
	if analysis == "" {
		return "", goerr.Wrap(model.ErrGenerationFailed, "empty link analysis",
			goerr.V("first", first.ID), goerr.V("second", second.ID))
	}

	logging.From(ctx).Debug("readings linked", "first", first.ID, "second", second.ID)
	return analysis, nil
}
