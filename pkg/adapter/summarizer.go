package adapter

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/model"
)

//go:embed prompt/summarize.md
var summarizePromptRaw string

var summarizePromptTmpl = template.Must(template.New("summarize").Parse(summarizePromptRaw))

const archetypalSummaryField = "archetypalSummary"

// Summarizer is the summarization collaborator
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type generatorSummarizer struct {
	gen Generator
}

// NewSummarizer builds a Summarizer on top of a Generator
func NewSummarizer(gen Generator) Summarizer {
	return &generatorSummarizer{gen: gen}
}

func (s *generatorSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	var buf bytes.Buffer
	if err := summarizePromptTmpl.Execute(&buf, map[string]any{
		"Entries": text,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute summarize prompt template")
	}

	fields, err := s.gen.Generate(ctx, &GenerateRequest{
		Name:   "ArchetypalSummary",
		Prompt: buf.String(),
		Fields: []Field{
			{
				Name:        archetypalSummaryField,
				Description: "Concise distillation of archetypal themes, recurring symbols and energetic patterns across the entries",
			},
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrSummarizationFailed, err), "summarizer call failed")
	}

	summary := fields.Get(archetypalSummaryField)
	if summary == "" {
		return "", goerr.Wrap(model.ErrSummarizationFailed, "empty summary generated")
	}
	return summary, nil
}
