package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
)

//go:embed prompt/evolve.md
var evolvePromptRaw string

var evolvePromptTmpl = template.Must(template.New("evolve").Parse(evolvePromptRaw))

const evolvedSeedField = "evolvedSeed"

// Evolve derives the next symbolic seed from the current one and the summary
// of the reading it inspired. It keeps no state; holding the seed is up to
// the caller.
func Evolve(ctx context.Context, gen adapter.Generator, currentSeed, lastSummary string) (string, error) {
	var buf bytes.Buffer
	if err := evolvePromptTmpl.Execute(&buf, map[string]any{
		"CurrentSeed": currentSeed,
		"LastSummary": lastSummary,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute evolve prompt template")
	}

	fields, err := gen.Generate(ctx, &adapter.GenerateRequest{
		Name:   "EvolvedSeed",
		Prompt: buf.String(),
		Fields: []adapter.Field{
			{
				Name:        evolvedSeedField,
				Description: "A new, evolved symbolic seed: a short, evocative phrase or image description",
			},
		},
	})
	if err != nil {
		return "", goerr.Wrap(errors.Join(model.ErrGenerationFailed, err), "failed to evolve seed",
			goerr.V("seed", currentSeed))
	}

	evolved := fields.Get(evolvedSeedField)
	if evolved == "" {
		return "", goerr.Wrap(model.ErrGenerationFailed, "empty evolved seed", goerr.V("seed", currentSeed))
	}
	return evolved, nil
}
