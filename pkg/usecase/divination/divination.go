package divination

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/journal"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/usecase/echo"
	"github.com/m-mizutani/kairos/pkg/usecase/memory"
	"github.com/m-mizutani/kairos/pkg/usecase/seed"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

//go:embed prompt/divine.md
var divinePromptRaw string

var divinePromptTmpl = template.Must(template.New("divine").Parse(divinePromptRaw))

// Input is one question put to the oracle
type Input struct {
	Query         string
	AnchorDate    *string
	AnchorFeeling *string
	DailyFocus    *string

	// Force skips the echo check
	Force bool
}

// Reading is the generated answer together with the record it produced
type Reading struct {
	Prelude              string
	AstrologyInsight     string
	AlchemicalReflection string
	DivinationSpread     string
	PsionicFlash         string
	SymbolicSignatures   string
	Guidance             string
	FinalWord            string

	Record *model.Record

	// NextSeed is the evolved seed, "" when none is held or evolution failed
	NextSeed string
}

// EchoDetected is returned instead of a reading when the query repeats a
// recent one. Divine again with Force to proceed anyway.
type EchoDetected struct {
	Past *model.Record
}

func (e *EchoDetected) Error() string {
	return "query echoes a recent reading: " + e.Past.Query
}

type UseCase struct {
	journal    *journal.Journal
	gen        adapter.Generator
	summarizer adapter.Summarizer
	seeds      *seed.Holder
	tuning     model.Tuning
}

type Option func(*UseCase)

// WithSeedHolder enables the symbolic seed: it is given to the oracle and
// evolved after every reading
func WithSeedHolder(h *seed.Holder) Option {
	return func(u *UseCase) {
		u.seeds = h
	}
}

func WithTuning(t model.Tuning) Option {
	return func(u *UseCase) {
		u.tuning = t
	}
}

func New(j *journal.Journal, gen adapter.Generator, summarizer adapter.Summarizer, opts ...Option) *UseCase {
	u := &UseCase{
		journal:    j,
		gen:        gen,
		summarizer: summarizer,
		tuning:     model.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

var readingFields = []adapter.Field{
	{Name: "mysticPrelude", Description: "A vivid mystic prelude orienting the user"},
	{Name: "astrologyInsight", Description: "Insight based on symbolic astrology"},
	{Name: "alchemicalReflection", Description: "Reflection using alchemical metaphors and processes"},
	{Name: "divinationSpread", Description: "Past, Present and Potential Future draw with the system, card names and interpretations"},
	{Name: "psionicFlash", Description: "A brief, symbolic and vivid clairvoyant image or sensation"},
	{Name: "symbolicSignatures", Description: "2-3 key symbolic signatures or elemental dominances observed"},
	{Name: "mysticGuidance", Description: "2-3 actionable mystic guidance steps"},
	{Name: "finalWord", Description: "A concluding mystical sentence or blessing"},
	{Name: "journalSummary", Description: "2-3 sentence summary of the core message to save in the journal"},
	{Name: "visualizationSeed", Description: "3-5 word emergent archetype visualization seed"},
	{Name: "auraSeed", Description: "3-5 word aura palette seed"},
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Divine answers a query: it checks for an echo of a recent question,
// recalls the journal, generates the reading, records it and evolves the
// symbolic seed.
func (u *UseCase) Divine(ctx context.Context, input Input) (*Reading, error) {
	logger := logging.From(ctx)

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, goerr.New("query is required")
	}

	past, err := u.journal.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if !input.Force {
		if hit := echo.FindEcho(query, past, echo.WithTuning(u.tuning)); hit != nil {
			logger.Info("echo detected", "past_id", hit.ID)
			return nil, &EchoDetected{Past: hit}
		}
	}

	journalContext := memory.BuildContext(ctx, u.summarizer, past, u.tuning.ContextWindow)

	var currentSeed string
	if u.seeds != nil {
		currentSeed = u.seeds.Current()
	}

	var buf bytes.Buffer
	if err := divinePromptTmpl.Execute(&buf, map[string]any{
		"Query":         query,
		"Context":       journalContext,
		"Seed":          currentSeed,
		"AnchorDate":    model.Deref(input.AnchorDate),
		"AnchorFeeling": model.Deref(input.AnchorFeeling),
		"DailyFocus":    model.Deref(input.DailyFocus),
		"Now":           clock.Now(ctx).Format("2006-01-02 15:04 MST"),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute divine prompt template")
	}

	fields, err := u.gen.Generate(ctx, &adapter.GenerateRequest{
		Name:   "Divination",
		Prompt: buf.String(),
		Fields: readingFields,
	})
	if err != nil {
		return nil, goerr.Wrap(errors.Join(model.ErrGenerationFailed, err), "failed to generate reading",
			goerr.V("query", query))
	}

	summary := fields.Get("journalSummary")
	if summary == "" {
		return nil, goerr.Wrap(model.ErrGenerationFailed, "reading has no journal summary", goerr.V("query", query))
	}

	record, err := u.journal.Add(ctx, model.RecordInput{
		Query:             query,
		Summary:           summary,
		VisualizationSeed: optional(fields.Get("visualizationSeed")),
		AuraSeed:          optional(fields.Get("auraSeed")),
		SeedUsed:          optional(currentSeed),
		AnchorDate:        input.AnchorDate,
		AnchorFeeling:     input.AnchorFeeling,
		DailyFocusUsed:    input.DailyFocus,
	})
	if err != nil {
		return nil, err
	}

	reading := &Reading{
		Prelude:              fields.Get("mysticPrelude"),
		AstrologyInsight:     fields.Get("astrologyInsight"),
		AlchemicalReflection: fields.Get("alchemicalReflection"),
		DivinationSpread:     fields.Get("divinationSpread"),
		PsionicFlash:         fields.Get("psionicFlash"),
		SymbolicSignatures:   fields.Get("symbolicSignatures"),
		Guidance:             fields.Get("mysticGuidance"),
		FinalWord:            fields.Get("finalWord"),
		Record:               record,
	}

	if currentSeed != "" {
		next, err := u.seeds.Advance(ctx, u.gen, summary)
		if err != nil {
			logger.Warn("keeping previous seed", "error", err)
		} else {
			reading.NextSeed = next
		}
	}

	return reading, nil
}
