package echo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/usecase/echo"
)

func rec(id, query string) *model.Record {
	return &model.Record{ID: model.RecordID(id), Query: query, Summary: "summary of " + id}
}

func TestFindEcho(t *testing.T) {
	t.Run("rephrased question matches", func(t *testing.T) {
		past := []*model.Record{rec("a", "What does my career hold next month?")}
		got := echo.FindEcho("What does my career hold this month?", past)
		gt.NotNil(t, got)
		gt.Equal(t, got.ID, model.RecordID("a"))
	})

	t.Run("case and punctuation are ignored", func(t *testing.T) {
		past := []*model.Record{rec("a", "WHAT... does my CAREER hold, next month!!")}
		got := echo.FindEcho("what does my career hold this month", past)
		gt.NotNil(t, got)
	})

	t.Run("hyphens are removed, not split on", func(t *testing.T) {
		past := []*model.Record{rec("a", "Will my selfesteem improve soon?")}
		gt.NotNil(t, echo.FindEcho("Will my self-esteem improve soon?", past))

		// "self" and "esteem" alone share nothing with "selfesteem"
		past = []*model.Record{rec("b", "Will my self esteem improve soon?")}
		gt.True(t, echo.FindEcho("Will my self-esteem improve soon?", past) == nil)
	})

	t.Run("apostrophes are removed, not split on", func(t *testing.T) {
		past := []*model.Record{rec("a", "Whats in store for my careers path?")}
		gt.NotNil(t, echo.FindEcho("What's in store for my career's path?", past))
	})

	t.Run("short candidate never matches", func(t *testing.T) {
		past := []*model.Record{rec("a", "hi"), rec("b", "hi there friend")}
		gt.True(t, echo.FindEcho("hi", past) == nil)
		gt.True(t, echo.FindEcho("hi there friend", nil) == nil)
	})

	t.Run("short past query is skipped", func(t *testing.T) {
		past := []*model.Record{rec("a", "career?"), rec("b", "What does my career hold next month?")}
		got := echo.FindEcho("What does my career hold this month?", past)
		gt.NotNil(t, got)
		gt.Equal(t, got.ID, model.RecordID("b"))
	})

	t.Run("empty history", func(t *testing.T) {
		gt.True(t, echo.FindEcho("What does my career hold this month?", nil) == nil)
		gt.True(t, echo.FindEcho("What does my career hold this month?", []*model.Record{}) == nil)
	})

	t.Run("unrelated question does not match", func(t *testing.T) {
		past := []*model.Record{rec("a", "Should I move to a new city this winter?")}
		gt.True(t, echo.FindEcho("What does my career hold this month?", past) == nil)
	})

	t.Run("newest match wins", func(t *testing.T) {
		past := []*model.Record{
			rec("new", "What does my career hold next month?"),
			rec("old", "What does my career hold this month?"),
		}
		got := echo.FindEcho("What does my career hold this month?", past)
		gt.Equal(t, got.ID, model.RecordID("new"))
	})

	t.Run("match beyond the window is ignored", func(t *testing.T) {
		var past []*model.Record
		for i := range 10 {
			q := fmt.Sprintf("unrelated wandering thought number %d about gardens", i)
			if i == 7 {
				q = "What does my career hold next month?"
			}
			past = append(past, rec(fmt.Sprintf("r%d", i), q))
		}

		gt.True(t, echo.FindEcho("What does my career hold this month?", past) == nil)

		got := echo.FindEcho("What does my career hold this month?", past, echo.WithWindow(10))
		gt.NotNil(t, got)
		gt.Equal(t, got.ID, model.RecordID("r7"))
	})

	t.Run("ratio must exceed the threshold", func(t *testing.T) {
		// 3 common of 5 tokens: ratio 0.6 exactly
		past := []*model.Record{rec("a", "alpha beta gamma delta epsilon")}
		gt.True(t, echo.FindEcho("alpha beta gamma zeta theta", past) == nil)

		got := echo.FindEcho("alpha beta gamma zeta theta", past, echo.WithThreshold(0.5))
		gt.NotNil(t, got)
	})

	t.Run("common count must exceed the minimum", func(t *testing.T) {
		// 2 common of 3 tokens: ratio 0.67 but only 2 shared
		past := []*model.Record{rec("a", "alpha beta gamma")}
		gt.True(t, echo.FindEcho("alpha beta delta", past) == nil)
	})

	t.Run("duplicate tokens count once", func(t *testing.T) {
		past := []*model.Record{rec("a", "love love love love")}
		gt.True(t, echo.FindEcho("love love love love", past) == nil)
	})

	t.Run("tuning overrides every parameter", func(t *testing.T) {
		tuning := model.DefaultTuning()
		tuning.EchoMinTokenLen = 1
		tuning.EchoMinTokens = 1
		tuning.EchoMinCommon = 0
		tuning.EchoThreshold = 0.5

		past := []*model.Record{rec("a", "hi")}
		got := echo.FindEcho("hi", past, echo.WithTuning(tuning))
		gt.NotNil(t, got)
	})

	t.Run("non-latin letters are tokens", func(t *testing.T) {
		past := []*model.Record{rec("a", "мой путь карьеры этой весной")}
		got := echo.FindEcho("мой путь карьеры этой осенью", past)
		gt.NotNil(t, got)
	})
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func TestLink(t *testing.T) {
	ctx := context.Background()
	first := &model.Record{
		ID:        "a",
		Query:     "Will the new job suit me?",
		Summary:   "The Chariot urges forward motion.",
		CreatedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	second := &model.Record{
		ID:        "b",
		Query:     "Why do I feel stuck at work?",
		Summary:   "The Hanged Man asks for surrender.",
		CreatedAt: time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC),
	}

	t.Run("returns analysis", func(t *testing.T) {
		var prompt string
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
				prompt = req.Prompt
				return adapter.Fields{"karmicLinkAnalysis": " Motion gave way to stillness. "}, nil
			},
		}

		got, err := echo.Link(ctx, gen, first, second)
		gt.NoError(t, err)
		gt.Equal(t, got, "Motion gave way to stillness.")
		gt.S(t, prompt).Contains("January 5, 2024")
		gt.S(t, prompt).Contains("The Hanged Man asks for surrender.")
		gt.S(t, prompt).Contains("Why do I feel stuck at work?")
	})

	t.Run("generator failure", func(t *testing.T) {
		gen := &mockGenerator{}
		_, err := echo.Link(ctx, gen, first, second)
		gt.True(t, errors.Is(err, model.ErrGenerationFailed))
	})

	t.Run("empty analysis", func(t *testing.T) {
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
				return adapter.Fields{}, nil
			},
		}
		_, err := echo.Link(ctx, gen, first, second)
		gt.True(t, errors.Is(err, model.ErrGenerationFailed))
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := echo.Link(ctx, &mockGenerator{}, first, nil)
		gt.True(t, errors.Is(err, model.ErrRecordNotFound))
	})
}
