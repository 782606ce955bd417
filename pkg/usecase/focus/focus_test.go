package focus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/usecase/focus"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type brokenKV struct{}

func (brokenKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("unreachable")
}

func (brokenKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("unreachable")
}

func TestKey(t *testing.T) {
	date := time.Date(2024, 7, 4, 23, 59, 0, 0, time.UTC)
	gt.Equal(t, focus.Key(date), "kairos/focus/2024-07-04")
}

func TestToday(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC)

	t.Run("cached per date", func(t *testing.T) {
		kv := repository.NewMemory()
		var prompt string
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
				prompt = req.Prompt
				return adapter.Fields{"dailyFocus": "Woven Threads"}, nil
			},
		}

		got, err := focus.Today(ctx, gen, kv, date)
		gt.NoError(t, err)
		gt.Equal(t, got, "Woven Threads")
		gt.S(t, prompt).Contains("2024-07-04")

		got, err = focus.Today(ctx, gen, kv, date.Add(5*time.Hour))
		gt.NoError(t, err)
		gt.Equal(t, got, "Woven Threads")
		gt.Equal(t, gen.calls, 1)

		_, err = focus.Today(ctx, gen, kv, date.AddDate(0, 0, 1))
		gt.NoError(t, err)
		gt.Equal(t, gen.calls, 2)
	})

	t.Run("generation failure", func(t *testing.T) {
		kv := repository.NewMemory()
		_, err := focus.Today(ctx, &mockGenerator{}, kv, date)
		gt.True(t, errors.Is(err, model.ErrGenerationFailed))

		_, err = kv.Get(ctx, focus.Key(date))
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("empty focus", func(t *testing.T) {
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
				return adapter.Fields{"dailyFocus": ""}, nil
			},
		}
		_, err := focus.Today(ctx, gen, repository.NewMemory(), date)
		gt.True(t, errors.Is(err, model.ErrGenerationFailed))
	})

	t.Run("broken cache still generates", func(t *testing.T) {
		gen := &mockGenerator{
			generateFunc: func(ctx context.Context, req *adapter.GenerateRequest) (adapter.Fields, error) {
				return adapter.Fields{"dailyFocus": "Silent Growth"}, nil
			},
		}
		got, err := focus.Today(ctx, gen, brokenKV{}, date)
		gt.NoError(t, err)
		gt.Equal(t, got, "Silent Growth")
	})
}
