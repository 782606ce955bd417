package seed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

// DefaultKey is the KV key of the held seed
const DefaultKey = "kairos/seed"

type heldSeed struct {
	Seed      string    `json:"seed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Holder owns the current symbolic seed across sessions
type Holder struct {
	kv      repository.KV
	key     string
	current string
}

// NewHolder loads the held seed from kv. A missing or unreadable value
// leaves the holder empty.
func NewHolder(ctx context.Context, kv repository.KV) *Holder {
	h := &Holder{kv: kv, key: DefaultKey}

	data, err := kv.Get(ctx, h.key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return h
	case err != nil:
		logging.From(ctx).Warn("failed to load seed",
			"error", goerr.Wrap(errors.Join(model.ErrStorageUnavailable, err), "load seed"))
		return h
	}

	var v heldSeed
	if err := json.Unmarshal(data, &v); err != nil {
		logging.From(ctx).Warn("stored seed is malformed", "error", goerr.Wrap(err, "decode seed"))
		return h
	}
	h.current = v.Seed
	return h
}

// Current returns the held seed, "" when none
func (h *Holder) Current() string {
	return h.current
}

// Set replaces the held seed and persists it
func (h *Holder) Set(ctx context.Context, seed string) error {
	if err := h.save(ctx, seed); err != nil {
		return err
	}
	h.current = seed
	return nil
}

func (h *Holder) save(ctx context.Context, seed string) error {
	data, err := json.Marshal(heldSeed{
		Seed:      seed,
		UpdatedAt: clock.Now(ctx),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode seed")
	}
	if err := h.kv.Set(ctx, h.key, data); err != nil {
		return goerr.Wrap(errors.Join(model.ErrStorageUnavailable, err), "failed to save seed")
	}
	return nil
}

// Advance evolves the held seed using the summary of the reading it
// inspired. A failed evolution leaves the held seed as it was. A failed
// save is logged and the evolved seed is still held for this session.
func (h *Holder) Advance(ctx context.Context, gen adapter.Generator, lastSummary string) (string, error) {
	if h.current == "" {
		return "", goerr.Wrap(model.ErrNoSeed, "cannot evolve")
	}

	evolved, err := Evolve(ctx, gen, h.current, lastSummary)
	if err != nil {
		return h.current, err
	}
	h.current = evolved
	if err := h.save(ctx, evolved); err != nil {
		logging.From(ctx).Warn("evolved seed is not persisted", "error", err)
	}

	logging.From(ctx).Debug("seed evolved", "seed", evolved)
	return evolved, nil
}
