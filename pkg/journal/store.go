package journal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

// DefaultKey is the well-known key holding the whole journal
const DefaultKey = "kairos/journal"

// Store loads and saves the full record sequence as one JSON array under a
// single key. It fails soft: nothing it does returns an error to the caller.
//
// There is no concurrency control. Two processes writing the same key get
// last-write-wins semantics from the backing KV.
type Store struct {
	kv  repository.KV
	key string
}

type StoreOption func(*Store)

// WithKey overrides DefaultKey
func WithKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

func NewStore(kv repository.KV, opts ...StoreOption) *Store {
	s := &Store{
		kv:  kv,
		key: DefaultKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored records, newest first. Missing, unreadable or
// malformed data yields an empty sequence.
func (s *Store) Load(ctx context.Context) []*model.Record {
	logger := logging.From(ctx)

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("failed to load journal, starting empty",
				"error", goerr.Wrap(errors.Join(model.ErrStorageUnavailable, err), "load journal", goerr.V("key", s.key)))
		}
		return []*model.Record{}
	}

	if len(data) == 0 {
		return []*model.Record{}
	}

	var records []*model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("stored journal is malformed, starting empty",
			"error", goerr.Wrap(errors.Join(model.ErrStorageUnavailable, err), "decode journal", goerr.V("key", s.key)))
		return []*model.Record{}
	}

	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		// a null array element carries nothing worth keeping
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Save writes the full sequence. A failure is logged, not returned: losing
// persistence must not break the exchange in progress.
func (s *Store) Save(ctx context.Context, records []*model.Record) {
	if records == nil {
		records = []*model.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		logging.From(ctx).Error("failed to encode journal",
			"error", goerr.Wrap(err, "encode journal", goerr.V("records", len(records))))
		return
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		logging.From(ctx).Warn("failed to save journal",
			"error", goerr.Wrap(errors.Join(model.ErrStorageUnavailable, err), "save journal", goerr.V("key", s.key)))
	}
}

// Clear persists an empty sequence
func (s *Store) Clear(ctx context.Context) {
	s.Save(ctx, []*model.Record{})
}
