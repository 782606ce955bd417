package journal

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/utils/clock"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
)

// State is the lifecycle of a Journal within one session
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Journal is the only writer of the Store. It keeps the records in memory,
// newest first, and persists after every mutation.
//
// A Journal is meant for a single logical thread; it does no locking.
type Journal struct {
	store   *Store
	state   State
	records []*model.Record
}

func New(store *Store) *Journal {
	return &Journal{
		store: store,
		state: StateUninitialized,
	}
}

// Open loads the records. It always ends in StateReady, with an empty
// journal when loading failed. Calling it again is a no-op.
func (j *Journal) Open(ctx context.Context) {
	if j.state != StateUninitialized {
		return
	}

	j.state = StateLoading
	j.records = j.store.Load(ctx)
	j.state = StateReady

	logging.From(ctx).Debug("journal opened", "records", len(j.records))
}

// State returns the current lifecycle state
func (j *Journal) State() State {
	return j.state
}

func (j *Journal) ready() error {
	if j.state != StateReady {
		return goerr.Wrap(model.ErrNotReady, "journal must be opened first", goerr.V("state", j.state.String()))
	}
	return nil
}

// Add inserts a new record at the head of the journal and persists it
func (j *Journal) Add(ctx context.Context, input model.RecordInput) (*model.Record, error) {
	if err := j.ready(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, goerr.Wrap(err, "record rejected", goerr.V("query", input.Query))
	}

	record := &model.Record{
		ID:                model.NewRecordID(),
		Query:             input.Query,
		Summary:           input.Summary,
		CreatedAt:         clock.Now(ctx),
		VisualizationSeed: input.VisualizationSeed,
		AuraSeed:          input.AuraSeed,
		SeedUsed:          input.SeedUsed,
		AnchorDate:        input.AnchorDate,
		AnchorFeeling:     input.AnchorFeeling,
		DailyFocusUsed:    input.DailyFocusUsed,
	}

	records := make([]*model.Record, 0, len(j.records)+1)
	records = append(records, record)
	records = append(records, j.records...)
	j.records = records

	j.store.Save(ctx, j.records)

	logging.From(ctx).Debug("journal record added", "id", record.ID, "records", len(j.records))
	return record, nil
}

// GetAll returns the records newest first. The returned slice is a copy;
// the records themselves are shared and must not be modified.
func (j *Journal) GetAll(ctx context.Context) ([]*model.Record, error) {
	if err := j.ready(); err != nil {
		return nil, err
	}
	out := make([]*model.Record, len(j.records))
	copy(out, j.records)
	return out, nil
}

// Get looks a record up by ID
func (j *Journal) Get(ctx context.Context, id model.RecordID) (*model.Record, error) {
	if err := j.ready(); err != nil {
		return nil, err
	}
	for _, r := range j.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, goerr.Wrap(model.ErrRecordNotFound, "no such record", goerr.V("id", id))
}

// Clear drops every record from memory and from storage
func (j *Journal) Clear(ctx context.Context) error {
	if err := j.ready(); err != nil {
		return err
	}
	j.records = []*model.Record{}
	j.store.Clear(ctx)

	logging.From(ctx).Info("journal cleared")
	return nil
}
