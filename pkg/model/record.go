package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// Record is one completed divination exchange kept in the journal.
// Optional fields are pointers so that "not provided" (nil) stays
// distinguishable from "provided but empty".
type Record struct {
	ID        RecordID  `json:"id"`
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`

	VisualizationSeed *string `json:"visualization_seed,omitempty"`
	AuraSeed          *string `json:"aura_seed,omitempty"`
	SeedUsed          *string `json:"seed_used,omitempty"`
	AnchorDate        *string `json:"anchor_date,omitempty"`
	AnchorFeeling     *string `json:"anchor_feeling,omitempty"`
	DailyFocusUsed    *string `json:"daily_focus_used,omitempty"`
}

// RecordInput is the caller-supplied part of a Record. ID and CreatedAt are
// assigned by the journal on insertion.
type RecordInput struct {
	Query   string
	Summary string

	VisualizationSeed *string
	AuraSeed          *string
	SeedUsed          *string
	AnchorDate        *string
	AnchorFeeling     *string
	DailyFocusUsed    *string
}

// Validate checks that the input carries a usable summary
func (x *RecordInput) Validate() error {
	if strings.TrimSpace(x.Summary) == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Ptr returns a pointer to a copy of s. Handy for optional record fields.
func Ptr(s string) *string {
	return &s
}

// Deref returns the pointed string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
