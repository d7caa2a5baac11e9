package models

import (
	"time"

	"seqreg/internal/alphabet"
	id "seqreg/pkg/domain"
	pstrings "seqreg/pkg/platform/strings"
)

// Motif is a short validated DNA pattern.
//
// Invariants:
//   - Pattern is non-empty, uppercase and contains only A, C, G, T
//   - Pattern is unique within a motif store (enforced by the store)
type Motif struct {
	ID        id.MotifID `json:"id"`
	Pattern   string     `json:"pattern"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMotif trims, uppercases and validates pattern, then builds an active Motif.
// Inner whitespace is not stripped: "AT CG" is rejected as an invalid alphabet.
func NewMotif(motifID id.MotifID, pattern string, now time.Time) (*Motif, error) {
	normalized, err := NormalizePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &Motif{
		ID:        motifID,
		Pattern:   normalized,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// NormalizePattern returns the canonical form of a motif pattern used as its
// uniqueness key.
func NormalizePattern(pattern string) (string, error) {
	trimmed := pstrings.TrimUpper(pattern)
	return alphabet.CheckExact(trimmed)
}

func (m *Motif) Clone() *Motif {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// AddOutcome reports what a motif add did. Duplicate is informational, not a failure.
type AddOutcome string

const (
	OutcomeAdded     AddOutcome = "added"
	OutcomeDuplicate AddOutcome = "duplicate"
)
