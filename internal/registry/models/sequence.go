package models

import (
	"time"

	"seqreg/internal/alphabet"
	id "seqreg/pkg/domain"
)

// Sequence is a validated DNA sequence held by the registry.
//
// Invariants:
//   - Content is non-empty, uppercase and contains only A, C, G, T
//   - ID is assigned at construction and never changes
//   - Active is the only mutable field after construction
type Sequence struct {
	ID        id.SequenceID `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewSequence normalizes and validates content, then builds an active Sequence.
// Returns a CodeEmptyContent or CodeInvalidAlphabet domain error on bad content.
func NewSequence(sequenceID id.SequenceID, content, title string, now time.Time) (*Sequence, error) {
	normalized, err := alphabet.Check(content)
	if err != nil {
		return nil, err
	}
	return &Sequence{
		ID:        sequenceID,
		Title:     title,
		Content:   normalized,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// Len returns the number of bases in the sequence.
func (s *Sequence) Len() int {
	return len(s.Content)
}

// Clone returns a copy that callers may hold without aliasing the store's record.
func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
