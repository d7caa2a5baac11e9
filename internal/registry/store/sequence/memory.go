// Package sequence provides the ordered in-memory sequence store.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	"seqreg/pkg/platform/sentinel"
)

// InMemory holds sequences in insertion order. Records are copied on the way
// in and on the way out, so no caller ever holds a reference into the store.
type InMemory struct {
	mu      sync.RWMutex
	order   []id.SequenceID
	records map[id.SequenceID]*models.Sequence
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.SequenceID]*models.Sequence),
	}
}

// Add appends seq at the end of the store.
func (s *InMemory) Add(_ context.Context, seq *models.Sequence) error {
	if seq == nil {
		return fmt.Errorf("add sequence: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[seq.ID]; exists {
		return fmt.Errorf("add sequence %s: id already present", seq.ID)
	}
	s.records[seq.ID] = seq.Clone()
	s.order = append(s.order, seq.ID)
	return nil
}

// Remove deletes the sequence and keeps the relative order of the rest.
func (s *InMemory) Remove(_ context.Context, seqID id.SequenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[seqID]; !ok {
		return fmt.Errorf("sequence %s: %w", seqID, sentinel.ErrNotFound)
	}
	delete(s.records, seqID)
	for i, existing := range s.order {
		if existing == seqID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetActive sets the active flag and returns the updated record.
func (s *InMemory) SetActive(_ context.Context, seqID id.SequenceID, active bool) (*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[seqID]
	if !ok {
		return nil, fmt.Errorf("sequence %s: %w", seqID, sentinel.ErrNotFound)
	}
	rec.Active = active
	return rec.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, seqID id.SequenceID) (*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[seqID]
	if !ok {
		return nil, fmt.Errorf("sequence %s: %w", seqID, sentinel.ErrNotFound)
	}
	return rec.Clone(), nil
}

// ListAll returns every sequence in insertion order.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Sequence, error) {
	return s.list(false), nil
}

// ListActive returns the active sequences in insertion order.
func (s *InMemory) ListActive(_ context.Context) ([]*models.Sequence, error) {
	return s.list(true), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *InMemory) list(activeOnly bool) []*models.Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Sequence, 0, len(s.order))
	for _, seqID := range s.order {
		rec := s.records[seqID]
		if activeOnly && !rec.Active {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out
}
