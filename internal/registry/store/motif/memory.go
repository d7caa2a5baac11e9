// Package motif provides the ordered in-memory motif store with pattern uniqueness.
package motif

import (
	"context"
	"fmt"
	"sync"

	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	"seqreg/pkg/platform/sentinel"
)

// InMemory holds motifs in insertion order, indexed by their normalized pattern.
type InMemory struct {
	mu        sync.RWMutex
	order     []id.MotifID
	records   map[id.MotifID]*models.Motif
	byPattern map[string]id.MotifID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[id.MotifID]*models.Motif),
		byPattern: make(map[string]id.MotifID),
	}
}

// AddIfAbsent appends m unless a motif with the same pattern exists. When it
// does, the existing record is returned with added=false and nothing changes.
// Patterns are expected in normalized (uppercase) form, see models.NewMotif.
func (s *InMemory) AddIfAbsent(_ context.Context, m *models.Motif) (*models.Motif, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("add motif: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.byPattern[m.Pattern]; ok {
		return s.records[existingID].Clone(), false, nil
	}
	if _, exists := s.records[m.ID]; exists {
		return nil, false, fmt.Errorf("add motif %s: id already present", m.ID)
	}
	s.records[m.ID] = m.Clone()
	s.byPattern[m.Pattern] = m.ID
	s.order = append(s.order, m.ID)
	return m.Clone(), true, nil
}

func (s *InMemory) Remove(_ context.Context, motifID id.MotifID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[motifID]
	if !ok {
		return fmt.Errorf("motif %s: %w", motifID, sentinel.ErrNotFound)
	}
	delete(s.records, motifID)
	delete(s.byPattern, rec.Pattern)
	for i, existing := range s.order {
		if existing == motifID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemory) SetActive(_ context.Context, motifID id.MotifID, active bool) (*models.Motif, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[motifID]
	if !ok {
		return nil, fmt.Errorf("motif %s: %w", motifID, sentinel.ErrNotFound)
	}
	rec.Active = active
	return rec.Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, motifID id.MotifID) (*models.Motif, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[motifID]
	if !ok {
		return nil, fmt.Errorf("motif %s: %w", motifID, sentinel.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Motif, error) {
	return s.list(false), nil
}

func (s *InMemory) ListActive(_ context.Context) ([]*models.Motif, error) {
	return s.list(true), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *InMemory) list(activeOnly bool) []*models.Motif {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Motif, 0, len(s.order))
	for _, motifID := range s.order {
		rec := s.records[motifID]
		if activeOnly && !rec.Active {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out
}
