package service

import (
	"context"

	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/requestcontext"
)

// AddMotif trims, uppercases and validates pattern. When the pattern is
// already registered it returns the existing motif's id with OutcomeDuplicate
// and a nil error; nothing is mutated.
func (s *Service) AddMotif(ctx context.Context, pattern string) (id.MotifID, models.AddOutcome, error) {
	candidate, err := models.NewMotif(id.NewMotifID(), pattern, requestcontext.Now(ctx))
	if err != nil {
		s.logRejected(ctx, "motif rejected", err, "pattern", pattern)
		if s.metrics != nil {
			s.metrics.IncrementMotifRejected(string(dErrors.CodeOf(err)))
		}
		return id.MotifID{}, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, added, err := s.motifs.AddIfAbsent(ctx, candidate)
	if err != nil {
		return id.MotifID{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store motif")
	}
	if !added {
		s.logger.InfoContext(ctx, "motif already registered",
			"motif_id", stored.ID.String(),
			"pattern", stored.Pattern,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementMotifDuplicate()
		}
		return stored.ID, models.OutcomeDuplicate, nil
	}

	s.logMutation(ctx, "motif added", "motif_id", stored.ID.String(), "pattern", stored.Pattern)
	if s.metrics != nil {
		s.metrics.IncrementMotifAdded()
		s.recordMotifCount(ctx)
	}
	return stored.ID, models.OutcomeAdded, nil
}

func (s *Service) RemoveMotif(ctx context.Context, motifID id.MotifID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.motifs.Remove(ctx, motifID); err != nil {
		return notFound(err, "motif")
	}
	s.logMutation(ctx, "motif removed", "motif_id", motifID.String())
	if s.metrics != nil {
		s.metrics.IncrementMotifRemoved()
		s.recordMotifCount(ctx)
	}
	return nil
}

func (s *Service) SetMotifActive(ctx context.Context, motifID id.MotifID, active bool) (*models.Motif, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.motifs.SetActive(ctx, motifID, active)
	if err != nil {
		return nil, notFound(err, "motif")
	}
	s.logMutation(ctx, "motif active flag set", "motif_id", motifID.String(), "active", active)
	return m, nil
}

func (s *Service) GetMotif(ctx context.Context, motifID id.MotifID) (*models.Motif, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.motifs.FindByID(ctx, motifID)
	if err != nil {
		return nil, notFound(err, "motif")
	}
	return m, nil
}

func (s *Service) ListMotifs(ctx context.Context) ([]*models.Motif, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	motifs, err := s.motifs.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list motifs")
	}
	return motifs, nil
}

func (s *Service) ListActiveMotifs(ctx context.Context) ([]*models.Motif, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	motifs, err := s.motifs.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active motifs")
	}
	return motifs, nil
}

func (s *Service) recordMotifCount(ctx context.Context) {
	if n, err := s.motifs.Count(ctx); err == nil {
		s.metrics.SetStoreSize("motifs", n)
	}
}
