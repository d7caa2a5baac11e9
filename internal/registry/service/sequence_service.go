package service

import (
	"context"

	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/requestcontext"
)

// AddSequence normalizes content (uppercase, whitespace removed), validates it
// and appends a new active sequence. The returned id belongs to the newest
// record, which callers treat as the focused one.
//
// Header lines such as FASTA '>' descriptions must be removed by the caller.
func (s *Service) AddSequence(ctx context.Context, content, title string) (id.SequenceID, error) {
	seq, err := models.NewSequence(id.NewSequenceID(), content, title, requestcontext.Now(ctx))
	if err != nil {
		s.logRejected(ctx, "sequence rejected", err, "title", title)
		if s.metrics != nil {
			s.metrics.IncrementSequenceRejected(string(dErrors.CodeOf(err)))
		}
		return id.SequenceID{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sequences.Add(ctx, seq); err != nil {
		return id.SequenceID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store sequence")
	}

	s.logMutation(ctx, "sequence added",
		"sequence_id", seq.ID.String(),
		"title", seq.Title,
		"length", seq.Len(),
	)
	if s.metrics != nil {
		s.metrics.IncrementSequenceAdded()
		s.recordSequenceCount(ctx)
	}
	return seq.ID, nil
}

// RemoveSequence permanently removes a sequence. A second call with the same
// id fails with CodeNotFound.
func (s *Service) RemoveSequence(ctx context.Context, seqID id.SequenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sequences.Remove(ctx, seqID); err != nil {
		return notFound(err, "sequence")
	}
	s.logMutation(ctx, "sequence removed", "sequence_id", seqID.String())
	if s.metrics != nil {
		s.metrics.IncrementSequenceRemoved()
		s.recordSequenceCount(ctx)
	}
	return nil
}

// SetSequenceActive sets the active flag and returns the updated record.
func (s *Service) SetSequenceActive(ctx context.Context, seqID id.SequenceID, active bool) (*models.Sequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.sequences.SetActive(ctx, seqID, active)
	if err != nil {
		return nil, notFound(err, "sequence")
	}
	s.logMutation(ctx, "sequence active flag set", "sequence_id", seqID.String(), "active", active)
	return seq, nil
}

func (s *Service) GetSequence(ctx context.Context, seqID id.SequenceID) (*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, err := s.sequences.FindByID(ctx, seqID)
	if err != nil {
		return nil, notFound(err, "sequence")
	}
	return seq, nil
}

// ListSequences returns every sequence in insertion order.
func (s *Service) ListSequences(ctx context.Context) ([]*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqs, err := s.sequences.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sequences")
	}
	return seqs, nil
}

// ListActiveSequences returns the working set of sequences in insertion order.
func (s *Service) ListActiveSequences(ctx context.Context) ([]*models.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqs, err := s.sequences.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active sequences")
	}
	return seqs, nil
}

func (s *Service) recordSequenceCount(ctx context.Context) {
	if n, err := s.sequences.Count(ctx); err == nil {
		s.metrics.SetStoreSize("sequences", n)
	}
}
