package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"seqreg/internal/registry/metrics"
	"seqreg/internal/registry/models"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/platform/sentinel"
	"seqreg/pkg/requestcontext"
)

type SequenceStore interface {
	Add(ctx context.Context, seq *models.Sequence) error
	Remove(ctx context.Context, seqID id.SequenceID) error
	SetActive(ctx context.Context, seqID id.SequenceID, active bool) (*models.Sequence, error)
	FindByID(ctx context.Context, seqID id.SequenceID) (*models.Sequence, error)
	ListAll(ctx context.Context) ([]*models.Sequence, error)
	ListActive(ctx context.Context) ([]*models.Sequence, error)
	Count(ctx context.Context) (int, error)
}

type MotifStore interface {
	AddIfAbsent(ctx context.Context, m *models.Motif) (*models.Motif, bool, error)
	Remove(ctx context.Context, motifID id.MotifID) error
	SetActive(ctx context.Context, motifID id.MotifID, active bool) (*models.Motif, error)
	FindByID(ctx context.Context, motifID id.MotifID) (*models.Motif, error)
	ListAll(ctx context.Context) ([]*models.Motif, error)
	ListActive(ctx context.Context) ([]*models.Motif, error)
	Count(ctx context.Context) (int, error)
}

// Service is the session-scoped registry owning one sequence store and one
// motif store. Mutations hold mu exclusively so WorkingSet, which reads both
// stores, always observes a state produced by whole operations.
type Service struct {
	mu        sync.RWMutex
	sequences SequenceStore
	motifs    MotifStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a registry Service over the given stores.
func New(sequences SequenceStore, motifs MotifStore, opts ...Option) (*Service, error) {
	if sequences == nil {
		return nil, errors.New("sequence store is required")
	}
	if motifs == nil {
		return nil, errors.New("motif store is required")
	}
	s := &Service{sequences: sequences, motifs: motifs}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// WorkingSet is the active subset of both stores, in insertion order.
type WorkingSet struct {
	Sequences []*models.Sequence `json:"sequences"`
	Motifs    []*models.Motif    `json:"motifs"`
}

// WorkingSet returns the active sequences and active motifs as one snapshot.
func (s *Service) WorkingSet(ctx context.Context) (*WorkingSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seqs, err := s.sequences.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active sequences")
	}
	motifs, err := s.motifs.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active motifs")
	}
	return &WorkingSet{Sequences: seqs, Motifs: motifs}, nil
}

func (s *Service) logMutation(ctx context.Context, msg string, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logRejected(ctx context.Context, msg string, err error, args ...any) {
	args = append(args,
		"reason", string(dErrors.CodeOf(err)),
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.WarnContext(ctx, msg, args...)
}

func notFound(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry store failure")
}
