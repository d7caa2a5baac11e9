// Package ingest turns files, pasted text and remote accessions into
// registry sequences. It parses and fetches; all validation belongs to the
// registry.
package ingest

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Registry,Fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"seqreg/internal/ingest/ncbi"
	"seqreg/internal/registry/metrics"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/requestcontext"
)

// Registry is the subset of the registry service ingestion writes to.
type Registry interface {
	AddSequence(ctx context.Context, content, title string) (id.SequenceID, error)
}

// Fetcher retrieves a raw FASTA record for an accession.
type Fetcher interface {
	Fetch(ctx context.Context, accession string) (string, error)
}

const (
	sourceFile = "file"
	sourceText = "text"
	sourceNCBI = "ncbi"

	defaultMaxFileSize = 512 << 20
)

type Service struct {
	registry    Registry
	fetcher     Fetcher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	maxFileSize int64
	manualSeq   atomic.Int64
}

type Option func(*Service)

// WithFetcher enables FromAccession. Without one it fails with CodeUnavailable.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxFileSize bounds the files FromFile accepts.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) { s.maxFileSize = n }
}

func New(registry Registry, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	s := &Service{
		registry:    registry,
		tracer:      otel.Tracer("seqreg/internal/ingest"),
		maxFileSize: defaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// FromFile reads a FASTA (or bare sequence) file and adds it titled by path.
func (s *Service) FromFile(ctx context.Context, path string) (id.SequenceID, error) {
	defer s.observe(sourceFile, time.Now())
	ctx, span := s.tracer.Start(ctx, "ingest.file", trace.WithAttributes(attribute.String("ingest.path", path)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return id.SequenceID{}, dErrors.Wrap(err, dErrors.CodeTimeout, "ingest cancelled")
	}

	f, err := os.Open(path)
	if err != nil {
		return id.SequenceID{}, fileError(err, path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return id.SequenceID{}, fileError(err, path)
	}
	if info.IsDir() {
		return id.SequenceID{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is a directory", path)
	}
	if info.Size() > s.maxFileSize {
		return id.SequenceID{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"%s is %d bytes; limit is %d", path, info.Size(), s.maxFileSize)
	}

	rec, err := ParseFASTA(io.LimitReader(f, s.maxFileSize))
	if err != nil {
		return id.SequenceID{}, fileError(err, path)
	}
	return s.add(ctx, sourceFile, rec.Sequence, path)
}

// FromReader parses FASTA from r and adds it under title.
func (s *Service) FromReader(ctx context.Context, r io.Reader, title string) (id.SequenceID, error) {
	defer s.observe(sourceFile, time.Now())

	rec, err := ParseFASTA(r)
	if err != nil {
		return id.SequenceID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read FASTA")
	}
	if title == "" {
		title = rec.Description
	}
	return s.add(ctx, sourceFile, rec.Sequence, title)
}

// FromText adds manually entered text. Pasted FASTA header lines are dropped;
// whitespace is stripped by the registry. An empty title becomes "manual-<n>".
func (s *Service) FromText(ctx context.Context, text, title string) (id.SequenceID, error) {
	defer s.observe(sourceText, time.Now())

	rec, err := ParseFASTAString(text)
	if err != nil {
		return id.SequenceID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read sequence text")
	}
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("manual-%d", s.manualSeq.Add(1))
	}
	return s.add(ctx, sourceText, rec.Sequence, title)
}

// FromAccession fetches accession and adds its sequence titled by the
// accession. An empty record never reaches the registry.
func (s *Service) FromAccession(ctx context.Context, accession string) (id.SequenceID, error) {
	defer s.observe(sourceNCBI, time.Now())

	if s.fetcher == nil {
		return id.SequenceID{}, dErrors.New(dErrors.CodeUnavailable, "remote fetch is not configured")
	}
	accession = strings.TrimSpace(accession)

	ctx, span := s.tracer.Start(ctx, "ingest.accession", trace.WithAttributes(attribute.String("ingest.accession", accession)))
	defer span.End()

	raw, err := s.fetcher.Fetch(ctx, accession)
	if err != nil {
		s.logger.WarnContext(ctx, "accession fetch failed",
			"accession", accession,
			"category", string(ncbi.CategoryOf(err)),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return id.SequenceID{}, fetchError(err, accession)
	}

	rec, err := ParseFASTAString(raw)
	if err != nil {
		return id.SequenceID{}, dErrors.Wrap(err, dErrors.CodeFetchFailed, "unreadable record for "+accession)
	}
	if rec.Sequence == "" {
		return id.SequenceID{}, dErrors.Newf(dErrors.CodeFetchFailed, "no sequence returned for %s", accession)
	}
	return s.add(ctx, sourceNCBI, rec.Sequence, accession)
}

func (s *Service) add(ctx context.Context, source, content, title string) (id.SequenceID, error) {
	seqID, err := s.registry.AddSequence(ctx, content, title)
	if err != nil {
		return id.SequenceID{}, err
	}
	s.logger.InfoContext(ctx, "sequence ingested",
		"source", source,
		"sequence_id", seqID.String(),
		"title", title,
		"request_id", requestcontext.RequestID(ctx),
	)
	return seqID, nil
}

func (s *Service) observe(source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveIngest(source, start)
	}
}

func fileError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return dErrors.Newf(dErrors.CodeNotFound, "file %s does not exist", path)
	case errors.Is(err, fs.ErrPermission):
		return dErrors.Newf(dErrors.CodeInvalidInput, "file %s is not readable", path)
	default:
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read "+path)
	}
}

// fetchError maps a fetch failure onto the registry error codes. Domain
// errors from the fetcher (bad accession) pass through unchanged.
func fetchError(err error, accession string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	var fe *ncbi.FetchError
	if !errors.As(err, &fe) {
		return dErrors.Wrap(err, dErrors.CodeFetchFailed, "failed to fetch "+accession)
	}
	switch fe.Category {
	case ncbi.ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "NCBI timed out fetching "+accession)
	case ncbi.ErrorProviderOutage, ncbi.ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "NCBI unavailable while fetching "+accession)
	case ncbi.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeFetchFailed, "accession "+accession+" not found")
	case ncbi.ErrorBadData:
		return dErrors.Wrap(err, dErrors.CodeFetchFailed, "NCBI returned no usable record for "+accession)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch "+accession)
	}
}
