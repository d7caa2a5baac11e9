package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"seqreg/internal/ingest/mocks"
	"seqreg/internal/ingest/ncbi"
	"seqreg/internal/registry/metrics"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/requestcontext"
)

// =============================================================================
// Ingest Service Test Suite
// =============================================================================
// The registry and fetcher are mocked: these tests cover how each source is
// parsed and titled, and how fetch failures are mapped, not validation.

type IngestServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistry
	fetcher  *mocks.MockFetcher
	metrics  *metrics.Metrics
	logs     *bytes.Buffer
	service  *Service
}

func TestIngestServiceSuite(t *testing.T) {
	suite.Run(t, new(IngestServiceSuite))
}

func (s *IngestServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistry(s.ctrl)
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}

	var err error
	s.service, err = New(s.registry,
		WithFetcher(s.fetcher),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(s.logs, nil))),
	)
	s.Require().NoError(err)
}

func (s *IngestServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IngestServiceSuite) TestNew() {
	s.Run("nil registry", func() {
		svc, err := New(nil)
		s.Require().Error(err)
		s.Nil(svc)
	})
}

// =============================================================================
// File ingestion
// =============================================================================

func (s *IngestServiceSuite) writeFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *IngestServiceSuite) TestFromFile() {
	ctx := context.Background()

	s.Run("adds parsed FASTA titled by path", func() {
		path := s.writeFile("a.fasta", ">chr1 test\nACGT\nacgt\n")
		want := id.NewSequenceID()
		s.registry.EXPECT().AddSequence(gomock.Any(), "ACGTACGT", path).Return(want, nil)

		got, err := s.service.FromFile(ctx, path)
		s.Require().NoError(err)
		s.Equal(want, got)
	})

	s.Run("registry rejection is returned unchanged", func() {
		path := s.writeFile("bad.fasta", ">x\nACGU\n")
		rejection := dErrors.New(dErrors.CodeInvalidAlphabet, "invalid base 'U' at position 3")
		s.registry.EXPECT().AddSequence(gomock.Any(), "ACGU", path).Return(id.SequenceID{}, rejection)

		_, err := s.service.FromFile(ctx, path)
		s.ErrorIs(err, rejection)
	})

	s.Run("missing file never reaches the registry", func() {
		_, err := s.service.FromFile(ctx, filepath.Join(s.T().TempDir(), "nope.fasta"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("directory is rejected", func() {
		_, err := s.service.FromFile(ctx, s.T().TempDir())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("oversized file is rejected", func() {
		svc, err := New(s.registry, WithMaxFileSize(4))
		s.Require().NoError(err)
		_, err = svc.FromFile(ctx, s.writeFile("big.fasta", "ACGTACGT"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("cancelled context", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.service.FromFile(cctx, s.writeFile("c.fasta", "ACGT"))
		s.Error(err)
	})

	s.Equal(1, testutil.CollectAndCount(s.metrics.IngestDuration), "one file series")
}

func (s *IngestServiceSuite) TestFromReader() {
	s.Run("falls back to the FASTA description for the title", func() {
		s.registry.EXPECT().AddSequence(gomock.Any(), "GGCC", "NM_1 desc").Return(id.NewSequenceID(), nil)
		_, err := s.service.FromReader(context.Background(), strings.NewReader(">NM_1 desc\nGG\nCC"), "")
		s.NoError(err)
	})

	s.Run("explicit title wins", func() {
		s.registry.EXPECT().AddSequence(gomock.Any(), "GGCC", "mine").Return(id.NewSequenceID(), nil)
		_, err := s.service.FromReader(context.Background(), strings.NewReader(">NM_1 desc\nGGCC"), "mine")
		s.NoError(err)
	})
}

// =============================================================================
// Manual entry
// =============================================================================

func (s *IngestServiceSuite) TestFromText() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-7")

	s.Run("drops pasted header lines", func() {
		s.registry.EXPECT().AddSequence(gomock.Any(), "ACGTTT", "pasted").Return(id.NewSequenceID(), nil)
		_, err := s.service.FromText(ctx, ">header\nACGT\nTT", "pasted")
		s.NoError(err)
		s.Contains(s.logs.String(), "request_id=req-7")
	})

	s.Run("empty titles are numbered", func() {
		gomock.InOrder(
			s.registry.EXPECT().AddSequence(gomock.Any(), "AC", "manual-1").Return(id.NewSequenceID(), nil),
			s.registry.EXPECT().AddSequence(gomock.Any(), "GT", "manual-2").Return(id.NewSequenceID(), nil),
		)
		_, err := s.service.FromText(ctx, "AC", "")
		s.NoError(err)
		_, err = s.service.FromText(ctx, "GT", "  ")
		s.NoError(err)
	})

	s.Run("overlong line is rejected before the registry", func() {
		withLineLimit(s.T(), 16)
		_, err := s.service.FromText(ctx, ">pasted header\n"+strings.Repeat("A", 32), "long")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty text is still sent for validation", func() {
		rejection := dErrors.New(dErrors.CodeEmptyContent, "content must contain at least one base")
		s.registry.EXPECT().AddSequence(gomock.Any(), "", "blank").Return(id.SequenceID{}, rejection)
		_, err := s.service.FromText(ctx, "", "blank")
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyContent))
	})
}

// =============================================================================
// Remote accession
// =============================================================================

func (s *IngestServiceSuite) TestFromAccession() {
	ctx := context.Background()

	s.Run("adds fetched sequence titled by accession", func() {
		want := id.NewSequenceID()
		s.fetcher.EXPECT().Fetch(gomock.Any(), "NM_000546.6").Return(">NM_000546.6 TP53\nGATG\nGGAT\n", nil)
		s.registry.EXPECT().AddSequence(gomock.Any(), "GATGGGAT", "NM_000546.6").Return(want, nil)

		got, err := s.service.FromAccession(ctx, " NM_000546.6 ")
		s.Require().NoError(err)
		s.Equal(want, got)
	})

	s.Run("empty body never reaches the registry", func() {
		s.fetcher.EXPECT().Fetch(gomock.Any(), "X1").Return(">X1 header only\n", nil)

		_, err := s.service.FromAccession(ctx, "X1")
		s.True(dErrors.HasCode(err, dErrors.CodeFetchFailed))
	})

	s.Run("unreadable record never reaches the registry", func() {
		withLineLimit(s.T(), 16)
		s.fetcher.EXPECT().Fetch(gomock.Any(), "X2").Return(">X2 header\n"+strings.Repeat("ACGT", 8), nil)

		_, err := s.service.FromAccession(ctx, "X2")
		s.True(dErrors.HasCode(err, dErrors.CodeFetchFailed))
	})

	s.Run("without fetcher", func() {
		svc, err := New(s.registry)
		s.Require().NoError(err)
		_, err = svc.FromAccession(ctx, "X1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("domain errors pass through", func() {
		invalid := dErrors.New(dErrors.CodeInvalidInput, "invalid accession")
		s.fetcher.EXPECT().Fetch(gomock.Any(), "bad id").Return("", invalid)
		_, err := s.service.FromAccession(ctx, "bad id")
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})
}

func (s *IngestServiceSuite) TestFromAccession_FetchErrorMapping() {
	tests := []struct {
		category ncbi.ErrorCategory
		want     dErrors.Code
	}{
		{ncbi.ErrorTimeout, dErrors.CodeTimeout},
		{ncbi.ErrorProviderOutage, dErrors.CodeUnavailable},
		{ncbi.ErrorRateLimited, dErrors.CodeUnavailable},
		{ncbi.ErrorNotFound, dErrors.CodeFetchFailed},
		{ncbi.ErrorBadData, dErrors.CodeFetchFailed},
		{ncbi.ErrorInternal, dErrors.CodeInternal},
	}
	for _, tt := range tests {
		s.Run(string(tt.category), func() {
			fetchErr := ncbi.NewFetchError(tt.category, "X1", "failed", nil)
			s.fetcher.EXPECT().Fetch(gomock.Any(), "X1").Return("", fetchErr)

			_, err := s.service.FromAccession(context.Background(), "X1")
			s.Equal(tt.want, dErrors.CodeOf(err))
			s.ErrorIs(err, fetchErr)
		})
	}

	s.Run("unknown errors are fetch failures", func() {
		s.fetcher.EXPECT().Fetch(gomock.Any(), "X1").Return("", errors.New("boom"))
		_, err := s.service.FromAccession(context.Background(), "X1")
		s.Equal(dErrors.CodeFetchFailed, dErrors.CodeOf(err))
	})
}
