package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"seqreg/internal/ingest"
	"seqreg/internal/ingest/ncbi"
	platformmetrics "seqreg/internal/platform/metrics"
	"seqreg/internal/registry/models"
	"seqreg/internal/registry/service"
	motifstore "seqreg/internal/registry/store/motif"
	sequencestore "seqreg/internal/registry/store/sequence"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/testutil"
)

// stubFetcher serves canned FASTA records by accession.
type stubFetcher map[string]string

func (f stubFetcher) Fetch(_ context.Context, accession string) (string, error) {
	record, ok := f[accession]
	if !ok {
		return "", ncbi.NewFetchError(ncbi.ErrorNotFound, accession, "accession not found", nil)
	}
	return record, nil
}

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc, err := service.New(sequencestore.NewInMemory(), motifstore.NewInMemory(), service.WithLogger(logger))
	s.Require().NoError(err)
	ing, err := ingest.New(svc, ingest.WithLogger(logger), ingest.WithFetcher(stubFetcher{
		"NM_000546.6": ">NM_000546.6 TP53\nGATGGGATTG\nGGGTTTTCCC\n",
		"EMPTY1":      ">EMPTY1 nothing here\n",
	}))
	s.Require().NoError(err)

	h := New(svc, ing, logger, platformmetrics.New(prometheus.NewRegistry()), 0)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) addSequence(content, title string) string {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences", AddSequenceRequest{Content: content, Title: title}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[CreatedResponse](s.T(), rr).ID
}

func (s *HandlerSuite) addMotif(pattern string) (*AddMotifResponse, int) {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/motifs", AddMotifRequest{Pattern: pattern}))
	if rr.Code >= 300 {
		return nil, rr.Code
	}
	return testutil.UnmarshalResponse[AddMotifResponse](s.T(), rr), rr.Code
}

func (s *HandlerSuite) listSequences(query string) []*models.Sequence {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/sequences"+query))
	s.Require().Equal(http.StatusOK, rr.Code)
	return testutil.UnmarshalResponse[SequenceListResponse](s.T(), rr).Sequences
}

func (s *HandlerSuite) setActive(path string, active bool) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]bool{"active": active}))
}

// =============================================================================
// Sequences
// =============================================================================

func (s *HandlerSuite) TestAddSequence() {
	s.Run("manual entry strips whitespace", func() {
		seqID := s.addSequence("ac gt\nAC", "manual")

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/sequences/"+seqID))
		testutil.AssertStatusOK(s.T(), rr)
		seq := testutil.UnmarshalResponse[models.Sequence](s.T(), rr)
		s.Equal("ACGTAC", seq.Content)
		s.Equal("manual", seq.Title)
		s.True(seq.Active)
	})

	s.Run("invalid alphabet", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences", AddSequenceRequest{Content: "ACGX"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidAlphabet))
	})

	s.Run("empty content", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences", AddSequenceRequest{Content: " \n "}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeEmptyContent))
	})

	s.Run("malformed body", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/sequences", `{"content":`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("unknown fields are rejected", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/sequences", `{"content":"ACGT","position":3}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestUploadFASTA() {
	s.Run("titled from query", func() {
		rr := s.do(testutil.NewFASTARequest(s.T(), "/sequences/fasta?title=chr1", ">chr1 test\nACGT\nTTAA\n"))
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

		seqs := s.listSequences("")
		s.Require().Len(seqs, 1)
		s.Equal("ACGTTTAA", seqs[0].Content)
		s.Equal("chr1", seqs[0].Title)
	})

	s.Run("rejected content", func() {
		rr := s.do(testutil.NewFASTARequest(s.T(), "/sequences/fasta", ">x\nACGN\n"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidAlphabet))
	})

	s.Run("description becomes the default title", func() {
		rr := s.do(testutil.NewFASTARequest(s.T(), "/sequences/fasta", ">NC_045512.2 SARS-CoV-2\nATTAAAGG\n"))
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
		seqs := s.listSequences("")
		s.Equal("NC_045512.2 SARS-CoV-2", seqs[len(seqs)-1].Title)
	})
}

func (s *HandlerSuite) TestFetchSequence() {
	s.Run("adds fetched record titled by accession", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences/ncbi", FetchSequenceRequest{Accession: "NM_000546.6"}))
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

		seqs := s.listSequences("")
		s.Require().Len(seqs, 1)
		s.Equal("NM_000546.6", seqs[0].Title)
		s.Equal("GATGGGATTGGGGTTTTCCC", seqs[0].Content)
	})

	s.Run("empty record is a fetch failure", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences/ncbi", FetchSequenceRequest{Accession: "EMPTY1"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, string(dErrors.CodeFetchFailed))
		s.Len(s.listSequences(""), 1)
	})

	s.Run("unknown accession", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences/ncbi", FetchSequenceRequest{Accession: "XX999"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, string(dErrors.CodeFetchFailed))
	})

	s.Run("missing accession", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/sequences/ncbi", FetchSequenceRequest{Accession: "  "}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *HandlerSuite) TestSequenceLifecycle() {
	a := s.addSequence("ACGT", "A")
	b := s.addSequence("TTTT", "B")

	s.Run("deactivate hides from active list", func() {
		rr := s.setActive("/sequences/"+a+"/active", false)
		testutil.AssertStatusOK(s.T(), rr)
		s.False(testutil.UnmarshalResponse[models.Sequence](s.T(), rr).Active)

		active := s.listSequences("?active=true")
		s.Require().Len(active, 1)
		s.Equal("B", active[0].Title)
		s.Len(s.listSequences(""), 2)
	})

	s.Run("reactivate restores original order", func() {
		testutil.AssertStatusOK(s.T(), s.setActive("/sequences/"+a+"/active", true))
		active := s.listSequences("?active=true")
		s.Require().Len(active, 2)
		s.Equal("A", active[0].Title)
		s.Equal("B", active[1].Title)
	})

	s.Run("missing active field", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPut, "/sequences/"+a+"/active", `{}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("remove twice", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/sequences/"+b))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

		rr = s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/sequences/"+b))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("unknown id", func() {
		rr := s.setActive("/sequences/"+id.NewSequenceID().String()+"/active", true)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("malformed id", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/sequences/not-a-uuid"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("invalid active filter", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/sequences?active=maybe"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Motifs
// =============================================================================

func (s *HandlerSuite) TestAddMotif() {
	first, code := s.addMotif("AT")
	s.Equal(http.StatusCreated, code)
	s.Equal(models.OutcomeAdded, first.Outcome)

	dup, code := s.addMotif("at")
	s.Equal(http.StatusOK, code)
	s.Equal(models.OutcomeDuplicate, dup.Outcome)
	s.Equal(first.ID, dup.ID)

	_, code = s.addMotif("ATX")
	s.Equal(http.StatusBadRequest, code)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/motifs"))
	testutil.AssertStatusOK(s.T(), rr)
	motifs := testutil.UnmarshalResponse[MotifListResponse](s.T(), rr).Motifs
	s.Require().Len(motifs, 1)
	s.Equal("AT", motifs[0].Pattern)
}

func (s *HandlerSuite) TestMotifLifecycle() {
	m, _ := s.addMotif("GATC")

	testutil.AssertStatusOK(s.T(), s.setActive("/motifs/"+m.ID+"/active", false))

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/motifs?active=true"))
	s.Empty(testutil.UnmarshalResponse[MotifListResponse](s.T(), rr).Motifs)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/motifs/"+m.ID))
	testutil.AssertStatusOK(s.T(), rr)
	s.False(testutil.UnmarshalResponse[models.Motif](s.T(), rr).Active)

	testutil.AssertStatus(s.T(), s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/motifs/"+m.ID)), http.StatusNoContent)

	again, code := s.addMotif("gatc")
	s.Equal(http.StatusCreated, code, "pattern is free again after removal")
	s.NotEqual(m.ID, again.ID)
}

// =============================================================================
// Working set
// =============================================================================

func (s *HandlerSuite) TestWorkingSet() {
	a := s.addSequence("ACGT", "A")
	s.addSequence("GGGG", "B")
	m, _ := s.addMotif("AC")
	s.addMotif("GG")

	testutil.AssertStatusOK(s.T(), s.setActive("/sequences/"+a+"/active", false))
	testutil.AssertStatusOK(s.T(), s.setActive("/motifs/"+m.ID+"/active", false))

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/working-set"))
	testutil.AssertStatusOK(s.T(), rr)
	ws := testutil.UnmarshalResponse[service.WorkingSet](s.T(), rr)
	s.Require().Len(ws.Sequences, 1)
	s.Equal("B", ws.Sequences[0].Title)
	s.Require().Len(ws.Motifs, 1)
	s.Equal("GG", ws.Motifs[0].Pattern)
}

func (s *HandlerSuite) TestRequestIDEchoed() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/working-set")
	req.Header.Set("X-Request-ID", "trace-42")
	rr := s.do(req)
	s.Equal("trace-42", rr.Header().Get("X-Request-ID"))
	s.Equal("application/json", rr.Header().Get("Content-Type"))
}
