package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqreg/internal/ingest"
	"seqreg/pkg/testutil"
)

func TestNewInMemoryService_IsolatedSessions(t *testing.T) {
	first, err := NewInMemoryService()
	require.NoError(t, err)
	second, err := NewInMemoryService()
	require.NoError(t, err)

	_, err = first.AddSequence(context.Background(), "ACGT", "only-in-first")
	require.NoError(t, err)

	seqs, err := second.ListSequences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seqs)
}

func TestNewHandler_RoutesRegistered(t *testing.T) {
	svc, err := NewInMemoryService()
	require.NoError(t, err)
	ing, err := ingest.New(svc)
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(svc, ing, nil, nil, 0).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/working-set"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "sequences")
}
