package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"seqreg/internal/platform/metrics"
	"seqreg/internal/platform/middleware"
	"seqreg/internal/registry/models"
	"seqreg/internal/registry/service"
	id "seqreg/pkg/domain"
	dErrors "seqreg/pkg/domain-errors"
	"seqreg/pkg/platform/httputil"
	"seqreg/pkg/platform/middleware/requesttime"
)

// Registry defines the registry operations exposed over HTTP.
type Registry interface {
	RemoveSequence(ctx context.Context, seqID id.SequenceID) error
	SetSequenceActive(ctx context.Context, seqID id.SequenceID, active bool) (*models.Sequence, error)
	GetSequence(ctx context.Context, seqID id.SequenceID) (*models.Sequence, error)
	ListSequences(ctx context.Context) ([]*models.Sequence, error)
	ListActiveSequences(ctx context.Context) ([]*models.Sequence, error)

	AddMotif(ctx context.Context, pattern string) (id.MotifID, models.AddOutcome, error)
	RemoveMotif(ctx context.Context, motifID id.MotifID) error
	SetMotifActive(ctx context.Context, motifID id.MotifID, active bool) (*models.Motif, error)
	GetMotif(ctx context.Context, motifID id.MotifID) (*models.Motif, error)
	ListMotifs(ctx context.Context) ([]*models.Motif, error)
	ListActiveMotifs(ctx context.Context) ([]*models.Motif, error)

	WorkingSet(ctx context.Context) (*service.WorkingSet, error)
}

// Ingester adds sequences from the supported sources.
type Ingester interface {
	FromText(ctx context.Context, text, title string) (id.SequenceID, error)
	FromReader(ctx context.Context, r io.Reader, title string) (id.SequenceID, error)
	FromAccession(ctx context.Context, accession string) (id.SequenceID, error)
}

const (
	maxJSONBodyBytes  = 1 << 20
	maxFASTABodyBytes = 64 << 20
)

// Handler serves the sequence and motif registry API.
type Handler struct {
	registry Registry
	ingest   Ingester
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// New creates a registry Handler. Requests are bounded by timeout.
func New(registry Registry, ingest Ingester, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		registry: registry,
		ingest:   ingest,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(middleware.RequestID)
	registryRouter.Use(middleware.Recovery(h.logger, h.metrics))
	registryRouter.Use(middleware.Logger(h.logger))
	registryRouter.Use(middleware.Timeout(h.timeout))
	registryRouter.Use(middleware.ContentTypeJSON)
	registryRouter.Use(middleware.LatencyMiddleware(h.metrics))
	registryRouter.Use(requesttime.Middleware)

	registryRouter.Route("/sequences", func(r chi.Router) {
		r.Post("/", h.handleAddSequence)
		r.Post("/fasta", h.handleUploadFASTA)
		r.Post("/ncbi", h.handleFetchSequence)
		r.Get("/", h.handleListSequences)
		r.Get("/{id}", h.handleGetSequence)
		r.Put("/{id}/active", h.handleSetSequenceActive)
		r.Delete("/{id}", h.handleRemoveSequence)
	})
	registryRouter.Route("/motifs", func(r chi.Router) {
		r.Post("/", h.handleAddMotif)
		r.Get("/", h.handleListMotifs)
		r.Get("/{id}", h.handleGetMotif)
		r.Put("/{id}/active", h.handleSetMotifActive)
		r.Delete("/{id}", h.handleRemoveMotif)
	})
	registryRouter.Get("/working-set", h.handleWorkingSet)

	r.Mount("/", registryRouter)
}

// =============================================================================
// Sequences
// =============================================================================

func (h *Handler) handleAddSequence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddSequenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	seqID, err := h.ingest.FromText(ctx, req.Content, req.Title)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatedResponse{ID: seqID.String()})
}

func (h *Handler) handleUploadFASTA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, maxFASTABodyBytes)

	seqID, err := h.ingest.FromReader(ctx, body, r.URL.Query().Get("title"))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = dErrors.Newf(dErrors.CodeInvalidInput, "FASTA body exceeds %d bytes", maxFASTABodyBytes)
		}
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatedResponse{ID: seqID.String()})
}

func (h *Handler) handleFetchSequence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FetchSequenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	seqID, err := h.ingest.FromAccession(ctx, req.Accession)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatedResponse{ID: seqID.String()})
}

func (h *Handler) handleListSequences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeOnly, err := activeFilter(r)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	var seqs []*models.Sequence
	if activeOnly {
		seqs, err = h.registry.ListActiveSequences(ctx)
	} else {
		seqs, err = h.registry.ListSequences(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SequenceListResponse{Sequences: seqs})
}

func (h *Handler) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seqID, err := id.ParseSequenceID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	seq, err := h.registry.GetSequence(ctx, seqID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, seq)
}

func (h *Handler) handleSetSequenceActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seqID, err := id.ParseSequenceID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req SetActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	seq, err := h.registry.SetSequenceActive(ctx, seqID, *req.Active)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, seq)
}

func (h *Handler) handleRemoveSequence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	seqID, err := id.ParseSequenceID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if err := h.registry.RemoveSequence(ctx, seqID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Motifs
// =============================================================================

func (h *Handler) handleAddMotif(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddMotifRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	motifID, outcome, err := h.registry.AddMotif(ctx, req.Pattern)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	status := http.StatusCreated
	if outcome == models.OutcomeDuplicate {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, AddMotifResponse{ID: motifID.String(), Outcome: outcome})
}

func (h *Handler) handleListMotifs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeOnly, err := activeFilter(r)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	var motifs []*models.Motif
	if activeOnly {
		motifs, err = h.registry.ListActiveMotifs(ctx)
	} else {
		motifs, err = h.registry.ListMotifs(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MotifListResponse{Motifs: motifs})
}

func (h *Handler) handleGetMotif(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	motifID, err := id.ParseMotifID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	motif, err := h.registry.GetMotif(ctx, motifID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, motif)
}

func (h *Handler) handleSetMotifActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	motifID, err := id.ParseMotifID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req SetActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	motif, err := h.registry.SetMotifActive(ctx, motifID, *req.Active)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, motif)
}

func (h *Handler) handleRemoveMotif(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	motifID, err := id.ParseMotifID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if err := h.registry.RemoveMotif(ctx, motifID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Working set
// =============================================================================

func (h *Handler) handleWorkingSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ws, err := h.registry.WorkingSet(ctx)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws)
}

// =============================================================================
// Helpers
// =============================================================================

// decode reads a JSON body into dst, writing a bad_request response on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "invalid request body",
			"path", r.URL.Path,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) && !dErrors.HasCode(err, dErrors.CodeTimeout) {
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "request failed",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

// activeFilter reports whether ?active=true was given. active=false lists everything.
func activeFilter(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("active")
	if raw == "" {
		return false, nil
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.Newf(dErrors.CodeInvalidInput, "invalid active filter %q", raw)
	}
	return active, nil
}
