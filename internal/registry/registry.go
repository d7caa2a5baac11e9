// Package registry is the entry point for the sequence and motif registry:
// in-memory stores, the session-scoped service and its HTTP handler.
package registry

import (
	"log/slog"
	"time"

	platformmetrics "seqreg/internal/platform/metrics"
	"seqreg/internal/registry/handler"
	"seqreg/internal/registry/service"
	motifstore "seqreg/internal/registry/store/motif"
	sequencestore "seqreg/internal/registry/store/sequence"
)

// Service exposes sequence and motif orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewInMemoryService constructs a registry backed by fresh in-memory stores.
func NewInMemoryService(opts ...service.Option) (*Service, error) {
	return service.New(sequencestore.NewInMemory(), motifstore.NewInMemory(), opts...)
}

// NewHandler constructs the HTTP handler for the registry API.
func NewHandler(s *Service, ingest handler.Ingester, logger *slog.Logger, m *platformmetrics.Metrics, timeout time.Duration) *Handler {
	return handler.New(s, ingest, logger, m, timeout)
}
