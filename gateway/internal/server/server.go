package server

import (
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/gateway/internal/generator"
	"github.com/llmariner/generation-gateway/gateway/internal/monitoring"
	"golang.org/x/sync/semaphore"
)

// New creates a server. The generator is used for the lifetime of the server.
//
// At most maxConcurrency generator calls run at the same time. 0 removes the limit
// and requires a generator that is safe for concurrent use.
func New(
	gen generator.Generator,
	maxConcurrency int,
	metrics monitoring.MetricsMonitoring,
	logger logr.Logger,
) *S {
	var sem *semaphore.Weighted
	if maxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(maxConcurrency))
	}
	return &S{
		gen:     gen,
		sem:     sem,
		metrics: metrics,
		logger:  logger.WithName("server"),
	}
}

// S is a server.
type S struct {
	gen generator.Generator
	// sem bounds the number of in-flight generator calls. nil if unbounded.
	sem *semaphore.Weighted

	metrics monitoring.MetricsMonitoring

	draining atomic.Bool

	logger logr.Logger
}

// Drain marks the server as shutting down. The readiness probe fails afterwards.
func (s *S) Drain() {
	s.draining.Store(true)
}

// IsReady returns true if the server can accept generation requests.
func (s *S) IsReady() (bool, string) {
	if s.gen == nil {
		return false, "generator is not loaded"
	}
	if s.draining.Load() {
		return false, "server is shutting down"
	}
	return true, ""
}
