package health

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

// Checker reports whether a component of the gateway can take generation requests.
// The reason is returned when it cannot.
type Checker interface {
	IsReady() (bool, string)
}

// NewReadinessHandler returns a handler answering the readiness endpoint.
func NewReadinessHandler(logger logr.Logger, checkers ...Checker) *ReadinessHandler {
	return &ReadinessHandler{
		checkers: checkers,
		logger:   logger.WithName("readiness"),
	}
}

// ReadinessHandler answers 200 once every checker is ready, and 503 listing the reasons otherwise.
type ReadinessHandler struct {
	checkers []Checker
	logger   logr.Logger
}

func (h *ReadinessHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var reasons []string
	for _, c := range h.checkers {
		if ready, reason := c.IsReady(); !ready {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) > 0 {
		h.logger.V(1).Info("Not ready", "reasons", reasons)
		http.Error(w, "not ready: "+strings.Join(reasons, "; "), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, "ready\n"); err != nil {
		h.logger.Error(err, "Failed to write the readiness response")
	}
}
