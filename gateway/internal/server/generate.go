package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/llmariner/generation-gateway/common/pkg/api"
	"github.com/llmariner/generation-gateway/gateway/internal/monitoring"
)

// HandleGenerate parses the request body, runs the generator and returns its output.
// client is the "host:port" of the caller and is only used for logging.
//
// The generator call is not cancelled when ctx is done. ctx only bounds the wait for
// a free generation slot.
func (s *S) HandleGenerate(ctx context.Context, client string, body []byte) (*api.GenerationResponse, error) {
	req, err := api.ParseGenerationRequest(body)
	if err != nil {
		s.metrics.IncRequest(monitoring.ResultMalformedRequest)
		s.logger.V(1).Info("Rejected a malformed request", "client", client, "reason", err.Error())
		return nil, err
	}

	log := s.logger.WithValues("requestID", uuid.NewString(), "client", client)
	log.Info("Received a generation request", "inputs", req.Inputs)

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.metrics.IncRequest(monitoring.ResultUnavailable)
			log.Info("Gave up waiting for the generator", "reason", err.Error())
			return nil, &unavailableError{err: err}
		}
		defer s.sem.Release(1)
	}

	start := time.Now()
	text, err := s.gen.Generate(context.WithoutCancel(ctx), req.Inputs, req.Parameters)
	s.metrics.ObserveGenerationLatency(time.Since(start))
	if err != nil {
		s.metrics.IncRequest(monitoring.ResultGeneratorFault)
		log.Error(err, "Failed to generate text")
		return nil, &GeneratorFault{Err: err}
	}

	log.Info("Generated text", "generated_text", text, "elapsed", time.Since(start))
	s.metrics.IncRequest(monitoring.ResultOK)
	return api.NewGenerationResponse(text), nil
}

// Generate serves a generation request.
func (s *S) Generate(
	w http.ResponseWriter,
	req *http.Request,
	pathParams map[string]string,
) {
	reqBody, err := io.ReadAll(req.Body)
	if err != nil {
		s.metrics.IncRequest(monitoring.ResultMalformedRequest)
		httpError(w, fmt.Sprintf("read request body: %s", err), http.StatusBadRequest, monitoring.ResultMalformedRequest)
		return
	}

	resp, err := s.HandleGenerate(req.Context(), req.RemoteAddr, reqBody)
	if err != nil {
		code, result := classify(err)
		httpError(w, err.Error(), runtime.HTTPStatusFromCode(code), result)
		return
	}

	b, err := json.Marshal(resp)
	if err != nil {
		httpError(w, err.Error(), http.StatusInternalServerError, monitoring.ResultGeneratorFault)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		s.logger.Error(err, "Failed to write the response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	// Type tells callers whether the request is worth retrying.
	Type monitoring.Result `json:"type"`
}

func httpError(w http.ResponseWriter, msg string, code int, typ monitoring.Result) {
	b, err := json.Marshal(&errorResponse{Error: msg, Type: typ})
	if err != nil {
		http.Error(w, fmt.Sprintf("Server error: %s", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

