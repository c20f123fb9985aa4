package server

import (
	"errors"
	"fmt"

	"github.com/llmariner/generation-gateway/common/pkg/api"
	"github.com/llmariner/generation-gateway/gateway/internal/monitoring"
	"google.golang.org/grpc/codes"
)

// GeneratorFault is returned when the generator fails. The underlying error is
// surfaced as is; the request is not retried.
type GeneratorFault struct {
	Err error
}

func (e *GeneratorFault) Error() string {
	return fmt.Sprintf("generator fault: %s", e.Err)
}

func (e *GeneratorFault) Unwrap() error {
	return e.Err
}

// IsGeneratorFault returns true if err is or wraps a GeneratorFault.
func IsGeneratorFault(err error) bool {
	var e *GeneratorFault
	return errors.As(err, &e)
}

// unavailableError is returned when a request gives up waiting for the generator.
type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("generator unavailable: %s", e.err)
}

func (e *unavailableError) Unwrap() error {
	return e.err
}

// classify maps an error of HandleGenerate to a status code and the result reported to callers.
func classify(err error) (codes.Code, monitoring.Result) {
	var merr *api.MalformedRequestError
	if errors.As(err, &merr) {
		return codes.InvalidArgument, monitoring.ResultMalformedRequest
	}
	var uerr *unavailableError
	if errors.As(err, &uerr) {
		return codes.Unavailable, monitoring.ResultUnavailable
	}
	return codes.Internal, monitoring.ResultGeneratorFault
}
