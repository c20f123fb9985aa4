package registry

import (
	"errors"
	"fmt"
)

// RegistryError is returned when a model manifest cannot be resolved. A fetch
// run must be aborted on this error.
type RegistryError struct {
	ModelID string
	// StatusCode is the HTTP status of the lookup. It is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *RegistryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("resolve manifest of %q: status %d: %s", e.ModelID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("resolve manifest of %q: %s", e.ModelID, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// IsRegistryError returns true if the error is or wraps a RegistryError.
func IsRegistryError(err error) bool {
	var rerr *RegistryError
	return errors.As(err, &rerr)
}
