package downloader

import (
	"errors"
	"fmt"
)

// TransferError is returned when a single file cannot be transferred. It aborts the
// remaining files of the fetch run.
type TransferError struct {
	URL  string
	Path string
	// StatusCode is the HTTP status of the transfer. It is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer %q to %q: status %d: %s", e.URL, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transfer %q to %q: %s", e.URL, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError returns true if the error is or wraps a TransferError.
func IsTransferError(err error) bool {
	var terr *TransferError
	return errors.As(err, &terr)
}
