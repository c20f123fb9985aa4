package httputil

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RetryFunc decides whether to send the request again. It gets the status code of
// the response (0 if no response was received) and the transport error.
// Returning an error stops the retry loop with that error.
type RetryFunc func(status int, err error) (bool, error)

// RetryUntilOK retries until the server responds with 200.
func RetryUntilOK(status int, err error) (bool, error) {
	return err != nil || status != http.StatusOK, nil
}

// SendHTTPRequestWithRetry sends a request with retry logic.
// A negative retryCount retries until ctx is done.
func SendHTTPRequestWithRetry(
	ctx context.Context,
	hc *http.Client,
	url url.URL,
	httpMethod string,
	data []byte,
	retry RetryFunc,
	reqTimeout,
	retryInterval time.Duration,
	retryCount int,
) error {
	var lastErr error
	for attempt := 1; retryCount < 0 || attempt <= retryCount; attempt++ {
		status, err := send(ctx, hc, url, httpMethod, data, reqTimeout)
		if ok, err := retry(status, err); err != nil {
			return err
		} else if !ok {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected status code %d", status)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(retryInterval):
		}
	}
	return fmt.Errorf("retry count exceeded (last error: %v)", lastErr)
}

func send(
	ctx context.Context,
	hc *http.Client,
	url url.URL,
	httpMethod string,
	data []byte,
	reqTimeout time.Duration,
) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, httpMethod, url.String(), bytes.NewBuffer(data))
	if err != nil {
		return 0, fmt.Errorf("request creation error: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	if err := resp.Body.Close(); err != nil {
		return 0, fmt.Errorf("failed to close response body: %s", err)
	}
	return resp.StatusCode, nil
}
