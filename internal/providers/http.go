package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	retryCount     = 2
	baseBackoff    = 800 * time.Millisecond
	maxBackoff     = 8 * time.Second
	maxErrBodySize = 300
)

// HTTPError is a non-2xx response from an upstream provider.
type HTTPError struct {
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d for %s - %s", e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d for %s", e.Status, e.URL)
}

// retryable reports whether the status indicates a transient upstream
// condition worth retrying.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// getJSON issues a GET and decodes the JSON body into v. Responses with
// status 429 or 503 are retried with doubling backoff (capped); any other
// non-2xx status fails immediately with an *HTTPError.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, v any) error {
	backoff := baseBackoff
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		for k, val := range headers {
			req.Header.Set(k, val)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err := json.NewDecoder(resp.Body).Decode(v)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode response from %s: %w", url, err)
			}
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		resp.Body.Close()

		if retryable(resp.StatusCode) && attempt < retryCount {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		return &HTTPError{Status: resp.StatusCode, URL: url, Body: string(body)}
	}
}
