package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// commonUserAgent is the user agent string used for all HTTP requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxJSONReadSize limits the amount of response body we read.
	maxJSONReadSize = 1 << 20
	// maxFetchAttempts bounds retries for transient upstream failures.
	maxFetchAttempts = 3
	// retryBaseDelay is the backoff unit between retry attempts.
	retryBaseDelay = 250 * time.Millisecond
)

// ErrTooManyRedirects is returned when too many redirects are encountered.
var ErrTooManyRedirects = errors.New("too many redirects")

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchJSON performs a GET request and decodes the JSON response into
// dest. A 404 maps to ErrNotFound. Network errors and 5xx responses are
// retried with linear backoff up to maxFetchAttempts; 4xx responses are
// not retried since the request itself is at fault.
func fetchJSON(ctx context.Context, client *http.Client, reqURL string, dest interface{}) error {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBaseDelay):
			}
		}

		retryable, err := fetchJSONOnce(ctx, client, reqURL, dest)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}

	return lastErr
}

func fetchJSONOnce(ctx context.Context, client *http.Client, reqURL string, dest interface{}) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false, err
	}

	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return true, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxJSONReadSize)
	if err := json.NewDecoder(limited).Decode(dest); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return false, nil
}
