// Package upstream holds the HTTP clients for the external sources: the occupation
// catalog (classification and details) and the LLM providers that generate answers.
// Every failure they return wraps models.ErrExternalSourceFailed.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pario-ai/anzscache/pkg/models"
)

const maxBody = 4 << 20

// result holds the response from a single upstream attempt.
type result struct {
	statusCode int
	body       []byte
}

// doRequest sends a request to baseURL+path and returns the buffered result.
func doRequest(ctx context.Context, client *http.Client, method, baseURL, path string, headers map[string]string, body []byte) (*result, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String()+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &result{statusCode: resp.StatusCode, body: respBody}, nil
}

// isRetryable returns true if the error or status code warrants trying the next route.
func isRetryable(err error, statusCode int) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

func failed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrExternalSourceFailed, err)
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func snippet(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}
