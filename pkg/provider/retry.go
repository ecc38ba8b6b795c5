package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chatfront/ollamagate/pkg/api"
)

// RetryPolicy bounds retries of transient upstream failures. Only
// non-streaming calls are retried; a stream that has started belongs to
// the client and must fail visibly instead.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration

	// OnRetry is invoked once per retry attempt, for metrics.
	OnRetry func(providerName string)
}

// CompleteWithRetry calls p.Complete, retrying transient failures with
// backoff until the policy is exhausted or ctx is done. Auth and
// invalid-request errors are returned immediately: retrying cannot
// change their outcome.
func CompleteWithRetry(ctx context.Context, p Provider, req *Request, policy RetryPolicy, logger *slog.Logger) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if policy.OnRetry != nil {
				policy.OnRetry(p.Name())
			}
			delay := retryDelay(lastErr, policy.Backoff, attempt)
			logger.Warn("retrying upstream call",
				"provider", p.Name(),
				"model", req.Model,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			// Client cancellation is the expected path, not a failure.
			return nil, ctx.Err()
		}
		if !api.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// retryDelay picks the wait before the next attempt: an upstream
// Retry-After hint wins, otherwise the backoff doubles per attempt.
func retryDelay(err error, base time.Duration, attempt int) time.Duration {
	if ge := api.AsGatewayError(err); ge.RetryAfter > 0 {
		return ge.RetryAfter
	}
	return base << (attempt - 1)
}

// googleRetryInfo is the structured error body Google APIs attach to
// 429 responses, carrying a retryDelay like "3.5s" in the details.
type googleRetryInfo struct {
	Error struct {
		Details []struct {
			RetryDelay string            `json:"retryDelay"`
			Metadata   map[string]string `json:"metadata"`
		} `json:"details"`
	} `json:"error"`
}

// ParseRetryDelay extracts a retry hint from a rate-limited response.
// It checks the standard Retry-After header first, then Google's
// structured error body. Returns 0 if no hint is found. The response
// body is restored so callers can still read it.
func ParseRetryDelay(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			return time.Until(t)
		}
	}

	if resp.Body == nil {
		return 0
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return 0
	}
	resp.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))

	var info googleRetryInfo
	if err := json.Unmarshal(bodyBytes, &info); err != nil {
		return 0
	}

	for _, detail := range info.Error.Details {
		if detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
		if delay, ok := detail.Metadata["retryDelay"]; ok {
			if d, err := time.ParseDuration(delay); err == nil {
				return d
			}
		}
	}

	return 0
}
