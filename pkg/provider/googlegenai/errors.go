package googlegenai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// MapHTTPError converts a non-2xx Google API response into a
// GatewayError: 401/403 are auth failures, 408/429/5xx transient, the
// rest not retryable.
func MapHTTPError(resp *http.Response) *api.GatewayError {
	// Parse the retry hint first: it restores the body, extracting the
	// message consumes it.
	retryAfter := provider.ParseRetryDelay(resp)
	message := ExtractErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		return api.NewAuthError(message)

	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		ge := api.NewTransientError(message)
		ge.RetryAfter = retryAfter
		return ge

	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		}
		return api.NewTransientError(message)

	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		return api.NewInvalidRequestError("", message)

	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = "backend model not found"
		}
		return api.NewUnavailableError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewInternalError(message)
	}
}

// MapNetworkError converts a network-level failure into a GatewayError.
// Context cancellation passes through untouched so the caller can
// recognize the client-gone path.
func MapNetworkError(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return api.NewTransientError("backend connection error: " + err.Error())
}

// ExtractErrorMessage parses the Google error envelope and returns the
// message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
