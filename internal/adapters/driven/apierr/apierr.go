// Package apierr classifies failures of HTTP model providers into
// *domain.ProviderError values.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docmind/internal/core/domain"
)

// maxMessage bounds how much of an error body ends up in the error text.
const maxMessage = 300

// KindForStatus maps an HTTP status to a provider failure kind.
func KindForStatus(status int) domain.ProviderErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.ProviderRateLimited
	case status >= 400 && status < 500:
		return domain.ProviderInvalidInput
	default:
		return domain.ProviderUnavailable
	}
}

// FromResponse builds the error for a non-2xx response. body is the
// already-read response body.
func FromResponse(provider string, resp *http.Response, body []byte) error {
	e := domain.NewProviderError(provider, KindForStatus(resp.StatusCode),
		fmt.Errorf("status %d: %s", resp.StatusCode, Message(body)))
	if e.Kind == domain.ProviderRateLimited {
		e.RetryAfter = RetryAfter(resp.Header.Get("Retry-After"))
	}
	return e
}

// FromTransport wraps a failure to reach the provider. Cancellation of ctx
// is returned as ctx.Err() so callers can tell it apart from an outage.
func FromTransport(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return domain.NewProviderError(provider, domain.ProviderUnavailable, err)
}

// Malformed wraps a response that arrived but could not be used.
func Malformed(provider string, err error) error {
	return domain.NewProviderError(provider, domain.ProviderUnavailable, fmt.Errorf("malformed response: %w", err))
}

// Message extracts a human-readable message from an error body. It knows the
// {"message": ...} and {"error": {"message": ...}} shapes and falls back to
// the raw body.
func Message(body []byte) string {
	var shaped struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &shaped) == nil {
		if shaped.Message != "" {
			return truncate(shaped.Message)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(shaped.Error, &nested) == nil && nested.Message != "" {
			return truncate(nested.Message)
		}
		var plain string
		if json.Unmarshal(shaped.Error, &plain) == nil && plain != "" {
			return truncate(plain)
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// IsRateLimited reports whether err is a rate-limited provider failure and
// returns the server's retry hint.
func IsRateLimited(err error) (time.Duration, bool) {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Kind == domain.ProviderRateLimited {
		return pe.RetryAfter, true
	}
	return 0, false
}

func truncate(s string) string {
	if len(s) <= maxMessage {
		return s
	}
	return s[:maxMessage] + "..."
}
