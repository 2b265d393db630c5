package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"SmartPortfolio/internal/model"
)

// ErrNotFound is returned when a provider has no data for a ticker.
var ErrNotFound = errors.New("ticker not found")

// Provider fetches a best-effort fundamentals snapshot for one ticker.
// Fields the provider cannot supply are left nil.
type Provider interface {
	Name() string
	FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalRecord, error)
}

// APIError is a non-2xx answer from a provider's HTTP API.
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d) on %s: %s", e.Provider, e.StatusCode, e.Endpoint, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retryable decides whether the collector should try a provider again.
func retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
