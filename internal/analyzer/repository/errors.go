package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderErrorKind classifies an AI provider failure.
type ProviderErrorKind string

const (
	ProviderErrorAuth      ProviderErrorKind = "auth"
	ProviderErrorQuota     ProviderErrorKind = "quota"
	ProviderErrorNetwork   ProviderErrorKind = "network"
	ProviderErrorMalformed ProviderErrorKind = "malformed"
)

// ProviderError is a classified failure from one narrative backend. The
// fallback chain treats every kind the same way: move on to the next
// provider.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// classifyStatus maps an HTTP status to a provider error kind.
func classifyStatus(status int) ProviderErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ProviderErrorAuth
	case status == http.StatusTooManyRequests:
		return ProviderErrorQuota
	case status >= 500:
		return ProviderErrorNetwork
	default:
		return ProviderErrorMalformed
	}
}

// FetchError is a failed upstream data fetch for one category. The core
// records it and continues; retries are caller policy.
type FetchError struct {
	Category string
	Symbol   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Category, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError.
func NewFetchError(category, symbol string, err error) *FetchError {
	return &FetchError{Category: category, Symbol: symbol, Err: err}
}

// IsCancelled reports whether err is a context cancellation rather than a
// genuine provider failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
