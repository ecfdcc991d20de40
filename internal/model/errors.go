package model

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable is matched by every provider failure: network, status or payload.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMalformedResponse is matched when the payload lacks expected fields or fails coercion.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInsufficientData marks a series too short for a requested window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownSymbol is returned for symbols absent from the trading-pair catalog.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnknownPeriod is returned for period names outside the period catalogue.
	ErrUnknownPeriod = errors.New("unknown period")
)

// ProviderError describes a failed upstream call.
type ProviderError struct {
	Provider string
	Op       string
	Kind     error // ErrProviderUnavailable or ErrMalformedResponse
	Err      error
}

// NewUnavailable wraps a transport or status failure.
func NewUnavailable(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Kind: ErrProviderUnavailable, Err: err}
}

// NewMalformed wraps a payload failure.
func NewMalformed(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Kind: ErrMalformedResponse, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
}

// Is matches the error kind, and ErrProviderUnavailable for any kind.
func (e *ProviderError) Is(target error) bool {
	return target == e.Kind || target == ErrProviderUnavailable
}

func (e *ProviderError) Unwrap() error { return e.Err }
