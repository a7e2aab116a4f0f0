package simulator

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when a generation is requested without a company universe.
	ErrNotConfigured = errors.New("simulator: company universe not configured")
	// ErrSessionOpen is returned when an operation requires a closed session.
	ErrSessionOpen = errors.New("simulator: session already open")
	// ErrSessionClosed is returned when an operation requires an open session.
	ErrSessionClosed = errors.New("simulator: session not open")
	// ErrInvalidArgument is returned for out-of-range call parameters.
	ErrInvalidArgument = errors.New("simulator: invalid argument")
)

// Warning reports a per-company fallback taken while building a batch.
type Warning struct {
	Symbol  string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Symbol, w.Message)
}
