// Package arenaerr defines the error-kind taxonomy shared across the
// competition engine. Every component that can fail wraps its error with a
// Kind so callers can dispatch on category without parsing messages.
package arenaerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure by how its owning component should react to it.
type Kind int

const (
	// KindUnknown is the zero value; KindOf returns this for plain errors.
	KindUnknown Kind = iota
	// KindConfiguration marks a fatal setup error (missing credentials, no
	// enabled models, unknown timeframe).
	KindConfiguration
	// KindTransient marks a retryable I/O failure (rate limit, network,
	// exchange unavailable, adapter timeout).
	KindTransient
	// KindDataCorruption marks malformed market data (non-monotonic candles,
	// empty series, OHLC invariant violation).
	KindDataCorruption
	// KindValidationFailed marks a model response that failed the decision
	// validator's constraints.
	KindValidationFailed
	// KindBadResponse marks a model response that could not be parsed at all.
	KindBadResponse
	// KindInvalidOrder marks a ledger-rejected order (bad size/price/action).
	KindInvalidOrder
	// KindInsufficientFunds marks a BUY rejected for lack of cash.
	KindInsufficientFunds
	// KindCircuitBreakerTripped marks a ledger rejecting all execution after
	// its daily-loss breaker tripped.
	KindCircuitBreakerTripped
	// KindTimeout marks a model adapter call that exceeded its deadline.
	KindTimeout
	// KindRateLimited marks a model adapter call rejected by its own
	// per-minute budget or by the upstream provider.
	KindRateLimited
	// KindTransport marks a non-timeout, non-rate-limit transport failure.
	KindTransport
	// KindFatal marks a failure that must propagate to the outer wrapper
	// (no models initialized, persistence directory unwritable at startup).
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration"
	case KindTransient:
		return "Transient"
	case KindDataCorruption:
		return "DataCorruption"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindBadResponse:
		return "BadResponse"
	case KindInvalidOrder:
		return "InvalidOrder"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindCircuitBreakerTripped:
		return "CircuitBreakerTripped"
	case KindTimeout:
		return "Timeout"
	case KindRateLimited:
		return "RateLimited"
	case KindTransport:
		return "Transport"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with an arena error Kind.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates cause with a Kind, preserving it for errors.Unwrap/Is/As.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Kind reports the error's category.
func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the Kind carried by err, or KindUnknown if err does not
// wrap an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a failure of this kind should be retried by its
// owning component: Timeout, RateLimited and Transient are retryable.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindRateLimited || k == KindTransient
}
