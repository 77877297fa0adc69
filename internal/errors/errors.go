// Package errors defines the typed error hierarchy used across the viewer
// core, plus the mapping from internal error kinds to the standardized,
// user-visible strings required by the error handling design (no low-level
// exception text is ever surfaced to a caller-facing observer).
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"
)

// protocolMarker is implemented by every protocol-layer error type so we can
// classify them with a single predicate regardless of the concrete type.
type protocolMarker interface {
	error
	isProtocol()
}

// ProtocolMalformedError indicates an unparseable header or an impossible
// field (size, length) on the wire. Callers log and reset the session.
type ProtocolMalformedError struct {
	Op  string
	Err error
}

func (e *ProtocolMalformedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("protocol malformed: %s", e.Op)
	}
	return fmt.Sprintf("protocol malformed: %s: %v", e.Op, e.Err)
}
func (e *ProtocolMalformedError) Unwrap() error { return e.Err }
func (e *ProtocolMalformedError) isProtocol()   {}

// UnknownVerbError indicates a verb the parser does not recognize. Unknown
// verbs are ordinarily logged and skipped; binary-bearing unknown verbs are
// fatal because their payload length cannot be determined.
type UnknownVerbError struct {
	Verb   string
	Fatal  bool
	Reason string
}

func (e *UnknownVerbError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("unknown verb %q treated as fatal: %s", e.Verb, e.Reason)
	}
	return fmt.Sprintf("unknown verb %q skipped", e.Verb)
}
func (e *UnknownVerbError) isProtocol() {}

// AuthFailedError is a hard stop: auto-reconnect is disabled and a
// password-specific message is surfaced.
type AuthFailedError struct {
	Op  string
	Err error
}

func (e *AuthFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth failed: %s", e.Op)
	}
	return fmt.Sprintf("auth failed: %s: %v", e.Op, e.Err)
}
func (e *AuthFailedError) Unwrap() error { return e.Err }
func (e *AuthFailedError) isProtocol()   {}

// TransientIOError wraps a socket read/write error or connect timeout. The
// caller should close the socket, post a user-facing message, and schedule a
// reconnect with backoff.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transient io error: %s", e.Op)
	}
	return fmt.Sprintf("transient io error: %s: %v", e.Op, e.Err)
}
func (e *TransientIOError) Unwrap() error { return e.Err }

// DecoderFailureError indicates the decode-feed pipeline hit an illegal
// decoder state or equivalent condition. The feeder attempts a flush first,
// then recreates the decoder; it never closes the session over this.
type DecoderFailureError struct {
	Op  string
	Err error
}

func (e *DecoderFailureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decoder failure: %s", e.Op)
	}
	return fmt.Sprintf("decoder failure: %s: %v", e.Op, e.Err)
}
func (e *DecoderFailureError) Unwrap() error { return e.Err }

// ResourceExhaustedError indicates a pool cap was hit; the caller allocates
// outside the pool for the single request and logs.
type ResourceExhaustedError struct {
	Op  string
	Err error
}

func (e *ResourceExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource exhausted: %s", e.Op)
	}
	return fmt.Sprintf("resource exhausted: %s: %v", e.Op, e.Err)
}
func (e *ResourceExhaustedError) Unwrap() error { return e.Err }

// StalledStreamError signals that no frames arrived within a watchdog
// threshold; escalation is handled by the watchdog package, not the error.
type StalledStreamError struct {
	Op       string
	Duration time.Duration
}

func (e *StalledStreamError) Error() string {
	return fmt.Sprintf("stalled stream: %s (no rx for %s)", e.Op, e.Duration)
}

// TimeoutError indicates an operation exceeded a deadline or idle timeout.
type TimeoutError struct {
	Op       string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (after %s)", e.Op, e.Duration)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout returns true if err is (or wraps) a TimeoutError, a context
// deadline exceeded, or any error type that exposes Timeout() bool and
// returns true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if stdErrors.As(err, &te) {
		return true
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var toErr interface{ Timeout() bool }
	if stdErrors.As(err, &toErr) && toErr.Timeout() {
		return true
	}
	return false
}

// IsProtocolError returns true if the error chain contains any
// protocol-layer error (ProtocolMalformedError, UnknownVerbError,
// AuthFailedError).
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var pm protocolMarker
	return stdErrors.As(err, &pm)
}

// Constructors (encourage contextual wrapping with %w when used by callers).
func NewProtocolMalformedError(op string, cause error) error {
	return &ProtocolMalformedError{Op: op, Err: cause}
}
func NewUnknownVerbError(verb string, fatal bool, reason string) error {
	return &UnknownVerbError{Verb: verb, Fatal: fatal, Reason: reason}
}
func NewAuthFailedError(op string, cause error) error { return &AuthFailedError{Op: op, Err: cause} }
func NewTransientIOError(op string, cause error) error {
	return &TransientIOError{Op: op, Err: cause}
}
func NewDecoderFailureError(op string, cause error) error {
	return &DecoderFailureError{Op: op, Err: cause}
}
func NewResourceExhaustedError(op string, cause error) error {
	return &ResourceExhaustedError{Op: op, Err: cause}
}
func NewStalledStreamError(op string, d time.Duration) error {
	return &StalledStreamError{Op: op, Duration: d}
}
func NewTimeoutError(op string, d time.Duration, cause error) error {
	return &TimeoutError{Op: op, Duration: d, Err: cause}
}

// Usage pattern example:
//  if _, err := io.ReadFull(r, buf); err != nil {
//      return NewTransientIOError("read header", fmt.Errorf("io: %w", err))
//  }
// Keep layering context with fmt.Errorf("...: %w", err).
