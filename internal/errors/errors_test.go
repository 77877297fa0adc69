package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

// fakeTimeoutErr simulates a net.Error with Timeout semantics (we don't need full net.Error here).
type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "fake timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

func TestIsProtocolErrorClassification(t *testing.T) {
	root := stdErrors.New("root")
	wrapped := fmt.Errorf("adding context: %w", root)
	af := NewAuthFailedError("session.auth", wrapped)
	if !IsProtocolError(af) {
		t.Fatalf("expected IsProtocolError=true for auth failed error")
	}
	if !stdErrors.Is(af, root) {
		t.Fatalf("expected errors.Is to find root cause")
	}
	var ae *AuthFailedError
	if !stdErrors.As(af, &ae) {
		t.Fatalf("expected errors.As to *AuthFailedError")
	}
	if ae.Op != "session.auth" {
		t.Fatalf("unexpected op: %s", ae.Op)
	}

	pm := NewProtocolMalformedError("wire.parse_header", nil)
	if !IsProtocolError(pm) {
		t.Fatalf("expected malformed error classified as protocol")
	}
	uv := NewUnknownVerbError("FOOBAR", true, "binary payload length undefined")
	if !IsProtocolError(uv) {
		t.Fatalf("expected unknown verb error classified as protocol")
	}
}

func TestIsTimeout(t *testing.T) {
	root := fakeTimeoutErr{}
	to := NewTimeoutError("handshake.read", 5*time.Second, root)
	if !IsTimeout(to) {
		t.Fatalf("expected TimeoutError recognized")
	}
	if IsProtocolError(to) {
		t.Fatalf("timeout should NOT be protocol error")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatalf("expected context deadline recognized")
	}
	var ne error = root
	if !IsTimeout(ne) {
		t.Fatalf("expected net-like timeout recognized")
	}
}

func TestUnwrapChains(t *testing.T) {
	base := stdErrors.New("io EOF")
	l1 := fmt.Errorf("read: %w", base)
	l2 := NewAuthFailedError("handshake.read", l1)
	if !stdErrors.Is(l2, base) {
		t.Fatalf("errors.Is should reach base cause")
	}
	var pm protocolMarker
	if !stdErrors.As(l2, &pm) {
		t.Fatalf("expected to match protocolMarker via As")
	}
}

func TestNilSafety(t *testing.T) {
	if IsProtocolError(nil) {
		t.Fatalf("nil should not be protocol error")
	}
	if IsTimeout(nil) {
		t.Fatalf("nil should not be timeout")
	}
}

func TestConstructorWithoutCause(t *testing.T) {
	pm := NewProtocolMalformedError("wire.parse_header", nil)
	if pm == nil {
		t.Fatalf("constructor returned nil")
	}
	if errStr := pm.Error(); errStr == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestNilErrBranchesAndStrings(t *testing.T) {
	pm := NewProtocolMalformedError("op1", nil)
	if pm == nil {
		t.Fatalf("nil protocol error")
	}
	if !IsProtocolError(pm) {
		t.Fatalf("expected protocol classification")
	}
	if s := pm.Error(); s == "" || s == "protocol malformed:" {
		t.Fatalf("unexpected protocol error string: %q", s)
	}

	af := NewAuthFailedError("op2", nil)
	if s := af.Error(); s == "" || s == "auth failed:" {
		t.Fatalf("bad auth failed error string: %q", s)
	}

	tio := NewTransientIOError("op3", nil)
	if s := tio.Error(); s == "" {
		t.Fatalf("empty transient io error string")
	}

	df := NewDecoderFailureError("op4", nil)
	if s := df.Error(); s == "" {
		t.Fatalf("empty decoder failure error string")
	}

	re := NewResourceExhaustedError("op5", nil)
	if s := re.Error(); s == "" {
		t.Fatalf("empty resource exhausted error string")
	}

	ss := NewStalledStreamError("op6", 2*time.Second)
	if s := ss.Error(); s == "" {
		t.Fatalf("empty stalled stream error string")
	}

	to := NewTimeoutError("op7", 100*time.Millisecond, nil)
	if !IsTimeout(to) {
		t.Fatalf("timeout classification failed")
	}
	if IsProtocolError(to) {
		t.Fatalf("timeout misclassified as protocol")
	}
	if s := to.Error(); s == "" {
		t.Fatalf("empty timeout error string")
	}
}

func TestNegativePredicates(t *testing.T) {
	if IsProtocolError(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be protocol")
	}
	if IsTimeout(stdErrors.New("plain")) {
		t.Fatalf("plain error shouldn't be timeout")
	}
}

func TestUnknownVerbNonFatal(t *testing.T) {
	uv := NewUnknownVerbError("CUSTOM_EVT", false, "")
	if s := uv.Error(); s == "" {
		t.Fatalf("empty unknown verb error string")
	}
}
