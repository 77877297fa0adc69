package session

import (
	"testing"

	"github.com/nordlyslabs/camviewer/internal/protocol"
)

type recordingSender struct {
	sent []protocol.Message
}

func (r *recordingSender) Send(m protocol.Message) error {
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingSender) verbs() []string {
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Verb()
	}
	return out
}

func TestHandshakeBeginSendsHello(t *testing.T) {
	s := New("h", 1, "pw")
	h := NewHandshake(s, highTierProfile)
	sender := &recordingSender{}
	if err := h.Begin(sender); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s.State() != Connecting {
		t.Fatalf("expected Connecting state, got %s", s.State())
	}
	if got := sender.verbs(); len(got) != 1 || got[0] != "HELLO" {
		t.Fatalf("unexpected sends: %v", got)
	}
}

func TestHandshakeFreshAuthSendsCapsSetStreamReqKeyframe(t *testing.T) {
	s := New("h", 1, "pw")
	h := NewHandshake(s, highTierProfile)
	sender := &recordingSender{}
	if err := h.OnAuthOk(sender, 1000); err != nil {
		t.Fatalf("OnAuthOk: %v", err)
	}
	if s.State() != Authenticated {
		t.Fatalf("expected Authenticated, got %s", s.State())
	}
	want := []string{"CAPS", "SET_STREAM", "REQ_KEYFRAME"}
	got := sender.verbs()
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestHandshakeResumePathSkipsCaps(t *testing.T) {
	s := New("h", 1, "pw")
	s.SetResumableSessionID("sess-99")
	h := NewHandshake(s, highTierProfile)
	sender := &recordingSender{}
	if err := h.OnAuthOk(sender, 1000); err != nil {
		t.Fatalf("OnAuthOk: %v", err)
	}
	want := []string{"RESUME", "REQ_KEYFRAME"}
	got := sender.verbs()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestHandshakeAuthFailDisablesReconnect(t *testing.T) {
	s := New("h", 1, "pw")
	s.SetState(Connecting)
	h := NewHandshake(s, highTierProfile)
	h.OnAuthFail()
	if s.AutoReconnectEnabled() {
		t.Fatalf("expected auto-reconnect disabled after AUTH_FAIL")
	}
	if s.State() != Disconnected {
		t.Fatalf("expected Disconnected, got %s", s.State())
	}
}

func TestHandshakeCapsRequiredRetriesOnce(t *testing.T) {
	s := New("h", 1, "pw")
	h := NewHandshake(s, highTierProfile)
	sender := &recordingSender{}
	retried, err := h.OnCapsRequiredError(sender)
	if err != nil || !retried {
		t.Fatalf("expected first retry to proceed: retried=%v err=%v", retried, err)
	}
	sender2 := &recordingSender{}
	retried, err = h.OnCapsRequiredError(sender2)
	if err != nil || retried {
		t.Fatalf("expected second occurrence to be a no-op: retried=%v err=%v", retried, err)
	}
	if len(sender2.sent) != 0 {
		t.Fatalf("expected no sends on second caps_required")
	}
}

func TestHandshakeAuthChallengeComputesResponse(t *testing.T) {
	s := New("h", 1, "pw")
	h := NewHandshake(s, highTierProfile)
	sender := &recordingSender{}
	if err := h.OnAuthChallenge(sender, "abc"); err != nil {
		t.Fatalf("OnAuthChallenge: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Verb() != "AUTH_RESPONSE" {
		t.Fatalf("unexpected sends: %v", sender.verbs())
	}
	resp := sender.sent[0].(protocol.AuthResponse)
	if len(resp.Hash) != 64 {
		t.Fatalf("expected 64 hex char hash, got %q", resp.Hash)
	}
}
