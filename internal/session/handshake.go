package session

// Handshake drives the five-step exchange in spec §4.3. It holds no
// socket; each step is invoked by the orchestrator as the corresponding
// inbound message arrives (or on connect), and step methods send replies
// through the Sender the orchestrator provides (the single writer task).
// This mirrors the teacher's handshake package shape: a small stateful
// driver with one method per protocol step, free of direct I/O.

import (
	"github.com/nordlyslabs/camviewer/internal/cryptoauth"
	"github.com/nordlyslabs/camviewer/internal/protocol"
)

// Sender is the minimal outbound capability the handshake needs; the
// orchestrator's single writer task implements it.
type Sender interface {
	Send(protocol.Message) error
}

// Handshake sequences HELLO → AUTH_CHALLENGE/AUTH_RESPONSE →
// AUTH_OK/AUTH_FAIL → (RESUME | CAPS+SET_STREAM) → REQ_KEYFRAME.
type Handshake struct {
	sess        *Session
	profile     StreamProfile
	capsRetried bool
}

// NewHandshake creates a Handshake for sess using the already-resolved
// start profile (device tier + override already applied by the caller via
// StartProfileFor/ApplyOverride).
func NewHandshake(sess *Session, profile StreamProfile) *Handshake {
	return &Handshake{sess: sess, profile: profile}
}

// Begin sends the initial HELLO and marks the session as connecting.
func (h *Handshake) Begin(sender Sender) error {
	h.sess.SetState(Connecting)
	return sender.Send(protocol.Hello{Client: "viewer", Version: 1})
}

// OnAuthChallenge responds with the HMAC-SHA256 challenge response.
func (h *Handshake) OnAuthChallenge(sender Sender, salt string) error {
	hash := cryptoauth.ComputeResponse(h.sess.Password, salt)
	return sender.Send(protocol.AuthResponse{Hash: hash})
}

// OnAuthOk transitions to Authenticated and either resumes a known
// session or starts a fresh CAPS/SET_STREAM negotiation, always followed
// by a keyframe request.
func (h *Handshake) OnAuthOk(sender Sender, nowMs int64) error {
	h.sess.SetState(Authenticated)
	h.sess.Health.TouchAuthOk(nowMs)

	if id := h.sess.ResumableSessionID(); id != "" {
		if err := sender.Send(protocol.Resume{SessionID: id}); err != nil {
			return err
		}
		return sender.Send(protocol.ReqKeyframe{})
	}
	return h.sendCapsAndSetStream(sender)
}

func (h *Handshake) sendCapsAndSetStream(sender Sender) error {
	caps := protocol.Caps{MaxWidth: h.profile.Width, MaxHeight: h.profile.Height, MaxBitrate: h.profile.Bitrate}
	if err := sender.Send(caps); err != nil {
		return err
	}
	set := protocol.SetStream{Width: h.profile.Width, Height: h.profile.Height, Bitrate: h.profile.Bitrate, Fps: h.profile.Fps}
	if err := sender.Send(set); err != nil {
		return err
	}
	return sender.Send(protocol.ReqKeyframe{})
}

// OnAuthFail is a hard stop: auto-reconnect is disabled and the session
// drops to Disconnected.
func (h *Handshake) OnAuthFail() {
	h.sess.DisableAutoReconnect()
	h.sess.SetState(Disconnected)
}

// OnSessionAssigned records a resumable session id for a future RESUME.
func (h *Handshake) OnSessionAssigned(id string) {
	h.sess.SetResumableSessionID(id)
}

// Renegotiate resends CAPS+SET_STREAM+REQ_KEYFRAME against the profile this
// Handshake was built with. Used for the RESUME_FAIL fallback to a fresh
// negotiation and for the connected watchdog's 15s renegotiate action
// (spec §4.7): both cases want the exact same CAPS→SET_STREAM→REQ_KEYFRAME
// sequence the initial AUTH_OK path sends.
func (h *Handshake) Renegotiate(sender Sender) error {
	h.sess.SetResumableSessionID("")
	return h.sendCapsAndSetStream(sender)
}

// OnCapsRequiredError retries the CAPS→SET_STREAM sequence exactly once,
// per spec §4.3 ("Server may respond ERROR|reason=caps_required — retry
// the CAPS→SET_STREAM sequence once."). A second occurrence in the same
// handshake is a no-op; the caller should treat it as a protocol error.
func (h *Handshake) OnCapsRequiredError(sender Sender) (retried bool, err error) {
	if h.capsRetried {
		return false, nil
	}
	h.capsRetried = true
	return true, h.sendCapsAndSetStream(sender)
}
