package session

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Session holds the per-connection state the orchestrator and watchdogs
// read and mutate concurrently. Per spec §5, state variables are
// volatile/atomic; there is no contention beyond single-field updates, so
// no broader lock is taken here — mirrors the teacher's conn.Session,
// which keeps session fields lock-free because they're owned by a single
// command-handling goroutine; here multiple goroutines (reader, watchdog,
// feeder) touch these fields so every field is a stored atomic.
type Session struct {
	// ConnID is a process-local identifier assigned once in New and kept
	// across reconnects of this Session; used in log correlation.
	ConnID string

	Host     string
	Port     int
	Password string

	state atomic.Uint32 // State
	epoch atomic.Uint64

	sessionID atomic.Pointer[string] // resumable server-assigned session id

	serverHonorsResolutionRequests atomic.Bool
	autoReconnectEnabled            atomic.Bool

	Health *HealthCounters
}

// New creates a Session in the Disconnected state with auto-reconnect
// enabled and a fresh connection identifier.
func New(host string, port int, password string) *Session {
	s := &Session{
		ConnID:   uuid.NewString(),
		Host:     host,
		Port:     port,
		Password: password,
		Health:   NewHealthCounters(),
	}
	s.state.Store(uint32(Disconnected))
	s.serverHonorsResolutionRequests.Store(true)
	s.autoReconnectEnabled.Store(true)
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// SetState applies the state-downgrade rule (spec §4.2): AUTHENTICATED
// MUST NOT overwrite STREAMING or RECOVERING. Every other transition in
// the state table is an explicit, context-checked call site (e.g. the
// stream-health check only calls SetState(Connected) after observing a 2 s
// frame stall) so it is applied unconditionally here. Returns whether the
// transition was applied.
func (s *Session) SetState(next State) bool {
	for {
		cur := State(s.state.Load())
		if next == Authenticated && rank(cur) > rank(Authenticated) {
			return false
		}
		if s.state.CompareAndSwap(uint32(cur), uint32(next)) {
			return true
		}
	}
}

// Epoch returns the current stream epoch.
func (s *Session) Epoch() uint64 { return s.epoch.Load() }

// SetEpoch sets the current stream epoch. Per spec the epoch is
// monotonically non-decreasing; callers are expected to have already
// checked msgEpoch > current before calling (see protocol.ShouldDropFrameByEpoch
// and the epoch-bump handling in the client package), so this is an
// unconditional store rather than a CAS-with-retry-on-decrease.
func (s *Session) SetEpoch(epoch uint64) { s.epoch.Store(epoch) }

// ResumableSessionID returns the last SESSION id the server assigned, or
// "" if none.
func (s *Session) ResumableSessionID() string {
	p := s.sessionID.Load()
	if p == nil {
		return ""
	}
	return *p
}

// SetResumableSessionID records a SESSION id for later RESUME.
func (s *Session) SetResumableSessionID(id string) {
	s.sessionID.Store(&id)
}

// ServerHonorsResolutionRequests reports whether the server has so far
// honored the viewer's requested resolution in SET_STREAM.
func (s *Session) ServerHonorsResolutionRequests() bool {
	return s.serverHonorsResolutionRequests.Load()
}

// DisableResolutionRequests is called once a STREAM_ACCEPTED is observed
// to differ from the requested SET_STREAM dimensions (spec §4.6); this is
// one-way for the life of the session.
func (s *Session) DisableResolutionRequests() {
	s.serverHonorsResolutionRequests.Store(false)
}

// AutoReconnectEnabled reports whether the orchestrator should schedule a
// reconnect after the next I/O failure.
func (s *Session) AutoReconnectEnabled() bool { return s.autoReconnectEnabled.Load() }

// DisableAutoReconnect is called on AUTH_FAIL or explicit user disconnect
// (spec §4.2/§4.10); it is one-way until a fresh Session is created for a
// new connect() call.
func (s *Session) DisableAutoReconnect() { s.autoReconnectEnabled.Store(false) }
