package watchdog

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	backoffBase = 1 * time.Second
	backoffCap  = 10 * time.Second

	// minSurvivalForReset is how long a connection must have lasted
	// before a subsequent failure resets the backoff counter back to
	// the first step (spec §4.2).
	minSurvivalForReset = 2 * time.Second
)

// ReconnectScheduler sequences reconnect attempts with the exponential
// backoff spec §4.2 requires (1s, 2s, 4s, 8s, capped at 10s), resetting
// the step counter whenever the previous connection survived at least
// 2s. It wraps retry-go/v4's retry.Do with a DelayType callback that
// reproduces this exact sequence instead of retry-go's built-in
// exponential/jitter strategies, since the spec pins specific values.
type ReconnectScheduler struct {
	step int
}

// NewReconnectScheduler returns a scheduler starting at the first
// backoff step.
func NewReconnectScheduler() *ReconnectScheduler { return &ReconnectScheduler{} }

// NoteConnectionDuration resets the backoff step counter if the
// connection that just ended lasted >= 2s; otherwise the next attempt
// continues escalating from the current step.
func (s *ReconnectScheduler) NoteConnectionDuration(lasted time.Duration) {
	if lasted >= minSurvivalForReset {
		s.step = 0
	}
}

// nextDelay returns the backoff for the current step and advances it,
// capping at backoffCap (1,2,4,8,10,10,...).
func (s *ReconnectScheduler) nextDelay() time.Duration {
	d := backoffBase << uint(s.step)
	if d > backoffCap {
		d = backoffCap
	}
	s.step++
	return d
}

// Run attempts connect repeatedly until it succeeds or ctx is canceled,
// sleeping the spec's backoff sequence between attempts. It does not
// itself decide whether to keep trying on auth failure — callers must
// not invoke Run again after session.DisableAutoReconnect().
func (s *ReconnectScheduler) Run(ctx context.Context, connect func(ctx context.Context) error) error {
	return retry.Do(
		func() error { return connect(ctx) },
		retry.Context(ctx),
		retry.Attempts(0), // retry-go treats 0 as unlimited attempts
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			return s.nextDelay()
		}),
	)
}
