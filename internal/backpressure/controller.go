package backpressure

import (
	"math"
	"sync"
	"time"

	"github.com/nordlyslabs/camviewer/internal/session"
)

const (
	lowFpsThreshold   = 20.0
	minLowFpsSamples  = 5
	minLowFpsDuration = 5 * time.Second

	bitrateFloorForStepDown = 900_000
	bitrateStepFactor       = 0.7

	fpsFloorFor480p = 15.0

	skipCountDowngradeThreshold = 60
)

var (
	tier720p = session.StreamProfile{Width: 720, Height: 960, Bitrate: 2_000_000, Fps: 20}
	tier480p = session.StreamProfile{Width: 480, Height: 640, Bitrate: 900_000, Fps: 15}
	tierSkip = session.StreamProfile{Width: 720, Height: 960, Bitrate: 3_000_000, Fps: 30}
)

// Action is what the Controller asks the orchestrator to send.
type Action struct {
	AdjustBitrate  bool
	Bitrate        int64
	RequestProfile bool
	Profile        session.StreamProfile
}

// Controller implements the performance-downgrade state machine of spec
// §4.6: it tracks sustained low render FPS and, once gated conditions are
// met, steps bitrate down before falling back to resolution tiers. It
// also implements the independent keyframe-gating-skip downgrade
// (§4.6's skipCount >= 60 trigger).
type Controller struct {
	mu sync.Mutex

	previewVisible    bool
	firstFrameRendered bool

	lowFpsSamples int
	lowFpsSince   time.Time
	tracking      bool

	perfLevel int // 0 = none, 1 = stepped to 720p, 2 = stepped to 480p

	skipDowngraded bool
}

// NewController returns a Controller with no downgrades applied yet.
func NewController() *Controller { return &Controller{} }

// SetPreviewVisible records whether real pixels are confirmed on the
// display surface; the controller refuses to act until this and
// firstFrameRendered are both true (spec §4.6 gate, prevents warmup
// misreads).
func (c *Controller) SetPreviewVisible(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previewVisible = v
}

// SetFirstFrameRendered records that at least one frame has been shown.
func (c *Controller) SetFirstFrameRendered(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.firstFrameRendered = v
}

func (c *Controller) gated() bool {
	return c.previewVisible && c.firstFrameRendered
}

// ObserveFPS folds one render-FPS sample and returns a downgrade Action
// if sustained low FPS has now crossed the acting threshold. currentBitrate
// and current{Width,Height} describe the negotiated stream in effect;
// honorsResolution reports Session.ServerHonorsResolutionRequests().
func (c *Controller) ObserveFPS(fps float64, now time.Time, currentBitrate, currentWidth, currentHeight int64, honorsResolution bool) Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gated() {
		return Action{}
	}

	if fps >= lowFpsThreshold {
		c.tracking = false
		c.lowFpsSamples = 0
		return Action{}
	}

	if !c.tracking {
		c.tracking = true
		c.lowFpsSince = now
		c.lowFpsSamples = 1
		return Action{}
	}
	c.lowFpsSamples++

	if c.lowFpsSamples < minLowFpsSamples || now.Sub(c.lowFpsSince) < minLowFpsDuration {
		return Action{}
	}

	// Sustained low FPS confirmed; reset the tracking window so the next
	// action requires another full sustained period.
	c.tracking = false
	c.lowFpsSamples = 0

	if currentBitrate > bitrateFloorForStepDown {
		next := int64(math.Round(float64(currentBitrate) * bitrateStepFactor))
		return Action{AdjustBitrate: true, Bitrate: next}
	}
	if !honorsResolution {
		// serverHonorsResolutionRequests == false: only ADJUST_BITRATE is
		// ever issued (spec §4.6 S4); below the bitrate floor there is
		// nothing left to try.
		return Action{}
	}

	if c.perfLevel < 1 && (currentWidth > tier720p.Width || currentHeight > tier720p.Height) {
		c.perfLevel = 1
		return Action{RequestProfile: true, Profile: tier720p}
	}
	if c.perfLevel < 2 && fps < fpsFloorFor480p && currentWidth <= tier720p.Width && currentHeight <= tier720p.Height {
		c.perfLevel = 2
		return Action{RequestProfile: true, Profile: tier480p}
	}
	return Action{}
}

// ObserveSkipCount implements the keyframe-gating-skip downgrade: once
// skipCount reaches 60 while still waiting for a keyframe, request the
// 720x960@30/3Mbps profile once. Resetting is the caller's job on the
// next successful decoder reset (via ResetSkipDowngrade).
func (c *Controller) ObserveSkipCount(skipCount int) Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.skipDowngraded || skipCount < skipCountDowngradeThreshold {
		return Action{}
	}
	c.skipDowngraded = true
	return Action{RequestProfile: true, Profile: tierSkip}
}

// ResetSkipDowngrade clears the one-shot skip-count downgrade latch;
// called on every successful decoder reset (spec §4.6: "reset on next
// successful decoder reset").
func (c *Controller) ResetSkipDowngrade() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipDowngraded = false
}
