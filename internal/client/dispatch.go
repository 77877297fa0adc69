package client

import (
	"time"

	"github.com/nordlyslabs/camviewer/internal/backpressure"
	"github.com/nordlyslabs/camviewer/internal/core"
	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/metrics"
	"github.com/nordlyslabs/camviewer/internal/protocol"
	"github.com/nordlyslabs/camviewer/internal/session"
	"github.com/nordlyslabs/camviewer/internal/video"
	"github.com/nordlyslabs/camviewer/internal/watchdog"
)

// reconfigureGraceMs is the reconfigure-grace extension granted on a
// Reconfiguring STREAM_STATE. That is the only message that extends grace
// here: RECORDING, CSD and STREAM_ACCEPTED leave the grace deadline as it
// is.
const reconfigureGraceMs = 8_000

// assumedFps is the inter-arrival baseline the jitter buffer's EWMA uses
// before STREAM_ACCEPTED has reported a negotiated fps.
const assumedFps = 30.0

func (o *Orchestrator) observers() core.Observers {
	if o.cfg.Observers != nil {
		return o.cfg.Observers
	}
	return core.NoopObservers{}
}

// handleMessage dispatches one decoded inbound message, implementing the
// protocol semantics of spec §4.3-§4.9. It runs on the reader task only;
// every other task reaches into shared state through the same locks the
// reader already respects (jitter buffer, session, health counters).
func (o *Orchestrator) handleMessage(msg protocol.Message, nowMs int64) error {
	switch m := msg.(type) {
	case protocol.AuthChallenge:
		return o.hs.OnAuthChallenge(o, m.Salt)

	case protocol.AuthOk:
		return o.hs.OnAuthOk(o, nowMs)

	case protocol.AuthFail:
		o.hs.OnAuthFail()
		o.observers().OnError("authentication failed")
		return protoerr.NewAuthFailedError("auth_fail", nil)

	case protocol.SessionAssigned:
		o.hs.OnSessionAssigned(m.ID)
		return nil

	case protocol.ResumeOk:
		o.sess.SetState(session.Connected)
		return nil

	case protocol.ResumeFail:
		return o.hs.Renegotiate(o)

	case protocol.StreamAccepted:
		return o.onStreamAccepted(m, nowMs)

	case protocol.BitrateAdjusted:
		return nil

	case protocol.Csd:
		return o.onCsd(m, nowMs)

	case protocol.Frame:
		return o.onFrame(m, nowMs)

	case protocol.AudioFrame:
		return o.onAudioFrame(m, nowMs)

	case protocol.Pong:
		o.sess.Health.TouchPong(nowMs)
		metrics.PongRTTMs.Set(float64(nowMs - m.TsMs))
		_ = watchdog.EstimateClockOffset(m.TsMs, m.SrvMs, nowMs)
		return nil

	case protocol.Recording:
		o.observers().OnRecordingChanged(m.Active)
		return nil

	case protocol.Camera:
		o.observers().OnCameraFacingChanged(m.Facing)
		return nil

	case protocol.EncRot:
		o.observers().OnRotationChanged(m.Deg)
		return nil

	case protocol.Comm:
		o.observers().OnCommunicationEnabledChanged(m.Enabled)
		return nil

	case protocol.StreamState:
		return o.onStreamState(m)

	case protocol.ErrorMsg:
		return o.onError(m)

	default:
		// Outbound-only verbs (HELLO, AUTH_RESPONSE, CAPS, SET_STREAM,
		// RESUME, REQ_KEYFRAME, BACKPRESSURE, PRESSURE_CLEAR,
		// START_RECORDING, STOP_RECORDING, SWITCH_CAMERA, ZOOM) never
		// legitimately arrive inbound; ignore rather than fail the
		// connection over a server echo.
		return nil
	}
}

// applyEpochBumpReset implements spec §4.4's mid-stream epoch bump: a
// STREAM_ACCEPTED or CSD carrying an epoch greater than the current one
// invalidates everything negotiated under the old epoch, so the next
// frame is decoded exactly as if this were a fresh connection.
func (o *Orchestrator) applyEpochBumpReset(newEpoch uint64) {
	o.sess.SetEpoch(newEpoch)
	o.negotiatedW, o.negotiatedH = 0, 0
	o.lastCsd, o.haveCsd = protocol.Csd{}, false
	o.lastArrivalMs = 0
	o.jitter = video.NewJitterBuffer(o.pool)
	o.feeder.Reset()
	o.feeder.SetJitterEnabled(true)
	o.bpController.ResetSkipDowngrade()
	o.bpController.SetFirstFrameRendered(false)
}

func (o *Orchestrator) onStreamAccepted(m protocol.StreamAccepted, nowMs int64) error {
	if m.Epoch > o.sess.Epoch() {
		o.applyEpochBumpReset(m.Epoch)
	}
	o.sess.Health.TouchStreamAccepted(nowMs)

	want := o.startProfile()
	if o.sess.ServerHonorsResolutionRequests() && (m.Width != want.Width || m.Height != want.Height) {
		o.sess.DisableResolutionRequests()
	}

	o.negotiatedW, o.negotiatedH = m.Width, m.Height
	o.sess.SetState(session.Connected)
	o.enteredConnectedMs = nowMs
	o.connWd.Reset()
	o.observers().OnVideoSizeChanged(int(m.Width), int(m.Height))
	o.observers().OnStateChanged(o.sess.State().String())
	return nil
}

func (o *Orchestrator) onCsd(m protocol.Csd, nowMs int64) error {
	current := o.sess.Epoch()
	switch {
	case current > 0 && m.Epoch > 0 && m.Epoch < current:
		// Stale CSD from a superseded epoch; the only direction spec §4.4
		// treats as valid mid-stream is msg > current (a bump).
		return nil
	case m.Epoch > current:
		o.applyEpochBumpReset(m.Epoch)
	}
	if o.haveCsd && protocol.CsdEquals(o.lastCsd, m) {
		return nil
	}
	o.lastCsd, o.haveCsd = m, true
	o.sess.Health.TouchCsd(nowMs)

	w, h := int(o.negotiatedW), int(o.negotiatedH)
	if err := o.decoder.Configure(m.Sps, m.Pps, w, h); err != nil {
		return o.feeder.HandleDecoderFailure(o.decoder)
	}
	o.feeder.Reset()
	o.bpController.ResetSkipDowngrade()
	return o.Send(protocol.ReqKeyframe{})
}

func (o *Orchestrator) onFrame(m protocol.Frame, nowMs int64) error {
	o.sess.Health.TouchFrameRx(nowMs)
	// AUTHENTICATED/CONNECTED -> STREAMING happens on first successfully
	// rendered frame, not on receipt (spec §4.2); see drainDecoderOutput.

	if o.lastArrivalMs > 0 {
		deltaMs := float64(nowMs - o.lastArrivalMs)
		o.jitter.UpdateJitter(deltaMs, 1000.0/assumedFps)
	}
	o.lastArrivalMs = nowMs

	if dropped := o.jitter.Push(video.FromProtocol(m)); dropped != nil {
		metrics.FramesDroppedJitterFull.Inc()
	}
	metrics.FramesReceived.Inc()
	metrics.JitterBufferDepth.Set(float64(o.jitter.Len()))
	metrics.JitterTarget.Set(float64(o.jitter.Target()))

	switch o.bpTracker.Observe(time.Duration(m.AgeMs)*time.Millisecond, time.UnixMilli(nowMs)) {
	case backpressure.SignalBackpressure:
		metrics.BackpressureEvents.WithLabelValues("backpressure").Inc()
		_ = o.Send(protocol.Backpressure{})
	case backpressure.SignalPressureClear:
		metrics.BackpressureEvents.WithLabelValues("clear").Inc()
		_ = o.Send(protocol.PressureClear{})
	}

	select {
	case o.frameSignal <- struct{}{}:
	default:
	}
	return nil
}

func (o *Orchestrator) onAudioFrame(m protocol.AudioFrame, nowMs int64) error {
	if m.Dir != protocol.AudioDown {
		return nil
	}
	o.sess.Health.TouchAudioDownRx(nowMs)

	var err error
	switch m.Format {
	case protocol.AudioFormatAAC:
		err = o.downstream.EnqueueAAC(m)
	default:
		o.downstream.EnqueuePCM(m)
	}
	select {
	case o.audioSignal <- struct{}{}:
	default:
	}
	if err != nil {
		metrics.AudioPacketsDroppedFull.Inc()
	}
	return nil
}

func (o *Orchestrator) onStreamState(m protocol.StreamState) error {
	if protocol.ShouldDropFrameByEpoch(o.sess.Epoch(), m.Epoch) {
		return nil
	}
	var next session.State
	switch m.Code {
	case protocol.StreamStateActive:
		next = session.Streaming
	case protocol.StreamStateReconfiguring:
		next = session.Recovering
		o.grace.Extend(o.nowMs(), reconfigureGraceMs)
	case protocol.StreamStatePaused:
		next = session.Connected
	case protocol.StreamStateStopped:
		next = session.Idle
	default:
		return nil
	}
	if o.sess.SetState(next) {
		o.observers().OnStateChanged(next.String())
	}
	return nil
}

func (o *Orchestrator) onError(m protocol.ErrorMsg) error {
	if m.Reason == "caps_required" {
		retried, err := o.hs.OnCapsRequiredError(o)
		if err != nil {
			return err
		}
		if retried {
			return nil
		}
	}
	o.observers().OnError(m.Reason)
	return protoerr.NewProtocolMalformedError("server_error:"+m.Reason, nil)
}
