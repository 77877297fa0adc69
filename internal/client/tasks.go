package client

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nordlyslabs/camviewer/internal/audio"
	"github.com/nordlyslabs/camviewer/internal/backpressure"
	"github.com/nordlyslabs/camviewer/internal/core"
	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/metrics"
	"github.com/nordlyslabs/camviewer/internal/protocol"
	"github.com/nordlyslabs/camviewer/internal/session"
	"github.com/nordlyslabs/camviewer/internal/video"
	"github.com/nordlyslabs/camviewer/internal/watchdog"
	"github.com/nordlyslabs/camviewer/internal/wire"
)

const (
	fpsSampleInterval  = 1 * time.Second
	decoderPollTimeout = 20 * time.Millisecond
	audioIdleSleep     = 5 * time.Millisecond
)

// SetFirstFrameRendered feeds the performance controller's warmup gate
// (spec §4.6): an embedding UI calls this once its render surface has
// actually shown a frame.
func (o *Orchestrator) SetFirstFrameRendered(rendered bool) {
	o.bpController.SetFirstFrameRendered(rendered)
}

// readerTask owns the socket's read side for the lifetime of one
// connection: decode, dispatch, repeat. Any error ends the task group by
// reporting through reportErr, which cancels connCtx.
func (o *Orchestrator) readerTask(ctx context.Context, conn net.Conn, wg *sync.WaitGroup, reportErr func(error)) {
	defer wg.Done()
	r := wire.NewReader(conn, o.pool)
	for {
		if ctx.Err() != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		raw, err := r.ReadMessage()
		if err != nil {
			if err == io.EOF {
				reportErr(protoerr.NewTransientIOError("reader: connection closed by peer", nil))
			} else {
				reportErr(err)
			}
			return
		}
		msg, err := protocol.Decode(raw)
		if err != nil {
			var uv *protoerr.UnknownVerbError
			if errors.As(err, &uv) && !uv.Fatal {
				o.log.Warn("skipping unrecognized message", "verb", uv.Verb)
				continue
			}
			reportErr(err)
			return
		}
		if err := o.handleMessage(msg, o.nowMs()); err != nil {
			reportErr(err)
			return
		}
	}
}

// heartbeatTask drives the 2s PING cadence and every watchdog evaluation
// (handshake, connected, stream-health), applying their actions: resend
// CAPS, renegotiate, request keyframes, or end the connection so the
// scheduler reconnects.
func (o *Orchestrator) heartbeatTask(ctx context.Context, wg *sync.WaitGroup, reportErr func(error)) {
	defer wg.Done()
	ticker := time.NewTicker(watchdog.HeartbeatInterval)
	defer ticker.Stop()
	fpsTicker := time.NewTicker(fpsSampleInterval)
	defer fpsTicker.Stop()

	lastRenderCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := o.nowMs()
			_ = o.Send(protocol.Ping{TsMs: now})
			metrics.ConnectionState.Set(float64(o.sess.State()))

			if o.evaluateHandshakeWatchdog(now, reportErr) {
				return
			}
			if o.sess.State() == session.Connected {
				if o.evaluateConnectedWatchdog(now, reportErr) {
					return
				}
			}
			if (o.sess.State() == session.Streaming || o.sess.State() == session.Recovering) &&
				watchdog.StreamHealthStalled(now, o.sess.Health.LastFrameRx()) {
				o.sess.SetState(session.Connected)
				o.enteredConnectedMs = now
				o.connWd.Reset()
				_ = o.Send(protocol.ReqKeyframe{})
			}

		case <-fpsTicker.C:
			now := time.Now()
			rendered := o.renderCount
			fps := float64(rendered - lastRenderCount)
			lastRenderCount = rendered
			action := o.bpController.ObserveFPS(fps, now, o.startProfile().Bitrate, o.negotiatedW, o.negotiatedH, o.sess.ServerHonorsResolutionRequests())
			o.applyPerfAction(action)
		}
	}
}

func (o *Orchestrator) evaluateHandshakeWatchdog(now int64, reportErr func(error)) (ended bool) {
	action := o.hsWd.Evaluate(now, o.sess.State(), o.connectStartedMs, o.sess.Health, o.grace.InGrace(now))
	switch action {
	case watchdog.HandshakeReconnect:
		metrics.WatchdogEscalations.WithLabelValues("handshake", "reconnect").Inc()
		reportErr(protoerr.NewStalledStreamError("handshake watchdog", 0))
		return true
	case watchdog.HandshakeResendCapsAndKeyframe:
		metrics.WatchdogEscalations.WithLabelValues("handshake", "resend_caps").Inc()
		_ = o.hs.Renegotiate(o)
	case watchdog.HandshakeDowngradeToConnected:
		metrics.WatchdogEscalations.WithLabelValues("handshake", "downgrade").Inc()
		o.sess.SetState(session.Connected)
		o.enteredConnectedMs = now
		o.connWd.Reset()
	}
	return false
}

func (o *Orchestrator) evaluateConnectedWatchdog(now int64, reportErr func(error)) (ended bool) {
	audioActive := watchdog.AudioActiveRecently(now, o.sess.Health.LastAudioDownRx())
	inGrace := o.grace.InGrace(now)
	res := o.connWd.Evaluate(now, o.enteredConnectedMs, o.sess.Health.LastPong(), o.hadVideoBefore, audioActive, inGrace)

	if res.KeyframeProbeDue {
		_ = o.Send(protocol.ReqKeyframe{})
	}
	if res.RenegotiateDue {
		o.sess.SetState(session.Recovering)
		_ = o.hs.Renegotiate(o)
	}
	switch res.Action {
	case watchdog.ConnectedExtendGraceAndProbe:
		o.grace.Extend(now, watchdog.QuiescenceAllowedMs)
		_ = o.Send(protocol.ReqKeyframe{})
	case watchdog.ConnectedReconnect:
		metrics.WatchdogEscalations.WithLabelValues("connected", "reconnect").Inc()
		reportErr(protoerr.NewStalledStreamError("connected watchdog", 0))
		return true
	}
	return false
}

func (o *Orchestrator) applyPerfAction(action backpressure.Action) {
	if action.AdjustBitrate {
		metrics.PerfDowngrades.WithLabelValues("bitrate").Inc()
		_ = o.Send(protocol.AdjustBitrate{Bitrate: action.Bitrate})
	}
	if action.RequestProfile {
		metrics.PerfDowngrades.WithLabelValues("profile").Inc()
		_ = o.Send(protocol.SetStream{
			Width: action.Profile.Width, Height: action.Profile.Height,
			Bitrate: action.Profile.Bitrate, Fps: action.Profile.Fps,
		})
	}
}

// videoFeederTask combines the feeder's scheduling tick with the decoder
// output pump: it drains the jitter buffer into the decoder, then drains
// every ready decoder output buffer, applying A/V sync delay and the
// render gate before releasing each one (spec §4.5).
func (o *Orchestrator) videoFeederTask(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.frameSignal:
		case <-ticker.C:
		}

		if err := o.feeder.Tick(o.jitter, o.sess.Epoch(), o.decoder); err != nil {
			if err := o.feeder.HandleDecoderFailure(o.decoder); err == nil {
				_ = o.Send(protocol.ReqKeyframe{})
			}
		}
		if action := o.bpController.ObserveSkipCount(o.feeder.SkipCount()); action.RequestProfile {
			metrics.PerfDowngrades.WithLabelValues("skip_count").Inc()
			_ = o.Send(protocol.SetStream{
				Width: action.Profile.Width, Height: action.Profile.Height,
				Bitrate: action.Profile.Bitrate, Fps: action.Profile.Fps,
			})
		}

		o.drainDecoderOutput()
	}
}

func (o *Orchestrator) drainDecoderOutput() {
	for {
		res, err := o.decoder.PollOutput(decoderPollTimeout)
		if err != nil {
			_ = o.feeder.HandleDecoderFailure(o.decoder)
			return
		}
		switch res.Kind {
		case core.OutputNone:
			return
		case core.OutputFormatChanged:
			w, h := res.Format.CodedWidth, res.Format.CodedHeight
			o.negotiatedW, o.negotiatedH = int64(w), int64(h)
			o.observers().OnVideoSizeChanged(w, h)
		case core.OutputBuffer:
			render := o.feeder.ShouldRenderOutput()
			if render && watchdog.StreamHealthStalled(o.nowMs(), o.sess.Health.LastFrameRx()) {
				// Input has stalled but the decoder is still draining
				// buffered output; release without rendering so the last
				// good frame doesn't freeze on screen (spec §4.5).
				render = false
			}
			if render {
				if d := video.SyncDelay(res.Buffer.PtsUs, o.downstream.LatestPlayedAudioTsUs()); d > 0 {
					time.Sleep(d)
				}
			}
			if err := o.decoder.Release(res.Buffer.Index, render); err == nil && render {
				o.renderCount++
				o.hadVideoBefore = true
				o.sess.Health.TouchFrameRender(o.nowMs())
				if o.sess.State() != session.Streaming {
					o.sess.SetState(session.Streaming)
					o.observers().OnStateChanged(session.Streaming.String())
				}
				if o.renderCount == 1 {
					o.observers().OnFirstFrameRendered()
					o.SetFirstFrameRendered(true)
				}
			}
		}
	}
}

// audioPlaybackTask drains the downstream playback queue on its own
// dedicated task (spec §5: audio device writes block, never sharing a
// goroutine with decode or network I/O).
func (o *Orchestrator) audioPlaybackTask(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.audioSignal:
		case <-time.After(audioIdleSleep):
		}
		for {
			delivered, err := o.downstream.DeliverNext(time.Now())
			if err != nil {
				o.log.Warn("audio playback write failed", "err", err)
			}
			if !delivered {
				break
			}
		}
	}
}

// audioCaptureTask reads local microphone frames and forwards them as
// AUDIO_FRAME|dir=up uplink packets while talkback is enabled (spec §4.9).
func (o *Orchestrator) audioCaptureTask(ctx context.Context) {
	defer o.wg.Done()
	gate := audio.NewNoiseGate()
	gate.StartCalibration(time.Now())

	for {
		if ctx.Err() != nil {
			return
		}
		pcm, err := o.cfg.Capture.ReadFrame()
		if err != nil {
			o.log.Warn("talkback capture read failed", "err", err)
			return
		}
		now := time.Now()
		rms := audio.RMS(pcm)
		if !gate.Process(rms, now) {
			continue
		}
		frame := audio.BuildUplinkFrame(pcm, o.nowMs()*1000)
		if err := o.Send(frame); err != nil {
			return
		}
	}
}
