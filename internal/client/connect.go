package client

import (
	"context"
	"net"
	"sync"
	"time"

	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/logger"
	"github.com/nordlyslabs/camviewer/internal/metrics"
	"github.com/nordlyslabs/camviewer/internal/protocol"
	"github.com/nordlyslabs/camviewer/internal/session"
	"github.com/nordlyslabs/camviewer/internal/video"
	"github.com/nordlyslabs/camviewer/internal/watchdog"
	"github.com/nordlyslabs/camviewer/internal/wire"
)

// startProfile resolves the start profile per spec §4.3: tier hint,
// overridden by a persisted non-downgrade override if one is configured.
func (o *Orchestrator) startProfile() session.StreamProfile {
	base := session.StartProfileFor(o.cfg.Tier)
	if o.cfg.Config == nil {
		return base
	}
	w, h, b, f, ok, err := o.cfg.Config.LoadStartProfileOverride()
	if err != nil || !ok {
		return base
	}
	return session.ApplyOverride(base, session.StreamProfile{Width: w, Height: h, Bitrate: b, Fps: f})
}

func (o *Orchestrator) nowMs() int64 {
	if o.cfg.Clock != nil {
		return o.cfg.Clock.NowMs()
	}
	return time.Now().UnixMilli()
}

func (o *Orchestrator) resetPerConnectionState() {
	o.jitter = video.NewJitterBuffer(o.pool)
	o.feeder.Reset()
	o.feeder.SetJitterEnabled(true)
	o.negotiatedW, o.negotiatedH = 0, 0
	o.lastArrivalMs = 0
	o.haveCsd = false
	o.hadVideoBefore = false
	o.enteredConnectedMs = 0
	o.renderCount = 0
	o.bpController.SetFirstFrameRendered(false)
}

// closeConn closes the current socket, if any, guarding against a
// concurrent close from Disconnect/Shutdown (spec §5: "concurrent read
// and close are safe; close wins").
func (o *Orchestrator) closeConn() {
	o.connMu.Lock()
	conn := o.conn
	o.conn = nil
	o.writer = nil
	o.writeCh = nil
	o.connMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// enqueueSend hands one encoded message to the writer task's outbound
// queue (spec §4.10/§5: "all senders enqueue work; no direct socket
// writes from arbitrary threads"). It blocks only long enough for the
// writer task to make room or the connection to end, so a slow peer
// applies backpressure to callers rather than silently dropping control
// messages.
func (o *Orchestrator) enqueueSend(msg *wire.Message) error {
	o.connMu.Lock()
	ch := o.writeCh
	ctx := o.connCtx
	o.connMu.Unlock()
	if ch == nil || ctx == nil {
		return protoerr.NewTransientIOError("send: not connected", nil)
	}
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return protoerr.NewTransientIOError("send: connection closing", nil)
	}
}

type encodable interface{ Encode() *wire.Message }

// Send implements session.Sender, so the Handshake can address the
// orchestrator's single writer without holding a socket reference itself.
func (o *Orchestrator) Send(m protocol.Message) error {
	enc, ok := m.(encodable)
	if !ok {
		return protoerr.NewProtocolMalformedError("send: "+m.Verb()+" has no wire encoding", nil)
	}
	return o.enqueueSend(enc.Encode())
}

// writerTask is the connection's single writer: every other task reaches
// the socket only by enqueuing through Send/enqueueSend, never by writing
// directly, preserving message order and keeping a binary payload atomic
// with its header (spec §5 ordering guarantee).
func (o *Orchestrator) writerTask(ctx context.Context, writeCh chan *wire.Message, wg *sync.WaitGroup, reportErr func(error)) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-writeCh:
			o.connMu.Lock()
			w := o.writer
			o.connMu.Unlock()
			if w == nil {
				return
			}
			if err := w.WriteMessage(msg); err != nil {
				reportErr(err)
				return
			}
		}
	}
}

// sendMessage is the name the public API methods (EnableTalkback,
// DisableTalkback, ...) reach for; it is the same writer path Send uses.
func (o *Orchestrator) sendMessage(m protocol.Message) error { return o.Send(m) }

// runOneConnection dials, performs the handshake's first step, and runs
// the per-connection task group until failure or cancellation. It is the
// `connect` callback the ReconnectScheduler drives; returning an error
// makes the scheduler apply the next backoff step and call it again,
// unless auto-reconnect has since been disabled (AUTH_FAIL or an
// explicit Disconnect), in which case the outer context is also canceled
// so the scheduler stops for good.
func (o *Orchestrator) runOneConnection(ctx context.Context) error {
	if o.attempted {
		metrics.Reconnects.Inc()
	}
	o.attempted = true

	connCtx, cancel := context.WithCancel(ctx)
	o.connMu.Lock()
	o.connCtx = connCtx
	o.connCancel = cancel
	o.connMu.Unlock()
	defer func() {
		o.connMu.Lock()
		if o.connCtx == connCtx {
			o.connCtx, o.connCancel = nil, nil
		}
		o.connMu.Unlock()
	}()

	o.connectStartedMs = o.nowMs()
	o.resetPerConnectionState()

	d := net.Dialer{Timeout: dialTimeout}
	rawConn, err := d.DialContext(ctx, "tcp", o.cfg.addr())
	if err != nil {
		cancel()
		return protoerr.NewTransientIOError("dial", err)
	}
	if tc, ok := rawConn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetReadBuffer(recvBufSize)
		_ = tc.SetWriteBuffer(sendBufSize)
	}

	writeCh := make(chan *wire.Message, writeQueueDepth)
	o.connMu.Lock()
	o.conn = rawConn
	o.writer = wire.NewWriter(rawConn)
	o.writeCh = writeCh
	o.connMu.Unlock()

	o.log = logger.WithSession(logger.Logger(), o.sess.ConnID, o.cfg.addr())
	o.hs = session.NewHandshake(o.sess, o.startProfile())
	o.hsWd = watchdog.NewHandshakeWatchdog()
	o.connWd = watchdog.NewConnectedWatchdog()

	errCh := make(chan error, 1)
	reportErr := func(err error) {
		select {
		case errCh <- err:
		default:
		}
		cancel()
	}

	var connWg sync.WaitGroup
	connWg.Add(5)
	go o.writerTask(connCtx, writeCh, &connWg, reportErr)
	go o.readerTask(connCtx, rawConn, &connWg, reportErr)
	go o.heartbeatTask(connCtx, &connWg, reportErr)
	go o.videoFeederTask(connCtx, &connWg)
	go o.audioPlaybackTask(connCtx, &connWg)

	if err := o.hs.Begin(o); err != nil {
		cancel()
		connWg.Wait()
		o.closeConn()
		return err
	}

	connWg.Wait()
	o.closeConn()

	o.reconnectSch.NoteConnectionDuration(time.Since(time.UnixMilli(o.connectStartedMs)))

	if !o.sess.AutoReconnectEnabled() {
		o.cancel()
	}

	select {
	case err := <-errCh:
		return err
	default:
		return protoerr.NewTransientIOError("connection closed", nil)
	}
}
