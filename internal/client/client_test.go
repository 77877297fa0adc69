package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nordlyslabs/camviewer/internal/core"
	"github.com/nordlyslabs/camviewer/internal/protocol"
	"github.com/nordlyslabs/camviewer/internal/session"
	"github.com/nordlyslabs/camviewer/internal/wire"
)

func TestPortString(t *testing.T) {
	if got := portString(9443); got != "9443" {
		t.Fatalf("portString(9443) = %q, want %q", got, "9443")
	}
}

func TestConfigAddr(t *testing.T) {
	c := Config{Host: "192.168.1.5", Port: 9443}
	if got := c.addr(); got != "192.168.1.5:9443" {
		t.Fatalf("addr() = %q, want %q", got, "192.168.1.5:9443")
	}
}

type fakeConfigStore struct {
	w, h, b, f int64
	ok         bool
	err        error
}

func (f fakeConfigStore) LoadStartProfileOverride() (int64, int64, int64, int64, bool, error) {
	return f.w, f.h, f.b, f.f, f.ok, f.err
}

func (fakeConfigStore) SaveStartProfileOverride(w, h, b, f int64) error { return nil }

func TestStartProfileNoStore(t *testing.T) {
	o := New(Config{Tier: session.TierHigh})
	got := o.startProfile()
	want := session.StartProfileFor(session.TierHigh)
	if got != want {
		t.Fatalf("startProfile() = %+v, want %+v", got, want)
	}
}

func TestStartProfileAppliesStoredOverride(t *testing.T) {
	o := New(Config{Tier: session.TierHigh, Config: fakeConfigStore{w: 1920, h: 1440, b: 6_000_000, f: 30, ok: true}})
	got := o.startProfile()
	if got.Width != 1920 || got.Height != 1440 {
		t.Fatalf("startProfile() = %+v, want override applied", got)
	}
}

func TestStartProfileIgnoresDowngradeOverride(t *testing.T) {
	o := New(Config{Tier: session.TierHigh, Config: fakeConfigStore{w: 320, h: 240, ok: true}})
	got := o.startProfile()
	want := session.StartProfileFor(session.TierHigh)
	if got != want {
		t.Fatalf("startProfile() = %+v, want base profile %+v on downgrade override", got, want)
	}
}

func TestStartProfileIgnoresStoreError(t *testing.T) {
	o := New(Config{Tier: session.TierLow, Config: fakeConfigStore{ok: true, err: errors.New("disk error")}})
	got := o.startProfile()
	want := session.StartProfileFor(session.TierLow)
	if got != want {
		t.Fatalf("startProfile() = %+v, want base profile %+v on store error", got, want)
	}
}

func TestNowMsFallsBackToWallClockWithoutConfiguredClock(t *testing.T) {
	o := New(Config{})
	if o.nowMs() <= 0 {
		t.Fatal("expected a positive wall-clock timestamp")
	}
}

type fixedClock int64

func (c fixedClock) NowMs() int64  { return int64(c) }
func (c fixedClock) WallMs() int64 { return int64(c) }

func TestNowMsUsesConfiguredClock(t *testing.T) {
	o := New(Config{Clock: fixedClock(42_000)})
	if got := o.nowMs(); got != 42_000 {
		t.Fatalf("nowMs() = %d, want 42000", got)
	}
}

func TestResetPerConnectionStateClearsNegotiatedSizeAndRenderCount(t *testing.T) {
	o := New(Config{Decoder: core.NewFakeDecoderSink()})
	o.negotiatedW, o.negotiatedH = 1080, 1440
	o.renderCount = 7
	o.hadVideoBefore = true
	o.haveCsd = true
	o.enteredConnectedMs = 123

	o.resetPerConnectionState()

	if o.negotiatedW != 0 || o.negotiatedH != 0 {
		t.Fatalf("expected negotiated size cleared, got %d x %d", o.negotiatedW, o.negotiatedH)
	}
	if o.renderCount != 0 {
		t.Fatalf("expected renderCount reset, got %d", o.renderCount)
	}
	if o.hadVideoBefore || o.haveCsd || o.enteredConnectedMs != 0 {
		t.Fatal("expected per-connection flags cleared")
	}
	if o.jitter == nil {
		t.Fatal("expected a fresh jitter buffer")
	}
}

func TestDecoderAdapterFeedBeforeConfigureFails(t *testing.T) {
	d := newDecoderAdapter(core.NewFakeDecoderSink())
	if err := d.Feed([]byte{1, 2, 3}, 0, true); err == nil {
		t.Fatal("expected error feeding an unconfigured decoder")
	}
}

func TestDecoderAdapterConfigureThenFeedAndPoll(t *testing.T) {
	sink := core.NewFakeDecoderSink()
	d := newDecoderAdapter(sink)
	if err := d.Configure([]byte{0xAA}, []byte{0xBB}, 1080, 1440); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Feed([]byte{1, 2, 3, 4}, 1000, true); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	res, err := d.PollOutput(0)
	if err != nil {
		t.Fatalf("PollOutput: %v", err)
	}
	if res.Kind != core.OutputBuffer {
		t.Fatalf("expected OutputBuffer, got %v", res.Kind)
	}
	if err := d.Release(res.Buffer.Index, true); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestDecoderAdapterPollOutputAfterReconfigureStaleHandle(t *testing.T) {
	sink := core.NewFakeDecoderSink()
	d := newDecoderAdapter(sink)
	if err := d.Configure(nil, nil, 640, 480); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	// A second Configure invalidates the first handle's generation and
	// replaces the adapter's handle; PollOutput goes through the new
	// handle, which has nothing pending, rather than the stale one.
	if err := d.Configure(nil, nil, 1080, 1440); err != nil {
		t.Fatalf("second Configure: %v", err)
	}
	res, err := d.PollOutput(0)
	if err != nil {
		t.Fatalf("PollOutput: %v", err)
	}
	if res.Kind != core.OutputNone {
		t.Fatalf("expected OutputNone after reconfigure left no pending output, got %v", res.Kind)
	}
}

type fakeAacDecoder struct {
	configured bool
	fed        [][]byte
	chunks     []core.PcmChunk
}

func (f *fakeAacDecoder) ConfigureAdts(rate, channels int, asc []byte) error {
	f.configured = true
	return nil
}

func (f *fakeAacDecoder) Feed(adtsFrame []byte, tsUs int64) error {
	f.fed = append(f.fed, adtsFrame)
	return nil
}

func (f *fakeAacDecoder) DrainPcm() ([]core.PcmChunk, error) {
	out := f.chunks
	f.chunks = nil
	return out, nil
}

func TestEnqueueSendFailsWithoutALiveConnection(t *testing.T) {
	o := New(Config{})
	if err := o.Send(protocol.Ping{TsMs: 1}); err == nil {
		t.Fatal("expected an error sending before any connection is established")
	}
}

func TestWriterTaskPreservesOrderAndEnqueueSendUnblocksOnWrite(t *testing.T) {
	o := New(Config{})
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeCh := make(chan *wire.Message, writeQueueDepth)
	o.connMu.Lock()
	o.writer = wire.NewWriter(client)
	o.writeCh = writeCh
	o.connCtx = ctx
	o.connMu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go o.writerTask(ctx, writeCh, &wg, func(error) {})

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 3; i++ {
			if err := o.Send(protocol.Ping{TsMs: int64(i)}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Send calls to drain through the writer task")
	}

	r := wire.NewReader(server, nil)
	for i := 0; i < 3; i++ {
		msg, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage %d: %v", i, err)
		}
		if msg.Header.Verb != "PING" {
			t.Fatalf("message %d verb = %q, want PING", i, msg.Header.Verb)
		}
	}

	cancel()
	wg.Wait()
}

func TestAacAdapterFeedQueuesDrainedChunksInOrder(t *testing.T) {
	dec := &fakeAacDecoder{chunks: []core.PcmChunk{{Pcm: []byte{1, 2}}, {Pcm: []byte{3, 4}}}}
	a := newAacAdapter(dec)
	if err := a.Configure(44_100, 1, []byte{0x12, 0x08}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if !dec.configured {
		t.Fatal("expected underlying decoder to be configured")
	}
	if err := a.Feed([]byte{0xFF, 0xF1}); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	first, ok := a.Drain()
	if !ok || len(first) != 2 || first[0] != 1 {
		t.Fatalf("Drain() = %v, %v, want first chunk {1,2}", first, ok)
	}
	second, ok := a.Drain()
	if !ok || len(second) != 2 || second[0] != 3 {
		t.Fatalf("Drain() = %v, %v, want second chunk {3,4}", second, ok)
	}
	if _, ok := a.Drain(); ok {
		t.Fatal("expected Drain to report empty once queue is exhausted")
	}
}
