// Package protocol gives the line-oriented wire format (internal/wire) a
// typed face: one Go type per verb, decoded from and encoded to a
// wire.Message, plus the epoch-aware gating predicates spec §4.4 requires.
// Per the design notes ("reflection-free message dispatch"), Decode
// produces a tagged union (the Message interface) that callers switch on
// exhaustively instead of inspecting header strings directly.
package protocol

import (
	"fmt"
	"strconv"

	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
	"github.com/nordlyslabs/camviewer/internal/wire"
)

// Message is implemented by every typed protocol message.
type Message interface {
	Verb() string
}

func i64(v int64) string  { return strconv.FormatInt(v, 10) }
func u64(v uint64) string { return strconv.FormatUint(v, 10) }
func bstr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// --- Handshake & session ----------------------------------------------------

type Hello struct {
	Client  string
	Version int64
}

func (Hello) Verb() string { return "HELLO" }
func (h Hello) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("HELLO",
		wire.Field{Key: "client", Value: h.Client},
		wire.Field{Key: "version", Value: i64(h.Version)},
	)}
}

type AuthChallenge struct{ Salt string }

func (AuthChallenge) Verb() string { return "AUTH_CHALLENGE" }

type AuthResponse struct{ Hash string }

func (AuthResponse) Verb() string { return "AUTH_RESPONSE" }
func (a AuthResponse) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("AUTH_RESPONSE", wire.Field{Key: "hash", Value: a.Hash})}
}

type AuthOk struct{}

func (AuthOk) Verb() string { return "AUTH_OK" }

type AuthFail struct{ Reason string }

func (AuthFail) Verb() string { return "AUTH_FAIL" }

type SessionAssigned struct{ ID string }

func (SessionAssigned) Verb() string { return "SESSION" }

type Resume struct{ SessionID string }

func (Resume) Verb() string { return "RESUME" }
func (r Resume) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("RESUME", wire.Field{Key: "session", Value: r.SessionID})}
}

type ResumeOk struct{}

func (ResumeOk) Verb() string { return "RESUME_OK" }

type ResumeFail struct{ Reason string }

func (ResumeFail) Verb() string { return "RESUME_FAIL" }

type Caps struct {
	MaxWidth, MaxHeight, MaxBitrate int64
}

func (Caps) Verb() string { return "CAPS" }
func (c Caps) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("CAPS",
		wire.Field{Key: "maxWidth", Value: i64(c.MaxWidth)},
		wire.Field{Key: "maxHeight", Value: i64(c.MaxHeight)},
		wire.Field{Key: "maxBitrate", Value: i64(c.MaxBitrate)},
	)}
}

type SetStream struct {
	Width, Height, Bitrate, Fps int64
}

func (SetStream) Verb() string { return "SET_STREAM" }
func (s SetStream) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("SET_STREAM",
		wire.Field{Key: "width", Value: i64(s.Width)},
		wire.Field{Key: "height", Value: i64(s.Height)},
		wire.Field{Key: "bitrate", Value: i64(s.Bitrate)},
		wire.Field{Key: "fps", Value: i64(s.Fps)},
	)}
}

type StreamAccepted struct {
	Epoch                     uint64
	Width, Height, Bitrate, Fps int64
}

func (StreamAccepted) Verb() string { return "STREAM_ACCEPTED" }

type AdjustBitrate struct{ Bitrate int64 }

func (AdjustBitrate) Verb() string { return "ADJUST_BITRATE" }
func (a AdjustBitrate) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("ADJUST_BITRATE", wire.Field{Key: "bitrate", Value: i64(a.Bitrate)})}
}

type BitrateAdjusted struct{ Bitrate int64 }

func (BitrateAdjusted) Verb() string { return "BITRATE_ADJUSTED" }

// --- Video / audio payload-bearing messages --------------------------------

// Csd is the decoder (re)configuration message: SPS bytes followed by PPS
// bytes, addressed to a specific encoder epoch.
type Csd struct {
	Epoch    uint64
	Sps, Pps []byte
}

func (Csd) Verb() string { return "CSD" }
func (c Csd) Encode() *wire.Message {
	payload := make([]byte, 0, len(c.Sps)+len(c.Pps))
	payload = append(payload, c.Sps...)
	payload = append(payload, c.Pps...)
	return &wire.Message{
		Header: wire.NewHeader("CSD",
			wire.Field{Key: "epoch", Value: u64(c.Epoch)},
			wire.Field{Key: "sps", Value: i64(int64(len(c.Sps)))},
			wire.Field{Key: "pps", Value: i64(int64(len(c.Pps)))},
		),
		Payload: payload,
	}
}

// Frame is one received video access unit.
type Frame struct {
	Epoch                          uint64
	Seq                            int64
	IsKey                          bool
	TsUs, SrvMs, CapMs, AgeMs      int64
	Payload                        []byte
}

func (Frame) Verb() string { return "FRAME" }
func (f Frame) Encode() *wire.Message {
	return &wire.Message{
		Header: wire.NewHeader("FRAME",
			wire.Field{Key: "epoch", Value: u64(f.Epoch)},
			wire.Field{Key: "seq", Value: i64(f.Seq)},
			wire.Field{Key: "size", Value: i64(int64(len(f.Payload)))},
			wire.Field{Key: "key", Value: bstr(f.IsKey)},
			wire.Field{Key: "tsUs", Value: i64(f.TsUs)},
			wire.Field{Key: "srvMs", Value: i64(f.SrvMs)},
			wire.Field{Key: "capMs", Value: i64(f.CapMs)},
			wire.Field{Key: "ageMs", Value: i64(f.AgeMs)},
		),
		Payload: f.Payload,
	}
}

// AudioFormat distinguishes PCM from ADTS-framed AAC audio packets.
type AudioFormat string

const (
	AudioFormatPCM AudioFormat = "pcm"
	AudioFormatAAC AudioFormat = "aac"
)

// AudioDirection is "up" (talkback, viewer→primary) or "down" (playback).
type AudioDirection string

const (
	AudioDown AudioDirection = "down"
	AudioUp   AudioDirection = "up"
)

type AudioFrame struct {
	Dir      AudioDirection
	Rate, Ch int64
	Format   AudioFormat
	TsUs     int64
	Payload  []byte
}

func (AudioFrame) Verb() string { return "AUDIO_FRAME" }
func (a AudioFrame) Encode() *wire.Message {
	h := wire.NewHeader("AUDIO_FRAME",
		wire.Field{Key: "dir", Value: string(a.Dir)},
		wire.Field{Key: "size", Value: i64(int64(len(a.Payload)))},
		wire.Field{Key: "rate", Value: i64(a.Rate)},
		wire.Field{Key: "ch", Value: i64(a.Ch)},
	)
	if a.Format != "" {
		h.Set("format", string(a.Format))
	}
	if a.TsUs != 0 {
		h.Set("tsUs", i64(a.TsUs))
	}
	return &wire.Message{Header: h, Payload: a.Payload}
}

// --- Heartbeat / control ----------------------------------------------------

type Ping struct{ TsMs int64 }

func (Ping) Verb() string { return "PING" }
func (p Ping) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("PING", wire.Field{Key: "tsMs", Value: i64(p.TsMs)})}
}

type Pong struct{ TsMs, SrvMs int64 }

func (Pong) Verb() string { return "PONG" }

type ReqKeyframe struct{}

func (ReqKeyframe) Verb() string { return "REQ_KEYFRAME" }
func (ReqKeyframe) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("REQ_KEYFRAME")}
}

type Backpressure struct{}

func (Backpressure) Verb() string { return "BACKPRESSURE" }
func (Backpressure) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("BACKPRESSURE")}
}

type PressureClear struct{}

func (PressureClear) Verb() string { return "PRESSURE_CLEAR" }
func (PressureClear) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("PRESSURE_CLEAR")}
}

type StartRecording struct{}

func (StartRecording) Verb() string { return "START_RECORDING" }
func (StartRecording) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("START_RECORDING")}
}

type StopRecording struct{}

func (StopRecording) Verb() string { return "STOP_RECORDING" }
func (StopRecording) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("STOP_RECORDING")}
}

type Recording struct{ Active bool }

func (Recording) Verb() string { return "RECORDING" }

type SwitchCamera struct{ Facing string }

func (SwitchCamera) Verb() string { return "SWITCH_CAMERA" }
func (s SwitchCamera) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("SWITCH_CAMERA", wire.Field{Key: "facing", Value: s.Facing})}
}

type Camera struct{ Facing string }

func (Camera) Verb() string { return "CAMERA" }

type Zoom struct{ Level float64 }

func (Zoom) Verb() string { return "ZOOM" }
func (z Zoom) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("ZOOM", wire.Field{Key: "level", Value: strconv.FormatFloat(z.Level, 'f', -1, 64)})}
}

// EncRot is forwarded to the rotation observer only; per spec §9 Open
// Questions its pre/post-rotation semantics are ambiguous and the viewer
// treats it strictly as UI metadata.
type EncRot struct{ Deg int64 }

func (EncRot) Verb() string { return "ENC_ROT" }

type Comm struct{ Enabled bool }

func (Comm) Verb() string { return "COMM" }
func (c Comm) Encode() *wire.Message {
	return &wire.Message{Header: wire.NewHeader("COMM", wire.Field{Key: "enabled", Value: bstr(c.Enabled)})}
}

// StreamStateCode is one of the four codes defined in spec §6.
type StreamStateCode int64

const (
	StreamStateActive        StreamStateCode = 1
	StreamStateReconfiguring StreamStateCode = 2
	StreamStatePaused        StreamStateCode = 3
	StreamStateStopped       StreamStateCode = 4
)

// StreamState carries the epoch it applies to (so a stale STREAM_STATE from
// a superseded epoch can be ignored per spec §6) plus the numeric code.
// The spec's prose shorthand "STREAM_STATE|4" is read here as the canonical
// "STREAM_STATE|epoch=<u64>|code=<n>" field form used by every other
// epoch-bearing verb.
type StreamState struct {
	Epoch uint64
	Code  StreamStateCode
}

func (StreamState) Verb() string { return "STREAM_STATE" }

type ErrorMsg struct{ Reason string }

func (ErrorMsg) Verb() string { return "ERROR" }

// --- Decode dispatcher -------------------------------------------------------

// Decode converts a raw wire.Message into its typed representation. Unknown
// verbs never reach here (internal/wire already classifies and rejects
// them); Decode only needs to handle the known vocabulary.
func Decode(msg *wire.Message) (Message, error) {
	h := msg.Header
	switch h.Verb {
	case "HELLO":
		ver, _ := h.GetInt64("version")
		client, _ := h.Get("client")
		return Hello{Client: client, Version: ver}, nil
	case "AUTH_CHALLENGE":
		salt, _ := h.Get("salt")
		return AuthChallenge{Salt: salt}, nil
	case "AUTH_RESPONSE":
		hash, _ := h.Get("hash")
		return AuthResponse{Hash: hash}, nil
	case "AUTH_OK":
		return AuthOk{}, nil
	case "AUTH_FAIL":
		reason, _ := h.Get("reason")
		return AuthFail{Reason: reason}, nil
	case "SESSION":
		id, _ := h.Get("id")
		return SessionAssigned{ID: id}, nil
	case "RESUME":
		s, _ := h.Get("session")
		return Resume{SessionID: s}, nil
	case "RESUME_OK":
		return ResumeOk{}, nil
	case "RESUME_FAIL":
		reason, _ := h.Get("reason")
		return ResumeFail{Reason: reason}, nil
	case "CAPS":
		mw, _ := h.GetInt64("maxWidth")
		mh, _ := h.GetInt64("maxHeight")
		mb, _ := h.GetInt64("maxBitrate")
		return Caps{MaxWidth: mw, MaxHeight: mh, MaxBitrate: mb}, nil
	case "SET_STREAM":
		w, _ := h.GetInt64("width")
		he, _ := h.GetInt64("height")
		b, _ := h.GetInt64("bitrate")
		f, _ := h.GetInt64("fps")
		return SetStream{Width: w, Height: he, Bitrate: b, Fps: f}, nil
	case "STREAM_ACCEPTED":
		epoch, _ := h.GetUint64("epoch")
		w, _ := h.GetInt64("width")
		he, _ := h.GetInt64("height")
		b, _ := h.GetInt64("bitrate")
		f, _ := h.GetInt64("fps")
		return StreamAccepted{Epoch: epoch, Width: w, Height: he, Bitrate: b, Fps: f}, nil
	case "ADJUST_BITRATE":
		b, _ := h.GetInt64("bitrate")
		return AdjustBitrate{Bitrate: b}, nil
	case "BITRATE_ADJUSTED":
		b, _ := h.GetInt64("bitrate")
		return BitrateAdjusted{Bitrate: b}, nil
	case "CSD":
		sps, _ := h.GetInt64("sps")
		epoch, _ := h.GetUint64("epoch")
		return Csd{Epoch: epoch, Sps: msg.Payload[:sps], Pps: msg.Payload[sps:]}, nil
	case "FRAME":
		epoch, _ := h.GetUint64("epoch")
		seq, _ := h.GetInt64("seq")
		key, _ := h.GetBool("key")
		tsUs, _ := h.GetInt64("tsUs")
		srvMs, _ := h.GetInt64("srvMs")
		capMs, _ := h.GetInt64("capMs")
		ageMs, _ := h.GetInt64("ageMs")
		return Frame{Epoch: epoch, Seq: seq, IsKey: key, TsUs: tsUs, SrvMs: srvMs, CapMs: capMs, AgeMs: ageMs, Payload: msg.Payload}, nil
	case "AUDIO_FRAME":
		dir, _ := h.Get("dir")
		rate, _ := h.GetInt64("rate")
		ch, _ := h.GetInt64("ch")
		format, _ := h.Get("format")
		tsUs, _ := h.GetInt64("tsUs")
		return AudioFrame{Dir: AudioDirection(dir), Rate: rate, Ch: ch, Format: AudioFormat(format), TsUs: tsUs, Payload: msg.Payload}, nil
	case "PING":
		ts, _ := h.GetInt64("tsMs")
		return Ping{TsMs: ts}, nil
	case "PONG":
		ts, _ := h.GetInt64("tsMs")
		srv, _ := h.GetInt64("srvMs")
		return Pong{TsMs: ts, SrvMs: srv}, nil
	case "REQ_KEYFRAME":
		return ReqKeyframe{}, nil
	case "BACKPRESSURE":
		return Backpressure{}, nil
	case "PRESSURE_CLEAR":
		return PressureClear{}, nil
	case "START_RECORDING":
		return StartRecording{}, nil
	case "STOP_RECORDING":
		return StopRecording{}, nil
	case "RECORDING":
		active, _ := h.GetBool("active")
		return Recording{Active: active}, nil
	case "SWITCH_CAMERA":
		facing, _ := h.Get("facing")
		return SwitchCamera{Facing: facing}, nil
	case "CAMERA":
		facing, _ := h.Get("facing")
		return Camera{Facing: facing}, nil
	case "ZOOM":
		lv, _ := h.Get("level")
		f, _ := strconv.ParseFloat(lv, 64)
		return Zoom{Level: f}, nil
	case "ENC_ROT":
		deg, _ := h.GetInt64("deg")
		return EncRot{Deg: deg}, nil
	case "COMM":
		en, _ := h.GetBool("enabled")
		return Comm{Enabled: en}, nil
	case "STREAM_STATE":
		epoch, _ := h.GetUint64("epoch")
		code, _ := h.GetInt64("code")
		return StreamState{Epoch: epoch, Code: StreamStateCode(code)}, nil
	case "ERROR":
		reason, _ := h.Get("reason")
		return ErrorMsg{Reason: reason}, nil
	default:
		return nil, protoerr.NewProtocolMalformedError(fmt.Sprintf("protocol.decode:%s", h.Verb), nil)
	}
}
