// Package video implements the jitter buffer and decode feeder: the
// bounded receive queue with adaptive target backlog, and the
// keyframe/epoch-gated scheduler that hands frames to an external
// DecoderSink (spec §4.4/§4.5).
package video

import "github.com/nordlyslabs/camviewer/internal/protocol"

// Frame is the jitter buffer's internal representation of one received
// video access unit (spec §3's VideoFrame entity).
type Frame struct {
	Payload         []byte
	IsKey           bool
	SendTsUs        int64
	ServerSendMs    int64
	CaptureServerMs int64
	AgeAtSendMs     int64
	Seq             int64
	Epoch           uint64
}

// FromProtocol converts a decoded wire Frame message into the jitter
// buffer's Frame representation.
func FromProtocol(f protocol.Frame) Frame {
	return Frame{
		Payload:         f.Payload,
		IsKey:           f.IsKey,
		SendTsUs:        f.TsUs,
		ServerSendMs:    f.SrvMs,
		CaptureServerMs: f.CapMs,
		AgeAtSendMs:     f.AgeMs,
		Seq:             f.Seq,
		Epoch:           f.Epoch,
	}
}
