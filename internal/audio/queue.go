// Package audio implements the downstream playback path (PCM and
// ADTS-framed AAC), the adaptive noise gate, and the talkback uplink
// capture/gain/packetize pipeline (spec §4.8/§4.9).
package audio

import (
	"sync"

	"github.com/nordlyslabs/camviewer/internal/bufpool"
	"github.com/nordlyslabs/camviewer/internal/protocol"
)

// DownstreamCapacity is the bounded playback queue depth (spec §4.8:
// "capacity ≈ 80 frames, ~3 s buffering for 20 ms frames at 48 kHz mono").
const DownstreamCapacity = 80

// Packet is one queued downstream audio packet, already decoded to PCM if
// it originated as AAC.
type Packet struct {
	Payload []byte
	Rate    int64
	Ch      int64
	TsUs    int64
}

// Queue is a bounded, drop-oldest-on-full FIFO of downstream audio
// packets (spec §4.8: "If queue is full, drop the oldest packet").
type Queue struct {
	mu    sync.Mutex
	items []Packet
	pool  *bufpool.Pool
}

// NewQueue creates an empty downstream queue.
func NewQueue(pool *bufpool.Pool) *Queue {
	return &Queue{pool: pool}
}

func (q *Queue) putBack(p Packet) {
	if p.Payload == nil {
		return
	}
	if q.pool != nil {
		q.pool.Put(p.Payload)
	} else {
		bufpool.Put(p.Payload)
	}
}

// Push enqueues a packet, dropping the oldest one first if the queue is
// already at capacity.
func (q *Queue) Push(p Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= DownstreamCapacity {
		q.putBack(q.items[0])
		q.items = q.items[1:]
	}
	q.items = append(q.items, p)
}

// Pop dequeues the oldest packet, or the zero value and false if empty.
func (q *Queue) Pop() (Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Packet{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PacketFromFrame converts a decoded AUDIO_FRAME (already PCM, i.e. not
// needing AAC decode) into a queueable Packet.
func PacketFromFrame(f protocol.AudioFrame) Packet {
	return Packet{Payload: f.Payload, Rate: f.Rate, Ch: f.Ch, TsUs: f.TsUs}
}
