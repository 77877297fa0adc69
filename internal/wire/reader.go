package wire

// Reader dechunks the line-oriented wire protocol: a header line followed,
// for FRAME/CSD/AUDIO_FRAME, by an exact-length binary payload. Modeled on
// the teacher's RTMP chunk.Reader: a single reusable read loop, a scratch
// buffer for data the caller doesn't want kept, and a typed error for every
// failure path so the orchestrator can classify and react without string
// matching.

import (
	"bufio"
	"io"

	"github.com/nordlyslabs/camviewer/internal/bufpool"
	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
)

// Message is a fully parsed protocol message: the header plus an optional
// binary payload for the three binary-bearing verbs.
type Message struct {
	Header  *Header
	Payload []byte // nil for text-only messages
}

// Reader reads framed Messages from a byte stream. Not safe for concurrent
// use; intended to be driven by a single reader task per connection.
type Reader struct {
	br   *bufio.Reader
	pool *bufpool.Pool
}

// NewReader creates a Reader over r. pool is used to allocate binary
// payload buffers (nil selects the package-level default pool).
func NewReader(r io.Reader, pool *bufpool.Pool) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 4096), pool: pool}
}

// ReadMessage blocks until one complete message (header, plus payload when
// applicable) has been read, or returns an error. io.EOF is returned
// unwrapped when the stream ends cleanly before a new header.
func (r *Reader) ReadMessage() (*Message, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		return nil, protoerr.NewTransientIOError("wire.read_header", err)
	}
	line = line[:len(line)-1] // strip '\n'; ParseHeaderLine strips a trailing '\r'
	h := ParseHeaderLine(line)

	if h.Verb == "" {
		return nil, protoerr.NewProtocolMalformedError("wire.parse_header", nil)
	}

	switch {
	case h.Verb == "CSD":
		return r.readCSD(h)
	case IsBinaryVerb(h.Verb):
		return r.readSizedPayload(h)
	case IsKnownVerb(h.Verb):
		return &Message{Header: h}, nil
	default:
		return r.readUnknownVerb(h)
	}
}

// readSizedPayload handles FRAME and AUDIO_FRAME, both of which declare
// their payload length in a single "size" field.
func (r *Reader) readSizedPayload(h *Header) (*Message, error) {
	size, ok := h.GetInt64("size")
	if !ok || size < 0 {
		return nil, protoerr.NewProtocolMalformedError("wire.missing_size:"+h.Verb, nil)
	}
	payload, err := r.readExact(int(size))
	if err != nil {
		return nil, err
	}
	return &Message{Header: h, Payload: payload}, nil
}

// readCSD handles CSD, whose payload is the concatenation of "sps" and
// "pps" byte counts (SPS bytes first, then PPS bytes).
func (r *Reader) readCSD(h *Header) (*Message, error) {
	sps, okSps := h.GetInt64("sps")
	pps, okPps := h.GetInt64("pps")
	if !okSps || !okPps || sps < 0 || pps < 0 {
		return nil, protoerr.NewProtocolMalformedError("wire.missing_size:CSD", nil)
	}
	payload, err := r.readExact(int(sps + pps))
	if err != nil {
		return nil, err
	}
	return &Message{Header: h, Payload: payload}, nil
}

// readUnknownVerb handles a verb outside the known vocabulary. If the
// header declares a "size" field we cannot safely determine whether a
// binary payload follows (a future protocol version might add new
// binary-bearing verbs), so the unknown verb is treated as fatal per spec
// §7. Otherwise it is a line-only unknown verb and the error is marked
// non-fatal: log-and-skip is the caller's responsibility. Either way no
// Message is returned.
func (r *Reader) readUnknownVerb(h *Header) (*Message, error) {
	if _, ok := h.Get("size"); ok {
		return nil, protoerr.NewUnknownVerbError(h.Verb, true, "unrecognized verb declares a size field; payload length undefined")
	}
	return nil, protoerr.NewUnknownVerbError(h.Verb, false, "")
}

// readExact allocates a payload buffer from the pool and fills it with
// exactly n bytes. For n==0 it returns an empty slice without reading or
// using the pool. A partial read is fatal per spec §4.1 ("partial reads
// are fatal and trigger recovery").
func (r *Reader) readExact(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	buf := r.getBuf(n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, protoerr.NewTransientIOError("wire.read_payload", err)
	}
	return buf, nil
}

func (r *Reader) getBuf(n int) []byte {
	if r.pool != nil {
		return r.pool.Get(n)
	}
	return bufpool.Get(n)
}
