package wire

// Writer serializes outbound Messages. Mirrors the teacher's chunk.Writer
// discipline of building one contiguous buffer (header+payload) and issuing
// a single Write call, so a header is never observed on the wire without
// its payload. Serialization across concurrent senders is the caller's
// responsibility (the session orchestrator's single writer task, per spec
// §4.10/§5); Writer itself holds no lock.

import (
	"io"

	protoerr "github.com/nordlyslabs/camviewer/internal/errors"
)

// Writer emits framed Messages to an underlying stream. Not safe for
// concurrent use.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage encodes msg's header, an optional payload, and writes them
// as a single Write call.
func (w *Writer) WriteMessage(msg *Message) error {
	if msg == nil || msg.Header == nil {
		return protoerr.NewProtocolMalformedError("wire.write_nil_message", nil)
	}
	line := msg.Header.Encode()
	buf := make([]byte, 0, len(line)+1+len(msg.Payload))
	buf = append(buf, line...)
	buf = append(buf, '\n')
	buf = append(buf, msg.Payload...)
	if _, err := w.w.Write(buf); err != nil {
		return protoerr.NewTransientIOError("wire.write_message:"+msg.Header.Verb, err)
	}
	return nil
}

// WriteHeader is a convenience for text-only messages (no payload).
func (w *Writer) WriteHeader(h *Header) error {
	return w.WriteMessage(&Message{Header: h})
}
