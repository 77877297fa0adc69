package wire

import (
	"bytes"
	"testing"
)

func TestWriter_TextOnlyMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(NewHeader("PING", Field{"tsMs", "1000"})); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if got, want := buf.String(), "PING|tsMs=1000\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWriter_BinaryPayloadWrittenAtomically(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	h := NewHeader("FRAME",
		Field{"epoch", "1"}, Field{"seq", "0"}, Field{"size", "3"},
		Field{"key", "true"}, Field{"tsUs", "0"},
	)
	if err := w.WriteMessage(&Message{Header: h, Payload: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	want := "FRAME|epoch=1|seq=0|size=3|key=true|tsUs=0\n" + string([]byte{1, 2, 3})
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriter_RoundTripWithReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	h := NewHeader("AUDIO_FRAME",
		Field{"dir", "up"}, Field{"size", "4"}, Field{"rate", "48000"}, Field{"ch", "1"},
	)
	payload := []byte{10, 20, 30, 40}
	if err := w.WriteMessage(&Message{Header: h, Payload: payload}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	r := NewReader(&buf, nil)
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg.Payload) != string(payload) {
		t.Fatalf("payload mismatch: %v", msg.Payload)
	}
	if v, _ := msg.Header.Get("dir"); v != "up" {
		t.Fatalf("dir mismatch: %v", v)
	}
}
