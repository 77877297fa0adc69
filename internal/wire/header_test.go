package wire

import "testing"

func TestParseHeaderLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantVerb string
		wantLen  int
	}{
		{"no fields", "PING", "PING", 0},
		{"simple fields", "HELLO|client=viewer|version=1", "HELLO", 2},
		{"trailing cr stripped", "PONG|tsMs=5\r", "PONG", 1},
		{"empty line", "", "", 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := ParseHeaderLine(tc.line)
			if h.Verb != tc.wantVerb {
				t.Fatalf("verb = %q, want %q", h.Verb, tc.wantVerb)
			}
			if len(h.Fields) != tc.wantLen {
				t.Fatalf("fields len = %d, want %d", len(h.Fields), tc.wantLen)
			}
		})
	}
}

func TestHeaderGetters(t *testing.T) {
	h := ParseHeaderLine("FRAME|epoch=3|seq=-1|size=20|key=true|tsUs=12345")
	if v, ok := h.GetUint64("epoch"); !ok || v != 3 {
		t.Fatalf("epoch = %v, %v", v, ok)
	}
	if v, ok := h.GetInt64("seq"); !ok || v != -1 {
		t.Fatalf("seq = %v, %v", v, ok)
	}
	if v, ok := h.GetInt64("size"); !ok || v != 20 {
		t.Fatalf("size = %v, %v", v, ok)
	}
	if v, ok := h.GetBool("key"); !ok || !v {
		t.Fatalf("key = %v, %v", v, ok)
	}
	if _, ok := h.Get("missing"); ok {
		t.Fatalf("expected missing field to be absent")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	lines := []string{
		"HELLO|client=viewer|version=1",
		"AUTH_CHALLENGE|salt=abc",
		"STREAM_ACCEPTED|epoch=1|width=1080|height=1440|bitrate=5000000|fps=30",
		"PING|tsMs=1000",
		"PONG|tsMs=1000|srvMs=2000",
	}
	for _, line := range lines {
		line := line
		t.Run(line, func(t *testing.T) {
			t.Parallel()
			h := ParseHeaderLine(line)
			if got := h.Encode(); got != line {
				t.Fatalf("round trip mismatch: got %q want %q", got, line)
			}
		})
	}
}

func TestSetAppendsOrUpdatesInPlace(t *testing.T) {
	h := NewHeader("CAPS")
	h.Set("maxWidth", "1080")
	h.Set("maxHeight", "1440")
	h.Set("maxWidth", "1920")
	if got, want := h.Encode(), "CAPS|maxWidth=1920|maxHeight=1440"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestIsBinaryVerb(t *testing.T) {
	for _, v := range []string{"FRAME", "CSD", "AUDIO_FRAME"} {
		if !IsBinaryVerb(v) {
			t.Fatalf("%s should be binary", v)
		}
	}
	if IsBinaryVerb("PING") {
		t.Fatalf("PING should not be binary")
	}
}

func TestIsKnownVerb(t *testing.T) {
	if !IsKnownVerb("STREAM_STATE") {
		t.Fatalf("STREAM_STATE should be known")
	}
	if IsKnownVerb("FUTURE_VERB_X") {
		t.Fatalf("FUTURE_VERB_X should be unknown")
	}
}
