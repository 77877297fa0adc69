package config

import (
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.json")
	s := NewFileStore(path)

	if _, _, _, _, ok, err := s.LoadStartProfileOverride(); err != nil || ok {
		t.Fatalf("expected no override on a missing file, got ok=%v err=%v", ok, err)
	}

	if err := s.SaveStartProfileOverride(1080, 1440, 5_000_000, 30); err != nil {
		t.Fatalf("SaveStartProfileOverride: %v", err)
	}

	w, h, b, f, ok, err := s.LoadStartProfileOverride()
	if err != nil || !ok {
		t.Fatalf("expected a saved override to load, ok=%v err=%v", ok, err)
	}
	if w != 1080 || h != 1440 || b != 5_000_000 || f != 30 {
		t.Fatalf("unexpected values: %d %d %d %d", w, h, b, f)
	}
}
