// Package config persists the viewer's start-profile override (spec
// §4.3/§6) as a small JSON file, mirroring the teacher's "plain struct +
// applyDefaults()" configuration style (server.Config) but for a file on
// disk rather than CLI flags.
package config

import (
	"encoding/json"
	"errors"
	"os"
)

// ProfileOverride is the on-disk representation of a persisted
// start-profile override. A zero Width means "no override configured",
// matching session.ApplyOverride's sentinel convention.
type ProfileOverride struct {
	Width   int64 `json:"width"`
	Height  int64 `json:"height"`
	Bitrate int64 `json:"bitrate"`
	Fps     int64 `json:"fps"`
}

// FileStore implements core.ConfigStore by reading/writing a JSON file
// at a fixed path.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore rooted at path.
func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

// LoadStartProfileOverride reads the override from disk. A missing file
// is not an error: it reports ok=false, ok being "parse this as
// configured data if OK else no override".
func (s *FileStore) LoadStartProfileOverride() (width, height, bitrate, fps int64, ok bool, err error) {
	data, readErr := os.ReadFile(s.Path)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return 0, 0, 0, 0, false, nil
		}
		return 0, 0, 0, 0, false, readErr
	}
	var p ProfileOverride
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, 0, 0, 0, false, err
	}
	if p.Width == 0 {
		return 0, 0, 0, 0, false, nil
	}
	return p.Width, p.Height, p.Bitrate, p.Fps, true, nil
}

// SaveStartProfileOverride writes the override to disk as JSON,
// creating or truncating the file.
func (s *FileStore) SaveStartProfileOverride(width, height, bitrate, fps int64) error {
	p := ProfileOverride{Width: width, Height: height, Bitrate: bitrate, Fps: fps}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o644)
}
