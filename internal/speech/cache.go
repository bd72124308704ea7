package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File layout.
const (
	audioFilePattern = "audio_%s.ogg"
	dirPermissions   = 0o750
	filePermissions  = 0o600
)

// AudioCache is a write-once disk store for synthesized audio, keyed by a
// caller-chosen string (typically "<date>_<ordinal>"). Entries are immutable:
// a key is never re-synthesized or overwritten.
type AudioCache struct {
	dir string
}

// NewAudioCache creates an AudioCache rooted at dir.
func NewAudioCache(dir string) *AudioCache {
	return &AudioCache{dir: dir}
}

// Get returns the cached audio for a key, or ok=false on miss.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	return data, true
}

// Put stores audio under a key. An existing entry is left untouched.
func (c *AudioCache) Put(key string, audio []byte) error {
	err := os.MkdirAll(c.dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create audio cache directory %s: %w", c.dir, err)
	}

	path := c.path(key)

	_, err = os.Stat(path)
	if err == nil {
		return nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat audio cache entry %s: %w", path, err)
	}

	err = os.WriteFile(path, audio, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write audio cache entry %s: %w", path, err)
	}

	return nil
}

func (c *AudioCache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf(audioFilePattern, key))
}
