// Package cache implements the two-tier cache for daily pairs: an in-process
// map in front of one JSON file per date on disk.
//
// The disk tier is an optimization, not a source of truth: a corrupt or
// missing file is treated as absence and never propagated as an error. Files
// are written once per date and never overwritten, preserving what was
// actually sent even if catalog content drifts later.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// File layout.
const (
	pairFilePattern = "pair_%s.json"
	dirPermissions  = 0o750
	filePermissions = 0o600
)

// Log formats.
const (
	logFmtCorruptEntry = "Failed to load cache for %s: %v"
	logFmtDiskHit      = "Disk cache hit for %s"
	logFmtLegacyEntry  = "Rendered messages for %s (legacy cache format)"
)

// Renderer reconstructs message chunks from a pair, used to lazily upgrade
// legacy disk entries written before messages were persisted alongside pairs.
type Renderer func(pair halacha.DailyPair, day time.Time) []string

// entry is the on-disk document, one per date.
type entry struct {
	DateSeed          string          `json:"date_seed"`
	FormattedMessages []string        `json:"formatted_messages,omitempty"`
	First             halacha.Halacha `json:"first"`
	Second            halacha.Halacha `json:"second"`
}

// Cache is the two-tier pair cache. It exclusively owns its memory maps and
// disk directory; all access is safe for concurrent use.
type Cache struct {
	dir      string
	render   Renderer
	log      *logger.Logger
	mu       sync.RWMutex
	pairs    map[string]halacha.DailyPair
	messages map[string][]string
}

// New creates a Cache rooted at dir. The directory is created on first write,
// not here, so a read-only caller never touches the filesystem.
func New(dir string, render Renderer, log *logger.Logger) *Cache {
	return &Cache{
		dir:      dir,
		render:   render,
		log:      log,
		pairs:    make(map[string]halacha.DailyPair),
		messages: make(map[string][]string),
	}
}

// Get returns the pair for an ISO date string: memory first, then disk. A
// disk hit back-fills the memory tier. Returns ok=false on full miss or on a
// corrupt disk entry.
func (c *Cache) Get(date string) (halacha.DailyPair, bool) {
	c.mu.RLock()
	pair, ok := c.pairs[date]
	c.mu.RUnlock()

	if ok {
		return pair, true
	}

	return c.loadFromDisk(date)
}

// GetMessages returns the pre-rendered message chunks for a date with the
// same tiering as Get. For legacy disk entries without stored messages the
// chunks are rendered on the fly and served as a hit, without rewriting the
// file.
func (c *Cache) GetMessages(date string) ([]string, bool) {
	c.mu.RLock()
	messages, ok := c.messages[date]
	c.mu.RUnlock()

	if ok {
		return messages, true
	}

	if _, loaded := c.loadFromDisk(date); !loaded {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	messages, ok = c.messages[date]

	return messages, ok
}

// Put stores the pair and its rendered messages in both tiers. Disk write
// failures are returned but the memory tier is updated regardless, so the
// current process still benefits from the cache.
func (c *Cache) Put(date string, pair halacha.DailyPair, messages []string) error {
	c.mu.Lock()
	c.pairs[date] = pair
	c.messages[date] = messages
	c.mu.Unlock()

	err := os.MkdirAll(c.dir, dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", c.dir, err)
	}

	document := entry{
		DateSeed:          pair.DateSeed,
		FormattedMessages: messages,
		First:             pair.First,
		Second:            pair.Second,
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry for %s: %w", date, err)
	}

	path := c.pairPath(date)

	err = os.WriteFile(path, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", path, err)
	}

	return nil
}

// loadFromDisk reads, validates, and back-fills one disk entry.
func (c *Cache) loadFromDisk(date string) (halacha.DailyPair, bool) {
	data, err := os.ReadFile(c.pairPath(date))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn(logFmtCorruptEntry, date, err)
		}

		return halacha.DailyPair{}, false
	}

	var document entry

	err = json.Unmarshal(data, &document)
	if err != nil {
		c.log.Warn(logFmtCorruptEntry, date, err)

		return halacha.DailyPair{}, false
	}

	pair, err := halacha.NewDailyPair(document.First, document.Second, document.DateSeed)
	if err != nil {
		c.log.Warn(logFmtCorruptEntry, date, err)

		return halacha.DailyPair{}, false
	}

	messages := document.FormattedMessages
	if len(messages) == 0 {
		messages = c.renderLegacy(pair, date)
	}

	c.mu.Lock()
	c.pairs[date] = pair
	c.messages[date] = messages
	c.mu.Unlock()

	c.log.Info(logFmtDiskHit, date)

	return pair, true
}

// renderLegacy rebuilds messages for entries that predate message persistence.
func (c *Cache) renderLegacy(pair halacha.DailyPair, date string) []string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		day = time.Now()
	}

	c.log.Info(logFmtLegacyEntry, date)

	return c.render(pair, day)
}

func (c *Cache) pairPath(date string) string {
	return filepath.Join(c.dir, fmt.Sprintf(pairFilePattern, date))
}
