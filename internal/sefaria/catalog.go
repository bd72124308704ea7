// Package sefaria provides the client for the Sefaria text service: the
// pre-built section catalog, text fetching, and bounded coordinate probing.
package sefaria

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// Static errors.
var (
	// ErrCatalogUnavailable indicates the section catalog could not be
	// loaded at all. Selection cannot proceed without a catalog, so this
	// is fatal for the caller.
	ErrCatalogUnavailable = errors.New("section catalog unavailable")

	// ErrNoSections indicates a volume has no catalog sections.
	ErrNoSections = errors.New("no sections found for volume")
)

// Catalog holds the read-only section list for Likutei Halachot, loaded once
// from the pre-built sections.json file.
type Catalog struct {
	sections []halacha.Section
	byVolume map[string][]halacha.Section
}

// LoadCatalog reads the pre-built section catalog from path. The file is a
// JSON array of section objects produced by the build-catalog script.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrCatalogUnavailable, path, err)
	}

	return ParseCatalog(data)
}

// ParseCatalog builds a Catalog from raw JSON catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var sections []halacha.Section

	err := json.Unmarshal(data, &sections)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing catalog: %w", ErrCatalogUnavailable, err)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrCatalogUnavailable)
	}

	byVolume := make(map[string][]halacha.Section)
	for _, s := range sections {
		byVolume[s.Volume] = append(byVolume[s.Volume], s)
	}

	return &Catalog{
		sections: sections,
		byVolume: byVolume,
	}, nil
}

// Sections returns all catalog sections.
func (c *Catalog) Sections() []halacha.Section {
	return c.sections
}

// SectionsForVolume returns all sections belonging to the given volume.
// It fails with ErrNoSections when the catalog carries nothing for the volume.
func (c *Catalog) SectionsForVolume(volume string) ([]halacha.Section, error) {
	sections := c.byVolume[volume]
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSections, volume)
	}

	return sections, nil
}
