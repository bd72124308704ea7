package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// API endpoints and paths.
const (
	apiTexts = "/texts/"
)

// HTTP headers.
const (
	headerUserAgent = "User-Agent"
	userAgent       = "LikuteiHalachotYomiBot/2.0"
)

// Probing limits. The Sefaria catalog does not expose valid coordinate ranges
// per section, so the client guesses a bounded number of coordinates instead
// of fetching the full structure for every section.
const (
	maxProbeAttempts = 10
	maxProbeChapter  = 5
	maxProbeSiman    = 5
	minTextRunes     = 10
)

// Log formats.
const (
	logFmtFoundHalacha = "Found halacha %s (attempt %d)"
	logFmtFetchFailed  = "Failed to fetch %s: %v"
	logFmtNoText       = "No Hebrew text for %s"
	logFmtProbesSpent  = "No valid halacha in %s after %d attempts"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// textResponse is the subset of the Sefaria texts endpoint payload the client
// reads. Both text fields may be a string or an arbitrarily nested array.
type textResponse struct {
	Ref   string          `json:"ref"`
	HeRef string          `json:"heRef"`
	He    json.RawMessage `json:"he"`
	Text  json.RawMessage `json:"text"`
	Error string          `json:"error"`
}

// Client is an HTTP client for the Sefaria API plus the in-process section
// catalog. It is stateless apart from the read-only catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	webURL     string
	catalog    *Catalog
	log        *logger.Logger
}

// NewClient creates a Sefaria client. The baseURL should point at the API root
// (e.g. "https://www.sefaria.org/api") and webURL at the site root used for
// deep links. The timeout applies to every request.
func NewClient(
	baseURL, webURL string,
	timeout time.Duration,
	catalog *Catalog,
	log *logger.Logger,
) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		webURL:     webURL,
		catalog:    catalog,
		log:        log,
	}
}

// Catalog returns the client's section catalog.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// SectionsForVolume returns all known catalog sections of a volume.
func (c *Client) SectionsForVolume(volume string) ([]halacha.Section, error) {
	return c.catalog.SectionsForVolume(volume)
}

// FetchHalacha fetches one halacha at the given coordinates. A transport
// error, a malformed response, or an absent body text all yield (nil, nil):
// absence is not an error here, the caller decides fallback policy.
func (c *Client) FetchHalacha(
	ctx context.Context,
	section halacha.Section,
	chapter, siman int,
) (*halacha.Halacha, error) {
	reference := fmt.Sprintf("%s.%d.%d", section.RefBase, chapter, siman)

	data, err := c.getText(ctx, reference)
	if err != nil {
		c.log.Warn(logFmtFetchFailed, reference, err)

		return nil, nil
	}

	hebrew := CleanText(flattenText(data.He))
	if len([]rune(hebrew)) < minTextRunes {
		c.log.Warn(logFmtNoText, reference)

		return nil, nil
	}

	english := CleanText(flattenText(data.Text))
	if len([]rune(english)) < minTextRunes {
		english = ""
	}

	return &halacha.Halacha{
		Section:     section,
		Chapter:     chapter,
		Siman:       siman,
		HebrewText:  hebrew,
		EnglishText: english,
		SefariaURL:  c.DeepLink(reference),
	}, nil
}

// RandomHalachaFromVolume picks a catalog section of the volume uniformly at
// random with the provided RNG, then probes a bounded number of coordinates:
// per attempt it tries (random chapter, random siman), then (chapter, 1),
// then (1, 1). Returns (nil, nil) when every probe came back empty.
//
// The probe order is part of the determinism contract: for a fixed RNG stream
// and catalog snapshot the same coordinates are tried in the same order.
func (c *Client) RandomHalachaFromVolume(
	ctx context.Context,
	volume string,
	rng *rand.Rand,
) (*halacha.Halacha, error) {
	sections, err := c.catalog.SectionsForVolume(volume)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxProbeAttempts; attempt++ {
		section := sections[rng.Intn(len(sections))]
		chapter := 1 + rng.Intn(maxProbeChapter)
		siman := 1 + rng.Intn(maxProbeSiman)

		for _, coord := range [][2]int{{chapter, siman}, {chapter, 1}, {1, 1}} {
			found, fetchErr := c.FetchHalacha(ctx, section, coord[0], coord[1])
			if fetchErr != nil {
				return nil, fetchErr
			}

			if found != nil {
				c.log.Info(logFmtFoundHalacha, found.Reference(), attempt)

				return found, nil
			}
		}
	}

	c.log.Error(logFmtProbesSpent, volume, maxProbeAttempts)

	return nil, nil
}

// FallbackHalacha builds a placeholder halacha for a volume when the API is
// unavailable: any catalog section, coordinate 1.1, the fixed placeholder
// body, and the section's deep link preserved. Fails only when the catalog
// has no section at all for the volume.
func (c *Client) FallbackHalacha(volume string, rng *rand.Rand) (*halacha.Halacha, error) {
	sections, err := c.catalog.SectionsForVolume(volume)
	if err != nil {
		return nil, err
	}

	section := sections[rng.Intn(len(sections))]

	return &halacha.Halacha{
		Section:    section,
		Chapter:    1,
		Siman:      1,
		HebrewText: halacha.FallbackText,
		SefariaURL: c.DeepLink(section.RefBase),
	}, nil
}

// DeepLink returns the canonical Sefaria web URL for a reference.
func (c *Client) DeepLink(reference string) string {
	return c.webURL + "/" + strings.ReplaceAll(reference, " ", "_")
}

// getText performs one texts-endpoint request and decodes the response.
func (c *Client) getText(ctx context.Context, reference string) (*textResponse, error) {
	cleanRef := strings.ReplaceAll(reference, " ", "_")
	requestURL := c.baseURL + apiTexts + url.PathEscape(cleanRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", reference, err)
	}

	req.Header.Set(headerUserAgent, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf(
			"sefaria returned non-OK status for %s: %s, body: %s",
			reference,
			resp.Status,
			string(body),
		)
	}

	var data textResponse

	err = json.NewDecoder(resp.Body).Decode(&data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", reference, err)
	}

	if data.Error != "" {
		return nil, fmt.Errorf("sefaria API error for %s: %s", reference, data.Error)
	}

	return &data, nil
}

// CleanText strips HTML tags and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = htmlTagPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// flattenText joins a Sefaria text field, which may be a string or a nested
// array of strings, into a single space-separated string.
func flattenText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err == nil {
		parts := make([]string, 0, len(asArray))

		for _, item := range asArray {
			if flat := flattenText(item); flat != "" {
				parts = append(parts, flat)
			}
		}

		return strings.Join(parts, " ")
	}

	return ""
}
