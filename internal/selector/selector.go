package selector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// Role suffixes for the per-volume RNG streams. Each parallel fetch gets its
// own stream derived from (date, suffix) so that scheduling order can never
// perturb the selected coordinates.
const (
	firstRoleSuffix  = "-1"
	secondRoleSuffix = "-2"
)

// Log formats.
const (
	logFmtSelecting      = "Selecting halachot for %s: %s + %s"
	logFmtVolumeFallback = "API failed for %s, using fallback"
	logFmtCachedPair     = "Cached pair for %s"
	logFmtServedFallback = "Serving fallback content for %s, cache write skipped"
)

// ContentClient is the slice of the Sefaria client the selector needs.
type ContentClient interface {
	RandomHalachaFromVolume(ctx context.Context, volume string, rng *rand.Rand) (*halacha.Halacha, error)
	FallbackHalacha(volume string, rng *rand.Rand) (*halacha.Halacha, error)
}

// PairCache is the slice of the cache hierarchy the selector needs.
type PairCache interface {
	Get(date string) (halacha.DailyPair, bool)
	GetMessages(date string) ([]string, bool)
	Put(date string, pair halacha.DailyPair, messages []string) error
}

// Renderer pre-renders a pair into transport-ready message chunks so that
// cache hits skip all formatting work.
type Renderer func(pair halacha.DailyPair, day time.Time) []string

// Selector resolves the daily pair for a calendar date: cache first, then a
// deterministic parallel fetch with per-volume fallback.
type Selector struct {
	client ContentClient
	cache  PairCache
	render Renderer
	log    *logger.Logger
}

// New creates a Selector.
func New(client ContentClient, cache PairCache, render Renderer, log *logger.Logger) *Selector {
	return &Selector{
		client: client,
		cache:  cache,
		render: render,
		log:    log,
	}
}

// DailyPair resolves the pair for the given day.
//
// Resolution is deterministic for a fixed catalog snapshot: the same date
// always selects the same two volumes and probes the same coordinates. The
// result is cached in both tiers unless either half is fallback content, so a
// transient outage never poisons a date permanently.
func (s *Selector) DailyPair(ctx context.Context, day time.Time) (halacha.DailyPair, error) {
	dateSeed := DateSeed(day)

	if cached, ok := s.cache.Get(dateSeed); ok {
		return cached, nil
	}

	rng := NewRand(dateSeed)
	volume1, volume2 := pickTwoVolumes(rng)

	s.log.Info(logFmtSelecting, dateSeed, volume1, volume2)

	first, second, err := s.fetchPair(ctx, dateSeed, volume1, volume2)
	if err != nil {
		return halacha.DailyPair{}, err
	}

	if first == nil {
		s.log.Warn(logFmtVolumeFallback, volume1)

		first, err = s.client.FallbackHalacha(volume1, rng)
		if err != nil {
			return halacha.DailyPair{}, fmt.Errorf("resolving %s: %w", volume1, err)
		}
	}

	if second == nil {
		s.log.Warn(logFmtVolumeFallback, volume2)

		second, err = s.client.FallbackHalacha(volume2, rng)
		if err != nil {
			return halacha.DailyPair{}, fmt.Errorf("resolving %s: %w", volume2, err)
		}
	}

	pair, err := halacha.NewDailyPair(*first, *second, dateSeed)
	if err != nil {
		return halacha.DailyPair{}, err
	}

	if pair.HasFallback() {
		s.log.Warn(logFmtServedFallback, dateSeed)

		return pair, nil
	}

	putErr := s.cache.Put(dateSeed, pair, s.render(pair, day))
	if putErr != nil {
		// The cache is an optimization, not a source of truth.
		s.log.Warn("Failed to cache pair for %s: %v", dateSeed, putErr)
	} else {
		s.log.Info(logFmtCachedPair, dateSeed)
	}

	return pair, nil
}

// DailyMessages returns the rendered message sequence for the given day,
// preferring the rendered form stored alongside the cached pair. Rendering
// only happens when the cache has no usable entry, such as for fallback
// content.
func (s *Selector) DailyMessages(ctx context.Context, day time.Time) ([]string, error) {
	if messages, ok := s.cache.GetMessages(DateSeed(day)); ok {
		return messages, nil
	}

	pair, err := s.DailyPair(ctx, day)
	if err != nil {
		return nil, err
	}

	if messages, ok := s.cache.GetMessages(DateSeed(day)); ok {
		return messages, nil
	}

	return s.render(pair, day), nil
}

// fetchPair fetches one halacha from each volume in parallel. The two fetches
// use independently seeded RNG streams and share the caller's deadline, so
// neither can outlive the request nor influence the other's selection.
func (s *Selector) fetchPair(
	ctx context.Context,
	dateSeed, volume1, volume2 string,
) (*halacha.Halacha, *halacha.Halacha, error) {
	var (
		waitGroup     sync.WaitGroup
		first, second *halacha.Halacha
		err1, err2    error
	)

	waitGroup.Add(2)

	go func() {
		defer waitGroup.Done()

		first, err1 = s.client.RandomHalachaFromVolume(
			ctx, volume1, NewRand(dateSeed+firstRoleSuffix))
	}()

	go func() {
		defer waitGroup.Done()

		second, err2 = s.client.RandomHalachaFromVolume(
			ctx, volume2, NewRand(dateSeed+secondRoleSuffix))
	}()

	waitGroup.Wait()

	if err1 != nil {
		return nil, nil, fmt.Errorf("fetching from %s: %w", volume1, err1)
	}

	if err2 != nil {
		return nil, nil, fmt.Errorf("fetching from %s: %w", volume2, err2)
	}

	return first, second, nil
}

// pickTwoVolumes shuffles the volume list with the daily RNG and takes the
// first two entries, which are distinct by construction.
func pickTwoVolumes(rng *rand.Rand) (string, string) {
	volumes := make([]string, len(halacha.Volumes))
	copy(volumes, halacha.Volumes)

	rng.Shuffle(len(volumes), func(i, j int) {
		volumes[i], volumes[j] = volumes[j], volumes[i]
	})

	return volumes[0], volumes[1]
}
