package impact

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

const defaultCacheSize = 512

// Chain asks each lookup in order and returns the first factor found.
type Chain []ports.ImpactLookup

var _ ports.ImpactLookup = Chain(nil)

// Lookup moves to the next lookup on domain.ErrJournalNotFound only; other
// errors are returned unless a later lookup resolves the journal.
func (c Chain) Lookup(ctx context.Context, journal string) (float64, error) {
	var lastErr error
	for _, lookup := range c {
		if lookup == nil {
			continue
		}
		factor, err := lookup.Lookup(ctx, journal)
		if err == nil {
			return factor, nil
		}
		if lastErr == nil || !errors.Is(err, domain.ErrJournalNotFound) {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %q", domain.ErrJournalNotFound, journal)
	}
	return 0, lastErr
}

type cacheEntry struct {
	factor float64
	found  bool
}

// CachedLookup memoizes results for the lifetime of one run. Unknown journals
// are remembered; transport failures are not.
type CachedLookup struct {
	next  ports.ImpactLookup
	cache *lru.Cache[string, cacheEntry]
}

var _ ports.ImpactLookup = (*CachedLookup)(nil)

// NewCachedLookup wraps next with an LRU of the given size.
func NewCachedLookup(next ports.ImpactLookup, size int) (*CachedLookup, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("impact cache: %w", err)
	}
	return &CachedLookup{next: next, cache: cache}, nil
}

// Lookup serves from the cache or delegates.
func (c *CachedLookup) Lookup(ctx context.Context, journal string) (float64, error) {
	key := normalize(journal)
	if entry, ok := c.cache.Get(key); ok {
		if !entry.found {
			return 0, fmt.Errorf("%w: %q", domain.ErrJournalNotFound, journal)
		}
		return entry.factor, nil
	}

	factor, err := c.next.Lookup(ctx, journal)
	switch {
	case err == nil:
		c.cache.Add(key, cacheEntry{factor: factor, found: true})
	case errors.Is(err, domain.ErrJournalNotFound):
		c.cache.Add(key, cacheEntry{})
	}
	return factor, err
}
