// Package cache memoizes creator lookups for the lifetime of the
// process. Entries never expire or get evicted.
package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/NovaHFly/kemono-su-downloader/internal/models"
)

// FetchFunc resolves a creator from the remote service. It is only
// invoked on a cache miss.
type FetchFunc func(service, creatorID string) (*models.Creator, error)

type creatorKey struct {
	service string
	id      string
}

// CreatorCache memoizes creators by (service, id). Reads of a
// populated entry never block on an in-flight fetch; concurrent
// misses for the same key collapse into one underlying fetch while
// misses for distinct keys proceed in parallel.
type CreatorCache struct {
	fetch FetchFunc

	mu       sync.RWMutex
	creators map[creatorKey]*models.Creator
	group    singleflight.Group
}

// New creates a CreatorCache backed by fetch.
func New(fetch FetchFunc) *CreatorCache {
	return &CreatorCache{
		fetch:    fetch,
		creators: make(map[creatorKey]*models.Creator),
	}
}

// Resolve returns the cached creator or fetches and stores it. A
// failed fetch caches nothing, so a later call may try again.
func (c *CreatorCache) Resolve(service, creatorID string) (*models.Creator, error) {
	key := creatorKey{service: service, id: creatorID}

	c.mu.RLock()
	creator, ok := c.creators[key]
	c.mu.RUnlock()
	if ok {
		return creator, nil
	}

	v, err, _ := c.group.Do(service+"/"+creatorID, func() (interface{}, error) {
		// A concurrent caller may have populated the entry between
		// the read above and winning the flight.
		c.mu.RLock()
		creator, ok := c.creators[key]
		c.mu.RUnlock()
		if ok {
			return creator, nil
		}

		fetched, err := c.fetch(service, creatorID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.creators[key] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Creator), nil
}

// Len reports how many creators are cached.
func (c *CreatorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.creators)
}
