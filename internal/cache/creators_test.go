package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NovaHFly/kemono-su-downloader/internal/models"
)

func TestResolve_CachesByKey(t *testing.T) {
	var fetches int64
	c := New(func(service, creatorID string) (*models.Creator, error) {
		atomic.AddInt64(&fetches, 1)
		return &models.Creator{ID: creatorID, Name: "artist-" + creatorID, Service: service}, nil
	})

	first, err := c.Resolve("patreon", "777")
	require.NoError(t, err)
	second, err := c.Resolve("patreon", "777")
	require.NoError(t, err)

	// Same instance, not just equal values.
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches))
}

func TestResolve_DistinctKeysFetchSeparately(t *testing.T) {
	var fetches int64
	c := New(func(service, creatorID string) (*models.Creator, error) {
		atomic.AddInt64(&fetches, 1)
		return &models.Creator{ID: creatorID, Service: service}, nil
	})

	_, err := c.Resolve("patreon", "777")
	require.NoError(t, err)
	_, err = c.Resolve("fanbox", "777")
	require.NoError(t, err)
	_, err = c.Resolve("patreon", "888")
	require.NoError(t, err)

	assert.EqualValues(t, 3, atomic.LoadInt64(&fetches))
	assert.Equal(t, 3, c.Len())
}

func TestResolve_FailureNotCached(t *testing.T) {
	var fetches int64
	boom := errors.New("boom")
	c := New(func(service, creatorID string) (*models.Creator, error) {
		if atomic.AddInt64(&fetches, 1) == 1 {
			return nil, boom
		}
		return &models.Creator{ID: creatorID, Service: service}, nil
	})

	_, err := c.Resolve("patreon", "777")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	creator, err := c.Resolve("patreon", "777")
	require.NoError(t, err)
	assert.Equal(t, "777", creator.ID)
	assert.EqualValues(t, 2, atomic.LoadInt64(&fetches))
}

func TestResolve_ConcurrentMissesCollapse(t *testing.T) {
	release := make(chan struct{})
	var fetches int64
	c := New(func(service, creatorID string) (*models.Creator, error) {
		atomic.AddInt64(&fetches, 1)
		<-release // Hold the fetch open so all goroutines pile up on the miss.
		return &models.Creator{ID: creatorID, Name: "artist", Service: service}, nil
	})

	const workers = 16
	results := make([]*models.Creator, workers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			creator, err := c.Resolve("patreon", "777")
			require.NoError(t, err)
			results[i] = creator
		}(i)
	}

	started.Wait()
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches), "concurrent misses for one key must collapse into a single fetch")
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}
