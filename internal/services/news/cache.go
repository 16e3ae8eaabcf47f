package news

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"langtutor/internal/cache"
	"langtutor/internal/models"
)

type cacheEntry struct {
	Headlines []models.NewsHeadline `json:"headlines"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// NewsCache maps (language code, count) to the last feed batch. Expiry is
// checked on read against the entry's fetch time; nothing is swept.
type NewsCache struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewNewsCache(store cache.Store, ttl time.Duration) *NewsCache {
	if ttl <= 0 {
		ttl = cache.HeadlinesTTL
	}
	return &NewsCache{store: store, ttl: ttl, now: time.Now}
}

// Get returns the cached batch when it is younger than the TTL.
func (c *NewsCache) Get(ctx context.Context, lang string, count int) ([]models.NewsHeadline, bool) {
	key := cache.HeadlinesKey(lang, count)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("News cache read failed")
		}
		return nil, false
	}

	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt news cache entry")
		return nil, false
	}
	if c.now().Sub(e.FetchedAt) >= c.ttl {
		return nil, false
	}
	return e.Headlines, true
}

// Put stores a batch stamped with the current time. Failures are logged
// only; the cache is an optimization.
func (c *NewsCache) Put(ctx context.Context, lang string, count int, headlines []models.NewsHeadline) {
	key := cache.HeadlinesKey(lang, count)
	data, err := json.Marshal(cacheEntry{Headlines: headlines, FetchedAt: c.now()})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to encode news cache entry")
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("News cache write failed")
	}
}
