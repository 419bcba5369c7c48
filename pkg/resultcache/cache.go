package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/raptor/pkg/journey"
	"github.com/travigo/raptor/pkg/rangeraptor"
	"github.com/travigo/raptor/pkg/timetable"
)

// Cache keeps complete range query frontiers in redis, keyed by the timetable version and request.
type Cache struct {
	Cache *cache.Cache[string]
}

type entry struct {
	Journeys   []*journey.Journey `json:"journeys"`
	Departures []timetable.Time   `json:"departures"`
}

func New(client *redis.Client, expiration time.Duration) *Cache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &Cache{
		Cache: cache.New[string](redisStore),
	}
}

// Key is a functional hash of everything that influences a range query result.
func Key(version string, request rangeraptor.Request) string {
	hash := sha256.New()

	fmt.Fprintf(hash, "%s\x00%s\x00%s\x00%d\x00%d\x00%d\x00%d\x00%s\x00%d",
		version,
		request.Origin,
		request.Destination,
		request.From,
		request.To,
		request.Step,
		request.MaxRounds,
		request.Mode,
		request.Criteria.BagCap,
	)
	for _, criterion := range request.Criteria.Extra {
		fmt.Fprintf(hash, "\x00%s", criterion)
	}

	return fmt.Sprintf("raptor:range:%x", hash.Sum(nil))
}

// Get returns a cached result, or false on a miss or an unreadable entry.
func (c *Cache) Get(ctx context.Context, key string) (*rangeraptor.Result, bool) {
	value, err := c.Cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var cached entry
	if err := json.Unmarshal([]byte(value), &cached); err != nil {
		return nil, false
	}

	return &rangeraptor.Result{
		Journeys:   cached.Journeys,
		Departures: cached.Departures,
	}, true
}

// Set stores result unless it is partial. Cancelled or partly failed range queries are never cached.
func (c *Cache) Set(ctx context.Context, key string, result *rangeraptor.Result) error {
	if result.Cancelled || len(result.Failed) > 0 {
		return nil
	}

	value, err := json.Marshal(entry{
		Journeys:   result.Journeys,
		Departures: result.Departures,
	})
	if err != nil {
		return err
	}

	return c.Cache.Set(ctx, key, string(value))
}
