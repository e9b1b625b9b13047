package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/Domenick1991/trainbooking/config"
	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds availability query results per route. Each route has a
// version counter that every ledger mutation bumps; results are stored under
// the version observed before the database read, so a fill that raced with a
// mutation lands on a key nobody reads again. Entries expire after ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

// GetAvailability returns the route's current version and the results cached
// for it. A miss returns nil results without error.
func (c *RedisCache) GetAvailability(ctx context.Context, source, destination string) ([]domain.TrainAvailability, int64, error) {
	version, err := c.client.Get(ctx, versionKey(source, destination)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, availabilityKey(source, destination, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, nil
		}
		return nil, version, err
	}

	var trains []domain.TrainAvailability
	if err := json.Unmarshal(data, &trains); err != nil {
		return nil, version, err
	}
	return trains, version, nil
}

// SetAvailability stores results read after version was observed.
func (c *RedisCache) SetAvailability(ctx context.Context, source, destination string, version int64, trains []domain.TrainAvailability) error {
	payload, err := json.Marshal(trains)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(source, destination, version), payload, c.ttl).Err()
}

// InvalidateAvailability bumps the route version, orphaning every cached
// result including fills still in flight.
func (c *RedisCache) InvalidateAvailability(ctx context.Context, source, destination string) error {
	return c.client.Incr(ctx, versionKey(source, destination)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func routeKey(source, destination string) string {
	return url.QueryEscape(source) + ":" + url.QueryEscape(destination)
}

func versionKey(source, destination string) string {
	return "cache:availability:version:" + routeKey(source, destination)
}

func availabilityKey(source, destination string, version int64) string {
	return "cache:availability:" + routeKey(source, destination) + ":v" + strconv.FormatInt(version, 10)
}
