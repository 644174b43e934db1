package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sales-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const productCacheTTL = 5 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// GetProduct returns the cached product, or (nil, nil) on a miss.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		// a corrupt entry behaves like a miss
		_ = c.rdb.Del(ctx, productKey(id)).Err()
		return nil, nil
	}
	return &product, nil
}

// SetProduct caches a product with a TTL.
func (c *Client) SetProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product %d: %w", p.ID, err)
	}
	return c.rdb.Set(ctx, productKey(p.ID), data, productCacheTTL).Err()
}

// InvalidateProduct drops a product from the cache. Called after every
// stock or catalog mutation.
func (c *Client) InvalidateProduct(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, productKey(id)).Err()
}

func dailyReportKey(day time.Time) string {
	return fmt.Sprintf("report:daily:%s", day.UTC().Format("2006-01-02"))
}

// IncrDailyReport bumps the cached per-day sales counters. Used by the
// report worker when an order finishes.
func (c *Client) IncrDailyReport(ctx context.Context, day time.Time, totalValue int64) error {
	key := dailyReportKey(day)

	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "orders_count", 1)
	pipe.HIncrBy(ctx, key, "total_value", totalValue)
	pipe.Expire(ctx, key, 48*time.Hour)

	_, err := pipe.Exec(ctx)
	return err
}

// GetDailyReport reads the cached per-day counters. Zero counters when the
// day has no entry; a corrupt entry is dropped and reads as empty.
func (c *Client) GetDailyReport(ctx context.Context, day time.Time) (ordersCount int64, totalValue int64, err error) {
	key := dailyReportKey(day)
	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	ordersCount, totalValue, err = parseDailyCounters(result)
	if err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return 0, 0, nil
	}
	return ordersCount, totalValue, nil
}

func parseDailyCounters(fields map[string]string) (int64, int64, error) {
	ordersCount, err := parseCounter(fields, "orders_count")
	if err != nil {
		return 0, 0, err
	}
	totalValue, err := parseCounter(fields, "total_value")
	if err != nil {
		return 0, 0, err
	}
	return ordersCount, totalValue, nil
}

func parseCounter(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	return v, nil
}
