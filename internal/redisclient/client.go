package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"bookstore-service/internal/models"
)

// Client caches seller inventory snapshots for storefront availability
// reads. Postgres stays the source of truth; shipment reconciliation never
// consults this cache.
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

func inventoryKey(sellerID string) string {
	return fmt.Sprintf("inventory:%s", sellerID)
}

// SetSellerInventory replaces the cached inventory snapshot for a seller
func (c *Client) SetSellerInventory(ctx context.Context, sellerID string, entries []models.InventoryEntry) error {
	key := inventoryKey(sellerID)

	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, key)
	for _, entry := range entries {
		pipe.HSet(ctx, key, entry.BookID, entry.Count)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// GetSellerInventory retrieves the cached inventory snapshot for a seller.
// A missing key is not an error: it means the cache is cold and the caller
// should fall back to the database.
func (c *Client) GetSellerInventory(ctx context.Context, sellerID string) (map[string]int, error) {
	result, err := c.rdb.HGetAll(ctx, inventoryKey(sellerID)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(result))
	for bookID, raw := range result {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad cached count for book %s: %w", bookID, err)
		}
		counts[bookID] = count
	}
	return counts, nil
}
