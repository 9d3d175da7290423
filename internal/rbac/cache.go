package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	principalCachePrefix      = "rbac:principal:"
	principalGenerationPrefix = "rbac:principal_gen:"
	// generationTTL only has to outlive a single in-flight load.
	generationTTL = 24 * time.Hour
)

// Cache keeps profile records in Redis so every guarded request does not hit Postgres.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached record. The bool is false on a miss.
func (c *Cache) Get(ctx context.Context, id uuid.UUID) (ProfileRecord, bool, error) {
	if c == nil || c.client == nil {
		return ProfileRecord{}, false, nil
	}
	payload, err := c.client.Get(ctx, principalCachePrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ProfileRecord{}, false, nil
		}
		return ProfileRecord{}, false, err
	}
	var rec ProfileRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return ProfileRecord{}, false, err
	}
	return rec, true, nil
}

// Generation returns the invalidation counter of a principal. A loader reads
// it before querying Postgres and passes it to SetIfCurrent.
func (c *Cache) Generation(ctx context.Context, id uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, principalGenerationPrefix+id.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetIfCurrent stores a record for the configured TTL unless the principal
// was invalidated after gen was read. It reports whether the record was stored.
func (c *Cache) SetIfCurrent(ctx context.Context, rec ProfileRecord, gen int64) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	genKey := principalGenerationPrefix + rec.ID.String()
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, principalCachePrefix+rec.ID.String(), payload, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate drops the cached record and bumps its generation so loads that
// started earlier cannot store their result.
func (c *Cache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	genKey := principalGenerationPrefix + id.String()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, principalCachePrefix+id.String())
		return nil
	})
	return err
}
