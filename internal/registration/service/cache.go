package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
)

// RelatedCache is a best-effort read cache for related-entity lookups. Misses
// and failures fall through to the store; writes invalidate the touched org.
type RelatedCache interface {
	Get(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID) ([]models.RelatedEntity, bool)
	Set(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID, related []models.RelatedEntity)
	Invalidate(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID)
}

// defaultRelatedTTL bounds staleness for entries writes could not invalidate,
// such as a shared entity's value update fanning out to unknown orgs.
const defaultRelatedTTL = 30 * time.Second

// RedisRelatedCache caches related-entity responses in Redis. All failures
// are logged and treated as misses.
type RedisRelatedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisRelatedCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisRelatedCache {
	if ttl <= 0 {
		ttl = defaultRelatedTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelatedCache{client: client, ttl: ttl, logger: logger}
}

func relatedKey(source models.Source, orgID domain.EntityID, programID domain.ProgramID) string {
	return fmt.Sprintf("related:%s:%s:%s", source, orgID, programID)
}

func (c *RedisRelatedCache) Get(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID) ([]models.RelatedEntity, bool) {
	key := relatedKey(source, orgID, programID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "related cache read failed", "key", key, "error", err)
		return nil, false
	}
	var related []models.RelatedEntity
	if err := json.Unmarshal(payload, &related); err != nil {
		c.logger.WarnContext(ctx, "related cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return related, true
}

func (c *RedisRelatedCache) Set(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID, related []models.RelatedEntity) {
	key := relatedKey(source, orgID, programID)
	payload, err := json.Marshal(related)
	if err != nil {
		c.logger.WarnContext(ctx, "related cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "related cache write failed", "key", key, "error", err)
	}
}

func (c *RedisRelatedCache) Invalidate(ctx context.Context, source models.Source, orgID domain.EntityID, programID domain.ProgramID) {
	key := relatedKey(source, orgID, programID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "related cache invalidation failed", "key", key, "error", err)
	}
}
