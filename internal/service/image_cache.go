package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/logger"
)

const imageCacheKeyPrefix = "mealplan:image:"

// ImageGenerator produces an image reference for a recipe.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.ImageRequest) (domain.ImageResult, error)
}

// URLCache stores image URLs by recipe ID. Get returns "" on a miss.
type URLCache interface {
	Get(ctx context.Context, recipeID string) (string, error)
	Set(ctx context.Context, recipeID, url string) error
}

// RedisURLCache is a URLCache backed by Redis.
type RedisURLCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisURLCache connects to Redis and verifies the connection.
func NewRedisURLCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisURLCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisURLCache{client: client, ttl: ttl}, nil
}

// Get returns the cached URL for a recipe, or "" on a miss.
func (c *RedisURLCache) Get(ctx context.Context, recipeID string) (string, error) {
	url, err := c.client.Get(ctx, imageCacheKeyPrefix+recipeID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return url, nil
}

// Set stores a URL with the configured TTL.
func (c *RedisURLCache) Set(ctx context.Context, recipeID, url string) error {
	if err := c.client.Set(ctx, imageCacheKeyPrefix+recipeID, url, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisURLCache) Close() error {
	return c.client.Close()
}

// CachedImageGenerator serves repeat recipes from the cache instead of
// generating a new image. Cache errors degrade to a normal generation.
type CachedImageGenerator struct {
	next  ImageGenerator
	cache URLCache
}

// NewCachedImageGenerator wraps next with cache.
func NewCachedImageGenerator(next ImageGenerator, cache URLCache) *CachedImageGenerator {
	return &CachedImageGenerator{next: next, cache: cache}
}

// Generate returns a cached image when present, otherwise delegates and caches
// a successful result.
func (g *CachedImageGenerator) Generate(ctx context.Context, req domain.ImageRequest) (domain.ImageResult, error) {
	log := logger.FromContext(ctx).WithField(logger.FieldRecipeID, req.RecipeID)

	if req.RecipeID != "" {
		url, err := g.cache.Get(ctx, req.RecipeID)
		if err != nil {
			log.WithError(err).Warn("Image cache lookup failed")
		} else if url != "" {
			log.Debug("Image cache hit")
			return domain.ImageResult{Success: true, ImageURL: url}, nil
		}
	}

	res, err := g.next.Generate(ctx, req)
	if err != nil || !res.Success || res.ImageURL == "" || req.RecipeID == "" {
		return res, err
	}
	if err := g.cache.Set(ctx, req.RecipeID, res.ImageURL); err != nil {
		log.WithError(err).Warn("Image cache store failed")
	}
	return res, nil
}
