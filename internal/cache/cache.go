package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"autoparts/catalog/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "autoparts:"

// Cache keeps upstream lookups that are expensive and change rarely.
// A miss is reported as a nil result with a nil error.
type Cache interface {
	GetCategoryTree(ctx context.Context, q domain.VehicleQuery) (*domain.CategoryTree, error)
	SetCategoryTree(ctx context.Context, q domain.VehicleQuery, tree *domain.CategoryTree) error
	GetFitment(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error)
	SetFitment(ctx context.Context, vehicleID, productGroupID, countryID int64, ids []int64) error
}

type redisCache struct {
	redisClient *redis.Client
	categoryTTL time.Duration
	fitmentTTL  time.Duration
}

func NewRedisCache(redisClient *redis.Client, categoryTTL, fitmentTTL time.Duration) Cache {
	return &redisCache{
		redisClient: redisClient,
		categoryTTL: categoryTTL,
		fitmentTTL:  fitmentTTL,
	}
}

func categoryKey(q domain.VehicleQuery) string {
	version := q.Version.String()
	if version == "" {
		version = "auto"
	}
	return fmt.Sprintf("%scategories:%s:%d:%d:%d", keyPrefix, version, q.ManufacturerID, q.VehicleID, q.CountryID)
}

func fitmentKey(vehicleID, productGroupID, countryID int64) string {
	return fmt.Sprintf("%sfitment:%d:%d:%d", keyPrefix, vehicleID, productGroupID, countryID)
}

func (c *redisCache) GetCategoryTree(ctx context.Context, q domain.VehicleQuery) (*domain.CategoryTree, error) {
	key := categoryKey(q)
	val, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category tree %s: %w", key, err)
	}

	var tree domain.CategoryTree
	if err := json.Unmarshal(val, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode category tree %s: %w", key, err)
	}
	return &tree, nil
}

func (c *redisCache) SetCategoryTree(ctx context.Context, q domain.VehicleQuery, tree *domain.CategoryTree) error {
	key := categoryKey(q)
	val, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode category tree %s: %w", key, err)
	}

	if err := c.redisClient.Set(ctx, key, val, c.categoryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set category tree %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) GetFitment(ctx context.Context, vehicleID, productGroupID, countryID int64) ([]int64, error) {
	key := fitmentKey(vehicleID, productGroupID, countryID)
	val, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fitment %s: %w", key, err)
	}

	ids, err := decodeIDs(val)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fitment %s: %w", key, err)
	}
	return ids, nil
}

func (c *redisCache) SetFitment(ctx context.Context, vehicleID, productGroupID, countryID int64, ids []int64) error {
	key := fitmentKey(vehicleID, productGroupID, countryID)
	if err := c.redisClient.Set(ctx, key, encodeIDs(ids), c.fitmentTTL).Err(); err != nil {
		return fmt.Errorf("failed to set fitment %s: %w", key, err)
	}
	return nil
}

// Fitment sets are stored as comma separated ids.
func encodeIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func decodeIDs(val string) ([]int64, error) {
	if val == "" {
		return []int64{}, nil
	}

	parts := strings.Split(val, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
