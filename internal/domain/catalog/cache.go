// internal/domain/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const variantCacheKey = "catalog:variant:%d"

// CachedRepository is a read-through redis cache in front of a Repository.
// Only variant lookups are cached; every write that can change a variant deletes its key.
type CachedRepository struct {
	Repository
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger logrus.FieldLogger
}

// NewCachedRepository wraps inner with a variant cache
func NewCachedRepository(inner Repository, redisClient *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *CachedRepository {
	return &CachedRepository{
		Repository: inner,
		redis:      redisClient,
		ttl:        ttl,
		logger:     logger,
	}
}

func (c *CachedRepository) GetVariant(ctx context.Context, id uint) (*Variant, error) {
	key := fmt.Sprintf(variantCacheKey, id)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var v Variant
		if err := json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WithError(err).WithField("variant_id", id).Warn("variant cache read failed")
	}

	res, err, _ := c.group.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		v, err := c.Repository.GetVariant(ctx, id)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(v); err == nil {
			if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.WithError(err).WithField("variant_id", id).Warn("variant cache write failed")
			}
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	v := *res.(*Variant)
	return &v, nil
}

func (c *CachedRepository) UpdateVariant(ctx context.Context, v *Variant) error {
	if err := c.Repository.UpdateVariant(ctx, v); err != nil {
		return err
	}
	c.Invalidate(ctx, v.ID)
	return nil
}

func (c *CachedRepository) DeleteVariant(ctx context.Context, id uint) error {
	if err := c.Repository.DeleteVariant(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// UpdateProduct drops the cached variants of the product since they embed it.
func (c *CachedRepository) UpdateProduct(ctx context.Context, p *Product) error {
	if err := c.Repository.UpdateProduct(ctx, p); err != nil {
		return err
	}
	c.invalidateProduct(ctx, p.ID)
	return nil
}

func (c *CachedRepository) DeleteProduct(ctx context.Context, id uint) error {
	c.invalidateProduct(ctx, id)
	return c.Repository.DeleteProduct(ctx, id)
}

// Invalidate removes cached variants by id
func (c *CachedRepository) Invalidate(ctx context.Context, variantIDs ...uint) {
	if len(variantIDs) == 0 {
		return
	}
	keys := make([]string, len(variantIDs))
	for i, id := range variantIDs {
		keys[i] = fmt.Sprintf(variantCacheKey, id)
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("variant_ids", variantIDs).Warn("variant cache invalidation failed")
	}
}

func (c *CachedRepository) invalidateProduct(ctx context.Context, productID uint) {
	p, err := c.Repository.GetProduct(ctx, productID)
	if err != nil {
		return
	}
	ids := make([]uint, len(p.Variants))
	for i, v := range p.Variants {
		ids[i] = v.ID
	}
	c.Invalidate(ctx, ids...)
}
