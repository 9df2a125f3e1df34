// internal/domain/cart/repository.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository is the cart persistence port
type Repository interface {
	// Load returns nil when no cart is stored under key.
	Load(ctx context.Context, key string) (*Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, key string) error
}

// SessionKey is the cart key of an anonymous browsing session
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// UserKey is the cart key of an authenticated user
func UserKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// RedisRepository stores carts as JSON documents with a sliding TTL
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a redis-backed cart repository
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) key(key string) string {
	return "cart:" + key
}

func (r *RedisRepository) Load(ctx context.Context, key string) (*Cart, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &c, nil
}

func (r *RedisRepository) Save(ctx context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := r.client.Set(ctx, r.key(c.Key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// MemoryRepository keeps carts in process memory
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewMemoryRepository creates an empty in-memory cart repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string][]byte)}
}

// Carts are stored serialized so callers never share item slices with the store.

func (r *MemoryRepository) Load(_ context.Context, key string) (*Cart, error) {
	r.mu.RLock()
	data, ok := r.carts[key]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MemoryRepository) Save(_ context.Context, c Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.carts[c.Key] = data
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.carts, key)
	r.mu.Unlock()
	return nil
}
