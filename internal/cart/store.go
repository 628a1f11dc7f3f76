package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart"

// Store persists carts between requests of the same shopper session.
type Store interface {
	Get(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, id string) error
}

type redisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a Store that keeps each cart as JSON with a sliding TTL.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl, now: time.Now}
}

func cartKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}

// Get returns the stored cart, or an empty one when none exists.
func (s *redisStore) Get(ctx context.Context, id string) (Cart, error) {
	data, err := s.client.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(id), nil
		}
		return Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	c.ID = id
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	return c, nil
}

// Save writes the cart and refreshes its TTL. Empty carts are deleted.
func (s *redisStore) Save(ctx context.Context, c Cart) error {
	if c.IsEmpty() {
		return s.Delete(ctx, c.ID)
	}

	c.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
