package creemwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hundredwebs/petimage-backend/pkg/redis"
)

// IdempotencyGuard short-circuits redelivered webhooks before they hit the
// database. It is a fast path only: the purchase primary key remains the
// correctness guarantee, so losing Redis never double-applies an event.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether eventKey was already seen, marking it seen
// otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventKey string) (bool, error) {
	if eventKey == "" {
		return false, errors.New("event key is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventKey)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release clears the mark so the provider's retry of a failed delivery is
// not mistaken for a duplicate.
func (g *IdempotencyGuard) Release(ctx context.Context, eventKey string) error {
	if eventKey == "" {
		return errors.New("event key is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventKey)
	return g.store.Del(ctx, key)
}
