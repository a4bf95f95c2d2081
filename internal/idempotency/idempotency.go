package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/hotel-reservations/internal/adapters/redis"
)

// Idempotency stores the first response produced for a given Idempotency-Key
// so repeated submissions replay it instead of re-running the operation.
type Idempotency struct {
	store *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(store *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.store.Set(ctx, key, redisadapter.IdempResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
