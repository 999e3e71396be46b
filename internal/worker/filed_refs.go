package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"basegraph.app/intake/internal/service/issue_tracker"
	"github.com/redis/go-redis/v9"
)

const defaultFiledRefTTL = 7 * 24 * time.Hour

type redisFiledRefs struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisFiledRefs keeps filed issue refs in Redis hashes under prefix+"filed:".
// Entries only need to outlive the delivery retries, so they expire after ttl.
func NewRedisFiledRefs(client *redis.Client, prefix string, ttl time.Duration) FiledRefs {
	if ttl <= 0 {
		ttl = defaultFiledRefTTL
	}
	return &redisFiledRefs{client: client, prefix: prefix + "filed:", ttl: ttl}
}

func (r *redisFiledRefs) Get(ctx context.Context, ticketID string) (*issue_tracker.ExternalRef, error) {
	vals, err := r.client.HGetAll(ctx, r.prefix+ticketID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading filed ref: %w", err)
	}
	if vals["id"] == "" {
		return nil, nil
	}
	return &issue_tracker.ExternalRef{
		Tracker: vals["tracker"],
		ID:      vals["id"],
		URL:     vals["url"],
	}, nil
}

func (r *redisFiledRefs) Put(ctx context.Context, ticketID string, ref *issue_tracker.ExternalRef) error {
	key := r.prefix + ticketID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "tracker", ref.Tracker, "id", ref.ID, "url", ref.URL)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing filed ref: %w", err)
	}
	return nil
}
