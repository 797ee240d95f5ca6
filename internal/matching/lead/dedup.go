package lead

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupWindow suppresses re-emission of a lead for the same
// (preference, listing) pair within the configured TTL. It is best-effort:
// callers treat a Redis error as "not seen" so lead flow is never blocked by
// the cache.
type DedupWindow struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupWindow(client *redis.Client, ttl time.Duration) *DedupWindow {
	return &DedupWindow{client: client, ttl: ttl}
}

func dedupKey(preferenceID, propertyID string) string {
	return fmt.Sprintf("lead:seen:%s:%s", preferenceID, propertyID)
}

// Seen reports whether the pairing was marked within the window.
func (w *DedupWindow) Seen(ctx context.Context, preferenceID, propertyID string) (bool, error) {
	n, err := w.client.Exists(ctx, dedupKey(preferenceID, propertyID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the pairing for the window TTL. Callers mark only after a
// successful publish, so a lead whose publish failed is retried on the next
// cycle instead of being suppressed.
func (w *DedupWindow) Mark(ctx context.Context, preferenceID, propertyID string) error {
	if err := w.client.Set(ctx, dedupKey(preferenceID, propertyID), 1, w.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}
