package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedTTL = 24 * time.Hour

// ProcessedMarker records which ledger tx refs have already been projected
// into the mirror store, so re-delivered confirmations are skipped cheaply.
// Keys expire after processedTTL: past that window the mirror upsert's
// same-tx-ref check still absorbs replays, just at Mongo cost.
// Key format: txseen:<tx_ref>
type ProcessedMarker struct {
	client *redis.Client
}

// NewProcessedMarker creates a ProcessedMarker wrapping the given Redis client.
func NewProcessedMarker(client *redis.Client) *ProcessedMarker {
	return &ProcessedMarker{client: client}
}

// Seen reports whether this submission's events have already been projected.
func (m *ProcessedMarker) Seen(ctx context.Context, txRef string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(txRef)).Result()
	if err != nil {
		return false, fmt.Errorf("processed check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this submission's events have been projected.
func (m *ProcessedMarker) Mark(ctx context.Context, txRef string) error {
	return m.client.Set(ctx, m.key(txRef), "1", processedTTL).Err()
}

func (m *ProcessedMarker) key(txRef string) string {
	return "txseen:" + txRef
}
