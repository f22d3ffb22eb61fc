// Package mongo implements the mirror store: MongoDB-backed repositories for
// the off-ledger shipment projection and user accounts.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	defaultTimeout = 10 * time.Second
)

// Config carries the mirror store connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes the mirror store client and verifies connectivity
// against the primary, so a booting service fails fast instead of
// discovering a dead store on its first projection write.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mirror store connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mirror store ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}
