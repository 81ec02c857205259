// Package mongo is the document-store implementation of the user store. Email
// uniqueness is enforced by a unique index created at startup.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings needed to reach the users database.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Open connects, verifies connectivity and prepares the users collection. The
// caller owns the returned client and must disconnect it.
func Open(ctx context.Context, cfg Config) (*mongo.Client, *UserRepository, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := NewUserRepository(client.Database(cfg.Database))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo: %w", err)
	}
	return client, repo, nil
}
