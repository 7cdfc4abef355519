//go:build integration

// Package testredis starts a throwaway Redis container for integration tests.
package testredis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"pickup/internal/store"
)

type Handle struct {
	Client *redis.Client
	cancel func()
	stop   func(context.Context) error
}

func (h *Handle) Close() {
	if h.Client != nil {
		_ = h.Client.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(ctx)
		cancel()
		return nil, err
	}

	rdb := store.NewRedis(addr)
	if err := rdb.Client.Ping(ctx).Err(); err != nil {
		_ = c.Terminate(ctx)
		cancel()
		return nil, err
	}
	return &Handle{Client: rdb.Client, cancel: cancel, stop: c.Terminate}, nil
}
