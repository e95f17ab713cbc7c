package kv

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"eclassbot-backend/internal/components/chrono"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func exercise(t *testing.T, store API, expire func(time.Duration)) {
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "notify:a", "1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetNX(ctx, "notify:a", "1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "payload", `{"x":1}`, time.Minute))
	value, ok, err := store.Get(ctx, "payload")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"x":1}`, value)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Del(ctx, "payload"))
	exists, err := store.Exists(ctx, "payload")
	require.NoError(t, err)
	require.False(t, exists)

	if expire == nil {
		return
	}
	expire(2 * time.Minute)
	ok, err = store.SetNX(ctx, "notify:a", "1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "key should be claimable again after its ttl")
}

func TestMemory(t *testing.T) {
	clock := chrono.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	store := NewMemory(clock)
	exercise(t, store, clock.Advance)
	require.ElementsMatch(t, []string{"notify:a"}, store.Keys())
}

func TestRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
	})
	if err != nil {
		t.Skipf("could not start redis container: %v", err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := NewRedisClient(Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer client.Close()
	store := NewRedis(client)
	require.True(t, store.Healthy(ctx))

	exercise(t, store, nil)
}
