package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "dedup:warranty-issuer:ev-1", DedupKey("warranty-issuer", "ev-1"))
	assert.Equal(t, "idem:hook:abc", HookKey("abc"))
}

func startRedis(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("set TEST_INTEGRATION=1 to run redis tests")
	}
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	return &Store{RDB: rdb}
}

func TestStore_ClaimRelease(t *testing.T) {
	s := startRedis(t)
	ctx := context.Background()
	key := DedupKey("test", "ev-1")

	ok, err := s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, exists, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Release(ctx, key))
	ok, err = s.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_GetSet(t *testing.T) {
	s := startRedis(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, HookKey("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, HookKey("k"), `{"created":[1]}`, time.Minute))
	v, ok, err := s.Get(ctx, HookKey("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"created":[1]}`, v)
}
