package dedup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbeaudouin05/subscription-reconciler/api/cache"
)

func TestMemorySet_ClaimRelease(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySet(time.Hour)

	ok, err := s.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Claim(ctx, "evt_1")
	assert.False(t, ok, "second claim must be refused")

	require.NoError(t, s.Release(ctx, "evt_1"))
	ok, _ = s.Claim(ctx, "evt_1")
	assert.True(t, ok, "released id can be claimed again")
}

func TestMemorySet_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemorySet(time.Hour)
	s.now = func() time.Time { return now }

	ok, _ := s.Claim(ctx, "evt_1")
	require.True(t, ok)
	_, _ = s.Claim(ctx, "evt_2")

	now = now.Add(2 * time.Hour)
	ok, _ = s.Claim(ctx, "evt_1")
	assert.True(t, ok, "expired claim is forgotten")
	assert.Equal(t, 1, s.Len(), "expired entries are swept")
}

func TestRedisSet_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis test in -short mode")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, cache.Initialize(ctx, url))
	defer func() { _ = cache.Close() }()

	s := NewRedisSet(cache.GetClient(), time.Minute)
	id := "test-" + uuid.NewString()
	defer func() { _ = s.Release(ctx, id) }()

	ok, err := s.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, id))
	ok, err = s.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}
