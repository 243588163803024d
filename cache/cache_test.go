package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	ca, err := newRedisCache(mr.Addr(), false)
	require.NoError(t, err)
	return ca
}

func TestCacheSetGet(t *testing.T) {
	ca := newTestCache(t)
	ctx := context.Background()

	err := ca.Set(ctx, "work_item:wki_123", "needs_design_review", time.Minute)
	require.NoError(t, err)

	var got string
	err = ca.Get(ctx, "work_item:wki_123", &got)
	require.NoError(t, err)
	assert.Equal(t, "needs_design_review", got)
}

func TestCacheSetGetStruct(t *testing.T) {
	type cached struct {
		WorkItemID string
		Status     string
	}
	ca := newTestCache(t)
	ctx := context.Background()

	err := ca.Set(ctx, "work_item:wki_456", cached{WorkItemID: "wki_456", Status: "in_design"}, time.Minute)
	require.NoError(t, err)

	var got cached
	err = ca.Get(ctx, "work_item:wki_456", &got)
	require.NoError(t, err)
	assert.Equal(t, "wki_456", got.WorkItemID)
	assert.Equal(t, "in_design", got.Status)
}

func TestCacheGetMissIsNotAnError(t *testing.T) {
	ca := newTestCache(t)

	var got string
	err := ca.Get(context.Background(), "missing", &got)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheDelete(t *testing.T) {
	ca := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, ca.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, ca.Delete(ctx, "k"))

	var got string
	assert.NoError(t, ca.Get(ctx, "k", &got))
	assert.Empty(t, got)
}
