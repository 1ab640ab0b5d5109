package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/reviewlabel/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis starts an in-memory Redis and returns a connected RedisCache.
func setupRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	return rc, mr
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("not a url")
	assert.Error(t, err)
}

// --- Ping ---

func TestPing(t *testing.T) {
	rc, _ := setupRedis(t)
	assert.NoError(t, rc.Ping(context.Background()))
}

func TestPing_ServerDown(t *testing.T) {
	rc, mr := setupRedis(t)
	mr.Close()
	assert.Error(t, rc.Ping(context.Background()))
}

// --- Set / Get roundtrip ---

func TestSetGet_Roundtrip(t *testing.T) {
	rc, _ := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "test:key", []byte(`{"label":"Valid"}`), 10*time.Second)
	require.NoError(t, err)

	val, found, err := rc.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"label":"Valid"}`), val)
}

func TestGet_NotFound(t *testing.T) {
	rc, _ := setupRedis(t)

	val, found, err := rc.Get(context.Background(), "nonexistent:key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestSet_TTLExpiry(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "expiry:key", []byte("temp"), time.Second))

	_, found, err := rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.True(t, found)

	mr.FastForward(2 * time.Second)

	_, found, err = rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- Delete ---

func TestDelete(t *testing.T) {
	rc, _ := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "del:key", []byte("bye"), 10*time.Second))
	require.NoError(t, rc.Delete(ctx, "del:key"))

	_, found, err := rc.Get(ctx, "del:key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_NonExistent(t *testing.T) {
	rc, _ := setupRedis(t)
	assert.NoError(t, rc.Delete(context.Background(), "does:not:exist"))
}

// --- Run Status ---

func TestSetGetRunStatus(t *testing.T) {
	rc, _ := setupRedis(t)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, rc.SetRunStatus(ctx, runID, "running", 10*time.Second))

	status, found, err := rc.GetRunStatus(ctx, runID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "running", status)
}

func TestGetRunStatus_NotFound(t *testing.T) {
	rc, _ := setupRedis(t)

	status, found, err := rc.GetRunStatus(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", status)
}

// --- Counters ---

func TestIncrWithExpiry(t *testing.T) {
	rc, _ := setupRedis(t)
	ctx := context.Background()
	key := cache.RunProgressKey(uuid.New())

	for want := int64(1); want <= 3; want++ {
		val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}

	n, err := rc.GetCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIncrWithExpiry_Expires(t *testing.T) {
	rc, mr := setupRedis(t)
	ctx := context.Background()
	key := cache.RunProgressKey(uuid.New())

	_, err := rc.IncrWithExpiry(ctx, key, time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestGetCounter_Missing(t *testing.T) {
	rc, _ := setupRedis(t)
	n, err := rc.GetCounter(context.Background(), "run:missing:done")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// --- Cache Key Builders ---

func TestResponseKey(t *testing.T) {
	key := cache.ResponseKey("qwen-plus", "policyhash", "inputhash")
	assert.Equal(t, "classify:qwen-plus:policyhash:inputhash", key)
}

func TestRunStatusKey(t *testing.T) {
	runID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "run:22222222-2222-2222-2222-222222222222", cache.RunStatusKey(runID))
	assert.Equal(t, "run:22222222-2222-2222-2222-222222222222:done", cache.RunProgressKey(runID))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	runID := uuid.New()

	keys := map[string]bool{
		cache.ResponseKey("m", "p", "i"): true,
		cache.RunStatusKey(runID):        true,
		cache.RunProgressKey(runID):      true,
	}
	assert.Len(t, keys, 3, "all keys should be unique")
}
