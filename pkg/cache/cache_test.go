package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedOrder struct {
	ID          string    `json:"id"`
	TotalAmount float64   `json:"totalAmount"`
	InvoiceURL  *string   `json:"invoiceUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	in := cachedOrder{ID: "o-1", TotalAmount: 19.98, CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Set(ctx, "order:o-1", in, time.Minute))

	var out cachedOrder
	hit, err := s.Get(ctx, "order:o-1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)

	require.NoError(t, s.Delete(ctx, "order:o-1"))
	hit, err = s.Get(ctx, "order:o-1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Delete(ctx), "deleting nothing is a no-op")
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "short", 1, 300*time.Second))
	require.NoError(t, s.Set(ctx, "forever", 2, 0))

	var v int
	hit, _ := s.Get(ctx, "short", &v)
	assert.True(t, hit)

	now = now.Add(300 * time.Second)
	hit, _ = s.Get(ctx, "short", &v)
	assert.False(t, hit, "entry expires exactly at its TTL")

	hit, _ = s.Get(ctx, "forever", &v)
	assert.True(t, hit)
	assert.Equal(t, 2, v)
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", 1, time.Second))
	require.NoError(t, s.Set(ctx, "b", 1, time.Hour))
	now = now.Add(time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := Connect(context.Background(), url, "", "")
	require.NoError(t, err)
	defer client.Close()

	exercise(t, NewRedisStore(client))
}
