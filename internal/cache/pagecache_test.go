package cache

import (
	"context"
	"testing"
	"time"

	"resumeflow/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisPageCacheLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisPageCache(client, time.Hour)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found)

	res := models.PageExtractionResult{
		PageNumber:      2,
		ImageURL:        "https://blobs/p2.png",
		MarkdownContent: "## Experience",
		Metadata:        models.PageMetadata{Confidence: 1, Elements: []string{"date"}},
	}
	require.NoError(t, c.Put(ctx, "k1", res))

	got, found, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, res.MarkdownContent, got.MarkdownContent)
	require.Equal(t, 2, got.PageNumber)

	mr.FastForward(2 * time.Hour)
	_, found, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found, "entry should expire after ttl")
}

func TestDialFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := Dial(context.Background(), addr, time.Minute)
	require.Error(t, err)
}
