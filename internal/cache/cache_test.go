package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leafscan/internal/models"
)

func samplePlan() *models.RemedyPlan {
	return &models.RemedyPlan{
		MedicineName: "Mancozeb",
		HowToUse:     "Spray every 7 days.",
		Steps:        []string{"Remove infected leaves", "Spray fungicide", "Avoid overhead watering"},
	}
}

func TestMemoryPlanCache_RoundTrip(t *testing.T) {
	c := NewMemoryPlanCache(time.Minute)
	ctx := context.Background()

	_, ok, err := c.GetPlan(ctx, "tomato early blight")
	require.NoError(t, err)
	assert.False(t, ok)

	plan := samplePlan()
	require.NoError(t, c.SetPlan(ctx, "tomato early blight", plan))

	// mutating the caller's copy must not leak into the cache
	plan.Steps[0] = "changed"

	got, ok, err := c.GetPlan(ctx, "tomato early blight")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, samplePlan(), got)
	assert.Equal(t, 1, c.Status(ctx)["items"])
}

func TestMemoryPlanCache_Expires(t *testing.T) {
	c := NewMemoryPlanCache(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.SetPlan(ctx, "k", samplePlan()))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := c.GetPlan(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisPlanCache_InvalidURL(t *testing.T) {
	c, err := NewRedisPlanCache(context.Background(), "://not-a-url", time.Minute)
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestRedisPlanCache_UnreachableServerReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newRedisPlanCache(client, time.Minute)
	defer c.Close()

	_, ok, err := c.GetPlan(context.Background(), "k")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to get plan from Redis")

	err = c.SetPlan(context.Background(), "k", samplePlan())
	assert.ErrorContains(t, err, "failed to store plan in Redis")

	assert.Error(t, c.Ping(context.Background()))
	assert.Equal(t, false, c.Status(context.Background())["connected"])
}
