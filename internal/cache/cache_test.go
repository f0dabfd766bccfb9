package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type snapshot struct {
	Total int `json:"total"`
}

func TestNopAlwaysMisses(t *testing.T) {
	var c Cache[snapshot] = NewNop[snapshot]()
	ctx := context.Background()

	c.Set(ctx, "u1", &snapshot{Total: 3})
	got, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Nil(t, got)
	c.Invalidate(ctx, "u1")
}

func TestRedisUnavailableIsAMiss(t *testing.T) {
	client := NewRedisClient(Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	var c Cache[snapshot] = NewRedis[snapshot](client, "trademind:test:", time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Set(ctx, "u1", &snapshot{Total: 3})
	got, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Nil(t, got)
	c.Invalidate(ctx, "u1")
}
