package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_ExpiresEntries(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("alice", true)
	v, ok := c.Get("alice")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCache_Sweep(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	c.Set("b", 2)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("b")
	assert.True(t, ok)
}
