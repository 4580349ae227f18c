package ddbstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache(t *testing.T) {
	t.Run("empty token never hits", func(t *testing.T) {
		c := newIdempotencyCache()
		c.record("", "result", nil)
		_, _, ok := c.lookup("")
		assert.False(t, ok)
	})

	t.Run("records and replays a response", func(t *testing.T) {
		c := newIdempotencyCache()
		c.record("tok", "result", nil)
		resp, err, ok := c.lookup("tok")
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, "result", resp)
	})

	t.Run("records and replays an error", func(t *testing.T) {
		c := newIdempotencyCache()
		boom := errors.New("boom")
		c.record("tok", nil, boom)
		_, err, ok := c.lookup("tok")
		require.True(t, ok)
		assert.Equal(t, boom, err)
	})

	t.Run("unknown token misses", func(t *testing.T) {
		c := newIdempotencyCache()
		_, _, ok := c.lookup("nope")
		assert.False(t, ok)
	})

	t.Run("entries are not evicted with age", func(t *testing.T) {
		c := newIdempotencyCache()
		c.record("tok", "result", nil)
		time.Sleep(5 * time.Millisecond)
		_, _, ok := c.lookup("tok")
		assert.True(t, ok)
	})

	t.Run("a later record keeps earlier entries", func(t *testing.T) {
		c := newIdempotencyCache()
		c.record("older", "result", nil)
		time.Sleep(5 * time.Millisecond)
		c.record("fresh", "result", nil)
		c.mu.Lock()
		_, olderStillThere := c.entries["older"]
		_, freshThere := c.entries["fresh"]
		c.mu.Unlock()
		assert.True(t, olderStillThere)
		assert.True(t, freshThere)
	})
}
