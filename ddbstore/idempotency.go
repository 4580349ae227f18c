package ddbstore

import (
	"sync"
)

// idempotencyEntry records the outcome of a TransactWriteItems call keyed by
// ClientRequestToken. Once recorded, an entry is kept for as long as the
// store itself is open — a repeated call with the same token always returns
// the cached result instead of re-applying the writes, no matter how much
// time has passed.
type idempotencyEntry struct {
	response any
	err      error
}

// idempotencyCache deduplicates TransactWriteItems calls by
// ClientRequestToken: an in-memory map guarded by its own mutex, mirroring
// the shape of capacityTracker in store.go rather than introducing a new
// dependency for what's a handful of lines.
type idempotencyCache struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyCache() *idempotencyCache {
	return &idempotencyCache{
		entries: make(map[string]idempotencyEntry),
	}
}

// lookup returns a previously recorded result for token, if any. The caller
// still must have validated that the request shape matches what produced the
// cached result; a reused token with a different request is a client error,
// left to the caller to check.
func (c *idempotencyCache) lookup(token string) (any, error, bool) {
	if token == "" {
		return nil, nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[token]
	if !ok {
		return nil, nil, false
	}
	return e.response, e.err, true
}

func (c *idempotencyCache) record(token string, response any, err error) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = idempotencyEntry{response: response, err: err}
}
