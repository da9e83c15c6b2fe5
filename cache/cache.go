// Package cache implements the chunk cache: a fixed-capacity store of
// decompressed chunk payloads keyed by chunk index, used to satisfy
// repeated or overlapping reads without re-fetching and re-decompressing
// the backing segment data.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the chunk count used when a handle does not
// configure CacheCapacity explicitly.
const DefaultCapacity = 128

// ChunkCache holds recently read, decompressed chunk payloads.
type ChunkCache struct {
	lru *lru.Cache[int, []byte]
}

// New builds a ChunkCache able to hold up to capacity chunk payloads.
// capacity <= 0 selects DefaultCapacity.
func New(capacity int) (*ChunkCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[int, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &ChunkCache{lru: l}, nil
}

// Get returns the cached payload for a chunk index, if present.
func (c *ChunkCache) Get(chunkIndex int) ([]byte, bool) {
	return c.lru.Get(chunkIndex)
}

// Put stores a chunk's decompressed payload, evicting the least
// recently used entry if the cache is at capacity.
func (c *ChunkCache) Put(chunkIndex int, payload []byte) {
	c.lru.Add(chunkIndex, payload)
}

// Invalidate drops a single chunk from the cache — used when a write
// overwrites an already-cached chunk's bytes.
func (c *ChunkCache) Invalidate(chunkIndex int) {
	c.lru.Remove(chunkIndex)
}

// Purge drops every cached chunk, used on Abort and on reopening a
// handle against rewritten segment data.
func (c *ChunkCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of chunks currently cached.
func (c *ChunkCache) Len() int {
	return c.lru.Len()
}
