// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
)

// shaderCacheCapacity bounds the number of compiled modules kept.
const shaderCacheCapacity = 64

// spirvCache is an LRU of compiled SPIR-V keyed by WGSL source.
// Failed compilations are not cached.
type spirvCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List

	hits   atomic.Uint64
	misses atomic.Uint64
}

type spirvEntry struct {
	source string
	words  []uint32
}

func newSPIRVCache(capacity int) *spirvCache {
	return &spirvCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// shaders is shared by every device; SPIR-V does not depend on the device.
var shaders = newSPIRVCache(shaderCacheCapacity)

// getOrCompile returns the SPIR-V of source, compiling it on a miss. The
// lock is held while compiling so concurrent misses compile once.
func (c *spirvCache) getOrCompile(source string, compile func(string) ([]uint32, error)) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[source]; ok {
		c.lru.MoveToFront(e)
		c.hits.Add(1)
		return e.Value.(*spirvEntry).words, nil
	}
	c.misses.Add(1)
	words, err := compile(source)
	if err != nil {
		return nil, err
	}
	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*spirvEntry).source)
	}
	c.entries[source] = c.lru.PushFront(&spirvEntry{source: source, words: words})
	return words, nil
}

func (c *spirvCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CompileShaderToSPIRV compiles WGSL source to SPIR-V words. Results are
// cached by source.
func CompileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	return shaders.getOrCompile(wgslSource, compileSPIRV)
}

func compileSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}
