// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"slices"
	"sync"

	"github.com/gogpu/gfx"
)

// Factory constructs an unopened device. It may return nil when the
// backend cannot be constructed at all.
type Factory func() gfx.Device

// Entry describes a registered backend.
type Entry struct {
	API gfx.API
	New Factory

	// ThreadHostile marks backends whose devices must be driven from the
	// thread that created them. They are never wrapped by the dispatch agent.
	ThreadHostile bool
}

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[gfx.API]Entry)
	// Preference order for device creation (first that initializes wins):
	// console > explicit low-level > proprietary > mid-level > legacy > headless.
	backendPriority = []gfx.API{
		gfx.APINVN,
		gfx.APIVulkan,
		gfx.APIMetal,
		gfx.APIDX12,
		gfx.APIGLES3,
		gfx.APIGLES2,
		gfx.APIHeadless,
	}
)

// Register registers a backend entry.
// This is typically called from init() functions.
// If a backend with the same API is already registered, it will be replaced.
func Register(e Entry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[e.API] = e
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(api gfx.API) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, api)
}

// Available returns the registered backends in preference order.
func Available() []gfx.API {
	registryMu.RLock()
	defer registryMu.RUnlock()

	apis := make([]gfx.API, 0, len(backends))
	for _, api := range backendPriority {
		if _, ok := backends[api]; ok {
			apis = append(apis, api)
		}
	}
	return apis
}

// IsRegistered checks if a backend for the given API is registered.
func IsRegistered(api gfx.API) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[api]
	return ok
}

// Get returns the entry registered for api.
func Get(api gfx.API) (Entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := backends[api]
	return e, ok
}

// Priority returns the default preference order.
func Priority() []gfx.API {
	return slices.Clone(backendPriority)
}

// candidates returns the order in which Create tries backends for info.
// A non-empty info.Preference replaces the default order. Disabled
// backends are skipped; the headless backend is always tried last.
func candidates(info gfx.DeviceInfo) []gfx.API {
	order := backendPriority
	if len(info.Preference) > 0 {
		order = info.Preference
	}
	out := make([]gfx.API, 0, len(order)+1)
	for _, api := range order {
		if api == gfx.APIHeadless || slices.Contains(info.Disabled, api) || slices.Contains(out, api) {
			continue
		}
		out = append(out, api)
	}
	return append(out, gfx.APIHeadless)
}
