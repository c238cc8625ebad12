// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tracker keeps process-wide registries of live device objects.
//
// The validator pushes every object it wraps into the registry for the
// object's kind and erases it on Destroy. Whatever is left when the device
// is destroyed has leaked.
package tracker

import (
	"slices"
	"sync"

	"github.com/gogpu/gfx"
)

// Registry maps typed IDs of one object kind to their tracking wrappers.
// It is safe for concurrent use.
type Registry[T gfx.Object] struct {
	kind gfx.ObjectType

	mu      sync.RWMutex
	entries map[uint32]T
}

// New creates an empty registry for objects of the given kind.
func New[T gfx.Object](kind gfx.ObjectType) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[uint32]T)}
}

// Process-wide registries, one per object kind.
var (
	Buffers              = New[gfx.Buffer](gfx.ObjectBuffer)
	Textures             = New[gfx.Texture](gfx.ObjectTexture)
	Samplers             = New[gfx.Sampler](gfx.ObjectSampler)
	Shaders              = New[gfx.Shader](gfx.ObjectShader)
	DescriptorSetLayouts = New[gfx.DescriptorSetLayout](gfx.ObjectDescriptorSetLayout)
	DescriptorSets       = New[gfx.DescriptorSet](gfx.ObjectDescriptorSet)
	Swapchains           = New[gfx.Swapchain](gfx.ObjectSwapchain)
	CommandBuffers       = New[gfx.CommandBuffer](gfx.ObjectCommandBuffer)
)

// Kind returns the object kind tracked by r.
func (r *Registry[T]) Kind() gfx.ObjectType { return r.kind }

// Push records obj under its typed ID, replacing any previous entry.
func (r *Registry[T]) Push(obj T) {
	r.mu.Lock()
	r.entries[obj.TypedID()] = obj
	r.mu.Unlock()
}

// Erase removes the entry for id. It reports whether an entry existed.
func (r *Registry[T]) Erase(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Lookup returns the wrapper registered for id.
func (r *Registry[T]) Lookup(id uint32) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.entries[id]
	return obj, ok
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Live returns the typed IDs of all live entries in ascending order.
func (r *Registry[T]) Live() []uint32 {
	r.mu.RLock()
	ids := make([]uint32, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Reset drops every entry.
func (r *Registry[T]) Reset() {
	r.mu.Lock()
	clear(r.entries)
	r.mu.Unlock()
}

// Leak is a live object found by Leaks.
type Leak struct {
	Kind gfx.ObjectType
	ID   uint32
}

// auditor is the kind-erased view of a registry used by Leaks.
type auditor interface {
	Kind() gfx.ObjectType
	Live() []uint32
	Reset()
}

func all() []auditor {
	return []auditor{
		Buffers, Textures, Samplers, Shaders,
		DescriptorSetLayouts, DescriptorSets, Swapchains, CommandBuffers,
	}
}

// Leaks returns every live object across all process-wide registries,
// ordered by kind and then by typed ID.
func Leaks() []Leak {
	var leaks []Leak
	for _, r := range all() {
		for _, id := range r.Live() {
			leaks = append(leaks, Leak{Kind: r.Kind(), ID: id})
		}
	}
	return leaks
}

// ResetAll empties every process-wide registry.
func ResetAll() {
	for _, r := range all() {
		r.Reset()
	}
}
