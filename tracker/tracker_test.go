// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tracker

import (
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/gfx"
)

type fakeSampler struct {
	gfx.Sampler
	id uint32
}

func (s *fakeSampler) TypedID() uint32            { return s.id }
func (s *fakeSampler) ObjectType() gfx.ObjectType { return gfx.ObjectSampler }

func TestRegistryPushLookupErase(t *testing.T) {
	r := New[gfx.Sampler](gfx.ObjectSampler)
	s := &fakeSampler{id: 3}
	r.Push(s)

	got, ok := r.Lookup(3)
	if !ok || got != s {
		t.Fatalf("Lookup(3) = %v, %v; want pushed sampler", got, ok)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if !r.Erase(3) {
		t.Error("Erase(3) = false, want true")
	}
	if r.Erase(3) {
		t.Error("second Erase(3) = true, want false")
	}
	if _, ok := r.Lookup(3); ok {
		t.Error("Lookup(3) after Erase succeeded")
	}
}

func TestRegistryLiveSorted(t *testing.T) {
	r := New[gfx.Sampler](gfx.ObjectSampler)
	for _, id := range []uint32{9, 2, 5} {
		r.Push(&fakeSampler{id: id})
	}
	if got, want := r.Live(), []uint32{2, 5, 9}; !slices.Equal(got, want) {
		t.Errorf("Live() = %v, want %v", got, want)
	}
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", r.Len())
	}
}

func TestLeaks(t *testing.T) {
	ResetAll()
	defer ResetAll()

	Samplers.Push(&fakeSampler{id: 4})
	Samplers.Push(&fakeSampler{id: 1})

	leaks := Leaks()
	want := []Leak{{gfx.ObjectSampler, 1}, {gfx.ObjectSampler, 4}}
	if !slices.Equal(leaks, want) {
		t.Errorf("Leaks() = %v, want %v", leaks, want)
	}
}

func TestRegistryConcurrent(t *testing.T) {
	r := New[gfx.Sampler](gfx.ObjectSampler)
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			r.Push(&fakeSampler{id: id})
			r.Lookup(id)
			r.Live()
		}(uint32(i + 1))
	}
	wg.Wait()
	if r.Len() != 64 {
		t.Errorf("Len() = %d, want 64", r.Len())
	}
}
