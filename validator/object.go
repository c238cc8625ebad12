// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package validator

import (
	"sync"

	"github.com/gogpu/gfx"
)

// object is the lifecycle state shared by every validator wrapper.
type object[T gfx.Object] struct {
	dev   *Device
	inner T
	id    uint32
	kind  gfx.ObjectType

	mu          sync.Mutex
	initialized bool
	destroyed   bool
	borrowed    bool // owned by a swapchain
}

func newObject[T gfx.Object](d *Device, inner T) object[T] {
	return object[T]{dev: d, inner: inner, id: inner.TypedID(), kind: inner.ObjectType()}
}

func (o *object[T]) TypedID() uint32            { return o.id }
func (o *object[T]) ObjectType() gfx.ObjectType { return o.kind }
func (o *object[T]) unwrapped() gfx.Object      { return o.inner }

func (o *object[T]) violation(op string, err error) error {
	return o.dev.violation(op, o, err)
}

// usable fails unless the object is initialized and not destroyed.
func (o *object[T]) usable(op string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.destroyed:
		return o.violation(op, gfx.ErrDestroyed)
	case !o.initialized:
		return o.violation(op, gfx.ErrNotInitialized)
	}
	return nil
}

func (o *object[T]) isUsable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initialized && !o.destroyed
}

// initialize runs fn once for a fresh object and marks it initialized on
// success.
func (o *object[T]) initialize(op string, fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.destroyed:
		return o.violation(op, gfx.ErrDestroyed)
	case o.initialized:
		return o.violation(op, gfx.ErrAlreadyInitialized)
	}
	if err := fn(); err != nil {
		return err
	}
	o.initialized = true
	return nil
}

// destroy marks the object destroyed, runs erase and forwards Destroy.
// Destroying a never-initialized object is allowed and releases it.
func (o *object[T]) destroy(erase func(uint32) bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.destroyed:
		return o.violation("Destroy", gfx.ErrDestroyed)
	case o.borrowed:
		return o.violation("Destroy", gfx.ErrNotOwner)
	}
	o.destroyed = true
	erase(o.id)
	return o.inner.Destroy()
}

type wrapper interface {
	unwrapped() gfx.Object
}

type checker interface {
	gfx.Object
	usable(op string) error
}

// unwrap strips the validator layer from obj. Objects of other layers pass
// through unchanged.
func unwrap[T gfx.Object](obj T) T {
	if w, ok := any(obj).(wrapper); ok {
		if inner, ok := w.unwrapped().(T); ok {
			return inner
		}
	}
	return obj
}

// argument checks that obj is a live object of this validator with the
// expected kind and returns the wrapped object to forward.
func argument[T gfx.Object](d *Device, op string, obj T, kind gfx.ObjectType) (T, error) {
	var zero T
	if any(obj) == nil {
		return zero, d.violation(op, nil, gfx.ErrInvalidArgument)
	}
	c, ok := any(obj).(checker)
	if !ok || obj.ObjectType() != kind {
		return zero, d.violation(op, obj, gfx.ErrTypeMismatch)
	}
	if err := c.usable(op); err != nil {
		return zero, err
	}
	return unwrap(obj), nil
}

// outOfRange reports whether n bytes at offset do not fit in size bytes.
func outOfRange(offset uint64, n int, size uint64) bool {
	return offset > size || uint64(n) > size-offset
}
