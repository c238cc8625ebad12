// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package agent provides a gfx.Device decorator that forwards every call
// to the wrapped device from one submission goroutine.
//
// Calls from all goroutines enter a single FIFO queue and are executed in
// arrival order. Calls that return data (creation, getters, ReadBuffer,
// WaitIdle, Acquire, Stats) block until the queue has drained up to them;
// every other call returns as soon as it is enqueued. The first error
// produced by an enqueued call is kept and returned by the next blocking
// call, so failures are never lost.
//
// With detachment disabled the agent forwards every call inline on the
// calling goroutine.
package agent

import (
	"errors"
	"sync"

	"github.com/gogpu/gfx"
)

// ErrClosed is returned by calls made after Destroy.
var ErrClosed = errors.New("agent: device destroyed")

// queueDepth is the number of calls that may be pending before callers
// block on enqueue.
const queueDepth = 1024

// Device is the dispatch agent decorator. It exclusively owns the device
// it wraps and destroys it in Destroy, after draining the queue.
type Device struct {
	inner    gfx.Device
	detached bool

	// mu guards closed and the queue channel against Destroy.
	mu     sync.RWMutex
	closed bool
	queue  chan func()
	done   chan struct{}

	errMu   sync.Mutex
	pending error

	texMu    sync.Mutex
	textures map[gfx.Texture]*Texture
}

var _ gfx.Device = (*Device)(nil)

// New wraps inner. When detach is true a submission goroutine is started
// and runs until Destroy.
func New(inner gfx.Device, detach bool) *Device {
	d := &Device{
		inner:    inner,
		detached: detach,
		textures: make(map[gfx.Texture]*Texture),
	}
	if detach {
		d.queue = make(chan func(), queueDepth)
		d.done = make(chan struct{})
		go d.run()
	}
	return d
}

// Inner returns the wrapped device.
func (d *Device) Inner() gfx.Device { return d.inner }

// Detached reports whether calls run on the submission goroutine.
func (d *Device) Detached() bool { return d.detached }

func (d *Device) run() {
	defer close(d.done)
	for fn := range d.queue {
		fn()
	}
}

func (d *Device) enqueue(fn func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.queue <- fn
	return nil
}

// async forwards fn without waiting for it.
func (d *Device) async(op string, fn func() error) error {
	if !d.detached {
		return fn()
	}
	return d.enqueue(func() {
		if err := fn(); err != nil {
			d.keep(op, err)
		}
	})
}

// wait runs fn on the submission goroutine and blocks until it returns.
func (d *Device) wait(fn func() error) error {
	if !d.detached {
		return fn()
	}
	result := make(chan error, 1)
	if err := d.enqueue(func() { result <- fn() }); err != nil {
		return err
	}
	return <-result
}

// sync forwards fn and waits for it. A pending error from an earlier
// asynchronous call is joined ahead of fn's own result.
func (d *Device) sync(fn func() error) error {
	err := d.wait(fn)
	return errors.Join(d.take(), err)
}

// call runs a value-returning getter in order with the queue. Getters
// cannot report errors, so a pending error is left for the next
// checkpoint.
func call[T any](d *Device, fn func() T) T {
	var v T
	_ = d.wait(func() error {
		v = fn()
		return nil
	})
	return v
}

func (d *Device) keep(op string, err error) {
	gfx.Logger().Debug("agent: deferred call failed", "op", op, "error", err)
	d.errMu.Lock()
	if d.pending == nil {
		d.pending = err
	}
	d.errMu.Unlock()
}

func (d *Device) take() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	err := d.pending
	d.pending = nil
	return err
}

func (d *Device) Initialize(info gfx.DeviceInfo) error {
	return d.sync(func() error { return d.inner.Initialize(info) })
}

// Destroy drains the queue, destroys the wrapped device and stops the
// submission goroutine. The first pending asynchronous error, if any, is
// returned together with the inner device's.
func (d *Device) Destroy() error {
	err := d.sync(d.inner.Destroy)
	if errors.Is(err, ErrClosed) {
		return err
	}
	if d.detached {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.done
	}
	return errors.Join(err, d.take())
}

func (d *Device) API() gfx.API     { return d.inner.API() }
func (d *Device) Name() string     { return d.inner.Name() }
func (d *Device) Stats() gfx.Stats { return call(d, d.inner.Stats) }

func (d *Device) Capabilities() gfx.Capabilities { return call(d, d.inner.Capabilities) }

func (d *Device) NewBuffer() gfx.Buffer {
	return &Buffer{object: wrap(d, call(d, d.inner.NewBuffer))}
}

func (d *Device) NewTexture() gfx.Texture {
	return &Texture{object: wrap(d, call(d, d.inner.NewTexture)), owned: true}
}

func (d *Device) NewSampler() gfx.Sampler {
	return &Sampler{object: wrap(d, call(d, d.inner.NewSampler))}
}

func (d *Device) NewShader() gfx.Shader {
	return &Shader{object: wrap(d, call(d, d.inner.NewShader))}
}

func (d *Device) NewDescriptorSetLayout() gfx.DescriptorSetLayout {
	return &DescriptorSetLayout{object: wrap(d, call(d, d.inner.NewDescriptorSetLayout))}
}

func (d *Device) NewDescriptorSet() gfx.DescriptorSet {
	return &DescriptorSet{object: wrap(d, call(d, d.inner.NewDescriptorSet))}
}

func (d *Device) NewSwapchain() gfx.Swapchain {
	return &Swapchain{object: wrap(d, call(d, d.inner.NewSwapchain))}
}

func (d *Device) NewCommandBuffer() gfx.CommandBuffer {
	return &CommandBuffer{object: wrap(d, call(d, d.inner.NewCommandBuffer))}
}

func (d *Device) Acquire(swapchains []gfx.Swapchain) error {
	inner := make([]gfx.Swapchain, len(swapchains))
	for i, sc := range swapchains {
		inner[i] = unwrap(sc)
	}
	return d.sync(func() error { return d.inner.Acquire(inner) })
}

func (d *Device) Submit(cmds []gfx.CommandBuffer) error {
	inner := make([]gfx.CommandBuffer, len(cmds))
	for i, c := range cmds {
		inner[i] = unwrap(c)
	}
	return d.async("Submit", func() error { return d.inner.Submit(inner) })
}

func (d *Device) Present() error {
	return d.async("Present", d.inner.Present)
}

func (d *Device) ReadBuffer(buf gfx.Buffer, offset uint64, dst []byte) error {
	inner := unwrap(buf)
	return d.sync(func() error { return d.inner.ReadBuffer(inner, offset, dst) })
}

func (d *Device) WaitIdle() error {
	return d.sync(d.inner.WaitIdle)
}

// wrapTexture returns the agent wrapper for a texture owned by the wrapped
// device, such as a swapchain image.
func (d *Device) wrapTexture(inner gfx.Texture) *Texture {
	if inner == nil {
		return nil
	}
	d.texMu.Lock()
	defer d.texMu.Unlock()
	if t, ok := d.textures[inner]; ok {
		return t
	}
	t := &Texture{object: wrap(d, inner)}
	d.textures[inner] = t
	return t
}

func (d *Device) forgetTexture(inner gfx.Texture) {
	d.texMu.Lock()
	delete(d.textures, inner)
	d.texMu.Unlock()
}
