// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package validator provides a gfx.Device decorator that checks usage
// contracts before forwarding calls.
//
// Every object created through a validator Device is wrapped and
// registered with the process-wide tracker. A call on an object that is
// not initialized, already destroyed, or of the wrong kind fails with a
// *gfx.ContractError and is not forwarded. Destroy reports every object
// still registered as a leak.
package validator

import (
	"sync"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/tracker"
)

// Device is the validator decorator. It owns the device it wraps.
type Device struct {
	inner gfx.Device

	mu          sync.Mutex
	initialized bool
	destroyed   bool
	leaks       []tracker.Leak
}

var _ gfx.Device = (*Device)(nil)

// New wraps inner.
func New(inner gfx.Device) *Device {
	return &Device{inner: inner}
}

// Inner returns the wrapped device.
func (d *Device) Inner() gfx.Device { return d.inner }

// violation logs and returns a contract error. obj may be nil.
func (d *Device) violation(op string, obj gfx.Handle, err error) error {
	ce := gfx.Violation(op, obj, err)
	gfx.Logger().Error("validator: contract violation",
		"op", op, "object", ce.Object.String(), "id", ce.ID, "error", err)
	return ce
}

// live fails unless the device is initialized and not destroyed.
func (d *Device) live(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.destroyed:
		return d.violation(op, nil, gfx.ErrDestroyed)
	case !d.initialized:
		return d.violation(op, nil, gfx.ErrNotInitialized)
	}
	return nil
}

func (d *Device) Initialize(info gfx.DeviceInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized || d.destroyed {
		return d.violation("Device.Initialize", nil, gfx.ErrAlreadyInitialized)
	}
	if err := d.inner.Initialize(info); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// Destroy reports leaked objects, clears the tracker and destroys the
// wrapped device.
func (d *Device) Destroy() error {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return d.violation("Device.Destroy", nil, gfx.ErrDestroyed)
	}
	d.destroyed = true
	d.mu.Unlock()

	d.leaks = tracker.Leaks()
	for _, l := range d.leaks {
		gfx.Logger().Warn("validator: leaked object", "object", l.Kind.String(), "id", l.ID)
	}
	tracker.ResetAll()
	return d.inner.Destroy()
}

// Leaks returns the objects that were still alive when Destroy ran.
func (d *Device) Leaks() []tracker.Leak { return d.leaks }

func (d *Device) API() gfx.API                   { return d.inner.API() }
func (d *Device) Name() string                   { return d.inner.Name() }
func (d *Device) Capabilities() gfx.Capabilities { return d.inner.Capabilities() }
func (d *Device) Stats() gfx.Stats               { return d.inner.Stats() }

func (d *Device) NewBuffer() gfx.Buffer {
	b := &Buffer{object: newObject(d, d.inner.NewBuffer())}
	tracker.Buffers.Push(b)
	return b
}

func (d *Device) NewTexture() gfx.Texture {
	t := &Texture{object: newObject(d, d.inner.NewTexture())}
	tracker.Textures.Push(t)
	return t
}

func (d *Device) NewSampler() gfx.Sampler {
	s := &Sampler{object: newObject(d, d.inner.NewSampler())}
	tracker.Samplers.Push(s)
	return s
}

func (d *Device) NewShader() gfx.Shader {
	s := &Shader{object: newObject(d, d.inner.NewShader())}
	tracker.Shaders.Push(s)
	return s
}

func (d *Device) NewDescriptorSetLayout() gfx.DescriptorSetLayout {
	l := &DescriptorSetLayout{object: newObject(d, d.inner.NewDescriptorSetLayout())}
	tracker.DescriptorSetLayouts.Push(l)
	return l
}

func (d *Device) NewDescriptorSet() gfx.DescriptorSet {
	s := &DescriptorSet{object: newObject(d, d.inner.NewDescriptorSet())}
	tracker.DescriptorSets.Push(s)
	return s
}

func (d *Device) NewSwapchain() gfx.Swapchain {
	s := &Swapchain{object: newObject(d, d.inner.NewSwapchain())}
	tracker.Swapchains.Push(s)
	return s
}

func (d *Device) NewCommandBuffer() gfx.CommandBuffer {
	c := &CommandBuffer{object: newObject(d, d.inner.NewCommandBuffer())}
	tracker.CommandBuffers.Push(c)
	return c
}

func (d *Device) Acquire(swapchains []gfx.Swapchain) error {
	const op = "Device.Acquire"
	if err := d.live(op); err != nil {
		return err
	}
	inner := make([]gfx.Swapchain, len(swapchains))
	for i, sc := range swapchains {
		raw, err := argument(d, op, sc, gfx.ObjectSwapchain)
		if err != nil {
			return err
		}
		inner[i] = raw
	}
	return d.inner.Acquire(inner)
}

func (d *Device) Submit(cmds []gfx.CommandBuffer) error {
	const op = "Device.Submit"
	if err := d.live(op); err != nil {
		return err
	}
	inner := make([]gfx.CommandBuffer, len(cmds))
	for i, c := range cmds {
		raw, err := argument(d, op, c, gfx.ObjectCommandBuffer)
		if err != nil {
			return err
		}
		if c.(*CommandBuffer).isRecording() {
			return d.violation(op, c, errRecording)
		}
		inner[i] = raw
	}
	return d.inner.Submit(inner)
}

func (d *Device) Present() error {
	if err := d.live("Device.Present"); err != nil {
		return err
	}
	return d.inner.Present()
}

func (d *Device) ReadBuffer(buf gfx.Buffer, offset uint64, dst []byte) error {
	const op = "Device.ReadBuffer"
	if err := d.live(op); err != nil {
		return err
	}
	raw, err := argument(d, op, buf, gfx.ObjectBuffer)
	if err != nil {
		return err
	}
	if outOfRange(offset, len(dst), raw.Info().Size) {
		return d.violation(op, buf, gfx.ErrInvalidArgument)
	}
	return d.inner.ReadBuffer(raw, offset, dst)
}

func (d *Device) WaitIdle() error {
	if err := d.live("Device.WaitIdle"); err != nil {
		return err
	}
	return d.inner.WaitIdle()
}
