// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package agent

import (
	"github.com/gogpu/gfx"
)

// object is the part shared by every agent wrapper.
type object[T gfx.Object] struct {
	dev   *Device
	inner T
	id    uint32
	kind  gfx.ObjectType
}

func wrap[T gfx.Object](d *Device, inner T) object[T] {
	return object[T]{dev: d, inner: inner, id: inner.TypedID(), kind: inner.ObjectType()}
}

func (o *object[T]) TypedID() uint32            { return o.id }
func (o *object[T]) ObjectType() gfx.ObjectType { return o.kind }
func (o *object[T]) unwrapped() gfx.Object      { return o.inner }

func (o *object[T]) Destroy() error {
	return o.dev.async("Destroy", o.inner.Destroy)
}

type wrapper interface {
	unwrapped() gfx.Object
}

// unwrap strips the agent layer from obj. Objects of other layers pass
// through so the wrapped device can reject them.
func unwrap[T gfx.Object](obj T) T {
	if w, ok := any(obj).(wrapper); ok {
		if inner, ok := w.unwrapped().(T); ok {
			return inner
		}
	}
	return obj
}

// Buffer forwards to a buffer of the wrapped device.
type Buffer struct {
	object[gfx.Buffer]
}

func (b *Buffer) Initialize(info gfx.BufferInfo) error {
	return b.dev.sync(func() error { return b.inner.Initialize(info) })
}

func (b *Buffer) Info() gfx.BufferInfo { return call(b.dev, b.inner.Info) }

func (b *Buffer) Update(offset uint64, data []byte) error {
	data = append([]byte(nil), data...)
	return b.dev.async("Buffer.Update", func() error { return b.inner.Update(offset, data) })
}

func (b *Buffer) Resize(size uint64) error {
	return b.dev.async("Buffer.Resize", func() error { return b.inner.Resize(size) })
}

// Texture forwards to a texture of the wrapped device. Swapchain images
// are wrapped with owned unset.
type Texture struct {
	object[gfx.Texture]
	owned bool
}

func (t *Texture) Initialize(info gfx.TextureInfo) error {
	return t.dev.sync(func() error { return t.inner.Initialize(info) })
}

func (t *Texture) Info() gfx.TextureInfo { return call(t.dev, t.inner.Info) }

func (t *Texture) Resize(width, height uint32) error {
	return t.dev.async("Texture.Resize", func() error { return t.inner.Resize(width, height) })
}

func (t *Texture) Destroy() error {
	if !t.owned {
		t.dev.forgetTexture(t.inner)
	}
	return t.object.Destroy()
}

// Sampler forwards to a sampler of the wrapped device.
type Sampler struct {
	object[gfx.Sampler]
}

func (s *Sampler) Initialize(info gfx.SamplerInfo) error {
	return s.dev.sync(func() error { return s.inner.Initialize(info) })
}

func (s *Sampler) Info() gfx.SamplerInfo { return call(s.dev, s.inner.Info) }

// Shader forwards to a shader of the wrapped device.
type Shader struct {
	object[gfx.Shader]
}

func (s *Shader) Initialize(info gfx.ShaderInfo) error {
	return s.dev.sync(func() error { return s.inner.Initialize(info) })
}

func (s *Shader) Name() string { return call(s.dev, s.inner.Name) }

// DescriptorSetLayout forwards to a layout of the wrapped device.
type DescriptorSetLayout struct {
	object[gfx.DescriptorSetLayout]
}

func (l *DescriptorSetLayout) Initialize(info gfx.DescriptorSetLayoutInfo) error {
	return l.dev.sync(func() error { return l.inner.Initialize(info) })
}

func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorSetLayoutBinding {
	return call(l.dev, l.inner.Bindings)
}

// DescriptorSet forwards to a descriptor set of the wrapped device.
type DescriptorSet struct {
	object[gfx.DescriptorSet]
	layout gfx.DescriptorSetLayout
}

func (s *DescriptorSet) Initialize(info gfx.DescriptorSetInfo) error {
	s.layout = info.Layout
	info.Layout = unwrap(info.Layout)
	return s.dev.sync(func() error { return s.inner.Initialize(info) })
}

// Layout returns the layout the set was initialized with, as seen by the
// caller.
func (s *DescriptorSet) Layout() gfx.DescriptorSetLayout { return s.layout }

func (s *DescriptorSet) BindBuffer(binding uint32, buf gfx.Buffer) error {
	inner := unwrap(buf)
	return s.dev.async("DescriptorSet.BindBuffer", func() error { return s.inner.BindBuffer(binding, inner) })
}

func (s *DescriptorSet) BindTexture(binding uint32, tex gfx.Texture) error {
	inner := unwrap(tex)
	return s.dev.async("DescriptorSet.BindTexture", func() error { return s.inner.BindTexture(binding, inner) })
}

func (s *DescriptorSet) BindSampler(binding uint32, smp gfx.Sampler) error {
	inner := unwrap(smp)
	return s.dev.async("DescriptorSet.BindSampler", func() error { return s.inner.BindSampler(binding, inner) })
}

func (s *DescriptorSet) Update() error {
	return s.dev.async("DescriptorSet.Update", s.inner.Update)
}

// Swapchain forwards to a swapchain of the wrapped device. Initialization
// and surface changes are synchronous so the images can be wrapped.
type Swapchain struct {
	object[gfx.Swapchain]
}

func (s *Swapchain) Initialize(info gfx.SwapchainInfo) error {
	return s.dev.sync(func() error { return s.inner.Initialize(info) })
}

func (s *Swapchain) ColorTexture() gfx.Texture {
	return s.dev.wrapTexture(call(s.dev, s.inner.ColorTexture))
}

func (s *Swapchain) DepthStencilTexture() gfx.Texture {
	return s.dev.wrapTexture(call(s.dev, s.inner.DepthStencilTexture))
}

func (s *Swapchain) Width() uint32                   { return call(s.dev, s.inner.Width) }
func (s *Swapchain) Height() uint32                  { return call(s.dev, s.inner.Height) }
func (s *Swapchain) Transform() gfx.SurfaceTransform { return call(s.dev, s.inner.Transform) }
func (s *Swapchain) Generation() uint32              { return call(s.dev, s.inner.Generation) }

func (s *Swapchain) Resize(width, height uint32, transform gfx.SurfaceTransform) error {
	return s.dev.sync(func() error { return s.inner.Resize(width, height, transform) })
}

func (s *Swapchain) CreateSurface(windowHandle any) error {
	return s.dev.sync(func() error { return s.inner.CreateSurface(windowHandle) })
}

func (s *Swapchain) DestroySurface() error {
	return s.dev.sync(s.inner.DestroySurface)
}

func (s *Swapchain) Destroy() error {
	s.dev.forgetTexture(call(s.dev, s.inner.ColorTexture))
	s.dev.forgetTexture(call(s.dev, s.inner.DepthStencilTexture))
	return s.object.Destroy()
}
