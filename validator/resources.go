// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package validator

import (
	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/tracker"
)

// Buffer validates calls on a buffer.
type Buffer struct {
	object[gfx.Buffer]
}

func (b *Buffer) Initialize(info gfx.BufferInfo) error {
	if info.Size == 0 {
		return b.violation("Buffer.Initialize", gfx.ErrInvalidArgument)
	}
	return b.initialize("Buffer.Initialize", func() error { return b.inner.Initialize(info) })
}

func (b *Buffer) Info() gfx.BufferInfo { return b.inner.Info() }

func (b *Buffer) Update(offset uint64, data []byte) error {
	const op = "Buffer.Update"
	if err := b.usable(op); err != nil {
		return err
	}
	if outOfRange(offset, len(data), b.inner.Info().Size) {
		return b.violation(op, gfx.ErrInvalidArgument)
	}
	return b.inner.Update(offset, data)
}

func (b *Buffer) Resize(size uint64) error {
	const op = "Buffer.Resize"
	if err := b.usable(op); err != nil {
		return err
	}
	if size == 0 {
		return b.violation(op, gfx.ErrInvalidArgument)
	}
	return b.inner.Resize(size)
}

func (b *Buffer) Destroy() error { return b.destroy(tracker.Buffers.Erase) }

// Texture validates calls on a texture. Swapchain images are borrowed:
// they are created initialized and cannot be destroyed by the caller.
type Texture struct {
	object[gfx.Texture]
}

func (t *Texture) Initialize(info gfx.TextureInfo) error {
	if info.Width == 0 || info.Height == 0 {
		return t.violation("Texture.Initialize", gfx.ErrInvalidArgument)
	}
	return t.initialize("Texture.Initialize", func() error { return t.inner.Initialize(info) })
}

func (t *Texture) Info() gfx.TextureInfo { return t.inner.Info() }

func (t *Texture) Resize(width, height uint32) error {
	const op = "Texture.Resize"
	if err := t.usable(op); err != nil {
		return err
	}
	if t.borrowed {
		return t.violation(op, gfx.ErrNotOwner)
	}
	if width == 0 || height == 0 {
		return t.violation(op, gfx.ErrInvalidArgument)
	}
	return t.inner.Resize(width, height)
}

func (t *Texture) Destroy() error { return t.destroy(tracker.Textures.Erase) }

// Sampler validates calls on a sampler.
type Sampler struct {
	object[gfx.Sampler]
}

func (s *Sampler) Initialize(info gfx.SamplerInfo) error {
	return s.initialize("Sampler.Initialize", func() error { return s.inner.Initialize(info) })
}

func (s *Sampler) Info() gfx.SamplerInfo { return s.inner.Info() }
func (s *Sampler) Destroy() error        { return s.destroy(tracker.Samplers.Erase) }

// Shader validates calls on a shader.
type Shader struct {
	object[gfx.Shader]
}

func (s *Shader) Initialize(info gfx.ShaderInfo) error {
	if info.Name == "" {
		return s.violation("Shader.Initialize", gfx.ErrInvalidArgument)
	}
	return s.initialize("Shader.Initialize", func() error { return s.inner.Initialize(info) })
}

func (s *Shader) Name() string   { return s.inner.Name() }
func (s *Shader) Destroy() error { return s.destroy(tracker.Shaders.Erase) }

// DescriptorSetLayout validates calls on a descriptor set layout.
type DescriptorSetLayout struct {
	object[gfx.DescriptorSetLayout]
}

func (l *DescriptorSetLayout) Initialize(info gfx.DescriptorSetLayoutInfo) error {
	const op = "DescriptorSetLayout.Initialize"
	seen := make(map[uint32]bool, len(info.Bindings))
	for _, b := range info.Bindings {
		if seen[b.Binding] || b.Type == 0 {
			return l.violation(op, gfx.ErrInvalidArgument)
		}
		seen[b.Binding] = true
	}
	return l.initialize(op, func() error { return l.inner.Initialize(info) })
}

func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorSetLayoutBinding { return l.inner.Bindings() }
func (l *DescriptorSetLayout) Destroy() error                             { return l.destroy(tracker.DescriptorSetLayouts.Erase) }

// DescriptorSet validates calls on a descriptor set. It checks argument
// kinds against the layout before forwarding.
type DescriptorSet struct {
	object[gfx.DescriptorSet]
	layout *DescriptorSetLayout
}

func (s *DescriptorSet) Initialize(info gfx.DescriptorSetInfo) error {
	const op = "DescriptorSet.Initialize"
	raw, err := argument(s.dev, op, info.Layout, gfx.ObjectDescriptorSetLayout)
	if err != nil {
		return err
	}
	return s.initialize(op, func() error {
		if err := s.inner.Initialize(gfx.DescriptorSetInfo{Layout: raw}); err != nil {
			return err
		}
		s.layout = info.Layout.(*DescriptorSetLayout)
		return nil
	})
}

func (s *DescriptorSet) Layout() gfx.DescriptorSetLayout {
	if s.layout == nil {
		return nil
	}
	return s.layout
}

// slot checks that binding exists in the layout and accepts kind.
func (s *DescriptorSet) slot(op string, binding uint32, accept func(gfx.DescriptorType) bool) error {
	if err := s.usable(op); err != nil {
		return err
	}
	for _, b := range s.layout.Bindings() {
		if b.Binding == binding {
			if !accept(b.Type) {
				return s.violation(op, gfx.ErrTypeMismatch)
			}
			return nil
		}
	}
	return s.violation(op, gfx.ErrInvalidArgument)
}

func (s *DescriptorSet) BindBuffer(binding uint32, buf gfx.Buffer) error {
	const op = "DescriptorSet.BindBuffer"
	if err := s.slot(op, binding, gfx.DescriptorType.IsBuffer); err != nil {
		return err
	}
	raw, err := argument(s.dev, op, buf, gfx.ObjectBuffer)
	if err != nil {
		return err
	}
	return s.inner.BindBuffer(binding, raw)
}

func (s *DescriptorSet) BindTexture(binding uint32, tex gfx.Texture) error {
	const op = "DescriptorSet.BindTexture"
	if err := s.slot(op, binding, gfx.DescriptorType.IsTexture); err != nil {
		return err
	}
	raw, err := argument(s.dev, op, tex, gfx.ObjectTexture)
	if err != nil {
		return err
	}
	return s.inner.BindTexture(binding, raw)
}

func (s *DescriptorSet) BindSampler(binding uint32, smp gfx.Sampler) error {
	const op = "DescriptorSet.BindSampler"
	isSampler := func(t gfx.DescriptorType) bool { return t == gfx.DescriptorSampler }
	if err := s.slot(op, binding, isSampler); err != nil {
		return err
	}
	raw, err := argument(s.dev, op, smp, gfx.ObjectSampler)
	if err != nil {
		return err
	}
	return s.inner.BindSampler(binding, raw)
}

func (s *DescriptorSet) Update() error {
	if err := s.usable("DescriptorSet.Update"); err != nil {
		return err
	}
	return s.inner.Update()
}

func (s *DescriptorSet) Destroy() error { return s.destroy(tracker.DescriptorSets.Erase) }
