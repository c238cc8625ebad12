// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// resource carries the identity shared by every object of a Device.
// Raw objects do not police their own lifecycle; that is the validator's job.
type resource struct {
	dev  *Device
	kind gfx.ObjectType
	id   uint32
}

func (r *resource) TypedID() uint32            { return r.id }
func (r *resource) ObjectType() gfx.ObjectType { return r.kind }

// Buffer is a HAL-backed gfx.Buffer.
type Buffer struct {
	resource
	info gfx.BufferInfo
	buf  hal.Buffer
}

func (b *Buffer) Initialize(info gfx.BufferInfo) error {
	device, _, err := b.dev.opened()
	if err != nil {
		return err
	}
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: info.Label,
		Size:  info.Size,
		Usage: info.Usage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create buffer %q: %w", info.Label, err)
	}
	b.info = info
	b.buf = buf
	return nil
}

func (b *Buffer) Info() gfx.BufferInfo { return b.info }

// Update writes data through the queue.
func (b *Buffer) Update(offset uint64, data []byte) error {
	_, queue, err := b.dev.opened()
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > b.info.Size {
		return fmt.Errorf("%w: update [%d,%d) past buffer size %d",
			gfx.ErrInvalidArgument, offset, offset+uint64(len(data)), b.info.Size)
	}
	if err := queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("wgpu: update buffer: %w", err)
	}
	return nil
}

// Resize recreates the buffer. Contents are not preserved.
func (b *Buffer) Resize(size uint64) error {
	device, _, err := b.dev.opened()
	if err != nil {
		return err
	}
	info := b.info
	info.Size = size
	old := b.buf
	if err := b.Initialize(info); err != nil {
		return err
	}
	if old != nil {
		device.DestroyBuffer(old)
	}
	return nil
}

func (b *Buffer) Destroy() error {
	if b.buf == nil {
		return nil
	}
	if device, _, err := b.dev.opened(); err == nil {
		device.DestroyBuffer(b.buf)
	}
	b.buf = nil
	return nil
}

// Texture is a HAL-backed gfx.Texture with a default view.
type Texture struct {
	resource
	info gfx.TextureInfo
	tex  hal.Texture
	view hal.TextureView
}

func (t *Texture) Initialize(info gfx.TextureInfo) error {
	info = info.Normalize()
	if info.Width == 0 || info.Height == 0 {
		return fmt.Errorf("%w: texture %q has zero extent", gfx.ErrInvalidArgument, info.Label)
	}
	device, _, err := t.dev.opened()
	if err != nil {
		return err
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         info.Label,
		Size:          hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: info.Layers},
		MipLevelCount: info.Levels,
		SampleCount:   info.Samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format,
		Usage:         info.Usage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture %q: %w", info.Label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: info.Label + "_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("wgpu: create texture view %q: %w", info.Label, err)
	}
	t.info = info
	t.tex = tex
	t.view = view
	return nil
}

func (t *Texture) Info() gfx.TextureInfo { return t.info }

// Resize recreates the texture at the new extent.
func (t *Texture) Resize(width, height uint32) error {
	info := t.info
	info.Width, info.Height = width, height
	if err := t.Destroy(); err != nil {
		return err
	}
	return t.Initialize(info)
}

func (t *Texture) Destroy() error {
	if t.tex == nil {
		return nil
	}
	if device, _, err := t.dev.opened(); err == nil {
		if t.view != nil {
			device.DestroyTextureView(t.view)
		}
		device.DestroyTexture(t.tex)
	}
	t.tex, t.view = nil, nil
	return nil
}

// Sampler is a HAL-backed gfx.Sampler.
type Sampler struct {
	resource
	info gfx.SamplerInfo
	smp  hal.Sampler
}

func filterMode(f gfx.Filter) gputypes.FilterMode {
	if f == gfx.FilterNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

func addressMode(a gfx.Address) gputypes.AddressMode {
	switch a {
	case gfx.AddressWrap:
		return gputypes.AddressModeRepeat
	case gfx.AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func (s *Sampler) Initialize(info gfx.SamplerInfo) error {
	device, _, err := s.dev.opened()
	if err != nil {
		return err
	}
	smp, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        info.Label,
		AddressModeU: addressMode(info.AddressU),
		AddressModeV: addressMode(info.AddressV),
		AddressModeW: addressMode(info.AddressW),
		MagFilter:    filterMode(info.MagFilter),
		MinFilter:    filterMode(info.MinFilter),
		MipmapFilter: filterMode(info.MipFilter),
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler %q: %w", info.Label, err)
	}
	s.info = info
	s.smp = smp
	return nil
}

func (s *Sampler) Info() gfx.SamplerInfo { return s.info }

func (s *Sampler) Destroy() error {
	if s.smp == nil {
		return nil
	}
	if device, _, err := s.dev.opened(); err == nil {
		device.DestroySampler(s.smp)
	}
	s.smp = nil
	return nil
}

// Shader is a SPIR-V shader module compiled from WGSL.
type Shader struct {
	resource
	name   string
	module hal.ShaderModule
}

func (s *Shader) Initialize(info gfx.ShaderInfo) error {
	device, _, err := s.dev.opened()
	if err != nil {
		return err
	}
	spirv, err := CompileShaderToSPIRV(info.WGSL)
	if err != nil {
		return fmt.Errorf("wgpu: shader %q: %w", info.Name, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  info.Name,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module %q: %w", info.Name, err)
	}
	s.name = info.Name
	s.module = module
	return nil
}

func (s *Shader) Name() string { return s.name }

func (s *Shader) Destroy() error {
	if s.module == nil {
		return nil
	}
	if device, _, err := s.dev.opened(); err == nil {
		device.DestroyShaderModule(s.module)
	}
	s.module = nil
	return nil
}

// DescriptorSetLayout is a HAL bind group layout.
type DescriptorSetLayout struct {
	resource
	bindings []gfx.DescriptorSetLayoutBinding
	layout   hal.BindGroupLayout
}

// layoutEntry translates a binding into a bind group layout entry.
// Input attachments and storage textures have no bind group equivalent
// and are kept CPU-side only.
func layoutEntry(b gfx.DescriptorSetLayoutBinding) (gputypes.BindGroupLayoutEntry, bool) {
	entry := gputypes.BindGroupLayoutEntry{Binding: b.Binding, Visibility: b.Visibility}
	switch b.Type {
	case gfx.DescriptorUniformBuffer, gfx.DescriptorDynamicUniformBuffer:
		entry.Buffer = &gputypes.BufferBindingLayout{
			Type:             gputypes.BufferBindingTypeUniform,
			HasDynamicOffset: b.Type == gfx.DescriptorDynamicUniformBuffer,
		}
	case gfx.DescriptorStorageBuffer:
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case gfx.DescriptorSampledTexture:
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gfx.DescriptorSampler:
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	default:
		return entry, false
	}
	return entry, true
}

func (l *DescriptorSetLayout) Initialize(info gfx.DescriptorSetLayoutInfo) error {
	device, _, err := l.dev.opened()
	if err != nil {
		return err
	}
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(info.Bindings))
	for _, b := range info.Bindings {
		if entry, ok := layoutEntry(b); ok {
			entries = append(entries, entry)
		}
	}
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   info.Label,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout %q: %w", info.Label, err)
	}
	l.bindings = append([]gfx.DescriptorSetLayoutBinding(nil), info.Bindings...)
	l.layout = layout
	return nil
}

func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorSetLayoutBinding { return l.bindings }

func (l *DescriptorSetLayout) binding(slot uint32) (gfx.DescriptorSetLayoutBinding, bool) {
	for _, b := range l.bindings {
		if b.Binding == slot {
			return b, true
		}
	}
	return gfx.DescriptorSetLayoutBinding{}, false
}

func (l *DescriptorSetLayout) Destroy() error {
	if l.layout == nil {
		return nil
	}
	if device, _, err := l.dev.opened(); err == nil {
		device.DestroyBindGroupLayout(l.layout)
	}
	l.layout = nil
	return nil
}

// DescriptorSet is a CPU-side binding table over a layout. Staged bindings
// become current on Update.
type DescriptorSet struct {
	resource
	layout  *DescriptorSetLayout
	staged  map[uint32]gfx.Object
	current map[uint32]gfx.Object
}

func (s *DescriptorSet) Initialize(info gfx.DescriptorSetInfo) error {
	layout, ok := info.Layout.(*DescriptorSetLayout)
	if !ok {
		return fmt.Errorf("%w: descriptor set layout %T", gfx.ErrTypeMismatch, info.Layout)
	}
	s.layout = layout
	s.staged = make(map[uint32]gfx.Object)
	s.current = make(map[uint32]gfx.Object)
	return nil
}

func (s *DescriptorSet) Layout() gfx.DescriptorSetLayout { return s.layout }

func (s *DescriptorSet) bind(slot uint32, obj gfx.Object, accept func(gfx.DescriptorType) bool) error {
	if s.layout == nil {
		return gfx.ErrNotInitialized
	}
	if obj == nil {
		return fmt.Errorf("%w: nil object for binding %d", gfx.ErrInvalidArgument, slot)
	}
	b, ok := s.layout.binding(slot)
	if !ok {
		return fmt.Errorf("%w: binding %d not in layout", gfx.ErrInvalidArgument, slot)
	}
	if !accept(b.Type) {
		return fmt.Errorf("%w: binding %d is %s, got %s", gfx.ErrTypeMismatch, slot, b.Type, obj.ObjectType())
	}
	s.staged[slot] = obj
	return nil
}

func (s *DescriptorSet) BindBuffer(binding uint32, buf gfx.Buffer) error {
	return s.bind(binding, buf, gfx.DescriptorType.IsBuffer)
}

func (s *DescriptorSet) BindTexture(binding uint32, tex gfx.Texture) error {
	return s.bind(binding, tex, gfx.DescriptorType.IsTexture)
}

func (s *DescriptorSet) BindSampler(binding uint32, smp gfx.Sampler) error {
	return s.bind(binding, smp, func(t gfx.DescriptorType) bool { return t == gfx.DescriptorSampler })
}

func (s *DescriptorSet) Update() error {
	for slot, obj := range s.staged {
		s.current[slot] = obj
	}
	clear(s.staged)
	return nil
}

// Bound returns the object currently bound at slot.
func (s *DescriptorSet) Bound(slot uint32) (gfx.Object, bool) {
	obj, ok := s.current[slot]
	return obj, ok
}

func (s *DescriptorSet) Destroy() error {
	s.staged, s.current = nil, nil
	return nil
}
