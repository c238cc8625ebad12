// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gfxtest provides a recording gfx.Device for tests.
//
// Every call made on the device or on an object it created is appended to
// a shared log in arrival order. Objects perform no validation; they only
// record, so tests can assert what a decorator did or did not forward.
package gfxtest

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx"
)

// Call is one recorded call.
type Call struct {
	Seq  int
	Op   string
	Kind gfx.ObjectType
	ID   uint32
	Arg  uint64
}

func (c Call) String() string {
	if c.Kind == gfx.ObjectUnknown {
		return fmt.Sprintf("#%d %s(%d)", c.Seq, c.Op, c.Arg)
	}
	return fmt.Sprintf("#%d %s %s#%d(%d)", c.Seq, c.Op, c.Kind, c.ID, c.Arg)
}

// Device is a recording gfx.Device.
type Device struct {
	api  gfx.API
	name string

	mu     sync.Mutex
	calls  []Call
	fails  map[string]error
	stats  gfx.Stats
	caller func(op string)
}

var _ gfx.Device = (*Device)(nil)

// New returns a recording device reporting the given API.
func New(api gfx.API) *Device {
	return &Device{api: api, name: "gfxtest-" + api.String(), fails: make(map[string]error)}
}

// Fail makes every later call named op return err. A nil err clears it.
// Op names have the form "Device.Submit" or "Buffer.Update".
func (d *Device) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fails, op)
		return
	}
	d.fails[op] = err
}

// OnCall installs a hook run synchronously for every recorded call.
func (d *Device) OnCall(fn func(op string)) {
	d.mu.Lock()
	d.caller = fn
	d.mu.Unlock()
}

// Calls returns a copy of the call log.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the names of all recorded calls in order.
func (d *Device) Ops() []string {
	calls := d.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was recorded.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (d *Device) Reset() {
	d.mu.Lock()
	d.calls = nil
	d.mu.Unlock()
}

func (d *Device) record(op string, kind gfx.ObjectType, id uint32, arg uint64) error {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Seq: len(d.calls), Op: op, Kind: kind, ID: id, Arg: arg})
	err := d.fails[op]
	hook := d.caller
	d.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	return err
}

func (d *Device) Initialize(gfx.DeviceInfo) error {
	return d.record("Device.Initialize", gfx.ObjectUnknown, 0, 0)
}

func (d *Device) Destroy() error { return d.record("Device.Destroy", gfx.ObjectUnknown, 0, 0) }
func (d *Device) API() gfx.API   { return d.api }
func (d *Device) Name() string   { return d.name }

func (d *Device) Capabilities() gfx.Capabilities {
	return gfx.Capabilities{
		MaxTextureSize:   8192,
		MaxBindGroups:    4,
		SupportsCompute:  true,
		SupportsBarriers: true,
		VendorName:       "gfxtest",
		DeviceName:       d.name,
	}
}

func (d *Device) NewBuffer() gfx.Buffer   { return &Buffer{object: d.newObject(gfx.ObjectBuffer)} }
func (d *Device) NewTexture() gfx.Texture { return d.newTexture() }
func (d *Device) NewSampler() gfx.Sampler { return &Sampler{object: d.newObject(gfx.ObjectSampler)} }
func (d *Device) NewShader() gfx.Shader   { return &Shader{object: d.newObject(gfx.ObjectShader)} }

func (d *Device) NewDescriptorSetLayout() gfx.DescriptorSetLayout {
	return &DescriptorSetLayout{object: d.newObject(gfx.ObjectDescriptorSetLayout)}
}

func (d *Device) NewDescriptorSet() gfx.DescriptorSet {
	return &DescriptorSet{object: d.newObject(gfx.ObjectDescriptorSet)}
}

func (d *Device) NewSwapchain() gfx.Swapchain {
	return &Swapchain{object: d.newObject(gfx.ObjectSwapchain)}
}

func (d *Device) NewCommandBuffer() gfx.CommandBuffer {
	return &CommandBuffer{object: d.newObject(gfx.ObjectCommandBuffer)}
}

func (d *Device) Acquire(swapchains []gfx.Swapchain) error {
	return d.record("Device.Acquire", gfx.ObjectUnknown, 0, uint64(len(swapchains)))
}

func (d *Device) Submit(cmds []gfx.CommandBuffer) error {
	d.mu.Lock()
	d.stats.Submits++
	d.mu.Unlock()
	return d.record("Device.Submit", gfx.ObjectUnknown, 0, uint64(len(cmds)))
}

func (d *Device) Present() error {
	d.mu.Lock()
	d.stats.Presents++
	d.mu.Unlock()
	return d.record("Device.Present", gfx.ObjectUnknown, 0, 0)
}

func (d *Device) ReadBuffer(buf gfx.Buffer, offset uint64, dst []byte) error {
	for i := range dst {
		dst[i] = byte(offset) + byte(i)
	}
	return d.record("Device.ReadBuffer", gfx.ObjectBuffer, buf.TypedID(), offset)
}

func (d *Device) WaitIdle() error { return d.record("Device.WaitIdle", gfx.ObjectUnknown, 0, 0) }

func (d *Device) Stats() gfx.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) newObject(kind gfx.ObjectType) object {
	return object{dev: d, kind: kind, id: gfx.NewTypedID(kind)}
}

func (d *Device) newTexture() *Texture {
	return &Texture{object: d.newObject(gfx.ObjectTexture)}
}

type object struct {
	dev  *Device
	kind gfx.ObjectType
	id   uint32
}

func (o *object) TypedID() uint32            { return o.id }
func (o *object) ObjectType() gfx.ObjectType { return o.kind }

func (o *object) call(op string, arg uint64) error {
	return o.dev.record(kindPrefix[o.kind]+"."+op, o.kind, o.id, arg)
}

func (o *object) Destroy() error { return o.call("Destroy", 0) }

var kindPrefix = map[gfx.ObjectType]string{
	gfx.ObjectBuffer:              "Buffer",
	gfx.ObjectTexture:             "Texture",
	gfx.ObjectSampler:             "Sampler",
	gfx.ObjectShader:              "Shader",
	gfx.ObjectDescriptorSetLayout: "DescriptorSetLayout",
	gfx.ObjectDescriptorSet:       "DescriptorSet",
	gfx.ObjectSwapchain:           "Swapchain",
	gfx.ObjectCommandBuffer:       "CommandBuffer",
}

// Buffer is a recording gfx.Buffer.
type Buffer struct {
	object
	info gfx.BufferInfo
}

func (b *Buffer) Initialize(info gfx.BufferInfo) error {
	b.info = info
	return b.call("Initialize", info.Size)
}

func (b *Buffer) Info() gfx.BufferInfo { return b.info }

func (b *Buffer) Update(offset uint64, data []byte) error {
	return b.call("Update", offset)
}

func (b *Buffer) Resize(size uint64) error {
	b.info.Size = size
	return b.call("Resize", size)
}

// Texture is a recording gfx.Texture.
type Texture struct {
	object
	info gfx.TextureInfo
}

func (t *Texture) Initialize(info gfx.TextureInfo) error {
	t.info = info.Normalize()
	return t.call("Initialize", uint64(info.Width)<<32|uint64(info.Height))
}

func (t *Texture) Info() gfx.TextureInfo { return t.info }

func (t *Texture) Resize(width, height uint32) error {
	t.info.Width, t.info.Height = width, height
	return t.call("Resize", uint64(width)<<32|uint64(height))
}

// Sampler is a recording gfx.Sampler.
type Sampler struct {
	object
	info gfx.SamplerInfo
}

func (s *Sampler) Initialize(info gfx.SamplerInfo) error {
	s.info = info
	return s.call("Initialize", 0)
}

func (s *Sampler) Info() gfx.SamplerInfo { return s.info }

// Shader is a recording gfx.Shader.
type Shader struct {
	object
	name string
}

func (s *Shader) Initialize(info gfx.ShaderInfo) error {
	s.name = info.Name
	return s.call("Initialize", 0)
}

func (s *Shader) Name() string { return s.name }

// DescriptorSetLayout is a recording gfx.DescriptorSetLayout.
type DescriptorSetLayout struct {
	object
	bindings []gfx.DescriptorSetLayoutBinding
}

func (l *DescriptorSetLayout) Initialize(info gfx.DescriptorSetLayoutInfo) error {
	l.bindings = info.Bindings
	return l.call("Initialize", uint64(len(info.Bindings)))
}

func (l *DescriptorSetLayout) Bindings() []gfx.DescriptorSetLayoutBinding { return l.bindings }

// DescriptorSet is a recording gfx.DescriptorSet.
type DescriptorSet struct {
	object
	layout gfx.DescriptorSetLayout
}

func (s *DescriptorSet) Initialize(info gfx.DescriptorSetInfo) error {
	s.layout = info.Layout
	return s.call("Initialize", 0)
}

func (s *DescriptorSet) Layout() gfx.DescriptorSetLayout { return s.layout }

func (s *DescriptorSet) BindBuffer(binding uint32, _ gfx.Buffer) error {
	return s.call("BindBuffer", uint64(binding))
}

func (s *DescriptorSet) BindTexture(binding uint32, _ gfx.Texture) error {
	return s.call("BindTexture", uint64(binding))
}

func (s *DescriptorSet) BindSampler(binding uint32, _ gfx.Sampler) error {
	return s.call("BindSampler", uint64(binding))
}

func (s *DescriptorSet) Update() error { return s.call("Update", 0) }

// Swapchain is a recording gfx.Swapchain with offscreen images.
type Swapchain struct {
	object
	info       gfx.SwapchainInfo
	color      *Texture
	depth      *Texture
	generation uint32
}

func (s *Swapchain) Initialize(info gfx.SwapchainInfo) error {
	s.info = info
	s.color = s.dev.newTexture()
	s.depth = s.dev.newTexture()
	s.rebuild()
	return s.call("Initialize", uint64(info.Width)<<32|uint64(info.Height))
}

func (s *Swapchain) rebuild() {
	s.color.info = gfx.TextureInfo{Format: s.info.ColorFormat, Width: s.info.Width, Height: s.info.Height}.Normalize()
	s.depth.info = gfx.TextureInfo{Format: s.info.DepthStencilFormat, Width: s.info.Width, Height: s.info.Height}.Normalize()
	s.generation++
}

func (s *Swapchain) ColorTexture() gfx.Texture        { return s.color }
func (s *Swapchain) DepthStencilTexture() gfx.Texture { return s.depth }
func (s *Swapchain) Width() uint32                    { return s.info.Width }
func (s *Swapchain) Height() uint32                   { return s.info.Height }
func (s *Swapchain) Transform() gfx.SurfaceTransform  { return s.info.Transform }
func (s *Swapchain) Generation() uint32               { return s.generation }

func (s *Swapchain) Resize(width, height uint32, transform gfx.SurfaceTransform) error {
	s.info.Width, s.info.Height, s.info.Transform = width, height, transform
	s.rebuild()
	return s.call("Resize", uint64(width)<<32|uint64(height))
}

func (s *Swapchain) CreateSurface(handle any) error {
	s.info.WindowHandle = handle
	s.rebuild()
	return s.call("CreateSurface", 0)
}

func (s *Swapchain) DestroySurface() error {
	s.info.WindowHandle = nil
	return s.call("DestroySurface", 0)
}

// CommandBuffer is a recording gfx.CommandBuffer.
type CommandBuffer struct {
	object
}

func (c *CommandBuffer) Initialize(gfx.CommandBufferInfo) error { return c.call("Initialize", 0) }
func (c *CommandBuffer) Begin() error                           { return c.call("Begin", 0) }
func (c *CommandBuffer) End() error                             { return c.call("End", 0) }

func (c *CommandBuffer) PipelineBarrier(barriers []gfx.TextureBarrier) error {
	c.dev.mu.Lock()
	c.dev.stats.Barriers += uint64(len(barriers))
	c.dev.mu.Unlock()
	return c.call("PipelineBarrier", uint64(len(barriers)))
}

func (c *CommandBuffer) BeginRenderPass(info gfx.RenderPassInfo) error {
	c.dev.mu.Lock()
	c.dev.stats.Passes++
	c.dev.mu.Unlock()
	return c.call("BeginRenderPass", uint64(len(info.Colors)))
}

func (c *CommandBuffer) EndRenderPass() error           { return c.call("EndRenderPass", 0) }
func (c *CommandBuffer) SetViewport(gfx.Viewport) error { return c.call("SetViewport", 0) }
func (c *CommandBuffer) SetScissor(gfx.Rect) error      { return c.call("SetScissor", 0) }

func (c *CommandBuffer) BindDescriptorSet(set uint32, _ gfx.DescriptorSet, _ []uint32) error {
	return c.call("BindDescriptorSet", uint64(set))
}

func (c *CommandBuffer) UpdateBuffer(_ gfx.Buffer, offset uint64, _ []byte) error {
	return c.call("UpdateBuffer", offset)
}

func (c *CommandBuffer) Draw(info gfx.DrawInfo) error {
	c.dev.mu.Lock()
	c.dev.stats.DrawCalls++
	c.dev.mu.Unlock()
	return c.call("Draw", uint64(info.VertexCount))
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) error {
	c.dev.mu.Lock()
	c.dev.stats.Dispatches++
	c.dev.mu.Unlock()
	return c.call("Dispatch", uint64(x)*uint64(y)*uint64(z))
}

func (c *CommandBuffer) CopyTexture(_, _ gfx.Texture, regions []gfx.TextureCopy) error {
	c.dev.mu.Lock()
	c.dev.stats.Copies++
	c.dev.mu.Unlock()
	return c.call("CopyTexture", uint64(len(regions)))
}
