// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package validator

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/internal/gfxtest"
	"github.com/gogpu/gfx/tracker"
	"github.com/gogpu/gputypes"
)

func newValidator(t *testing.T) (*Device, *gfxtest.Device) {
	t.Helper()
	tracker.ResetAll()
	inner := gfxtest.New(gfx.APIHeadless)
	d := New(inner)
	if err := d.Initialize(gfx.DeviceInfo{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(tracker.ResetAll)
	return d, inner
}

func wantViolation(t *testing.T, name string, err, cause error) {
	t.Helper()
	var ce *gfx.ContractError
	if !errors.As(err, &ce) {
		t.Errorf("%s error = %v, want *gfx.ContractError", name, err)
		return
	}
	if !errors.Is(err, cause) {
		t.Errorf("%s error = %v, want cause %v", name, err, cause)
	}
}

func TestRejectsUseBeforeInitialize(t *testing.T) {
	d, inner := newValidator(t)
	buf := d.NewBuffer()
	tex := d.NewTexture()
	cmd := d.NewCommandBuffer()
	set := d.NewDescriptorSet()
	sc := d.NewSwapchain()

	tests := []struct {
		name string
		op   string
		call func() error
	}{
		{"Buffer.Update", "Buffer.Update", func() error { return buf.Update(0, []byte{1}) }},
		{"Buffer.Resize", "Buffer.Resize", func() error { return buf.Resize(64) }},
		{"Texture.Resize", "Texture.Resize", func() error { return tex.Resize(4, 4) }},
		{"CommandBuffer.Begin", "CommandBuffer.Begin", cmd.Begin},
		{"DescriptorSet.Update", "DescriptorSet.Update", set.Update},
		{"Swapchain.Resize", "Swapchain.Resize", func() error { return sc.Resize(8, 8, gfx.TransformIdentity) }},
		{"Device.ReadBuffer", "Device.ReadBuffer", func() error { return d.ReadBuffer(buf, 0, nil) }},
		{"Device.Submit", "Device.Submit", func() error { return d.Submit([]gfx.CommandBuffer{cmd}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantViolation(t, tt.name, tt.call(), gfx.ErrNotInitialized)
			if n := inner.Count(tt.op); n != 0 {
				t.Errorf("%s forwarded %d times", tt.op, n)
			}
		})
	}
}

func TestRejectsDoubleDestroy(t *testing.T) {
	d, inner := newValidator(t)
	buf := d.NewBuffer()
	if err := buf.Initialize(gfx.BufferInfo{Size: 16}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := buf.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	wantViolation(t, "second Destroy()", buf.Destroy(), gfx.ErrDestroyed)
	if n := inner.Count("Buffer.Destroy"); n != 1 {
		t.Errorf("Buffer.Destroy forwarded %d times, want 1", n)
	}
	wantViolation(t, "Update() after Destroy", buf.Update(0, nil), gfx.ErrDestroyed)
	if tracker.Buffers.Len() != 0 {
		t.Errorf("tracker still holds %d buffers", tracker.Buffers.Len())
	}
}

func TestRejectsDoubleInitialize(t *testing.T) {
	d, inner := newValidator(t)
	smp := d.NewSampler()
	if err := smp.Initialize(gfx.SamplerInfo{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	wantViolation(t, "second Initialize()", smp.Initialize(gfx.SamplerInfo{}), gfx.ErrAlreadyInitialized)
	if n := inner.Count("Sampler.Initialize"); n != 1 {
		t.Errorf("Sampler.Initialize forwarded %d times, want 1", n)
	}
}

func TestRejectsForeignObjects(t *testing.T) {
	d, inner := newValidator(t)
	cmd := d.NewCommandBuffer()
	if err := cmd.Initialize(gfx.CommandBufferInfo{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := cmd.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	foreign := inner.NewTexture()
	_ = foreign.Initialize(gfx.TextureInfo{Width: 4, Height: 4})
	err := cmd.PipelineBarrier([]gfx.TextureBarrier{{Texture: foreign}})
	wantViolation(t, "PipelineBarrier(foreign)", err, gfx.ErrTypeMismatch)
	if n := inner.Count("CommandBuffer.PipelineBarrier"); n != 0 {
		t.Errorf("PipelineBarrier forwarded %d times", n)
	}

	foreignCmd := inner.NewCommandBuffer()
	wantViolation(t, "Submit(foreign)", d.Submit([]gfx.CommandBuffer{foreignCmd}), gfx.ErrTypeMismatch)
	wantViolation(t, "Submit(nil)", d.Submit([]gfx.CommandBuffer{nil}), gfx.ErrInvalidArgument)
}

func TestCommandBufferState(t *testing.T) {
	d, inner := newValidator(t)
	tex := d.NewTexture()
	if err := tex.Initialize(gfx.TextureInfo{Format: gputypes.TextureFormatRGBA8Unorm, Width: 8, Height: 8}); err != nil {
		t.Fatalf("Texture.Initialize() error = %v", err)
	}
	cmd := d.NewCommandBuffer()
	_ = cmd.Initialize(gfx.CommandBufferInfo{})

	wantViolation(t, "Draw() before Begin", cmd.Draw(gfx.DrawInfo{}), gfx.ErrContractViolation)
	_ = cmd.Begin()
	wantViolation(t, "Draw() outside pass", cmd.Draw(gfx.DrawInfo{}), gfx.ErrContractViolation)
	wantViolation(t, "Submit() while recording", d.Submit([]gfx.CommandBuffer{cmd}), gfx.ErrContractViolation)

	pass := gfx.RenderPassInfo{Colors: []gfx.ColorAttachment{{Texture: tex, LoadOp: gfx.LoadOpClear}}}
	if err := cmd.BeginRenderPass(pass); err != nil {
		t.Fatalf("BeginRenderPass() error = %v", err)
	}
	wantViolation(t, "nested BeginRenderPass()", cmd.BeginRenderPass(pass), gfx.ErrContractViolation)
	if err := cmd.Draw(gfx.DrawInfo{VertexCount: 3}); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
	wantViolation(t, "End() inside pass", cmd.End(), gfx.ErrContractViolation)
	if err := cmd.EndRenderPass(); err != nil {
		t.Fatalf("EndRenderPass() error = %v", err)
	}
	if err := cmd.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := d.Submit([]gfx.CommandBuffer{cmd}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	want := []string{
		"Texture.Initialize", "CommandBuffer.Initialize", "CommandBuffer.Begin",
		"CommandBuffer.BeginRenderPass", "CommandBuffer.Draw", "CommandBuffer.EndRenderPass",
		"CommandBuffer.End", "Device.Submit",
	}
	got := inner.Ops()[1:] // skip Device.Initialize
	if !slices.Equal(got, want) {
		t.Errorf("forwarded %v, want %v", got, want)
	}
}

func TestDescriptorSetChecksLayout(t *testing.T) {
	d, _ := newValidator(t)
	layout := d.NewDescriptorSetLayout()
	err := layout.Initialize(gfx.DescriptorSetLayoutInfo{Bindings: []gfx.DescriptorSetLayoutBinding{
		{Binding: 0, Type: gfx.DescriptorUniformBuffer, Count: 1},
		{Binding: 1, Type: gfx.DescriptorSampler, Count: 1},
	}})
	if err != nil {
		t.Fatalf("layout Initialize() error = %v", err)
	}
	set := d.NewDescriptorSet()
	if err := set.Initialize(gfx.DescriptorSetInfo{Layout: layout}); err != nil {
		t.Fatalf("set Initialize() error = %v", err)
	}
	if set.Layout() != gfx.DescriptorSetLayout(layout) {
		t.Error("Layout() does not return the validator layout")
	}
	buf := d.NewBuffer()
	_ = buf.Initialize(gfx.BufferInfo{Size: 64})

	if err := set.BindBuffer(0, buf); err != nil {
		t.Errorf("BindBuffer(0) error = %v", err)
	}
	wantViolation(t, "BindBuffer(1)", set.BindBuffer(1, buf), gfx.ErrTypeMismatch)
	wantViolation(t, "BindBuffer(5)", set.BindBuffer(5, buf), gfx.ErrInvalidArgument)

	dup := d.NewDescriptorSetLayout()
	err = dup.Initialize(gfx.DescriptorSetLayoutInfo{Bindings: []gfx.DescriptorSetLayoutBinding{
		{Binding: 2, Type: gfx.DescriptorUniformBuffer},
		{Binding: 2, Type: gfx.DescriptorSampler},
	}})
	wantViolation(t, "duplicate binding", err, gfx.ErrInvalidArgument)
}

func TestSwapchainResizeRefreshesCache(t *testing.T) {
	d, _ := newValidator(t)
	sc := d.NewSwapchain()
	err := sc.Initialize(gfx.SwapchainInfo{
		Width:              1280,
		Height:             720,
		ColorFormat:        gputypes.TextureFormatBGRA8Unorm,
		DepthStencilFormat: gputypes.TextureFormatDepth24PlusStencil8,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if tracker.Textures.Len() != 2 {
		t.Errorf("tracked textures = %d, want color and depth", tracker.Textures.Len())
	}
	gen := sc.Generation()

	sizes := [][2]uint32{{800, 600}, {1, 1}, {3840, 2160}}
	for _, sz := range sizes {
		if err := sc.Resize(sz[0], sz[1], gfx.TransformRotate270); err != nil {
			t.Fatalf("Resize(%v) error = %v", sz, err)
		}
		if sc.Width() != sz[0] || sc.Height() != sz[1] {
			t.Errorf("Resize(%v): Width/Height = %dx%d", sz, sc.Width(), sc.Height())
		}
		if sc.Transform() != gfx.TransformRotate270 {
			t.Errorf("Resize(%v): Transform() = %v", sz, sc.Transform())
		}
		for _, tex := range []gfx.Texture{sc.ColorTexture(), sc.DepthStencilTexture()} {
			if info := tex.Info(); info.Width != sz[0] || info.Height != sz[1] {
				t.Errorf("Resize(%v): %v #%d is %dx%d", sz, tex.ObjectType(), tex.TypedID(), info.Width, info.Height)
			}
		}
		state := sc.(*Swapchain).State()
		if state.ColorFormat != gputypes.TextureFormatBGRA8Unorm ||
			state.DepthStencilFormat != gputypes.TextureFormatDepth24PlusStencil8 {
			t.Errorf("Resize(%v): cached formats %v/%v", sz, state.ColorFormat, state.DepthStencilFormat)
		}
	}
	if sc.Generation() <= gen {
		t.Errorf("Generation() = %d, want > %d", sc.Generation(), gen)
	}

	wantViolation(t, "Destroy(swapchain image)", sc.ColorTexture().Destroy(), gfx.ErrNotOwner)
	wantViolation(t, "Resize(swapchain image)", sc.ColorTexture().Resize(2, 2), gfx.ErrNotOwner)

	color := sc.ColorTexture()
	if err := sc.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if tracker.Textures.Len() != 0 {
		t.Errorf("tracked textures after Destroy = %d, want 0", tracker.Textures.Len())
	}
	wantViolation(t, "Resize() after swapchain Destroy", color.Resize(2, 2), gfx.ErrDestroyed)
}

func TestDestroyReportsLeaks(t *testing.T) {
	d, inner := newValidator(t)
	kept := d.NewBuffer()
	_ = kept.Initialize(gfx.BufferInfo{Size: 4})
	freed := d.NewBuffer()
	_ = freed.Initialize(gfx.BufferInfo{Size: 4})
	_ = freed.Destroy()
	shader := d.NewShader()
	_ = shader.Initialize(gfx.ShaderInfo{Name: "leaky", WGSL: "fn main() {}"})

	if err := d.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	want := []tracker.Leak{
		{Kind: gfx.ObjectBuffer, ID: kept.TypedID()},
		{Kind: gfx.ObjectShader, ID: shader.TypedID()},
	}
	if got := d.Leaks(); !slices.Equal(got, want) {
		t.Errorf("Leaks() = %v, want %v", got, want)
	}
	if inner.Count("Device.Destroy") != 1 {
		t.Error("Device.Destroy not forwarded")
	}
	wantViolation(t, "second Destroy()", d.Destroy(), gfx.ErrDestroyed)
	wantViolation(t, "WaitIdle() after Destroy", d.WaitIdle(), gfx.ErrDestroyed)
}

func TestRejectsOutOfRangeBufferAccess(t *testing.T) {
	d, inner := newValidator(t)
	buf := d.NewBuffer()
	if err := buf.Initialize(gfx.BufferInfo{Size: 64, Usage: gputypes.BufferUsageCopyDst}); err != nil {
		t.Fatalf("Buffer.Initialize() error = %v", err)
	}
	cmd := d.NewCommandBuffer()
	_ = cmd.Initialize(gfx.CommandBufferInfo{})
	if err := cmd.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	tests := []struct {
		name   string
		offset uint64
		n      int
		ok     bool
	}{
		{"fits", 32, 32, true},
		{"empty at end", 64, 0, true},
		{"one past end", 60, 8, false},
		{"offset past end", 65, 0, false},
		{"offset wraps", math.MaxUint64, 2, false},
		{"offset wraps to zero", math.MaxUint64 - 1, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner.Reset()
			data := make([]byte, tt.n)
			calls := []struct {
				op   string
				call func() error
			}{
				{"Buffer.Update", func() error { return buf.Update(tt.offset, data) }},
				{"Device.ReadBuffer", func() error { return d.ReadBuffer(buf, tt.offset, data) }},
				{"CommandBuffer.UpdateBuffer", func() error { return cmd.UpdateBuffer(buf, tt.offset, data) }},
			}
			for _, c := range calls {
				err := c.call()
				if tt.ok {
					if err != nil {
						t.Errorf("%s() error = %v", c.op, err)
					}
					continue
				}
				wantViolation(t, c.op+"()", err, gfx.ErrInvalidArgument)
				if n := inner.Count(c.op); n != 0 {
					t.Errorf("%s forwarded %d times, want 0", c.op, n)
				}
			}
		})
	}
}
