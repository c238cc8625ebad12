// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package agent

import (
	"slices"

	"github.com/gogpu/gfx"
)

// CommandBuffer forwards recording calls to a command buffer of the wrapped
// device. Every recording call is asynchronous; slice arguments are copied
// before enqueue.
type CommandBuffer struct {
	object[gfx.CommandBuffer]
}

func (c *CommandBuffer) Initialize(info gfx.CommandBufferInfo) error {
	return c.dev.sync(func() error { return c.inner.Initialize(info) })
}

func (c *CommandBuffer) Begin() error {
	return c.dev.async("CommandBuffer.Begin", c.inner.Begin)
}

func (c *CommandBuffer) End() error {
	return c.dev.async("CommandBuffer.End", c.inner.End)
}

func (c *CommandBuffer) PipelineBarrier(barriers []gfx.TextureBarrier) error {
	inner := make([]gfx.TextureBarrier, len(barriers))
	for i, b := range barriers {
		b.Texture = unwrap(b.Texture)
		inner[i] = b
	}
	return c.dev.async("CommandBuffer.PipelineBarrier", func() error { return c.inner.PipelineBarrier(inner) })
}

func (c *CommandBuffer) BeginRenderPass(info gfx.RenderPassInfo) error {
	info = unwrapRenderPass(info)
	return c.dev.async("CommandBuffer.BeginRenderPass", func() error { return c.inner.BeginRenderPass(info) })
}

func unwrapRenderPass(info gfx.RenderPassInfo) gfx.RenderPassInfo {
	colors := make([]gfx.ColorAttachment, len(info.Colors))
	for i, ca := range info.Colors {
		ca.Texture = unwrap(ca.Texture)
		colors[i] = ca
	}
	info.Colors = colors
	if info.DepthStencil != nil {
		ds := *info.DepthStencil
		ds.Texture = unwrap(ds.Texture)
		info.DepthStencil = &ds
	}
	return info
}

func (c *CommandBuffer) EndRenderPass() error {
	return c.dev.async("CommandBuffer.EndRenderPass", c.inner.EndRenderPass)
}

func (c *CommandBuffer) SetViewport(vp gfx.Viewport) error {
	return c.dev.async("CommandBuffer.SetViewport", func() error { return c.inner.SetViewport(vp) })
}

func (c *CommandBuffer) SetScissor(rect gfx.Rect) error {
	return c.dev.async("CommandBuffer.SetScissor", func() error { return c.inner.SetScissor(rect) })
}

func (c *CommandBuffer) BindDescriptorSet(set uint32, ds gfx.DescriptorSet, dynamicOffsets []uint32) error {
	inner := unwrap(ds)
	offsets := slices.Clone(dynamicOffsets)
	return c.dev.async("CommandBuffer.BindDescriptorSet", func() error {
		return c.inner.BindDescriptorSet(set, inner, offsets)
	})
}

func (c *CommandBuffer) UpdateBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	inner := unwrap(buf)
	data = slices.Clone(data)
	return c.dev.async("CommandBuffer.UpdateBuffer", func() error { return c.inner.UpdateBuffer(inner, offset, data) })
}

func (c *CommandBuffer) Draw(info gfx.DrawInfo) error {
	return c.dev.async("CommandBuffer.Draw", func() error { return c.inner.Draw(info) })
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) error {
	return c.dev.async("CommandBuffer.Dispatch", func() error { return c.inner.Dispatch(x, y, z) })
}

func (c *CommandBuffer) CopyTexture(src, dst gfx.Texture, regions []gfx.TextureCopy) error {
	src, dst = unwrap(src), unwrap(dst)
	regions = slices.Clone(regions)
	return c.dev.async("CommandBuffer.CopyTexture", func() error { return c.inner.CopyTexture(src, dst, regions) })
}
