// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package validator

import (
	"errors"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/tracker"
)

var (
	errRecording    = errors.New("command buffer is recording")
	errNotRecording = errors.New("command buffer is not recording")
	errInPass       = errors.New("inside a render pass")
	errOutsidePass  = errors.New("outside a render pass")
)

// CommandBuffer validates recording calls. It tracks the Begin/End and
// render pass nesting state and checks every object argument.
type CommandBuffer struct {
	object[gfx.CommandBuffer]

	recording bool
	inPass    bool
}

func (c *CommandBuffer) Initialize(info gfx.CommandBufferInfo) error {
	return c.initialize("CommandBuffer.Initialize", func() error { return c.inner.Initialize(info) })
}

func (c *CommandBuffer) isRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// recordable fails unless the buffer is usable and its pass state matches.
func (c *CommandBuffer) recordable(op string, wantPass bool) error {
	if err := c.usable(op); err != nil {
		return err
	}
	switch {
	case !c.recording:
		return c.violation(op, errNotRecording)
	case wantPass && !c.inPass:
		return c.violation(op, errOutsidePass)
	case !wantPass && c.inPass:
		return c.violation(op, errInPass)
	}
	return nil
}

func (c *CommandBuffer) Begin() error {
	const op = "CommandBuffer.Begin"
	if err := c.usable(op); err != nil {
		return err
	}
	if c.recording {
		return c.violation(op, errRecording)
	}
	if err := c.inner.Begin(); err != nil {
		return err
	}
	c.recording = true
	return nil
}

func (c *CommandBuffer) End() error {
	if err := c.recordable("CommandBuffer.End", false); err != nil {
		return err
	}
	if err := c.inner.End(); err != nil {
		return err
	}
	c.recording = false
	return nil
}

func (c *CommandBuffer) texture(op string, tex gfx.Texture) (gfx.Texture, error) {
	return argument(c.dev, op, tex, gfx.ObjectTexture)
}

func (c *CommandBuffer) PipelineBarrier(barriers []gfx.TextureBarrier) error {
	const op = "CommandBuffer.PipelineBarrier"
	if err := c.recordable(op, false); err != nil {
		return err
	}
	inner := make([]gfx.TextureBarrier, len(barriers))
	for i, b := range barriers {
		raw, err := c.texture(op, b.Texture)
		if err != nil {
			return err
		}
		b.Texture = raw
		inner[i] = b
	}
	return c.inner.PipelineBarrier(inner)
}

func (c *CommandBuffer) BeginRenderPass(info gfx.RenderPassInfo) error {
	const op = "CommandBuffer.BeginRenderPass"
	if err := c.recordable(op, false); err != nil {
		return err
	}
	if len(info.Colors) == 0 && info.DepthStencil == nil {
		return c.violation(op, gfx.ErrInvalidArgument)
	}
	colors := make([]gfx.ColorAttachment, len(info.Colors))
	for i, ca := range info.Colors {
		raw, err := c.texture(op, ca.Texture)
		if err != nil {
			return err
		}
		ca.Texture = raw
		colors[i] = ca
	}
	info.Colors = colors
	if info.DepthStencil != nil {
		ds := *info.DepthStencil
		raw, err := c.texture(op, ds.Texture)
		if err != nil {
			return err
		}
		ds.Texture = raw
		info.DepthStencil = &ds
	}
	if err := c.inner.BeginRenderPass(info); err != nil {
		return err
	}
	c.inPass = true
	return nil
}

func (c *CommandBuffer) EndRenderPass() error {
	if err := c.recordable("CommandBuffer.EndRenderPass", true); err != nil {
		return err
	}
	if err := c.inner.EndRenderPass(); err != nil {
		return err
	}
	c.inPass = false
	return nil
}

func (c *CommandBuffer) SetViewport(vp gfx.Viewport) error {
	if err := c.recordable("CommandBuffer.SetViewport", true); err != nil {
		return err
	}
	return c.inner.SetViewport(vp)
}

func (c *CommandBuffer) SetScissor(rect gfx.Rect) error {
	if err := c.recordable("CommandBuffer.SetScissor", true); err != nil {
		return err
	}
	return c.inner.SetScissor(rect)
}

func (c *CommandBuffer) BindDescriptorSet(set uint32, ds gfx.DescriptorSet, dynamicOffsets []uint32) error {
	const op = "CommandBuffer.BindDescriptorSet"
	if err := c.usable(op); err != nil {
		return err
	}
	if !c.recording {
		return c.violation(op, errNotRecording)
	}
	raw, err := argument(c.dev, op, ds, gfx.ObjectDescriptorSet)
	if err != nil {
		return err
	}
	return c.inner.BindDescriptorSet(set, raw, dynamicOffsets)
}

func (c *CommandBuffer) UpdateBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	const op = "CommandBuffer.UpdateBuffer"
	if err := c.recordable(op, false); err != nil {
		return err
	}
	raw, err := argument(c.dev, op, buf, gfx.ObjectBuffer)
	if err != nil {
		return err
	}
	if outOfRange(offset, len(data), raw.Info().Size) {
		return c.dev.violation(op, buf, gfx.ErrInvalidArgument)
	}
	return c.inner.UpdateBuffer(raw, offset, data)
}

func (c *CommandBuffer) Draw(info gfx.DrawInfo) error {
	if err := c.recordable("CommandBuffer.Draw", true); err != nil {
		return err
	}
	return c.inner.Draw(info)
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) error {
	if err := c.recordable("CommandBuffer.Dispatch", false); err != nil {
		return err
	}
	return c.inner.Dispatch(x, y, z)
}

func (c *CommandBuffer) CopyTexture(src, dst gfx.Texture, regions []gfx.TextureCopy) error {
	const op = "CommandBuffer.CopyTexture"
	if err := c.recordable(op, false); err != nil {
		return err
	}
	rawSrc, err := c.texture(op, src)
	if err != nil {
		return err
	}
	rawDst, err := c.texture(op, dst)
	if err != nil {
		return err
	}
	if rawSrc.TypedID() == rawDst.TypedID() {
		return c.dev.violation(op, src, gfx.ErrInvalidArgument)
	}
	return c.inner.CopyTexture(rawSrc, rawDst, regions)
}

func (c *CommandBuffer) Destroy() error { return c.destroy(tracker.CommandBuffers.Erase) }
