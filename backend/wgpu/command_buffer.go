// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotRecording is returned when recording outside Begin/End.
var ErrNotRecording = errors.New("wgpu: command buffer is not recording")

type opcode uint8

const (
	opBarrier opcode = iota
	opBeginPass
	opEndPass
	opViewport
	opScissor
	opBindSet
	opUpdateBuffer
	opDraw
	opDispatch
	opCopyTexture
)

type command struct {
	op       opcode
	barriers []gfx.TextureBarrier
	pass     gfx.RenderPassInfo
	buf      *Buffer
	offset   uint64
	data     []byte
}

// CommandBuffer records commands and encodes them on Submit.
//
// Barriers, render pass clears and buffer updates are encoded on the HAL
// queue. Draws, dispatches and texture copies need pipeline state the
// device does not own and are only counted.
type CommandBuffer struct {
	resource
	label     string
	recording bool
	inPass    bool
	cmds      []command
}

func (c *CommandBuffer) Initialize(info gfx.CommandBufferInfo) error {
	c.label = info.Label
	if c.label == "" {
		c.label = fmt.Sprintf("cmd%d", c.id)
	}
	return nil
}

func (c *CommandBuffer) Destroy() error {
	c.cmds = nil
	c.recording = false
	return nil
}

func (c *CommandBuffer) Begin() error {
	c.cmds = c.cmds[:0]
	c.recording = true
	c.inPass = false
	return nil
}

func (c *CommandBuffer) End() error {
	if !c.recording {
		return ErrNotRecording
	}
	if c.inPass {
		return fmt.Errorf("%w: End inside a render pass", gfx.ErrInvalidArgument)
	}
	c.recording = false
	return nil
}

func (c *CommandBuffer) push(cmd command) error {
	if !c.recording {
		return ErrNotRecording
	}
	c.cmds = append(c.cmds, cmd)
	return nil
}

func (c *CommandBuffer) PipelineBarrier(barriers []gfx.TextureBarrier) error {
	return c.push(command{op: opBarrier, barriers: append([]gfx.TextureBarrier(nil), barriers...)})
}

func (c *CommandBuffer) BeginRenderPass(info gfx.RenderPassInfo) error {
	if c.inPass {
		return fmt.Errorf("%w: nested render pass %q", gfx.ErrInvalidArgument, info.Label)
	}
	if err := c.push(command{op: opBeginPass, pass: info}); err != nil {
		return err
	}
	c.inPass = true
	return nil
}

func (c *CommandBuffer) EndRenderPass() error {
	if !c.inPass {
		return fmt.Errorf("%w: EndRenderPass without BeginRenderPass", gfx.ErrInvalidArgument)
	}
	if err := c.push(command{op: opEndPass}); err != nil {
		return err
	}
	c.inPass = false
	return nil
}

func (c *CommandBuffer) SetViewport(gfx.Viewport) error { return c.push(command{op: opViewport}) }
func (c *CommandBuffer) SetScissor(gfx.Rect) error      { return c.push(command{op: opScissor}) }

func (c *CommandBuffer) BindDescriptorSet(_ uint32, ds gfx.DescriptorSet, _ []uint32) error {
	if _, ok := ds.(*DescriptorSet); !ok {
		return fmt.Errorf("%w: descriptor set %T", gfx.ErrTypeMismatch, ds)
	}
	return c.push(command{op: opBindSet})
}

func (c *CommandBuffer) UpdateBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	raw, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: buffer %T", gfx.ErrTypeMismatch, buf)
	}
	return c.push(command{op: opUpdateBuffer, buf: raw, offset: offset, data: append([]byte(nil), data...)})
}

func (c *CommandBuffer) Draw(gfx.DrawInfo) error { return c.push(command{op: opDraw}) }

func (c *CommandBuffer) Dispatch(x, y, z uint32) error {
	if x == 0 || y == 0 || z == 0 {
		return nil
	}
	return c.push(command{op: opDispatch})
}

func (c *CommandBuffer) CopyTexture(src, dst gfx.Texture, _ []gfx.TextureCopy) error {
	if _, ok := src.(*Texture); !ok {
		return fmt.Errorf("%w: copy source %T", gfx.ErrTypeMismatch, src)
	}
	if _, ok := dst.(*Texture); !ok {
		return fmt.Errorf("%w: copy destination %T", gfx.ErrTypeMismatch, dst)
	}
	return c.push(command{op: opCopyTexture})
}

func loadOp(op gfx.LoadOp) gputypes.LoadOp {
	if op == gfx.LoadOpClear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

func storeOp(op gfx.StoreOp) gputypes.StoreOp {
	if op == gfx.StoreOpDiscard {
		return gputypes.StoreOpDiscard
	}
	return gputypes.StoreOpStore
}

func clearColor(c gfx.Color) gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

func textureView(t gfx.Texture) (hal.TextureView, error) {
	raw, ok := t.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: attachment %T", gfx.ErrTypeMismatch, t)
	}
	if raw.view == nil {
		return nil, fmt.Errorf("%w: attachment texture #%d", gfx.ErrNotInitialized, raw.id)
	}
	return raw.view, nil
}

func renderPassDescriptor(info gfx.RenderPassInfo) (*hal.RenderPassDescriptor, error) {
	desc := &hal.RenderPassDescriptor{Label: info.Label}
	for _, ca := range info.Colors {
		view, err := textureView(ca.Texture)
		if err != nil {
			return nil, err
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     loadOp(ca.LoadOp),
			StoreOp:    storeOp(ca.StoreOp),
			ClearValue: clearColor(ca.ClearColor),
		})
	}
	if ds := info.DepthStencil; ds != nil {
		view, err := textureView(ds.Texture)
		if err != nil {
			return nil, err
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       loadOp(ds.DepthLoadOp),
			DepthStoreOp:      storeOp(ds.DepthStoreOp),
			DepthClearValue:   ds.ClearDepth,
			StencilLoadOp:     loadOp(ds.StencilLoadOp),
			StencilStoreOp:    storeOp(ds.StencilStoreOp),
			StencilClearValue: ds.ClearStencil,
		}
	}
	return desc, nil
}

func halBarriers(barriers []gfx.TextureBarrier) []hal.TextureBarrier {
	out := make([]hal.TextureBarrier, 0, len(barriers))
	for _, b := range barriers {
		raw, ok := b.Texture.(*Texture)
		if !ok || raw.tex == nil {
			continue
		}
		out = append(out, hal.TextureBarrier{
			Texture: raw.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: b.OldUsage,
				NewUsage: b.NewUsage,
			},
		})
	}
	return out
}

// submit uploads pending buffer updates, encodes the recorded commands and
// waits for them to complete.
func (c *CommandBuffer) submit(device hal.Device, queue hal.Queue) error {
	if c.recording {
		return fmt.Errorf("%w: submit of command buffer %q before End", gfx.ErrInvalidArgument, c.label)
	}
	stats := &c.dev.stats

	for _, cmd := range c.cmds {
		if cmd.op == opUpdateBuffer && cmd.buf.buf != nil {
			if err := queue.WriteBuffer(cmd.buf.buf, cmd.offset, cmd.data); err != nil {
				return fmt.Errorf("wgpu: update buffer: %w", err)
			}
		}
	}

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: c.label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(c.label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	var endPass func()
	for _, cmd := range c.cmds {
		switch cmd.op {
		case opBarrier:
			if hb := halBarriers(cmd.barriers); len(hb) > 0 {
				encoder.TransitionTextures(hb)
			}
			stats.barriers.Add(uint64(len(cmd.barriers)))
		case opBeginPass:
			desc, err := renderPassDescriptor(cmd.pass)
			if err != nil {
				encoder.DiscardEncoding()
				return err
			}
			rp := encoder.BeginRenderPass(desc)
			endPass = func() { rp.End() }
			stats.passes.Add(1)
		case opEndPass:
			if endPass != nil {
				endPass()
				endPass = nil
			}
		case opDraw:
			stats.draws.Add(1)
		case opDispatch:
			stats.dispatches.Add(1)
		case opCopyTexture:
			stats.copies.Add(1)
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)
	return submitAndWait(queue, cmdBuf)
}
