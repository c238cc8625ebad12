// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/layout"
	"github.com/gogpu/gputypes"
)

const (
	// constantsSize is the size of the per-frame constants buffer.
	constantsSize = 64 << 10
	// constantsAlign is the dynamic offset alignment of constant slots.
	constantsAlign = 256
)

// ErrConstantsOverflow is returned when the numeric bindings of a frame do
// not fit the constants buffer.
var ErrConstantsOverflow = errors.New("render: constants buffer overflow")

// constants is the dynamic uniform buffer numeric bindings are packed into.
// Each command with numeric bindings gets its own aligned slot.
type constants struct {
	buf    gfx.Buffer
	layout gfx.DescriptorSetLayout
	set    gfx.DescriptorSet
	data   []byte
}

func newConstants(dev gfx.Device) (*constants, error) {
	c := &constants{
		buf:    dev.NewBuffer(),
		layout: dev.NewDescriptorSetLayout(),
		set:    dev.NewDescriptorSet(),
		data:   make([]byte, 0, constantsSize),
	}
	err := c.buf.Initialize(gfx.BufferInfo{
		Label: "render-constants",
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		Size:  constantsSize,
	})
	if err == nil {
		err = c.layout.Initialize(gfx.DescriptorSetLayoutInfo{
			Label: "render-constants",
			Bindings: []gfx.DescriptorSetLayoutBinding{{
				Name:       "constants",
				Type:       gfx.DescriptorDynamicUniformBuffer,
				Count:      1,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment | gputypes.ShaderStageCompute,
			}},
		})
	}
	if err == nil {
		err = c.set.Initialize(gfx.DescriptorSetInfo{Layout: c.layout})
	}
	if err == nil {
		err = c.set.BindBuffer(0, c.buf)
	}
	if err == nil {
		err = c.set.Update()
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("render: constants: %w", err), c.destroy())
	}
	return c, nil
}

func (c *constants) destroy() error {
	return errors.Join(c.set.Destroy(), c.layout.Destroy(), c.buf.Destroy())
}

// push packs the numeric bindings of b into a new slot and returns its
// offset. ok is false when b holds no numeric binding. Slots are padded to
// constantsAlign so every offset is a valid dynamic offset.
func (c *constants) push(b Bindings) (offset uint32, ok bool, err error) {
	packed := pack(b)
	if len(packed) == 0 {
		return 0, false, nil
	}
	start := len(c.data)
	end := start + len(packed)
	if rem := end % constantsAlign; rem != 0 {
		end += constantsAlign - rem
	}
	if end > constantsSize {
		return 0, false, fmt.Errorf("%w: %d bytes", ErrConstantsOverflow, end)
	}
	c.data = append(c.data, packed...)
	c.data = append(c.data, make([]byte, end-len(c.data))...)
	return uint32(start), true, nil
}

// pack encodes the numeric values of b sorted by name. Every value starts
// on a 16 byte boundary.
func pack(b Bindings) []byte {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []byte
	put := func(fs ...float32) {
		for _, f := range fs {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
		for len(out)%16 != 0 {
			out = append(out, 0)
		}
	}
	for _, name := range names {
		switch v := b[name].(type) {
		case Mat4:
			put(v[:]...)
		case Quaternion:
			put(v[:]...)
		case Vec4:
			put(v[:]...)
		case Vec2:
			put(v[:]...)
		case gfx.Color:
			put(v.R, v.G, v.B, v.A)
		case float32:
			put(v)
		}
	}
	return out
}

// slot identifies one queue command of a frame.
type slot struct {
	q *queue
	i int
}

// Execute records and submits the compiled graph of the current frame.
func (p *Pipeline) Execute() error {
	if err := p.expect("Execute", stateFrame); err != nil {
		return err
	}
	if p.cmd == nil || p.consts == nil {
		return fmt.Errorf("%w: pipeline not activated", ErrState)
	}
	offsets, err := p.packConstants()
	if err != nil {
		return err
	}

	cmd := p.cmd
	if err := cmd.Begin(); err != nil {
		return fmt.Errorf("render: begin: %w", err)
	}
	if len(p.consts.data) > 0 {
		if err := cmd.UpdateBuffer(p.consts.buf, 0, p.consts.data); err != nil {
			return errors.Join(fmt.Errorf("render: constants: %w", err), cmd.End())
		}
	}
	for _, pp := range p.plan.Passes {
		if err := p.executePass(cmd, pp, offsets); err != nil {
			return errors.Join(&PassError{Pass: pp.Name, Err: err}, cmd.End())
		}
	}
	if err := p.barriers(cmd, p.plan.Final); err != nil {
		return errors.Join(err, cmd.End())
	}
	if err := cmd.End(); err != nil {
		return fmt.Errorf("render: end: %w", err)
	}
	if err := p.dev.Submit([]gfx.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("render: submit: %w", err)
	}
	p.pool.persist(p.plan)
	return nil
}

// packConstants assigns a constants slot to every command with numeric
// bindings.
func (p *Pipeline) packConstants() (map[slot]uint32, error) {
	p.consts.data = p.consts.data[:0]
	offsets := make(map[slot]uint32)
	for _, pp := range p.plan.Passes {
		for _, q := range pp.pass.queues {
			for i, c := range q.commands {
				if c.Kind == CommandClear || c.Kind == CommandViewport {
					continue
				}
				off, ok, err := p.consts.push(c.Bindings)
				if err != nil {
					return nil, &PassError{Pass: pp.Name, Err: err}
				}
				if ok {
					offsets[slot{q, i}] = off
				}
			}
		}
	}
	return offsets, nil
}

// barriers emits the transitions of bs. Transitions to StatePresent are
// left to presentation.
func (p *Pipeline) barriers(cmd gfx.CommandBuffer, bs []Barrier) error {
	var out []gfx.TextureBarrier
	for _, b := range bs {
		tex := p.textures[b.Resource]
		if tex == nil || b.New == StatePresent {
			continue
		}
		out = append(out, gfx.TextureBarrier{Texture: tex, OldUsage: b.Old.Usage(), NewUsage: b.New.Usage()})
	}
	if len(out) == 0 {
		return nil
	}
	return cmd.PipelineBarrier(out)
}

func (p *Pipeline) executePass(cmd gfx.CommandBuffer, pp PassPlan, offsets map[slot]uint32) error {
	if err := p.barriers(cmd, pp.Barriers); err != nil {
		return err
	}
	ps := pp.pass
	switch ps.kind {
	case PassRaster:
		return p.executeRaster(cmd, ps, offsets)
	case PassCompute:
		return p.executeCompute(cmd, ps, offsets)
	case PassCopy:
		return p.executeCopy(cmd, ps)
	case PassMove:
		for _, m := range ps.moves {
			gfx.Logger().Debug("render: move", "source", m.Source, "target", m.Target)
		}
	}
	return nil
}

func (p *Pipeline) renderPassInfo(ps *pass) gfx.RenderPassInfo {
	clears := make(map[string]gfx.Color)
	for _, q := range ps.queues {
		for _, c := range q.commands {
			if c.Kind == CommandClear {
				clears[c.Target] = c.Color
			}
		}
	}
	info := gfx.RenderPassInfo{Label: ps.name}
	for _, v := range ps.raster {
		tex := p.textures[v.resource]
		if v.Attachment == AttachmentDepthStencil {
			info.DepthStencil = &gfx.DepthStencilAttachment{
				Texture:        tex,
				DepthLoadOp:    v.LoadOp,
				DepthStoreOp:   v.StoreOp,
				StencilLoadOp:  v.LoadOp,
				StencilStoreOp: v.StoreOp,
				ClearDepth:     v.ClearDepth,
				ClearStencil:   v.ClearStencil,
			}
			continue
		}
		ca := gfx.ColorAttachment{Texture: tex, LoadOp: v.LoadOp, StoreOp: v.StoreOp, ClearColor: v.ClearColor}
		if c, ok := clears[v.resource]; ok {
			ca.LoadOp, ca.ClearColor = gfx.LoadOpClear, c
		}
		info.Colors = append(info.Colors, ca)
	}
	width, height := ps.width, ps.height
	if (width == 0 || height == 0) && len(ps.raster) > 0 {
		r := p.byName[ps.raster[0].resource]
		width, height = r.width, r.height
	}
	info.RenderArea = gfx.Rect{Width: width, Height: height}
	return info
}

func (p *Pipeline) executeRaster(cmd gfx.CommandBuffer, ps *pass, offsets map[slot]uint32) error {
	info := p.renderPassInfo(ps)
	set, err := p.passSet(ps)
	if err != nil {
		return err
	}
	if err := cmd.BeginRenderPass(info); err != nil {
		return err
	}
	if err := p.recordRaster(cmd, ps, info.RenderArea, set, offsets); err != nil {
		return errors.Join(err, cmd.EndRenderPass())
	}
	return cmd.EndRenderPass()
}

func (p *Pipeline) recordRaster(cmd gfx.CommandBuffer, ps *pass, area gfx.Rect, set gfx.DescriptorSet, offsets map[slot]uint32) error {
	vp := gfx.Viewport{Width: area.Width, Height: area.Height, MaxDepth: 1}
	if ps.viewport != nil {
		vp = *ps.viewport
	}
	if err := cmd.SetViewport(vp); err != nil {
		return err
	}
	if err := cmd.SetScissor(area); err != nil {
		return err
	}
	if set != nil {
		if err := cmd.BindDescriptorSet(p.setIndex(layout.PerPass), set, nil); err != nil {
			return err
		}
	}
	for _, q := range ps.queues {
		for i, c := range q.commands {
			if err := p.bindConstants(cmd, offsets, slot{q, i}); err != nil {
				return err
			}
			if err := p.executeCommand(cmd, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) executeCommand(cmd gfx.CommandBuffer, c Command) error {
	switch c.Kind {
	case CommandViewport:
		return cmd.SetViewport(c.Viewport)
	case CommandQuad:
		if c.Camera != nil {
			if err := cmd.SetViewport(c.Camera.Viewport()); err != nil {
				return err
			}
		}
		return cmd.Draw(gfx.DrawInfo{VertexCount: 3, InstanceCount: 1})
	case CommandScene:
		tr := p.CreateSceneTransversal(c.Camera, c.Scene, c.Flags)
		task := tr.Transverse(&visitor{p: p, cmd: cmd})
		task.Start()
		task.Join()
		return task.Submit()
	}
	return nil
}

func (p *Pipeline) executeCompute(cmd gfx.CommandBuffer, ps *pass, offsets map[slot]uint32) error {
	set, err := p.passSet(ps)
	if err != nil {
		return err
	}
	if set != nil {
		if err := cmd.BindDescriptorSet(p.setIndex(layout.PerPass), set, nil); err != nil {
			return err
		}
	}
	for _, q := range ps.queues {
		for i, c := range q.commands {
			if c.Kind != CommandDispatch {
				continue
			}
			if err := p.bindConstants(cmd, offsets, slot{q, i}); err != nil {
				return err
			}
			if err := cmd.Dispatch(c.Groups[0], c.Groups[1], c.Groups[2]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) executeCopy(cmd gfx.CommandBuffer, ps *pass) error {
	for _, c := range ps.copies {
		src, dst := p.textures[c.Source], p.textures[c.Target]
		info := src.Info()
		regions := make([]gfx.TextureCopy, max(c.MipLevels, 1))
		for m := range regions {
			level := c.SourceMostDetailedMip + uint32(m)
			regions[m] = gfx.TextureCopy{
				SrcLevel: level,
				SrcLayer: c.SourceFirstSlice,
				DstLevel: c.TargetMostDetailedMip + uint32(m),
				DstLayer: c.TargetFirstSlice,
				Width:    max(info.Width>>level, 1),
				Height:   max(info.Height>>level, 1),
				Layers:   max(c.NumSlices, 1),
			}
		}
		if err := cmd.CopyTexture(src, dst, regions); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) bindConstants(cmd gfx.CommandBuffer, offsets map[slot]uint32, s slot) error {
	off, ok := offsets[s]
	if !ok {
		return nil
	}
	return cmd.BindDescriptorSet(p.setIndex(layout.PerInstance), p.consts.set, []uint32{off})
}

// setIndex returns the descriptor set index of freq.
func (p *Pipeline) setIndex(freq layout.UpdateFrequency) uint32 {
	if data, err := p.layouts.Data(); err == nil {
		return data.SetIndex(freq)
	}
	return gfx.DefaultBindingMapping().SetIndices[freq]
}

// passSet creates the per-pass descriptor set of ps from the render stage
// named by its layout name. It returns nil when the pass names no stage.
func (p *Pipeline) passSet(ps *pass) (gfx.DescriptorSet, error) {
	if ps.layoutName == "" {
		return nil, nil
	}
	data, err := p.layouts.Data()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoLayout, err)
	}
	id, ok := data.LookupStage(ps.layoutName)
	if !ok {
		return nil, fmt.Errorf("%w: render stage %q", ErrNoLayout, ps.layoutName)
	}
	l, err := p.layoutFor(data, id)
	if err != nil {
		return nil, err
	}

	values := ps.snapshot()
	if values == nil {
		values = make(Bindings)
	}
	for _, v := range ps.compute {
		if v.Slot != "" {
			values[v.Slot] = TextureParam{Texture: p.textures[v.resource], ReadWrite: v.Access.writes()}
		}
	}

	set := p.dev.NewDescriptorSet()
	if err := set.Initialize(gfx.DescriptorSetInfo{Layout: l}); err != nil {
		return nil, err
	}
	p.frameSets = append(p.frameSets, set)
	for _, b := range l.Bindings() {
		var err error
		switch v := values[b.Name].(type) {
		case TextureParam:
			err = set.BindTexture(b.Binding, v.Texture)
		case BufferParam:
			err = set.BindBuffer(b.Binding, v.Buffer)
		case gfx.Sampler:
			err = set.BindSampler(b.Binding, v)
		default:
			gfx.Logger().Debug("render: unbound descriptor", "pass", ps.name, "binding", b.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Name, err)
		}
	}
	return set, set.Update()
}
