// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipelinefile

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/gfx/render"
)

// frame holds the values a frame's declarations default to.
type frame struct {
	camera *render.Camera
	width  uint32
	height uint32
	names  []cty.Value
}

func (f *File) frame(cameras []*render.Camera, p *render.Pipeline) frame {
	fr := frame{camera: &render.Camera{Width: f.Screen[0], Height: f.Screen[1]}}
	for _, c := range cameras {
		if c == nil {
			continue
		}
		if len(fr.names) == 0 {
			fr.camera = c
		}
		fr.names = append(fr.names, cty.StringVal(c.Name))
	}
	fr.width, fr.height = p.Scaled(fr.camera.Width), p.Scaled(fr.camera.Height)
	return fr
}

// EvalContext returns the variables and functions expressions of the file
// are evaluated with for cameras on p.
func (f *File) EvalContext(cameras []*render.Camera, p *render.Pipeline) *hcl.EvalContext {
	return f.frame(cameras, p).evalContext()
}

func (fr frame) evalContext() *hcl.EvalContext {
	names := cty.ListValEmpty(cty.String)
	if len(fr.names) > 0 {
		names = cty.ListVal(fr.names)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"screen": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberUIntVal(uint64(fr.width)),
				"height": cty.NumberUIntVal(uint64(fr.height)),
			}),
			"camera": cty.ObjectVal(map[string]cty.Value{
				"name":   cty.StringVal(fr.camera.Name),
				"width":  cty.NumberUIntVal(uint64(fr.camera.Width)),
				"height": cty.NumberUIntVal(uint64(fr.camera.Height)),
			}),
			"cameras": names,
		},
		Functions: functions,
	}
}

// Setup declares the resources and passes of the file on p. Render
// targets without an extent are screen sized; scene commands without a
// camera draw the first camera.
func (f *File) Setup(cameras []*render.Camera, p *render.Pipeline) error {
	fr := f.frame(cameras, p)
	var g graph
	if diags := gohcl.DecodeBody(f.body, fr.evalContext(), &g); diags.HasErrors() {
		return fmt.Errorf("pipelinefile: %s: %w", f.name, diags)
	}
	var errs []error
	for _, r := range g.Resources {
		if err := f.declareResource(p, fr, r); err != nil {
			errs = append(errs, fmt.Errorf("resource %q: %w", r.Name, err))
		}
	}
	for _, ps := range g.Passes {
		if err := f.declarePass(p, fr, ps); err != nil {
			errs = append(errs, fmt.Errorf("pass %q: %w", ps.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pipelinefile: %s: %w", f.name, err)
	}
	return nil
}

func (f *File) declareResource(p *render.Pipeline, fr frame, r *resourceBlock) error {
	format, err := parseFormat(r.Format)
	if err != nil {
		return err
	}
	width, height := r.Width, r.Height
	if width == 0 || height == 0 {
		width, height = fr.width, fr.height
	}
	residency := render.Managed
	if r.Residency != "" {
		if residency, err = render.ParseResidency(r.Residency); err != nil {
			return err
		}
	}
	switch r.Kind {
	case "render_target":
		_, err = p.AddRenderTarget(r.Name, format, width, height, residency)
	case "depth_stencil":
		_, err = p.AddDepthStencil(r.Name, format, width, height, residency)
	case "backbuffer":
		w := f.windows[r.Window]
		if w == nil {
			return fmt.Errorf("unknown window %q", r.Window)
		}
		if r.Width == 0 || r.Height == 0 {
			width, height = w.Swapchain.Width(), w.Swapchain.Height()
		}
		_, err = p.AddRenderTexture(r.Name, format, width, height, w)
	default:
		return fmt.Errorf("unknown resource kind %q", r.Kind)
	}
	return err
}

func (f *File) declarePass(p *render.Pipeline, fr frame, b *passBlock) error {
	switch b.Kind {
	case "raster":
		ps := p.AddRasterPass(b.Width, b.Height, b.Layout)
		ps.SetName(b.Name)
		if len(b.Viewport) > 0 {
			vp, err := viewport(b.Viewport)
			if err != nil {
				return err
			}
			ps.SetViewport(vp)
		}
		if err := setParams(ps, b.Params); err != nil {
			return err
		}
		for _, v := range b.Views {
			switch v.Kind {
			case "raster":
				rv, err := rasterView(v)
				if err != nil {
					return err
				}
				ps.AddRasterView(v.Resource, rv)
			case "compute":
				cv, err := computeView(v)
				if err != nil {
					return err
				}
				ps.AddComputeView(v.Resource, cv)
			default:
				return fmt.Errorf("unknown view kind %q", v.Kind)
			}
		}
		for _, qb := range b.Queues {
			hint, err := parseHint(qb.Hint)
			if err != nil {
				return err
			}
			if err := f.rasterQueue(ps.AddQueue(hint), fr, qb); err != nil {
				return err
			}
		}
	case "compute":
		ps := p.AddComputePass(b.Layout)
		ps.SetName(b.Name)
		if err := setParams(ps, b.Params); err != nil {
			return err
		}
		for _, v := range b.Views {
			if v.Kind != "compute" {
				return fmt.Errorf("compute pass cannot have %s view %q", v.Kind, v.Resource)
			}
			cv, err := computeView(v)
			if err != nil {
				return err
			}
			ps.AddComputeView(v.Resource, cv)
		}
		for _, qb := range b.Queues {
			if err := computeQueue(ps.AddQueue(), qb); err != nil {
				return err
			}
		}
	case "move":
		ps := p.AddMovePass()
		ps.SetName(b.Name)
		for _, pr := range b.Pairs {
			ps.AddPair(render.MovePair{
				Source: pr.Source, Target: pr.Target,
				MipLevels: pr.MipLevels, NumSlices: pr.NumSlices,
				TargetMostDetailedMip: pr.TargetMip, TargetFirstSlice: pr.TargetSlice,
			})
		}
	case "copy":
		ps := p.AddCopyPass()
		ps.SetName(b.Name)
		for _, pr := range b.Pairs {
			ps.AddPair(render.CopyPair{
				Source: pr.Source, Target: pr.Target,
				MipLevels: pr.MipLevels, NumSlices: pr.NumSlices,
				SourceMostDetailedMip: pr.SourceMip, SourceFirstSlice: pr.SourceSlice,
				TargetMostDetailedMip: pr.TargetMip, TargetFirstSlice: pr.TargetSlice,
			})
		}
	default:
		return fmt.Errorf("unknown pass kind %q", b.Kind)
	}
	return nil
}

func computeView(v *viewBlock) (render.ComputeView, error) {
	access, err := parseAccess(v.Access)
	return render.ComputeView{Slot: v.Slot, Access: access}, err
}

func rasterView(v *viewBlock) (render.RasterView, error) {
	rv := render.RasterView{
		Slot:         v.Slot,
		ClearDepth:   float32(v.ClearDepth),
		ClearStencil: v.ClearStencil,
	}
	var err error
	if rv.Access, err = parseAccess(v.Access); err != nil {
		return rv, err
	}
	if rv.Attachment, err = parseAttachment(v.Attachment); err != nil {
		return rv, err
	}
	if rv.LoadOp, err = parseLoad(v.Load); err != nil {
		return rv, err
	}
	if rv.StoreOp, err = parseStore(v.Store); err != nil {
		return rv, err
	}
	rv.ClearColor, err = color(v.ClearColor)
	return rv, err
}

func (f *File) rasterQueue(q render.RasterQueueBuilder, fr frame, b *queueBlock) error {
	if err := setParams(q, b.Params); err != nil {
		return err
	}
	for _, c := range b.Commands {
		if err := setParams(q, c.Params); err != nil {
			return err
		}
		if err := f.rasterCommand(q, fr, c); err != nil {
			return fmt.Errorf("command %s: %w", c.Kind, err)
		}
	}
	return nil
}

func (f *File) rasterCommand(q render.RasterQueueBuilder, fr frame, c *commandBlock) error {
	flags := render.SceneAllObjects
	if c.Flags != "" {
		var err error
		if flags, err = render.ParseSceneFlags(c.Flags); err != nil {
			return err
		}
	}
	switch c.Kind {
	case "scene":
		camera := c.Camera
		if camera == "" {
			camera = fr.camera.Name
		}
		q.AddScene(camera, flags)
	case "quad":
		m, ok := f.materials[c.Material]
		if !ok {
			return fmt.Errorf("unknown material %q", c.Material)
		}
		q.AddFullscreenQuad(m, c.Pass, flags)
	case "clear":
		col, err := color(c.Color)
		if err != nil {
			return err
		}
		q.ClearRenderTarget(c.Target, col)
	case "viewport":
		vp, err := viewport(c.Viewport)
		if err != nil {
			return err
		}
		q.SetViewport(vp)
	default:
		return fmt.Errorf("not a raster command")
	}
	return nil
}

func computeQueue(q render.ComputeQueueBuilder, b *queueBlock) error {
	if err := setParams(q, b.Params); err != nil {
		return err
	}
	for _, c := range b.Commands {
		if c.Kind != "dispatch" {
			return fmt.Errorf("command %s: not a compute command", c.Kind)
		}
		if err := setParams(q, c.Params); err != nil {
			return err
		}
		groups := [3]uint32{1, 1, 1}
		if len(c.Groups) > 3 {
			return fmt.Errorf("command dispatch: %d group counts", len(c.Groups))
		}
		copy(groups[:], c.Groups)
		q.AddDispatch(c.Shader, groups[0], groups[1], groups[2])
	}
	return nil
}
