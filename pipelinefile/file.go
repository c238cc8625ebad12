// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipelinefile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/render"
)

// header is the part of a file decoded once at load time.
type header struct {
	Device    *deviceBlock     `hcl:"device,block"`
	Materials []*materialBlock `hcl:"material,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type materialBlock struct {
	Name   string `hcl:"name,label"`
	Shader string `hcl:"shader,optional"`
	Passes uint32 `hcl:"passes,optional"`
}

// graph is the part of a file decoded every frame.
type graph struct {
	Resources []*resourceBlock `hcl:"resource,block"`
	Passes    []*passBlock     `hcl:"pass,block"`
}

type resourceBlock struct {
	Kind      string `hcl:"kind,label"`
	Name      string `hcl:"name,label"`
	Format    string `hcl:"format"`
	Width     uint32 `hcl:"width,optional"`
	Height    uint32 `hcl:"height,optional"`
	Residency string `hcl:"residency,optional"`
	Window    string `hcl:"window,optional"`
}

type passBlock struct {
	Kind     string        `hcl:"kind,label"`
	Name     string        `hcl:"name,label"`
	Layout   string        `hcl:"layout,optional"`
	Width    uint32        `hcl:"width,optional"`
	Height   uint32        `hcl:"height,optional"`
	Viewport []float64     `hcl:"viewport,optional"`
	Params   cty.Value     `hcl:"params,optional"`
	Views    []*viewBlock  `hcl:"view,block"`
	Queues   []*queueBlock `hcl:"queue,block"`
	Pairs    []*pairBlock  `hcl:"pair,block"`
}

type viewBlock struct {
	Kind         string    `hcl:"kind,label"`
	Resource     string    `hcl:"resource,label"`
	Slot         string    `hcl:"slot,optional"`
	Access       string    `hcl:"access,optional"`
	Attachment   string    `hcl:"attachment,optional"`
	Load         string    `hcl:"load,optional"`
	Store        string    `hcl:"store,optional"`
	ClearColor   []float64 `hcl:"clear_color,optional"`
	ClearDepth   float64   `hcl:"clear_depth,optional"`
	ClearStencil uint32    `hcl:"clear_stencil,optional"`
}

type queueBlock struct {
	Hint     string          `hcl:"hint,label"`
	Params   cty.Value       `hcl:"params,optional"`
	Commands []*commandBlock `hcl:"command,block"`
}

type commandBlock struct {
	Kind     string    `hcl:"kind,label"`
	Camera   string    `hcl:"camera,optional"`
	Flags    string    `hcl:"flags,optional"`
	Material string    `hcl:"material,optional"`
	Pass     uint32    `hcl:"pass,optional"`
	Target   string    `hcl:"target,optional"`
	Color    []float64 `hcl:"color,optional"`
	Viewport []float64 `hcl:"viewport,optional"`
	Shader   string    `hcl:"shader,optional"`
	Groups   []uint32  `hcl:"groups,optional"`
	Params   cty.Value `hcl:"params,optional"`
}

type pairBlock struct {
	Source      string `hcl:"source"`
	Target      string `hcl:"target"`
	MipLevels   uint32 `hcl:"mip_levels,optional"`
	NumSlices   uint32 `hcl:"num_slices,optional"`
	SourceMip   uint32 `hcl:"source_mip,optional"`
	SourceSlice uint32 `hcl:"source_slice,optional"`
	TargetMip   uint32 `hcl:"target_mip,optional"`
	TargetSlice uint32 `hcl:"target_slice,optional"`
}

// File is a parsed pipeline file. It implements render.PipelineBuilder.
type File struct {
	name      string
	device    *deviceBlock
	materials map[string]*render.Material
	body      hcl.Body
	windows   map[string]*render.RenderWindow

	// Screen is the screen size used when a frame has no camera.
	Screen [2]uint32
}

var _ render.PipelineBuilder = (*File)(nil)

// Load parses the pipeline file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("pipelinefile: parse %s: %w", path, diags)
	}
	return decode(path, f)
}

// Parse parses a pipeline file held in memory. filename is used in
// diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("pipelinefile: parse %s: %w", filename, diags)
	}
	return decode(filename, f)
}

func decode(name string, f *hcl.File) (*File, error) {
	var h header
	if diags := gohcl.DecodeBody(f.Body, nil, &h); diags.HasErrors() {
		return nil, fmt.Errorf("pipelinefile: decode %s: %w", name, diags)
	}
	file := &File{
		name:      name,
		device:    h.Device,
		materials: make(map[string]*render.Material),
		body:      h.Remain,
		windows:   make(map[string]*render.RenderWindow),
		Screen:    [2]uint32{1280, 720},
	}
	for _, m := range h.Materials {
		if _, dup := file.materials[m.Name]; dup {
			return nil, fmt.Errorf("pipelinefile: %s: duplicate material %q", name, m.Name)
		}
		shader := m.Shader
		if shader == "" {
			shader = m.Name
		}
		file.materials[m.Name] = &render.Material{Name: m.Name, Shader: shader, Passes: m.Passes}
	}
	gfx.Logger().Debug("pipelinefile: loaded", "file", name, "materials", len(file.materials))
	return file, nil
}

// Name returns the file name the pipeline was loaded from.
func (f *File) Name() string { return f.name }

// Material returns the material declared as name.
func (f *File) Material(name string) (*render.Material, bool) {
	m, ok := f.materials[name]
	return m, ok
}

// SetWindow makes window available to backbuffer resources as name.
func (f *File) SetWindow(name string, window *render.RenderWindow) {
	f.windows[name] = window
}
