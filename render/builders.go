// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gfx"
)

// RasterQueueBuilder records the draws of a raster queue.
type RasterQueueBuilder interface {
	Setter
	AddSceneOfCamera(camera *Camera, light LightInfo, flags SceneFlags)
	// AddScene draws the scene of the camera named name.
	AddScene(name string, flags SceneFlags)
	AddFullscreenQuad(material *Material, passID uint32, flags SceneFlags)
	AddCameraQuad(camera *Camera, material *Material, passID uint32, flags SceneFlags)
	ClearRenderTarget(name string, color gfx.Color)
	SetViewport(vp gfx.Viewport)
}

// RasterPassBuilder declares a raster pass.
type RasterPassBuilder interface {
	Setter
	AddRasterView(name string, view RasterView)
	AddComputeView(name string, view ComputeView)
	AddQueue(hint QueueHint) RasterQueueBuilder
	SetViewport(vp gfx.Viewport)
}

// ComputeQueueBuilder records the dispatches of a compute queue.
type ComputeQueueBuilder interface {
	Setter
	AddDispatch(shader string, x, y, z uint32)
}

// ComputePassBuilder declares a compute pass.
type ComputePassBuilder interface {
	Setter
	AddComputeView(name string, view ComputeView)
	AddQueue() ComputeQueueBuilder
}

// MovePassBuilder declares a move pass.
type MovePassBuilder interface {
	RenderNode
	AddPair(pair MovePair)
}

// CopyPassBuilder declares a copy pass.
type CopyPassBuilder interface {
	RenderNode
	AddPair(pair CopyPair)
}

// PassKind is the kind of a pass.
type PassKind uint8

// Pass kinds.
const (
	PassRaster PassKind = iota
	PassCompute
	PassMove
	PassCopy
)

func (k PassKind) String() string {
	switch k {
	case PassRaster:
		return "raster"
	case PassCompute:
		return "compute"
	case PassMove:
		return "move"
	case PassCopy:
		return "copy"
	}
	return fmt.Sprintf("pass(%d)", uint8(k))
}

// CommandKind is the kind of a queue command.
type CommandKind uint8

// Queue commands.
const (
	CommandScene CommandKind = iota
	CommandQuad
	CommandClear
	CommandViewport
	CommandDispatch
)

// Command is one recorded queue command. Bindings holds the parameter
// bindings visible when the command was added.
type Command struct {
	Kind     CommandKind
	Camera   *Camera
	Scene    *Scene
	Light    LightInfo
	Flags    SceneFlags
	Material *Material
	PassID   uint32
	Target   string
	Color    gfx.Color
	Viewport gfx.Viewport
	Shader   string
	Groups   [3]uint32
	Bindings Bindings
}

type rasterView struct {
	resource string
	RasterView
}

type computeView struct {
	resource string
	ComputeView
}

// pass is the declaration of one pass. It implements every pass builder.
type pass struct {
	setter
	p          *Pipeline
	index      int
	kind       PassKind
	layoutName string
	width      uint32
	height     uint32
	viewport   *gfx.Viewport
	raster     []rasterView
	compute    []computeView
	queues     []*queue
	moves      []MovePair
	copies     []CopyPair
}

// fail records a declaration error on the pass.
func (ps *pass) fail(err error) {
	ps.p.fail(&PassError{Pass: ps.name, Err: err})
}

func (ps *pass) viewed(name string) bool {
	for _, v := range ps.raster {
		if v.resource == name {
			return true
		}
	}
	for _, v := range ps.compute {
		if v.resource == name {
			return true
		}
	}
	return false
}

func (ps *pass) AddRasterView(name string, view RasterView) {
	if !ps.p.declaring("AddRasterView") {
		return
	}
	if ps.viewed(name) {
		ps.fail(fmt.Errorf("%w: %q viewed twice", ErrInvalidView, name))
		return
	}
	if view.Access == 0 {
		view.Access = AccessWrite
	}
	ps.raster = append(ps.raster, rasterView{resource: name, RasterView: view})
}

func (ps *pass) AddComputeView(name string, view ComputeView) {
	if !ps.p.declaring("AddComputeView") {
		return
	}
	if ps.viewed(name) {
		ps.fail(fmt.Errorf("%w: %q viewed twice", ErrInvalidView, name))
		return
	}
	if view.Access == 0 {
		view.Access = AccessRead
	}
	ps.compute = append(ps.compute, computeView{resource: name, ComputeView: view})
}

func (ps *pass) SetViewport(vp gfx.Viewport) {
	if ps.p.declaring("SetViewport") {
		ps.viewport = &vp
	}
}

func (ps *pass) addQueue(hint QueueHint) *queue {
	q := &queue{pass: ps, hint: hint}
	q.parent = &ps.setter
	q.name = fmt.Sprintf("%s/%s#%d", ps.name, hint, len(ps.queues))
	if ps.p.declaring("AddQueue") {
		ps.queues = append(ps.queues, q)
	}
	return q
}

type rasterPass struct{ *pass }

func (r rasterPass) AddQueue(hint QueueHint) RasterQueueBuilder { return r.addQueue(hint) }

type computePass struct{ *pass }

func (c computePass) AddQueue() ComputeQueueBuilder { return c.addQueue(QueueNone) }

type movePass struct{ *pass }

func (m movePass) AddPair(pair MovePair) {
	if m.p.declaring("AddPair") {
		m.moves = append(m.moves, pair)
	}
}

type copyPass struct{ *pass }

func (c copyPass) AddPair(pair CopyPair) {
	if c.p.declaring("AddPair") {
		c.copies = append(c.copies, pair)
	}
}

// queue records the commands of one queue of a pass.
type queue struct {
	setter
	pass     *pass
	hint     QueueHint
	commands []Command
}

func (q *queue) add(cmd Command) {
	if !q.pass.p.declaring("queue command") {
		return
	}
	cmd.Bindings = q.snapshot()
	q.commands = append(q.commands, cmd)
}

func (q *queue) AddSceneOfCamera(camera *Camera, light LightInfo, flags SceneFlags) {
	if camera == nil {
		q.pass.fail(fmt.Errorf("%w: nil camera", gfx.ErrInvalidArgument))
		return
	}
	q.add(Command{Kind: CommandScene, Camera: camera, Scene: camera.Scene, Light: light, Flags: flags})
}

func (q *queue) AddScene(name string, flags SceneFlags) {
	camera := q.pass.p.camera(name)
	if camera == nil {
		q.pass.fail(fmt.Errorf("%w: no camera %q this frame", gfx.ErrInvalidArgument, name))
		return
	}
	q.add(Command{Kind: CommandScene, Camera: camera, Scene: camera.Scene, Flags: flags})
}

func (q *queue) quad(camera *Camera, material *Material, passID uint32, flags SceneFlags) {
	if material == nil || (material.Passes > 0 && passID >= material.Passes) {
		q.pass.fail(fmt.Errorf("%w: material pass %d", gfx.ErrInvalidArgument, passID))
		return
	}
	q.add(Command{Kind: CommandQuad, Camera: camera, Material: material, PassID: passID, Flags: flags})
}

func (q *queue) AddFullscreenQuad(material *Material, passID uint32, flags SceneFlags) {
	q.quad(nil, material, passID, flags)
}

func (q *queue) AddCameraQuad(camera *Camera, material *Material, passID uint32, flags SceneFlags) {
	if camera == nil {
		q.pass.fail(fmt.Errorf("%w: nil camera", gfx.ErrInvalidArgument))
		return
	}
	q.quad(camera, material, passID, flags)
}

func (q *queue) ClearRenderTarget(name string, color gfx.Color) {
	q.add(Command{Kind: CommandClear, Target: name, Color: color})
}

func (q *queue) SetViewport(vp gfx.Viewport) {
	q.add(Command{Kind: CommandViewport, Viewport: vp})
}

func (q *queue) AddDispatch(shader string, x, y, z uint32) {
	q.add(Command{Kind: CommandDispatch, Shader: shader, Groups: [3]uint32{x, y, z}})
}
