// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/layout"
	"github.com/gogpu/gputypes"
)

// PipelineBuilder declares a frame's render graph. Setup is called between
// BeginSetup and EndSetup with the cameras being rendered.
type PipelineBuilder interface {
	Setup(cameras []*Camera, p *Pipeline) error
}

// PipelineBuilderFunc adapts a function to PipelineBuilder.
type PipelineBuilderFunc func(cameras []*Camera, p *Pipeline) error

// Setup calls f(cameras, p).
func (f PipelineBuilderFunc) Setup(cameras []*Camera, p *Pipeline) error { return f(cameras, p) }

type frameState uint8

const (
	stateIdle frameState = iota
	stateSetup
	stateCompiled
	stateFrame
	stateExecuted
)

func (s frameState) String() string {
	return [...]string{"idle", "setup", "compiled", "frame", "executed"}[s]
}

// resource is a declared virtual resource.
type resource struct {
	id        ResourceID
	name      string
	kind      ResourceKind
	residency Residency
	format    gputypes.TextureFormat
	width     uint32
	height    uint32
	window    *RenderWindow
	texture   gfx.Texture
}

// Pipeline declares, compiles and executes a render graph on a device.
type Pipeline struct {
	dev     gfx.Device
	builder PipelineBuilder
	layouts *layout.Builder

	state     frameState
	resources []*resource
	byName    map[string]*resource
	passes    []*pass
	errs      []error
	late      error
	cameras   []*Camera

	plan     *Plan
	pool     *pool
	textures map[string]gfx.Texture

	swapchain gfx.Swapchain
	cmd       gfx.CommandBuffer
	consts    *constants
	frameSets []gfx.DescriptorSet
	dsData    *layout.Data
	dsLayouts map[layout.LayoutID]gfx.DescriptorSetLayout

	macros       MacroRecord
	shadingScale float32
	sceneData    *PipelineSceneData
	version      uint64

	occlusionQuery bool
	queueReset     bool
	profiler       *Model
}

// NewPipeline returns an idle pipeline on dev. builder may be nil when the
// caller drives setup itself.
func NewPipeline(dev gfx.Device, builder PipelineBuilder) *Pipeline {
	return &Pipeline{
		dev:          dev,
		builder:      builder,
		layouts:      layout.NewBuilder(gfx.DefaultBindingMapping()),
		byName:       make(map[string]*resource),
		pool:         newPool(dev),
		textures:     make(map[string]gfx.Texture),
		dsLayouts:    make(map[layout.LayoutID]gfx.DescriptorSetLayout),
		macros:       make(MacroRecord),
		shadingScale: 1,
		sceneData:    NewPipelineSceneData(),
	}
}

// Device returns the device the pipeline renders with.
func (p *Pipeline) Device() gfx.Device { return p.dev }

// LayoutGraph returns the layout graph builder of the pipeline.
func (p *Pipeline) LayoutGraph() *layout.Builder { return p.layouts }

// PipelineSceneData returns the scene settings the pipeline renders with.
func (p *Pipeline) PipelineSceneData() *PipelineSceneData { return p.sceneData }

// Plan returns the last compiled plan, or nil.
func (p *Pipeline) Plan() *Plan { return p.plan }

// CommandBuffers returns the command buffers submitted by the last frame.
func (p *Pipeline) CommandBuffers() []gfx.CommandBuffer {
	if p.cmd == nil {
		return nil
	}
	return []gfx.CommandBuffer{p.cmd}
}

// Activate binds the pipeline to the swapchain it presents to and creates
// its per-pipeline device objects.
func (p *Pipeline) Activate(swapchain gfx.Swapchain) error {
	p.swapchain = swapchain
	if p.cmd == nil {
		cmd := p.dev.NewCommandBuffer()
		if err := cmd.Initialize(gfx.CommandBufferInfo{Label: "render"}); err != nil {
			return fmt.Errorf("render: activate: %w", err)
		}
		p.cmd = cmd
	}
	if p.consts == nil {
		c, err := newConstants(p.dev)
		if err != nil {
			return fmt.Errorf("render: activate: %w", err)
		}
		p.consts = c
	}
	p.SetMacroString("GFX_API", p.dev.API().String())
	p.SetMacroBool("GFX_HEADLESS", swapchain == nil)
	return nil
}

// Destroy releases every device object the pipeline owns.
func (p *Pipeline) Destroy() error {
	var errs []error
	errs = append(errs, p.releaseFrame(), p.pool.destroy(), p.dropLayouts())
	if p.consts != nil {
		errs = append(errs, p.consts.destroy())
		p.consts = nil
	}
	if p.cmd != nil {
		errs = append(errs, p.cmd.Destroy())
		p.cmd = nil
	}
	p.reset()
	p.plan = nil
	p.state = stateIdle
	return errors.Join(errs...)
}

// reset discards the declarations of the current setup.
func (p *Pipeline) reset() {
	p.resources = p.resources[:0]
	clear(p.byName)
	p.passes = p.passes[:0]
	p.errs = p.errs[:0]
	clear(p.textures)
}

func (p *Pipeline) fail(err error) {
	p.errs = append(p.errs, err)
}

// declaring reports whether declarations are accepted. A declaration made
// outside setup is not applied; the first one is kept and returned by the
// next BeginSetup.
func (p *Pipeline) declaring(op string) bool {
	if p.state == stateSetup {
		return true
	}
	gfx.Logger().Error("render: declaration outside setup", "op", op, "state", p.state.String())
	if p.late == nil {
		p.late = fmt.Errorf("%w: %s outside setup in state %s", ErrState, op, p.state)
	}
	return false
}

// Err returns the pending error of a declaration made outside setup.
func (p *Pipeline) Err() error { return p.late }

func (p *Pipeline) expect(op string, states ...frameState) error {
	for _, s := range states {
		if p.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrState, op, p.state)
}

// BeginSetup starts declaring a new graph. Declarations of the previous
// frame are discarded; graph-owned allocations are kept for reuse. A
// declaration made outside setup since the last call fails BeginSetup once.
func (p *Pipeline) BeginSetup() error {
	if err := p.expect("BeginSetup", stateIdle, stateCompiled, stateExecuted); err != nil {
		return err
	}
	if err := p.late; err != nil {
		p.late = nil
		return err
	}
	p.reset()
	p.plan = nil
	p.state = stateSetup
	return nil
}

// EndSetup compiles the declared graph and allocates its resources. On
// failure the declarations are discarded and the pipeline returns to idle.
func (p *Pipeline) EndSetup() error {
	if err := p.expect("EndSetup", stateSetup); err != nil {
		return err
	}
	if len(p.errs) > 0 {
		err := errors.Join(p.errs...)
		p.abort()
		return err
	}
	plan, err := p.compile()
	if err != nil {
		p.abort()
		return err
	}
	if err := p.allocate(plan); err != nil {
		p.abort()
		return err
	}
	p.plan = plan
	p.state = stateCompiled
	gfx.Logger().Debug("render: graph compiled", "passes", plan.Order(), "resources", len(plan.Resources))
	return nil
}

func (p *Pipeline) abort() {
	p.reset()
	p.state = stateIdle
}

// ContainsResource reports whether name is declared in the current setup.
func (p *Pipeline) ContainsResource(name string) bool {
	_, ok := p.byName[name]
	return ok
}

func (p *Pipeline) declare(r *resource) (ResourceID, error) {
	if err := p.expect("declare resource", stateSetup); err != nil {
		return 0, err
	}
	var err error
	switch {
	case r.name == "":
		err = fmt.Errorf("%w: empty resource name", gfx.ErrInvalidArgument)
	case p.ContainsResource(r.name):
		err = fmt.Errorf("%w: %q", ErrDuplicateResource, r.name)
	case r.width == 0 || r.height == 0:
		err = fmt.Errorf("%w: %q has zero extent", gfx.ErrInvalidArgument, r.name)
	}
	if err != nil {
		p.fail(err)
		return 0, err
	}
	r.id = ResourceID(len(p.resources))
	p.resources = append(p.resources, r)
	p.byName[r.name] = r
	return r.id, nil
}

// AddRenderTarget declares a color render target. Backbuffer and External
// residencies are declared with AddRenderTexture and AddExternalTexture.
func (p *Pipeline) AddRenderTarget(name string, format gputypes.TextureFormat, width, height uint32, residency Residency) (ResourceID, error) {
	return p.addTarget(ResourceRenderTarget, name, format, width, height, residency)
}

// AddDepthStencil declares a depth-stencil target.
func (p *Pipeline) AddDepthStencil(name string, format gputypes.TextureFormat, width, height uint32, residency Residency) (ResourceID, error) {
	return p.addTarget(ResourceDepthStencil, name, format, width, height, residency)
}

func (p *Pipeline) addTarget(kind ResourceKind, name string, format gputypes.TextureFormat, width, height uint32, residency Residency) (ResourceID, error) {
	if residency == Backbuffer || residency == External {
		err := fmt.Errorf("%w: %q cannot be declared %s", gfx.ErrInvalidArgument, name, residency)
		p.fail(err)
		return 0, err
	}
	return p.declare(&resource{
		name: name, kind: kind, residency: residency,
		format: format, width: width, height: height,
	})
}

// AddRenderTexture declares the color image of window as a backbuffer.
func (p *Pipeline) AddRenderTexture(name string, format gputypes.TextureFormat, width, height uint32, window *RenderWindow) (ResourceID, error) {
	if window == nil || window.Swapchain == nil {
		err := fmt.Errorf("%w: render texture %q without a window", gfx.ErrInvalidArgument, name)
		p.fail(err)
		return 0, err
	}
	return p.declare(&resource{
		name: name, kind: ResourceRenderTarget, residency: Backbuffer,
		format: format, width: width, height: height, window: window,
	})
}

// AddExternalTexture declares a caller-owned texture. The pipeline never
// allocates or destroys it.
func (p *Pipeline) AddExternalTexture(name string, tex gfx.Texture) (ResourceID, error) {
	if tex == nil {
		err := fmt.Errorf("%w: external texture %q is nil", gfx.ErrInvalidArgument, name)
		p.fail(err)
		return 0, err
	}
	info := tex.Info()
	return p.declare(&resource{
		name: name, kind: ResourceTexture, residency: External,
		format: info.Format, width: info.Width, height: info.Height, texture: tex,
	})
}

// UpdateRenderWindow rebinds the backbuffer name to window.
func (p *Pipeline) UpdateRenderWindow(name string, window *RenderWindow) error {
	r, ok := p.byName[name]
	switch {
	case !ok:
		return fmt.Errorf("%w: %q", ErrUnknownResource, name)
	case r.residency != Backbuffer:
		return fmt.Errorf("%w: %q is %s, not a backbuffer", gfx.ErrInvalidArgument, name, r.residency)
	case window == nil || window.Swapchain == nil:
		return fmt.Errorf("%w: nil window", gfx.ErrInvalidArgument)
	}
	r.window = window
	r.width, r.height = window.Swapchain.Width(), window.Swapchain.Height()
	return nil
}

func (p *Pipeline) newPass(kind PassKind, layoutName string, width, height uint32) *pass {
	ps := &pass{p: p, index: len(p.passes), kind: kind, layoutName: layoutName, width: width, height: height}
	ps.name = fmt.Sprintf("%s#%d", kind, ps.index)
	if p.declaring("Add" + kind.String() + "Pass") {
		p.passes = append(p.passes, ps)
	}
	return ps
}

// AddRasterPass declares a raster pass rendering a width x height area.
// layoutName names the render stage of the layout graph whose per-pass
// layout the pass binds; it may be empty.
func (p *Pipeline) AddRasterPass(width, height uint32, layoutName string) RasterPassBuilder {
	return rasterPass{p.newPass(PassRaster, layoutName, width, height)}
}

// AddComputePass declares a compute pass.
func (p *Pipeline) AddComputePass(layoutName string) ComputePassBuilder {
	return computePass{p.newPass(PassCompute, layoutName, 0, 0)}
}

// AddMovePass declares a move pass.
func (p *Pipeline) AddMovePass() MovePassBuilder {
	return movePass{p.newPass(PassMove, "", 0, 0)}
}

// AddCopyPass declares a copy pass.
func (p *Pipeline) AddCopyPass() CopyPassBuilder {
	return copyPass{p.newPass(PassCopy, "", 0, 0)}
}

// camera returns the camera of the current frame named name.
func (p *Pipeline) camera(name string) *Camera {
	for _, c := range p.cameras {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// BeginFrame acquires the swapchains of every backbuffer in the plan.
func (p *Pipeline) BeginFrame() error {
	if err := p.expect("BeginFrame", stateCompiled); err != nil {
		return err
	}
	var swapchains []gfx.Swapchain
	for _, r := range p.resources {
		if r.residency == Backbuffer && !containsSwapchain(swapchains, r.window.Swapchain) {
			swapchains = append(swapchains, r.window.Swapchain)
		}
	}
	if len(swapchains) > 0 {
		if err := p.dev.Acquire(swapchains); err != nil {
			return fmt.Errorf("render: acquire: %w", err)
		}
		for _, r := range p.resources {
			if r.residency == Backbuffer {
				p.textures[r.name] = r.window.Swapchain.ColorTexture()
			}
		}
	}
	p.state = stateFrame
	return nil
}

func containsSwapchain(list []gfx.Swapchain, s gfx.Swapchain) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// EndFrame releases per-frame objects.
func (p *Pipeline) EndFrame() error {
	if err := p.expect("EndFrame", stateFrame); err != nil {
		return err
	}
	p.state = stateExecuted
	return errors.Join(p.releaseFrame(), p.pool.releaseMemoryless())
}

func (p *Pipeline) releaseFrame() error {
	var errs []error
	for _, ds := range p.frameSets {
		errs = append(errs, ds.Destroy())
	}
	p.frameSets = p.frameSets[:0]
	return errors.Join(errs...)
}

// PresentAll presents every swapchain acquired this frame.
func (p *Pipeline) PresentAll() error {
	if err := p.expect("PresentAll", stateExecuted); err != nil {
		return err
	}
	p.state = stateIdle
	if err := p.dev.Present(); err != nil {
		return fmt.Errorf("render: present: %w", err)
	}
	return nil
}

// Render declares, compiles and executes one frame for cameras through the
// pipeline builder. PresentAll presents it.
func (p *Pipeline) Render(cameras []*Camera) error {
	if p.builder == nil {
		return fmt.Errorf("%w: no pipeline builder", ErrState)
	}
	if err := p.BeginSetup(); err != nil {
		return err
	}
	p.cameras = cameras
	if err := p.builder.Setup(cameras, p); err != nil {
		p.abort()
		return fmt.Errorf("render: setup: %w", err)
	}
	if err := p.EndSetup(); err != nil {
		return err
	}
	if err := p.BeginFrame(); err != nil {
		return err
	}
	if err := p.Execute(); err != nil {
		return errors.Join(err, p.EndFrame())
	}
	return p.EndFrame()
}

// SetCameras sets the cameras AddScene resolves names against when setup
// is driven without Render.
func (p *Pipeline) SetCameras(cameras []*Camera) { p.cameras = cameras }

// DescriptorSetLayout returns the descriptor set layout of shader at freq
// from the compiled layout graph. Layouts are created once and cached.
func (p *Pipeline) DescriptorSetLayout(shader string, freq layout.UpdateFrequency) (gfx.DescriptorSetLayout, error) {
	data, err := p.layouts.Data()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoLayout, err)
	}
	id, ok := data.Lookup(shader, freq)
	if !ok {
		return nil, fmt.Errorf("%w: shader %q %s", ErrNoLayout, shader, freq)
	}
	return p.layoutFor(data, id)
}

func (p *Pipeline) layoutFor(data *layout.Data, id layout.LayoutID) (gfx.DescriptorSetLayout, error) {
	if p.dsData != data {
		if err := p.dropLayouts(); err != nil {
			return nil, err
		}
		p.dsData = data
	}
	if l := p.dsLayouts[id]; l != nil {
		return l, nil
	}
	info, ok := data.Layout(id)
	if !ok {
		return nil, fmt.Errorf("%w: layout %d", ErrNoLayout, id)
	}
	l := p.dev.NewDescriptorSetLayout()
	if err := l.Initialize(info); err != nil {
		return nil, fmt.Errorf("render: descriptor set layout %s: %w", info.Label, err)
	}
	p.dsLayouts[id] = l
	return l, nil
}

func (p *Pipeline) dropLayouts() error {
	var errs []error
	for id, l := range p.dsLayouts {
		errs = append(errs, l.Destroy())
		delete(p.dsLayouts, id)
	}
	p.dsData = nil
	return errors.Join(errs...)
}

// ShadingScale returns the scale applied to camera-sized targets.
func (p *Pipeline) ShadingScale() float32 { return p.shadingScale }

// SetShadingScale sets the shading scale. Non-positive values are ignored.
func (p *Pipeline) SetShadingScale(scale float32) {
	if scale > 0 {
		p.shadingScale = scale
		p.OnGlobalPipelineStateChanged()
	}
}

// Scaled returns v scaled by the shading scale, at least 1.
func (p *Pipeline) Scaled(v uint32) uint32 {
	return max(uint32(float32(v)*p.shadingScale), 1)
}

// OnGlobalPipelineStateChanged records that scene settings or macros
// changed.
func (p *Pipeline) OnGlobalPipelineStateChanged() {
	p.version++
	gfx.Logger().Debug("render: pipeline state changed", "version", p.version)
}

// StateVersion counts OnGlobalPipelineStateChanged calls.
func (p *Pipeline) StateVersion() uint64 { return p.version }

// DescriptorSet returns the global descriptor set holding the frame
// constants, or nil before Activate.
func (p *Pipeline) DescriptorSet() gfx.DescriptorSet {
	if p.consts == nil {
		return nil
	}
	return p.consts.set
}

// GlobalDescriptorSetLayout returns the layout of DescriptorSet, or nil
// before Activate.
func (p *Pipeline) GlobalDescriptorSetLayout() gfx.DescriptorSetLayout {
	if p.consts == nil {
		return nil
	}
	return p.consts.layout
}

// OcclusionQueryEnabled reports whether occlusion queries are enabled.
func (p *Pipeline) OcclusionQueryEnabled() bool { return p.occlusionQuery }

// SetOcclusionQueryEnabled toggles occlusion queries and the
// GFX_OCCLUSION_QUERY macro.
func (p *Pipeline) SetOcclusionQueryEnabled(enabled bool) {
	if p.occlusionQuery == enabled {
		return
	}
	p.occlusionQuery = enabled
	p.SetMacroBool("GFX_OCCLUSION_QUERY", enabled)
}

// ResetRenderQueue requests that render queues be rebuilt.
func (p *Pipeline) ResetRenderQueue(reset bool) { p.queueReset = reset }

// RenderQueueReset reports whether a render queue rebuild was requested.
func (p *Pipeline) RenderQueueReset() bool { return p.queueReset }

// Profiler returns the profiler overlay model, or nil.
func (p *Pipeline) Profiler() *Model { return p.profiler }

// SetProfiler sets the model drawn by scene commands carrying
// SceneProfiler. A nil model disables the overlay.
func (p *Pipeline) SetProfiler(m *Model) { p.profiler = m }
