// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/internal/gfxtest"
	"github.com/gogpu/gfx/layout"
	"github.com/gogpu/gputypes"
)

func TestFrameStateMachine(t *testing.T) {
	p, dev := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		writer(p, "main", "color")
	})

	if err := p.BeginFrame(); !errors.Is(err, ErrState) {
		t.Errorf("BeginFrame() before setup error = %v, want %v", err, ErrState)
	}
	if err := p.EndSetup(); !errors.Is(err, ErrState) {
		t.Errorf("EndSetup() without BeginSetup error = %v, want %v", err, ErrState)
	}
	if err := p.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := p.Execute(); !errors.Is(err, ErrState) {
		t.Errorf("Execute() after EndFrame error = %v, want %v", err, ErrState)
	}
	if err := p.PresentAll(); err != nil {
		t.Fatalf("PresentAll() error = %v", err)
	}
	if err := p.PresentAll(); !errors.Is(err, ErrState) {
		t.Errorf("second PresentAll() error = %v, want %v", err, ErrState)
	}
	if got := dev.Count("Device.Submit"); got != 1 {
		t.Errorf("Submit calls = %d, want 1", got)
	}
	if got := len(p.CommandBuffers()); got != 1 {
		t.Errorf("CommandBuffers() = %d, want 1", got)
	}

	if err := NewPipeline(dev, nil).Render(nil); !errors.Is(err, ErrState) {
		t.Errorf("Render() without builder error = %v, want %v", err, ErrState)
	}
}

func TestDeclarationOutsideSetupFails(t *testing.T) {
	var main RasterPassBuilder
	p, _ := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		main = writer(p, "main", "color")
	})
	render := func() error {
		if err := p.Render(nil); err != nil {
			return err
		}
		return p.PresentAll()
	}
	if err := render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, err := p.AddRenderTarget("late", rgba, 64, 64, Managed); !errors.Is(err, ErrState) {
		t.Errorf("AddRenderTarget() outside setup error = %v, want %v", err, ErrState)
	}

	tests := []struct {
		name    string
		declare func()
	}{
		{"AddRasterPass", func() { p.AddRasterPass(64, 64, "") }},
		{"AddRasterView", func() { main.AddRasterView("other", RasterView{}) }},
		{"AddComputeView", func() { main.AddComputeView("other", ComputeView{}) }},
		{"AddQueue", func() { main.AddQueue(QueueOpaque) }},
		{"SetViewport", func() { main.SetViewport(gfx.Viewport{Width: 1, Height: 1}) }},
		{"AddPair", func() { p.AddMovePass().AddPair(MovePair{Source: "color", Target: "other"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(p.passes)
			tt.declare()
			if len(p.passes) != before {
				t.Errorf("passes = %d after late declaration, want %d", len(p.passes), before)
			}
			ps := main.(rasterPass)
			if len(ps.raster) != 1 || len(ps.compute) != 0 || len(ps.queues) != 0 || ps.viewport != nil {
				t.Errorf("late declaration applied to pass %q", ps.name)
			}
			if err := p.Err(); !errors.Is(err, ErrState) {
				t.Errorf("Err() = %v, want %v", err, ErrState)
			}
			if err := p.BeginSetup(); !errors.Is(err, ErrState) {
				t.Fatalf("BeginSetup() error = %v, want %v", err, ErrState)
			}
			if err := p.Err(); err != nil {
				t.Errorf("Err() after BeginSetup = %v, want nil", err)
			}
			if err := render(); err != nil {
				t.Fatalf("Render() after reported declaration error = %v", err)
			}
		})
	}
}

func TestPoolReuse(t *testing.T) {
	width := uint32(64)
	p, dev := newPipeline(t, func(p *Pipeline) {
		_, _ = p.AddRenderTarget("hdr", rgba, width, width, Managed)
		_, _ = p.AddRenderTarget("scratch", rgba, 64, 64, Memoryless)
		_, _ = p.AddRenderTarget("unused", rgba, 64, 64, Managed)
		ps := p.AddRasterPass(width, width, "")
		ps.AddRasterView("hdr", RasterView{})
		ps.AddRasterView("scratch", RasterView{StoreOp: gfx.StoreOpDiscard})
	})

	frame := func() {
		t.Helper()
		if err := p.Render(nil); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if err := p.PresentAll(); err != nil {
			t.Fatalf("PresentAll() error = %v", err)
		}
	}
	check := func(stage string, inits, destroys int) {
		t.Helper()
		if got := dev.Count("Texture.Initialize"); got != inits {
			t.Errorf("%s: Texture.Initialize calls = %d, want %d", stage, got, inits)
		}
		if got := dev.Count("Texture.Destroy"); got != destroys {
			t.Errorf("%s: Texture.Destroy calls = %d, want %d", stage, got, destroys)
		}
	}

	frame()
	check("first frame", 2, 1)
	frame()
	check("second frame", 3, 2)
	width = 128
	frame()
	check("resized", 5, 4)
	if unused, _ := p.Plan().Resource("unused"); unused.Used {
		t.Error("unused resource reported as used")
	}
	if got := p.pool.Len(); got != 1 {
		t.Errorf("pool size = %d, want 1", got)
	}
}

func TestBindingsSnapshot(t *testing.T) {
	material := &Material{Name: "tonemap", Shader: "tonemap", Passes: 1}
	p, dev := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		ps := writer(p, "main", "color")
		ps.SetFloat("exposure", 1)
		q := ps.AddQueue(QueueOpaque)
		q.SetColor("tint", gfx.Color{R: 1, A: 1})
		q.AddFullscreenQuad(material, 0, SceneNone)
		ps.SetFloat("exposure", 2)
		q.AddFullscreenQuad(material, 0, SceneNone)
		q.ClearRenderTarget("color", gfx.Color{B: 1})
	})
	if err := p.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	cmds := p.Plan().Passes[0].pass.queues[0].commands
	for i, want := range []float32{1, 2} {
		if got := cmds[i].Bindings["exposure"]; got != want {
			t.Errorf("command %d exposure = %v, want %v", i, got, want)
		}
		if got := cmds[i].Bindings["tint"]; got != (gfx.Color{R: 1, A: 1}) {
			t.Errorf("command %d tint = %v", i, got)
		}
	}
	if got := dev.Count("CommandBuffer.UpdateBuffer"); got != 1 {
		t.Errorf("UpdateBuffer calls = %d, want 1", got)
	}
	if got := dev.Count("CommandBuffer.BindDescriptorSet"); got != 2 {
		t.Errorf("BindDescriptorSet calls = %d, want 2", got)
	}
	if got := dev.Stats().DrawCalls; got != 2 {
		t.Errorf("DrawCalls = %d, want 2", got)
	}
	if got := len(p.consts.data); got != 2*constantsAlign {
		t.Errorf("constants size = %d, want %d", got, 2*constantsAlign)
	}
}

func TestPack(t *testing.T) {
	out := pack(Bindings{
		"b":   float32(1),
		"a":   Vec2{2, 3},
		"tex": TextureParam{},
	})
	if len(out) != 32 {
		t.Fatalf("len(pack()) = %d, want 32", len(out))
	}
	for _, tt := range []struct {
		off  int
		want float32
	}{{0, 2}, {4, 3}, {16, 1}} {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(out[tt.off:])); got != tt.want {
			t.Errorf("pack()[%d] = %v, want %v", tt.off, got, tt.want)
		}
	}
	if got := pack(Bindings{"tex": TextureParam{}}); len(got) != 0 {
		t.Errorf("pack() without numbers = %d bytes", len(got))
	}
}

func TestMacros(t *testing.T) {
	p, _ := newPipeline(t, nil)
	v := p.StateVersion()
	p.SetMacroBool("GFX_USE_FOG", true)
	p.SetMacroInt("GFX_LIGHTS", 4)
	p.SetMacroInt("GFX_LIGHTS", 4)
	if got := p.StateVersion() - v; got != 2 {
		t.Errorf("state changes = %d, want 2", got)
	}
	if !p.MacroBool("GFX_USE_FOG") || p.MacroInt("GFX_LIGHTS") != 4 || p.MacroString("GFX_API") != "headless" {
		t.Errorf("Macros() = %v", p.Macros())
	}
	want := "#define GFX_API headless\n#define GFX_HEADLESS 1\n#define GFX_LIGHTS 4\n#define GFX_USE_FOG 1\n"
	if got := p.ConstantMacros(); got != want {
		t.Errorf("ConstantMacros() = %q, want %q", got, want)
	}
}

func TestShadingScale(t *testing.T) {
	p, _ := newPipeline(t, nil)
	p.SetShadingScale(0.5)
	p.SetShadingScale(-1)
	if got := p.ShadingScale(); got != 0.5 {
		t.Errorf("ShadingScale() = %v, want 0.5", got)
	}
	if got := p.Scaled(1920); got != 960 {
		t.Errorf("Scaled(1920) = %d, want 960", got)
	}
	if got := p.Scaled(1); got != 1 {
		t.Errorf("Scaled(1) = %d, want 1", got)
	}
}

// postLayouts declares stage "post" with a per-pass texture "src" and
// shader "blit" with a per-batch sampler.
func postLayouts(t *testing.T, p *Pipeline) {
	t.Helper()
	g := p.LayoutGraph()
	stage := g.AddRenderStage("post")
	phase := g.AddRenderPhase("default", stage)
	blit := g.AddShader("blit", phase)
	err := g.AddDescriptorBlock(stage, layout.BlockIndex{
		Frequency: layout.PerPass, Type: gfx.DescriptorSampledTexture, Visibility: gputypes.ShaderStageFragment,
	}, layout.Block{Descriptors: []layout.Descriptor{{Name: "src"}}})
	if err != nil {
		t.Fatalf("AddDescriptorBlock() error = %v", err)
	}
	err = g.AddDescriptorBlock(blit, layout.BlockIndex{
		Frequency: layout.PerBatch, Type: gfx.DescriptorSampler, Visibility: gputypes.ShaderStageFragment,
	}, layout.Block{Descriptors: []layout.Descriptor{{Name: "linear"}}})
	if err != nil {
		t.Fatalf("AddDescriptorBlock() error = %v", err)
	}
	if _, err := g.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
}

func TestDescriptorSetLayoutCache(t *testing.T) {
	p, dev := newPipeline(t, nil)
	if _, err := p.DescriptorSetLayout("blit", layout.PerBatch); !errors.Is(err, ErrNoLayout) {
		t.Errorf("DescriptorSetLayout() before compile error = %v, want %v", err, ErrNoLayout)
	}
	postLayouts(t, p)

	first, err := p.DescriptorSetLayout("blit", layout.PerBatch)
	if err != nil {
		t.Fatalf("DescriptorSetLayout() error = %v", err)
	}
	second, err := p.DescriptorSetLayout("blit", layout.PerBatch)
	if err != nil {
		t.Fatalf("DescriptorSetLayout() error = %v", err)
	}
	if first != second {
		t.Error("DescriptorSetLayout() not cached")
	}
	if b := first.Bindings(); len(b) != 1 || b[0].Name != "linear" {
		t.Errorf("Bindings() = %+v", b)
	}
	if _, err := p.DescriptorSetLayout("missing", layout.PerBatch); !errors.Is(err, ErrNoLayout) {
		t.Errorf("DescriptorSetLayout(missing) error = %v, want %v", err, ErrNoLayout)
	}
	// One for the constants, one for blit.
	if got := dev.Count("DescriptorSetLayout.Initialize"); got != 2 {
		t.Errorf("DescriptorSetLayout.Initialize calls = %d, want 2", got)
	}
}

func TestPassDescriptorSet(t *testing.T) {
	p, dev := newPipeline(t, func(p *Pipeline) {
		targets(p, "color", "out")
		writer(p, "main", "color")
		post := p.AddRasterPass(64, 64, "post")
		post.AddRasterView("out", RasterView{})
		post.AddComputeView("color", ComputeView{Slot: "src"})
		post.AddQueue(QueueNone).AddFullscreenQuad(&Material{Name: "blit", Shader: "blit"}, 0, SceneNone)
	})
	postLayouts(t, p)
	if err := p.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := dev.Count("DescriptorSet.BindTexture"); got != 1 {
		t.Errorf("BindTexture calls = %d, want 1", got)
	}
	if got := dev.Count("CommandBuffer.BindDescriptorSet"); got != 1 {
		t.Errorf("BindDescriptorSet calls = %d, want 1", got)
	}
	if got := dev.Count("DescriptorSet.Destroy"); got != 1 {
		t.Errorf("per-frame sets destroyed = %d, want 1", got)
	}
}

func TestUnknownStageFailsExecute(t *testing.T) {
	p, _ := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		p.AddRasterPass(64, 64, "nowhere").AddRasterView("color", RasterView{})
	})
	postLayouts(t, p)
	err := p.Render(nil)
	if !errors.Is(err, ErrNoLayout) {
		t.Fatalf("Render() error = %v, want %v", err, ErrNoLayout)
	}
	var pe *PassError
	if !errors.As(err, &pe) || !strings.HasPrefix(pe.Pass, "raster#") {
		t.Errorf("Render() error = %v, want a PassError", err)
	}
}

func TestComputeAndCopy(t *testing.T) {
	p, dev := newPipeline(t, func(p *Pipeline) {
		targets(p, "src", "dst")
		c := p.AddComputePass("")
		c.AddComputeView("src", ComputeView{Access: AccessWrite})
		c.AddQueue().AddDispatch("blur", 8, 8, 1)
		p.AddCopyPass().AddPair(CopyPair{Source: "src", Target: "dst", MipLevels: 1})
	})
	if err := p.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	stats := dev.Stats()
	if stats.Dispatches != 1 || stats.Copies != 1 || stats.Passes != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if got := p.Plan().Order(); got[0] != "compute#0" || got[1] != "copy#1" {
		t.Errorf("Order() = %v", got)
	}
}

func TestConstantsSlotsStayAligned(t *testing.T) {
	c := &constants{data: make([]byte, 0, constantsSize)}
	b := Bindings{"m": Mat4{}}
	for i := range constantsSize / constantsAlign {
		off, ok, err := c.push(b)
		if err != nil || !ok {
			t.Fatalf("push() #%d = %v, %v", i, ok, err)
		}
		if off != uint32(i*constantsAlign) {
			t.Fatalf("push() #%d offset = %d, want %d", i, off, i*constantsAlign)
		}
	}
	if _, _, err := c.push(b); !errors.Is(err, ErrConstantsOverflow) {
		t.Errorf("push() on full buffer error = %v, want %v", err, ErrConstantsOverflow)
	}
	if got := len(c.data); got != constantsSize {
		t.Errorf("constants size = %d, want %d", got, constantsSize)
	}
}

func TestExecuteEndsCommandBufferOnFailure(t *testing.T) {
	material := &Material{Name: "tonemap", Shader: "tonemap", Passes: 1}
	p, dev := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		q := writer(p, "main", "color").AddQueue(QueueNone)
		q.SetFloat("exposure", 1)
		q.AddFullscreenQuad(material, 0, SceneNone)
	})
	errUpdate := errors.New("update failed")
	dev.Fail("CommandBuffer.UpdateBuffer", errUpdate)
	if err := p.Render(nil); !errors.Is(err, errUpdate) {
		t.Fatalf("Render() error = %v, want %v", err, errUpdate)
	}
	if got, want := dev.Count("CommandBuffer.End"), dev.Count("CommandBuffer.Begin"); got != want {
		t.Errorf("End calls = %d, want %d", got, want)
	}
	if got := dev.Count("Device.Submit"); got != 0 {
		t.Errorf("Submit calls = %d, want 0", got)
	}
}

func TestGlobalState(t *testing.T) {
	p := NewPipeline(gfxtest.New(gfx.APIHeadless), nil)
	if p.DescriptorSet() != nil || p.GlobalDescriptorSetLayout() != nil {
		t.Error("global descriptor set exists before Activate")
	}
	if err := p.Activate(nil); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Destroy() })
	set := p.DescriptorSet()
	if set == nil || set.Layout() != p.GlobalDescriptorSetLayout() {
		t.Errorf("DescriptorSet() = %v, want a set of the global layout", set)
	}

	version := p.StateVersion()
	p.SetOcclusionQueryEnabled(true)
	if !p.OcclusionQueryEnabled() || !p.MacroBool("GFX_OCCLUSION_QUERY") {
		t.Error("occlusion query not enabled")
	}
	if p.StateVersion() == version {
		t.Error("SetOcclusionQueryEnabled() did not change the state version")
	}

	p.ResetRenderQueue(true)
	if !p.RenderQueueReset() {
		t.Error("RenderQueueReset() = false after ResetRenderQueue(true)")
	}
	p.ResetRenderQueue(false)
	if p.RenderQueueReset() {
		t.Error("RenderQueueReset() = true after ResetRenderQueue(false)")
	}

	m := &Model{Name: "profiler"}
	p.SetProfiler(m)
	if p.Profiler() != m {
		t.Error("Profiler() does not return the set model")
	}
}
