// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/internal/gfxtest"
	"github.com/gogpu/gputypes"
)

const (
	rgba  = gputypes.TextureFormatRGBA8Unorm
	depth = gputypes.TextureFormatDepth24PlusStencil8
)

// newPipeline returns an activated pipeline on a recording device. setup,
// if not nil, is the pipeline builder.
func newPipeline(t *testing.T, setup func(p *Pipeline)) (*Pipeline, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.New(gfx.APIHeadless)
	var builder PipelineBuilder
	if setup != nil {
		builder = PipelineBuilderFunc(func(_ []*Camera, p *Pipeline) error {
			setup(p)
			return nil
		})
	}
	p := NewPipeline(dev, builder)
	if err := p.Activate(nil); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	t.Cleanup(func() {
		if err := p.Destroy(); err != nil {
			t.Errorf("Destroy() error = %v", err)
		}
	})
	return p, dev
}

// declare runs one setup phase.
func declare(p *Pipeline, setup func(p *Pipeline)) error {
	if err := p.BeginSetup(); err != nil {
		return err
	}
	setup(p)
	return p.EndSetup()
}

// writer declares a raster pass named name writing target.
func writer(p *Pipeline, name, target string) RasterPassBuilder {
	ps := p.AddRasterPass(64, 64, "")
	ps.SetName(name)
	ps.AddRasterView(target, RasterView{LoadOp: gfx.LoadOpClear})
	return ps
}

func targets(p *Pipeline, names ...string) {
	for _, n := range names {
		_, _ = p.AddRenderTarget(n, rgba, 64, 64, Managed)
	}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *Pipeline)
		want  []string
	}{
		{
			name: "reader declared before writer",
			setup: func(p *Pipeline) {
				targets(p, "color", "out")
				post := writer(p, "post", "out")
				post.AddComputeView("color", ComputeView{Slot: "src"})
				writer(p, "main", "color")
			},
			want: []string{"main", "post"},
		},
		{
			name: "independent passes keep declaration order",
			setup: func(p *Pipeline) {
				targets(p, "a", "b", "c")
				writer(p, "c1", "a")
				writer(p, "c2", "b")
				writer(p, "c3", "c")
			},
			want: []string{"c1", "c2", "c3"},
		},
		{
			name: "ready passes run lowest index first",
			setup: func(p *Pipeline) {
				targets(p, "x", "y", "z")
				d0 := writer(p, "d0", "y")
				d0.AddComputeView("x", ComputeView{})
				writer(p, "d1", "x")
				writer(p, "d2", "z")
			},
			want: []string{"d1", "d0", "d2"},
		},
		{
			name: "writers keep declaration order",
			setup: func(p *Pipeline) {
				targets(p, "x")
				w0 := p.AddComputePass("")
				w0.SetName("w0")
				w0.AddComputeView("x", ComputeView{Access: AccessWrite})
				w1 := p.AddComputePass("")
				w1.SetName("w1")
				w1.AddComputeView("x", ComputeView{Access: AccessReadWrite})
				r := p.AddComputePass("")
				r.SetName("r")
				r.AddComputeView("x", ComputeView{})
			},
			want: []string{"w0", "w1", "r"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPipeline(t, nil)
			if err := declare(p, tt.setup); err != nil {
				t.Fatalf("EndSetup() error = %v", err)
			}
			if got := p.Plan().Order(); !slices.Equal(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	p, _ := newPipeline(t, nil)
	err := declare(p, func(p *Pipeline) {
		targets(p, "r", "r2")
		a := writer(p, "a", "r")
		a.AddComputeView("r2", ComputeView{})
		b := writer(p, "b", "r2")
		b.AddComputeView("r", ComputeView{})
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("EndSetup() error = %v, want %v", err, ErrCycle)
	}
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("EndSetup() error = %T, want *CycleError", err)
	}
	if want := []string{"a", "b"}; !slices.Equal(cycle.Passes, want) {
		t.Errorf("CycleError.Passes = %v, want %v", cycle.Passes, want)
	}
	if got, want := err.Error(), "render: dependency cycle: a -> b -> a"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if p.Plan() != nil {
		t.Error("Plan() != nil after failed setup")
	}
	if err := p.BeginSetup(); err != nil {
		t.Errorf("BeginSetup() after failed setup error = %v", err)
	}
}

func TestSetupErrors(t *testing.T) {
	material := &Material{Name: "blit", Passes: 1}
	tests := []struct {
		name  string
		setup func(p *Pipeline)
		want  error
	}{
		{
			name: "duplicate resource",
			setup: func(p *Pipeline) {
				targets(p, "color", "color")
				writer(p, "main", "color")
			},
			want: ErrDuplicateResource,
		},
		{
			name: "unknown view",
			setup: func(p *Pipeline) {
				writer(p, "main", "missing")
			},
			want: ErrUnknownResource,
		},
		{
			name: "view used twice",
			setup: func(p *Pipeline) {
				targets(p, "color")
				ps := writer(p, "main", "color")
				ps.AddComputeView("color", ComputeView{})
			},
			want: ErrInvalidView,
		},
		{
			name: "depth target as color attachment",
			setup: func(p *Pipeline) {
				_, _ = p.AddDepthStencil("depth", depth, 64, 64, Managed)
				writer(p, "main", "depth")
			},
			want: ErrInvalidView,
		},
		{
			name: "raster pass without attachments",
			setup: func(p *Pipeline) {
				p.AddRasterPass(64, 64, "")
			},
			want: ErrInvalidView,
		},
		{
			name: "clear of a foreign target",
			setup: func(p *Pipeline) {
				targets(p, "color", "other")
				writer(p, "other", "other")
				ps := writer(p, "main", "color")
				ps.AddQueue(QueueNone).ClearRenderTarget("other", gfx.Color{})
			},
			want: ErrInvalidView,
		},
		{
			name: "move between different formats",
			setup: func(p *Pipeline) {
				targets(p, "a")
				_, _ = p.AddDepthStencil("b", depth, 64, 64, Managed)
				writer(p, "w", "a")
				p.AddMovePass().AddPair(MovePair{Source: "a", Target: "b"})
			},
			want: ErrIncompatible,
		},
		{
			name: "move into persistent",
			setup: func(p *Pipeline) {
				targets(p, "a")
				_, _ = p.AddRenderTarget("b", rgba, 64, 64, Persistent)
				writer(p, "w", "a")
				p.AddMovePass().AddPair(MovePair{Source: "a", Target: "b"})
			},
			want: ErrIncompatible,
		},
		{
			name: "move back and forth",
			setup: func(p *Pipeline) {
				targets(p, "a", "b")
				writer(p, "w", "a")
				p.AddMovePass().AddPair(MovePair{Source: "a", Target: "b"})
				p.AddMovePass().AddPair(MovePair{Source: "b", Target: "a"})
			},
			want: ErrIncompatible,
		},
		{
			name: "copy onto itself",
			setup: func(p *Pipeline) {
				targets(p, "a")
				writer(p, "w", "a")
				p.AddCopyPass().AddPair(CopyPair{Source: "a", Target: "a"})
			},
			want: ErrIncompatible,
		},
		{
			name: "material pass out of range",
			setup: func(p *Pipeline) {
				targets(p, "color")
				ps := writer(p, "main", "color")
				ps.AddQueue(QueueNone).AddFullscreenQuad(material, 1, SceneNone)
			},
			want: gfx.ErrInvalidArgument,
		},
		{
			name: "backbuffer through AddRenderTarget",
			setup: func(p *Pipeline) {
				_, _ = p.AddRenderTarget("screen", rgba, 64, 64, Backbuffer)
			},
			want: gfx.ErrInvalidArgument,
		},
		{
			name: "zero extent",
			setup: func(p *Pipeline) {
				_, _ = p.AddRenderTarget("color", rgba, 0, 64, Managed)
			},
			want: gfx.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPipeline(t, nil)
			err := declare(p, tt.setup)
			if !errors.Is(err, tt.want) {
				t.Fatalf("EndSetup() error = %v, want %v", err, tt.want)
			}
			if p.ContainsResource("color") {
				t.Error("declarations survived a failed setup")
			}
		})
	}
}

func TestBarriers(t *testing.T) {
	p, dev := newPipeline(t, nil)
	sc := dev.NewSwapchain()
	if err := sc.Initialize(gfx.SwapchainInfo{Width: 64, Height: 64, ColorFormat: rgba}); err != nil {
		t.Fatalf("Swapchain.Initialize() error = %v", err)
	}
	window := &RenderWindow{Name: "main", Swapchain: sc}

	err := declare(p, func(p *Pipeline) {
		targets(p, "color")
		_, _ = p.AddRenderTexture("screen", rgba, 64, 64, window)
		writer(p, "main", "color")
		post := writer(p, "post", "screen")
		post.AddComputeView("color", ComputeView{Slot: "src"})
	})
	if err != nil {
		t.Fatalf("EndSetup() error = %v", err)
	}

	plan := p.Plan()
	want := [][]Barrier{
		{{Resource: "color", Old: StateUndefined, New: StateColorAttachment}},
		{
			{Resource: "screen", Old: StateUndefined, New: StateColorAttachment},
			{Resource: "color", Old: StateColorAttachment, New: StateSampled},
		},
	}
	for i, pp := range plan.Passes {
		if !slices.Equal(pp.Barriers, want[i]) {
			t.Errorf("pass %s barriers = %v, want %v", pp.Name, pp.Barriers, want[i])
		}
	}
	wantFinal := []Barrier{{Resource: "screen", Old: StateColorAttachment, New: StatePresent}}
	if !slices.Equal(plan.Final, wantFinal) {
		t.Errorf("Final = %v, want %v", plan.Final, wantFinal)
	}
	color, _ := plan.Resource("color")
	if wantUsage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding; color.Usage != wantUsage {
		t.Errorf("color usage = %v, want %v", color.Usage, wantUsage)
	}

	if err := p.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := p.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := p.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
	if err := p.PresentAll(); err != nil {
		t.Fatalf("PresentAll() error = %v", err)
	}
	if got := dev.Count("CommandBuffer.PipelineBarrier"); got != 2 {
		t.Errorf("PipelineBarrier calls = %d, want 2", got)
	}
	stats := dev.Stats()
	if stats.Barriers != 3 || stats.Presents != 1 || stats.Submits != 1 || stats.Passes != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPersistentStateCarries(t *testing.T) {
	p, _ := newPipeline(t, nil)
	setup := func(p *Pipeline) {
		_, _ = p.AddRenderTarget("history", rgba, 64, 64, Persistent)
		writer(p, "accumulate", "history")
	}
	for frame := range 2 {
		if err := declare(p, setup); err != nil {
			t.Fatalf("frame %d: EndSetup() error = %v", frame, err)
		}
		got := p.Plan().Passes[0].Barriers
		if frame == 0 && len(got) != 1 {
			t.Fatalf("frame 0 barriers = %v, want one", got)
		}
		if frame == 1 && len(got) != 0 {
			t.Fatalf("frame 1 barriers = %v, want none", got)
		}
		if err := p.BeginFrame(); err != nil {
			t.Fatalf("BeginFrame() error = %v", err)
		}
		if err := p.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if err := p.EndFrame(); err != nil {
			t.Fatalf("EndFrame() error = %v", err)
		}
	}
}

func TestPersistentReallocationStartsUndefined(t *testing.T) {
	p, _ := newPipeline(t, nil)
	frames := []func(p *Pipeline){
		func(p *Pipeline) {
			_, _ = p.AddRenderTarget("history", rgba, 64, 64, Persistent)
			writer(p, "accumulate", "history")
		},
		// Sampling grows the usage, so the texture is reallocated.
		func(p *Pipeline) {
			_, _ = p.AddRenderTarget("history", rgba, 64, 64, Persistent)
			writer(p, "accumulate", "history")
			p.AddComputePass("").AddComputeView("history", ComputeView{})
		},
	}
	want := []Barrier{{Resource: "history", Old: StateUndefined, New: StateColorAttachment}}
	var textures []gfx.Texture
	for frame, setup := range frames {
		if err := declare(p, setup); err != nil {
			t.Fatalf("frame %d: EndSetup() error = %v", frame, err)
		}
		if got := p.Plan().Passes[0].Barriers; !slices.Equal(got, want) {
			t.Errorf("frame %d: barriers = %v, want %v", frame, got, want)
		}
		textures = append(textures, p.textures["history"])
		if err := p.BeginFrame(); err != nil {
			t.Fatalf("BeginFrame() error = %v", err)
		}
		if err := p.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if err := p.EndFrame(); err != nil {
			t.Fatalf("EndFrame() error = %v", err)
		}
	}
	if textures[0] == textures[1] {
		t.Error("history was not reallocated for the wider usage")
	}
}

func TestMoveAliases(t *testing.T) {
	p, dev := newPipeline(t, nil)
	err := declare(p, func(p *Pipeline) {
		targets(p, "a", "b")
		writer(p, "w", "a")
		p.AddMovePass().AddPair(MovePair{Source: "a", Target: "b"})
		writer(p, "r", "b")
	})
	if err != nil {
		t.Fatalf("EndSetup() error = %v", err)
	}
	if p.textures["a"] != p.textures["b"] {
		t.Error("move target does not share the source texture")
	}
	if got := dev.Count("Texture.Initialize"); got != 1 {
		t.Errorf("Texture.Initialize calls = %d, want 1", got)
	}
	b, _ := p.Plan().Resource("b")
	if b.Alias != "a" {
		t.Errorf("Alias = %q, want %q", b.Alias, "a")
	}
	// The move target continues in the source's state.
	if got := p.Plan().Passes[2].Barriers; len(got) != 0 {
		t.Errorf("barriers after move = %v, want none", got)
	}
}
