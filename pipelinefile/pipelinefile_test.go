// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipelinefile

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/internal/gfxtest"
	"github.com/gogpu/gfx/render"
	"github.com/gogpu/gputypes"
	"github.com/hashicorp/hcl/v2"
)

func newPipeline(t *testing.T, f *File) (*render.Pipeline, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.New(gfx.APIHeadless)
	sc := dev.NewSwapchain()
	if err := sc.Initialize(gfx.SwapchainInfo{Width: 320, Height: 240, ColorFormat: gputypes.TextureFormatRGBA8Unorm}); err != nil {
		t.Fatalf("Swapchain.Initialize() error = %v", err)
	}
	f.SetWindow("main", &render.RenderWindow{Name: "main", Swapchain: sc})
	p := render.NewPipeline(dev, f)
	if err := p.Activate(sc); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	t.Cleanup(func() {
		if err := p.Destroy(); err != nil {
			t.Errorf("Destroy() error = %v", err)
		}
	})
	return p, dev
}

func TestLoadForward(t *testing.T) {
	f, err := Load("testdata/forward.hcl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p, dev := newPipeline(t, f)
	p.LayoutGraph().AddRenderStage("forward")
	if _, err := p.LayoutGraph().Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	scene := &render.Scene{Name: "level", Models: []render.Model{
		{Name: "floor", Draw: gfx.DrawInfo{VertexCount: 6}},
		{Name: "glass", Flags: render.SceneTransparentObject, Draw: gfx.DrawInfo{VertexCount: 36}},
	}}
	cameras := []*render.Camera{{Name: "main", Width: 320, Height: 240, Scene: scene}}
	if err := p.Render(cameras); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := p.PresentAll(); err != nil {
		t.Fatalf("PresentAll() error = %v", err)
	}

	plan := p.Plan()
	if got, want := plan.Order(), []string{"forward", "bloom", "present"}; !slices.Equal(got, want) {
		t.Errorf("Order() = %v, want %v", got, want)
	}
	for _, tt := range []struct {
		name          string
		width, height uint32
		residency     render.Residency
	}{
		{"hdr", 320, 240, render.Managed},
		{"depth", 320, 240, render.Memoryless},
		{"bloom", 160, 120, render.Managed},
		{"screen", 320, 240, render.Backbuffer},
	} {
		r, ok := plan.Resource(tt.name)
		if !ok {
			t.Errorf("resource %q missing", tt.name)
			continue
		}
		if r.Width != tt.width || r.Height != tt.height || r.Residency != tt.residency {
			t.Errorf("resource %q = %dx%d %s, want %dx%d %s", tt.name,
				r.Width, r.Height, r.Residency, tt.width, tt.height, tt.residency)
		}
	}
	// Two scene draws, two quads.
	if got := dev.Stats().DrawCalls; got != 4 {
		t.Errorf("DrawCalls = %d, want 4", got)
	}
	if got := dev.Stats().Passes; got != 3 {
		t.Errorf("Passes = %d, want 3", got)
	}
}

func TestShadingScale(t *testing.T) {
	f, err := Load("testdata/forward.hcl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p, _ := newPipeline(t, f)
	p.SetShadingScale(0.5)
	p.LayoutGraph().AddRenderStage("forward")
	if _, err := p.LayoutGraph().Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := p.Render([]*render.Camera{{Name: "main", Width: 320, Height: 240}}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if r, _ := p.Plan().Resource("bloom"); r.Width != 80 || r.Height != 60 {
		t.Errorf("bloom = %dx%d, want 80x60", r.Width, r.Height)
	}
}

func TestDevice(t *testing.T) {
	f, err := Load("testdata/forward.hcl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg, err := f.Device()
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if want := []gfx.API{gfx.APIVulkan, gfx.APIGLES3}; !slices.Equal(cfg.Info.Preference, want) {
		t.Errorf("Preference = %v, want %v", cfg.Info.Preference, want)
	}
	if want := []gfx.API{gfx.APIMetal}; !slices.Equal(cfg.Info.Disabled, want) {
		t.Errorf("Disabled = %v, want %v", cfg.Info.Disabled, want)
	}
	if cfg.Info.Label != "forward" {
		t.Errorf("Label = %q, want %q", cfg.Info.Label, "forward")
	}
	// validation, xr and detach.
	if len(cfg.Options) != 3 {
		t.Errorf("Options = %d, want 3", len(cfg.Options))
	}

	bare, err := Parse([]byte(`material "m" {}`), "bare.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cfg, err = bare.Device()
	if err != nil || len(cfg.Options) != 0 {
		t.Errorf("Device() = %+v, %v, want defaults", cfg, err)
	}

	bad, err := Parse([]byte(`device { preference = ["opengl"] }`), "bad.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := bad.Device(); err == nil {
		t.Error("Device() with unknown backend succeeded")
	}
}

func TestParams(t *testing.T) {
	f, err := Parse([]byte(`
resource "render_target" "color" {
  format = "rgba8unorm"
}
pass "raster" "main" {
  params = { exposure = 2, offset = [1, 2], tint = [1, 0, 0, 1] }
  view "raster" "color" {}
  queue "none" {
    command "viewport" {
      viewport = [0, 0, 64, 64]
    }
  }
}
pass "compute" "blur" {
  view "compute" "color" {
    access = "read"
  }
  queue "none" {
    command "dispatch" {
      shader = "blur"
      groups = [8, 8]
      params = { radius = 4 }
    }
  }
}
`), "params.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	p, dev := newPipeline(t, f)
	if err := p.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := dev.Stats().Dispatches; got != 1 {
		t.Errorf("Dispatches = %d, want 1", got)
	}
	if r, _ := p.Plan().Resource("color"); r.Width != 1280 || r.Height != 720 {
		t.Errorf("color = %dx%d, want the default screen", r.Width, r.Height)
	}
	// The dispatch carries its queue's radius and nothing else.
	if got := dev.Count("CommandBuffer.BindDescriptorSet"); got != 1 {
		t.Errorf("BindDescriptorSet calls = %d, want 1", got)
	}
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown format",
			src:  `resource "render_target" "c" { format = "rgb565" }`,
			want: `unknown format "rgb565"`,
		},
		{
			name: "unknown material",
			src: `
resource "render_target" "c" { format = "rgba8unorm" }
pass "raster" "p" {
  view "raster" "c" {}
  queue "none" {
    command "quad" { material = "missing" }
  }
}`,
			want: `unknown material "missing"`,
		},
		{
			name: "bad params",
			src: `
resource "render_target" "c" { format = "rgba8unorm" }
pass "raster" "p" {
  params = { m = [1, 2, 3] }
  view "raster" "c" {}
}`,
			want: `param "m": 3 components`,
		},
		{
			name: "unknown window",
			src: `
resource "backbuffer" "s" {
  format = "rgba8unorm"
  window = "other"
}`,
			want: `unknown window "other"`,
		},
		{
			name: "undefined variable",
			src: `
resource "render_target" "c" {
  format = "rgba8unorm"
  width  = viewport.width
}`,
			want: "viewport",
		},
		{
			name: "dispatch in raster pass",
			src: `
resource "render_target" "c" { format = "rgba8unorm" }
pass "raster" "p" {
  view "raster" "c" {}
  queue "none" {
    command "dispatch" { shader = "x" }
  }
}`,
			want: "not a raster command",
		},
		{
			name: "unknown pass kind",
			src:  `pass "mesh" "p" {}`,
			want: `unknown pass kind "mesh"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.src), tt.name+".hcl")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			p, _ := newPipeline(t, f)
			err = p.Render(nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Render() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte(`pass "raster" {`), "broken.hcl"); err == nil {
		t.Error("Parse() of broken HCL succeeded")
	}
	if _, err := Parse([]byte("material \"m\" {}\nmaterial \"m\" {}\n"), "dup.hcl"); err == nil {
		t.Error("Parse() with duplicate material succeeded")
	}
	if _, err := Load("testdata/missing.hcl"); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
	_, err := Parse([]byte(`device { unknown = 1 }`), "device.hcl")
	var diags hcl.Diagnostics
	if !errors.As(err, &diags) || !diags.HasErrors() {
		t.Errorf("Parse() error = %v, want diagnostics", err)
	}
}
