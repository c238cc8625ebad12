// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command gfxdemo creates the process device, renders a few frames of a
// pipeline file and prints the layout graph and the device statistics.
package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend"
	"github.com/gogpu/gfx/layout"
	"github.com/gogpu/gfx/pipelinefile"
	"github.com/gogpu/gfx/render"
	"github.com/gogpu/gputypes"
)

//go:embed forward.hcl
var defaultPipeline []byte

type config struct {
	pipeline string
	frames   int
	width    uint
	height   uint
	models   int
	scale    float64
	disable  string
	verbose  bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.pipeline, "pipeline", "", "pipeline file (default: built-in forward pipeline)")
	flag.IntVar(&cfg.frames, "frames", 3, "frames to render")
	flag.UintVar(&cfg.width, "width", 1280, "window width")
	flag.UintVar(&cfg.height, "height", 720, "window height")
	flag.IntVar(&cfg.models, "models", 512, "models in the demo scene")
	flag.Float64Var(&cfg.scale, "scale", 1, "shading scale")
	flag.StringVar(&cfg.disable, "disable", "", "comma-separated backends to skip")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.Parse()

	if cfg.verbose {
		gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(os.Stdout, cfg); err != nil {
		log.Fatalf("gfxdemo: %v", err)
	}
}

func run(w io.Writer, cfg config) (err error) {
	file, err := loadPipeline(cfg.pipeline)
	if err != nil {
		return err
	}
	dc, err := file.Device()
	if err != nil {
		return err
	}
	for _, name := range strings.Split(cfg.disable, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		api, err := gfx.ParseAPI(name)
		if err != nil {
			return err
		}
		dc.Info.Disabled = append(dc.Info.Disabled, api)
	}

	dev, err := backend.Create(dc.Info, dc.Options...)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	defer func() { err = errors.Join(err, backend.Destroy()) }()
	fmt.Fprintf(w, "device: %s [%s]\n", dev.Name(), strings.Join(backend.Decoration(dev), " > "))
	fmt.Fprintf(w, "api: %s detached=%t\n", backend.APIName(), backend.Detached())

	sc := dev.NewSwapchain()
	if err := sc.Initialize(gfx.SwapchainInfo{
		Width:              uint32(cfg.width),
		Height:             uint32(cfg.height),
		ColorFormat:        gputypes.TextureFormatRGBA8Unorm,
		DepthStencilFormat: gputypes.TextureFormatDepth24PlusStencil8,
	}); err != nil {
		return fmt.Errorf("swapchain: %w", err)
	}
	defer func() { err = errors.Join(err, sc.Destroy()) }()

	window := &render.RenderWindow{Name: "main", Swapchain: sc}
	file.SetWindow(window.Name, window)
	file.Screen = [2]uint32{uint32(cfg.width), uint32(cfg.height)}

	p := render.NewPipeline(dev, file)
	defer func() { err = errors.Join(err, p.Destroy()) }()
	if err := p.Activate(sc); err != nil {
		return err
	}
	p.SetShadingScale(float32(cfg.scale))
	if err := buildLayouts(p.LayoutGraph()); err != nil {
		return err
	}

	camera := &render.Camera{
		Name:   "main",
		Width:  uint32(cfg.width),
		Height: uint32(cfg.height),
		Window: window,
		Scene:  demoScene(cfg.models),
	}
	for i := 0; i < cfg.frames; i++ {
		if err := p.Render([]*render.Camera{camera}); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := p.PresentAll(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if err := dev.WaitIdle(); err != nil {
		return err
	}

	fmt.Fprintf(w, "passes: %s\n", strings.Join(p.Plan().Order(), " -> "))
	fmt.Fprint(w, p.LayoutGraph().Print())
	s := dev.Stats()
	fmt.Fprintf(w, "frames=%d submits=%d passes=%d draws=%d barriers=%d\n",
		cfg.frames, s.Submits, s.Passes, s.DrawCalls, s.Barriers)
	return nil
}

func loadPipeline(path string) (*pipelinefile.File, error) {
	if path == "" {
		return pipelinefile.Parse(defaultPipeline, "forward.hcl")
	}
	return pipelinefile.Load(path)
}

// buildLayouts declares the render stages the built-in pipeline names.
func buildLayouts(g *layout.Builder) error {
	g.AddRenderStage("forward")
	post := g.AddRenderStage("post")
	phase := g.AddRenderPhase("default", post)
	tonemap := g.AddShader("tonemap", phase)

	err := g.AddDescriptorBlock(post, layout.BlockIndex{
		Frequency:  layout.PerPass,
		Type:       gfx.DescriptorSampledTexture,
		Visibility: gputypes.ShaderStageFragment,
	}, layout.Block{Descriptors: []layout.Descriptor{{Name: "src"}, {Name: "bloom"}}})
	if err != nil {
		return err
	}
	err = g.AddDescriptorBlock(tonemap, layout.BlockIndex{
		Frequency:  layout.PerBatch,
		Type:       gfx.DescriptorSampler,
		Visibility: gputypes.ShaderStageFragment,
	}, layout.Block{Descriptors: []layout.Descriptor{{Name: "linear"}}})
	if err != nil {
		return err
	}
	_, err = g.Compile()
	return err
}

// demoScene returns n models on alternating layers, one in eight of them
// transparent.
func demoScene(n int) *render.Scene {
	s := &render.Scene{Name: "demo", Models: make([]render.Model, n)}
	for i := range s.Models {
		m := render.Model{
			Name:  fmt.Sprintf("model-%d", i),
			Flags: render.SceneOpaqueObject,
			Layer: 1 << (i % 2),
			Draw:  gfx.DrawInfo{IndexCount: 36, InstanceCount: 1},
		}
		if i%8 == 7 {
			m.Flags = render.SceneTransparentObject
		}
		s.Models[i] = m
	}
	return s
}
