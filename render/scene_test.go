// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"testing"

	"github.com/gogpu/gfx"
)

// drawRecorder is a SceneVisitor counting draws.
type drawRecorder struct {
	data      *PipelineSceneData
	viewports int
	draws     []gfx.DrawInfo
}

func (r *drawRecorder) PipelineSceneData() *PipelineSceneData { return r.data }
func (r *drawRecorder) SetScissor(gfx.Rect) error             { return nil }

func (r *drawRecorder) UpdateBuffer(gfx.Buffer, uint64, []byte) error {
	return nil
}

func (r *drawRecorder) SetViewport(gfx.Viewport) error {
	r.viewports++
	return nil
}

func (r *drawRecorder) BindDescriptorSet(uint32, gfx.DescriptorSet, []uint32) error {
	return nil
}

func (r *drawRecorder) Draw(info gfx.DrawInfo) error {
	r.draws = append(r.draws, info)
	return nil
}

// testScene returns n models alternating opaque and transparent. Every
// third model is on layer 2, the rest on layer 1.
func testScene(n int) *Scene {
	s := &Scene{Name: "test"}
	for i := range n {
		m := Model{Name: fmt.Sprintf("m%d", i), Layer: 1, Draw: gfx.DrawInfo{VertexCount: uint32(i + 1)}}
		if i%2 == 1 {
			m.Flags = SceneTransparentObject
		}
		if i%3 == 0 {
			m.Layer = 2
		}
		s.Models = append(s.Models, m)
	}
	return s
}

func TestSceneTransversal(t *testing.T) {
	tests := []struct {
		name       string
		models     int
		flags      SceneFlags
		visibility uint32
		wantType   TaskType
		wantDraws  int
	}{
		{name: "all objects", models: 6, flags: SceneAllObjects, wantType: TaskSync, wantDraws: 6},
		{name: "opaque only", models: 6, flags: SceneOpaqueObject, wantType: TaskSync, wantDraws: 3},
		{name: "layer mask", models: 6, flags: SceneAllObjects, visibility: 1, wantType: TaskSync, wantDraws: 4},
		{name: "nothing", models: 6, flags: SceneUI, wantType: TaskSync, wantDraws: 0},
		{name: "large scene", models: 300, flags: SceneOpaqueObject, wantType: TaskAsync, wantDraws: 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPipeline(t, nil)
			camera := &Camera{Name: "main", Width: 320, Height: 240, Visibility: tt.visibility, Scene: testScene(tt.models)}
			rec := &drawRecorder{data: p.PipelineSceneData()}

			task := p.CreateSceneTransversal(camera, nil, tt.flags).Transverse(rec)
			if task.TaskType() != tt.wantType {
				t.Errorf("TaskType() = %v, want %v", task.TaskType(), tt.wantType)
			}
			task.Start()
			task.Join()
			if err := task.Submit(); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if len(rec.draws) != tt.wantDraws {
				t.Errorf("draws = %d, want %d", len(rec.draws), tt.wantDraws)
			}
			if rec.viewports != 1 {
				t.Errorf("viewports = %d, want 1", rec.viewports)
			}
			for i := 1; i < len(rec.draws); i++ {
				if rec.draws[i].VertexCount <= rec.draws[i-1].VertexCount {
					t.Fatalf("draws out of scene order at %d", i)
				}
			}
			for _, d := range rec.draws {
				if d.InstanceCount != 1 {
					t.Fatalf("InstanceCount = %d, want 1", d.InstanceCount)
				}
			}
		})
	}
}

func TestSceneQueue(t *testing.T) {
	p, dev := newPipeline(t, nil)
	p.builder = PipelineBuilderFunc(func(cameras []*Camera, p *Pipeline) error {
		targets(p, "color")
		q := writer(p, "main", "color").AddQueue(QueueOpaque)
		q.SetMat4("view", Identity())
		q.AddScene(cameras[0].Name, SceneAllObjects)
		return nil
	})
	camera := &Camera{Name: "main", Width: 64, Height: 64, Scene: testScene(4)}
	if err := p.Render([]*Camera{camera}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := dev.Stats().DrawCalls; got != 4 {
		t.Errorf("DrawCalls = %d, want 4", got)
	}
	if got := dev.Count("CommandBuffer.BindDescriptorSet"); got != 1 {
		t.Errorf("BindDescriptorSet calls = %d, want 1", got)
	}
}

func TestSceneUnknownCamera(t *testing.T) {
	p, _ := newPipeline(t, func(p *Pipeline) {
		targets(p, "color")
		writer(p, "main", "color").AddQueue(QueueOpaque).AddScene("missing", SceneAllObjects)
	})
	if err := p.Render(nil); err == nil {
		t.Fatal("Render() with unknown camera succeeded")
	}
}

func TestSceneGlobalsActivate(t *testing.T) {
	p, _ := newPipeline(t, nil)
	v := p.StateVersion()
	ambient := p.PipelineSceneData().Ambient()

	g := &SceneGlobals{
		Fog:     &FogInfo{Enabled: true, Type: FogExp, Density: 0.5},
		Shadows: &ShadowsInfo{Enabled: true, Type: ShadowMap},
		Skybox:  &SkyboxInfo{Enabled: true, UseHDR: true},
	}
	g.Activate(p)

	d := p.PipelineSceneData()
	if d.Fog().Density != 0.5 || !d.HDR() {
		t.Errorf("scene data = %+v %+v", d.Fog(), d.Skybox())
	}
	if d.Ambient() != ambient {
		t.Error("nil ambient overwrote the pipeline setting")
	}
	if got := p.MacroInt("GFX_USE_FOG"); got != int32(FogExp) {
		t.Errorf("GFX_USE_FOG = %d, want %d", got, FogExp)
	}
	if got := p.MacroInt("GFX_SHADOW_TYPE"); got != 2 {
		t.Errorf("GFX_SHADOW_TYPE = %d, want 2", got)
	}
	if !p.MacroBool("GFX_USE_HDR") {
		t.Error("GFX_USE_HDR not set")
	}
	if p.StateVersion() <= v {
		t.Error("Activate() did not report a state change")
	}
}

func TestProfilerOverlay(t *testing.T) {
	p, _ := newPipeline(t, nil)
	p.SetProfiler(&Model{Name: "profiler", Draw: gfx.DrawInfo{VertexCount: 1000}})
	camera := &Camera{Name: "main", Width: 320, Height: 240, Scene: testScene(6)}

	tests := []struct {
		name      string
		camera    *Camera
		flags     SceneFlags
		wantDraws int
	}{
		{"without flag", camera, SceneAllObjects, 6},
		{"with flag", camera, SceneAllObjects | SceneProfiler, 7},
		{"overlay only", nil, SceneProfiler, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &drawRecorder{data: p.PipelineSceneData()}
			if err := p.CreateSceneTransversal(tt.camera, nil, tt.flags).Transverse(rec).Submit(); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if len(rec.draws) != tt.wantDraws {
				t.Fatalf("draws = %d, want %d", len(rec.draws), tt.wantDraws)
			}
			if tt.flags&SceneProfiler != 0 && rec.draws[len(rec.draws)-1].VertexCount != 1000 {
				t.Error("profiler is not drawn last")
			}
		})
	}
}
