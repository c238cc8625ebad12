// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/gfx"
)

// TaskType says where a scene task does its culling work.
type TaskType uint8

// Task types.
const (
	// TaskSync culls on the recording goroutine during Submit.
	TaskSync TaskType = iota
	// TaskAsync culls on worker goroutines between Start and Join.
	TaskAsync
)

func (t TaskType) String() string {
	if t == TaskAsync {
		return "async"
	}
	return "sync"
}

// SceneVisitor receives the commands a scene task records.
type SceneVisitor interface {
	PipelineSceneData() *PipelineSceneData
	SetViewport(vp gfx.Viewport) error
	SetScissor(rect gfx.Rect) error
	BindDescriptorSet(set uint32, ds gfx.DescriptorSet, dynamicOffsets []uint32) error
	UpdateBuffer(buf gfx.Buffer, offset uint64, data []byte) error
	Draw(info gfx.DrawInfo) error
}

// SceneTask renders one scene. Start and Join bracket the culling work;
// Submit records draws into the visitor and must run on the recording
// goroutine.
type SceneTask interface {
	TaskType() TaskType
	Start()
	Join()
	Submit() error
}

// SceneTransversal walks a scene for one camera.
type SceneTransversal interface {
	Transverse(v SceneVisitor) SceneTask
}

// asyncModels is the scene size from which culling runs on workers.
const asyncModels = 256

// cullChunk is the number of models culled by one worker call.
const cullChunk = 64

type sceneTransversal struct {
	camera   *Camera
	scene    *Scene
	flags    SceneFlags
	profiler *Model
}

// CreateSceneTransversal returns a transversal drawing the models of scene
// matching flags and visible to camera. A nil scene falls back to the
// camera's scene.
func (p *Pipeline) CreateSceneTransversal(camera *Camera, scene *Scene, flags SceneFlags) SceneTransversal {
	if scene == nil && camera != nil {
		scene = camera.Scene
	}
	t := &sceneTransversal{camera: camera, scene: scene, flags: flags}
	if flags&SceneProfiler != 0 {
		t.profiler = p.profiler
	}
	return t
}

func (t *sceneTransversal) Transverse(v SceneVisitor) SceneTask {
	task := &sceneTask{sceneTransversal: t, visitor: v}
	if t.scene != nil && len(t.scene.Models) >= asyncModels {
		task.typ = TaskAsync
	}
	return task
}

// visible reports whether m is drawn by the transversal.
func (t *sceneTransversal) visible(m *Model) bool {
	flags := m.Flags
	if flags == SceneNone {
		flags = SceneOpaqueObject
	}
	if flags&t.flags == 0 {
		return false
	}
	return t.camera == nil || t.camera.Visibility == 0 || m.Layer&t.camera.Visibility != 0
}

type sceneTask struct {
	*sceneTransversal
	visitor SceneVisitor
	typ     TaskType
	keep    []bool
	culled  bool
	g       *errgroup.Group
}

func (t *sceneTask) TaskType() TaskType { return t.typ }

func (t *sceneTask) cull(lo, hi int) {
	for i := lo; i < hi; i++ {
		t.keep[i] = t.visible(&t.scene.Models[i])
	}
}

func (t *sceneTask) Start() {
	if t.scene == nil || t.keep != nil {
		return
	}
	n := len(t.scene.Models)
	t.keep = make([]bool, n)
	if t.typ == TaskSync {
		return
	}
	t.g = new(errgroup.Group)
	t.g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < n; lo += cullChunk {
		hi := min(lo+cullChunk, n)
		t.g.Go(func() error {
			t.cull(lo, hi)
			return nil
		})
	}
}

func (t *sceneTask) Join() {
	if t.g != nil {
		_ = t.g.Wait()
		t.g = nil
		t.culled = true
	}
}

func (t *sceneTask) Submit() error {
	if t.scene == nil {
		return t.drawProfiler()
	}
	t.Start()
	t.Join()
	if !t.culled {
		t.cull(0, len(t.scene.Models))
		t.culled = true
	}
	if t.camera != nil {
		vp := t.camera.Viewport()
		if err := t.visitor.SetViewport(vp); err != nil {
			return err
		}
		if err := t.visitor.SetScissor(gfx.Rect{Width: vp.Width, Height: vp.Height}); err != nil {
			return err
		}
	}
	for i := range t.scene.Models {
		if !t.keep[i] {
			continue
		}
		info := t.scene.Models[i].Draw
		if info.InstanceCount == 0 {
			info.InstanceCount = 1
		}
		if err := t.visitor.Draw(info); err != nil {
			return fmt.Errorf("model %q: %w", t.scene.Models[i].Name, err)
		}
	}
	return t.drawProfiler()
}

// drawProfiler draws the profiler overlay after the scene.
func (t *sceneTask) drawProfiler() error {
	if t.profiler == nil {
		return nil
	}
	info := t.profiler.Draw
	if info.InstanceCount == 0 {
		info.InstanceCount = 1
	}
	if err := t.visitor.Draw(info); err != nil {
		return fmt.Errorf("profiler %q: %w", t.profiler.Name, err)
	}
	return nil
}

// visitor records scene commands into the frame command buffer.
type visitor struct {
	p   *Pipeline
	cmd gfx.CommandBuffer
}

func (v *visitor) PipelineSceneData() *PipelineSceneData { return v.p.sceneData }
func (v *visitor) SetViewport(vp gfx.Viewport) error     { return v.cmd.SetViewport(vp) }
func (v *visitor) SetScissor(rect gfx.Rect) error        { return v.cmd.SetScissor(rect) }
func (v *visitor) Draw(info gfx.DrawInfo) error          { return v.cmd.Draw(info) }

func (v *visitor) BindDescriptorSet(set uint32, ds gfx.DescriptorSet, dynamicOffsets []uint32) error {
	return v.cmd.BindDescriptorSet(set, ds, dynamicOffsets)
}

// UpdateBuffer writes buf directly; a render pass is open while scenes are
// recorded.
func (v *visitor) UpdateBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	return buf.Update(offset, data)
}
