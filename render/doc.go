// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render declares, compiles and executes frame render graphs.
//
// A Pipeline collects a frame's virtual resources and passes between
// BeginSetup and EndSetup. EndSetup compiles the declared graph into a Plan:
// an execution order, the barriers between dependent passes and a concrete
// texture for every graph-owned resource.
//
// # Core Interfaces
//
//   - PipelineBuilder: declares the graph each frame for a set of cameras
//   - Setter: default parameter bindings shared by pass and queue builders
//   - RasterPassBuilder, ComputePassBuilder: passes with named views and queues
//   - MovePassBuilder, CopyPassBuilder: resource aliasing and copies
//   - SceneTransversal, SceneTask, SceneVisitor: per-camera scene drawing
//
// # Frame Lifecycle
//
//	idle → BeginSetup → Add* → EndSetup → BeginFrame → Execute → EndFrame → PresentAll → idle
//
// Render runs the whole cycle except PresentAll for one set of cameras:
//
//	p := render.NewPipeline(dev, builder)
//	if err := p.Activate(swapchain); err != nil {
//		return err
//	}
//	for running {
//		if err := p.Render(cameras); err != nil {
//			return err
//		}
//		if err := p.PresentAll(); err != nil {
//			return err
//		}
//	}
//
// # Ordering
//
// For every resource, passes that write it run in declaration order and
// passes that only read it run after all of them. Otherwise independent
// passes keep their declaration order. A dependency cycle fails compilation
// with a *CycleError naming the passes involved.
//
// # Thread Safety
//
// A Pipeline is NOT thread-safe. Declarations, compilation and execution
// must happen on one goroutine; the device it drives may forward work to
// its own submission goroutine.
package render
