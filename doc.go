// Package gfx defines a backend-agnostic GPU device contract.
//
// # Overview
//
// A [Device] owns every resource-creation entry point. Concrete backends
// live in backend/wgpu and implement the contract over the gogpu/wgpu HAL.
// Two decorators implement the same contract around another device:
//
//   - agent.Device forwards every call through one submission goroutine in
//     program order.
//   - validator.Device wraps every created object and rejects misuse
//     (use before Initialize, double Destroy, type confusion) before it
//     reaches the wrapped device.
//
// The backend package builds the chain raw → agent → validator and keeps
// the outermost layer as a process-wide singleton:
//
//	dev, err := backend.Create(gfx.DeviceInfo{
//	    BindingMapping: gfx.DefaultBindingMapping(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Destroy()
//
// # Objects
//
// New* methods return uninitialized objects. Every object must be
// initialized before any other call and destroyed exactly once, before the
// device. Object identity is the pair ([Object.ObjectType], [Object.TypedID]),
// which is stable across decoration layers.
//
// # Render graph
//
// Package render declares passes and virtual resources against a device and
// compiles them into an ordered frame with barriers and pooled
// allocations. Package layout describes the descriptor binding hierarchy.
//
// # Logging
//
// gfx is silent by default. Use [SetLogger] to enable diagnostics.
package gfx
