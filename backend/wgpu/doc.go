// Package wgpu implements gfx devices over the gogpu/wgpu hardware
// abstraction layer.
//
// New opens the HAL backend registered for a hardware API (Vulkan, Metal,
// DX12 or GL). NewHeadless opens the HAL noop backend, which never touches a
// GPU and always initializes; it is the fallback of last resort of the
// device factory.
//
// # Objects
//
// Buffers, textures, samplers, shader modules and descriptor-set layouts
// map one-to-one onto HAL objects. Shaders are written in WGSL and compiled
// to SPIR-V with naga. Descriptor sets are CPU-side binding tables.
// Swapchains are offscreen: a color and a depth-stencil texture that are
// recreated on every resize or surface change.
//
// # Command buffers
//
// Command buffers record into memory. Submit uploads pending buffer
// updates, encodes barriers and render passes (with their clears) into a
// HAL command encoder, submits it and waits on a fence.
//
// # Sharing a host device
//
// If gfx.DeviceInfo.Provider also implements
//
//	HalDevice() any
//	HalQueue() any
//
// returning hal.Device and hal.Queue, a hardware Device wraps the host's
// device instead of opening its own and leaves it open on Destroy.
package wgpu
