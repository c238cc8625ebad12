// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

// Device owns every GPU resource-creation entry point.
//
// A Device is produced by a concrete backend and may be wrapped by any
// number of decorators (dispatch agent, validator) implementing this same
// interface. Callers only ever see the outermost layer and cannot tell it
// apart from a raw backend device.
//
// New* methods allocate an uninitialized object; the object becomes usable
// after its Initialize method succeeds. Objects must be destroyed before the
// device that created them.
type Device interface {
	// Initialize opens the device. It must be called exactly once.
	Initialize(info DeviceInfo) error

	// Destroy releases the device. Decorators destroy the layer they wrap.
	Destroy() error

	// API returns the backend implementing the device.
	API() API

	// Name returns a human readable device name.
	Name() string

	// Capabilities returns the device capabilities.
	// The result is only meaningful after Initialize.
	Capabilities() Capabilities

	NewBuffer() Buffer
	NewTexture() Texture
	NewSampler() Sampler
	NewShader() Shader
	NewDescriptorSetLayout() DescriptorSetLayout
	NewDescriptorSet() DescriptorSet
	NewSwapchain() Swapchain
	NewCommandBuffer() CommandBuffer

	// Acquire acquires the next image of each swapchain for rendering.
	Acquire(swapchains []Swapchain) error

	// Submit submits recorded command buffers in order.
	Submit(cmds []CommandBuffer) error

	// Present presents every swapchain acquired since the last Present.
	Present() error

	// ReadBuffer copies buffer contents into dst. It blocks until all
	// previously submitted work has completed.
	ReadBuffer(buf Buffer, offset uint64, dst []byte) error

	// WaitIdle blocks until all previously submitted work has completed.
	// It is the synchronous checkpoint where deferred failures surface.
	WaitIdle() error

	// Stats returns counters of the work forwarded to the device.
	Stats() Stats
}

// Handle identifies a device object.
type Handle interface {
	// TypedID returns the per-kind identifier of the object. It is stable
	// across decoration layers.
	TypedID() uint32

	// ObjectType returns the kind of the object.
	ObjectType() ObjectType
}

// Object is implemented by every device object.
type Object interface {
	Handle

	// Destroy releases the object. Destroying twice is a contract violation.
	Destroy() error
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Object
	Initialize(info BufferInfo) error
	Info() BufferInfo
	Update(offset uint64, data []byte) error
	Resize(size uint64) error
}

// Texture is a GPU image.
type Texture interface {
	Object
	Initialize(info TextureInfo) error
	Info() TextureInfo
	Resize(width, height uint32) error
}

// Sampler describes how textures are sampled.
type Sampler interface {
	Object
	Initialize(info SamplerInfo) error
	Info() SamplerInfo
}

// Shader is a compiled shader program.
type Shader interface {
	Object
	Initialize(info ShaderInfo) error
	Name() string
}

// DescriptorSetLayout describes the binding slots of a descriptor set.
type DescriptorSetLayout interface {
	Object
	Initialize(info DescriptorSetLayoutInfo) error
	Bindings() []DescriptorSetLayoutBinding
}

// DescriptorSet binds resources to the slots of a layout.
// Bind* calls stage bindings; Update makes them visible to the GPU.
type DescriptorSet interface {
	Object
	Initialize(info DescriptorSetInfo) error
	Layout() DescriptorSetLayout
	BindBuffer(binding uint32, buf Buffer) error
	BindTexture(binding uint32, tex Texture) error
	BindSampler(binding uint32, smp Sampler) error
	Update() error
}

// Swapchain is a presentable surface with color and depth-stencil images.
// The swapchain owns both textures; callers must not destroy them.
type Swapchain interface {
	Object
	Initialize(info SwapchainInfo) error
	ColorTexture() Texture
	DepthStencilTexture() Texture
	Width() uint32
	Height() uint32
	Transform() SurfaceTransform
	// Generation increases every time the surface images are recreated.
	Generation() uint32
	Resize(width, height uint32, transform SurfaceTransform) error
	CreateSurface(windowHandle any) error
	DestroySurface() error
}

// CommandBuffer records GPU commands for later submission.
type CommandBuffer interface {
	Object
	Initialize(info CommandBufferInfo) error
	Begin() error
	End() error
	PipelineBarrier(barriers []TextureBarrier) error
	BeginRenderPass(info RenderPassInfo) error
	EndRenderPass() error
	SetViewport(vp Viewport) error
	SetScissor(rect Rect) error
	BindDescriptorSet(set uint32, ds DescriptorSet, dynamicOffsets []uint32) error
	UpdateBuffer(buf Buffer, offset uint64, data []byte) error
	Draw(info DrawInfo) error
	Dispatch(x, y, z uint32) error
	CopyTexture(src, dst Texture, regions []TextureCopy) error
}
