// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// API identifies a concrete graphics backend.
type API uint8

// Known backends, in no particular order. The factory's preference order
// lives in the backend package.
const (
	APIUnknown API = iota
	APINVN
	APIVulkan
	APIMetal
	APIDX12
	APIGLES3
	APIGLES2
	APIHeadless
)

var apiNames = [...]string{"unknown", "nvn", "vulkan", "metal", "dx12", "gles3", "gles2", "headless"}

// String returns the lowercase backend name.
func (a API) String() string {
	if int(a) < len(apiNames) {
		return apiNames[a]
	}
	return fmt.Sprintf("api(%d)", uint8(a))
}

// ParseAPI parses a backend name as returned by API.String.
// It is case insensitive.
func ParseAPI(s string) (API, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range apiNames {
		if i > 0 && name == s {
			return API(i), nil
		}
	}
	return APIUnknown, fmt.Errorf("%w: unknown backend %q", ErrInvalidArgument, s)
}

// ObjectType tags every device object with its resource kind.
type ObjectType uint8

// Object kinds.
const (
	ObjectUnknown ObjectType = iota
	ObjectBuffer
	ObjectTexture
	ObjectSampler
	ObjectShader
	ObjectDescriptorSetLayout
	ObjectDescriptorSet
	ObjectSwapchain
	ObjectCommandBuffer

	numObjectTypes
)

var objectNames = [...]string{
	"unknown", "buffer", "texture", "sampler", "shader",
	"descriptor-set-layout", "descriptor-set", "swapchain", "command-buffer",
}

func (t ObjectType) String() string {
	if t < numObjectTypes {
		return objectNames[t]
	}
	return fmt.Sprintf("object(%d)", uint8(t))
}

var typedIDs [numObjectTypes]atomic.Uint32

// NewTypedID returns the next identifier for an object of kind t.
// Identifiers start at 1 and are unique per kind for the process lifetime.
// Backends call it once per created object; decoration layers reuse the
// identifier of the object they wrap.
func NewTypedID(t ObjectType) uint32 {
	if t >= numObjectTypes {
		t = ObjectUnknown
	}
	return typedIDs[t].Add(1)
}

// BindingMappingInfo describes how descriptor update frequencies map to
// descriptor set indices on the device.
type BindingMappingInfo struct {
	MaxBlockCounts          []uint32
	MaxSamplerTextureCounts []uint32
	MaxSamplerCounts        []uint32
	MaxTextureCounts        []uint32
	MaxBufferCounts         []uint32
	MaxImageCounts          []uint32
	MaxSubpassInputCounts   []uint32
	SetIndices              []uint32
}

// DefaultBindingMapping returns the mapping used by the built-in pipeline:
// set 0 holds per-pass data, set 1 per-phase, set 2 per-batch and set 3
// per-instance data.
func DefaultBindingMapping() BindingMappingInfo {
	return BindingMappingInfo{
		MaxBlockCounts:          []uint32{16, 16, 16, 16},
		MaxSamplerTextureCounts: []uint32{16, 16, 16, 16},
		MaxSamplerCounts:        []uint32{8, 8, 8, 8},
		MaxTextureCounts:        []uint32{16, 16, 16, 16},
		MaxBufferCounts:         []uint32{8, 8, 8, 8},
		MaxImageCounts:          []uint32{8, 8, 8, 8},
		MaxSubpassInputCounts:   []uint32{4, 4, 4, 4},
		SetIndices:              []uint32{0, 1, 2, 3},
	}
}

// DeviceInfo configures device initialization.
type DeviceInfo struct {
	// Label is an optional debug label.
	Label string

	// BindingMapping maps update frequencies to descriptor sets.
	BindingMapping BindingMappingInfo

	// Preference overrides the factory's backend preference order when
	// non-empty. The headless backend is always tried last.
	Preference []API

	// Disabled lists backends the factory must skip. The headless
	// backend cannot be disabled.
	Disabled []API

	// Provider lets a host application share an already opened device.
	// When it also exposes HalDevice() and HalQueue(), hardware backends
	// wrap that device instead of opening their own and never destroy it.
	Provider gpucontext.DeviceProvider
}

// Capabilities describes what an initialized device supports.
type Capabilities struct {
	MaxTextureSize   uint32
	MaxBindGroups    uint32
	SupportsCompute  bool
	SupportsBarriers bool
	VendorName       string
	DeviceName       string
}

// Stats counts work forwarded to a device since initialization.
type Stats struct {
	Submits    uint64
	Passes     uint64
	DrawCalls  uint64
	Dispatches uint64
	Barriers   uint64
	Copies     uint64
	Presents   uint64
}

// BufferInfo describes a buffer.
type BufferInfo struct {
	Label  string
	Usage  gputypes.BufferUsage
	Size   uint64
	Stride uint32
}

// TextureInfo describes a 2D texture or texture array.
type TextureInfo struct {
	Label   string
	Format  gputypes.TextureFormat
	Usage   gputypes.TextureUsage
	Width   uint32
	Height  uint32
	Layers  uint32
	Levels  uint32
	Samples uint32
}

// Normalize fills zero-valued layer, level and sample counts with 1.
func (i TextureInfo) Normalize() TextureInfo {
	if i.Layers == 0 {
		i.Layers = 1
	}
	if i.Levels == 0 {
		i.Levels = 1
	}
	if i.Samples == 0 {
		i.Samples = 1
	}
	return i
}

// Filter is a sampler filter mode.
type Filter uint8

// Sampler filters.
const (
	FilterLinear Filter = iota
	FilterNearest
)

// Address is a sampler address mode.
type Address uint8

// Sampler address modes.
const (
	AddressClamp Address = iota
	AddressWrap
	AddressMirror
)

// SamplerInfo describes a sampler.
type SamplerInfo struct {
	Label     string
	MinFilter Filter
	MagFilter Filter
	MipFilter Filter
	AddressU  Address
	AddressV  Address
	AddressW  Address
}

// ShaderInfo describes a shader program written in WGSL.
type ShaderInfo struct {
	Name string
	WGSL string
}

// DescriptorType is the kind of resource a descriptor binds.
type DescriptorType uint8

// Descriptor types.
const (
	DescriptorUniformBuffer DescriptorType = iota + 1
	DescriptorDynamicUniformBuffer
	DescriptorStorageBuffer
	DescriptorSampledTexture
	DescriptorStorageTexture
	DescriptorSampler
	DescriptorInputAttachment
)

var descriptorNames = [...]string{
	"", "uniform-buffer", "dynamic-uniform-buffer", "storage-buffer",
	"sampled-texture", "storage-texture", "sampler", "input-attachment",
}

func (t DescriptorType) String() string {
	if int(t) < len(descriptorNames) && t != 0 {
		return descriptorNames[t]
	}
	return fmt.Sprintf("descriptor(%d)", uint8(t))
}

// IsBuffer reports whether descriptors of type t bind buffers.
func (t DescriptorType) IsBuffer() bool {
	return t == DescriptorUniformBuffer || t == DescriptorDynamicUniformBuffer || t == DescriptorStorageBuffer
}

// IsTexture reports whether descriptors of type t bind textures.
func (t DescriptorType) IsTexture() bool {
	return t == DescriptorSampledTexture || t == DescriptorStorageTexture || t == DescriptorInputAttachment
}

// DescriptorSetLayoutBinding is one binding slot of a descriptor set layout.
type DescriptorSetLayoutBinding struct {
	Binding    uint32
	Name       string
	Type       DescriptorType
	Count      uint32
	Visibility gputypes.ShaderStage
}

// DescriptorSetLayoutInfo describes a descriptor set layout.
type DescriptorSetLayoutInfo struct {
	Label    string
	Bindings []DescriptorSetLayoutBinding
}

// DescriptorSetInfo describes a descriptor set.
type DescriptorSetInfo struct {
	Layout DescriptorSetLayout
}

// SurfaceTransform is the pre-rotation applied to a presentation surface.
type SurfaceTransform uint8

// Surface transforms.
const (
	TransformIdentity SurfaceTransform = iota
	TransformRotate90
	TransformRotate180
	TransformRotate270
)

// SwapchainInfo describes a swapchain.
type SwapchainInfo struct {
	WindowHandle       any
	Width              uint32
	Height             uint32
	ColorFormat        gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	Transform          SurfaceTransform
	VSync              bool
}

// CommandBufferInfo describes a command buffer.
type CommandBufferInfo struct {
	Label string
}

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Viewport is a rendering viewport.
type Viewport struct {
	Left, Top     int32
	Width, Height uint32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is an integer rectangle.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// LoadOp says what happens to an attachment at the start of a render pass.
type LoadOp uint8

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDiscard
)

// StoreOp says what happens to an attachment at the end of a render pass.
type StoreOp uint8

// Store operations.
const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

// ColorAttachment binds a texture as a render pass color target.
type ColorAttachment struct {
	Texture    Texture
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearColor Color
}

// DepthStencilAttachment binds a texture as the render pass depth-stencil target.
type DepthStencilAttachment struct {
	Texture        Texture
	DepthLoadOp    LoadOp
	DepthStoreOp   StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	ClearDepth     float32
	ClearStencil   uint32
}

// RenderPassInfo describes a render pass begun on a command buffer.
type RenderPassInfo struct {
	Label        string
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
	RenderArea   Rect
}

// TextureBarrier transitions a texture between usages.
type TextureBarrier struct {
	Texture  Texture
	OldUsage gputypes.TextureUsage
	NewUsage gputypes.TextureUsage
}

// Offset3D is a texel offset.
type Offset3D struct {
	X, Y, Z uint32
}

// TextureCopy is one region of a texture-to-texture copy.
type TextureCopy struct {
	SrcOffset Offset3D
	SrcLevel  uint32
	SrcLayer  uint32
	DstOffset Offset3D
	DstLevel  uint32
	DstLayer  uint32
	Width     uint32
	Height    uint32
	Layers    uint32
}

// DrawInfo describes a draw call.
type DrawInfo struct {
	VertexCount   uint32
	FirstVertex   uint32
	IndexCount    uint32
	FirstIndex    uint32
	InstanceCount uint32
	FirstInstance uint32
}
