// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"strings"

	"github.com/gogpu/gfx"
)

// ResourceID identifies a virtual resource within one setup.
type ResourceID uint32

// Residency governs who owns a resource's allocation and how long it lives.
type Residency uint8

// Residencies. The zero value is Managed.
const (
	// Managed resources are allocated by the graph and reused across
	// frames while their description is unchanged.
	Managed Residency = iota
	// Memoryless resources are allocated by the graph for one frame.
	Memoryless
	// Persistent resources are allocated by the graph and keep their
	// contents and state across frames.
	Persistent
	// External resources are owned by the caller.
	External
	// Backbuffer resources are the color images of a render window.
	Backbuffer
)

var residencyNames = [...]string{"managed", "memoryless", "persistent", "external", "backbuffer"}

func (r Residency) String() string {
	if int(r) < len(residencyNames) {
		return residencyNames[r]
	}
	return fmt.Sprintf("residency(%d)", uint8(r))
}

// ParseResidency parses a residency name as returned by String.
func ParseResidency(s string) (Residency, error) {
	for i, name := range residencyNames {
		if name == s {
			return Residency(i), nil
		}
	}
	return Managed, fmt.Errorf("render: unknown residency %q", s)
}

// ResourceKind is the role of a virtual resource.
type ResourceKind uint8

// Resource kinds.
const (
	ResourceRenderTarget ResourceKind = iota
	ResourceDepthStencil
	ResourceTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceRenderTarget:
		return "render-target"
	case ResourceDepthStencil:
		return "depth-stencil"
	case ResourceTexture:
		return "texture"
	}
	return fmt.Sprintf("resource(%d)", uint8(k))
}

// Access is how a pass uses a resource through a view.
type Access uint8

// Accesses.
const (
	AccessRead Access = iota + 1
	AccessWrite
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read-write"
	}
	return fmt.Sprintf("access(%d)", uint8(a))
}

func (a Access) writes() bool { return a == AccessWrite || a == AccessReadWrite }

// AttachmentType selects the attachment point of a raster view.
type AttachmentType uint8

// Attachment types.
const (
	AttachmentRenderTarget AttachmentType = iota
	AttachmentDepthStencil
)

// RasterView binds a resource as an attachment of a raster pass.
type RasterView struct {
	Slot         string
	Access       Access
	Attachment   AttachmentType
	LoadOp       gfx.LoadOp
	StoreOp      gfx.StoreOp
	ClearColor   gfx.Color
	ClearDepth   float32
	ClearStencil uint32
}

// ComputeView binds a resource as a shader-visible texture. Read views are
// sampled; writing views are storage images.
type ComputeView struct {
	Slot   string
	Access Access
}

// QueueHint classifies the draws of a raster queue.
type QueueHint uint8

// Queue hints.
const (
	QueueNone QueueHint = iota
	QueueOpaque
	QueueTransparent
)

func (h QueueHint) String() string {
	switch h {
	case QueueNone:
		return "none"
	case QueueOpaque:
		return "opaque"
	case QueueTransparent:
		return "transparent"
	}
	return fmt.Sprintf("queue(%d)", uint8(h))
}

// SceneFlags selects the scene content a draw renders.
type SceneFlags uint32

// Scene flags.
const (
	SceneNone               SceneFlags = 0
	SceneOpaqueObject       SceneFlags = 1 << 0
	SceneCutoutObject       SceneFlags = 1 << 1
	SceneTransparentObject  SceneFlags = 1 << 2
	SceneShadowCaster       SceneFlags = 1 << 3
	SceneUI                 SceneFlags = 1 << 4
	SceneDefaultLighting    SceneFlags = 1 << 5
	SceneVolumetricLighting SceneFlags = 1 << 6
	SceneClusteredLighting  SceneFlags = 1 << 7
	ScenePlanarShadow       SceneFlags = 1 << 8
	SceneGeometry           SceneFlags = 1 << 9
	SceneProfiler           SceneFlags = 1 << 10

	SceneAllObjects = SceneOpaqueObject | SceneCutoutObject | SceneTransparentObject
)

var sceneFlagNames = []string{
	"opaque", "cutout", "transparent", "shadow-caster", "ui", "default-lighting",
	"volumetric-lighting", "clustered-lighting", "planar-shadow", "geometry", "profiler",
}

func (f SceneFlags) String() string {
	if f == SceneNone {
		return "none"
	}
	var parts []string
	for i, name := range sceneFlagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if rest := f &^ (1<<len(sceneFlagNames) - 1); rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseSceneFlags parses a "|"-separated list of flag names.
func ParseSceneFlags(s string) (SceneFlags, error) {
	var f SceneFlags
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		switch part {
		case "", "none":
			continue
		case "all":
			f |= SceneAllObjects
			continue
		}
		i := indexOf(sceneFlagNames, part)
		if i < 0 {
			return 0, fmt.Errorf("render: unknown scene flag %q", part)
		}
		f |= 1 << i
	}
	return f, nil
}

func indexOf(names []string, s string) int {
	for i, n := range names {
		if n == s {
			return i
		}
	}
	return -1
}

// MovePair moves the contents of Source into Target. The move aliases the
// two resources; Source must not be used afterwards in the frame.
type MovePair struct {
	Source                string
	Target                string
	MipLevels             uint32
	NumSlices             uint32
	TargetMostDetailedMip uint32
	TargetFirstSlice      uint32
	TargetPlaneSlice      uint32
}

// CopyPair copies a subresource range of Source into Target.
type CopyPair struct {
	Source                string
	Target                string
	MipLevels             uint32
	NumSlices             uint32
	SourceMostDetailedMip uint32
	SourceFirstSlice      uint32
	SourcePlaneSlice      uint32
	TargetMostDetailedMip uint32
	TargetFirstSlice      uint32
	TargetPlaneSlice      uint32
}

// Vec2 is a 2-component vector.
type Vec2 [2]float32

// Vec4 is a 4-component vector.
type Vec4 [4]float32

// Quaternion is a rotation stored as x, y, z, w.
type Quaternion [4]float32

// Mat4 is a column-major 4x4 matrix.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// RenderWindow is a presentation target backed by a swapchain.
type RenderWindow struct {
	Name      string
	Swapchain gfx.Swapchain
}

// Model is one drawable of a scene.
type Model struct {
	Name  string
	Flags SceneFlags
	// Layer is matched against Camera.Visibility.
	Layer uint32
	Draw  gfx.DrawInfo
}

// Scene is the set of models a camera renders.
type Scene struct {
	Name   string
	Models []Model
}

// Camera views a scene into a window.
type Camera struct {
	Name   string
	Width  uint32
	Height uint32
	// Visibility is a layer mask; zero sees every layer.
	Visibility uint32
	Window     *RenderWindow
	Scene      *Scene
}

// Viewport returns the full-size viewport of the camera.
func (c *Camera) Viewport() gfx.Viewport {
	return gfx.Viewport{Width: c.Width, Height: c.Height, MaxDepth: 1}
}

// LightInfo selects the light a scene draw is lit by.
type LightInfo struct {
	Light string
	Level uint32
}

// Material names the shader a quad is drawn with.
type Material struct {
	Name   string
	Shader string
	Passes uint32
}
