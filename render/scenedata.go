// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/gfx"

// AmbientInfo is the hemisphere ambient light.
type AmbientInfo struct {
	SkyColor     gfx.Color
	GroundAlbedo gfx.Color
	SkyIllum     float32
}

// SkyboxInfo configures the skybox.
type SkyboxInfo struct {
	Enabled bool
	UseIBL  bool
	UseHDR  bool
	Envmap  string
}

// ShadowType selects the shadow technique.
type ShadowType uint8

// Shadow types.
const (
	ShadowPlanar ShadowType = iota
	ShadowMap
)

// ShadowsInfo configures scene shadows.
type ShadowsInfo struct {
	Enabled     bool
	Type        ShadowType
	Color       gfx.Color
	Normal      Vec4
	Distance    float32
	MapSize     Vec2
	MaxReceived uint32
}

// FogType selects the fog falloff.
type FogType uint8

// Fog types.
const (
	FogLinear FogType = iota
	FogExp
	FogExpSquared
	FogLayered
)

// FogInfo configures scene fog.
type FogInfo struct {
	Enabled bool
	Type    FogType
	Color   gfx.Color
	Density float32
	Start   float32
	End     float32
}

// OctreeInfo configures the scene culling octree.
type OctreeInfo struct {
	Enabled bool
	MinPos  Vec4
	MaxPos  Vec4
	Depth   uint32
}

// BakeInfo configures baked global illumination.
type BakeInfo struct {
	Enabled       bool
	GIScale       float32
	GISamples     uint32
	Bounces       uint32
	ReduceRinging float32
}

// PipelineSceneData holds the scene-wide settings a pipeline renders with.
type PipelineSceneData struct {
	ambient AmbientInfo
	skybox  SkyboxInfo
	shadows ShadowsInfo
	fog     FogInfo
	octree  OctreeInfo
	bake    BakeInfo
}

// NewPipelineSceneData returns scene data with default settings.
func NewPipelineSceneData() *PipelineSceneData {
	return &PipelineSceneData{
		ambient: AmbientInfo{
			SkyColor:     gfx.Color{R: 0.2, G: 0.5, B: 0.8, A: 1},
			GroundAlbedo: gfx.Color{R: 0.2, G: 0.2, B: 0.2, A: 1},
			SkyIllum:     20000,
		},
		shadows: ShadowsInfo{
			Color:       gfx.Color{A: 0.3},
			Normal:      Vec4{0, 1, 0, 0},
			Distance:    0,
			MapSize:     Vec2{1024, 1024},
			MaxReceived: 4,
		},
		fog: FogInfo{
			Color:   gfx.Color{R: 200. / 255, G: 200. / 255, B: 200. / 255, A: 1},
			Density: 0.3,
			Start:   0.5,
			End:     300,
		},
		octree: OctreeInfo{
			MinPos: Vec4{-1024, -1024, -1024, 0},
			MaxPos: Vec4{1024, 1024, 1024, 0},
			Depth:  8,
		},
		bake: BakeInfo{GIScale: 1, GISamples: 1024, Bounces: 2, ReduceRinging: 0},
	}
}

func (d *PipelineSceneData) Ambient() AmbientInfo        { return d.ambient }
func (d *PipelineSceneData) Skybox() SkyboxInfo          { return d.skybox }
func (d *PipelineSceneData) Shadows() ShadowsInfo        { return d.shadows }
func (d *PipelineSceneData) Fog() FogInfo                { return d.fog }
func (d *PipelineSceneData) Octree() OctreeInfo          { return d.octree }
func (d *PipelineSceneData) Bake() BakeInfo { return d.bake }
func (d *PipelineSceneData) HDR() bool                   { return d.skybox.Enabled && d.skybox.UseHDR }

// SceneGlobals is the set of scene settings a scene carries. Nil entries
// leave the pipeline setting unchanged.
type SceneGlobals struct {
	Ambient *AmbientInfo
	Skybox  *SkyboxInfo
	Shadows *ShadowsInfo
	Fog     *FogInfo
	Octree  *OctreeInfo
	Bake    *BakeInfo
}

// Activate copies the settings into the scene data of p, updates the
// macros derived from them and notifies p of the change.
func (g *SceneGlobals) Activate(p *Pipeline) {
	d := p.sceneData
	if g.Ambient != nil {
		d.ambient = *g.Ambient
	}
	if g.Skybox != nil {
		d.skybox = *g.Skybox
	}
	if g.Shadows != nil {
		d.shadows = *g.Shadows
	}
	if g.Fog != nil {
		d.fog = *g.Fog
	}
	if g.Octree != nil {
		d.octree = *g.Octree
	}
	if g.Bake != nil {
		d.bake = *g.Bake
	}

	p.SetMacroBool("GFX_USE_HDR", d.HDR())
	p.SetMacroBool("GFX_USE_IBL", d.skybox.Enabled && d.skybox.UseIBL)
	p.SetMacroBool("GFX_RECEIVE_SHADOW", d.shadows.Enabled)
	p.SetMacroInt("GFX_SHADOW_TYPE", shadowMacro(d.shadows))
	p.SetMacroInt("GFX_USE_FOG", fogMacro(d.fog))
	p.OnGlobalPipelineStateChanged()
}

// shadowMacro is 0 without shadows, 1 for planar and 2 for shadow maps.
func shadowMacro(s ShadowsInfo) int32 {
	if !s.Enabled {
		return 0
	}
	return int32(s.Type) + 1
}

// fogMacro is 4 without fog, otherwise the fog type.
func fogMacro(f FogInfo) int32 {
	if !f.Enabled {
		return 4
	}
	return int32(f.Type)
}
