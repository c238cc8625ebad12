// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"maps"

	"github.com/gogpu/gfx"
)

// RenderNode is a named builder.
type RenderNode interface {
	Name() string
	SetName(name string)
}

// Setter sets default parameter bindings. A binding set on a pass or queue
// applies to every draw added after it in that scope until it is set again.
type Setter interface {
	RenderNode
	SetMat4(name string, m Mat4)
	SetQuaternion(name string, q Quaternion)
	SetColor(name string, c gfx.Color)
	SetVec4(name string, v Vec4)
	SetVec2(name string, v Vec2)
	SetFloat(name string, v float32)
	SetBuffer(name string, buf gfx.Buffer)
	SetTexture(name string, tex gfx.Texture)
	SetReadWriteBuffer(name string, buf gfx.Buffer)
	SetReadWriteTexture(name string, tex gfx.Texture)
	SetSampler(name string, smp gfx.Sampler)
}

// BufferParam is a buffer binding.
type BufferParam struct {
	Buffer    gfx.Buffer
	ReadWrite bool
}

// TextureParam is a texture binding.
type TextureParam struct {
	Texture   gfx.Texture
	ReadWrite bool
}

// Bindings maps parameter names to values. Values have one of the types
// Mat4, Quaternion, gfx.Color, Vec4, Vec2, float32, BufferParam,
// TextureParam or gfx.Sampler.
type Bindings map[string]any

type renderNode struct {
	name string
}

func (n *renderNode) Name() string        { return n.name }
func (n *renderNode) SetName(name string) { n.name = name }

// setter holds the bindings of one scope. Queues chain to their pass.
type setter struct {
	renderNode
	parent *setter
	values Bindings
}

func (s *setter) set(name string, v any) {
	if s.values == nil {
		s.values = make(Bindings)
	}
	s.values[name] = v
}

// snapshot returns the bindings visible in this scope now.
func (s *setter) snapshot() Bindings {
	var out Bindings
	if s.parent != nil {
		out = s.parent.snapshot()
	}
	if len(s.values) == 0 {
		return out
	}
	if out == nil {
		return maps.Clone(s.values)
	}
	maps.Copy(out, s.values)
	return out
}

func (s *setter) SetMat4(name string, m Mat4)             { s.set(name, m) }
func (s *setter) SetQuaternion(name string, q Quaternion) { s.set(name, q) }
func (s *setter) SetColor(name string, c gfx.Color)       { s.set(name, c) }
func (s *setter) SetVec4(name string, v Vec4)             { s.set(name, v) }
func (s *setter) SetVec2(name string, v Vec2)             { s.set(name, v) }
func (s *setter) SetFloat(name string, v float32)         { s.set(name, v) }
func (s *setter) SetBuffer(name string, buf gfx.Buffer)   { s.set(name, BufferParam{Buffer: buf}) }
func (s *setter) SetTexture(name string, tex gfx.Texture) { s.set(name, TextureParam{Texture: tex}) }
func (s *setter) SetSampler(name string, smp gfx.Sampler) { s.set(name, smp) }

func (s *setter) SetReadWriteBuffer(name string, buf gfx.Buffer) {
	s.set(name, BufferParam{Buffer: buf, ReadWrite: true})
}

func (s *setter) SetReadWriteTexture(name string, tex gfx.Texture) {
	s.set(name, TextureParam{Texture: tex, ReadWrite: true})
}
