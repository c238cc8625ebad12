// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layout builds the shader binding hierarchy.
//
// A layout graph is a tree of render stages, render phases and shaders.
// Descriptor blocks and uniform blocks hang off its nodes, keyed by a
// BlockIndex whose Frequency says how often the bound resources change:
//
//	stage   PerPass
//	phase   PerPhase
//	shader  PerBatch, PerInstance
//
// Compile flattens the blocks visible to each shader into one descriptor
// set layout per frequency and identifies each distinct layout with a
// LayoutID.
//
//	b := layout.NewBuilder(gfx.DefaultBindingMapping())
//	stage := b.AddRenderStage("forward")
//	phase := b.AddRenderPhase("opaque", stage)
//	shader := b.AddShader("standard", phase)
//	err := b.AddDescriptorBlock(shader, layout.BlockIndex{
//		Frequency:  layout.PerBatch,
//		Type:       gfx.DescriptorSampledTexture,
//		Visibility: gputypes.ShaderStageFragment,
//	}, layout.Block{Descriptors: []layout.Descriptor{{Name: "albedo", Count: 1}}})
package layout

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
)

// NodeID identifies a layout graph node.
type NodeID uint32

// NodeKind is the level of a node in the layout tree.
type NodeKind uint8

// Node kinds.
const (
	KindStage NodeKind = iota
	KindPhase
	KindShader
)

func (k NodeKind) String() string {
	switch k {
	case KindStage:
		return "stage"
	case KindPhase:
		return "phase"
	case KindShader:
		return "shader"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// UpdateFrequency is the rate at which the resources of a block change.
// Its value is the index into gfx.BindingMappingInfo.SetIndices.
type UpdateFrequency uint8

// Update frequencies, from least to most frequent.
const (
	PerPass UpdateFrequency = iota
	PerPhase
	PerBatch
	PerInstance

	numFrequencies
)

var frequencyNames = [...]string{"per-pass", "per-phase", "per-batch", "per-instance"}

func (f UpdateFrequency) String() string {
	if f < numFrequencies {
		return frequencyNames[f]
	}
	return fmt.Sprintf("frequency(%d)", uint8(f))
}

// Frequencies returns every update frequency in set order.
func Frequencies() []UpdateFrequency {
	return []UpdateFrequency{PerPass, PerPhase, PerBatch, PerInstance}
}

// kind returns the node kind that owns blocks of frequency f.
func (f UpdateFrequency) kind() NodeKind {
	switch f {
	case PerPass:
		return KindStage
	case PerPhase:
		return KindPhase
	}
	return KindShader
}

// BlockIndex keys a block within a node.
type BlockIndex struct {
	Frequency  UpdateFrequency
	Type       gfx.DescriptorType
	Visibility gputypes.ShaderStage
}

func (i BlockIndex) String() string {
	return fmt.Sprintf("%s/%s/%#x", i.Frequency, i.Type, uint32(i.Visibility))
}

func (i BlockIndex) less(j BlockIndex) bool {
	if i.Frequency != j.Frequency {
		return i.Frequency < j.Frequency
	}
	if i.Type != j.Type {
		return i.Type < j.Type
	}
	return i.Visibility < j.Visibility
}

// Descriptor is one named binding in a block. Count is the array length;
// zero means 1.
type Descriptor struct {
	Name  string
	Count uint32
}

func (d Descriptor) count() uint32 { return max(d.Count, 1) }

// Block is a descriptor block. Capacity reserves slots beyond the
// declared descriptors; zero means exactly the declared count.
type Block struct {
	Descriptors []Descriptor
	Capacity    uint32
}

func (b Block) count() uint32 {
	var n uint32
	for _, d := range b.Descriptors {
		n += d.count()
	}
	return n
}

// UniformMember is one member of a uniform block.
type UniformMember struct {
	Name  string
	Size  uint32
	Count uint32
}

// UniformBlock describes the members of a uniform buffer binding.
type UniformBlock struct {
	Members []UniformMember
}

// Size returns the byte size of the block.
func (u UniformBlock) Size() uint32 {
	var n uint32
	for _, m := range u.Members {
		n += m.Size * max(m.Count, 1)
	}
	return n
}

// Layout graph errors.
var (
	ErrUnknownNode   = errors.New("layout: unknown node")
	ErrMissingParent = errors.New("layout: missing parent")
	ErrWrongKind     = errors.New("layout: wrong node kind")
	ErrCollision     = errors.New("layout: block index collision")
	ErrCapacity      = errors.New("layout: block capacity exceeded")
	ErrDuplicateName = errors.New("layout: duplicate name")
	ErrNotCompiled   = errors.New("layout: graph not compiled")
)

// Error reports a failure on a node of the graph.
type Error struct {
	Op    string
	Node  NodeID
	Name  string
	Index *BlockIndex
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("layout: %s on node %d", e.Op, e.Node)
	if e.Name != "" {
		msg += fmt.Sprintf(" (%q)", e.Name)
	}
	if e.Index != nil {
		msg += " at " + e.Index.String()
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
