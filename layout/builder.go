// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layout

import (
	"github.com/gogpu/gfx"
)

type node struct {
	kind   NodeKind
	name   string
	parent NodeID
	blocks map[BlockIndex]*entry
}

// entry accumulates everything attached to one block index of a node.
type entry struct {
	descriptors []Descriptor
	uniforms    map[string]UniformBlock
	capacity    uint32
	adds        int
	reserves    int
}

func (e *entry) count() uint32 {
	return Block{Descriptors: e.descriptors}.count()
}

// Builder builds a layout graph. Node creation never fails: parents are
// recorded as given and checked when blocks are attached and at Compile.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	mapping gfx.BindingMappingInfo
	nodes   []node
	data    *Data
}

// NewBuilder returns an empty builder. mapping bounds the number of
// descriptors of each type per update frequency; zero limits are ignored.
func NewBuilder(mapping gfx.BindingMappingInfo) *Builder {
	return &Builder{mapping: mapping}
}

// Clear removes every node and the compiled data.
func (b *Builder) Clear() {
	b.nodes = b.nodes[:0]
	b.data = nil
}

func (b *Builder) add(kind NodeKind, name string, parent NodeID) NodeID {
	b.data = nil
	b.nodes = append(b.nodes, node{kind: kind, name: name, parent: parent})
	return NodeID(len(b.nodes) - 1)
}

// AddRenderStage adds a root render stage.
func (b *Builder) AddRenderStage(name string) NodeID {
	return b.add(KindStage, name, 0)
}

// AddRenderPhase adds a render phase under the stage parent.
func (b *Builder) AddRenderPhase(name string, parent NodeID) NodeID {
	return b.add(KindPhase, name, parent)
}

// AddShader adds a shader under the phase parent.
func (b *Builder) AddShader(name string, parent NodeID) NodeID {
	return b.add(KindShader, name, parent)
}

// Len returns the number of nodes.
func (b *Builder) Len() int { return len(b.nodes) }

// check verifies that id exists and that its whole ancestry does.
func (b *Builder) check(op string, id NodeID) error {
	if int(id) >= len(b.nodes) {
		return &Error{Op: op, Node: id, Err: ErrUnknownNode}
	}
	n := &b.nodes[id]
	for cur := n; cur.kind != KindStage; {
		p := cur.parent
		if int(p) >= len(b.nodes) || b.nodes[p].kind != cur.kind-1 {
			return &Error{Op: op, Node: id, Name: n.name, Err: ErrMissingParent}
		}
		cur = &b.nodes[p]
	}
	return nil
}

// attach returns the entry for index on id, creating it if needed.
func (b *Builder) attach(op string, id NodeID, index BlockIndex) (*entry, error) {
	if err := b.check(op, id); err != nil {
		return nil, err
	}
	n := &b.nodes[id]
	if index.Frequency >= numFrequencies || index.Frequency.kind() != n.kind {
		return nil, &Error{Op: op, Node: id, Name: n.name, Index: &index, Err: ErrWrongKind}
	}
	if n.blocks == nil {
		n.blocks = make(map[BlockIndex]*entry)
	}
	e := n.blocks[index]
	if e == nil {
		e = &entry{}
		n.blocks[index] = e
	}
	b.data = nil
	return e, nil
}

// AddDescriptorBlock attaches block to node id. The node and all of its
// ancestors must exist, and the index frequency must belong to the node's
// kind. Adding a second block at the same index is reported by Compile.
func (b *Builder) AddDescriptorBlock(id NodeID, index BlockIndex, block Block) error {
	e, err := b.attach("AddDescriptorBlock", id, index)
	if err != nil {
		return err
	}
	e.adds++
	e.descriptors = append(e.descriptors, block.Descriptors...)
	e.capacity = max(e.capacity, block.Capacity)
	return nil
}

// ReserveDescriptorBlock reserves slots for block at index without
// declaring its descriptors, so they can be added later without changing
// the layout.
func (b *Builder) ReserveDescriptorBlock(id NodeID, index BlockIndex, block Block) error {
	e, err := b.attach("ReserveDescriptorBlock", id, index)
	if err != nil {
		return err
	}
	e.reserves++
	e.capacity = max(e.capacity, block.Capacity, block.count())
	return nil
}

// AddUniformBlock declares a uniform buffer named name at index.
func (b *Builder) AddUniformBlock(id NodeID, index BlockIndex, name string, ub UniformBlock) error {
	if index.Type != gfx.DescriptorUniformBuffer && index.Type != gfx.DescriptorDynamicUniformBuffer {
		return &Error{Op: "AddUniformBlock", Node: id, Name: name, Index: &index, Err: ErrWrongKind}
	}
	e, err := b.attach("AddUniformBlock", id, index)
	if err != nil {
		return err
	}
	if _, ok := e.uniforms[name]; ok {
		return &Error{Op: "AddUniformBlock", Node: id, Name: name, Index: &index, Err: ErrDuplicateName}
	}
	if e.uniforms == nil {
		e.uniforms = make(map[string]UniformBlock)
	}
	e.uniforms[name] = ub
	e.descriptors = append(e.descriptors, Descriptor{Name: name, Count: 1})
	return nil
}

// Data returns the result of the last successful Compile.
func (b *Builder) Data() (*Data, error) {
	if b.data == nil {
		return nil, ErrNotCompiled
	}
	return b.data, nil
}
