// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layout

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gogpu/gfx"
)

// LayoutID identifies a compiled descriptor set layout. The zero value
// is never assigned.
type LayoutID uint32

// Data is a compiled layout graph.
type Data struct {
	mapping  gfx.BindingMappingInfo
	layouts  []gfx.DescriptorSetLayoutInfo
	uniforms []map[string]UniformBlock
	shaders  map[string][numFrequencies]LayoutID
	stages   map[string]LayoutID
}

// Lookup returns the layout of the given shader at frequency freq.
func (d *Data) Lookup(shader string, freq UpdateFrequency) (LayoutID, bool) {
	ids, ok := d.shaders[shader]
	if !ok || freq >= numFrequencies {
		return 0, false
	}
	return ids[freq], true
}

// LookupStage returns the per-pass layout of the named render stage.
func (d *Data) LookupStage(stage string) (LayoutID, bool) {
	id, ok := d.stages[stage]
	return id, ok
}

// Layout returns the descriptor set layout description for id.
func (d *Data) Layout(id LayoutID) (gfx.DescriptorSetLayoutInfo, bool) {
	if id == 0 || int(id) > len(d.layouts) {
		return gfx.DescriptorSetLayoutInfo{}, false
	}
	return d.layouts[id-1], true
}

// UniformBlock returns the uniform block bound under name in layout id.
func (d *Data) UniformBlock(id LayoutID, name string) (UniformBlock, bool) {
	if id == 0 || int(id) > len(d.uniforms) {
		return UniformBlock{}, false
	}
	ub, ok := d.uniforms[id-1][name]
	return ub, ok
}

// SetIndex returns the descriptor set index used for freq.
func (d *Data) SetIndex(freq UpdateFrequency) uint32 {
	if int(freq) < len(d.mapping.SetIndices) {
		return d.mapping.SetIndices[freq]
	}
	return uint32(freq)
}

// Layouts returns the number of distinct layouts.
func (d *Data) Layouts() int { return len(d.layouts) }

// Shaders returns the compiled shader names, sorted.
func (d *Data) Shaders() []string {
	return slices.Sorted(maps.Keys(d.shaders))
}

// Compile validates the graph and flattens it into per-shader layouts.
// Every problem found is returned, joined.
func (b *Builder) Compile() (*Data, error) {
	b.data = nil
	if err := b.validate(); err != nil {
		return nil, err
	}

	d := &Data{
		mapping: b.mapping,
		shaders: make(map[string][numFrequencies]LayoutID),
		stages:  make(map[string]LayoutID),
	}
	seen := make(map[string]LayoutID)
	intern := func(info gfx.DescriptorSetLayoutInfo, uniforms map[string]UniformBlock) LayoutID {
		key := layoutKey(info, uniforms)
		if id, ok := seen[key]; ok {
			return id
		}
		id := LayoutID(len(d.layouts) + 1)
		info.Label = fmt.Sprintf("layout-%d", id)
		d.layouts = append(d.layouts, info)
		d.uniforms = append(d.uniforms, uniforms)
		seen[key] = id
		return id
	}

	var errs []error
	for i := range b.nodes {
		id := NodeID(i)
		n := &b.nodes[i]
		switch n.kind {
		case KindStage:
			info, uniforms, err := b.flatten(id, id, PerPass)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			d.stages[n.name] = intern(info, uniforms)
		case KindShader:
			var ids [numFrequencies]LayoutID
			for _, freq := range Frequencies() {
				info, uniforms, err := b.flatten(id, b.owner(id, freq), freq)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				ids[freq] = intern(info, uniforms)
			}
			d.shaders[n.name] = ids
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	b.data = d
	return d, nil
}

// validate checks ancestry, names and block indices.
func (b *Builder) validate() error {
	var errs []error
	names := make(map[string]NodeID)
	for i := range b.nodes {
		id := NodeID(i)
		n := &b.nodes[i]
		if err := b.check("Compile", id); err != nil {
			errs = append(errs, err)
			continue
		}
		// Shader names are global; stage and phase names are scoped to
		// their parent.
		key := n.name
		switch n.kind {
		case KindStage:
			key = fmt.Sprintf("stage/%s", n.name)
		case KindPhase:
			key = fmt.Sprintf("phase/%d/%s", n.parent, n.name)
		}
		if first, ok := names[key]; ok {
			errs = append(errs, &Error{Op: "Compile", Node: id, Name: n.name,
				Err: fmt.Errorf("%w: also node %d", ErrDuplicateName, first)})
		} else {
			names[key] = id
		}
		for _, index := range sortedIndices(n.blocks) {
			e := n.blocks[index]
			switch {
			case e.adds > 1 || e.reserves > 1:
				errs = append(errs, &Error{Op: "Compile", Node: id, Name: n.name, Index: &index, Err: ErrCollision})
			case e.capacity > 0 && e.count() > e.capacity:
				errs = append(errs, &Error{Op: "Compile", Node: id, Name: n.name, Index: &index,
					Err: fmt.Errorf("%w: %d descriptors, capacity %d", ErrCapacity, e.count(), e.capacity)})
			}
		}
	}
	return errors.Join(errs...)
}

// owner returns the node holding shader's blocks of frequency freq.
func (b *Builder) owner(shader NodeID, freq UpdateFrequency) NodeID {
	id := shader
	for k := KindShader; k > freq.kind(); k-- {
		id = b.nodes[id].parent
	}
	return id
}

// flatten builds the layout at freq from the blocks of owner. Errors are
// reported against node.
func (b *Builder) flatten(node, ownerID NodeID, freq UpdateFrequency) (gfx.DescriptorSetLayoutInfo, map[string]UniformBlock, error) {
	var info gfx.DescriptorSetLayoutInfo
	var uniforms map[string]UniformBlock
	owner := &b.nodes[ownerID]
	perType := make(map[gfx.DescriptorType]uint32)
	names := make(map[string]bool)
	binding := uint32(0)
	for _, index := range sortedIndices(owner.blocks) {
		if index.Frequency != freq {
			continue
		}
		e := owner.blocks[index]
		for _, desc := range e.descriptors {
			if names[desc.Name] {
				return info, nil, &Error{Op: "Compile", Node: node, Name: desc.Name, Index: &index, Err: ErrDuplicateName}
			}
			names[desc.Name] = true
			info.Bindings = append(info.Bindings, gfx.DescriptorSetLayoutBinding{
				Binding:    binding,
				Name:       desc.Name,
				Type:       index.Type,
				Count:      desc.count(),
				Visibility: index.Visibility,
			})
			binding += desc.count()
		}
		n := max(e.capacity, e.count())
		binding += n - e.count()
		perType[index.Type] += n
		for name, ub := range e.uniforms {
			if uniforms == nil {
				uniforms = make(map[string]UniformBlock)
			}
			uniforms[name] = ub
		}
	}
	for t, n := range perType {
		if limit := b.limit(t, freq); limit > 0 && n > limit {
			return info, nil, &Error{Op: "Compile", Node: node, Name: b.nodes[node].name,
				Err: fmt.Errorf("%w: %d %s descriptors %s, limit %d", ErrCapacity, n, t, freq, limit)}
		}
	}
	return info, uniforms, nil
}

// limit returns the binding mapping limit for descriptors of type t.
func (b *Builder) limit(t gfx.DescriptorType, freq UpdateFrequency) uint32 {
	var counts []uint32
	switch t {
	case gfx.DescriptorUniformBuffer, gfx.DescriptorDynamicUniformBuffer:
		counts = b.mapping.MaxBlockCounts
	case gfx.DescriptorStorageBuffer:
		counts = b.mapping.MaxBufferCounts
	case gfx.DescriptorSampledTexture:
		counts = b.mapping.MaxSamplerTextureCounts
	case gfx.DescriptorStorageTexture:
		counts = b.mapping.MaxImageCounts
	case gfx.DescriptorSampler:
		counts = b.mapping.MaxSamplerCounts
	case gfx.DescriptorInputAttachment:
		counts = b.mapping.MaxSubpassInputCounts
	}
	if int(freq) < len(counts) {
		return counts[freq]
	}
	return 0
}

func sortedIndices(blocks map[BlockIndex]*entry) []BlockIndex {
	return slices.SortedFunc(maps.Keys(blocks), func(a, b BlockIndex) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
}

// layoutKey identifies structurally equal layouts.
func layoutKey(info gfx.DescriptorSetLayoutInfo, uniforms map[string]UniformBlock) string {
	var sb strings.Builder
	for _, b := range info.Bindings {
		fmt.Fprintf(&sb, "%d:%s:%d:%d:%d;", b.Binding, b.Name, b.Type, b.Count, uint32(b.Visibility))
		if ub, ok := uniforms[b.Name]; ok {
			for _, m := range ub.Members {
				fmt.Fprintf(&sb, "%s:%d:%d,", m.Name, m.Size, m.Count)
			}
		}
	}
	return sb.String()
}
