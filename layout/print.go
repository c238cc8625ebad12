// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layout

import (
	"fmt"
	"strings"
)

// Print returns a human-readable dump of the graph and, once compiled,
// of its layouts. The format is for diagnostics only.
func (b *Builder) Print() string {
	children := make(map[NodeID][]NodeID)
	var roots, orphans []NodeID
	for i := range b.nodes {
		id := NodeID(i)
		n := &b.nodes[i]
		switch {
		case n.kind == KindStage:
			roots = append(roots, id)
		case int(n.parent) < len(b.nodes) && b.nodes[n.parent].kind == n.kind-1:
			children[n.parent] = append(children[n.parent], id)
		default:
			orphans = append(orphans, id)
		}
	}

	var sb strings.Builder
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n := &b.nodes[id]
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&sb, "%s%s %d %q\n", indent, n.kind, id, n.name)
		for _, index := range sortedIndices(n.blocks) {
			e := n.blocks[index]
			fmt.Fprintf(&sb, "%s  [%s]", indent, index)
			for _, d := range e.descriptors {
				fmt.Fprintf(&sb, " %s", d.Name)
				if d.count() > 1 {
					fmt.Fprintf(&sb, "[%d]", d.count())
				}
			}
			if e.capacity > 0 {
				fmt.Fprintf(&sb, " capacity=%d", e.capacity)
			}
			sb.WriteByte('\n')
		}
		for _, c := range children[id] {
			walk(c, depth+1)
		}
	}
	for _, id := range roots {
		walk(id, 0)
	}
	for _, id := range orphans {
		n := &b.nodes[id]
		fmt.Fprintf(&sb, "orphan %s %d %q (parent %d)\n", n.kind, id, n.name, n.parent)
	}

	if b.data == nil {
		return sb.String()
	}
	sb.WriteString("layouts:\n")
	for i, info := range b.data.layouts {
		fmt.Fprintf(&sb, "  %d:", i+1)
		for _, binding := range info.Bindings {
			fmt.Fprintf(&sb, " %d=%s(%s)", binding.Binding, binding.Name, binding.Type)
		}
		sb.WriteByte('\n')
	}
	for _, name := range b.data.Shaders() {
		ids := b.data.shaders[name]
		fmt.Fprintf(&sb, "  shader %q:", name)
		for _, freq := range Frequencies() {
			fmt.Fprintf(&sb, " %s=%d", freq, ids[freq])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
