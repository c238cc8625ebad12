// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MacroRecord maps shader macro names to string, int32 or bool values.
type MacroRecord map[string]any

// Macros returns a copy of the pipeline's macros.
func (p *Pipeline) Macros() MacroRecord { return maps.Clone(p.macros) }

func (p *Pipeline) setMacro(name string, v any) {
	if old, ok := p.macros[name]; ok && old == v {
		return
	}
	p.macros[name] = v
	p.OnGlobalPipelineStateChanged()
}

func (p *Pipeline) SetMacroString(name, value string)    { p.setMacro(name, value) }
func (p *Pipeline) SetMacroInt(name string, value int32) { p.setMacro(name, value) }
func (p *Pipeline) SetMacroBool(name string, value bool) { p.setMacro(name, value) }

// MacroString returns the string macro name, or "".
func (p *Pipeline) MacroString(name string) string {
	s, _ := p.macros[name].(string)
	return s
}

// MacroInt returns the int macro name, or 0.
func (p *Pipeline) MacroInt(name string) int32 {
	i, _ := p.macros[name].(int32)
	return i
}

// MacroBool returns the bool macro name, or false.
func (p *Pipeline) MacroBool(name string) bool {
	b, _ := p.macros[name].(bool)
	return b
}

// ConstantMacros renders the macros as sorted #define lines. Booleans are
// written as 1 or 0.
func (p *Pipeline) ConstantMacros() string {
	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(p.macros)) {
		switch v := p.macros[name].(type) {
		case bool:
			if v {
				fmt.Fprintf(&sb, "#define %s 1\n", name)
			} else {
				fmt.Fprintf(&sb, "#define %s 0\n", name)
			}
		case string:
			fmt.Fprintf(&sb, "#define %s %s\n", name, v)
		default:
			fmt.Fprintf(&sb, "#define %s %v\n", name, v)
		}
	}
	return sb.String()
}
