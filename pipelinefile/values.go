// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipelinefile

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/render"
	"github.com/gogpu/gputypes"
)

var functions = map[string]function.Function{
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
	"floor": stdlib.FloorFunc,
	"ceil":  stdlib.CeilFunc,
}

var formats = map[string]gputypes.TextureFormat{
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"depth24plus-stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

func parseFormat(s string) (gputypes.TextureFormat, error) {
	if f, ok := formats[s]; ok {
		return f, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("unknown format %q", s)
}

func parseAccess(s string) (render.Access, error) {
	switch s {
	case "":
		return 0, nil
	case "read":
		return render.AccessRead, nil
	case "write":
		return render.AccessWrite, nil
	case "read_write":
		return render.AccessReadWrite, nil
	}
	return 0, fmt.Errorf("unknown access %q", s)
}

func parseLoad(s string) (gfx.LoadOp, error) {
	switch s {
	case "", "load":
		return gfx.LoadOpLoad, nil
	case "clear":
		return gfx.LoadOpClear, nil
	case "discard":
		return gfx.LoadOpDiscard, nil
	}
	return 0, fmt.Errorf("unknown load op %q", s)
}

func parseStore(s string) (gfx.StoreOp, error) {
	switch s {
	case "", "store":
		return gfx.StoreOpStore, nil
	case "discard":
		return gfx.StoreOpDiscard, nil
	}
	return 0, fmt.Errorf("unknown store op %q", s)
}

func parseAttachment(s string) (render.AttachmentType, error) {
	switch s {
	case "", "color":
		return render.AttachmentRenderTarget, nil
	case "depth_stencil":
		return render.AttachmentDepthStencil, nil
	}
	return 0, fmt.Errorf("unknown attachment %q", s)
}

func parseHint(s string) (render.QueueHint, error) {
	switch s {
	case "none":
		return render.QueueNone, nil
	case "opaque":
		return render.QueueOpaque, nil
	case "transparent":
		return render.QueueTransparent, nil
	}
	return 0, fmt.Errorf("unknown queue hint %q", s)
}

func color(v []float64) (gfx.Color, error) {
	switch len(v) {
	case 0:
		return gfx.Color{}, nil
	case 3:
		return gfx.Color{R: float32(v[0]), G: float32(v[1]), B: float32(v[2]), A: 1}, nil
	case 4:
		return gfx.Color{R: float32(v[0]), G: float32(v[1]), B: float32(v[2]), A: float32(v[3])}, nil
	}
	return gfx.Color{}, fmt.Errorf("color needs 3 or 4 components, got %d", len(v))
}

func viewport(v []float64) (gfx.Viewport, error) {
	if len(v) != 4 {
		return gfx.Viewport{}, fmt.Errorf("viewport needs [left, top, width, height], got %d values", len(v))
	}
	return gfx.Viewport{
		Left: int32(v[0]), Top: int32(v[1]),
		Width: uint32(v[2]), Height: uint32(v[3]),
		MaxDepth: 1,
	}, nil
}

// setParams sets every entry of an object or map value on s. Numbers become
// floats; lists of 2, 4 and 16 numbers become Vec2, Vec4 and Mat4.
func setParams(s render.Setter, v cty.Value) error {
	if v.IsNull() {
		return nil
	}
	if !v.IsWhollyKnown() {
		return fmt.Errorf("params are not known")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return fmt.Errorf("params must be an object, got %s", ty.FriendlyName())
	}
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		name := k.AsString()
		if val.Type() == cty.Number {
			f, _ := val.AsBigFloat().Float32()
			s.SetFloat(name, f)
			continue
		}
		fs, err := floats(val)
		if err != nil {
			return fmt.Errorf("param %q: %w", name, err)
		}
		switch len(fs) {
		case 2:
			s.SetVec2(name, render.Vec2(fs))
		case 4:
			s.SetVec4(name, render.Vec4(fs))
		case 16:
			s.SetMat4(name, render.Mat4(fs))
		default:
			return fmt.Errorf("param %q: %d components", name, len(fs))
		}
	}
	return nil
}

func floats(v cty.Value) ([]float32, error) {
	ty := v.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("want a number or a list of numbers, got %s", ty.FriendlyName())
	}
	var out []float32
	for it := v.ElementIterator(); it.Next(); {
		_, e := it.Element()
		if e.IsNull() || e.Type() != cty.Number {
			return nil, fmt.Errorf("want numbers, got %s", e.Type().FriendlyName())
		}
		f, _ := e.AsBigFloat().Float32()
		out = append(out, f)
	}
	return out, nil
}
