// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
)

// allocation is a graph-owned texture kept between frames.
type allocation struct {
	tex       gfx.Texture
	info      gfx.TextureInfo
	residency Residency
	// state is the access state the last executed frame left it in.
	state State
}

// pool keeps graph-owned textures by resource name.
type pool struct {
	dev     gfx.Device
	entries map[string]*allocation
}

func newPool(dev gfx.Device) *pool {
	return &pool{dev: dev, entries: make(map[string]*allocation)}
}

// Len returns the number of live allocations.
func (pl *pool) Len() int { return len(pl.entries) }

// reusable reports whether a can back r for a frame that needs usage.
func (a *allocation) reusable(r *resource, usage gputypes.TextureUsage) bool {
	return a.residency == r.residency && a.info.Format == r.format &&
		a.info.Width == r.width && a.info.Height == r.height &&
		a.info.Usage&usage == usage
}

// carried returns the state r starts a frame needing usage in. A persistent
// resource that acquire will reallocate starts undefined.
func (pl *pool) carried(r *resource, usage gputypes.TextureUsage) State {
	switch r.residency {
	case External:
		return StateSampled
	case Persistent:
		if a := pl.entries[r.name]; a != nil && a.reusable(r, usage) {
			return a.state
		}
	}
	return StateUndefined
}

// acquire returns the texture of r, reusing the previous allocation when
// it is reusable for usage.
func (pl *pool) acquire(r *resource, usage gputypes.TextureUsage) (gfx.Texture, error) {
	if a := pl.entries[r.name]; a != nil {
		if a.reusable(r, usage) {
			return a.tex, nil
		}
		if err := pl.release(r.name); err != nil {
			return nil, err
		}
	}
	if usage == 0 {
		usage = gputypes.TextureUsageTextureBinding
	}
	info := gfx.TextureInfo{
		Label:  r.name,
		Format: r.format,
		Usage:  usage,
		Width:  r.width,
		Height: r.height,
	}
	tex := pl.dev.NewTexture()
	if err := tex.Initialize(info); err != nil {
		return nil, fmt.Errorf("render: allocate %q: %w", r.name, err)
	}
	pl.entries[r.name] = &allocation{tex: tex, info: info.Normalize(), residency: r.residency}
	gfx.Logger().Debug("render: allocated", "resource", r.name, "residency", r.residency.String(),
		"width", r.width, "height", r.height)
	return tex, nil
}

func (pl *pool) release(name string) error {
	a := pl.entries[name]
	if a == nil {
		return nil
	}
	delete(pl.entries, name)
	gfx.Logger().Debug("render: released", "resource", name)
	return a.tex.Destroy()
}

// sweep releases every allocation not in keep.
func (pl *pool) sweep(keep map[string]bool) error {
	var errs []error
	for name := range pl.entries {
		if !keep[name] {
			errs = append(errs, pl.release(name))
		}
	}
	return errors.Join(errs...)
}

// releaseMemoryless drops the allocations that only live for one frame.
func (pl *pool) releaseMemoryless() error {
	var errs []error
	for name, a := range pl.entries {
		if a.residency == Memoryless {
			errs = append(errs, pl.release(name))
		}
	}
	return errors.Join(errs...)
}

// persist records the states a plan leaves its allocations in.
func (pl *pool) persist(plan *Plan) {
	for name, a := range pl.entries {
		if st, ok := plan.final[name]; ok {
			a.state = st
		}
	}
}

func (pl *pool) destroy() error {
	return pl.sweep(nil)
}

// allocate binds a texture to every resource of plan. Backbuffers are bound
// by BeginFrame.
func (p *Pipeline) allocate(plan *Plan) error {
	keep := make(map[string]bool)
	var errs []error
	for _, rp := range plan.Resources {
		r := p.byName[rp.Name]
		switch {
		case r.residency == External:
			p.textures[r.name] = r.texture
		case r.residency == Backbuffer, rp.Alias != "", !rp.Used:
		default:
			tex, err := p.pool.acquire(r, rp.Usage)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			keep[r.name] = true
			p.textures[r.name] = tex
		}
	}
	for _, rp := range plan.Resources {
		if rp.Alias != "" {
			p.textures[rp.Name] = p.textures[plan.root(rp.Name)]
		}
	}
	errs = append(errs, p.pool.sweep(keep))
	return errors.Join(errs...)
}
