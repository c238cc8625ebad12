// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package validator

import (
	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/tracker"
	"github.com/gogpu/gputypes"
)

// SurfaceState is the metadata a validator Swapchain caches from the
// wrapped swapchain.
type SurfaceState struct {
	ColorFormat        gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	Width              uint32
	Height             uint32
	Transform          gfx.SurfaceTransform
	Generation         uint32
}

// Swapchain validates calls on a swapchain. Its color and depth-stencil
// images are wrapped as borrowed textures and tracked.
type Swapchain struct {
	object[gfx.Swapchain]

	color *Texture
	depth *Texture
	state SurfaceState
}

func (s *Swapchain) Initialize(info gfx.SwapchainInfo) error {
	const op = "Swapchain.Initialize"
	if info.Width == 0 || info.Height == 0 {
		return s.violation(op, gfx.ErrInvalidArgument)
	}
	return s.initialize(op, func() error {
		if err := s.inner.Initialize(info); err != nil {
			return err
		}
		s.refresh()
		return nil
	})
}

// refresh re-reads the images and metadata of the wrapped swapchain.
func (s *Swapchain) refresh() {
	s.color = s.borrow(s.color, s.inner.ColorTexture())
	s.depth = s.borrow(s.depth, s.inner.DepthStencilTexture())
	s.state = SurfaceState{
		Width:      s.inner.Width(),
		Height:     s.inner.Height(),
		Transform:  s.inner.Transform(),
		Generation: s.inner.Generation(),
	}
	if s.color != nil {
		s.state.ColorFormat = s.color.inner.Info().Format
	}
	if s.depth != nil {
		s.state.DepthStencilFormat = s.depth.inner.Info().Format
	}
}

// borrow wraps inner as a swapchain-owned texture, reusing the current
// wrapper while the wrapped image is unchanged.
func (s *Swapchain) borrow(current *Texture, inner gfx.Texture) *Texture {
	if current != nil && current.inner == inner {
		return current
	}
	if current != nil {
		tracker.Textures.Erase(current.id)
		current.mu.Lock()
		current.destroyed = true
		current.mu.Unlock()
	}
	if inner == nil {
		return nil
	}
	t := &Texture{object: newObject(s.dev, inner)}
	t.initialized = true
	t.borrowed = true
	tracker.Textures.Push(t)
	return t
}

// State returns the cached surface metadata.
func (s *Swapchain) State() SurfaceState { return s.state }

func (s *Swapchain) ColorTexture() gfx.Texture {
	if s.color == nil {
		return nil
	}
	return s.color
}

func (s *Swapchain) DepthStencilTexture() gfx.Texture {
	if s.depth == nil {
		return nil
	}
	return s.depth
}

func (s *Swapchain) Width() uint32                   { return s.state.Width }
func (s *Swapchain) Height() uint32                  { return s.state.Height }
func (s *Swapchain) Transform() gfx.SurfaceTransform { return s.state.Transform }
func (s *Swapchain) Generation() uint32              { return s.state.Generation }

func (s *Swapchain) Resize(width, height uint32, transform gfx.SurfaceTransform) error {
	const op = "Swapchain.Resize"
	if err := s.usable(op); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return s.violation(op, gfx.ErrInvalidArgument)
	}
	if err := s.inner.Resize(width, height, transform); err != nil {
		return err
	}
	s.refresh()
	return nil
}

func (s *Swapchain) CreateSurface(windowHandle any) error {
	if err := s.usable("Swapchain.CreateSurface"); err != nil {
		return err
	}
	if err := s.inner.CreateSurface(windowHandle); err != nil {
		return err
	}
	s.refresh()
	return nil
}

func (s *Swapchain) DestroySurface() error {
	if err := s.usable("Swapchain.DestroySurface"); err != nil {
		return err
	}
	if err := s.inner.DestroySurface(); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Destroy releases the swapchain together with its borrowed images.
func (s *Swapchain) Destroy() error {
	err := s.destroy(tracker.Swapchains.Erase)
	if err != nil {
		return err
	}
	for _, t := range []*Texture{s.color, s.depth} {
		if t == nil {
			continue
		}
		tracker.Textures.Erase(t.id)
		t.mu.Lock()
		t.destroyed = true
		t.mu.Unlock()
	}
	return nil
}
