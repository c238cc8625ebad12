// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
)

// Default swapchain formats.
const (
	DefaultColorFormat        = gputypes.TextureFormatBGRA8Unorm
	DefaultDepthStencilFormat = gputypes.TextureFormatDepth24PlusStencil8
)

// Swapchain is an offscreen swapchain: a color and a depth-stencil texture
// recreated whenever the surface changes.
type Swapchain struct {
	resource
	info       gfx.SwapchainInfo
	color      *Texture
	depth      *Texture
	generation uint32
}

func (s *Swapchain) Initialize(info gfx.SwapchainInfo) error {
	if info.ColorFormat == gputypes.TextureFormatUndefined {
		info.ColorFormat = DefaultColorFormat
	}
	if info.DepthStencilFormat == gputypes.TextureFormatUndefined {
		info.DepthStencilFormat = DefaultDepthStencilFormat
	}
	s.info = info
	s.color = s.dev.NewTexture().(*Texture)
	s.depth = s.dev.NewTexture().(*Texture)
	return s.createImages()
}

func (s *Swapchain) createImages() error {
	label := fmt.Sprintf("swapchain%d", s.id)
	err := s.color.Initialize(gfx.TextureInfo{
		Label:  label + "_color",
		Format: s.info.ColorFormat,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
		Width:  s.info.Width,
		Height: s.info.Height,
	})
	if err != nil {
		return err
	}
	err = s.depth.Initialize(gfx.TextureInfo{
		Label:  label + "_depth_stencil",
		Format: s.info.DepthStencilFormat,
		Usage:  gputypes.TextureUsageRenderAttachment,
		Width:  s.info.Width,
		Height: s.info.Height,
	})
	if err != nil {
		_ = s.color.Destroy()
		return err
	}
	s.generation++
	return nil
}

func (s *Swapchain) destroyImages() {
	if s.color != nil {
		_ = s.color.Destroy()
	}
	if s.depth != nil {
		_ = s.depth.Destroy()
	}
}

func (s *Swapchain) ColorTexture() gfx.Texture        { return s.color }
func (s *Swapchain) DepthStencilTexture() gfx.Texture { return s.depth }
func (s *Swapchain) Width() uint32                    { return s.info.Width }
func (s *Swapchain) Height() uint32                   { return s.info.Height }
func (s *Swapchain) Transform() gfx.SurfaceTransform  { return s.info.Transform }
func (s *Swapchain) Generation() uint32               { return s.generation }

// Resize recreates both images. Rotated transforms keep the requested
// extent; pre-rotation is applied by the presenter.
func (s *Swapchain) Resize(width, height uint32, transform gfx.SurfaceTransform) error {
	s.destroyImages()
	s.info.Width, s.info.Height, s.info.Transform = width, height, transform
	return s.createImages()
}

// CreateSurface attaches a new window handle and recreates the images.
func (s *Swapchain) CreateSurface(windowHandle any) error {
	s.destroyImages()
	s.info.WindowHandle = windowHandle
	return s.createImages()
}

// DestroySurface releases the images. The texture objects stay valid
// handles until the next CreateSurface.
func (s *Swapchain) DestroySurface() error {
	s.destroyImages()
	s.info.WindowHandle = nil
	return nil
}

func (s *Swapchain) Destroy() error {
	s.destroyImages()
	s.color, s.depth = nil, nil
	return nil
}
