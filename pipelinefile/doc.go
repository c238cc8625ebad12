// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipelinefile loads render pipelines described in HCL.
//
// A pipeline file declares an optional device block, materials, resources
// and passes. Passes are declared in file order, so the order of pass
// blocks is the tie-break order of the compiled graph.
//
//	device {
//	  preference = ["vulkan", "gles3"]
//	  validation = "on"
//	}
//
//	material "tonemap" {
//	  shader = "tonemap"
//	}
//
//	resource "render_target" "hdr" {
//	  format = "rgba8unorm"
//	  width  = screen.width
//	  height = screen.height
//	}
//
//	resource "backbuffer" "screen" {
//	  format = "bgra8unorm"
//	  window = "main"
//	}
//
//	pass "raster" "forward" {
//	  view "raster" "hdr" {
//	    load        = "clear"
//	    clear_color = [0, 0, 0, 1]
//	  }
//	  queue "opaque" {
//	    command "scene" {
//	      camera = camera.name
//	      flags  = "opaque|cutout"
//	    }
//	  }
//	}
//
//	pass "raster" "present" {
//	  view "raster" "screen" {}
//	  view "compute" "hdr" {
//	    slot = "src"
//	  }
//	  queue "none" {
//	    command "quad" {
//	      material = "tonemap"
//	      params   = { exposure = 1.5 }
//	    }
//	  }
//	}
//
// Expressions are evaluated every frame with these variables:
//
//   - screen.width, screen.height: the screen size scaled by the pipeline's
//     shading scale
//   - camera.name, camera.width, camera.height: the first camera of the frame
//   - cameras: the names of every camera of the frame
//
// and the functions min, max, floor and ceil.
package pipelinefile
