// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package backend

import (
	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/wgpu"

	// Registers the HAL backends of the target platform.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// init registers the hardware backends. A backend whose HAL is not
// compiled in fails Initialize and the factory falls through.
func init() {
	for _, api := range []gfx.API{gfx.APIVulkan, gfx.APIMetal, gfx.APIDX12} {
		Register(Entry{API: api, New: hardware(api)})
	}
	// GL contexts are current on one thread only.
	for _, api := range []gfx.API{gfx.APIGLES3, gfx.APIGLES2} {
		Register(Entry{API: api, New: hardware(api), ThreadHostile: true})
	}
}

func hardware(api gfx.API) Factory {
	return func() gfx.Device { return wgpu.New(api) }
}
