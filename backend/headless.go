// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/wgpu"
)

// init registers the headless backend on package import.
// It is available in every build, including nogpu builds.
func init() {
	Register(Entry{
		API: gfx.APIHeadless,
		New: func() gfx.Device { return wgpu.NewHeadless() },
	})
}
