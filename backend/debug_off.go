// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !gfxdebug

package backend

// debugBuild enables the validator under ValidationAuto.
const debugBuild = false
