// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunHeadless(t *testing.T) {
	var out bytes.Buffer
	cfg := config{
		frames:  2,
		width:   320,
		height:  240,
		models:  300,
		scale:   1,
		disable: "nvn,vulkan,metal,dx12,gles3,gles2",
	}
	if err := run(&out, cfg); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{
		"headless]",
		"passes: forward -> bloom -> present",
		"frames=2 ",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunBadPipeline(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, config{pipeline: "testdata/missing.hcl", frames: 1}); err == nil {
		t.Error("run() with a missing pipeline file succeeded")
	}
}
