// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import "fmt"

// ValidationMode selects whether Create wraps devices in the validator.
type ValidationMode uint8

// Validation modes.
const (
	// ValidationAuto validates in builds tagged gfxdebug.
	ValidationAuto ValidationMode = iota
	// ValidationForceOn always validates.
	ValidationForceOn
	// ValidationForceOff never validates.
	ValidationForceOff
)

func (m ValidationMode) String() string {
	switch m {
	case ValidationAuto:
		return "auto"
	case ValidationForceOn:
		return "on"
	case ValidationForceOff:
		return "off"
	}
	return fmt.Sprintf("validation(%d)", uint8(m))
}

// ParseValidationMode parses "auto", "on" or "off".
func ParseValidationMode(s string) (ValidationMode, error) {
	switch s {
	case "", "auto":
		return ValidationAuto, nil
	case "on":
		return ValidationForceOn, nil
	case "off":
		return ValidationForceOff, nil
	}
	return ValidationAuto, fmt.Errorf("backend: unknown validation mode %q", s)
}

// Policy controls how Create decorates a raw device.
type Policy struct {
	// DetachDeviceThread wraps devices in the dispatch agent so device
	// calls run on a dedicated submission goroutine. Thread-hostile
	// backends are never detached.
	DetachDeviceThread bool

	// Validation selects the validator policy.
	Validation ValidationMode

	// XR disables detachment: XR runtimes drive submission from their own
	// frame loop.
	XR bool
}

// DefaultPolicy returns the policy used when Create gets no options.
func DefaultPolicy() Policy {
	return Policy{DetachDeviceThread: true, Validation: ValidationAuto}
}

func (p Policy) detach(e Entry) bool {
	return p.DetachDeviceThread && !p.XR && !e.ThreadHostile
}

func (p Policy) validate() bool {
	switch p.Validation {
	case ValidationForceOn:
		return true
	case ValidationForceOff:
		return false
	}
	return debugBuild
}

// Option configures Create.
type Option func(*Policy)

// WithPolicy replaces the whole policy.
func WithPolicy(p Policy) Option {
	return func(o *Policy) { *o = p }
}

// WithDetach enables or disables the dispatch agent.
func WithDetach(detach bool) Option {
	return func(o *Policy) { o.DetachDeviceThread = detach }
}

// WithValidation sets the validator policy.
func WithValidation(m ValidationMode) Option {
	return func(o *Policy) { o.Validation = m }
}

// WithXR marks the device as driven by an XR runtime.
func WithXR(xr bool) Option {
	return func(o *Policy) { o.XR = xr }
}
