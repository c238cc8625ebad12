// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/agent"
	"github.com/gogpu/gfx/validator"
)

// The process-wide device.
var (
	instanceMu sync.Mutex
	instance   gfx.Device
)

// Create returns the process-wide device, creating it on first use.
//
// Backends are tried in preference order (see candidates). Each raw device
// is wrapped bottom-up, dispatch agent first and validator second, as the
// policy allows, and the outermost layer is initialized. A backend that
// fails to construct or initialize is logged and skipped. If nothing
// initializes, Create returns gfx.ErrBackendUnavailable.
//
// Once a device exists, Create returns it unchanged and ignores its
// arguments.
func Create(info gfx.DeviceInfo, opts ...Option) (gfx.Device, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance, nil
	}

	policy := DefaultPolicy()
	for _, opt := range opts {
		opt(&policy)
	}

	log := gfx.Logger()
	for _, api := range candidates(info) {
		entry, ok := Get(api)
		if !ok {
			log.Debug("backend: not registered", "api", api)
			continue
		}
		dev, err := build(entry, policy, info)
		if err != nil {
			log.Warn("backend: unavailable, falling through", "api", api, "error", err)
			continue
		}
		instance = dev
		log.Info("backend: device created",
			"api", api, "name", dev.Name(), "decoration", Decoration(dev))
		return dev, nil
	}
	return nil, gfx.ErrBackendUnavailable
}

// build constructs, decorates and initializes one candidate.
func build(e Entry, p Policy, info gfx.DeviceInfo) (gfx.Device, error) {
	raw := e.New()
	if raw == nil {
		return nil, fmt.Errorf("construct %s: %w", e.API, gfx.ErrBackendUnavailable)
	}
	dev := raw
	if p.detach(e) {
		dev = agent.New(dev, true)
	}
	if p.validate() {
		dev = validator.New(dev)
	}
	if err := dev.Initialize(info); err != nil {
		if derr := dev.Destroy(); derr != nil {
			gfx.Logger().Debug("backend: destroy after failed init", "api", e.API, "error", derr)
		}
		return nil, err
	}
	return dev, nil
}

// Instance returns the process-wide device, or nil before Create.
func Instance() gfx.Device {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// Destroy destroys the process-wide device top-down and clears it.
// The next Create builds a new device.
func Destroy() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil
	}
	err := instance.Destroy()
	instance = nil
	return err
}

// Decoration lists the layers of dev from the outermost inwards, ending
// with the raw backend's API name. For example: [validator agent vulkan].
func Decoration(dev gfx.Device) []string {
	var layers []string
	for dev != nil {
		switch d := dev.(type) {
		case *validator.Device:
			layers = append(layers, "validator")
			dev = d.Inner()
		case *agent.Device:
			layers = append(layers, "agent")
			dev = d.Inner()
		default:
			return append(layers, dev.API().String())
		}
	}
	return layers
}

// Detached reports whether the process-wide device runs its calls on a
// dispatch agent goroutine.
func Detached() bool {
	dev := Instance()
	for dev != nil {
		switch d := dev.(type) {
		case *validator.Device:
			dev = d.Inner()
		case *agent.Device:
			return d.Detached()
		default:
			return false
		}
	}
	return false
}

// APIName returns the API name of the raw backend behind the process-wide
// device, or "" before Create.
func APIName() string {
	layers := Decoration(Instance())
	if len(layers) == 0 {
		return ""
	}
	return layers[len(layers)-1]
}
