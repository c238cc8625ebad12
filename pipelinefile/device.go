// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipelinefile

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend"
)

type deviceBlock struct {
	Label      string   `hcl:"label,optional"`
	Preference []string `hcl:"preference,optional"`
	Disabled   []string `hcl:"disabled,optional"`
	Validation string   `hcl:"validation,optional"`
	Detach     *bool    `hcl:"detach,optional"`
	XR         bool     `hcl:"xr,optional"`
}

// DeviceConfig is the device block of a pipeline file.
type DeviceConfig struct {
	Info    gfx.DeviceInfo
	Options []backend.Option
}

// Device returns the device configuration of the file. A file without a
// device block yields the factory defaults.
func (f *File) Device() (DeviceConfig, error) {
	cfg := DeviceConfig{Info: gfx.DeviceInfo{BindingMapping: gfx.DefaultBindingMapping()}}
	d := f.device
	if d == nil {
		return cfg, nil
	}
	cfg.Info.Label = d.Label

	var errs []error
	apis := func(names []string) []gfx.API {
		var out []gfx.API
		for _, n := range names {
			api, err := gfx.ParseAPI(n)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, api)
		}
		return out
	}
	cfg.Info.Preference = apis(d.Preference)
	cfg.Info.Disabled = apis(d.Disabled)

	mode, err := backend.ParseValidationMode(d.Validation)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Options = append(cfg.Options, backend.WithValidation(mode), backend.WithXR(d.XR))
	if d.Detach != nil {
		cfg.Options = append(cfg.Options, backend.WithDetach(*d.Detach))
	}
	if err := errors.Join(errs...); err != nil {
		return DeviceConfig{}, fmt.Errorf("pipelinefile: %s: device: %w", f.name, err)
	}
	return cfg, nil
}

// CreateDevice creates the process device as configured by the file.
func (f *File) CreateDevice() (gfx.Device, error) {
	cfg, err := f.Device()
	if err != nil {
		return nil, err
	}
	return backend.Create(cfg.Info, cfg.Options...)
}
