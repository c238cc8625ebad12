// Package backend creates the process-wide gfx device.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// Importing this package registers the headless backend and, unless built
// with the nogpu tag, the hardware backends of backend/wgpu:
//
//	import "github.com/gogpu/gfx/backend"
//
// # Backend Selection
//
// Create tries registered backends in a fixed preference order:
//
//	nvn, vulkan, metal, dx12, gles3, gles2, headless
//
// gfx.DeviceInfo.Preference replaces that order and
// gfx.DeviceInfo.Disabled removes entries from it. The headless backend
// is always tried last and cannot be disabled.
//
// # Decoration
//
// Every candidate is wrapped before initialization:
//
//	raw device → agent (if detached) → validator (if validating)
//
// Detachment is on by default and off for thread-hostile backends and
// XR. Validation is on in builds tagged gfxdebug, and can be forced either
// way:
//
//	dev, err := backend.Create(info, backend.WithValidation(backend.ValidationForceOn))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer backend.Destroy()
//
// Create is idempotent: while a device exists it is returned unchanged.
package backend
