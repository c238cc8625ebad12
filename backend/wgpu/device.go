// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Backend errors.
var (
	// ErrBackendNotRegistered is returned when the HAL backend for an API
	// was not compiled into the binary.
	ErrBackendNotRegistered = errors.New("wgpu: HAL backend not registered")

	// ErrNoAdapter is returned when the instance exposes no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrFenceTimeout is returned when submitted work does not complete in time.
	ErrFenceTimeout = errors.New("wgpu: submission wait timed out")
)

// fenceTimeout bounds every blocking wait on the queue.
const (
	fenceTimeout = 5 * time.Second
	pollInterval = 100 * time.Microsecond
)

// halVariants maps device APIs onto HAL backends. NVN has no HAL backend.
var halVariants = map[gfx.API]gputypes.Backend{
	gfx.APIVulkan: gputypes.BackendVulkan,
	gfx.APIMetal:  gputypes.BackendMetal,
	gfx.APIDX12:   gputypes.BackendDX12,
	gfx.APIGLES3:  gputypes.BackendGL,
	gfx.APIGLES2:  gputypes.BackendGL,
}

// GPUInfo describes the adapter a device was opened on.
type GPUInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	API        gfx.API
	Shared     bool
}

// String returns a human-readable description of the GPU.
func (g GPUInfo) String() string {
	if g.Shared {
		return fmt.Sprintf("%s (%s, shared)", g.Name, g.API)
	}
	return fmt.Sprintf("%s (%s)", g.Name, g.API)
}

// Device is a gfx.Device backed by a HAL device.
//
// The zero value is not usable; construct with New or NewHeadless.
type Device struct {
	api      gfx.API
	headless bool

	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	shared   bool
	gpu      GPUInfo
	caps     gfx.Capabilities
	acquired []*Swapchain

	stats struct {
		submits, passes, draws, dispatches, barriers, copies, presents atomic.Uint64
	}
}

var _ gfx.Device = (*Device)(nil)

// New returns an unopened device for a hardware API. Initialize opens the
// HAL backend registered for that API and fails if none is compiled in.
func New(api gfx.API) *Device {
	return &Device{api: api}
}

// NewHeadless returns an unopened device over the HAL noop backend.
// It never touches a GPU and always initializes.
func NewHeadless() *Device {
	return &Device{api: gfx.APIHeadless, headless: true}
}

// Initialize opens the device. If info.Provider exposes HAL handles the
// host device is shared instead and is never destroyed by this device.
func (d *Device) Initialize(info gfx.DeviceInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		return gfx.ErrAlreadyInitialized
	}

	if !d.headless && info.Provider != nil {
		err := d.useProvider(info.Provider)
		if err == nil {
			d.fillCapabilities()
			return nil
		}
		gfx.Logger().Debug("wgpu: provider not usable, opening own device", "api", d.api, "error", err)
	}

	instance, err := d.createInstance()
	if err != nil {
		return err
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("%s: %w", d.api, ErrNoAdapter)
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("%s: open device: %w", d.api, err)
	}

	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.gpu = GPUInfo{Name: selected.Info.Name, DeviceType: selected.Info.DeviceType, API: d.api}
	d.fillCapabilities()

	gfx.Logger().Debug("wgpu: device opened", "gpu", d.gpu.String(), "label", info.Label)
	return nil
}

func (d *Device) createInstance() (hal.Instance, error) {
	if d.headless {
		api := noop.API{}
		instance, err := api.CreateInstance(nil)
		if err != nil {
			return nil, fmt.Errorf("headless: create instance: %w", err)
		}
		return instance, nil
	}

	variant, ok := halVariants[d.api]
	if !ok {
		return nil, fmt.Errorf("%s: %w", d.api, ErrBackendNotRegistered)
	}
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%s: %w", d.api, ErrBackendNotRegistered)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", d.api, err)
	}
	return instance, nil
}

// useProvider adopts the HAL device of a host application.
func (d *Device) useProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("provider HalQueue is not hal.Queue")
	}
	d.device = device
	d.queue = queue
	d.shared = true
	d.gpu = GPUInfo{Name: "host device", API: d.api, Shared: true}
	return nil
}

func (d *Device) fillCapabilities() {
	limits := gputypes.DefaultLimits()
	d.caps = gfx.Capabilities{
		MaxTextureSize:   limits.MaxTextureDimension2D,
		MaxBindGroups:    limits.MaxBindGroups,
		SupportsCompute:  !d.headless,
		SupportsBarriers: true,
		VendorName:       "gogpu/wgpu",
		DeviceName:       d.gpu.Name,
	}
}

// Destroy closes the device. Shared host devices are left open.
func (d *Device) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil
	}
	if !d.shared {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.device, d.queue, d.instance = nil, nil, nil
	d.acquired = nil
	return nil
}

func (d *Device) API() gfx.API { return d.api }

// Name returns the adapter name, or the API name before Initialize.
func (d *Device) Name() string {
	gpu := d.GPU()
	if gpu.Name == "" {
		return d.api.String()
	}
	return gpu.String()
}

func (d *Device) Capabilities() gfx.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

// GPU returns the adapter the device was opened on.
func (d *Device) GPU() GPUInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gpu
}

// HalDevice returns the underlying HAL device, for hosts sharing it further.
func (d *Device) HalDevice() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device
}

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue
}

func (d *Device) NewBuffer() gfx.Buffer {
	return &Buffer{resource: d.newResource(gfx.ObjectBuffer)}
}

func (d *Device) NewTexture() gfx.Texture {
	return &Texture{resource: d.newResource(gfx.ObjectTexture)}
}

func (d *Device) NewSampler() gfx.Sampler {
	return &Sampler{resource: d.newResource(gfx.ObjectSampler)}
}

func (d *Device) NewShader() gfx.Shader {
	return &Shader{resource: d.newResource(gfx.ObjectShader)}
}

func (d *Device) NewDescriptorSetLayout() gfx.DescriptorSetLayout {
	return &DescriptorSetLayout{resource: d.newResource(gfx.ObjectDescriptorSetLayout)}
}

func (d *Device) NewDescriptorSet() gfx.DescriptorSet {
	return &DescriptorSet{resource: d.newResource(gfx.ObjectDescriptorSet)}
}

func (d *Device) NewSwapchain() gfx.Swapchain {
	return &Swapchain{resource: d.newResource(gfx.ObjectSwapchain)}
}

func (d *Device) NewCommandBuffer() gfx.CommandBuffer {
	return &CommandBuffer{resource: d.newResource(gfx.ObjectCommandBuffer)}
}

func (d *Device) newResource(kind gfx.ObjectType) resource {
	return resource{dev: d, kind: kind, id: gfx.NewTypedID(kind)}
}

// opened returns the open device and queue.
func (d *Device) opened() (hal.Device, hal.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil, nil, gfx.ErrNotInitialized
	}
	return d.device, d.queue, nil
}

// Acquire marks each swapchain as acquired for the current frame.
// Offscreen swapchains always have an image available.
func (d *Device) Acquire(swapchains []gfx.Swapchain) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sc := range swapchains {
		raw, ok := sc.(*Swapchain)
		if !ok {
			return fmt.Errorf("%w: acquire %T", gfx.ErrTypeMismatch, sc)
		}
		d.acquired = append(d.acquired, raw)
	}
	return nil
}

// Submit encodes and submits every command buffer in order, then waits for
// the queue to drain.
func (d *Device) Submit(cmds []gfx.CommandBuffer) error {
	device, queue, err := d.opened()
	if err != nil {
		return err
	}
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: submit %T", gfx.ErrTypeMismatch, c)
		}
		if err := cb.submit(device, queue); err != nil {
			return err
		}
		d.stats.submits.Add(1)
	}
	return nil
}

// Present presents every swapchain acquired since the last call.
func (d *Device) Present() error {
	d.mu.Lock()
	acquired := d.acquired
	d.acquired = nil
	d.mu.Unlock()
	d.stats.presents.Add(uint64(len(acquired)))
	return nil
}

// ReadBuffer maps the buffer after the queue is idle and copies it into dst.
func (d *Device) ReadBuffer(buf gfx.Buffer, offset uint64, dst []byte) error {
	raw, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: read %T", gfx.ErrTypeMismatch, buf)
	}
	if raw.buf == nil {
		return gfx.ErrNotInitialized
	}
	if err := d.WaitIdle(); err != nil {
		return err
	}
	device, _, err := d.opened()
	if err != nil {
		return err
	}
	m, err := device.MapBuffer(raw.buf, offset, uint64(len(dst)))
	if err != nil {
		return fmt.Errorf("wgpu: map buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(m.Ptr), len(dst)))
	if err := device.UnmapBuffer(raw.buf); err != nil {
		return fmt.Errorf("wgpu: unmap buffer: %w", err)
	}
	return nil
}

// WaitIdle blocks until the queue has drained.
func (d *Device) WaitIdle() error {
	device, _, err := d.opened()
	if err != nil {
		return err
	}
	if err := device.WaitIdle(); err != nil {
		return fmt.Errorf("%w: wait idle: %w", gfx.ErrDeviceLost, err)
	}
	return nil
}

// submitAndWait submits cmdBuf and polls the queue until it completes.
func submitAndWait(queue hal.Queue, cmdBuf hal.CommandBuffer) error {
	index, err := queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("%w: submit: %w", gfx.ErrDeviceLost, err)
	}
	deadline := time.Now().Add(fenceTimeout)
	for queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return ErrFenceTimeout
		}
		time.Sleep(pollInterval)
	}
	return nil
}

func (d *Device) Stats() gfx.Stats {
	return gfx.Stats{
		Submits:    d.stats.submits.Load(),
		Passes:     d.stats.passes.Load(),
		DrawCalls:  d.stats.draws.Load(),
		Dispatches: d.stats.dispatches.Load(),
		Barriers:   d.stats.barriers.Load(),
		Copies:     d.stats.copies.Load(),
		Presents:   d.stats.presents.Load(),
	}
}
