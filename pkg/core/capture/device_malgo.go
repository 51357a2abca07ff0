package capture

import (
	"github.com/gen2brain/malgo"

	"github.com/mockmate/mockmate/pkg/core"
)

// blockFrames is the block size the device delivers at native rate. One
// block becomes exactly one outbound frame.
const blockFrames = 4096

// MicDevice is the malgo-backed microphone device.
type MicDevice struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	rate   int
}

// NewMicDevice initializes the audio context for a capture device at the
// given native sample rate. A denied or unavailable backend surfaces as a
// DeviceDenied error so the controller can fail fast without dialing the
// remote channel.
func NewMicDevice(sampleRate int) (*MicDevice, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, core.NewDeviceDenied("init audio context", err)
	}
	return &MicDevice{ctx: ctx, rate: sampleRate}, nil
}

// Start opens and starts the capture device.
func (d *MicDevice) Start(onBlock func(pcm []byte)) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(d.rate)
	deviceConfig.PeriodSizeInFrames = blockFrames

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onBlock(input)
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return core.NewDeviceDenied("open microphone", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return core.NewDeviceDenied("start microphone", err)
	}
	d.device = device
	return nil
}

// Stop stops and releases the capture device, keeping the context for a
// later Start.
func (d *MicDevice) Stop() {
	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
		d.device = nil
	}
}

// Close releases the device and the audio context.
func (d *MicDevice) Close() {
	d.Stop()
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

// SampleRate returns the device's native rate.
func (d *MicDevice) SampleRate() int { return d.rate }
