package capture

import (
	"log/slog"
)

// Device delivers fixed-size blocks of native-rate 16-bit mono PCM to a
// callback. Implementations own the underlying hardware handle; the pipeline
// never touches it directly.
type Device interface {
	// Start begins delivery. onBlock runs on the device's callback thread
	// and must do bounded work.
	Start(onBlock func(pcm []byte)) error
	Stop()
	SampleRate() int
}

// Pipeline turns raw device blocks into wire-rate outbound frames and hands
// them to send. Delivery is fire-and-forget: there is no queue and no
// backoff, so a briefly blocked consumer simply loses frames. Best-effort,
// not exactly-once.
type Pipeline struct {
	dev      Device
	wireRate int
	send     func(Frame)
	logger   *slog.Logger
}

// NewPipeline creates a capture pipeline targeting wireRate.
func NewPipeline(dev Device, wireRate int, send func(Frame), logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if wireRate <= 0 {
		wireRate = WireRate
	}
	return &Pipeline{
		dev:      dev,
		wireRate: wireRate,
		send:     send,
		logger:   logger.With("component", "capture"),
	}
}

// Start acquires the device and begins producing frames.
func (p *Pipeline) Start() error {
	return p.dev.Start(p.onBlock)
}

// Stop halts the device. Blocks already in flight may still be delivered by
// the device layer; consumers guard against that with session tokens.
func (p *Pipeline) Stop() {
	p.dev.Stop()
}

func (p *Pipeline) onBlock(pcm []byte) {
	native := p.dev.SampleRate()
	var out []byte
	if native <= p.wireRate {
		out = pcm
	} else {
		out = BytesFromSamples(Decimate(SamplesFromBytes(pcm), native, p.wireRate))
	}
	p.send(Frame{PCM: out, SampleRate: p.wireRate})
}
