package capture

import (
	"encoding/binary"
	"time"
)

// WireRate is the outbound sample rate the remote channel requires.
const WireRate = 16000

// Frame is one outbound audio block: little-endian 16-bit mono PCM already
// reduced to the wire rate. Frames are ephemeral; they are produced and
// consumed within one capture callback.
type Frame struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	samples := len(f.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// SamplesFromBytes decodes little-endian 16-bit PCM into samples. A trailing
// odd byte is dropped.
func SamplesFromBytes(pcm []byte) []int16 {
	n := len(pcm) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}

// BytesFromSamples encodes samples as little-endian 16-bit PCM.
func BytesFromSamples(samples []int16) []byte {
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}
	return pcm
}
