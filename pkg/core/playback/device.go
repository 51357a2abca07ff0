package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SpeakerSink renders PCM through an oto player. The player pulls from an
// internal buffer via io.Reader, so Play never blocks the event loop.
type SpeakerSink struct {
	otoCtx     *oto.Context
	sampleRate int
	logger     *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	player  *oto.Player
	playing bool
	closed  bool
}

// NewSpeakerSink initializes the output device context at the inbound wire
// rate (mono, 16-bit).
func NewSpeakerSink(sampleRate int, logger *slog.Logger) (*SpeakerSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &SpeakerSink{
		otoCtx:     ctx,
		sampleRate: sampleRate,
		logger:     logger.With("component", "speaker"),
		buf:        make([]byte, 0, sampleRate*4),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Play appends PCM to the device buffer and starts the player on first use.
func (s *SpeakerSink) Play(pcm []byte, sampleRate int) {
	if sampleRate != s.sampleRate {
		s.logger.Warn("buffer rate differs from device rate",
			"buffer", sampleRate, "device", s.sampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, pcm...)
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.cond.Signal()
}

// Read implements io.Reader for the oto player.
func (s *SpeakerSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.buf) == 0 {
		// Feed silence so oto drains gracefully.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Flush discards all pending audio and stops the current player so the next
// Play starts fresh with no stale audio.
func (s *SpeakerSink) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	if s.player != nil && s.playing {
		player := s.player
		s.player = nil
		s.playing = false
		s.mu.Unlock()

		// Pause first so audio stops immediately, then reset oto's internal
		// buffer so old audio never overlaps the next reply.
		player.Pause()
		player.Reset()
		player.Close()
		return
	}
	s.mu.Unlock()
}

// Close releases the player. The oto context itself has no Uninit; it lives
// for the process.
func (s *SpeakerSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		player.Close()
	}
}
