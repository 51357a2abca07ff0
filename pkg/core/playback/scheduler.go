package playback

import (
	"log/slog"
	"time"
)

// Buffer is one decoded inbound audio block. Ownership transfers to the
// scheduler when Schedule is called; a buffer is played exactly once.
type Buffer struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the playback duration of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	samples := len(b.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(b.SampleRate)
}

// Sink renders PCM on the output device.
type Sink interface {
	// Play appends PCM to the device immediately.
	Play(pcm []byte, sampleRate int)
	// Flush discards everything queued on the device and stops playback.
	Flush()
}

type entry struct {
	start Timer
	done  Timer
}

func (e *entry) stop() {
	if e.start != nil {
		e.start.Stop()
	}
	if e.done != nil {
		e.done.Stop()
	}
}

// Scheduler plays decoded buffers back-to-back on a virtual timeline.
//
// The timeline cursor nextStart marks the earliest instant the next buffer
// may begin. Every scheduled buffer starts at max(nextStart, now) and the
// cursor advances by the buffer's duration immediately, so bursty delivery
// queues back-to-back with no overlap and steady delivery plays with no
// silence gap.
//
// Scheduler state is owned by a single event-loop turn: all methods and
// timer callbacks run through post, which the session controller points at
// its run loop. With a nil post, callbacks run inline.
type Scheduler struct {
	clock  Clock
	sink   Sink
	post   func(func())
	logger *slog.Logger

	nextStart time.Time
	active    map[int64]*entry
	nextID    int64
}

// NewScheduler creates a scheduler rendering to sink on the given clock.
func NewScheduler(clock Clock, sink Sink, post func(func()), logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		post:   post,
		logger: logger.With("component", "playback"),
	}
}

// Schedule enqueues a decoded buffer for gapless playback. Undecodable
// buffers (empty or odd-length PCM, unknown rate) are logged and skipped;
// they never abort the scheduler.
func (s *Scheduler) Schedule(buf Buffer) {
	if len(buf.PCM) == 0 || len(buf.PCM)%2 != 0 || buf.SampleRate <= 0 {
		s.logger.Warn("skipping undecodable audio buffer",
			"bytes", len(buf.PCM), "rate", buf.SampleRate)
		return
	}
	if s.active == nil {
		s.active = make(map[int64]*entry)
	}

	now := s.clock.Now()
	start := s.nextStart
	if start.Before(now) {
		start = now
	}
	s.nextStart = start.Add(buf.Duration())

	s.nextID++
	id := s.nextID
	e := &entry{}
	s.active[id] = e
	e.start = s.clock.AfterFunc(start.Sub(now), func() {
		s.post(func() { s.begin(id, buf) })
	})
}

func (s *Scheduler) begin(id int64, buf Buffer) {
	e, ok := s.active[id]
	if !ok {
		// Force-removed by InterruptAll before the start fired.
		return
	}
	s.sink.Play(buf.PCM, buf.SampleRate)
	e.done = s.clock.AfterFunc(buf.Duration(), func() {
		s.post(func() { delete(s.active, id) })
	})
}

// InterruptAll stops every still-active buffer immediately and resets the
// timeline cursor to now. Used when the remote model reports the user
// interrupted it mid-reply, and on session teardown.
func (s *Scheduler) InterruptAll() {
	for id, e := range s.active {
		e.stop()
		delete(s.active, id)
	}
	if s.sink != nil {
		s.sink.Flush()
	}
	s.nextStart = s.clock.Now()
}

// NextStart exposes the timeline cursor.
func (s *Scheduler) NextStart() time.Time { return s.nextStart }

// ActiveCount reports how many buffers are scheduled or playing.
func (s *Scheduler) ActiveCount() int { return len(s.active) }
