// Package session owns the lifetime of a live interview session: it wires
// capture to the remote channel, fans inbound events out to the turn
// aggregator and the playback scheduler, and guarantees that no work from a
// superseded session can mutate the active one.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockmate/mockmate/pkg/analyze"
	"github.com/mockmate/mockmate/pkg/core"
	"github.com/mockmate/mockmate/pkg/core/capture"
	"github.com/mockmate/mockmate/pkg/core/playback"
	"github.com/mockmate/mockmate/pkg/core/turns"
	"github.com/mockmate/mockmate/pkg/live"
	"github.com/mockmate/mockmate/pkg/store"
	"github.com/mockmate/mockmate/pkg/vision"
)

// Token identifies one session attempt. Tokens are minted monotonically; an
// asynchronous callback tagged with token T must never mutate state once T
// is no longer current.
type Token int64

// NoToken is the sentinel meaning no session is current.
const NoToken Token = 0

// defaultCooldown is the pause between tearing a session down and
// reallocating its devices. Rapid reopen of the same physical device can
// otherwise fail or duplicate streams.
const defaultCooldown = 300 * time.Millisecond

// Channel is the duplex connection to the remote conversational model, as
// the controller consumes it. *live.Channel satisfies it.
type Channel interface {
	SendFrame(capture.Frame) error
	Events() <-chan live.Event
	Close() error
}

// Dialer opens a channel. Injected so tests run without a network.
type Dialer func(ctx context.Context, cfg live.Config) (Channel, error)

// DeviceFactory acquires the capture device. Injected so tests run without
// hardware.
type DeviceFactory func() (capture.Device, error)

// Config is the per-session setup.
type Config struct {
	APIKey string
	Model  string

	Role    string
	Persona string
	Context string

	// ResumeText is held in memory for the session only; it is never
	// persisted.
	ResumeText string

	GesturesEnabled bool
}

// Deps are the controller's injected collaborators. Dial, NewDevice, Sink
// and Analyzer are required; the rest are optional.
type Deps struct {
	Dial      Dialer
	NewDevice DeviceFactory
	Sink      playback.Sink
	Clock     playback.Clock
	Detector  vision.Detector
	Analyzer  *analyze.Analyzer
	Store     *store.Store
	Cooldown  time.Duration
	Logger    *slog.Logger
}

// Controller runs one session at a time on a single event loop. All session
// state below the loop line is owned by the loop goroutine and touched only
// through run and post.
type Controller struct {
	deps   Deps
	logger *slog.Logger

	loop   chan func()
	quit   chan struct{}
	events chan Event

	// Loop-owned state.
	current    Token
	lastMinted Token
	attemptID  string
	state      State

	agg      *turns.Aggregator
	sched    *playback.Scheduler
	pipeline *capture.Pipeline
	channel  Channel

	gesturesOn bool
	gestures   *vision.Metrics
	transcript string
}

// New creates an idle controller and starts its event loop.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Cooldown == 0 {
		deps.Cooldown = defaultCooldown
	}
	c := &Controller{
		deps:   deps,
		logger: logger.With("component", "session"),
		loop:   make(chan func(), 128),
		quit:   make(chan struct{}),
		events: make(chan Event, 64),
		state:  StateIdle,
	}
	go c.runLoop()
	return c
}

func (c *Controller) runLoop() {
	for {
		select {
		case fn := <-c.loop:
			fn()
		case <-c.quit:
			return
		}
	}
}

// run executes fn on the event loop and waits for it to finish.
func (c *Controller) run(fn func()) {
	done := make(chan struct{})
	select {
	case c.loop <- func() { fn(); close(done) }:
	case <-c.quit:
		return
	}
	select {
	case <-done:
	case <-c.quit:
	}
}

// post schedules fn on the event loop on behalf of session tok. The closure
// is silently dropped when tok is no longer current, which is the only
// cancellation mechanism in the system.
func (c *Controller) post(tok Token, fn func()) {
	select {
	case c.loop <- func() {
		if c.current != tok {
			c.logger.Debug("dropping stale event", "token", int64(tok), "current", int64(c.current))
			return
		}
		fn()
	}:
	case <-c.quit:
	}
}

// Events yields controller notifications for the UI layer. Delivery is
// best-effort; a full consumer loses events rather than stalling the loop.
func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("dropping ui event", "type", ev.eventType())
	}
}

func (c *Controller) setState(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Info("session state changed", "from", prev, "to", next, "attempt", c.attemptID)
	c.emit(StateChangedEvent{From: prev, To: next})
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	var s State
	c.run(func() { s = c.state })
	return s
}

// Token reports the current session token, NoToken when none is live.
func (c *Controller) Token() Token {
	var t Token
	c.run(func() { t = c.current })
	return t
}

// Transcript returns the committed transcript of the live session, or the
// preserved transcript after the session ended or failed.
func (c *Controller) Transcript() string {
	var out string
	c.run(func() {
		if c.agg != nil && c.current != NoToken {
			out = c.agg.Transcript()
		} else {
			out = c.transcript
		}
	})
	return out
}

// TokensUsed reports the running usage estimate of the live session.
func (c *Controller) TokensUsed() int {
	var n int
	c.run(func() {
		if c.agg != nil {
			n = c.agg.TokensUsed()
		}
	})
	return n
}

// StartSession invalidates any prior session, waits out the device cooldown,
// mints a new token and brings the session to Active. Opening the channel
// and the cooldown are the only points where the loop blocks.
func (c *Controller) StartSession(ctx context.Context, cfg Config) (Token, error) {
	var (
		tok Token
		err error
	)
	c.run(func() { tok, err = c.start(ctx, cfg) })
	return tok, err
}

func (c *Controller) start(ctx context.Context, cfg Config) (Token, error) {
	c.current = NoToken
	c.teardown()

	if c.deps.Cooldown > 0 {
		select {
		case <-time.After(c.deps.Cooldown):
		case <-ctx.Done():
			return NoToken, ctx.Err()
		}
	}

	c.lastMinted++
	tok := c.lastMinted
	c.current = tok
	c.attemptID = uuid.NewString()
	c.transcript = ""
	c.gestures = nil

	c.agg = turns.New()
	c.agg.SetMirror(func(candidate, model string) {
		c.emit(MirrorEvent{Candidate: candidate, Model: model})
	})
	sched := playback.NewScheduler(c.deps.Clock, c.deps.Sink,
		func(fn func()) { c.post(tok, fn) }, c.logger)
	c.sched = sched
	c.agg.SetInterruptHook(sched.InterruptAll)

	c.setState(StateConnecting)
	c.logger.Info("starting session", "attempt", c.attemptID, "role", cfg.Role)

	c.gesturesOn = false
	if cfg.GesturesEnabled && c.deps.Detector != nil {
		if err := c.deps.Detector.Initialize(ctx); err != nil {
			// Gestures are an enhancement, never a reason to abort.
			c.logger.Warn("vision detector unavailable", "error", err)
		} else {
			c.deps.Detector.Reset()
			c.gesturesOn = true
		}
	}

	// Acquire the microphone before dialing so a permission denial never
	// opens a remote connection.
	dev, err := c.deps.NewDevice()
	if err != nil {
		ferr := core.NewDeviceDenied("microphone could not be acquired", err)
		c.fail(ferr)
		return NoToken, ferr
	}

	ch, err := c.deps.Dial(ctx, live.Config{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		SystemPrompt: buildSystemPrompt(cfg),
	})
	if err != nil {
		dev.Stop()
		c.fail(err)
		return NoToken, err
	}
	c.channel = ch

	c.pipeline = capture.NewPipeline(dev, capture.WireRate, func(f capture.Frame) {
		if err := ch.SendFrame(f); err != nil {
			c.logger.Debug("dropping outbound frame", "error", err)
		}
	}, c.logger)
	if err := c.pipeline.Start(); err != nil {
		ferr := core.NewDeviceDenied("microphone could not be started", err)
		c.fail(ferr)
		return NoToken, ferr
	}

	c.setState(StateActive)

	go func() {
		for ev := range ch.Events() {
			ev := ev
			c.post(tok, func() { c.handleChannelEvent(ev) })
		}
	}()

	return tok, nil
}

func (c *Controller) handleChannelEvent(ev live.Event) {
	switch e := ev.(type) {
	case live.InputTextEvent:
		c.agg.AddCandidateText(e.Text)
	case live.OutputTextEvent:
		c.agg.AddModelText(e.Text)
	case live.AudioEvent:
		c.sched.Schedule(playback.Buffer{PCM: e.PCM, SampleRate: e.SampleRate})
	case live.TurnCompleteEvent:
		c.agg.CompleteTurn()
	case live.InterruptedEvent:
		c.agg.InterruptTurn()
	case live.ClosedEvent:
		if !e.SelfInitiated {
			c.fail(core.NewServerClosed("remote closed the session unexpectedly"))
		}
	case live.ErrorEvent:
		c.fail(e.Err)
	}
}

// EndSession commits the pending turn, tears the session down and moves to
// Analyzing. It returns the final transcript; after a failure it returns
// the transcript preserved at the point of failure.
func (c *Controller) EndSession() string {
	var transcript string
	c.run(func() {
		switch c.state {
		case StateActive, StateConnecting:
			c.agg.CompleteTurn()
			c.snapshotGestures()
			c.transcript = c.agg.Transcript()
			c.current = NoToken
			c.teardown()
			c.setState(StateAnalyzing)
		case StateError:
			// The transcript was preserved by fail; analysis is still
			// available.
			c.setState(StateAnalyzing)
		}
		transcript = c.transcript
	})
	return transcript
}

// Finish scores the ended session, persists the report when a store is
// configured, and moves to Feedback. Call after EndSession.
func (c *Controller) Finish(ctx context.Context) analyze.Report {
	var (
		transcript string
		gestures   *vision.Metrics
	)
	c.run(func() {
		transcript = c.transcript
		gestures = c.gestures
	})

	report := c.deps.Analyzer.Analyze(ctx, transcript, gestures)

	if c.deps.Store != nil {
		if _, err := c.deps.Store.SaveReport(ctx, report, transcript); err != nil {
			c.logger.Warn("report not persisted", "error", err)
		}
	}

	c.run(func() {
		c.setState(StateFeedback)
		c.emit(ReportReadyEvent{Report: report})
	})
	return report
}

// HardReset forces Idle from any state, tearing everything down
// unconditionally and discarding the preserved transcript.
func (c *Controller) HardReset() {
	c.run(func() {
		c.current = NoToken
		c.teardown()
		c.transcript = ""
		c.gestures = nil
		c.setState(StateIdle)
	})
}

// Close stops the event loop. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.run(func() {
		c.current = NoToken
		c.teardown()
	})
	close(c.quit)
}

// fail moves to Error on any fatal condition. Teardown is unconditional and
// the transcript collected so far is preserved.
func (c *Controller) fail(err error) {
	c.logger.Error("session failed", "error", err, "attempt", c.attemptID)
	if c.agg != nil {
		c.agg.CompleteTurn()
		c.transcript = c.agg.Transcript()
	}
	c.snapshotGestures()
	c.current = NoToken
	c.teardown()
	c.setState(StateError)
	c.emit(SessionErrorEvent{Err: err})
}

func (c *Controller) teardown() {
	if c.pipeline != nil {
		c.pipeline.Stop()
		c.pipeline = nil
	}
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.sched != nil {
		c.sched.InterruptAll()
	}
}

func (c *Controller) snapshotGestures() {
	if !c.gesturesOn || c.deps.Detector == nil {
		return
	}
	m := c.deps.Detector.Metrics()
	c.gestures = &m
}

func buildSystemPrompt(cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are conducting a mock interview for the role of %s.", orDefault(cfg.Role, "a software engineer"))
	if cfg.Persona != "" {
		fmt.Fprintf(&b, " Interviewer persona: %s.", cfg.Persona)
	}
	if cfg.Context != "" {
		fmt.Fprintf(&b, " Additional context: %s.", cfg.Context)
	}
	if cfg.ResumeText != "" {
		fmt.Fprintf(&b, "\n\nCandidate resume:\n%s", cfg.ResumeText)
	}
	b.WriteString("\n\nAsk one question at a time, listen to the full answer, and follow up naturally. Keep replies concise and spoken-word friendly.")
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
