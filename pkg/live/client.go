package live

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mockmate/mockmate/pkg/core"
	"github.com/mockmate/mockmate/pkg/core/capture"
)

const (
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultModel    = "models/gemini-2.0-flash-live-001"

	defaultConnectTimeout = 15 * time.Second

	// defaultInboundRate is assumed when an audio chunk's mime type does
	// not name a rate.
	defaultInboundRate = 24000
)

// Config configures a duplex channel to the remote conversational model.
type Config struct {
	APIKey       string
	Model        string
	SystemPrompt string

	// Endpoint overrides the wire endpoint; tests point it at a local
	// websocket server.
	Endpoint string
}

// Channel is an open duplex connection. Outbound frames go through
// SendFrame; decoded inbound events arrive on Events until the channel
// closes, after which the events channel is closed.
type Channel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu    sync.Mutex
	closeOnce  sync.Once
	selfClosed atomic.Bool
}

// Dial opens the channel and completes the setup handshake. The channel is
// live once Dial returns.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "live")

	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.NewConfig("remote model credential is not set")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	wsURL := endpoint + "?key=" + url.QueryEscape(cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, Classify(err)
	}

	setup := setupMessage{Setup: &setupPayload{
		Model:                    model,
		GenerationConfig:         &generationConfig{ResponseModalities: []string{"AUDIO"}},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}}
	if prompt := strings.TrimSpace(cfg.SystemPrompt); prompt != "" {
		setup.Setup.SystemInstruction = &content{Parts: []part{{Text: prompt}}}
	}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, Classify(fmt.Errorf("send setup: %w", err))
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	var first serverMessage
	if err := conn.ReadJSON(&first); err != nil {
		_ = conn.Close()
		return nil, Classify(fmt.Errorf("read setup ack: %w", err))
	}
	_ = conn.SetReadDeadline(time.Time{})
	if first.SetupComplete == nil {
		_ = conn.Close()
		return nil, core.New(core.KindRemoteError, "remote did not acknowledge setup", nil)
	}

	c := &Channel{
		conn:   conn,
		logger: logger,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SendFrame sends one outbound audio frame. Delivery is best-effort: when
// another write is in flight the frame is dropped rather than blocking the
// capture callback.
func (c *Channel) SendFrame(f capture.Frame) error {
	if !c.writeMu.TryLock() {
		return nil
	}
	defer c.writeMu.Unlock()

	msg := realtimeInputMessage{RealtimeInput: &realtimeInput{
		MediaChunks: []blob{{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate),
			Data:     base64.StdEncoding.EncodeToString(f.PCM),
		}},
	}}
	return c.conn.WriteJSON(msg)
}

// Events yields decoded inbound events. The channel is closed after the
// terminal ClosedEvent or ErrorEvent.
func (c *Channel) Events() <-chan Event { return c.events }

// Close requests a self-initiated close. The subsequent ClosedEvent carries
// SelfInitiated so consumers treat it as expected and silent.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.selfClosed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *Channel) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		var msg serverMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if c.selfClosed.Load() {
				c.events <- ClosedEvent{SelfInitiated: true}
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.events <- ClosedEvent{SelfInitiated: false}
				return
			}
			c.events <- ErrorEvent{Err: Classify(err)}
			return
		}
		for _, ev := range c.decode(msg) {
			c.events <- ev
		}
	}
}

// decode fans one wire message out into events, partial text first so a
// turn's text is observed before its completion flag.
func (c *Channel) decode(msg serverMessage) []Event {
	sc := msg.ServerContent
	if sc == nil {
		return nil
	}
	var out []Event
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		out = append(out, InputTextEvent{Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		out = append(out, OutputTextEvent{Text: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				// A single bad buffer never aborts the session.
				c.logger.Warn("dropping undecodable audio chunk", "error", err)
				continue
			}
			out = append(out, AudioEvent{PCM: pcm, SampleRate: parseRate(p.InlineData.MIMEType)})
		}
	}
	if sc.Interrupted {
		out = append(out, InterruptedEvent{})
	}
	if sc.TurnComplete {
		out = append(out, TurnCompleteEvent{})
	}
	return out
}

// parseRate extracts the sample rate from a mime type such as
// "audio/pcm;rate=24000".
func parseRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		param = strings.TrimSpace(param)
		if value, ok := strings.CutPrefix(param, "rate="); ok {
			if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return defaultInboundRate
}

// Classify buckets a transport failure by message substring into a network,
// permission, or generic remote error.
func Classify(err error) *core.Error {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "permission", "forbidden", "api key", "401", "403"):
		return core.NewRemoteRejected("remote model rejected the connection", err)
	case containsAny(msg, "connection", "network", "timeout", "refused", "reset", "no such host", "broken pipe"):
		return core.NewNetworkUnstable("remote connection is unstable", err)
	default:
		return core.New(core.KindRemoteError, "remote channel failed", err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
