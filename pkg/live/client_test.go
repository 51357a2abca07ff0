package live

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mockmate/mockmate/pkg/core"
	"github.com/mockmate/mockmate/pkg/core/capture"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm; rate=16000", 16000},
		{"audio/pcm", defaultInboundRate},
		{"audio/pcm;rate=bogus", defaultInboundRate},
		{"", defaultInboundRate},
	}
	for _, tt := range tests {
		if got := parseRate(tt.mime); got != tt.want {
			t.Errorf("parseRate(%q) = %d, want %d", tt.mime, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want core.Kind
	}{
		{"websocket: bad handshake: 403 Forbidden", core.KindRemoteRejected},
		{"API key not valid", core.KindRemoteRejected},
		{"dial tcp: connection refused", core.KindNetworkUnstable},
		{"read: connection reset by peer", core.KindNetworkUnstable},
		{"i/o timeout", core.KindNetworkUnstable},
		{"something else entirely", core.KindRemoteError},
	}
	for _, tt := range tests {
		if got := core.KindOf(Classify(errors.New(tt.msg))); got != tt.want {
			t.Errorf("Classify(%q) kind = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestDecode_FanOutOrder(t *testing.T) {
	c := &Channel{logger: testLogger()}
	pcm := []byte{1, 0, 2, 0}
	msg := serverMessage{ServerContent: &serverContent{
		InputTranscription:  &transcription{Text: "hello"},
		OutputTranscription: &transcription{Text: "hi there"},
		ModelTurn: &content{Parts: []part{{InlineData: &blob{
			MIMEType: "audio/pcm;rate=24000",
			Data:     base64.StdEncoding.EncodeToString(pcm),
		}}}},
		TurnComplete: true,
	}}

	events := c.decode(msg)
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	if ev, ok := events[0].(InputTextEvent); !ok || ev.Text != "hello" {
		t.Fatalf("events[0] = %#v", events[0])
	}
	if ev, ok := events[1].(OutputTextEvent); !ok || ev.Text != "hi there" {
		t.Fatalf("events[1] = %#v", events[1])
	}
	audio, ok := events[2].(AudioEvent)
	if !ok || audio.SampleRate != 24000 || len(audio.PCM) != 4 {
		t.Fatalf("events[2] = %#v", events[2])
	}
	if _, ok := events[3].(TurnCompleteEvent); !ok {
		t.Fatalf("completion flag must come after partial text: %#v", events[3])
	}
}

func TestDecode_InterruptedPrecedesTurnComplete(t *testing.T) {
	c := &Channel{logger: testLogger()}
	events := c.decode(serverMessage{ServerContent: &serverContent{
		Interrupted:  true,
		TurnComplete: true,
	}})
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if _, ok := events[0].(InterruptedEvent); !ok {
		t.Fatalf("events[0] = %#v", events[0])
	}
}

func TestDecode_BadAudioChunkSkipped(t *testing.T) {
	c := &Channel{logger: testLogger()}
	events := c.decode(serverMessage{ServerContent: &serverContent{
		ModelTurn: &content{Parts: []part{
			{InlineData: &blob{MIMEType: "audio/pcm;rate=24000", Data: "%%%not-base64%%%"}},
		}},
		TurnComplete: true,
	}})
	if len(events) != 1 {
		t.Fatalf("events = %d, want just turn-complete", len(events))
	}
	if _, ok := events[0].(TurnCompleteEvent); !ok {
		t.Fatalf("events[0] = %#v", events[0])
	}
}

// liveServer fakes the remote endpoint for one connection.
func liveServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDial_HandshakeAndEventFlow(t *testing.T) {
	endpoint := liveServer(t, func(conn *websocket.Conn) {
		var setup setupMessage
		if err := conn.ReadJSON(&setup); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		if setup.Setup == nil || setup.Setup.Model == "" {
			t.Errorf("setup missing model: %+v", setup)
			return
		}
		_ = conn.WriteJSON(serverMessage{SetupComplete: &struct{}{}})

		// Expect one outbound frame, then reply with a full turn.
		var frame realtimeInputMessage
		if err := conn.ReadJSON(&frame); err != nil {
			t.Errorf("read frame: %v", err)
			return
		}
		chunks := frame.RealtimeInput.MediaChunks
		if len(chunks) != 1 || chunks[0].MIMEType != "audio/pcm;rate=16000" {
			t.Errorf("frame = %+v", frame)
			return
		}

		_ = conn.WriteJSON(serverMessage{ServerContent: &serverContent{
			OutputTranscription: &transcription{Text: "Good job."},
			TurnComplete:        true,
		}})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	})

	ch, err := Dial(context.Background(), Config{APIKey: "test-key", Endpoint: endpoint}, testLogger())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	if err := ch.SendFrame(capture.Frame{PCM: []byte{0, 0}, SampleRate: capture.WireRate}); err != nil {
		t.Fatalf("send frame: %v", err)
	}

	var got []Event
	for ev := range ch.Events() {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("events = %#v, want text + turn-complete + closed", got)
	}
	if ev, ok := got[0].(OutputTextEvent); !ok || ev.Text != "Good job." {
		t.Fatalf("got[0] = %#v", got[0])
	}
	if _, ok := got[1].(TurnCompleteEvent); !ok {
		t.Fatalf("got[1] = %#v", got[1])
	}
	closed, ok := got[2].(ClosedEvent)
	if !ok || closed.SelfInitiated {
		t.Fatalf("got[2] = %#v, want server-initiated close", got[2])
	}
}

func TestDial_SelfCloseIsSilent(t *testing.T) {
	release := make(chan struct{})
	endpoint := liveServer(t, func(conn *websocket.Conn) {
		var setup setupMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(serverMessage{SetupComplete: &struct{}{}})
		<-release
	})
	defer close(release)

	ch, err := Dial(context.Background(), Config{APIKey: "test-key", Endpoint: endpoint}, testLogger())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	go ch.Close()
	for ev := range ch.Events() {
		if closed, ok := ev.(ClosedEvent); ok {
			if !closed.SelfInitiated {
				t.Fatalf("self-close reported as server-initiated")
			}
			return
		}
	}
	t.Fatalf("no ClosedEvent observed")
}

func TestDial_MissingCredentialFailsFast(t *testing.T) {
	_, err := Dial(context.Background(), Config{}, testLogger())
	if core.KindOf(err) != core.KindConfig {
		t.Fatalf("err = %v, want config error", err)
	}
}

func TestDial_MissingSetupAckFails(t *testing.T) {
	endpoint := liveServer(t, func(conn *websocket.Conn) {
		var setup setupMessage
		_ = conn.ReadJSON(&setup)
		_ = conn.WriteJSON(serverMessage{}) // anything but setupComplete
	})

	_, err := Dial(context.Background(), Config{APIKey: "test-key", Endpoint: endpoint}, testLogger())
	if core.KindOf(err) != core.KindRemoteError {
		t.Fatalf("err = %v, want remote error", err)
	}
}
