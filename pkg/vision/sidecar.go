package vision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sidecarDialTimeout = 5 * time.Second

// Sidecar talks to the external mediapipe detector process over a
// websocket: camera frames go out as binary messages, counter snapshots
// come back as JSON.
type Sidecar struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	metrics Metrics
}

// NewSidecar creates a client for the detector at url (for example
// ws://127.0.0.1:8765/detect).
func NewSidecar(url string, logger *slog.Logger) *Sidecar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sidecar{url: url, logger: logger.With("component", "vision")}
}

// Initialize dials the sidecar and starts consuming counter snapshots.
func (s *Sidecar) Initialize(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, sidecarDialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

func (s *Sidecar) readLoop(conn *websocket.Conn) {
	for {
		var snapshot Metrics
		if err := conn.ReadJSON(&snapshot); err != nil {
			s.logger.Debug("detector stream ended", "error", err)
			return
		}
		s.mu.Lock()
		s.metrics = snapshot
		s.mu.Unlock()
	}
}

// Reset zeroes the counters locally and asks the sidecar to do the same.
func (s *Sidecar) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = Metrics{}
	if s.conn != nil {
		if err := s.conn.WriteJSON(map[string]string{"type": "reset"}); err != nil {
			s.logger.Debug("detector reset failed", "error", err)
		}
	}
}

// Detect submits one camera frame. Fire-and-forget: failures are logged and
// the frame is lost.
func (s *Sidecar) Detect(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.logger.Debug("detector frame dropped", "error", err)
	}
}

// Metrics returns the latest counter snapshot.
func (s *Sidecar) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close tears down the sidecar connection.
func (s *Sidecar) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
