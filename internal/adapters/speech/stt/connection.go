// Package stt is the per-session streaming speech-to-text connection pool
// (C3): one gorilla/websocket connection per session, reconnect with capped
// exponential backoff, and a single receive goroutine per connection
// dispatching partial/final/error events to the caller's callback.
//
// Grounded on voice/wsclient.go's WSClient (dial, write-mutex, single
// readMessages goroutine per connection, Reconnect-via-backoff.Strategy) and
// shared/backoff's capped-exponential constructor added for this component.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

type startFrame struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	AudioFormat string `json:"audio_format"`
	Language    string `json:"language,omitempty"`
}

type finalizeFrame struct {
	Type string `json:"type"`
}

type closeFrame struct {
	Type string `json:"type"`
}

type serverFrame struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// connection owns one session's WebSocket to the STT engine. All mutable
// fields are guarded by mu; the receive goroutine is the sole reader of
// conn, matching voice/session.go's single-reader-goroutine idiom.
type connection struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	state    *models.STTConnection
	format   string
	onTranscript ports.TranscriptCallback
	cancel   context.CancelFunc
}

func (c *connection) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status == models.STTConnected
}

func (c *connection) setStatus(status models.STTStatus) {
	c.mu.Lock()
	c.state.Status = status
	c.mu.Unlock()
}

func dial(ctx context.Context, url string, timeout time.Duration) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stt dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stt dial: %w", err)
	}
	return conn, nil
}

func (c *connection) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal stt frame: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *connection) writeAudio(audio []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// receiveLoop is the single reader for this connection, parsing
// partial/final/error frames and dispatching them to onTranscript in
// receive order — the ordering guarantee spec.md requires.
func (c *connection) receiveLoop(ctx context.Context, sessionID string, onError ports.ErrorCallback) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.setStatus(models.STTDisconnected)
			return
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Error("stt: decode frame failed", "session_id", sessionID, "error", err)
			continue
		}

		c.mu.Lock()
		c.state.LastActivity = time.Now().UTC()
		c.mu.Unlock()

		switch frame.Type {
		case "partial":
			if c.onTranscript != nil {
				c.onTranscript(sessionID, frame.Text, false)
			}
		case "final":
			if c.onTranscript != nil {
				c.onTranscript(sessionID, frame.Text, true)
			}
		case "error":
			slog.Warn("stt: engine reported error", "session_id", sessionID, "error", frame.Error)
			if c.onTranscript != nil {
				c.onTranscript(sessionID, "", true)
			}
			if onError != nil {
				event := protocol.NewServiceErrorEvent("stt", protocol.ErrTypeSTTProtocolError, "Speech recognition encountered an error.", frame.Error)
				event.SessionID = sessionID
				onError(ctx, event)
			}
		default:
			slog.Debug("stt: unrecognized frame type", "session_id", sessionID, "type", frame.Type)
		}
	}
}
