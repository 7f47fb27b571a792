package stt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/backoff"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

// Config carries the STT pool's tunables, mirroring
// internal/config.STTConfig without importing the config package directly
// (adapters don't depend on internal/config; factories wire the values in).
type Config struct {
	URL               string
	MaxRetries        int
	BackoffMultiplier float64
	BackoffCap        time.Duration
	ConnectTimeout    time.Duration
}

// Pool implements ports.STTPool: one WebSocket connection per session,
// tracked in a map guarded by mu for insert/remove, each with its own
// receive goroutine — the per-connection-goroutine shape of
// voice/wsclient.go's WSClient, generalized to many concurrent sessions.
type Pool struct {
	cfg Config

	mu          sync.Mutex
	connections map[string]*connection

	onError ports.ErrorCallback
}

func NewPool(cfg Config, onError ports.ErrorCallback) *Pool {
	return &Pool{
		cfg:         cfg,
		connections: make(map[string]*connection),
		onError:     onError,
	}
}

func (p *Pool) get(sessionID string) (*connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.connections[sessionID]
	return c, ok
}

// Connect dials the STT engine for sessionID and starts its receive
// goroutine. If a connection already exists for this session it is
// replaced.
func (p *Pool) Connect(ctx context.Context, sessionID string, onTranscript ports.TranscriptCallback) error {
	p.mu.Lock()
	if existing, ok := p.connections[sessionID]; ok {
		existing.cancel()
	}
	p.mu.Unlock()

	connCtx, cancel := context.WithCancel(ctx)

	conn, err := dial(connCtx, p.cfg.URL, p.cfg.ConnectTimeout)
	if err != nil {
		cancel()
		p.emitConnectionFailed(ctx, sessionID, err)
		return err
	}

	c := &connection{
		conn:         conn,
		state:        models.NewSTTConnection(sessionID, p.cfg.URL),
		onTranscript: onTranscript,
		cancel:       cancel,
	}
	c.state.Status = models.STTConnected

	p.mu.Lock()
	p.connections[sessionID] = c
	p.mu.Unlock()

	go c.receiveLoop(connCtx, sessionID, p.onError)

	slog.Info("stt: connected", "session_id", sessionID, "url", p.cfg.URL)
	return nil
}

// SendAudio transmits audio bytes for sessionID, replaying the start
// control frame first if it hasn't been sent on this connection yet. On
// send failure it marks the connection disconnected and kicks off an
// asynchronous reconnect, returning false per the graceful-degradation
// contract: public operations never raise on transport errors.
func (p *Pool) SendAudio(ctx context.Context, sessionID string, audio []byte) bool {
	c, ok := p.get(sessionID)
	if !ok {
		return false
	}

	c.mu.Lock()
	needsStart := !c.state.AudioFormatSent
	format := c.format
	if format == "" {
		format = "pcm"
	}
	c.mu.Unlock()

	if needsStart {
		if err := c.writeJSON(startFrame{Type: "start", UserID: sessionID, AudioFormat: format}); err != nil {
			p.handleSendFailure(ctx, sessionID, c, err)
			return false
		}
		c.mu.Lock()
		c.state.AudioFormatSent = true
		c.mu.Unlock()
	}

	if err := c.writeAudio(audio); err != nil {
		p.handleSendFailure(ctx, sessionID, c, err)
		return false
	}

	c.mu.Lock()
	c.state.LastActivity = time.Now().UTC()
	c.mu.Unlock()
	return true
}

func (p *Pool) handleSendFailure(ctx context.Context, sessionID string, c *connection, err error) {
	slog.Warn("stt: send failed, reconnecting", "session_id", sessionID, "error", err)
	c.setStatus(models.STTDisconnected)
	go p.reconnect(ctx, sessionID, c.onTranscript)
}

// FinalizeTranscript asks the STT engine to flush the current utterance as
// a final event.
func (p *Pool) FinalizeTranscript(ctx context.Context, sessionID string) bool {
	c, ok := p.get(sessionID)
	if !ok {
		return false
	}
	if err := c.writeJSON(finalizeFrame{Type: "finalize"}); err != nil {
		slog.Warn("stt: finalize failed", "session_id", sessionID, "error", err)
		return false
	}
	return true
}

// Disconnect cancels the receive goroutine, sends a close frame best-effort,
// closes the socket, and removes the session from the pool.
func (p *Pool) Disconnect(sessionID string) {
	p.mu.Lock()
	c, ok := p.connections[sessionID]
	if ok {
		delete(p.connections, sessionID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	c.writeJSON(closeFrame{Type: "close"})
	c.cancel()
	c.conn.Close()
	c.setStatus(models.STTDisconnected)
}

// Status reports the current connection status for sessionID, or
// STTDisconnected if no connection exists.
func (p *Pool) Status(sessionID string) models.STTStatus {
	c, ok := p.get(sessionID)
	if !ok {
		return models.STTDisconnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// reconnect retries Connect with capped-exponential backoff, replaying the
// start frame on the next SendAudio by virtue of a fresh connection
// (AudioFormatSent resets to false). On terminal failure it marks the
// session FAILED and emits STT_CONNECTION_FAILED.
func (p *Pool) reconnect(ctx context.Context, sessionID string, onTranscript ports.TranscriptCallback) {
	if c, ok := p.get(sessionID); ok {
		c.setStatus(models.STTReconnecting)
	}

	strategy := backoff.CappedExponential(p.cfg.BackoffMultiplier, p.cfg.BackoffCap, p.cfg.MaxRetries)
	err := backoff.RetryWithCallback(ctx, strategy, func(ctx context.Context, attempt int) error {
		if c, ok := p.get(sessionID); ok {
			c.mu.Lock()
			c.state.ReconnectAttempts = attempt
			c.mu.Unlock()
		}
		return p.Connect(ctx, sessionID, onTranscript)
	}, func(attempt int, err error, delay time.Duration) {
		slog.Warn("stt: reconnect attempt failed", "session_id", sessionID, "attempt", attempt, "error", err, "retry_in", delay)
	})

	if err != nil {
		if c, ok := p.get(sessionID); ok {
			c.setStatus(models.STTFailed)
		}
		p.emitConnectionFailed(ctx, sessionID, err)
	}
}

func (p *Pool) emitConnectionFailed(ctx context.Context, sessionID string, err error) {
	if p.onError == nil {
		return
	}
	event := protocol.NewServiceErrorEvent(
		"stt",
		protocol.ErrTypeSTTConnectionFailed,
		"Speech recognition is temporarily unavailable.",
		fmt.Sprintf("session %s: %v", sessionID, err),
	)
	event.SessionID = sessionID
	p.onError(ctx, event)
}
