// Package orchestrator implements the Session Orchestrator (C9): the
// per-session IDLE/LISTENING/FINALIZING/GENERATING/SPEAKING state machine
// that ties STT (C3), the LLM router (C5), TTS (C4), the conversation cache
// (C6) and the memory service (C7) together into one real-time turn loop.
// Grounded directly on voice/session.go's VoiceSession: a per-session
// sync.RWMutex-guarded state, a context.WithCancel-per-turn cancellation
// signal for barge-in, and OTel spans around each suspension point.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/pkg/otel"
	"github.com/johnbuck/voxbridge/shared/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTTSSpeed = 1.0

// Session is one real-time conversation's orchestrator state, matching
// spec.md's per-session fields: current transcript, is_finalizing,
// last_audio_time, a silence monitor, and a cancellation signal for the
// in-flight LLM/TTS streams.
type Session struct {
	ID      string
	UserID  string
	AgentID string

	m *Manager

	mu            sync.RWMutex
	state         models.SessionState
	transcript    strings.Builder
	isFinalizing  bool
	lastAudioTime time.Time
	degraded      bool

	turnCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSession(m *Manager, id, userID, agentID string) *Session {
	ctx, cancel := context.WithCancel(m.ctx)
	return &Session{
		ID:      id,
		UserID:  userID,
		AgentID: agentID,
		m:       m,
		state:   models.SessionStateIdle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Session) getState() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(next models.SessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	slog.Debug("orchestrator: state transition", "session_id", s.ID, "from", prev, "to", next)
}

// Stop cancels the session's turn (if any) and the session context, then
// waits for its goroutines (silence monitor, in-flight turn) to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.turnCancel != nil {
		s.turnCancel()
	}
	s.mu.Unlock()
	s.cancel()
	s.m.stt.Disconnect(s.ID)
	s.wg.Wait()
}

// HandleAudioFrame ingests one inbound audio chunk. The first frame in IDLE
// transitions to LISTENING; a frame arriving while SPEAKING or GENERATING is
// a barge-in: the in-flight turn is cancelled and the session falls back to
// LISTENING with the new frame as its start.
func (s *Session) HandleAudioFrame(ctx context.Context, audio []byte) {
	state := s.getState()

	if state == models.SessionStateSpeaking || state == models.SessionStateGenerating {
		s.bargeIn()
		state = models.SessionStateListening
	}

	if state == models.SessionStateIdle {
		s.setState(models.SessionStateListening)
	}

	s.mu.Lock()
	s.lastAudioTime = time.Now().UTC()
	s.mu.Unlock()

	if ok := s.m.stt.SendAudio(ctx, s.ID, audio); !ok {
		s.markDegraded("stt send audio failed")
	}
}

// markDegraded records an STT-layer failure without leaving LISTENING: per
// spec, reconnect failures emit an error event and flag the session
// degraded, but the caller keeps talking and audio keeps flowing once the
// pool reconnects.
func (s *Session) markDegraded(reason string) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if already {
		return
	}
	slog.Warn("orchestrator: session degraded", "session_id", s.ID, "reason", reason, "error", domain.ErrSessionDegraded)
	s.emit(s.ctx, protocol.EventServiceError, protocol.NewServiceErrorEvent("stt", protocol.ErrTypeSTTConnectionFailed, "speech recognition is having trouble, please continue talking", reason))
}

// Degraded reports whether the session's STT connection is currently
// unhealthy.
func (s *Session) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// bargeIn cancels the current turn's context; partial assistant content
// already persisted is NOT rolled back, but the cancelled TTS stream is
// discarded (ordering guarantee 4).
func (s *Session) bargeIn() {
	s.mu.Lock()
	cancel := s.turnCancel
	s.turnCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		slog.Info("orchestrator: barge-in, cancelling in-flight turn", "session_id", s.ID)
		cancel()
	}
	s.setState(models.SessionStateListening)
}

// monitorSilence ticks every SilenceTick and, once SilenceThreshold has
// elapsed since the last audio frame without an in-flight finalize, asks the
// STT connection to finalize the transcript.
func (s *Session) monitorSilence(cfg config.OrchestratorConfig) {
	defer s.wg.Done()
	ticker := time.NewTicker(cfg.SilenceTick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkSilence(cfg.SilenceThreshold)
		}
	}
}

func (s *Session) checkSilence(threshold time.Duration) {
	s.mu.Lock()
	if s.state != models.SessionStateListening || s.isFinalizing || s.lastAudioTime.IsZero() {
		s.mu.Unlock()
		return
	}
	if time.Since(s.lastAudioTime) < threshold {
		s.mu.Unlock()
		return
	}
	s.isFinalizing = true
	s.mu.Unlock()

	s.setState(models.SessionStateFinalizing)
	if ok := s.m.stt.FinalizeTranscript(s.ctx, s.ID); !ok {
		s.markDegraded("finalize transcript failed")
		// Finalize didn't take; stay in LISTENING (degraded) rather than
		// getting stuck in FINALIZING, and allow the next tick to retry.
		s.mu.Lock()
		s.isFinalizing = false
		s.mu.Unlock()
		s.setState(models.SessionStateListening)
	}
}

// onTranscript is C3's TranscriptCallback for this session: partial
// transcripts are forwarded as partial_transcript events and update the
// running buffer; the final transcript triggers the turn.
func (s *Session) onTranscript(sessionID string, text string, isFinal bool) {
	s.mu.Lock()
	s.degraded = false
	s.mu.Unlock()

	if !isFinal {
		s.mu.Lock()
		s.transcript.Reset()
		s.transcript.WriteString(text)
		s.mu.Unlock()
		s.emit(s.ctx, protocol.EventPartialTranscript, protocol.PartialTranscript{SessionID: s.ID, Text: text})
		return
	}

	s.mu.Lock()
	s.isFinalizing = false
	s.mu.Unlock()

	s.emit(s.ctx, protocol.EventFinalTranscript, protocol.FinalTranscript{SessionID: s.ID, Text: text})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runTurn(text)
	}()
}

// runTurn persists the final user message, composes context, streams the
// LLM response, persists the assistant message (before TTS begins, per
// ordering guarantee 1), enqueues extraction (after, per guarantee 2), and
// streams TTS audio. Any step may be cancelled by a barge-in via turnCancel.
func (s *Session) runTurn(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		// Empty transcript policy: skip LLM and TTS entirely, go back to
		// LISTENING.
		s.setState(models.SessionStateListening)
		return
	}

	turnCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.turnCancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.turnCancel != nil {
			s.turnCancel()
			s.turnCancel = nil
		}
		s.mu.Unlock()
	}()

	turnCtx, span := otel.Tracer("voxbridge-orchestrator").Start(turnCtx, "orchestrator.turn",
		trace.WithAttributes(attribute.String("session.id", s.ID)))
	defer span.End()

	agent, err := s.m.agents.Get(turnCtx, s.AgentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent lookup failed")
		s.setState(models.SessionStateIdle)
		return
	}

	entry := s.m.cache.GetOrCreate(turnCtx, &models.Session{ID: s.ID, UserID: s.UserID, AgentID: s.AgentID}, agent)

	userMsg := models.NewMessage(s.newMessageID(), s.ID, models.RoleUser, text)
	if stored, err := s.m.messages.Insert(turnCtx, userMsg); err == nil {
		userMsg = stored
	}
	s.m.cache.AddMessage(turnCtx, s.ID, *userMsg)

	s.setState(models.SessionStateGenerating)

	llmMessages := s.m.cache.BuildContext(turnCtx, entry, s.m.memory, 0, true, "")

	genStart := time.Now()
	assistantMsgID := s.newMessageID()
	accumulated := s.m.llm.GenerateResponse(turnCtx, agent, llmMessages, func(delta string) {
		s.emit(turnCtx, protocol.EventAIResponseChunk, protocol.AIResponseChunk{SessionID: s.ID, MessageID: assistantMsgID, Delta: delta})
	})

	if turnCtx.Err() != nil {
		// Cancelled by barge-in; partial content is not persisted.
		span.SetStatus(codes.Ok, "turn cancelled")
		return
	}

	if strings.TrimSpace(accumulated) == "" {
		// LLM failure: do not persist a placeholder, emit error event,
		// return to IDLE. The LLM router itself has already emitted the
		// LLM_* error event via its error callback.
		span.SetStatus(codes.Error, "empty llm response")
		s.setState(models.SessionStateIdle)
		return
	}

	llmLatency := time.Since(genStart).Milliseconds()
	s.emit(turnCtx, protocol.EventAIResponseComplete, protocol.AIResponseComplete{SessionID: s.ID, MessageID: assistantMsgID, Content: accumulated})

	assistantMsg := models.NewMessage(assistantMsgID, s.ID, models.RoleAssistant, accumulated)
	assistantMsg.LLMLatencyMs = &llmLatency
	if stored, err := s.m.messages.Insert(turnCtx, assistantMsg); err == nil {
		assistantMsg = stored
	}
	s.m.cache.AddMessage(turnCtx, s.ID, *assistantMsg)

	// Extraction task enqueued AFTER the assistant message is persisted
	// (ordering guarantee 2).
	if _, err := s.m.memory.EnqueueExtraction(turnCtx, s.UserID, s.AgentID, text, accumulated); err != nil {
		slog.Warn("orchestrator: failed to enqueue extraction", "session_id", s.ID, "error", err)
	}

	s.setState(models.SessionStateSpeaking)
	s.speak(turnCtx, agent, assistantMsgID, accumulated)

	if turnCtx.Err() == nil {
		s.setState(models.SessionStateIdle)
	}
}

// speak streams TTS audio for text, emitting tts_start/tts_complete. TTS
// failures don't roll back the already-persisted assistant text; the user
// simply gets text-only output.
func (s *Session) speak(ctx context.Context, agent *models.Agent, messageID, text string) {
	voice := agent.TTS.Voice
	s.emit(ctx, protocol.EventTTSStart, protocol.TTSStart{SessionID: s.ID, MessageID: messageID})

	start := time.Now()
	totalBytes := 0
	err := s.m.tts.Synthesize(ctx, s.ID, text, voice, defaultTTSSpeed, func(chunk []byte) error {
		totalBytes += len(chunk)
		return s.m.onAudioChunk(s.ID, messageID, chunk)
	})
	if err != nil {
		slog.Error("orchestrator: tts synthesis failed", "session_id", s.ID, "error", err)
		return
	}

	duration := time.Since(start).Milliseconds()
	s.emit(ctx, protocol.EventTTSComplete, protocol.TTSComplete{SessionID: s.ID, MessageID: messageID, AudioBytes: totalBytes, DurationMs: duration})
}

func (s *Session) emit(ctx context.Context, event protocol.EventName, payload any) {
	if s.m.outbound == nil {
		return
	}
	s.m.outbound(ctx, s.ID, *protocol.NewEnvelope(event, payload))
}

func (s *Session) newMessageID() string {
	return s.m.newMessageID()
}
