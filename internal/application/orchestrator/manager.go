package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/application/cache"
	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/id"
)

// AudioCallback delivers one outbound TTS audio chunk to the transport
// layer. It's kept separate from ports.OutboundCallback since audio is raw
// bytes, not a JSON-encodable event envelope.
type AudioCallback func(ctx context.Context, sessionID, messageID string, chunk []byte) error

// Manager owns every active Session, mirroring voice/session.go's
// SessionManager: a map guarded by a short-lived sync.RWMutex, with each
// Session's own state protected independently so one session's turn never
// blocks another's.
type Manager struct {
	cfg config.OrchestratorConfig

	agents   ports.AgentRepository
	sessions ports.SessionRepository
	messages ports.MessageRepository
	stt      ports.STTPool
	tts      ports.TTSClient
	llm      ports.LLMRouter
	cache    *cache.Cache
	memory   ports.MemoryService

	outbound ports.OutboundCallback
	onAudio  AudioCallback

	mu       sync.RWMutex
	active   map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(
	cfg config.OrchestratorConfig,
	agents ports.AgentRepository,
	sessionRepo ports.SessionRepository,
	messages ports.MessageRepository,
	stt ports.STTPool,
	tts ports.TTSClient,
	llm ports.LLMRouter,
	convCache *cache.Cache,
	memory ports.MemoryService,
	outbound ports.OutboundCallback,
	onAudio AudioCallback,
) *Manager {
	return &Manager{
		cfg:      cfg,
		agents:   agents,
		sessions: sessionRepo,
		messages: messages,
		stt:      stt,
		tts:      tts,
		llm:      llm,
		cache:    convCache,
		memory:   memory,
		outbound: outbound,
		onAudio:  onAudio,
		active:   make(map[string]*Session),
	}
}

// Start prepares the manager for use; callers run it once before the first
// StartSession call. Cancelling ctx tears down every active session.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
}

// Stop ends every active session and releases manager resources.
func (m *Manager) Stop() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.active))
	for _, s := range m.active {
		sessions = append(sessions, s)
	}
	m.active = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
}

// StartSession creates and persists a new Session row, wires a new
// orchestrator Session to it, connects the STT pool, and starts the silence
// monitor. Any state-machine transition begins from IDLE.
func (m *Manager) StartSession(ctx context.Context, userID, agentID string, sessionType models.SessionType) (*Session, error) {
	agent, err := m.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("start session: resolve agent: %w", err)
	}

	dbSession := models.NewSession(id.New(id.PrefixSession), userID, agentID, sessionType)
	if err := m.sessions.Create(ctx, dbSession); err != nil {
		return nil, fmt.Errorf("start session: persist session row: %w", err)
	}

	m.cache.GetOrCreate(ctx, dbSession, agent)

	sess := newSession(m, dbSession.ID, userID, agentID)

	if err := m.stt.Connect(sess.ctx, sess.ID, sess.onTranscript); err != nil {
		sess.cancel()
		return nil, fmt.Errorf("start session: connect stt: %w", err)
	}

	sess.wg.Add(1)
	go sess.monitorSilence(m.cfg)

	m.mu.Lock()
	m.active[sess.ID] = sess
	m.mu.Unlock()

	slog.Info("orchestrator: session started", "session_id", sess.ID, "user_id", userID, "agent_id", agentID)
	return sess, nil
}

// EndSession tears down a session (disconnect, cancel, cache invalidate) and
// marks its persisted row ended. Any state transitions to IDLE.
func (m *Manager) EndSession(ctx context.Context, sessionID string) {
	m.mu.Lock()
	sess, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}

	sess.Stop()
	sess.setState(models.SessionStateIdle)
	m.cache.Invalidate(sessionID)

	if dbSession, err := m.sessions.Get(ctx, sessionID); err == nil {
		now := time.Now().UTC()
		dbSession.Active = false
		dbSession.EndedAt = &now
		_ = m.sessions.Update(ctx, dbSession)
	}

	slog.Info("orchestrator: session ended", "session_id", sessionID)
}

// Session looks up an active session by ID.
func (m *Manager) Session(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.active[sessionID]
	return s, ok
}

// HandleAudioFrame routes an inbound audio frame to the named session, if
// it's active.
func (m *Manager) HandleAudioFrame(ctx context.Context, sessionID string, audio []byte) {
	sess, ok := m.Session(sessionID)
	if !ok {
		slog.Warn("orchestrator: audio frame for unknown session", "session_id", sessionID)
		return
	}
	sess.HandleAudioFrame(ctx, audio)
}

func (m *Manager) onAudioChunk(sessionID, messageID string, chunk []byte) error {
	if m.onAudio == nil {
		return nil
	}
	return m.onAudio(m.ctx, sessionID, messageID, chunk)
}

func (m *Manager) newMessageID() string {
	return id.New(id.PrefixMessage)
}
