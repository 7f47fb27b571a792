package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/application/cache"
	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

type fakeAgentRepo struct {
	byID map[string]*models.Agent
}

func (r *fakeAgentRepo) Get(ctx context.Context, id string) (*models.Agent, error) {
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAgentNotFound
}

func (r *fakeAgentRepo) GetDefault(ctx context.Context) (*models.Agent, error) {
	for _, a := range r.byID {
		if a.IsDefault {
			return a, nil
		}
	}
	return nil, domain.ErrAgentNotFound
}

type fakeSessionRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.Session
	update []*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[string]*models.Session)}
}

func (r *fakeSessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	r.update = append(r.update, s)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	inserted []models.Message
}

func (r *fakeMessageRepo) Insert(ctx context.Context, m *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, *m)
	return m, nil
}

func (r *fakeMessageRepo) RecentBySession(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

// fakeSTTPool is a single-session in-memory stand-in for ports.STTPool,
// letting tests drive transcripts directly via feed.
type fakeSTTPool struct {
	mu             sync.Mutex
	onTranscript   ports.TranscriptCallback
	connectErr     error
	sendOK         bool
	finalizeOK     bool
	disconnected   bool
	sendAudioCalls int
	finalizeCalls  int
}

func newFakeSTTPool() *fakeSTTPool {
	return &fakeSTTPool{sendOK: true, finalizeOK: true}
}

func (p *fakeSTTPool) Connect(ctx context.Context, sessionID string, onTranscript ports.TranscriptCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectErr != nil {
		return p.connectErr
	}
	p.onTranscript = onTranscript
	return nil
}

func (p *fakeSTTPool) SendAudio(ctx context.Context, sessionID string, audio []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendAudioCalls++
	return p.sendOK
}

func (p *fakeSTTPool) FinalizeTranscript(ctx context.Context, sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finalizeCalls++
	return p.finalizeOK
}

func (p *fakeSTTPool) Disconnect(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = true
}

func (p *fakeSTTPool) Status(sessionID string) models.STTStatus {
	return models.STTConnected
}

func (p *fakeSTTPool) feed(sessionID, text string, isFinal bool) {
	p.mu.Lock()
	cb := p.onTranscript
	p.mu.Unlock()
	if cb != nil {
		cb(sessionID, text, isFinal)
	}
}

// fakeTTSClient streams the given text back as a single byte-chunk.
type fakeTTSClient struct {
	mu        sync.Mutex
	calls     int
	err       error
	lastVoice string
	lastText  string
}

func (t *fakeTTSClient) Synthesize(ctx context.Context, sessionID, text, voice string, speed float64, onChunk ports.TTSAudioChunk) error {
	t.mu.Lock()
	t.calls++
	t.lastVoice = voice
	t.lastText = text
	t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	return onChunk([]byte(text))
}

func (t *fakeTTSClient) Healthy(ctx context.Context) bool { return t.err == nil }

// fakeLLMRouter streams a fixed reply via onChunk and returns it whole,
// unless ctx is already cancelled (simulating a barge-in mid-generation).
type fakeLLMRouter struct {
	mu       sync.Mutex
	reply    string
	calls    int
	lastMsgs []ports.LLMMessage
	block    chan struct{} // if non-nil, GenerateResponse waits on it or ctx.Done
}

func (l *fakeLLMRouter) GenerateResponse(ctx context.Context, agent *models.Agent, messages []ports.LLMMessage, onChunk ports.LLMChunk) string {
	l.mu.Lock()
	l.calls++
	l.lastMsgs = messages
	l.mu.Unlock()

	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return ""
		}
	}
	if ctx.Err() != nil {
		return ""
	}
	onChunk(l.reply)
	return l.reply
}

type fakeMemoryService struct {
	mu         sync.Mutex
	facts      []models.UserFact
	enqueued   int
	enqueueErr error
}

func (m *fakeMemoryService) Retrieve(ctx context.Context, userID, agentID, query string, limit int) ([]models.UserFact, error) {
	return m.facts, nil
}

func (m *fakeMemoryService) EnqueueExtraction(ctx context.Context, userID, agentID, userMessage, aiResponse string) (*models.ExtractionTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued++
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	return &models.ExtractionTask{ID: "task1"}, nil
}

func (m *fakeMemoryService) CreateManualFact(ctx context.Context, userID, agentID, payload string) (*models.UserFact, error) {
	return nil, nil
}

type capturedEvent struct {
	sessionID string
	event     protocol.EventName
	payload   any
}

type fakeOutbound struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakeOutbound) callback(ctx context.Context, sessionID string, env protocol.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{sessionID: sessionID, event: env.Event, payload: env.Data})
}

func (f *fakeOutbound) has(event protocol.EventName) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.event == event {
			return true
		}
	}
	return false
}

func (f *fakeOutbound) count(event protocol.EventName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type audioChunk struct {
	sessionID string
	messageID string
	chunk     []byte
}

type fakeAudioSink struct {
	mu     sync.Mutex
	chunks []audioChunk
}

func (a *fakeAudioSink) callback(ctx context.Context, sessionID, messageID string, chunk []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chunks = append(a.chunks, audioChunk{sessionID: sessionID, messageID: messageID, chunk: chunk})
	return nil
}

func testAgent() *models.Agent {
	a := models.NewAgent("agent1", "Test Agent", "be helpful")
	a.IsDefault = true
	a.TTS.Voice = "af_sarah"
	return a
}

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		SilenceThreshold: 50 * time.Millisecond,
		SilenceTick:      5 * time.Millisecond,
	}
}

func testCache() *cache.Cache {
	return cache.NewCache(config.CacheConfig{
		TTL:                time.Hour,
		SweepInterval:      time.Hour,
		MaxContextMessages: 50,
	})
}
