// Package ports defines the interfaces C11's factories wire together:
// repositories, the vector store, the credential vault, the STT/TTS/LLM
// adapters, and the error-event bus. Components depend on these interfaces,
// never on concrete adapters, so they can be constructed and tested in
// isolation.
package ports

import (
	"context"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/shared/protocol"
)

// --- Repositories ---

type AgentRepository interface {
	Get(ctx context.Context, id string) (*models.Agent, error)
	GetDefault(ctx context.Context) (*models.Agent, error)
}

type SessionRepository interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, s *models.Session) error
}

type MessageRepository interface {
	// Insert enforces the 10-second duplicate-suppression window: if an
	// identical (session_id, role, content) row exists with timestamp within
	// the last 10 seconds, that row is returned unchanged instead of a new
	// insert.
	Insert(ctx context.Context, m *models.Message) (*models.Message, error)
	RecentBySession(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

type UserFactRepository interface {
	Get(ctx context.Context, id string) (*models.UserFact, error)
	GetByVectorID(ctx context.Context, vectorID string) (*models.UserFact, error)
	Insert(ctx context.Context, f *models.UserFact) error
	Update(ctx context.Context, f *models.UserFact) error
	Delete(ctx context.Context, id string) error
	// CountForUser counts facts in scope, used by pruning to detect overflow
	// of the per-user cap.
	CountForUser(ctx context.Context, userID string, agentID *string) (int, error)
	// OldestUnprotected returns the oldest, least-recently-accessed
	// non-protected facts in scope, for FIFO/LRU pruning.
	OldestUnprotected(ctx context.Context, userID string, agentID *string, limit int) ([]models.UserFact, error)
	// ListValid returns every currently-valid (validity_end IS NULL) fact in
	// scope, the candidate set text-based deduplication compares against.
	ListValid(ctx context.Context, userID string, agentID *string) ([]models.UserFact, error)
	// ListStaleUnsummarized returns every currently-valid, non-protected,
	// not-yet-summarized fact across all users created before cutoff, the
	// candidate set background summarization clusters.
	ListStaleUnsummarized(ctx context.Context, cutoff time.Time) ([]models.UserFact, error)
}

type ExtractionTaskRepository interface {
	Get(ctx context.Context, id string) (*models.ExtractionTask, error)
	Insert(ctx context.Context, t *models.ExtractionTask) error
	Update(ctx context.Context, t *models.ExtractionTask) error
	// ClaimPending returns up to `limit` pending tasks and atomically marks
	// them processing, so two worker instances never race on the same task.
	ClaimPending(ctx context.Context, limit int) ([]models.ExtractionTask, error)
}

type LLMProviderRepository interface {
	Get(ctx context.Context, id string) (*models.LLMProvider, error)
}

// --- Vector store (C2's normalizer sits in front of this) ---

// VectorStore is the mem0-compatible vector store client. Results from Add
// and Search are normalized items (C2), never the raw wire shape.
type VectorStore interface {
	Add(ctx context.Context, messages []VectorMessage, userID string, infer bool) ([]NormalizedItem, error)
	Search(ctx context.Context, query string, userID string, limit int) ([]NormalizedItem, error)
	Delete(ctx context.Context, vectorID string) error
}

type VectorMessage struct {
	Role    string
	Content string
}

// NormalizedItem is C2's unified output shape for both add and search
// responses.
type NormalizedItem struct {
	ID       string
	Text     string
	Event    string
	Score    float64
	Metadata map[string]any
}

// --- Embeddings ---

type EmbeddingResult struct {
	Embedding  []float32
	Model      string
	Dimensions int
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (*EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*EmbeddingResult, error)
}

// --- Credential vault (C1) ---

// CredentialVault encrypts/decrypts sensitive fields within plugin configs
// and LLM provider API keys, tagging ciphertext with the "__encrypted__:"
// marker.
type CredentialVault interface {
	EncryptFields(pluginType string, config map[string]any) (map[string]any, error)
	DecryptFields(pluginType string, config map[string]any) (map[string]any, error)
	IsFieldEncrypted(pluginType, field string, value any) bool
	RegisterSensitiveFields(pluginType string, fields []string)

	EncryptValue(plaintext string) (string, error)
	DecryptValue(ciphertext string) (string, error)
}

// --- STT pool (C3) ---

type TranscriptCallback func(sessionID string, text string, isFinal bool)

// STTPool manages one WebSocket connection per session to the STT engine.
// All methods are safe to call concurrently and never panic on transport
// errors: they return false/an error and emit an error event via the bus.
type STTPool interface {
	Connect(ctx context.Context, sessionID string, onTranscript TranscriptCallback) error
	SendAudio(ctx context.Context, sessionID string, audio []byte) bool
	FinalizeTranscript(ctx context.Context, sessionID string) bool
	Disconnect(sessionID string)
	Status(sessionID string) models.STTStatus
}

// --- TTS client (C4) ---

type TTSAudioChunk func(chunk []byte) error

type TTSClient interface {
	// Synthesize streams PCM audio chunks to onChunk as they arrive,
	// returning once the stream completes, fails, or ctx is cancelled.
	Synthesize(ctx context.Context, sessionID, text, voice string, speed float64, onChunk TTSAudioChunk) error
	Healthy(ctx context.Context) bool
}

// --- LLM router (C5) ---

type LLMChunk func(delta string)

type LLMRouter interface {
	// GenerateResponse resolves the provider for agentID (provider_ref ->
	// vault-decrypted LLMProvider, or the env-configured default), streams
	// the completion via onChunk, and returns the accumulated text. On
	// unrecoverable failure after any configured fallback, it returns "" and
	// emits the appropriate LLM_* error event; it never returns an error to
	// the real-time caller.
	GenerateResponse(ctx context.Context, agent *models.Agent, messages []LLMMessage, onChunk LLMChunk) string
}

type LLMMessage struct {
	Role    string
	Content string
}

// --- Conversation cache (C6) ---

type ConversationCache interface {
	GetOrCreate(ctx context.Context, session *models.Session, agent *models.Agent) *models.CachedContext
	AddMessage(ctx context.Context, sessionID string, m models.Message) (*models.Message, bool)
	Invalidate(sessionID string)
}

// --- Memory service (C7) ---

type MemoryService interface {
	// Retrieve returns relevant facts for a turn, used to compose LLM context.
	Retrieve(ctx context.Context, userID string, agentID string, query string, limit int) ([]models.UserFact, error)
	// EnqueueExtraction queues a background extraction task (C8 drains it).
	EnqueueExtraction(ctx context.Context, userID, agentID, userMessage, aiResponse string) (*models.ExtractionTask, error)
	// CreateManualFact bypasses relevance filtering, per the
	// MANUAL_FACT_CREATION: marker contract.
	CreateManualFact(ctx context.Context, userID, agentID string, payload string) (*models.UserFact, error)
}

// --- Plugin manager (C10) ---

type PluginManager interface {
	InitializeAgentPlugins(ctx context.Context, agent *models.Agent) []models.PluginInstance
	StopAgentPlugins(agentID string)
	Dispatch(ctx context.Context, agentID, pluginType string, payload any, timeout time.Duration) (any, error)
}

// --- Error bus (C11) ---

// ErrorCallback receives typed error events; it never blocks the caller for
// long and never panics.
type ErrorCallback func(ctx context.Context, event protocol.ServiceErrorEvent)

// OutboundCallback receives closed-set outbound events toward the transport
// layer (partial_transcript, tts_complete, etc).
type OutboundCallback func(ctx context.Context, sessionID string, event protocol.Envelope)
