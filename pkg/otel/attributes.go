package otel

import "go.opentelemetry.io/otel/attribute"

// Standard attribute keys shared across voxbridge's components.
const (
	AttrSessionID   = "session.id"
	AttrUserID      = "user.id"
	AttrAgentID     = "agent.id"
	AttrMessageID   = "message.id"
	AttrRequestID   = "request.id"
	AttrRequestType = "request.type"

	AttrSessionState = "session.state"

	AttrLLMModel            = "llm.model"
	AttrLLMProvider         = "llm.provider"
	AttrLLMPromptTokens     = "llm.usage.prompt_tokens"
	AttrLLMCompletionTokens = "llm.usage.completion_tokens"
	AttrLLMTotalTokens      = "llm.usage.total_tokens"

	AttrSTTSessionID  = "stt.session_id"
	AttrSTTReconnects = "stt.reconnect_attempt"

	AttrTTSModel      = "tts.model"
	AttrTTSVoice      = "tts.voice"
	AttrTTSDurationMs = "tts.duration_ms"
	AttrTTSLatencyMs  = "tts.latency_ms"

	AttrWSMessageType = "ws.message_type"
	AttrWSDirection   = "ws.direction"

	AttrMemoryFactID     = "memory.fact_id"
	AttrMemoryBank       = "memory.bank"
	AttrMemoryTaskStatus = "memory.task_status"

	AttrPluginType = "plugin.type"
	AttrPluginID   = "plugin.id"
)

func SessionID(id string) attribute.KeyValue { return attribute.String(AttrSessionID, id) }
func UserID(id string) attribute.KeyValue    { return attribute.String(AttrUserID, id) }
func AgentID(id string) attribute.KeyValue   { return attribute.String(AttrAgentID, id) }
func MessageID(id string) attribute.KeyValue { return attribute.String(AttrMessageID, id) }
func RequestID(id string) attribute.KeyValue { return attribute.String(AttrRequestID, id) }
func RequestType(t string) attribute.KeyValue { return attribute.String(AttrRequestType, t) }

func SessionState(s string) attribute.KeyValue { return attribute.String(AttrSessionState, s) }

func LLMModel(model string) attribute.KeyValue       { return attribute.String(AttrLLMModel, model) }
func LLMProvider(provider string) attribute.KeyValue { return attribute.String(AttrLLMProvider, provider) }
func LLMPromptTokens(n int) attribute.KeyValue       { return attribute.Int(AttrLLMPromptTokens, n) }
func LLMCompletionTokens(n int) attribute.KeyValue   { return attribute.Int(AttrLLMCompletionTokens, n) }
func LLMTotalTokens(n int) attribute.KeyValue        { return attribute.Int(AttrLLMTotalTokens, n) }

func STTSessionID(id string) attribute.KeyValue   { return attribute.String(AttrSTTSessionID, id) }
func STTReconnects(attempt int) attribute.KeyValue { return attribute.Int(AttrSTTReconnects, attempt) }

func TTSModel(model string) attribute.KeyValue  { return attribute.String(AttrTTSModel, model) }
func TTSVoice(voice string) attribute.KeyValue  { return attribute.String(AttrTTSVoice, voice) }
func TTSDurationMs(ms int64) attribute.KeyValue { return attribute.Int64(AttrTTSDurationMs, ms) }
func TTSLatencyMs(ms int64) attribute.KeyValue  { return attribute.Int64(AttrTTSLatencyMs, ms) }

func WSMessageType(t string) attribute.KeyValue { return attribute.String(AttrWSMessageType, t) }
func WSDirection(dir string) attribute.KeyValue { return attribute.String(AttrWSDirection, dir) }

func MemoryFactID(id string) attribute.KeyValue     { return attribute.String(AttrMemoryFactID, id) }
func MemoryBank(bank string) attribute.KeyValue     { return attribute.String(AttrMemoryBank, bank) }
func MemoryTaskStatus(s string) attribute.KeyValue  { return attribute.String(AttrMemoryTaskStatus, s) }

func PluginType(t string) attribute.KeyValue { return attribute.String(AttrPluginType, t) }
func PluginID(id string) attribute.KeyValue  { return attribute.String(AttrPluginID, id) }
