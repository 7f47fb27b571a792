// Package config loads voxbridge's runtime configuration from environment
// variables, following the env-var surface of spec.md's External Interfaces.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/johnbuck/voxbridge/shared/config"
)

// Config holds all configuration for the voice orchestration core.
type Config struct {
	Database  DatabaseConfig
	STT       STTConfig
	TTS       TTSConfig
	LLM       LLMConfig
	VectorStore VectorStoreConfig
	Vault     VaultConfig
	Memory    MemoryConfig
	Plugin    PluginConfig
	Cache     CacheConfig
	Orchestrator OrchestratorConfig
}

// OrchestratorConfig configures the session orchestrator's silence detection
// and per-turn timeouts (C9).
type OrchestratorConfig struct {
	SilenceThreshold time.Duration
	SilenceTick      time.Duration
}

type DatabaseConfig struct {
	URL      string
	Timezone string
}

// STTConfig configures the WebSocket speech-to-text connection pool (C3).
type STTConfig struct {
	URL               string
	MaxRetries        int
	BackoffMultiplier float64
	BackoffCap        time.Duration
	ConnectTimeout    time.Duration
}

// TTSConfig configures the streaming text-to-speech HTTP client (C4).
type TTSConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	DefaultVoice string
	SampleRate   int
}

// LLMConfig configures the default LLM provider used when a session's
// agent has no provider_ref, or as the C5 fallback provider.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	FallbackModel  string
	Timeout        time.Duration
}

// VectorStoreConfig configures the mem0-compatible vector store client (C2/C7).
type VectorStoreConfig struct {
	URL    string
	APIKey string
}

// VaultConfig configures the credential vault (C1).
type VaultConfig struct {
	EncryptionKey string // ENCRYPTION_KEY, falling back to PLUGIN_ENCRYPTION_KEY
}

// MemoryConfig configures the Memory Service (C7/C8): per-user fact caps
// and pruning, the extraction shortcut/dedup/temporal/summarization
// feature gates, and the error-guard circuit breaker.
type MemoryConfig struct {
	MaxFactsPerUser        int
	ExtractionPollInterval time.Duration
	MaxExtractionAttempts  int

	PruningStrategy   string // "fifo" or "lru"
	PruningBatchSize  int

	VectorSimilarityThreshold float64

	EnableExtractionShortcuts bool
	ShortcutMaxLength         int

	EnableDeduplication           bool
	EmbeddingSimilarityThreshold float64
	TextSimilarityThreshold      float64

	EnableSummarization              bool
	SummarizationInterval            time.Duration
	SummarizationMinAge              time.Duration
	SummarizationMinClusterSize      int
	SummarizationMaxClusterSize      int
	SummarizationSimilarityThreshold float64
	SummarizationLLMModel            string

	EnableTemporalDetection bool

	EnableErrorGuard bool
	GuardWindow      time.Duration
	GuardThreshold   int
	GuardCooldown    time.Duration
}

// CacheConfig configures the conversation cache's TTL sweep and context
// composition (C6).
type CacheConfig struct {
	TTL                time.Duration
	SweepInterval      time.Duration
	MaxContextMessages int
	Timezone           string
}

// PluginConfig configures the plugin manager / resource monitor (C10).
type PluginConfig struct {
	CPULimitPercent    float64
	MemoryLimitMB      float64
	SampleInterval     time.Duration
	ViolationThreshold int
}

// Load reads configuration from environment variables, applying the same
// defaults-with-override pattern as shared/config's helpers.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:      config.GetEnv("VOXBRIDGE_DATABASE_URL", ""),
			Timezone: config.GetEnv("VOXBRIDGE_DATABASE_TIMEZONE", "UTC"),
		},
		STT: STTConfig{
			URL:               config.GetEnv("VOXBRIDGE_STT_URL", "ws://localhost:8001/v1/ws"),
			MaxRetries:        config.GetEnvInt("VOXBRIDGE_STT_MAX_RETRIES", 5),
			BackoffMultiplier: config.GetEnvFloat("VOXBRIDGE_STT_BACKOFF_MULTIPLIER", 2.0),
			BackoffCap:        time.Duration(config.GetEnvInt("VOXBRIDGE_STT_BACKOFF_CAP_SECONDS", 30)) * time.Second,
			ConnectTimeout:    time.Duration(config.GetEnvInt("VOXBRIDGE_STT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		TTS: TTSConfig{
			BaseURL:      config.GetEnv("VOXBRIDGE_TTS_URL", "http://localhost:8001/v1"),
			APIKey:       config.GetEnv("VOXBRIDGE_TTS_API_KEY", ""),
			Model:        config.GetEnv("VOXBRIDGE_TTS_MODEL", "kokoro"),
			DefaultVoice: config.GetEnv("VOXBRIDGE_TTS_VOICE", "af_sarah"),
			SampleRate:   config.GetEnvInt("VOXBRIDGE_TTS_SAMPLE_RATE", 24000),
		},
		LLM: LLMConfig{
			BaseURL:       config.GetEnv("VOXBRIDGE_LLM_URL", "http://localhost:8000/v1"),
			APIKey:        config.GetEnv("VOXBRIDGE_LLM_API_KEY", ""),
			Model:         config.GetEnv("VOXBRIDGE_LLM_MODEL", "Qwen/Qwen3-8B-AWQ"),
			FallbackModel: config.GetEnv("VOXBRIDGE_LLM_FALLBACK_MODEL", ""),
			Timeout:       time.Duration(config.GetEnvInt("VOXBRIDGE_LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		VectorStore: VectorStoreConfig{
			URL:    config.GetEnv("VOXBRIDGE_VECTOR_STORE_URL", "http://localhost:7800"),
			APIKey: config.GetEnv("VOXBRIDGE_VECTOR_STORE_API_KEY", ""),
		},
		Vault: VaultConfig{
			EncryptionKey: config.GetEnvWithFallback("ENCRYPTION_KEY", "PLUGIN_ENCRYPTION_KEY", ""),
		},
		Memory: MemoryConfig{
			MaxFactsPerUser:        config.GetEnvInt("MAX_MEMORIES_PER_USER", 500),
			ExtractionPollInterval: time.Duration(config.GetEnvInt("VOXBRIDGE_MEMORY_POLL_SECONDS", 5)) * time.Second,
			MaxExtractionAttempts:  config.GetEnvInt("VOXBRIDGE_MEMORY_MAX_ATTEMPTS", 3),

			PruningStrategy:  config.GetEnv("PRUNING_STRATEGY", "fifo"),
			PruningBatchSize: config.GetEnvInt("PRUNING_BATCH_SIZE", 10),

			VectorSimilarityThreshold: config.GetEnvFloat("VECTOR_SIMILARITY_THRESHOLD", 0.7),

			EnableExtractionShortcuts: config.GetEnvBool("ENABLE_EXTRACTION_SHORTCUTS", true),
			ShortcutMaxLength:         config.GetEnvInt("SHORTCUT_MAX_LENGTH", 100),

			EnableDeduplication:          config.GetEnvBool("ENABLE_DEDUPLICATION", true),
			EmbeddingSimilarityThreshold: config.GetEnvFloat("EMBEDDING_SIMILARITY_THRESHOLD", 0.85),
			TextSimilarityThreshold:      config.GetEnvFloat("TEXT_SIMILARITY_THRESHOLD", 0.90),

			EnableSummarization:              config.GetEnvBool("ENABLE_SUMMARIZATION", false),
			SummarizationInterval:            time.Duration(config.GetEnvInt("SUMMARIZATION_INTERVAL_HOURS", 24)) * time.Hour,
			SummarizationMinAge:              time.Duration(config.GetEnvInt("SUMMARIZATION_MIN_AGE_DAYS", 7)) * 24 * time.Hour,
			SummarizationMinClusterSize:      config.GetEnvInt("SUMMARIZATION_MIN_CLUSTER_SIZE", 3),
			SummarizationMaxClusterSize:      config.GetEnvInt("SUMMARIZATION_MAX_CLUSTER_SIZE", 8),
			SummarizationSimilarityThreshold: config.GetEnvFloat("SUMMARIZATION_SIMILARITY_THRESHOLD", 0.75),
			SummarizationLLMModel:            config.GetEnv("SUMMARIZATION_LLM_MODEL", "openai/gpt-4o-mini"),
			EnableTemporalDetection:          config.GetEnvBool("ENABLE_TEMPORAL_DETECTION", true),

			EnableErrorGuard: config.GetEnvBool("ENABLE_ERROR_GUARD", true),
			GuardWindow:      time.Duration(config.GetEnvInt("VOXBRIDGE_MEMORY_GUARD_WINDOW_SECONDS", 60)) * time.Second,
			GuardThreshold:   config.GetEnvInt("VOXBRIDGE_MEMORY_GUARD_THRESHOLD", 5),
			GuardCooldown:    time.Duration(config.GetEnvInt("VOXBRIDGE_MEMORY_GUARD_COOLDOWN_SECONDS", 120)) * time.Second,
		},
		Plugin: PluginConfig{
			CPULimitPercent:    config.GetEnvFloat("VOXBRIDGE_PLUGIN_CPU_LIMIT_PERCENT", 50.0),
			MemoryLimitMB:      config.GetEnvFloat("VOXBRIDGE_PLUGIN_MEMORY_LIMIT_MB", 500.0),
			SampleInterval:     time.Duration(config.GetEnvInt("VOXBRIDGE_PLUGIN_SAMPLE_INTERVAL_SECONDS", 5)) * time.Second,
			ViolationThreshold: config.GetEnvInt("VOXBRIDGE_PLUGIN_VIOLATION_THRESHOLD", 3),
		},
		Cache: CacheConfig{
			TTL:                time.Duration(config.GetEnvInt("CONVERSATION_CACHE_TTL_MINUTES", 30)) * time.Minute,
			SweepInterval:      time.Duration(config.GetEnvInt("CACHE_CLEANUP_INTERVAL_SECONDS", 60)) * time.Second,
			MaxContextMessages: config.GetEnvInt("MAX_CONTEXT_MESSAGES", 20),
			Timezone:           config.GetEnv("VOXBRIDGE_DEFAULT_TIMEZONE", "America/Los_Angeles"),
		},
		Orchestrator: OrchestratorConfig{
			SilenceThreshold: time.Duration(config.GetEnvInt("SILENCE_THRESHOLD_MS", 600)) * time.Millisecond,
			SilenceTick:      time.Duration(config.GetEnvInt("VOXBRIDGE_SILENCE_TICK_MS", 100)) * time.Millisecond,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "database URL is required")
	}
	if c.STT.URL == "" {
		errs = append(errs, "STT URL is required")
	}
	if c.TTS.BaseURL != "" && !isValidURL(c.TTS.BaseURL) {
		errs = append(errs, "TTS URL must be a valid URL")
	}
	if c.LLM.BaseURL == "" || !isValidURL(c.LLM.BaseURL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}
	if c.Memory.MaxExtractionAttempts < 1 {
		errs = append(errs, "memory max extraction attempts must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %v", errs)
	}
	return nil
}
