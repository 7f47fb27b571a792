// Package factory wires internal/config.Config into one concrete instance
// of every C1-C10 component plus the C9 session orchestrator, the same
// single top-level construction pass voice/main.go's LoadConfig ->
// NewSessionManager sequence performs, generalized to the larger component
// graph spec.md §4.11 describes. This is the only place concrete adapter
// types are named outside cmd/voxbridge and the adapters themselves;
// everything downstream of Build depends on internal/ports interfaces.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnbuck/voxbridge/internal/adapters/llmrouter"
	"github.com/johnbuck/voxbridge/internal/adapters/plugin"
	"github.com/johnbuck/voxbridge/internal/adapters/postgres"
	"github.com/johnbuck/voxbridge/internal/adapters/speech/stt"
	"github.com/johnbuck/voxbridge/internal/adapters/speech/tts"
	"github.com/johnbuck/voxbridge/internal/adapters/vault"
	"github.com/johnbuck/voxbridge/internal/adapters/vectorstore"
	"github.com/johnbuck/voxbridge/internal/application/cache"
	"github.com/johnbuck/voxbridge/internal/application/memory"
	"github.com/johnbuck/voxbridge/internal/application/orchestrator"
	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/ports"
	"github.com/johnbuck/voxbridge/shared/llm"
)

// App bundles every constructed component plus the background loops
// cmd/voxbridge needs to run and the pool it needs to close on shutdown.
type App struct {
	Pool *pgxpool.Pool

	Agents     ports.AgentRepository
	Sessions   ports.SessionRepository
	Messages   ports.MessageRepository
	UserFacts  ports.UserFactRepository
	Tasks      ports.ExtractionTaskRepository
	LLMProviders ports.LLMProviderRepository

	Vault   *vault.Vault
	Vectors ports.VectorStore

	STT ports.STTPool
	TTS ports.TTSClient
	LLM ports.LLMRouter

	Cache   *cache.Cache
	Memory  *memory.Service
	Plugins *plugin.Manager
	Monitor *plugin.ResourceMonitor

	Orchestrator *orchestrator.Manager

	ExtractionWorker   *memory.Worker
	SummarizationWorker *memory.SummarizationWorker
}

// Build constructs every component from cfg. onError/onOutbound/onAudio are
// the sinks every component's error, outbound event, and raw TTS audio
// chunk ultimately reaches; cmd/voxbridge supplies the transport-layer
// wiring (out of scope here per spec.md's External Interfaces - this
// module emits events, it doesn't carry them over a wire).
func Build(ctx context.Context, cfg *config.Config, onError ports.ErrorCallback, onOutbound ports.OutboundCallback, onAudio orchestrator.AudioCallback) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}

	agents := postgres.NewAgentRepo(pool)
	sessions := postgres.NewSessionRepo(pool)
	messages := postgres.NewMessageRepo(pool)
	userFacts := postgres.NewUserFactRepo(pool)
	tasks := postgres.NewExtractionTaskRepo(pool)
	llmProviders := postgres.NewLLMProviderRepo(pool)

	v := vault.New(cfg.Vault.EncryptionKey)

	vsClient := vectorstore.NewClient(cfg.VectorStore.URL, cfg.VectorStore.APIKey)
	vectors := vectorstore.NewPool(ctx, vsClient)

	sttPool := stt.NewPool(stt.Config{
		URL:               cfg.STT.URL,
		MaxRetries:        cfg.STT.MaxRetries,
		BackoffMultiplier: cfg.STT.BackoffMultiplier,
		BackoffCap:        cfg.STT.BackoffCap,
		ConnectTimeout:    cfg.STT.ConnectTimeout,
	}, onError)

	ttsAdapter := tts.NewAdapter(cfg.TTS.BaseURL, cfg.TTS.Model, cfg.TTS.DefaultVoice, cfg.TTS.SampleRate, onError)

	router := llmrouter.NewRouter(llmProviders, v, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.FallbackModel, cfg.LLM.Timeout, onError)

	convCache := cache.NewCache(cfg.Cache)

	classifierClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, llm.WithModel(cfg.Memory.SummarizationLLMModel))
	classifier := memory.NewClassifier(classifierClient, cfg.Memory.SummarizationLLMModel)
	memService := memory.NewService(agents, userFacts, tasks, vectors, classifier, cfg.Memory)

	registry := plugin.DefaultRegistry()
	pluginManager := plugin.NewManager(v, registry)
	monitor := plugin.NewResourceMonitor(cfg.Plugin.CPULimitPercent, cfg.Plugin.MemoryLimitMB, cfg.Plugin.SampleInterval, cfg.Plugin.ViolationThreshold, pluginManager)

	orch := orchestrator.NewManager(
		cfg.Orchestrator,
		agents,
		sessions,
		messages,
		sttPool,
		ttsAdapter,
		router,
		convCache,
		memService,
		onOutbound,
		onAudio,
	)

	// batch=0 -> Worker's own default (10); extraction claim-batch size has
	// no dedicated env var in spec.md's External Interfaces.
	extractionWorker := memory.NewWorker(memService, tasks, cfg.Memory.ExtractionPollInterval, 0, onOutbound)

	var summarizer *memory.SummarizationWorker
	if cfg.Memory.EnableSummarization {
		summarizer = memory.NewSummarizationWorker(memService, cfg.Memory.SummarizationInterval)
	}

	return &App{
		Pool:                pool,
		Agents:              agents,
		Sessions:            sessions,
		Messages:            messages,
		UserFacts:           userFacts,
		Tasks:               tasks,
		LLMProviders:        llmProviders,
		Vault:               v,
		Vectors:             vectors,
		STT:                 sttPool,
		TTS:                 ttsAdapter,
		LLM:                 router,
		Cache:               convCache,
		Memory:              memService,
		Plugins:             pluginManager,
		Monitor:             monitor,
		Orchestrator:        orch,
		ExtractionWorker:    extractionWorker,
		SummarizationWorker: summarizer,
	}, nil
}

// Run starts every background loop (extraction worker, optional
// summarization sweep, resource monitor, orchestrator) and blocks until ctx
// is cancelled, mirroring voice/main.go's "start everything, wait on
// context cancellation" shape.
func (a *App) Run(ctx context.Context) {
	a.Orchestrator.Start(ctx)
	go a.Cache.Run(ctx)
	go a.ExtractionWorker.Run(ctx)
	if a.SummarizationWorker != nil {
		go a.SummarizationWorker.Run(ctx)
	}
	a.Monitor.Start(ctx)

	<-ctx.Done()

	slog.Info("factory: shutting down")
	a.Monitor.Stop()
	a.Orchestrator.Stop()
	a.Pool.Close()
}
