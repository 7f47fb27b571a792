// Command voxbridge is the voice orchestration core's entrypoint: load
// config, construct every component through internal/factory, run until a
// termination signal, shut down gracefully. Grounded on voice/main.go's
// otel.Init -> LoadConfig -> build -> Start -> wait-for-signal -> Stop
// sequence; the command tree itself (root + serve) follows cmd/alicia's
// cobra idiom, mined before that package was removed as dead weight (see
// DESIGN.md's "Dropped teacher modules").
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnbuck/voxbridge/internal/config"
	"github.com/johnbuck/voxbridge/internal/factory"
	"github.com/johnbuck/voxbridge/pkg/otel"
	"github.com/johnbuck/voxbridge/shared/protocol"
	sharedconfig "github.com/johnbuck/voxbridge/shared/config"
)

func main() {
	root := &cobra.Command{
		Use:   "voxbridge",
		Short: "Real-time voice orchestration core (STT -> LLM -> TTS, memory, plugins)",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestration core until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	result, err := otel.Init(otel.Config{
		ServiceName:  "voxbridge",
		Environment:  sharedconfig.GetEnv("VOXBRIDGE_ENVIRONMENT", "development"),
		OTLPEndpoint: sharedconfig.GetEnv("VOXBRIDGE_OTLP_ENDPOINT", ""),
	})
	if err != nil {
		slog.SetDefault(slog.New(otel.NewPrettyHandler()))
		slog.Warn("otel init failed, using stderr-only logger", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			result.Shutdown(shutdownCtx)
		}()
		slog.SetDefault(result.Logger)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := factory.Build(ctx, cfg, onError, onOutbound, onAudio)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		return err
	}

	slog.Info("voxbridge is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()
	}()

	app.Run(ctx)
	slog.Info("voxbridge stopped")
	return nil
}

// onError, onOutbound and onAudio are the default sinks for events that
// would, in a full deployment, cross to a transport layer (web/Discord/
// WebRTC) - out of scope per spec.md's Non-goals. They log at the
// boundary so the core's contract (§6 External Interfaces) is still
// observable without one.
func onError(ctx context.Context, event protocol.ServiceErrorEvent) {
	slog.Error("service error",
		"service", event.ServiceName,
		"type", event.ErrorType,
		"severity", event.Severity,
		"session_id", event.SessionID,
		"message", event.UserMessage,
	)
}

func onOutbound(ctx context.Context, sessionID string, event protocol.Envelope) {
	slog.Debug("outbound event", "session_id", sessionID, "event", event.Event)
}

func onAudio(ctx context.Context, sessionID, messageID string, chunk []byte) error {
	slog.Debug("tts audio chunk", "session_id", sessionID, "message_id", messageID, "bytes", len(chunk))
	return nil
}
