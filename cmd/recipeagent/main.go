package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"recipeagent"
	"recipeagent/analyzer"
	"recipeagent/orchestrator"
	"recipeagent/server"
	"recipeagent/session"
	"recipeagent/tools"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Debug("SETUP: No .env file loaded", "error", err)
	}

	var modelConfig recipeagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var providerConfig recipeagent.ProviderConfig
	if err := envdecode.Decode(&providerConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig recipeagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	if agentConfig.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		recipeagent.Dump(agentConfig)
	}

	// Key preflight: missing keys degrade features instead of failing startup.
	if providerConfig.SpoonacularAPIKey == "" {
		slog.Warn("SETUP: SPOONACULAR_API_KEY not set, recipe search will fail with auth errors")
	}
	if modelConfig.APIKey == "" {
		slog.Warn("SETUP: GEMINI_API_KEY not set, LLM analysis will use the deterministic fallback")
	}
	if providerConfig.TelegramBotToken == "" {
		slog.Warn("SETUP: TELEGRAM_BOT_API_KEY not set, telegram delivery disabled")
	}
	if providerConfig.SendGridAPIKey == "" {
		slog.Warn("SETUP: SENDGRID_API_KEY not set, email delivery disabled")
	}

	_, _, otelShutdown, err := recipeagent.InitOtel(ctx)
	if err != nil {
		slog.Warn("SETUP: Failed to initialize OpenTelemetry, continuing without it", "error", err)
	} else {
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
	}

	stageLogger, cleanup, err := newStageLogger(agentConfig.StageLogDir, modelConfig.Model)
	if err != nil {
		slog.Error("SETUP: Failed to create stage logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush stage log", "error", err)
		}
	}()

	snapshots, err := newSnapshotStore(ctx, agentConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create snapshot store", "error", err)
		return
	}
	store := session.NewStore(snapshots)

	var llm analyzer.LLMClient
	if modelConfig.APIKey != "" {
		gemini, err := analyzer.NewGeminiClient(ctx, modelConfig)
		if err != nil {
			slog.Error("SETUP: Failed to create Gemini client", "error", err)
			return
		}
		defer gemini.Close()
		llm = gemini
	}
	an := analyzer.New(llm, analyzer.Options{
		MaxRetries:  modelConfig.MaxRetries,
		CallTimeout: modelConfig.CallTimeout,
	})

	toolOpts := tools.Options{
		MaxRetries: providerConfig.MaxToolRetries,
		Timeout:    providerConfig.CallTimeout,
	}
	recipes := tools.NewSpoonacularClient(providerConfig.SpoonacularAPIKey, http.DefaultClient, toolOpts)

	deliverers := make(map[recipeagent.DeliveryMethod]recipeagent.Deliverer)
	if providerConfig.TelegramBotToken != "" {
		deliverers[recipeagent.DeliveryTelegram] = tools.NewTelegramClient(providerConfig.TelegramBotToken, http.DefaultClient, toolOpts)
	}
	if providerConfig.SendGridAPIKey != "" {
		deliverers[recipeagent.DeliveryEmail] = tools.NewSendGridClient(providerConfig.SendGridAPIKey, providerConfig.SendGridSender, http.DefaultClient, toolOpts)
	}

	orch := orchestrator.New(an, recipes, deliverers, store, stageLogger)
	srv := server.New(orch, store, splitOrigins(agentConfig.AllowedOrigins))

	if err := srv.Run(agentConfig.ListenAddr); err != nil {
		slog.Error("FAILURE: Server stopped", "error", err)
	}
}

// newStageLogger creates a file-backed stage logger under dir. The cleanup
// function flushes the buffered records and closes the file.
func newStageLogger(dir, model string) (recipeagent.StageLogger, func() error, error) {
	if dir == "" {
		return recipeagent.NewNoOpStageLogger(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	path := recipeagent.NewStageLogFilePath(dir, model)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	logger := recipeagent.NewFileStageLogger(f)
	cleanup := func() error {
		if err := logger.Flush(); err != nil {
			f.Close() // nolint: errcheck
			return err
		}
		return f.Close()
	}
	slog.Info("SETUP: Stage log initialized", "path", path)
	return logger, cleanup, nil
}

// newSnapshotStore picks the snapshot backend: redis when REDIS_URL is set,
// files when SESSION_SNAPSHOT_DIR is set, otherwise no persistence.
func newSnapshotStore(ctx context.Context, cfg recipeagent.AgentConfig) (session.SnapshotStore, error) {
	if cfg.RedisURL != "" {
		store, err := session.NewRedisSnapshotStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("SETUP: Session snapshots going to redis")
		return store, nil
	}
	if cfg.SnapshotDir != "" {
		slog.Info("SETUP: Session snapshots going to files", "dir", cfg.SnapshotDir)
		return session.NewFileSnapshotStore(cfg.SnapshotDir), nil
	}
	return nil, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
