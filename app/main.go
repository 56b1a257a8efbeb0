package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/worldbrief/worldbrief/app/api"
	"github.com/worldbrief/worldbrief/app/audio"
	"github.com/worldbrief/worldbrief/app/cfg"
	"github.com/worldbrief/worldbrief/app/classify"
	"github.com/worldbrief/worldbrief/app/config"
	"github.com/worldbrief/worldbrief/app/database"
	"github.com/worldbrief/worldbrief/app/emailer"
	"github.com/worldbrief/worldbrief/app/fetcher"
	"github.com/worldbrief/worldbrief/app/ingest"
	"github.com/worldbrief/worldbrief/app/llm"
	"github.com/worldbrief/worldbrief/app/pipeline"
	"github.com/worldbrief/worldbrief/app/summarize"
)

func main() {
	// Optional .env file; real environment takes precedence.
	godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting worldbrief", "version", appCfg.Version)

	if err := os.MkdirAll(filepath.Dir(appCfg.SQLitePath), 0o755); err != nil {
		slog.Error("Failed to create data directory", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(appCfg.SQLitePath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	itemRepo := database.NewItemRepository(db)
	briefingRepo := database.NewBriefingRepository(db)

	if appCfg.Serve {
		runServer(appCfg, itemRepo, briefingRepo)
		return
	}

	p := buildPipeline(appCfg, itemRepo, briefingRepo)

	if appCfg.Schedule {
		runScheduled(appCfg, p)
		return
	}

	if err := p.Run(context.Background()); err != nil {
		slog.Error("Briefing run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func buildPipeline(appCfg *cfg.Cfg, itemRepo database.ItemRepository, briefingRepo database.BriefingRepository) *pipeline.Pipeline {
	loader := config.NewLoader(appCfg.ConfigDir)

	maxPerSource := 0
	if sources, err := loader.LoadSources(); err == nil {
		maxPerSource = sources.MaxItemsPerSource
	} else {
		slog.Warn("Could not preload sources config", "error", err)
	}

	httpClient := fetcher.NewClient(appCfg.UserAgent)

	modelClient := llm.NewClient(llm.Config{
		APIKey:       appCfg.LLMAPIKey,
		BaseURL:      appCfg.LLMBaseURL,
		DefaultModel: appCfg.LLMModel,
		TaskModels: map[llm.Task]string{
			llm.TaskClassify:  appCfg.ClassifyModel,
			llm.TaskSummarize: appCfg.SummarizeModel,
			llm.TaskSpeech:    appCfg.SpeechModel,
		},
	})

	var renderer pipeline.AudioRenderer
	if appCfg.AudioEnabled {
		renderer = audio.NewRenderer(modelClient, appCfg.OutputDir)
	}

	sender := emailer.NewSender(emailer.Config{
		Host:     appCfg.SMTPHost,
		Port:     appCfg.SMTPPort,
		User:     appCfg.SMTPUser,
		Password: appCfg.SMTPPassword,
		From:     appCfg.EmailFrom,
		To:       splitRecipients(appCfg.EmailTo),
	})

	return pipeline.NewPipeline(
		loader,
		ingest.NewRSSIngestor(httpClient, maxPerSource),
		ingest.NewYouTubeIngestor(httpClient, appCfg.YouTubeAPIKey),
		classify.NewClassifier(modelClient),
		summarize.NewSummarizer(modelClient),
		sender,
		renderer,
		itemRepo,
		briefingRepo,
		appCfg.DryRun,
	)
}

func runServer(appCfg *cfg.Cfg, itemRepo database.ItemRepository, briefingRepo database.BriefingRepository) {
	handler := api.NewHandler(itemRepo, briefingRepo)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("Dashboard server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}

func runScheduled(appCfg *cfg.Cfg, p *pipeline.Pipeline) {
	location := time.Local
	if loc, err := time.LoadLocation(appCfg.Timezone); err == nil {
		location = loc
	}

	scheduler := cron.New(cron.WithLocation(location))
	_, err := scheduler.AddFunc(appCfg.ScheduleSpec, func() {
		if err := p.Run(context.Background()); err != nil {
			slog.Error("Scheduled briefing run failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("Invalid schedule spec", "spec", appCfg.ScheduleSpec, "error", err)
		os.Exit(1)
	}

	slog.Info("Scheduler started", "spec", appCfg.ScheduleSpec, "timezone", location.String())
	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Scheduler stopped")
}

func splitRecipients(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
