// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the SiteFoundry server. It loads
// configuration, connects to services, wires the site pipeline and serves
// the gateway, admin and portal with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sitefoundry/internal/ai"
	"sitefoundry/internal/blob"
	"sitefoundry/internal/cache"
	"sitefoundry/internal/config"
	"sitefoundry/internal/database"
	"sitefoundry/internal/editor"
	"sitefoundry/internal/handlers"
	"sitefoundry/internal/middleware"
	"sitefoundry/internal/models"
	"sitefoundry/internal/queue"
	"sitefoundry/internal/render"
	"sitefoundry/internal/router"
	"sitefoundry/internal/session"
	"sitefoundry/internal/snapshot"
	"sitefoundry/internal/storage"
	"sitefoundry/internal/store"
)

// Background sweep intervals.
const (
	blobSweepInterval   = time.Minute
	editorSweepInterval = 5 * time.Minute
	limiterSweep        = time.Minute
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"base_host", cfg.BaseHost,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	if err := database.Seed(db, cfg.Trial()); err != nil {
		return err
	}

	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient, cfg.SecureCookies)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return err
	}

	clientStore := store.NewClientStore(db)
	skeletonStore := store.NewSkeletonStore(db)
	templateStore := store.NewTemplateStore(db)
	settingStore := store.NewSiteSettingStore(db)

	storageClient, err := storage.New(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		return err
	}
	if storageClient != nil {
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, image uploads and snapshot uploads disabled")
	}

	capturer := snapshot.New(snapshot.Options{ExecPath: cfg.ChromePath})
	if browser, err := capturer.Browser(); err != nil {
		slog.Warn("no browser found, snapshots disabled", "error", err)
	} else {
		slog.Info("snapshot browser found", "path", browser)
	}

	registry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, ModelPro: cfg.OpenAIModelPro, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, ModelPro: cfg.GeminiModelPro, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, ModelPro: cfg.ClaudeModelPro, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, ModelPro: cfg.MistralModelPro, BaseURL: cfg.MistralBaseURL},
	})
	// The admin's last choice wins over the environment default.
	if stored, err := settingStore.Get(ctx, models.SettingAIProvider, ""); err != nil {
		slog.Warn("failed to read stored ai provider", "error", err)
	} else if stored != "" && registry.HasProvider(stored) {
		if err := registry.SetActive(stored); err != nil {
			slog.Warn("failed to restore ai provider", "provider", stored, "error", err)
		}
	}
	slog.Info("ai providers initialized",
		"active", registry.ActiveName(),
		"available", registry.Available(),
	)
	studio := ai.NewStudio(registry)

	pageCache := cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
	channels := blob.NewChannels(blob.NewRedisStore(valkeyClient), cfg.BlobTTL, cfg.ViewIdle)

	persister := &store.EditorPersister{
		Clients:   clientStore,
		Skeletons: skeletonStore,
		Templates: templateStore,
		AfterSave: func(ctx context.Context, target editor.Target) {
			if target.Kind == editor.KindClient {
				pageCache.InvalidateClient(ctx, target.ID)
			}
		},
	}
	editors := editor.NewManager(studio, persister, cfg.EditorIdle)

	trialHours := func(ctx context.Context) int {
		t, err := settingStore.Trial(ctx, cfg.Trial())
		if err != nil {
			slog.Warn("failed to read trial settings", "error", err)
			return cfg.Trial().Hours()
		}
		return t.Hours()
	}
	leads := queue.New()
	processor := queue.NewProcessor(leads, &queue.SiteBuilder{
		Templates:  templateStore,
		Skeletons:  skeletonStore,
		Designer:   studio,
		TrialHours: trialHours,
	}, queue.SinkFunc(clientStore.Upsert), cfg.QueueDelay)

	editorHandlers := handlers.NewEditor(renderer, editors, clientStore, skeletonStore, templateStore, storageClient)
	h := router.Handlers{
		Admin: handlers.NewAdmin(renderer, clientStore, skeletonStore, templateStore, settingStore,
			channels, pageCache, editors, studio, registry, capturer, storageClient, handlers.AdminOptions{
				BaseHost:     cfg.BaseHost,
				DefaultTrial: cfg.Trial(),
				Providers:    providerInfo(cfg),
			}),
		Auth: handlers.NewAuth(renderer, sessionStore, settingStore, handlers.AdminCredentials{
			Email:      cfg.AdminEmail,
			Password:   cfg.AdminPassword,
			TwoFA:      cfg.Admin2FA,
			TOTPSecret: cfg.AdminTOTPSecret,
		}),
		Public: handlers.NewPublic(renderer, clientStore, channels, pageCache, cfg.BaseHost),
		Editor: editorHandlers,
		Portal: handlers.NewPortal(renderer, sessionStore, clientStore, editorHandlers),
		Queue:  handlers.NewQueue(ctx, renderer, leads, processor, templateStore, clientStore),
	}

	// Ten password attempts per minute per address.
	limiter := middleware.NewRateLimiter(10, time.Minute)
	r := router.New(sessionStore, h, router.Options{
		SecureCookies: cfg.SecureCookies,
		LoginLimiter:  limiter,
	})

	// WriteTimeout must accommodate AI endpoints that wait on LLM responses.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return channels.RunSweeper(gctx, blobSweepInterval) })
	g.Go(func() error { return editors.RunSweeper(gctx, editorSweepInterval) })
	g.Go(func() error { return limiter.Run(gctx, limiterSweep) })
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		// Give active requests up to 30 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		processor.Pause()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// providerInfo describes the configured AI providers for the settings page.
func providerInfo(cfg *config.Config) []handlers.AIProviderInfo {
	return []handlers.AIProviderInfo{
		{Name: "gemini", Label: "Google Gemini", HasKey: cfg.GeminiKey != "", Model: cfg.GeminiModel, KeyEnvVar: "GEMINI_API_KEY"},
		{Name: "claude", Label: "Anthropic Claude", HasKey: cfg.ClaudeKey != "", Model: cfg.ClaudeModel, KeyEnvVar: "CLAUDE_API_KEY"},
		{Name: "openai", Label: "OpenAI", HasKey: cfg.OpenAIKey != "", Model: cfg.OpenAIModel, KeyEnvVar: "OPENAI_API_KEY"},
		{Name: "mistral", Label: "Mistral", HasKey: cfg.MistralKey != "", Model: cfg.MistralModel, KeyEnvVar: "MISTRAL_API_KEY"},
	}
}
