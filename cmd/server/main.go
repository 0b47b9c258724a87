package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/lessonlens/internal/analysis"
	"github.com/dgallion1/lessonlens/internal/api"
	"github.com/dgallion1/lessonlens/internal/config"
	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/material"
	"github.com/dgallion1/lessonlens/internal/pipeline"
	"github.com/dgallion1/lessonlens/internal/resultcache"
)

func main() {
	cfg := config.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		log.Error("cannot create upload dir", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Text extraction with OCR fallback.
	ex := extractor.New(
		&extractor.PDFTextLayer{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		extractor.FitzRenderer{},
		extractor.TesseractEngine{},
		extractor.Options{
			ScannedMinChars: cfg.ScannedMinChars,
			Language:        cfg.OCRLanguage,
			DPI:             cfg.OCRDPI,
			MaxPages:        cfg.OCRMaxPages,
		},
		log,
	)

	// AI provider. The API key is looked up on every call.
	var provider analysis.Provider
	switch cfg.AIProvider {
	case config.ProviderGemini:
		provider = analysis.NewGeminiProvider(cfg.AIModel, cfg.AITemperature)
	default:
		provider = analysis.NewGroqProvider(cfg.AIBaseURL, cfg.AIModel, cfg.AITemperature,
			&http.Client{Timeout: cfg.AITimeout})
	}
	an := analysis.NewAnalyzer(provider, cfg.AIKey, analysis.NewLLMStats(cfg.StatsWindow), log)
	if cfg.AIKey() == "" {
		log.Warn("AI API key is not set; analyses will fail until it is", "env", cfg.AIKeyEnv)
	}

	// Optional result cache.
	var cache resultcache.Cache
	var redisCache *resultcache.RedisCache
	if cfg.CacheEnabled() {
		rc, err := resultcache.NewRedisCache(ctx, resultcache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			log.Warn("result cache unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache, redisCache = rc, rc
			log.Info("result cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(ex, an, cache, pipeline.Options{
		ChunkSize:        cfg.ChunkSize,
		MinDocumentChars: cfg.MinDocumentChars,
		ChunkRetries:     cfg.ChunkRetries,
		MaxConcurrent:    cfg.MaxConcurrentAnalyses,
		Timeout:          cfg.AnalysisTimeout,
	}, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Analyzer:  orch,
		Runs:      orch.Runs(),
		Materials: material.NewReader(ex, ex, cfg.UploadDir),
		Stats:     an,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AnalysisTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	log.Info("starting lessonlens",
		"port", cfg.Port,
		"provider", provider.Name(),
		"model", provider.Model(),
		"env", cfg.AppEnv,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
