package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lokutor-ai/transcribe-core/pkg/config"
	"github.com/lokutor-ai/transcribe-core/pkg/logging"
	"github.com/lokutor-ai/transcribe-core/pkg/metrics"
	"github.com/lokutor-ai/transcribe-core/pkg/server"
	"github.com/lokutor-ai/transcribe-core/pkg/session"
	"github.com/lokutor-ai/transcribe-core/pkg/transcriber/fasterwhisper"
	"github.com/lokutor-ai/transcribe-core/pkg/transcriber/groqwhisper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Printf("falling back to stderr logger: %v", err)
		zlog = logging.NewStderrFallback()
	}
	defer zlog.Sync()

	met, promShutdown, err := metrics.InitProvider()
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	defer promShutdown(context.Background())
	sessionMetrics, err := metrics.New(met)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	var transcriber session.Transcriber
	var modelConcurrency int64
	switch cfg.STTProvider {
	case config.ProviderGroq:
		transcriber = groqwhisper.New(cfg.GroqAPIKey, cfg.GroqModel, nil)
		modelConcurrency = 4
	case config.ProviderFasterWhisper:
		fallthrough
	default:
		transcriber = fasterwhisper.New(cfg.FasterWhisperURL, nil)
		modelConcurrency = 1
	}

	fmt.Printf("Configured: STT=%s | Listen=%s | DrainSeconds=%d\n", cfg.STTProvider, cfg.ListenAddr, cfg.ShutdownDrainSeconds)

	srv := server.New(server.Config{
		Addr:                 cfg.ListenAddr,
		Transcriber:          transcriber,
		Logger:               zlog,
		Metrics:              sessionMetrics,
		ModelConcurrency:     modelConcurrency,
		ShutdownDrainSeconds: cfg.ShutdownDrainSeconds,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		zlog.Info("shutdown signal received, draining sessions")
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		zlog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
