// Package config loads process configuration from the environment,
// following the teacher's cmd/agent/main.go pattern of godotenv plus
// plain os.Getenv reads with hardcoded fallbacks, generalized into a
// single struct the server entrypoint builds once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// STT provider names accepted by STT_PROVIDER.
const (
	ProviderFasterWhisper = "fasterwhisper"
	ProviderGroq          = "groq"
)

// Config holds everything cmd/server needs to wire up the websocket
// listener, the chosen Transcriber, and the logging/metrics stack.
type Config struct {
	ListenAddr           string
	STTProvider          string
	FasterWhisperURL     string
	GroqAPIKey           string
	GroqModel            string
	ShutdownDrainSeconds int
	LogFormat            string
	LogLevel             string
}

// Load reads a .env file if present (missing is not an error, matching
// the teacher's "Note: No .env file found" behavior) and builds a
// Config from the environment, applying defaults for anything unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:       getenvDefault("LISTEN_ADDR", ":50051"),
		STTProvider:      getenvDefault("STT_PROVIDER", ProviderFasterWhisper),
		FasterWhisperURL: getenvDefault("FASTER_WHISPER_URL", "http://localhost:8000"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		GroqModel:        getenvDefault("GROQ_STT_MODEL", "whisper-large-v3-turbo"),
		LogFormat:        getenvDefault("LOG_FORMAT", "text"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
	}

	drain, err := strconv.Atoi(getenvDefault("SHUTDOWN_DRAIN_SECONDS", "5"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SHUTDOWN_DRAIN_SECONDS: %w", err)
	}
	cfg.ShutdownDrainSeconds = drain

	if cfg.STTProvider == ProviderGroq && cfg.GroqAPIKey == "" {
		return Config{}, fmt.Errorf("config: GROQ_API_KEY must be set for STT_PROVIDER=groq")
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
