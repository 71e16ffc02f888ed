package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "STT_PROVIDER", "FASTER_WHISPER_URL", "GROQ_API_KEY",
		"GROQ_STT_MODEL", "SHUTDOWN_DRAIN_SECONDS", "LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":50051" {
		t.Errorf("ListenAddr: expected default, got %q", cfg.ListenAddr)
	}
	if cfg.STTProvider != ProviderFasterWhisper {
		t.Errorf("STTProvider: expected default, got %q", cfg.STTProvider)
	}
	if cfg.ShutdownDrainSeconds != 5 {
		t.Errorf("ShutdownDrainSeconds: expected 5, got %d", cfg.ShutdownDrainSeconds)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: expected text, got %q", cfg.LogFormat)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("SHUTDOWN_DRAIN_SECONDS", "10")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr: expected override, got %q", cfg.ListenAddr)
	}
	if cfg.ShutdownDrainSeconds != 10 {
		t.Errorf("ShutdownDrainSeconds: expected 10, got %d", cfg.ShutdownDrainSeconds)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: expected json, got %q", cfg.LogFormat)
	}
}

func TestLoadRequiresGroqKeyWhenGroqSelected(t *testing.T) {
	clearEnv(t)
	t.Setenv("STT_PROVIDER", ProviderGroq)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when STT_PROVIDER=groq without GROQ_API_KEY")
	}
}

func TestLoadRejectsNonIntegerDrainSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHUTDOWN_DRAIN_SECONDS", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a non-integer SHUTDOWN_DRAIN_SECONDS")
	}
}
