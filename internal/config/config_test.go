package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/aichat")
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("PORT", "8080")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.GeminiAPIKey != "key-123" {
		t.Fatalf("gemini key not taken from env")
	}
	if cfg.ModelName != "gemini-1.5-flash" {
		t.Fatalf("default model name missing, got %q", cfg.ModelName)
	}
	if !cfg.SpeechEnabled() {
		t.Fatalf("speech should default to enabled")
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("port: \"9000\"\nsessionSecret: file-secret\ndatabaseURL: postgres://localhost/file\nmodelName: gemini-pro\nttsEnabled: false\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "9001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9001" {
		t.Fatalf("env must override file, got %q", cfg.Port)
	}
	if cfg.SessionSecret != "file-secret" {
		t.Fatalf("file value lost, got %q", cfg.SessionSecret)
	}
	if cfg.ModelName != "gemini-pro" {
		t.Fatalf("model name = %q", cfg.ModelName)
	}
	if cfg.SpeechEnabled() {
		t.Fatalf("ttsEnabled: false should disable speech")
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/aichat")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when session secret is absent")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when database URL is absent")
	}
}

func TestParseDurations(t *testing.T) {
	if _, err := ParseSessionTTL("nope"); err == nil {
		t.Fatalf("expected invalid duration error")
	}
	d, err := ParseSessionTTL("48h")
	if err != nil || d != 48*time.Hour {
		t.Fatalf("ParseSessionTTL = %v, %v", d, err)
	}
	d, err = ParseRequestTimeout("")
	if err != nil || d != 0 {
		t.Fatalf("empty timeout should be zero, got %v, %v", d, err)
	}
}
