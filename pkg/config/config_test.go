package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Platform.StoreURL == "" {
		t.Error("expected a default store URL")
	}
	if cfg.Watch.KeepaliveMS != 1000 {
		t.Errorf("expected 1000 ms default keepalive, got %d", cfg.Watch.KeepaliveMS)
	}
	if cfg.OCR.Language != "eng" {
		t.Errorf("expected default OCR language eng, got %q", cfg.OCR.Language)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Watch.KeepaliveMS != 1000 {
		t.Error("expected defaults when the file is missing")
	}
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Telegram.Token = "123:abc"
	cfg.Platform.AccountName = "tester"
	cfg.Channels = []ChannelConfig{
		{ID: -1001234, Mode: FilterText, Name: "free-keys"},
		{ID: -1005678, Mode: FilterPhoto},
	}
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Telegram.Token != "123:abc" {
		t.Errorf("token lost in round trip: %q", loaded.Telegram.Token)
	}
	if len(loaded.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(loaded.Channels))
	}
	if loaded.Channels[1].Mode != FilterPhoto {
		t.Errorf("expected photo mode, got %q", loaded.Channels[1].Mode)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("KEYCLAW_TELEGRAM_TOKEN", "env-token")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("expected env override, got %q", cfg.Telegram.Token)
	}
}

func TestValidate_RejectsBadChannels(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Channels = []ChannelConfig{{Mode: FilterText}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing channel id")
	}

	cfg.Channels = []ChannelConfig{{ID: 1, Mode: "video"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown mode")
	}

	cfg.Channels = []ChannelConfig{{ID: 1}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing mode")
	}
}

func TestSaveConfig_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Credentials live in this file.
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}
