package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FilterMode selects how a watched channel's posts are examined.
type FilterMode string

const (
	// FilterText extracts keys straight from message text.
	FilterText FilterMode = "text"
	// FilterPhoto extracts keys from screenshotted images via OCR.
	FilterPhoto FilterMode = "photo"
)

// ErrNoChannels is returned when the config names no watched channels.
var ErrNoChannels = errors.New("no channels configured")

type Config struct {
	Telegram TelegramConfig  `json:"telegram"`
	Platform PlatformConfig  `json:"platform"`
	Channels []ChannelConfig `json:"channels"`
	Watch    WatchConfig     `json:"watch"`
	OCR      OCRConfig       `json:"ocr"`
	Log      LogConfig       `json:"log"`
}

type TelegramConfig struct {
	Token string `env:"KEYCLAW_TELEGRAM_TOKEN" json:"token"`
}

type PlatformConfig struct {
	StoreURL    string `env:"KEYCLAW_PLATFORM_STORE_URL"    json:"store_url"`
	AccountName string `env:"KEYCLAW_PLATFORM_ACCOUNT_NAME" json:"account_name"`
	Password    string `env:"KEYCLAW_PLATFORM_PASSWORD"     json:"password"`
}

// ChannelConfig binds one watched Telegram channel to a filter mode.
type ChannelConfig struct {
	ID   int64      `json:"id"`
	Mode FilterMode `json:"mode"`
	Name string     `json:"name,omitempty"`
}

type WatchConfig struct {
	CacheDir    string `env:"KEYCLAW_WATCH_CACHE_DIR"    json:"cache_dir"`
	ScratchDir  string `env:"KEYCLAW_WATCH_SCRATCH_DIR"  json:"scratch_dir"`
	KeepaliveMS int    `env:"KEYCLAW_WATCH_KEEPALIVE_MS" json:"keepalive_ms"`
}

type OCRConfig struct {
	Language string `env:"KEYCLAW_OCR_LANGUAGE" json:"language"`
}

type LogConfig struct {
	File  string `env:"KEYCLAW_LOG_FILE"  json:"file"`
	Level string `env:"KEYCLAW_LOG_LEVEL" json:"level"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".keyclaw")
	return &Config{
		Platform: PlatformConfig{
			StoreURL: "https://store.steampowered.com",
		},
		Watch: WatchConfig{
			CacheDir:    filepath.Join(base, "cache"),
			ScratchDir:  filepath.Join(base, "images"),
			KeepaliveMS: 1000,
		},
		OCR: OCRConfig{
			Language: "eng",
		},
		Log: LogConfig{
			File:  filepath.Join(base, "events.log"),
			Level: "info",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks channel entries for required fields and known modes.
func (c *Config) Validate() error {
	for i, ch := range c.Channels {
		if ch.ID == 0 {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		switch ch.Mode {
		case FilterText, FilterPhoto:
		case "":
			return fmt.Errorf("channels[%d]: mode is required", i)
		default:
			return fmt.Errorf("channels[%d]: unknown mode %q", i, ch.Mode)
		}
	}
	return nil
}

// Keepalive returns the keepalive interval in milliseconds, falling back
// to the 1000 ms default when unset.
func (c *Config) Keepalive() int {
	if c.Watch.KeepaliveMS <= 0 {
		return 1000
	}
	return c.Watch.KeepaliveMS
}

// LogLevelName normalizes the configured level name, defaulting to "info".
func (c *Config) LogLevelName() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

// CachePath expands the configured cache directory.
func (c *Config) CachePath() string { return expandHome(c.Watch.CacheDir) }

// ScratchPath expands the configured scratch image directory.
func (c *Config) ScratchPath() string { return expandHome(c.Watch.ScratchDir) }
