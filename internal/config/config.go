// Package config loads and persists relaybot configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvanwyk/relaybot/internal/logging"
)

// Config represents the merged relaybot configuration
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Store    StoreConfig    `json:"store"`
	Upstream UpstreamConfig `json:"upstream"`
	History  HistoryConfig  `json:"history"`
}

type TelegramConfig struct {
	BotToken string `json:"botToken"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// UpstreamConfig controls the completion client.
type UpstreamConfig struct {
	// BaseURL overrides the OpenAI endpoint for compatible servers.
	BaseURL string `json:"baseUrl,omitempty"`
	// TimeoutSeconds bounds every completion call.
	TimeoutSeconds int `json:"timeoutSeconds"`
	// ProbeCredential validates a submitted key against the upstream
	// (list-models call) before accepting it. nil means enabled.
	ProbeCredential *bool `json:"probeCredential,omitempty"`
}

// HistoryConfig controls prompt trimming. MaxTurns counts user+assistant
// pairs. MaxTokens, when non-zero, bounds the prompt by token budget instead.
type HistoryConfig struct {
	MaxTurns  int `json:"maxTurns"`
	MaxTokens int `json:"maxTokens"`
}

// Probe reports whether credential probing is enabled.
func (u UpstreamConfig) Probe() bool {
	return u.ProbeCredential == nil || *u.ProbeCredential
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Path: filepath.Join(home, ".relaybot", "relaybot.db"),
		},
		Upstream: UpstreamConfig{
			TimeoutSeconds: 60,
		},
		History: HistoryConfig{
			MaxTurns: 20,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".relaybot", "relaybot.json")
}

// Load reads configuration from path (or the default location), layering the
// file over built-in defaults. A missing file is written out on first run so
// the user has something to edit. TELEGRAM_TOKEN in the environment overrides
// the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		logging.L_info("config: no config file, writing defaults", "path", path)
		if werr := AtomicWriteJSON(path, cfg, 0600); werr != nil {
			logging.L_warn("config: failed to write default config", "error", werr)
		}
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if tok := os.Getenv("TELEGRAM_TOKEN"); tok != "" {
		cfg.Telegram.BotToken = tok
	}

	if cfg.History.MaxTurns <= 0 && cfg.History.MaxTokens <= 0 {
		cfg.History.MaxTurns = Default().History.MaxTurns
	}
	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = Default().Upstream.TimeoutSeconds
	}

	return cfg, nil
}
