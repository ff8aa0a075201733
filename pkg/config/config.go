package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath        = "CHATCORE_CONFIG"
	envAuthor            = "CHATCORE_AUTHOR"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"

	dotEnvFile = ".env"

	defaultReplyTimeout = 250 * time.Millisecond
)

// ErrNotFound is returned by LoadConfig when no config file can be located.
var ErrNotFound = errors.New("config file not found")

// Config is the root runtime configuration loaded from config.json or config.yaml.
type Config struct {
	Chat     ChatConfig     `json:"chat" yaml:"chat"`
	Channels ChannelsConfig `json:"channels" yaml:"channels"`
	Logging  LoggingConfig  `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty" yaml:"add_source,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
}

// ChatConfig controls how local chat sessions build messages and wait for replies.
type ChatConfig struct {
	Author         string `json:"author" yaml:"author"`
	ReplyTimeoutMS int    `json:"reply_timeout_ms" yaml:"reply_timeout_ms"`
}

// ReplyTimeout returns the bounded wait used when draining reply buffers.
func (c ChatConfig) ReplyTimeout() time.Duration {
	if c.ReplyTimeoutMS <= 0 {
		return defaultReplyTimeout
	}

	return time.Duration(c.ReplyTimeoutMS) * time.Millisecond
}

// ChannelsConfig stores platform mapping settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

// TelegramConfig configures Telegram message mapping.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Token     string   `json:"token" yaml:"token"`
	AllowFrom []string `json:"allow_from" yaml:"allow_from"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	return cfg
}

// LoadConfig resolves the config file, unmarshals it by extension, and applies
// environment overrides. Variables from a .env file in the working directory
// are loaded first and never replace ones already set.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(dotEnvFile)

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := unmarshal(configPath, content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadOrDefault loads config.json and falls back to Default when none exists.
func LoadOrDefault() (*Config, error) {
	cfg, err := LoadConfig()
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}

	return cfg, err
}

func unmarshal(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	default:
		return json.Unmarshal(content, cfg)
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if author := strings.TrimSpace(os.Getenv(envAuthor)); author != "" {
		cfg.Chat.Author = author
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is CHATCORE_CONFIG first, then cwd-local fallback paths, JSON
// before YAML.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	var candidates []string
	for _, dir := range []string{cwd, filepath.Join(cwd, "config")} {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (checked %s)", ErrNotFound, strings.Join(candidates, ", "))
}
