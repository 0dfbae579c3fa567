// Package config handles configuration and credential loading for sprout.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sproutai/sprout/internal/models"
)

// Completion backends
const (
	BackendSDK  = "sdk"  // google.golang.org/genai
	BackendREST = "rest" // raw streamGenerateContent over SSE
	BackendEcho = "echo" // offline scripted replies
)

// Environment variables consulted by LoadConfig
const (
	EnvHome  = "SPROUT_HOME"
	EnvModel = "SPROUT_MODEL"
)

// apiKeyEnvVars are checked in order; the first non-empty one wins
var apiKeyEnvVars = []string{"GENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	DefaultModel string `json:"default_model"`
	// Models is the list offered by the model selector.
	Models  []string `json:"models,omitempty"`
	Backend string   `json:"backend"`
	// BaseURL overrides the Gemini API endpoint for the rest backend.
	BaseURL string `json:"base_url,omitempty"`
	// StreamDelayMS is a cosmetic pause after each streamed fragment.
	// Zero disables pacing.
	StreamDelayMS   int            `json:"stream_delay_ms"`
	Verbose         bool           `json:"verbose"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	LogFile         string         `json:"log_file,omitempty"`
	TUITheme        string         `json:"tui_theme,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`

	// APIKey is resolved from the environment and never written to disk.
	APIKey string `json:"-"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	logFile := ""
	if dir, err := GetConfigDir(); err == nil {
		logFile = filepath.Join(dir, "sprout.log")
	}
	return Config{
		DefaultModel:    models.DefaultModel,
		Models:          models.AllModels(),
		Backend:         BackendSDK,
		StreamDelayMS:   10,
		Verbose:         false,
		CopyToClipboard: false,
		LogFile:         logFile,
		TUITheme:        "sprout",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// StreamDelay returns the pacing delay as a duration
func (c Config) StreamDelay() time.Duration {
	if c.StreamDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.StreamDelayMS) * time.Millisecond
}

// RedactedKey returns the API key masked for display
func (c Config) RedactedKey() string {
	if c.APIKey == "" {
		return "(not set)"
	}
	if len(c.APIKey) <= 8 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return c.APIKey[:4] + strings.Repeat("*", len(c.APIKey)-8) + c.APIKey[len(c.APIKey)-4:]
}

// SelectableModels returns the configured model list, falling back to the built-ins
func (c Config) SelectableModels() []string {
	if len(c.Models) == 0 {
		return models.AllModels()
	}
	return c.Models
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".sprout"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LookupAPIKey returns the first non-empty credential from the environment
func LookupAPIKey() string {
	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.APIKey = LookupAPIKey()
	if m := strings.TrimSpace(os.Getenv(EnvModel)); m != "" {
		c.DefaultModel = m
	}
	if c.DefaultModel == "" {
		c.DefaultModel = models.DefaultModel
	}
	if c.Backend == "" {
		c.Backend = BackendSDK
	}
}

// SaveConfig saves the configuration to disk.
// The API key is excluded by its json tag.
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AvailableBackends returns the names accepted for Config.Backend
func AvailableBackends() []string {
	return []string{BackendSDK, BackendREST, BackendEcho}
}

// ValidBackend reports whether name is a known backend
func ValidBackend(name string) bool {
	for _, b := range AvailableBackends() {
		if b == name {
			return true
		}
	}
	return false
}
