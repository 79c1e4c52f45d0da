package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDomain        = "yourcompany.zendesk.com"
	DefaultTimezone      = "America/Denver"
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 2 * time.Second
)

// Config is built once at startup and handed to the app; nothing reads the
// environment after that.
type Config struct {
	ZendeskDomain   string
	ZendeskEmail    string
	ZendeskPassword string
	OpenAIAPIKey    string

	ArtifactsDir  string // where audio, transcript and summary files live
	Timezone      string // IANA zone for human-readable call timestamps
	LogLevel      string
	RetryAttempts int
	RetryDelay    time.Duration
}

type fileConfig struct {
	ZendeskDomain     string `toml:"zendesk_domain"`
	ZendeskEmail      string `toml:"zendesk_email"`
	ZendeskPassword   string `toml:"zendesk_password"`
	OpenAIAPIKey      string `toml:"openai_api_key"`
	ArtifactsDir      string `toml:"artifacts_dir"`
	Timezone          string `toml:"timezone"`
	LogLevel          string `toml:"log_level"`
	RetryAttempts     int    `toml:"retry_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
}

// Load builds the configuration from the optional TOML file at
// ~/.config/voicesummary/config.toml, then applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		ZendeskDomain: DefaultDomain,
		ArtifactsDir:  defaultArtifactsDir(),
		Timezone:      DefaultTimezone,
		LogLevel:      "info",
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}

	if configPath := configFilePath(); configPath != "" {
		if err := applyFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if fc.ZendeskDomain != "" {
		cfg.ZendeskDomain = fc.ZendeskDomain
	}
	if fc.ZendeskEmail != "" {
		cfg.ZendeskEmail = fc.ZendeskEmail
	}
	if fc.ZendeskPassword != "" {
		cfg.ZendeskPassword = fc.ZendeskPassword
	}
	if fc.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = fc.OpenAIAPIKey
	}
	if fc.ArtifactsDir != "" {
		cfg.ArtifactsDir = expandTilde(fc.ArtifactsDir)
	}
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.RetryAttempts > 0 {
		cfg.RetryAttempts = fc.RetryAttempts
	}
	if fc.RetryDelaySeconds > 0 {
		cfg.RetryDelay = time.Duration(fc.RetryDelaySeconds) * time.Second
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZENDESK_DOMAIN"); v != "" {
		cfg.ZendeskDomain = v
	}
	if v := os.Getenv("ZENDESK_EMAIL"); v != "" {
		cfg.ZendeskEmail = v
	}
	if v := os.Getenv("ZENDESK_PASSWORD"); v != "" {
		cfg.ZendeskPassword = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("VOICESUMMARY_ARTIFACTS_DIR"); v != "" {
		cfg.ArtifactsDir = expandTilde(v)
	}
	if v := os.Getenv("VOICESUMMARY_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("VOICESUMMARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VOICESUMMARY_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryAttempts = n
		}
	}
}

// Validate reports all missing credentials in one message so the operator
// can fix them in a single pass.
func (c *Config) Validate() error {
	var missing []string
	if c.ZendeskEmail == "" {
		missing = append(missing, "ZENDESK_EMAIL")
	}
	if c.ZendeskPassword == "" {
		missing = append(missing, "ZENDESK_PASSWORD")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the configured timezone. An unknown zone falls back to
// UTC with an error the caller can log; the run still proceeds.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "voicesummary")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "voicesummary")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultArtifactsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "voicesummary")
	}
	return filepath.Join(".", "voicesummary")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
