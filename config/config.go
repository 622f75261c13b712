// Package config provides configuration management for the scrumlink agent
// and CLI. It supports loading configuration from a YAML file and
// environment variables, with environment taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListenAddress = "0.0.0.0:8001"
	DefaultServerAddress = "http://localhost:8001"
	DefaultConfigDir     = ".scrumlink"
	DefaultConfigFile    = "config.yaml"

	DefaultIntelligenceBaseURL = "https://openrouter.ai/api"
	DefaultIntelligenceModel   = "tngtech/deepseek-r1t-chimera:free"

	// Chunk flushing defaults: the pending buffer is inspected on a fixed
	// tick and flushed by age or size, whichever trips first.
	DefaultScanTick       = 2 * time.Second
	DefaultChunkMaxAge    = 300 * time.Second
	DefaultChunkMaxEvents = 10

	// DefaultQuestionQuota bounds clarifying questions per session.
	DefaultQuestionQuota = 2

	DefaultPollInterval     = 5 * time.Second
	DefaultPollErrorBackoff = 10 * time.Second
	DefaultPollMaxFailures  = 5

	DefaultCleanTimeout     = 120 * time.Second
	DefaultGateTimeout      = 120 * time.Second
	DefaultSummarizeTimeout = 150 * time.Second
	DefaultStatusTimeout    = 30 * time.Second
	DefaultChunkTimeout     = 30 * time.Second
	DefaultStopTimeout      = 180 * time.Second
)

// IntelligenceConfig holds settings for the text intelligence service.
type IntelligenceConfig struct {
	// BaseURL is the OpenRouter-compatible API root.
	BaseURL string `yaml:"base_url"`

	// Model is the chat-completions model identifier.
	Model string `yaml:"model"`

	// CleanTimeout bounds per-chunk text cleaning calls.
	CleanTimeout Duration `yaml:"clean_timeout"`

	// GateTimeout bounds question-gating calls.
	GateTimeout Duration `yaml:"gate_timeout"`

	// SummarizeTimeout bounds the end-of-session summary call.
	SummarizeTimeout Duration `yaml:"summarize_timeout"`
}

// CaptureConfig holds the dedup/flush tuning for the capture loop.
type CaptureConfig struct {
	// ScanTick is the interval between buffer inspections.
	ScanTick Duration `yaml:"scan_tick"`

	// ChunkMaxAge flushes the pending buffer once this much time has
	// passed since the previous flush.
	ChunkMaxAge Duration `yaml:"chunk_max_age"`

	// ChunkMaxEvents flushes the pending buffer once it holds this many
	// events.
	ChunkMaxEvents int `yaml:"chunk_max_events"`

	// QuestionQuota is the per-session cap on clarifying questions.
	QuestionQuota int `yaml:"question_quota"`
}

// PollerConfig holds the client-side status polling settings.
type PollerConfig struct {
	// Interval between status fetches.
	Interval Duration `yaml:"interval"`

	// ErrorBackoff is the sleep after a transient fetch failure.
	ErrorBackoff Duration `yaml:"error_backoff"`

	// MaxFailures is the number of consecutive fetch failures after
	// which the poller gives up with a single "connection lost" notice.
	MaxFailures int `yaml:"max_failures"`

	// FetchTimeout bounds a single status fetch.
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

// TelegramConfig holds notification channel settings. The bot token itself
// lives in the credentials store, not here.
type TelegramConfig struct {
	// ChatID is the destination chat for summary reports and poller
	// status updates.
	ChatID string `yaml:"chat_id,omitempty"`
}

// RedisConfig holds optional session archive settings. When Addr is empty
// the archive is disabled and the agent is purely memory-resident.
type RedisConfig struct {
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty"`

	// Retention bounds how long snapshots and summaries are kept.
	Retention Duration `yaml:"retention,omitempty"`
}

// Config holds the full agent configuration.
type Config struct {
	// ListenAddress is where `scrumlink serve` binds its HTTP API.
	ListenAddress string `yaml:"listen_address"`

	// ServerAddress is the agent API base URL used by client commands.
	ServerAddress string `yaml:"server_address"`

	// StatusTimeout bounds a status fetch on the control surface.
	StatusTimeout Duration `yaml:"status_timeout"`

	// ChunkTimeout bounds chunk delivery to the pipeline endpoint.
	ChunkTimeout Duration `yaml:"chunk_timeout"`

	// StopTimeout bounds stop/finalize, which includes summary generation.
	StopTimeout Duration `yaml:"stop_timeout"`

	Intelligence IntelligenceConfig `yaml:"intelligence"`
	Capture      CaptureConfig      `yaml:"capture"`
	Poller       PollerConfig       `yaml:"poller"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Redis        RedisConfig        `yaml:"redis"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug,omitempty"`

	// LogJSON switches logs from console to JSON format.
	LogJSON bool `yaml:"log_json,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		ServerAddress: DefaultServerAddress,
		StatusTimeout: Duration(DefaultStatusTimeout),
		ChunkTimeout:  Duration(DefaultChunkTimeout),
		StopTimeout:   Duration(DefaultStopTimeout),
		Intelligence: IntelligenceConfig{
			BaseURL:          DefaultIntelligenceBaseURL,
			Model:            DefaultIntelligenceModel,
			CleanTimeout:     Duration(DefaultCleanTimeout),
			GateTimeout:      Duration(DefaultGateTimeout),
			SummarizeTimeout: Duration(DefaultSummarizeTimeout),
		},
		Capture: CaptureConfig{
			ScanTick:       Duration(DefaultScanTick),
			ChunkMaxAge:    Duration(DefaultChunkMaxAge),
			ChunkMaxEvents: DefaultChunkMaxEvents,
			QuestionQuota:  DefaultQuestionQuota,
		},
		Poller: PollerConfig{
			Interval:     Duration(DefaultPollInterval),
			ErrorBackoff: Duration(DefaultPollErrorBackoff),
			MaxFailures:  DefaultPollMaxFailures,
			FetchTimeout: Duration(DefaultStatusTimeout),
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $SCRUMLINK_CONFIG_DIR if set, otherwise ~/.scrumlink.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SCRUMLINK_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load loads configuration in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.scrumlink/config.yaml or $SCRUMLINK_CONFIG_DIR/config.yaml)
// 3. Environment variables (SCRUMLINK_*)
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SCRUMLINK_LISTEN_ADDRESS"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("SCRUMLINK_SERVER_ADDRESS"); v != "" {
		cfg.ServerAddress = v
	}
	if v := os.Getenv("SCRUMLINK_INTELLIGENCE_BASE_URL"); v != "" {
		cfg.Intelligence.BaseURL = v
	}
	if v := os.Getenv("SCRUMLINK_INTELLIGENCE_MODEL"); v != "" {
		cfg.Intelligence.Model = v
	}
	if v := os.Getenv("SCRUMLINK_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SCRUMLINK_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SCRUMLINK_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("SCRUMLINK_CHUNK_MAX_EVENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Capture.ChunkMaxEvents = n
		}
	}
	if v := os.Getenv("SCRUMLINK_CHUNK_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Capture.ChunkMaxAge = Duration(d)
		}
	}
	if v := os.Getenv("SCRUMLINK_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	if v := os.Getenv("SCRUMLINK_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address is required")
	}
	if c.Capture.ScanTick <= 0 {
		return fmt.Errorf("capture.scan_tick must be positive")
	}
	if c.Capture.ChunkMaxAge <= 0 {
		return fmt.Errorf("capture.chunk_max_age must be positive")
	}
	if c.Capture.ChunkMaxEvents <= 0 {
		return fmt.Errorf("capture.chunk_max_events must be positive")
	}
	if c.Capture.QuestionQuota < 0 {
		return fmt.Errorf("capture.question_quota must not be negative")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive")
	}
	if c.Poller.MaxFailures <= 0 {
		return fmt.Errorf("poller.max_failures must be positive")
	}
	return nil
}

// Save writes the configuration to the config file, creating the config
// directory if needed.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
