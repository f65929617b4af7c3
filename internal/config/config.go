package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	AI     AIConfig     `yaml:"ai"`
	Server ServerConfig `yaml:"server"`
	Loader LoaderConfig `yaml:"loader"`
	Diff   DiffConfig   `yaml:"diff"`
	Log    LogConfig    `yaml:"log"`
}

// AIConfig holds the completion API settings.
type AIConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	AnswerMaxTokens   int           `yaml:"answer_max_tokens"`
	FollowUpMaxTokens int           `yaml:"followup_max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	MaxPromptRows     int           `yaml:"max_prompt_rows"`
}

// Enabled reports whether an assistant can be built from this config.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
	MaxSessions   int    `yaml:"max_sessions"`
}

// LoaderConfig holds spreadsheet parsing settings.
type LoaderConfig struct {
	Sheet      string `yaml:"sheet"`
	InferTypes bool   `yaml:"infer_types"`
}

// DiffConfig selects the cell equality. Tolerant is off by default; the
// strict comparison is the reference behavior.
type DiffConfig struct {
	Tolerant     bool    `yaml:"tolerant"`
	TrimSpace    bool    `yaml:"trim_space"`
	FoldCase     bool    `yaml:"fold_case"`
	Epsilon      float64 `yaml:"epsilon"`
	UnifyNumeric bool    `yaml:"unify_numeric"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o",
			AnswerMaxTokens:   1500,
			FollowUpMaxTokens: 1000,
			Temperature:       0.1,
			Timeout:           2 * time.Minute,
			MaxRetries:        3,
		},
		Server: ServerConfig{
			Addr:          ":8501",
			MaxUploadSize: 50 * 1024 * 1024,
			MaxSessions:   100,
		},
		Loader: LoaderConfig{
			InferTypes: true,
		},
		Log: LogConfig{
			Level: "error",
		},
	}
}

// Load builds the configuration from defaults, a .env file in the working
// directory, an optional YAML file and the environment, in that order. path
// may be empty, in which case SHEETDIFF_CONFIG names the YAML file, if any.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("SHEETDIFF_CONFIG")
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AI.APIKey = getEnvOrDefault("OPENAI_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.Model = getEnvOrDefault("OPENAI_MODEL", cfg.AI.Model)
	cfg.AI.AnswerMaxTokens = getEnvIntOrDefault("SHEETDIFF_ANSWER_MAX_TOKENS", cfg.AI.AnswerMaxTokens)
	cfg.AI.FollowUpMaxTokens = getEnvIntOrDefault("SHEETDIFF_FOLLOWUP_MAX_TOKENS", cfg.AI.FollowUpMaxTokens)
	cfg.AI.Temperature = getEnvFloatOrDefault("SHEETDIFF_TEMPERATURE", cfg.AI.Temperature)
	cfg.AI.Timeout = getEnvDurationOrDefault("SHEETDIFF_AI_TIMEOUT", cfg.AI.Timeout)
	cfg.AI.MaxRetries = getEnvIntOrDefault("SHEETDIFF_AI_RETRIES", cfg.AI.MaxRetries)
	cfg.AI.MaxPromptRows = getEnvIntOrDefault("SHEETDIFF_MAX_PROMPT_ROWS", cfg.AI.MaxPromptRows)

	cfg.Server.Addr = getEnvOrDefault("SHEETDIFF_ADDR", cfg.Server.Addr)
	cfg.Server.MaxSessions = getEnvIntOrDefault("SHEETDIFF_MAX_SESSIONS", cfg.Server.MaxSessions)

	cfg.Loader.Sheet = getEnvOrDefault("SHEETDIFF_SHEET", cfg.Loader.Sheet)

	cfg.Log.Level = getEnvOrDefault("SHEETDIFF_LOG", cfg.Log.Level)
	cfg.Log.File = getEnvOrDefault("SHEETDIFF_LOG_FILE", cfg.Log.File)
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	var problems []string
	if c.AI.Model == "" {
		problems = append(problems, "ai.model is required")
	}
	if c.AI.AnswerMaxTokens <= 0 || c.AI.FollowUpMaxTokens <= 0 {
		problems = append(problems, "ai max tokens must be positive")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		problems = append(problems, "ai.temperature must be between 0 and 2")
	}
	if c.AI.MaxRetries < 0 {
		problems = append(problems, "ai.max_retries must not be negative")
	}
	if c.AI.MaxPromptRows < 0 {
		problems = append(problems, "ai.max_prompt_rows must not be negative")
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.MaxUploadSize <= 0 {
		problems = append(problems, "server.max_upload_size must be positive")
	}
	if c.Server.MaxSessions <= 0 {
		problems = append(problems, "server.max_sessions must be positive")
	}
	if c.Diff.Epsilon < 0 {
		problems = append(problems, "diff.epsilon must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
