// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port        int    `yaml:"port"`          // client API (apiv1)
	AdminPort   int    `yaml:"admin_port"`    // admin API
	AuthSecret  string `yaml:"auth_secret"`   // HS256 secret for user JWTs
	AdminAPIKey string `yaml:"admin_api_key"` // bearer key for the admin API
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"status_ttl"` // job-status cache TTL
}

type AIConfig struct {
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	GeminiModel     string `yaml:"gemini_model"`
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIModel     string `yaml:"openai_model"`
	DefaultProvider string `yaml:"default_provider"` // gemini | openai
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	// PromptTokenLimit rejects oversized topic prompts before calling out.
	PromptTokenLimit int `yaml:"prompt_token_limit"`
}

type JobsConfig struct {
	Workers            int           `yaml:"workers"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	MaxBatch           int           `yaml:"max_batch"`
	MaxRetries         int           `yaml:"max_retries"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"` // base, doubled per attempt
	GenerationTimeout  time.Duration `yaml:"generation_timeout"`
	ProcessingDeadline time.Duration `yaml:"processing_deadline"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
	JobRetention       time.Duration `yaml:"job_retention"`
	NotifRetention     time.Duration `yaml:"notification_retention"`
	RateLimit          int           `yaml:"rate_limit"` // requests per user per window
	RateWindow         time.Duration `yaml:"rate_window"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Jobs     JobsConfig     `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AdminPort <= 0 {
		cfg.Server.AdminPort = 8081
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Redis.StatusTTL <= 0 {
		cfg.Redis.StatusTTL = 30 * time.Second
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "gemini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 4096
	}
	if cfg.AI.PromptTokenLimit <= 0 {
		cfg.AI.PromptTokenLimit = 2048
	}
	applyJobDefaults(&cfg.Jobs)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Server.AuthSecret == "" && !dev {
		return nil, errors.New("server.auth_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyJobDefaults(j *JobsConfig) {
	if j.Workers <= 0 {
		j.Workers = 4
	}
	if j.PollInterval <= 0 {
		j.PollInterval = 2 * time.Second
	}
	if j.MaxBatch <= 0 {
		j.MaxBatch = 3
	}
	if j.MaxRetries <= 0 {
		j.MaxRetries = 3
	}
	if j.RetryBackoff <= 0 {
		j.RetryBackoff = 30 * time.Second
	}
	if j.GenerationTimeout <= 0 {
		j.GenerationTimeout = 5 * time.Minute
	}
	if j.ProcessingDeadline <= 0 {
		j.ProcessingDeadline = 15 * time.Minute
	}
	if j.SweepInterval <= 0 {
		j.SweepInterval = time.Minute
	}
	if j.CleanupInterval <= 0 {
		j.CleanupInterval = time.Hour
	}
	if j.JobRetention <= 0 {
		j.JobRetention = 7 * 24 * time.Hour
	}
	if j.NotifRetention <= 0 {
		j.NotifRetention = 30 * 24 * time.Hour
	}
	if j.RateLimit <= 0 {
		j.RateLimit = 5
	}
	if j.RateWindow <= 0 {
		j.RateWindow = time.Minute
	}
}
