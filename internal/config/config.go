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

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	HMACSecret string        `yaml:"hmac_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	SummaryModel    string `yaml:"summary_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	PromptBudget    int    `yaml:"prompt_budget"`    // max prompt tokens per summary
}

type VoiceConfig struct {
	Host      string `yaml:"host"` // room service base URL
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

type YoutubeConfig struct {
	ResolverURL string `yaml:"resolver_url"` // channel/transcript extraction service
}

type TrackerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	IdleThreshold time.Duration `yaml:"idle_threshold"`
}

type JobsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Workers      int           `yaml:"workers"`
	ChunkSize    int           `yaml:"chunk_size"` // transcript chunk size in runes
}

type RateLimitConfig struct {
	TranscriptionPerMinute int `yaml:"transcription_per_minute"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Voice     VoiceConfig     `yaml:"voice"`
	Youtube   YoutubeConfig   `yaml:"youtube"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

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
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.SummaryModel == "" {
		cfg.AI.SummaryModel = "gpt-4o-mini"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.AI.PromptBudget <= 0 {
		cfg.AI.PromptBudget = 6000
	}
	if cfg.Tracker.SweepInterval <= 0 {
		cfg.Tracker.SweepInterval = 30 * time.Second
	}
	if cfg.Tracker.IdleThreshold <= 0 {
		cfg.Tracker.IdleThreshold = 2 * time.Minute
	}
	if cfg.Jobs.PollInterval <= 0 {
		cfg.Jobs.PollInterval = 2 * time.Second
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.ChunkSize <= 0 {
		cfg.Jobs.ChunkSize = 1500
	}
	if cfg.RateLimit.TranscriptionPerMinute <= 0 {
		cfg.RateLimit.TranscriptionPerMinute = 120
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.HMACSecret == "" && !dev {
		return nil, errors.New("auth.hmac_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
