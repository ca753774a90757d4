package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fallbacks applied when the YAML leaves a knob unset.
const (
	DefaultSessionTTL = 6 * time.Hour
	DefaultBankTTL    = 10 * time.Minute
	DefaultClockSync  = 10 * time.Second
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"` // session document TTL
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type QuizConfig struct {
	RevealMode bool   `yaml:"revealMode"`
	BankTTL    string `yaml:"bankTTL"`
	ClockSync  string `yaml:"clockSync"` // offset sampling interval
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Quiz     QuizConfig     `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file is not an error; the
// service then runs on defaults, which means an in-memory store and no
// question bank. REDIS_ADDR and POSTGRES_URL env vars override their file
// counterparts so deployments can inject endpoints without editing the file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		cfg.Postgres.URL = url
	}
	return cfg, nil
}

// SessionTTL is how long session documents live in Redis.
func (c Config) SessionTTL() time.Duration {
	return duration(c.Redis.TTL, DefaultSessionTTL)
}

// BankTTL is the question-bank cache lifetime.
func (c Config) BankTTL() time.Duration {
	return duration(c.Quiz.BankTTL, DefaultBankTTL)
}

// ClockSyncInterval is how often the server-clock offset is resampled.
func (c Config) ClockSyncInterval() time.Duration {
	return duration(c.Quiz.ClockSync, DefaultClockSync)
}

func duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
