package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Telegram struct {
		Token   string `yaml:"token"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"telegram"`
	Engine Engine `yaml:"engine"`
	Log    struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Engine holds the evaluation and closure monitor settings.
type Engine struct {
	PollIntervalMs        int    `yaml:"poll_interval_ms" validate:"gte=100"`
	CloseLookaheadSeconds int    `yaml:"close_lookahead_seconds" validate:"gte=1"`
	ItemCount             int    `yaml:"item_count" validate:"gte=1,lte=100"`
	ChannelID             string `yaml:"channel_id" validate:"required"`
	LeaderboardSize       int    `yaml:"leaderboard_size" validate:"gte=1"`
	IOTimeout             string `yaml:"io_timeout"`
	TestCacheTTL          string `yaml:"test_cache_ttl"`
	AnnounceRetention     string `yaml:"announce_retention"`
	Timezone              string `yaml:"timezone"`
}

// Defaults returns a config with every engine option set.
func Defaults() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Engine = Engine{
		PollIntervalMs:        60_000,
		CloseLookaheadSeconds: 120,
		ItemCount:             10,
		LeaderboardSize:       10,
		IOTimeout:             "10s",
		TestCacheTTL:          "10m",
		Timezone:              "Asia/Tashkent",
	}
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of Defaults, then applies
// environment overrides (a .env file is loaded first when present).
// A missing file at path is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Telegram.Token, "BOT_TOKEN")
	setString(&cfg.Engine.ChannelID, "CHANNEL_ID")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	for key, dst := range map[string]*int{
		"POLL_INTERVAL_MS":        &cfg.Engine.PollIntervalMs,
		"CLOSE_LOOKAHEAD_SECONDS": &cfg.Engine.CloseLookaheadSeconds,
		"ITEM_COUNT":              &cfg.Engine.ItemCount,
	} {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks field ranges and that the lookahead covers a poll interval,
// so every test is observed at least once inside its closing window.
func (c Config) Validate() error {
	if err := validator.New().Struct(c.Engine); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if c.Engine.PollInterval() > c.Engine.CloseLookahead() {
		return fmt.Errorf("engine config: close lookahead %s is shorter than poll interval %s",
			c.Engine.CloseLookahead(), c.Engine.PollInterval())
	}
	if _, err := c.Engine.Location(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	return nil
}

func (e Engine) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMs) * time.Millisecond
}

func (e Engine) CloseLookahead() time.Duration {
	return time.Duration(e.CloseLookaheadSeconds) * time.Second
}

// Retention is how long after closing an unannounced test is still picked up
// by a freshly started monitor. Never shorter than the lookahead.
func (e Engine) Retention() time.Duration {
	d := TTLDuration(e.AnnounceRetention, e.CloseLookahead())
	if d < e.CloseLookahead() {
		return e.CloseLookahead()
	}
	return d
}

// Location resolves Timezone, defaulting to UTC.
func (e Engine) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(e.Timezone)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
