package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
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
	Quiz struct {
		TTL               string `yaml:"ttl"`
		DefaultAuthorID   string `yaml:"default_author_id"`
		DefaultAuthorName string `yaml:"default_author_name"`
		PageSize          int    `yaml:"page_size"`
	} `yaml:"quiz"`
	Scoring struct {
		Fallback string `yaml:"fallback"`
	} `yaml:"scoring"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies environment overrides. A missing file
// is not an error: the service runs on the in-memory backend with defaults.
// Variables from a .env file in the working directory are loaded first; variables
// already set in the environment win.
func Load(path string) (Config, error) {
	cfg := Config{}
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Postgres.URL, "DATABASE_URL")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Quiz.DefaultAuthorID, "DEFAULT_AUTHOR_ID")
	override(&c.Log.Level, "LOG_LEVEL")
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		c.Server.CORSOrigins = strings.Split(raw, ",")
	}
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
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
