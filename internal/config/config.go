// Package config loads tokenlife-server settings from a YAML file and the
// environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/jwt"
)

// Config is the server configuration. Sources, highest priority first:
//  1. explicit path passed with --config;
//  2. path in CONFIG_PATH;
//  3. local.yaml in the working directory;
//  4. environment variables only.
//
// Environment variables always overlay values read from a file.
type Config struct {
	Env      string              `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig          `yaml:"http"`
	Token    TokenConfig         `yaml:"token"`
	Cache    CacheConfig         `yaml:"cache"`
	DB       DBConfig            `yaml:"db"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Features map[string][]string `yaml:"features"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// TokenConfig configures the signing codec.
type TokenConfig struct {
	// Secret is the HS256 key. Base64 values are accepted with a "base64:" prefix.
	Secret   string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
	TTL      time.Duration `yaml:"ttl" env:"TOKEN_TTL" env-default:"15m"`
	Issuer   string        `yaml:"issuer" env:"TOKEN_ISSUER" env-default:"tokenlife"`
	Audience string        `yaml:"audience" env:"TOKEN_AUDIENCE"`
	// Leeway delays expiry, and so refresh, past TTL. Responses report
	// expiresInMillis as TTL plus Leeway.
	Leeway   time.Duration `yaml:"leeway" env:"TOKEN_LEEWAY" env-default:"0s"`
	KeyID    string        `yaml:"key_id" env:"TOKEN_KEY_ID"`
}

// CacheConfig selects the token cache. An empty RedisURL means in-memory.
type CacheConfig struct {
	RedisURL  string        `yaml:"redis_url" env:"REDIS_URL"`
	Prefix    string        `yaml:"prefix" env:"CACHE_PREFIX" env-default:"tl"`
	Retention time.Duration `yaml:"retention" env:"CACHE_RETENTION" env-default:"720h"`
}

// DBConfig selects the identity store. An empty DatabaseURL means in-memory.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
	BcryptCost  int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// MetricsConfig toggles engine metrics and the /metrics endpoint.
type MetricsConfig struct {
	Enabled           bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	LatencyHistograms bool `yaml:"latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS" env-default:"false"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads the configuration using the priority documented on Config.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	if path != "" {
		return readFile(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

// Engine converts c into the library configuration.
func (c *Config) Engine() tokenlife.Config {
	out := tokenlife.DefaultConfig()
	out.Token.TTL = c.Token.TTL
	out.Cache.RedisPrefix = c.Cache.Prefix
	out.Cache.Retention = c.Cache.Retention
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.LatencyHistograms
	for name, users := range c.Features {
		out.Features[name] = append([]string(nil), users...)
	}
	return out
}

// JWT converts c into the codec configuration.
func (c *Config) JWT() (jwt.Config, error) {
	secret, err := decodeSecret(c.Token.Secret)
	if err != nil {
		return jwt.Config{}, err
	}
	return jwt.Config{
		TTL:           c.Token.TTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        c.Token.Issuer,
		Audience:      c.Token.Audience,
		Leeway:        c.Token.Leeway,
		KeyID:         c.Token.KeyID,
	}, nil
}

const base64Prefix = "base64:"

func decodeSecret(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("token secret is empty")
	}
	if len(s) > len(base64Prefix) && s[:len(base64Prefix)] == base64Prefix {
		b, err := base64.StdEncoding.DecodeString(s[len(base64Prefix):])
		if err != nil {
			return nil, fmt.Errorf("token secret: %w", err)
		}
		return b, nil
	}
	return []byte(s), nil
}
