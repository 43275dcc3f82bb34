package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Limits     LimitsConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables billing sync and usage events.
type NATSConfig struct {
	URL string
}

func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// JWTConfig holds the shared secret of the identity provider that issues access tokens.
type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type EncryptionConfig struct {
	Key string
}

// LimitsConfig holds the per-period PRO allowances.
type LimitsConfig struct {
	ResumesPerPeriod    int
	InterviewsPerPeriod int
	OverlayMinutes      int
}

type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// .env keys go through the same transform as env vars so both land on
	// dotted paths (SERVER_PORT -> server.port). A missing file is fine.
	if err := k.Load(file.Provider(".env"), dotenv.ParserEnv("", ".", envKey)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// Environment variables override .env
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
			Issuer: k.String("jwt.issuer"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		Limits: LimitsConfig{
			ResumesPerPeriod:    k.Int("limits.resumes"),
			InterviewsPerPeriod: k.Int("limits.interviews"),
			OverlayMinutes:      k.Int("limits.overlay.minutes"),
		},
		RateLimit: RateLimitConfig{
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	applyDefaults(cfg)

	expiryStr := k.String("jwt.expiry")
	if expiryStr == "" {
		expiryStr = "1h"
	}
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt expiry: %w", err)
	}
	cfg.JWT.Expiry = expiry

	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "."))
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "coach"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "coach"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "coach"
	}
	if cfg.Limits.ResumesPerPeriod == 0 {
		cfg.Limits.ResumesPerPeriod = 100
	}
	if cfg.Limits.InterviewsPerPeriod == 0 {
		cfg.Limits.InterviewsPerPeriod = 10
	}
	if cfg.Limits.OverlayMinutes == 0 {
		cfg.Limits.OverlayMinutes = 180
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 120
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
