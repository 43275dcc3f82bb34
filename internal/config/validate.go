package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// problems collects every validation failure so one run reports all of them.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) port(name string, v int) {
	if v < 1 || v > 65535 {
		p.addf("%s must be between 1 and 65535, got %d", name, v)
	}
}

func (p *problems) positive(name string, v int) {
	if v < 1 {
		p.addf("%s must be positive, got %d", name, v)
	}
}

// Validate rejects configurations the API cannot safely start with.
func (c *Config) Validate() error {
	var p problems

	if len(c.JWT.Secret) < 32 {
		p.addf("JWT_SECRET must be at least 32 characters")
	}
	if c.JWT.Expiry <= 0 {
		p.addf("JWT_EXPIRY must be positive")
	}

	// 32-byte AES key for stored provider keys
	switch key := c.Encryption.Key; {
	case key == "":
		p.addf("ENCRYPTION_KEY is required")
	case len(key) != 64:
		p.addf("ENCRYPTION_KEY must be 64 hex characters, got %d", len(key))
	default:
		if _, err := hex.DecodeString(key); err != nil {
			p.addf("ENCRYPTION_KEY must be valid hex")
		}
	}

	if c.DB.Password == "" {
		p.addf("DB_PASSWORD is required")
	}

	p.port("SERVER_PORT", c.Server.Port)
	p.port("DB_PORT", c.DB.Port)
	p.port("REDIS_PORT", c.Redis.Port)

	p.positive("LIMITS_RESUMES", c.Limits.ResumesPerPeriod)
	p.positive("LIMITS_INTERVIEWS", c.Limits.InterviewsPerPeriod)
	if c.Limits.OverlayMinutes < 0 {
		p.addf("LIMITS_OVERLAY_MINUTES must not be negative, got %d", c.Limits.OverlayMinutes)
	}

	p.positive("RATELIMIT_REQUESTS", c.RateLimit.Requests)
	p.positive("RATELIMIT_WINDOW", c.RateLimit.WindowSec)

	if !c.NATS.Enabled() {
		slog.Warn("NATS_URL is empty; subscription sync and usage events are disabled")
	}

	if len(p) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(p, "\n  "))
	}
	return nil
}
