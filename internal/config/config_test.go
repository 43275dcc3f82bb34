package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDotEnv(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Chdir(dir)
}

// unsetEnv clears keys for the test so the .env values are not shadowed.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	writeDotEnv(t, "LIMITS_RESUMES=7\nSERVER_PORT=9999\nDB_MAX_CONNS=4\nJWT_EXPIRY=15m\nCORS_ALLOWED_ORIGINS=\"https://a.example,https://b.example\"\n")
	unsetEnv(t, "LIMITS_RESUMES", "SERVER_PORT", "DB_MAX_CONNS", "JWT_EXPIRY", "CORS_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.ResumesPerPeriod != 7 {
		t.Errorf("expected resumes limit 7 from .env, got %d", cfg.Limits.ResumesPerPeriod)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999 from .env, got %d", cfg.Server.Port)
	}
	if cfg.DB.MaxConns != 4 {
		t.Errorf("expected max conns 4 from .env, got %d", cfg.DB.MaxConns)
	}
	if cfg.JWT.Expiry != 15*time.Minute {
		t.Errorf("expected jwt expiry 15m from .env, got %s", cfg.JWT.Expiry)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	writeDotEnv(t, "LIMITS_INTERVIEWS=9\n")
	t.Setenv("LIMITS_INTERVIEWS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.InterviewsPerPeriod != 4 {
		t.Errorf("expected env to win with 4, got %d", cfg.Limits.InterviewsPerPeriod)
	}
}

func TestLoad_MissingDotEnvUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetEnv(t, "LIMITS_OVERLAY_MINUTES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.OverlayMinutes != 180 {
		t.Errorf("expected default overlay minutes 180, got %d", cfg.Limits.OverlayMinutes)
	}
}
