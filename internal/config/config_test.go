package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Name != "sarifscope" {
		t.Errorf("expected app name sarifscope, got %s", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodySize != 50<<20 {
		t.Errorf("expected 50MB body limit, got %d", cfg.Server.MaxBodySize)
	}
	if !cfg.Ingest.StoreRaw {
		t.Error("expected raw storage enabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_CONN_MAX_LIFETIME", "1m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Database.ConnMaxLifetime != time.Minute {
		t.Errorf("expected 1m lifetime, got %v", cfg.Database.ConnMaxLifetime)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("expected trimmed origin list, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "0")
		if _, err := Load(); err == nil {
			t.Error("expected error for port 0")
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil {
			t.Error("expected error for unknown log level")
		}
	})

	t.Run("production rejects defaults", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		if _, err := Load(); err == nil {
			t.Error("expected production validation to reject default password")
		}
	})

	t.Run("production accepts hardened settings", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("DB_PASSWORD", "a-real-password")
		t.Setenv("DB_SSLMODE", "require")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
		if _, err := Load(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
