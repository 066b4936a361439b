package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/app?sslmode=disable")
	t.Setenv("SERVER_HTTP_PORT", "9090")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != "9090" {
		t.Errorf("http_port = %q, want 9090", cfg.Server.HTTPPort)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("token_ttl = %s, want 168h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.OTPTTL != 10*time.Minute {
		t.Errorf("otp_ttl = %s, want 10m", cfg.Auth.OTPTTL)
	}
	if cfg.Database.MaxOpenConns != 20 || !cfg.Database.AutoMigrate {
		t.Errorf("database defaults not applied: %+v", cfg.Database)
	}
}

func TestLoadFromFileFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
auth:
  jwt_secret: file-secret
  otp_ttl: 5m
database:
  driver: sqlite
  dsn: ":memory:"
mail:
  enabled: true
  smtp_host: smtp.example.com
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "file-secret" || cfg.Auth.OTPTTL != 5*time.Minute {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Mail.SMTPPort != "587" {
		t.Errorf("database/mail = %+v / %+v", cfg.Database, cfg.Mail)
	}
}

func TestLoadRejectsPlaceholderSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	_, err := Load(nil)
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("err = %v, want jwt_secret error", err)
	}
}

func TestLoadRejectsHalfBootstrap(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s")
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error when bootstrap password is missing")
	}
}
