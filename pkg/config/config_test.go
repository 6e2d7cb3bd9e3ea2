package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Storage.BackupsToKeep != 5 {
		t.Errorf("backupsToKeep = %d", cfg.Storage.BackupsToKeep)
	}
	if !cfg.Storage.SaveOnWrite {
		t.Error("saveOnWrite should default to true")
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxResults != 100 {
		t.Errorf("search limits = %+v", cfg.Search)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled || cfg.Auth.Enabled {
		t.Error("optional subsystems must default to disabled")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9999\nstorage:\n  dataDir: /tmp/custom\nsearch:\n  defaultLimit: 25\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/custom" {
		t.Errorf("dataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Search.DefaultLimit != 25 {
		t.Errorf("defaultLimit = %d, want 25", cfg.Search.DefaultLimit)
	}
	// Unspecified fields keep their defaults.
	if cfg.Search.MaxResults != 100 {
		t.Errorf("maxResults = %d, want default 100", cfg.Search.MaxResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "7070")
	t.Setenv("DS_STORAGE_DATA_DIR", "/var/lib/docsearch")
	t.Setenv("DS_REDIS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/var/lib/docsearch" {
		t.Errorf("dataDir = %q", cfg.Storage.DataDir)
	}
	if !cfg.Redis.Enabled {
		t.Error("DS_REDIS_ENABLED not applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.BackupsToKeep = 0
	if err := cfg.validate(); err == nil {
		t.Error("backupsToKeep 0 accepted")
	}

	cfg = defaultConfig()
	cfg.Search.MaxResults = 5 // below defaultLimit
	if err := cfg.validate(); err == nil {
		t.Error("maxResults below defaultLimit accepted")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db.internal", Port: 5433, Database: "docs",
		User: "svc", Password: "secret", SSLMode: "require",
		ConnMaxLifetime: 5 * time.Minute,
	}
	dsn := p.DSN()
	for _, part := range []string{"host=db.internal", "port=5433", "dbname=docs", "user=svc", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}
