package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Address() != "localhost:8084" {
		t.Errorf("expected localhost:8084, got %s", cfg.Address())
	}
	if cfg.Data.Source != SourceCSV {
		t.Errorf("expected csv source, got %s", cfg.Data.Source)
	}
	if cfg.Data.Table != "wines" {
		t.Errorf("expected wines table, got %s", cfg.Data.Table)
	}
	if cfg.Query.DefaultLimit != 50 || cfg.Query.MemoSize != 256 {
		t.Errorf("unexpected query defaults %+v", cfg.Query)
	}
	if !cfg.Features.Carousel || !cfg.Features.Explorer || !cfg.Features.Gallery {
		t.Errorf("expected all sections enabled, got %+v", cfg.Features)
	}
	if cfg.Assets.RegenerateCommand != "" {
		t.Errorf("expected no regenerate command, got %q", cfg.Assets.RegenerateCommand)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATA_SOURCE", "SQLite")
	t.Setenv("SQLITE_FILE", "/tmp/wines.db")
	t.Setenv("DATA_LOAD_TIMEOUT", "2s")
	t.Setenv("FEATURE_CAROUSEL", "false")
	t.Setenv("FEATURE_CASCADING", "0")
	t.Setenv("QUERY_MEMO_SIZE", "0")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Data.Source != SourceSQLite || cfg.Data.SQLiteFile != "/tmp/wines.db" {
		t.Errorf("unexpected data config %+v", cfg.Data)
	}
	if cfg.Data.LoadTimeout != 2*time.Second {
		t.Errorf("expected 2s load timeout, got %v", cfg.Data.LoadTimeout)
	}
	if cfg.Features.Carousel || cfg.Features.Cascading {
		t.Errorf("expected carousel and cascading disabled, got %+v", cfg.Features)
	}
	if cfg.Query.MemoSize != 0 {
		t.Errorf("expected memo disabled, got %d", cfg.Query.MemoSize)
	}
	want := []string{"http://a.example", "http://b.example"}
	if strings.Join(cfg.Security.AllowedOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, cfg.Security.AllowedOrigins)
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("FEATURE_GALLERY", "maybe")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8084 || !cfg.Features.Gallery || cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected defaults for malformed values, got port=%d gallery=%v read=%v",
			cfg.Server.Port, cfg.Features.Gallery, cfg.Server.ReadTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port", map[string]string{"SERVER_PORT": "70000"}, "server port"},
		{"source", map[string]string{"DATA_SOURCE": "parquet"}, "invalid data source"},
		{"postgres dsn", map[string]string{"DATA_SOURCE": "postgres"}, "POSTGRES_DSN"},
		{"limit", map[string]string{"QUERY_DEFAULT_LIMIT": "-1"}, "default limit"},
		{"memo", map[string]string{"QUERY_MEMO_SIZE": "-5"}, "memo size"},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "log level"},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}, "log format"},
		{"rps", map[string]string{"SECURITY_RATE_LIMIT_RPS": "-1"}, "RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "SERVER_PORT=7070\nASSETS_DIR=from-dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	// the process environment wins over the file
	t.Setenv("SERVER_PORT", "6060")
	t.Cleanup(func() { os.Unsetenv("ASSETS_DIR") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("expected environment port 6060, got %d", cfg.Server.Port)
	}
	if cfg.Assets.Dir != "from-dotenv" {
		t.Errorf("expected assets dir from .env, got %q", cfg.Assets.Dir)
	}
}
