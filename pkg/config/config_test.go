package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendREST {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, BackendREST)
	}
	if cfg.Store.Timeout != 30*time.Second {
		t.Errorf("Store.Timeout = %v, want 30s", cfg.Store.Timeout)
	}
	if cfg.Import.Workers != 1 {
		t.Errorf("Import.Workers = %d, want 1", cfg.Import.Workers)
	}
	if cfg.Import.SourcePriority != 30 {
		t.Errorf("Import.SourcePriority = %d, want 30", cfg.Import.SourcePriority)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoad_AlternateNames(t *testing.T) {
	t.Setenv("VITE_SUPABASE_URL", "https://alt.supabase.co")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "alt-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.URL != "https://alt.supabase.co" || cfg.Store.Key != "alt-key" {
		t.Errorf("alternate env names not honored: %+v", cfg.Store)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("VITE_SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	for _, want := range []string{"SUPABASE_URL", "SUPABASE_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err, want)
		}
	}
}

func TestLoad_SQLiteNeedsNoCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("IMPORT_WORKERS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.SQLitePath != "test.db" || cfg.Import.Workers != 3 {
		t.Errorf("unexpected config: %s", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("IMPORT_WORKERS", "many")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "IMPORT_WORKERS") {
		t.Fatalf("expected invalid IMPORT_WORKERS error, got %v", err)
	}

	t.Setenv("IMPORT_WORKERS", "1")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "STORE_BACKEND") || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("expected all problems reported, got %v", err)
	}
	if errors.Is(err, ErrMissingCredentials) {
		t.Errorf("unknown backend is not a credentials problem")
	}
}

func TestConfigStringMasksKey(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Backend: "rest", Key: "secret-key", DatabaseURL: "postgres://u:pw@h/db"}}
	s := cfg.String()
	if strings.Contains(s, "secret-key") || strings.Contains(s, "pw@") {
		t.Errorf("String() leaks credentials: %s", s)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VOCABIMPORT_TEST_A=from-file\nVOCABIMPORT_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOCABIMPORT_TEST_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("VOCABIMPORT_TEST_A") })

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("VOCABIMPORT_TEST_A"); got != "from-file" {
		t.Errorf("VOCABIMPORT_TEST_A = %q, want from-file", got)
	}
	if got := os.Getenv("VOCABIMPORT_TEST_B"); got != "from-env" {
		t.Errorf("existing environment must win, got %q", got)
	}

	missing := filepath.Join(dir, "none.env")
	if err := LoadEnvFile(missing, false); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if err := LoadEnvFile(missing, true); err == nil {
		t.Errorf("required missing file should fail")
	}
}
