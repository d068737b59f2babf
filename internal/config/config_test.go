package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvBackend, "")
	dir := t.TempDir()

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("expected dir %q, got %q", dir, cfg.Dir)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("expected api url %q, got %q", DefaultAPIURL, cfg.APIURL)
	}
	if cfg.Backend != BackendREST {
		t.Errorf("expected backend %q, got %q", BackendREST, cfg.Backend)
	}
	if cfg.SessionPath() != filepath.Join(dir, "session.json") {
		t.Errorf("unexpected session path %q", cfg.SessionPath())
	}
}

func TestNew_DotenvInConfigDir(t *testing.T) {
	// godotenv treats an empty but present variable as set, so unset it.
	t.Setenv(EnvAPIURL, "")
	os.Unsetenv(EnvAPIURL)
	dir := t.TempDir()
	env := "TASKMAN_API_URL=http://tasks.example.test:8080/\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "http://tasks.example.test:8080" {
		t.Errorf("expected trimmed url from .env, got %q", cfg.APIURL)
	}
}

func TestNew_EnvironmentWinsOverDotenv(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://from-env.test")
	dir := t.TempDir()
	env := "TASKMAN_API_URL=http://from-file.test\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "http://from-env.test" {
		t.Errorf("expected environment to win, got %q", cfg.APIURL)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Setenv(EnvBackend, "carrier-pigeon")

	if _, err := New(t.TempDir()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	if got := DefaultConfigDir(); got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("unexpected dir %q", got)
	}
}

func TestNew_UnreadableDotenvKeepsCause(t *testing.T) {
	dir := t.TempDir()
	// A directory where the .env file should be cannot be read.
	if err := os.Mkdir(filepath.Join(dir, EnvFile), 0700); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir)
	if err == nil {
		t.Fatal("expected an error for an unreadable .env")
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("expected the read error to be wrapped, got %T: %v", err, err)
	}
}
