package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, "", io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "flipi.sqlite3" || cfg.Addr != ":8080" || cfg.AdminUser != "Admin" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS, got %v", cfg.CORSOrigins)
	}
	if cfg.Bucket != "" {
		t.Errorf("expected no bucket, got %q", cfg.Bucket)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FLIPI_ADDR", ":9000")
	t.Setenv("FLIPI_DB", "env.sqlite3")

	cfg, err := Load([]string{"-d", "flag.sqlite3", "-cors", "https://a.example, https://b.example", "-rotate-secret"}, "", io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.DBPath != "flag.sqlite3" {
		t.Errorf("expected flag db path, got %q", cfg.DBPath)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if !cfg.RotateSecret {
		t.Error("expected -rotate-secret to be set")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FLIPI_BUCKET=flipi-test\nFLIPI_AUTH_BURST=9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("FLIPI_BUCKET")
		os.Unsetenv("FLIPI_AUTH_BURST")
	})

	cfg, err := Load(nil, path, io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bucket != "flipi-test" || cfg.AuthBurst != 9 {
		t.Errorf("env file not applied: %+v", cfg)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.env"), io.Discard); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadHelpAndExtraArgs(t *testing.T) {
	if _, err := Load([]string{"-h"}, "", io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
	if _, err := Load([]string{"extra"}, "", io.Discard); err == nil {
		t.Error("expected error for extra argument")
	}
	if _, err := Load([]string{"-auth-rate", "0"}, "", io.Discard); err == nil {
		t.Error("expected error for zero rate")
	}
}
