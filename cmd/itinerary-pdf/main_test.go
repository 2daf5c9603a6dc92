package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"itinerary-pdf/internal/config"
)

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":0"

	idleConnsClosed := make(chan struct{})
	go startServer(app, cfg, idleConnsClosed)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-idleConnsClosed:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for graceful shutdown")
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	err := os.WriteFile(cfgPath, []byte(`
server:
  host: "127.0.0.1"
  port: ":0"
logger:
  file: "`+filepath.Join(dir, "itinerary.log")+`"
  level: "info"
  max_size_mb: 1
  max_backups: 1
  max_age_days: 1
redis:
  host: "127.0.0.1:1"
pdf:
  default_paper: "A4"
  timeout_secs: 1
  chrome_no_sandbox: true
  chrome_pool_size: 0
repository:
  driver: memory
`), 0o644)
	if err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	return cfgPath
}

func TestServe_UsesConfigAndShutsDown(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t))
	t.Setenv("CHROME_BIN", "/bin/true")

	done := make(chan error, 1)
	go func() {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"serve"})
		done <- cmd.Execute()
	}()

	time.Sleep(300 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("signal serve: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for serve to exit")
	}
}

func TestExport_InputErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t))

	missing := newRootCmd()
	missing.SetArgs([]string{"export", "--in", filepath.Join(t.TempDir(), "nope.json")})
	missing.SetOut(&bytes.Buffer{})
	missing.SetErr(&bytes.Buffer{})
	if err := missing.Execute(); err == nil {
		t.Fatalf("expected error for missing input file")
	}

	bad := newRootCmd()
	bad.SetArgs([]string{"export"})
	bad.SetIn(strings.NewReader("{not json"))
	bad.SetOut(&bytes.Buffer{})
	bad.SetErr(&bytes.Buffer{})
	err := bad.Execute()
	if err == nil || !strings.Contains(err.Error(), "decode snapshot") {
		t.Fatalf("expected decode error, got %v", err)
	}

	layout := newRootCmd()
	layout.SetArgs([]string{"export", "--format", "A0"})
	layout.SetIn(strings.NewReader(`{"tourOverview":{"tripTitle":"Goa"}}`))
	layout.SetOut(&bytes.Buffer{})
	layout.SetErr(&bytes.Buffer{})
	if err := layout.Execute(); err == nil {
		t.Fatalf("expected error for unknown paper format")
	}
}

func TestOpenRepository(t *testing.T) {
	cfg := config.Default()
	repo, closeRepo, err := openRepository(context.Background(), cfg)
	if err != nil || repo == nil {
		t.Fatalf("memory repository: %v", err)
	}
	closeRepo()

	cfg.Repository.Driver = "cassandra"
	if _, _, err := openRepository(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRedisClient_Unreachable(t *testing.T) {
	cfg := config.Default()
	if rdb := redisClient(context.Background(), cfg); rdb != nil {
		t.Fatalf("expected nil client without host")
	}
	cfg.Redis.Host = "127.0.0.1:1"
	if rdb := redisClient(context.Background(), cfg); rdb != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}

func TestOpenArchive_Disabled(t *testing.T) {
	saver, err := openArchive(context.Background(), config.Default())
	if err != nil || saver != nil {
		t.Fatalf("expected no archive, got %v (%v)", saver, err)
	}
}
