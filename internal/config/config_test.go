package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFrom_ValidWithDefaults(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":9000"
pdf:
  chrome_pool_size: 2
export:
  scale: 3
repository:
  driver: redis
`)
	cfg := LoadFrom(p)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 2, cfg.PDF.ChromePoolSize)
	assert.Equal(t, 3.0, cfg.Export.Scale)
	assert.Equal(t, "redis", cfg.Repository.Driver)
	assert.Equal(t, 10.0, cfg.PDF.MarginMM)
	assert.Equal(t, 800, cfg.Export.TemplateWidth)
	assert.Equal(t, "USD", cfg.Export.DefaultCurrency)
	assert.Equal(t, 1500*time.Millisecond, cfg.Export.SettleTimeout)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown driver", yml: "repository:\n  driver: mongo\n"},
		{name: "margin eats page", yml: "pdf:\n  margin_mm: 150\n"},
		{name: "bad orientation", yml: "pdf:\n  orientation: diagonal\n"},
		{name: "unknown default paper", yml: "pdf:\n  default_paper: B0\n"},
		{name: "postgres without host", yml: "repository:\n  driver: postgres\n"},
		{name: "s3 without bucket", yml: "storage:\n  s3:\n    enabled: true\n"},
		{name: "oversized scale", yml: "export:\n  scale: 9\n"},
		{name: "malformed yaml", yml: "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoad_UsesConfigPathEnvAndChromeBin(t *testing.T) {
	p := writeConfig(t, "server:\n  port: \":7000\"\n")
	t.Setenv("CONFIG_PATH", p)
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")

	cfg := Load()
	assert.Equal(t, ":7000", cfg.Server.Port)
	assert.Equal(t, "/usr/bin/chromium", cfg.PDF.ChromePath)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg := Load()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "memory", cfg.Repository.Driver)
}

func TestPaper_OrientationAndFallback(t *testing.T) {
	cfg := Default()

	a4, ok := cfg.Paper("", "")
	require.True(t, ok)
	assert.Equal(t, PaperSize{Width: 210, Height: 297}, a4)

	landscape, ok := cfg.Paper("a4", "landscape")
	require.True(t, ok)
	assert.Equal(t, PaperSize{Width: 297, Height: 210}, landscape)

	_, ok = cfg.Paper("B0", "")
	assert.False(t, ok)
}
