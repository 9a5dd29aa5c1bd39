package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/smpctl/internal/protocol/frame"
	"github.com/danmuck/smpctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smpctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigEmptyPathIsDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadClientConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 1337 || cfg.Timeout != 5*time.Second || cfg.Version != 1 || cfg.MaxDatagram != frame.MaxFrameLen {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Retries != 3 {
		t.Fatalf("unexpected retries: %d", cfg.Retries)
	}
}

func TestLoadClientConfigOverlaysDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
host = " 192.0.2.7 "
timeout = "750ms"
retries = 5
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "192.0.2.7" || cfg.Timeout != 750*time.Millisecond || cfg.Retries != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Port != 1337 {
		t.Fatalf("undefined port must keep default, got %d", cfg.Port)
	}
}

func TestLoadClientConfigTimeoutMSWins(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
timeout = "9s"
timeout_ms = 1200
`)
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timeout != 1200*time.Millisecond {
		t.Fatalf("expected 1.2s, got %s", cfg.Timeout)
	}
}

func TestLoadClientConfigRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"port":         "port = 70000\n",
		"timeout":      "timeout = \"soon\"\n",
		"zero-timeout": "timeout_ms = 0\n",
		"version":      "version = 4\n",
		"datagram":     "max_datagram = 4\n",
		"retries":      "retries = 0\n",
		"unknown-key":  "hots = \"192.0.2.1\"\n",
	}
	for name, body := range cases {
		_, err := LoadClientConfig(writeConfig(t, body))
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestLoadClientConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := DefaultClientConfig()
	in.Host = "device.local"
	in.Timeout = 2500 * time.Millisecond
	in.MetricsTextfile = "/var/lib/node_exporter/smpctl.prom"
	raw, err := Render(in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out, err := LoadClientConfig(writeConfig(t, string(raw)))
	if err != nil {
		t.Fatalf("reload rendered config: %v\n%s", err, raw)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", out, in)
	}
}

func TestTemplateLoadsAndValidates(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "smpctl.toml")
	if err := WriteTemplate(path, "client", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "client", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, "client", true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Host != "192.0.2.1" {
		t.Fatalf("unexpected template host %q", cfg.Host)
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestConvert(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultClientConfig()
	cfg.Host = "192.0.2.1"
	if got := Address(cfg); got != "192.0.2.1:1337" {
		t.Fatalf("unexpected address %q", got)
	}
	cfg.Host = "192.0.2.1:9000"
	if got := Address(cfg); got != "192.0.2.1:9000" {
		t.Fatalf("explicit port must win, got %q", got)
	}
	cfg.Host = "[fe80::1]"
	if got := Address(cfg); got != "[fe80::1]:1337" {
		t.Fatalf("unexpected ipv6 address %q", got)
	}

	sc := SessionConfig(cfg)
	if err := sc.Validate(); err != nil {
		t.Fatalf("session config: %v", err)
	}
	rc := RetryConfig(cfg)
	if rc.Attempts != 3 || rc.Backoff.InitialDelay != cfg.RetryDelay || rc.Backoff.MaxDelay != 8*cfg.RetryDelay {
		t.Fatalf("unexpected retry config %+v", rc)
	}
}
