package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
environment: development
feed:
  tickers: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Scanner.Interval != 5*time.Minute {
		t.Errorf("scanner.interval = %s, want 5m", cfg.Scanner.Interval)
	}
	if cfg.Scanner.InitialDelay != time.Minute {
		t.Errorf("scanner.initial_delay = %s, want 1m", cfg.Scanner.InitialDelay)
	}
	if cfg.Scanner.Capacity != 300 {
		t.Errorf("scanner.capacity = %d, want 300", cfg.Scanner.Capacity)
	}
	if cfg.Scanner.Cooldown != 5*time.Minute {
		t.Errorf("scanner.cooldown = %s, want 5m", cfg.Scanner.Cooldown)
	}
	if cfg.Replay.ExitScope != "run" {
		t.Errorf("replay.exit_scope = %q, want run", cfg.Replay.ExitScope)
	}
	if cfg.Replay.SignalCap != 200 {
		t.Errorf("replay.signal_cap = %d, want 200", cfg.Replay.SignalCap)
	}
	if cfg.Backend.Type != "none" {
		t.Errorf("backend.type = %q, want none", cfg.Backend.Type)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no tickers", "environment: dev\n"},
		{"bad backend", minimalYAML + "backend:\n  type: tape\n"},
		{"bad exit scope", minimalYAML + "replay:\n  exit_scope: sometimes\n"},
		{"bad timeframe", minimalYAML + "replay:\n  timeframe: 2h\n"},
		{"kafka backend without brokers", minimalYAML + "backend:\n  type: kafka\n"},
		{"queue sink without redis", minimalYAML + "alerts:\n  queue: true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TICKERS", "NVDA,TSLA")
	t.Setenv("BACKEND", "clickhouse")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if len(cfg.Feed.Tickers) != 2 || cfg.Feed.Tickers[0] != "NVDA" {
		t.Errorf("feed.tickers = %v, want [NVDA TSLA]", cfg.Feed.Tickers)
	}
	if cfg.Backend.Type != "clickhouse" {
		t.Errorf("backend.type = %q, want clickhouse", cfg.Backend.Type)
	}
}
