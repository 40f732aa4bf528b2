package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
store:
  path: /tmp/test.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9984", cfg.App.HTTPAddr)
	assert.Equal(t, "/tmp/test.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Report.LookbackDays)
	assert.Equal(t, 500, cfg.Report.TradePageSize)
	assert.Equal(t, 3000, cfg.Report.TradeRowCap)
	assert.Equal(t, 720, cfg.Report.ForwardWindowMinutes)
	assert.Equal(t, 10, cfg.Report.BackwardWindowMinutes)
	assert.Equal(t, "15m", cfg.Report.RefreshInterval)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":8080"
report:
  lookback_days: 3
  forward_window_minutes: 60
  backward_window_minutes: 5
  hint_penalty_ms: 2000
rules:
  path: /etc/tradelens/rules.yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, 3, cfg.Report.LookbackDays)
	assert.Equal(t, "/etc/tradelens/rules.yaml", cfg.Rules.Path)

	w := cfg.Report.MatchWindows()
	assert.Equal(t, time.Hour, w.Forward)
	assert.Equal(t, 5*time.Minute, w.Backward)
	hw := cfg.Report.HintWindows()
	assert.Equal(t, int64(2000), hw.PenaltyMS)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad log level", "app:\n  log_level: verbose\n"},
		{"page over cap", "report:\n  trade_page_size: 600\n"},
		{"row cap below page", "report:\n  trade_page_size: 400\n  trade_row_cap: 100\n"},
		{"backward not below forward", "report:\n  forward_window_minutes: 10\n  backward_window_minutes: 10\n"},
		{"bad refresh interval", "report:\n  refresh_interval: sometimes\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestDefaultWindows(t *testing.T) {
	cfg := Default()
	w := cfg.Report.MatchWindows()
	assert.Equal(t, 12*time.Hour, w.Forward)
	assert.Equal(t, 10*time.Minute, w.Backward)
	hw := cfg.Report.HintWindows()
	assert.Equal(t, 5*time.Minute, hw.Before)
	assert.Equal(t, 20*time.Minute, hw.After)
	assert.Equal(t, int64(4000), hw.PenaltyMS)
}
