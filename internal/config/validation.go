package config

import (
	"fmt"
	"strings"

	"tradelens/internal/scheduler"
)

func validate(c *Config) error {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is not a known level", c.App.LogLevel)
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	r := c.Report
	if _, ok := scheduler.ParseIntervalDuration(r.RefreshInterval); !ok {
		return fmt.Errorf("report.refresh_interval %q is not a valid interval", r.RefreshInterval)
	}
	if r.TradePageSize > 500 {
		return fmt.Errorf("report.trade_page_size must not exceed 500")
	}
	if r.TradeRowCap < r.TradePageSize {
		return fmt.Errorf("report.trade_row_cap must be at least one page")
	}
	if r.BackwardWindowMinutes >= r.ForwardWindowMinutes {
		return fmt.Errorf("report.backward_window_minutes must stay below the forward window")
	}
	return nil
}
