package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"tradelens/internal/correlate"
)

// Load reads the yaml config at path, applies defaults and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, used by tests.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// MatchWindows converts the configured minutes into engine windows.
func (r ReportConfig) MatchWindows() correlate.MatchWindows {
	return correlate.MatchWindows{
		Forward:  time.Duration(r.ForwardWindowMinutes) * time.Minute,
		Backward: time.Duration(r.BackwardWindowMinutes) * time.Minute,
	}
}

// HintWindows converts the configured hint bounds into engine windows.
func (r ReportConfig) HintWindows() correlate.HintWindows {
	return correlate.HintWindows{
		Before:    time.Duration(r.HintBeforeMinutes) * time.Minute,
		After:     time.Duration(r.HintAfterMinutes) * time.Minute,
		PenaltyMS: r.HintPenaltyMS,
	}
}
