package config

// Config is the top-level configuration document.
type Config struct {
	App    AppConfig    `toml:"app"`
	Store  StoreConfig  `toml:"store"`
	Report ReportConfig `toml:"report"`
	Rules  RulesConfig  `toml:"rules"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// StoreConfig points at the sqlite database the ingestion side maintains.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ReportConfig tunes fetch bounds and the correlation windows. The trade
// row cap deliberately trades completeness for bounded memory and
// latency: paging stops once RowCap rows have been fetched, whatever the
// true ledger size.
type ReportConfig struct {
	RefreshInterval string `toml:"refresh_interval"`

	LookbackDays   int `toml:"lookback_days"`
	SignatureLimit int `toml:"signature_limit"`
	SampleLimit    int `toml:"sample_limit"`
	AuditHours     int `toml:"audit_hours"`
	TradePageSize  int `toml:"trade_page_size"`
	TradeRowCap    int `toml:"trade_row_cap"`

	ForwardWindowMinutes  int   `toml:"forward_window_minutes"`
	BackwardWindowMinutes int   `toml:"backward_window_minutes"`
	HintBeforeMinutes     int   `toml:"hint_before_minutes"`
	HintAfterMinutes      int   `toml:"hint_after_minutes"`
	HintPenaltyMS         int64 `toml:"hint_penalty_ms"`
}

// RulesConfig points at the optional classifier override file.
type RulesConfig struct {
	Path string `toml:"path"`
}
