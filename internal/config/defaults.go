package config

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9984"
	defaultStorePath   = "/data/db/tradelens.db"

	defaultRefreshInterval = "15m"

	defaultLookbackDays   = 7
	defaultSignatureLimit = 200
	defaultSampleLimit    = 100
	defaultAuditHours     = 24
	defaultTradePageSize  = 500
	// low thousands by design: the row cap bounds memory and latency
	// regardless of the true ledger size
	defaultTradeRowCap = 3000

	defaultForwardWindowMinutes  = 12 * 60
	defaultBackwardWindowMinutes = 10
	defaultHintBeforeMinutes     = 5
	defaultHintAfterMinutes      = 20
	defaultHintPenaltyMS         = 4000
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	r := &c.Report
	if r.RefreshInterval == "" {
		r.RefreshInterval = defaultRefreshInterval
	}
	if r.LookbackDays <= 0 {
		r.LookbackDays = defaultLookbackDays
	}
	if r.SignatureLimit <= 0 {
		r.SignatureLimit = defaultSignatureLimit
	}
	if r.SampleLimit <= 0 {
		r.SampleLimit = defaultSampleLimit
	}
	if r.AuditHours <= 0 {
		r.AuditHours = defaultAuditHours
	}
	if r.TradePageSize <= 0 {
		r.TradePageSize = defaultTradePageSize
	}
	if r.TradeRowCap <= 0 {
		r.TradeRowCap = defaultTradeRowCap
	}
	if r.ForwardWindowMinutes <= 0 {
		r.ForwardWindowMinutes = defaultForwardWindowMinutes
	}
	if r.BackwardWindowMinutes <= 0 {
		r.BackwardWindowMinutes = defaultBackwardWindowMinutes
	}
	if r.HintBeforeMinutes <= 0 {
		r.HintBeforeMinutes = defaultHintBeforeMinutes
	}
	if r.HintAfterMinutes <= 0 {
		r.HintAfterMinutes = defaultHintAfterMinutes
	}
	if r.HintPenaltyMS <= 0 {
		r.HintPenaltyMS = defaultHintPenaltyMS
	}
}
