// Package correlate reconciles free-text bot log samples against the trade
// ledger: it classifies why entries were skipped and links trailing-entry
// trigger lines to the trades they produced.
package correlate

import (
	"strings"
	"time"
)

// MatchSource tags which evidence tier resolved an event or row to a trade.
type MatchSource string

const (
	MatchNone          MatchSource = "none"
	MatchClosedTrail   MatchSource = "closed_trail"
	MatchTradeFallback MatchSource = "trade_fallback"
	MatchRPCHint       MatchSource = "rpc_hint"
	MatchTradeOnly     MatchSource = "trade_only"
)

// Side is the direction parsed out of a trigger line.
type Side string

const (
	SideLong    Side = "long"
	SideShort   Side = "short"
	SideUnknown Side = "unknown"
)

// LogSample is one raw line from the external log store. Never mutated.
type LogSample struct {
	EventTime time.Time `json:"event_ts"`
	BotID     int       `json:"bot_id"`
	Logger    string    `json:"logger"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Trade is a read-only row from the external trade ledger.
type Trade struct {
	ID            int        `json:"id"`
	BotID         int        `json:"bot_id"`
	SourceTradeID int        `json:"source_trade_id"`
	Pair          string     `json:"pair"`
	IsShort       bool       `json:"is_short"`
	EnterTag      string     `json:"enter_tag"`
	IsOpen        bool       `json:"is_open"`
	OpenDate      *time.Time `json:"open_date"`
	CloseDate     *time.Time `json:"close_date"`
	OpenRate      float64    `json:"open_rate"`
	CloseRate     float64    `json:"close_rate"`
	ProfitAbs     *float64   `json:"profit_abs,omitempty"`
}

// IsTrailingTagged reports whether the entry tag marks a trailing entry.
func (t Trade) IsTrailingTagged() bool {
	return strings.Contains(strings.ToLower(t.EnterTag), "trail")
}

// TriggerEvent is a parsed trailing-trigger log line, annotated by the
// match cascade. Resolution replaces the value rather than mutating it.
type TriggerEvent struct {
	Sample LogSample `json:"sample"`

	Pair            string   `json:"pair"`
	Side            Side     `json:"side"`
	ProfitPct       *float64 `json:"profit_pct,omitempty"`
	OffsetPct       *float64 `json:"offset_pct,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	StartValue      *float64 `json:"start_value,omitempty"`
	CurrentValue    *float64 `json:"current_value,omitempty"`
	LowLimit        *float64 `json:"low_limit,omitempty"`
	UpLimit         *float64 `json:"up_limit,omitempty"`

	TradeID     *int        `json:"trade_id,omitempty"`
	EnteredAt   *time.Time  `json:"entered_at,omitempty"`
	MatchSource MatchSource `json:"match_source"`
}

// MissedTradeEvent is one classified "entry not taken" log line.
type MissedTradeEvent struct {
	Sample      LogSample  `json:"sample"`
	Pair        string     `json:"pair"`
	ReasonCode  ReasonCode `json:"reason_code"`
	ReasonLabel string     `json:"reason_label"`
	Details     *string    `json:"details,omitempty"`
}

// RpcTradeHint is a (bot, pair, time) -> trade id fact extracted from an
// RPC entry broadcast, used only as last-resort match evidence.
type RpcTradeHint struct {
	EventTime time.Time `json:"event_ts"`
	BotID     int       `json:"bot_id"`
	Pair      string    `json:"pair"`
	TradeID   int       `json:"trade_id"`
}

// TrailingTradeRow is the final report unit: one row per closed,
// trailing-tagged trade. Snapshot is the most recent trigger event at or
// before the trade open; LogEntries is every matched event ascending by
// event time. Rows with MatchSource == MatchTradeOnly carry no log-derived
// numerics; trade P&L is a different unit and is never copied into them.
type TrailingTradeRow struct {
	BotID     int        `json:"bot_id"`
	BotName   string     `json:"bot_name,omitempty"`
	Container string     `json:"container,omitempty"`
	TradeID   int        `json:"trade_id"`
	Pair      string     `json:"pair"`
	IsShort   bool       `json:"is_short"`
	EnterTag  string     `json:"enter_tag"`
	OpenDate  *time.Time `json:"open_date"`
	CloseDate *time.Time `json:"close_date"`

	MatchSource MatchSource    `json:"match_source"`
	Snapshot    *TriggerEvent  `json:"snapshot,omitempty"`
	LogEntries  []TriggerEvent `json:"log_entries,omitempty"`
}
