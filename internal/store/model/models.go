package model

import (
	"time"

	"gorm.io/datatypes"

	"tradelens/internal/correlate"
)

// BotModel maps to 'bots'.
type BotModel struct {
	ID        int    `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name"`
	Container string `gorm:"column:container"`
}

func (BotModel) TableName() string { return "bots" }

// SignatureModel maps to 'log_signatures': one row per deduplicated
// message family, maintained by the ingestion side.
type SignatureModel struct {
	SignatureHash string `gorm:"column:signature_hash;primaryKey"`
	Signature     string `gorm:"column:signature"`
	Logger        string `gorm:"column:logger"`
	Level         string `gorm:"column:level"`
	Occurrences   int    `gorm:"column:occurrences"`
	LastSeen      int64  `gorm:"column:last_seen;index"`
}

func (SignatureModel) TableName() string { return "log_signatures" }

// LogSampleModel maps to 'log_samples'. Raw holds the original payload
// when the line was synthesized from a structured RPC message.
type LogSampleModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	SignatureHash string         `gorm:"column:signature_hash;index"`
	EventTS       int64          `gorm:"column:event_ts;index"`
	BotID         int            `gorm:"column:bot_id;index"`
	Logger        string         `gorm:"column:logger"`
	Level         string         `gorm:"column:level"`
	Message       string         `gorm:"column:message"`
	Raw           datatypes.JSON `gorm:"column:raw;type:TEXT"`
}

func (LogSampleModel) TableName() string { return "log_samples" }

// ToSample converts the row to the engine's immutable sample type.
func (m LogSampleModel) ToSample() correlate.LogSample {
	return correlate.LogSample{
		EventTime: time.UnixMilli(m.EventTS).UTC(),
		BotID:     m.BotID,
		Logger:    m.Logger,
		Level:     m.Level,
		Message:   m.Message,
	}
}

// TradeModel maps to 'trades', the read-only ledger mirror.
type TradeModel struct {
	ID            int64    `gorm:"column:id;primaryKey"`
	TradeID       int      `gorm:"column:trade_id;index"`
	BotID         int      `gorm:"column:bot_id;index"`
	SourceTradeID int      `gorm:"column:source_trade_id"`
	Pair          string   `gorm:"column:pair;index"`
	IsShort       bool     `gorm:"column:is_short"`
	EnterTag      string   `gorm:"column:enter_tag"`
	IsOpen        bool     `gorm:"column:is_open"`
	OpenTS        *int64   `gorm:"column:open_ts;index"`
	CloseTS       *int64   `gorm:"column:close_ts"`
	OpenRate      float64  `gorm:"column:open_rate"`
	CloseRate     float64  `gorm:"column:close_rate"`
	ProfitAbs     *float64 `gorm:"column:profit_abs"`
}

func (TradeModel) TableName() string { return "trades" }

// ToTrade converts the row to the engine's trade type.
func (m TradeModel) ToTrade() correlate.Trade {
	return correlate.Trade{
		ID:            m.TradeID,
		BotID:         m.BotID,
		SourceTradeID: m.SourceTradeID,
		Pair:          m.Pair,
		IsShort:       m.IsShort,
		EnterTag:      m.EnterTag,
		IsOpen:        m.IsOpen,
		OpenDate:      tsToTime(m.OpenTS),
		CloseDate:     tsToTime(m.CloseTS),
		OpenRate:      m.OpenRate,
		CloseRate:     m.CloseRate,
		ProfitAbs:     m.ProfitAbs,
	}
}

func tsToTime(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.UnixMilli(*ts).UTC()
	return &t
}
