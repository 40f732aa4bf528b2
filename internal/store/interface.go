// Package store defines the read-only query surface of the external log
// store and trade ledger. The correlation engine never writes through it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradelens/internal/correlate"
)

// ErrInvalidFilter marks caller mistakes (malformed ranges, negative
// paging) as distinct from fetch failures.
var ErrInvalidFilter = errors.New("invalid filter")

// MaxPageSize caps a single page of trades or audit messages.
const MaxPageSize = 500

// AnomalousSignature is a deduplicated representative of a family of
// similar log messages.
type AnomalousSignature struct {
	SignatureHash string `json:"signature_hash"`
	Signature     string `json:"signature"`
	Logger        string `json:"logger"`
	Level         string `json:"level"`
	Occurrences   int    `json:"occurrences"`
}

// Bot is a registered trading bot and the container it runs in.
type Bot struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Container string `json:"container"`
}

// TradeFilter selects a page of ledger rows. Either Days or an explicit
// From/To range may be given; when both are set the range wins.
type TradeFilter struct {
	Days   int
	From   *time.Time
	To     *time.Time
	BotID  *int
	Pair   string
	Limit  int
	Offset int
}

// Validate rejects malformed filters before any query is issued.
func (f TradeFilter) Validate() error {
	if f.Days < 0 {
		return fmt.Errorf("%w: days must not be negative", ErrInvalidFilter)
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return fmt.Errorf("%w: range start must precede range end", ErrInvalidFilter)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidFilter)
	}
	return nil
}

// AuditFilter selects a page of audit/RPC log lines.
type AuditFilter struct {
	Hours     int
	BotID     *int
	Logger    string
	TextQuery string
	Limit     int
	Offset    int
}

// Validate rejects malformed filters before any query is issued.
func (f AuditFilter) Validate() error {
	if f.Hours < 0 {
		return fmt.Errorf("%w: hours must not be negative", ErrInvalidFilter)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidFilter)
	}
	return nil
}

// TradePage is one page of ledger rows plus the unpaged total.
type TradePage struct {
	Total int64             `json:"total"`
	Items []correlate.Trade `json:"items"`
}

// SamplePage is one page of log samples plus the unpaged total.
type SamplePage struct {
	Total int64                 `json:"total"`
	Items []correlate.LogSample `json:"items"`
}

// Store is implemented by the storage collaborator. All methods are
// read-only and safe for concurrent use.
type Store interface {
	ListAnomalousSignatures(ctx context.Context, days, limit int) ([]AnomalousSignature, error)
	ListSamples(ctx context.Context, signatureHash string, limit int) ([]correlate.LogSample, error)
	ListTrades(ctx context.Context, f TradeFilter) (TradePage, error)
	ListAuditMessages(ctx context.Context, f AuditFilter) (SamplePage, error)
	ListBots(ctx context.Context) ([]Bot, error)
	Close() error
}
