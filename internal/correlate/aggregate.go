package correlate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// eventKey is the exact-identity dedupe key: re-fetching an overlapping
// window must not double-count a line.
type eventKey struct {
	ts      int64
	logger  string
	message string
}

func sampleKey(s LogSample) eventKey {
	return eventKey{ts: s.EventTime.UnixNano(), logger: s.Logger, message: s.Message}
}

// DedupeEvents drops trigger events with identical (event_ts, logger,
// message), keeping the first occurrence.
func DedupeEvents(events []TriggerEvent) []TriggerEvent {
	seen := make(map[eventKey]bool, len(events))
	out := make([]TriggerEvent, 0, len(events))
	for _, ev := range events {
		k := sampleKey(ev.Sample)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	return out
}

// DedupeMissed is DedupeEvents for the missed-trade stream.
func DedupeMissed(events []MissedTradeEvent) []MissedTradeEvent {
	seen := make(map[eventKey]bool, len(events))
	out := make([]MissedTradeEvent, 0, len(events))
	for _, ev := range events {
		k := sampleKey(ev.Sample)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	return out
}

// sourceRank orders evidence tiers for row-level summaries.
var sourceRank = map[MatchSource]int{
	MatchClosedTrail:   4,
	MatchTradeFallback: 3,
	MatchRPCHint:       2,
	MatchTradeOnly:     1,
	MatchNone:          0,
}

// BuildTrailingRows assembles one row per closed, trailing-tagged trade:
// matched events grouped under their trade, snapshot picked as the most
// recent event at or before the trade open, match source summarizing the
// best evidence. Trades without any matched event get a synthetic
// trade-only row, so every qualifying trade appears exactly once.
func BuildTrailingRows(trades []Trade, events []TriggerEvent) []TrailingTradeRow {
	byTrade := make(map[TradeKey][]TriggerEvent)
	for _, ev := range events {
		if ev.TradeID == nil {
			continue
		}
		k := TradeKey{BotID: ev.Sample.BotID, TradeID: *ev.TradeID}
		byTrade[k] = append(byTrade[k], ev)
	}

	seen := make(map[TradeKey]bool)
	var rows []TrailingTradeRow
	for _, tr := range trades {
		if tr.IsOpen || !tr.IsTrailingTagged() {
			continue
		}
		k := TradeKey{BotID: tr.BotID, TradeID: tr.ID}
		entries, ok := byTrade[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].Sample.EventTime.Before(entries[b].Sample.EventTime)
		})
		row := TrailingTradeRow{
			BotID:       tr.BotID,
			TradeID:     tr.ID,
			Pair:        tr.Pair,
			IsShort:     tr.IsShort,
			EnterTag:    tr.EnterTag,
			OpenDate:    tr.OpenDate,
			CloseDate:   tr.CloseDate,
			LogEntries:  entries,
			MatchSource: bestSource(entries),
			Snapshot:    pickSnapshot(entries, tr),
		}
		rows = append(rows, row)
	}
	rows = append(rows, BuildSyntheticRows(trades, seen)...)
	return rows
}

func bestSource(entries []TriggerEvent) MatchSource {
	best := MatchNone
	for _, ev := range entries {
		if sourceRank[ev.MatchSource] > sourceRank[best] {
			best = ev.MatchSource
		}
	}
	if best == MatchNone {
		return MatchTradeOnly
	}
	return best
}

// pickSnapshot returns the most recent event at or before the trade open,
// falling back to the earliest event when all entries postdate the open.
func pickSnapshot(entries []TriggerEvent, tr Trade) *TriggerEvent {
	if len(entries) == 0 {
		return nil
	}
	if tr.OpenDate == nil {
		cp := entries[len(entries)-1]
		return &cp
	}
	var snap *TriggerEvent
	for i := range entries {
		if entries[i].Sample.EventTime.After(*tr.OpenDate) {
			break
		}
		snap = &entries[i]
	}
	if snap == nil {
		snap = &entries[0]
	}
	cp := *snap
	return &cp
}

// Filter is the active display filter set. Filters and statistics are
// recomputed together; a summary never describes a different row set than
// the one returned beside it.
type Filter struct {
	BotID        *int
	TradeID      *int
	PairContains string
	Container    string
	Side         Side
	MatchSource  MatchSource
}

// MatchesRow applies every set field of the filter to one row.
func (f Filter) MatchesRow(row TrailingTradeRow) bool {
	if f.BotID != nil && row.BotID != *f.BotID {
		return false
	}
	if f.TradeID != nil && row.TradeID != *f.TradeID {
		return false
	}
	if f.PairContains != "" &&
		!strings.Contains(strings.ToLower(row.Pair), strings.ToLower(f.PairContains)) {
		return false
	}
	if f.Container != "" &&
		!strings.Contains(strings.ToLower(row.Container), strings.ToLower(f.Container)) {
		return false
	}
	if f.Side != "" && f.Side != SideUnknown {
		rowSide := SideLong
		if row.IsShort {
			rowSide = SideShort
		}
		if rowSide != f.Side {
			return false
		}
	}
	if f.MatchSource != "" && row.MatchSource != f.MatchSource {
		return false
	}
	return true
}

// MatchesEvent applies the filter to one missed-trade event. The
// container of the bot that emitted the line is resolved by the caller.
func (f Filter) MatchesEvent(ev MissedTradeEvent, container string) bool {
	if f.BotID != nil && ev.Sample.BotID != *f.BotID {
		return false
	}
	if f.PairContains != "" &&
		!strings.Contains(strings.ToLower(ev.Pair), strings.ToLower(f.PairContains)) {
		return false
	}
	if f.Container != "" &&
		!strings.Contains(strings.ToLower(container), strings.ToLower(f.Container)) {
		return false
	}
	return true
}

// ProfitBuckets counts rows by snapshot profit: negative, zero to 0.2%
// inclusive, above 0.2%.
type ProfitBuckets struct {
	Negative int `json:"negative"`
	Small    int `json:"small"`
	Large    int `json:"large"`
}

// TrailingSummary is the aggregate block rendered next to the row list.
// Mean fields are nil when no row carries the underlying value.
type TrailingSummary struct {
	RowCount            int           `json:"row_count"`
	TriggerCount        int           `json:"trigger_count"`
	MeanProfitPct       *float64      `json:"mean_profit_pct,omitempty"`
	PositiveShare       *float64      `json:"positive_share,omitempty"`
	MeanDurationMinutes *float64      `json:"mean_duration_minutes,omitempty"`
	ProfitBuckets       ProfitBuckets `json:"profit_buckets"`
}

var (
	bucketZero  = decimal.Zero
	bucketSmall = decimal.RequireFromString("0.2")
)

// Aggregate filters rows and computes the summary over exactly the
// filtered set.
func Aggregate(rows []TrailingTradeRow, f Filter) ([]TrailingTradeRow, TrailingSummary) {
	filtered := make([]TrailingTradeRow, 0, len(rows))
	for _, row := range rows {
		if f.MatchesRow(row) {
			filtered = append(filtered, row)
		}
	}

	summary := TrailingSummary{RowCount: len(filtered)}
	profitSum := decimal.Zero
	durationSum := decimal.Zero
	profitN, durationN, positive := 0, 0, 0
	for _, row := range filtered {
		summary.TriggerCount += len(row.LogEntries)
		if row.Snapshot == nil {
			continue
		}
		if p := row.Snapshot.ProfitPct; p != nil {
			d := decimal.NewFromFloat(*p)
			profitSum = profitSum.Add(d)
			profitN++
			switch {
			case d.LessThan(bucketZero):
				summary.ProfitBuckets.Negative++
			case d.LessThanOrEqual(bucketSmall):
				summary.ProfitBuckets.Small++
			default:
				summary.ProfitBuckets.Large++
			}
			if d.GreaterThan(bucketZero) {
				positive++
			}
		}
		if dur := row.Snapshot.DurationMinutes; dur != nil {
			durationSum = durationSum.Add(decimal.NewFromFloat(*dur))
			durationN++
		}
	}
	if profitN > 0 {
		mean, _ := profitSum.Div(decimal.NewFromInt(int64(profitN))).Float64()
		summary.MeanProfitPct = &mean
		share, _ := decimal.NewFromInt(int64(positive)).
			Div(decimal.NewFromInt(int64(profitN))).Float64()
		summary.PositiveShare = &share
	}
	if durationN > 0 {
		mean, _ := durationSum.Div(decimal.NewFromInt(int64(durationN))).Float64()
		summary.MeanDurationMinutes = &mean
	}
	return filtered, summary
}

// MissedSummary counts classified events per reason code.
type MissedSummary struct {
	EventCount int                `json:"event_count"`
	ByReason   map[ReasonCode]int `json:"by_reason"`
}

// SummarizeMissed computes reason-code counts over an event set.
func SummarizeMissed(events []MissedTradeEvent) MissedSummary {
	summary := MissedSummary{
		EventCount: len(events),
		ByReason:   make(map[ReasonCode]int),
	}
	for _, ev := range events {
		summary.ByReason[ev.ReasonCode]++
	}
	return summary
}

// ClassifySamples runs the classifier over raw samples: suppressed lines
// are excluded, everything else maps to exactly one event.
func ClassifySamples(samples []LogSample, c *Classifier) []MissedTradeEvent {
	events := make([]MissedTradeEvent, 0, len(samples))
	for _, sample := range samples {
		if c.IsSuppressed(sample.Message) {
			continue
		}
		code, label := c.Classify(sample.Message)
		ev := MissedTradeEvent{
			Sample:      sample,
			Pair:        ExtractPair(sample.Message),
			ReasonCode:  code,
			ReasonLabel: label,
			Details:     ExtractDetails(code, sample.Message),
		}
		events = append(events, ev)
	}
	return events
}
