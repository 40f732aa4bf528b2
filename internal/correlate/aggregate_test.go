package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeEventsIdempotent(t *testing.T) {
	samples := []LogSample{
		{EventTime: indexBase, BotID: 1, Logger: "freqtrade.strategy", Message: "Triggering long for BTC/USDT. Profit: 0.45%"},
		{EventTime: indexBase.Add(time.Minute), BotID: 1, Logger: "freqtrade.strategy", Message: "update trailing for BTC/USDT"},
	}
	var events []TriggerEvent
	for _, s := range samples {
		ev, ok := ParseTriggerEvent(s)
		require.True(t, ok)
		events = append(events, ev)
	}

	// feeding the same batch twice must not grow the result
	doubled := append(append([]TriggerEvent{}, events...), events...)
	once := DedupeEvents(doubled)
	assert.Len(t, once, 2)
	twice := DedupeEvents(once)
	assert.Equal(t, once, twice)
}

func TestDedupeMissedKeepsDistinctLoggers(t *testing.T) {
	at := indexBase
	events := []MissedTradeEvent{
		{Sample: LogSample{EventTime: at, Logger: "freqtrade.strategy", Message: "funding rate too low"}},
		{Sample: LogSample{EventTime: at, Logger: "freqtrade.worker", Message: "funding rate too low"}},
		{Sample: LogSample{EventTime: at, Logger: "freqtrade.strategy", Message: "funding rate too low"}},
	}
	assert.Len(t, DedupeMissed(events), 2)
}

func TestBuildTrailingRowsScenario(t *testing.T) {
	// one trigger line, one closed trailing trade opening 3 minutes later
	sample := LogSample{
		EventTime: indexBase,
		BotID:     1,
		Logger:    "freqtrade.strategy",
		Message:   "Triggering long for BTC/USDT:USDT. Profit: 0.45%, Offset: 0.20%, duration: 12 min",
	}
	ev, ok := ParseTriggerEvent(sample)
	require.True(t, ok)
	require.Equal(t, "BTC/USDT:USDT", ev.Pair)
	require.Equal(t, SideLong, ev.Side)

	open := indexBase.Add(3 * time.Minute)
	closeAt := open.Add(2 * time.Hour)
	trades := []Trade{{
		ID:        101,
		BotID:     1,
		Pair:      "BTC/USDT:USDT",
		EnterTag:  "dca_trail",
		OpenDate:  tp(open),
		CloseDate: tp(closeAt),
	}}

	r := NewResolver(trades, nil, DefaultMatchWindows(), DefaultHintWindows())
	resolved := []TriggerEvent{r.Resolve(ev)}
	require.Equal(t, MatchClosedTrail, resolved[0].MatchSource)

	rows := BuildTrailingRows(trades, resolved)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 101, row.TradeID)
	assert.Equal(t, MatchClosedTrail, row.MatchSource)
	require.NotNil(t, row.Snapshot)
	require.NotNil(t, row.Snapshot.ProfitPct)
	assert.InDelta(t, 0.45, *row.Snapshot.ProfitPct, 1e-9)
	require.NotNil(t, row.Snapshot.DurationMinutes)
	assert.InDelta(t, 12, *row.Snapshot.DurationMinutes, 1e-9)

	_, summary := Aggregate(rows, Filter{})
	assert.Equal(t, 1, summary.RowCount)
	assert.Equal(t, 1, summary.TriggerCount)
	require.NotNil(t, summary.MeanProfitPct)
	assert.InDelta(t, 0.45, *summary.MeanProfitPct, 1e-9)
	assert.Equal(t, ProfitBuckets{Large: 1}, summary.ProfitBuckets)
}

func TestSyntheticRowExclusivity(t *testing.T) {
	profit := 1.5
	open := indexBase
	trades := []Trade{{
		ID:        7,
		BotID:     1,
		Pair:      "ETH/USDT",
		EnterTag:  "trail_grid",
		OpenDate:  tp(open),
		ProfitAbs: &profit,
	}}

	rows := BuildTrailingRows(trades, nil)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, MatchTradeOnly, row.MatchSource)
	assert.Nil(t, row.Snapshot)
	assert.Empty(t, row.LogEntries)

	// trade P&L never leaks into the log-derived summary
	_, summary := Aggregate(rows, Filter{})
	assert.Equal(t, 1, summary.RowCount)
	assert.Equal(t, 0, summary.TriggerCount)
	assert.Nil(t, summary.MeanProfitPct)
	assert.Nil(t, summary.MeanDurationMinutes)
	assert.Equal(t, ProfitBuckets{}, summary.ProfitBuckets)
}

func TestRowsDedupeOnBotAndTradeID(t *testing.T) {
	tr := Trade{ID: 7, BotID: 1, Pair: "ETH/USDT", EnterTag: "dca_trail", OpenDate: tp(indexBase)}

	// an overlapping-page refetch duplicates the trade in the batch
	rows := BuildTrailingRows([]Trade{tr, tr}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, MatchTradeOnly, rows[0].MatchSource)

	// same for a trade with matched log evidence
	id := 7
	ev := TriggerEvent{
		Sample:      LogSample{EventTime: indexBase.Add(-time.Minute), BotID: 1, Logger: "s", Message: "Triggering long for ETH/USDT"},
		Pair:        "ETH/USDT",
		TradeID:     &id,
		MatchSource: MatchClosedTrail,
	}
	rows = BuildTrailingRows([]Trade{tr, tr}, []TriggerEvent{ev})
	require.Len(t, rows, 1)
	assert.Equal(t, MatchClosedTrail, rows[0].MatchSource)

	// same trade id on a different bot is a distinct row
	other := tr
	other.BotID = 2
	rows = BuildTrailingRows([]Trade{tr, other}, nil)
	assert.Len(t, rows, 2)
}

func TestBuildTrailingRowsSkipsOpenAndUntagged(t *testing.T) {
	trades := []Trade{
		{ID: 1, BotID: 1, Pair: "A/USDT", EnterTag: "dca_trail", IsOpen: true, OpenDate: tp(indexBase)},
		{ID: 2, BotID: 1, Pair: "B/USDT", EnterTag: "breakout", OpenDate: tp(indexBase)},
		{ID: 3, BotID: 1, Pair: "C/USDT", EnterTag: "dca_trail", OpenDate: tp(indexBase)},
	}
	rows := BuildTrailingRows(trades, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].TradeID)
}

func TestPickSnapshotMostRecentBeforeOpen(t *testing.T) {
	open := indexBase.Add(10 * time.Minute)
	trades := []Trade{{ID: 1, BotID: 1, Pair: "BTC/USDT", EnterTag: "dca_trail", OpenDate: tp(open)}}
	id := 1
	mkEvent := func(at time.Time, profit float64) TriggerEvent {
		return TriggerEvent{
			Sample:      LogSample{EventTime: at, BotID: 1, Logger: "s", Message: at.String()},
			Pair:        "BTC/USDT",
			ProfitPct:   f(profit),
			TradeID:     &id,
			MatchSource: MatchClosedTrail,
		}
	}
	events := []TriggerEvent{
		mkEvent(indexBase.Add(12*time.Minute), 0.9), // after open, not the snapshot
		mkEvent(indexBase.Add(2*time.Minute), 0.1),
		mkEvent(indexBase.Add(8*time.Minute), 0.3), // most recent at or before open
	}
	rows := BuildTrailingRows(trades, events)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Snapshot)
	assert.InDelta(t, 0.3, *rows[0].Snapshot.ProfitPct, 1e-9)
	// entries sorted ascending regardless of arrival order
	require.Len(t, rows[0].LogEntries, 3)
	assert.True(t, rows[0].LogEntries[0].Sample.EventTime.Before(rows[0].LogEntries[2].Sample.EventTime))
}

func TestAggregateProfitBuckets(t *testing.T) {
	id := 0
	mkRow := func(profit float64) TrailingTradeRow {
		id++
		return TrailingTradeRow{
			BotID:       1,
			TradeID:     id,
			Pair:        "BTC/USDT",
			MatchSource: MatchClosedTrail,
			Snapshot:    &TriggerEvent{ProfitPct: f(profit)},
		}
	}
	rows := []TrailingTradeRow{mkRow(-0.5), mkRow(0), mkRow(0.2), mkRow(0.21), mkRow(1.3)}
	_, summary := Aggregate(rows, Filter{})
	assert.Equal(t, ProfitBuckets{Negative: 1, Small: 2, Large: 2}, summary.ProfitBuckets)
	require.NotNil(t, summary.PositiveShare)
	assert.InDelta(t, 0.6, *summary.PositiveShare, 1e-9)
}

func TestAggregateFilterAndSummaryMoveTogether(t *testing.T) {
	rows := []TrailingTradeRow{
		{BotID: 1, TradeID: 1, Pair: "BTC/USDT", MatchSource: MatchClosedTrail, Snapshot: &TriggerEvent{ProfitPct: f(1.0)}},
		{BotID: 2, TradeID: 2, Pair: "BTC/USDT", MatchSource: MatchTradeOnly},
	}
	bot := 1
	filtered, summary := Aggregate(rows, Filter{BotID: &bot})
	require.Len(t, filtered, 1)
	assert.Equal(t, 1, summary.RowCount)
	require.NotNil(t, summary.MeanProfitPct)
	assert.InDelta(t, 1.0, *summary.MeanProfitPct, 1e-9)
}

func TestFilterMatchesRow(t *testing.T) {
	row := TrailingTradeRow{
		BotID:       3,
		Container:   "ft-bot-blue",
		TradeID:     9,
		Pair:        "SOL/USDT:USDT",
		IsShort:     true,
		MatchSource: MatchRPCHint,
	}
	assert.True(t, Filter{}.MatchesRow(row))
	assert.True(t, Filter{PairContains: "sol"}.MatchesRow(row))
	assert.False(t, Filter{PairContains: "btc"}.MatchesRow(row))
	assert.True(t, Filter{Container: "blue"}.MatchesRow(row))
	assert.False(t, Filter{Container: "green"}.MatchesRow(row))
	assert.True(t, Filter{Side: SideShort}.MatchesRow(row))
	assert.False(t, Filter{Side: SideLong}.MatchesRow(row))
	assert.True(t, Filter{MatchSource: MatchRPCHint}.MatchesRow(row))
	assert.False(t, Filter{MatchSource: MatchClosedTrail}.MatchesRow(row))
}

func TestClassifySamplesSuppressionAndTotality(t *testing.T) {
	c := NewClassifier()
	samples := []LogSample{
		{EventTime: indexBase, Message: "User denied entry for BTC/USDT"},
		{EventTime: indexBase, Message: "funding rate too low: 0.01% < 0.05%"},
		{EventTime: indexBase, Message: "something nobody classified yet"},
	}
	events := ClassifySamples(samples, c)
	require.Len(t, events, 2)
	assert.Equal(t, ReasonFundingRateTooLow, events[0].ReasonCode)
	require.NotNil(t, events[0].Details)
	assert.Equal(t, ReasonUnclassified, events[1].ReasonCode)

	summary := SummarizeMissed(events)
	assert.Equal(t, 2, summary.EventCount)
	assert.Equal(t, 1, summary.ByReason[ReasonUnclassified])
}
