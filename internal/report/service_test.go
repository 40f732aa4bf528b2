package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelens/internal/config"
	"tradelens/internal/correlate"
	"tradelens/internal/store"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

// fakeStore serves canned data keyed by signature hash. Any error field
// set makes the corresponding method fail.
type fakeStore struct {
	signatures []store.AnomalousSignature
	samples    map[string][]correlate.LogSample
	trades     []correlate.Trade
	audit      []correlate.LogSample
	bots       []store.Bot

	signaturesErr error
	samplesErr    map[string]error
	tradesErr     error
	auditErr      error
	botsErr       error

	tradeCalls int
}

func (f *fakeStore) ListAnomalousSignatures(_ context.Context, _, _ int) ([]store.AnomalousSignature, error) {
	return f.signatures, f.signaturesErr
}

func (f *fakeStore) ListSamples(_ context.Context, hash string, _ int) ([]correlate.LogSample, error) {
	if err := f.samplesErr[hash]; err != nil {
		return nil, err
	}
	return f.samples[hash], nil
}

func (f *fakeStore) ListTrades(_ context.Context, tf store.TradeFilter) (store.TradePage, error) {
	f.tradeCalls++
	if f.tradesErr != nil {
		return store.TradePage{}, f.tradesErr
	}
	if err := tf.Validate(); err != nil {
		return store.TradePage{}, err
	}
	end := tf.Offset + tf.Limit
	if end > len(f.trades) {
		end = len(f.trades)
	}
	start := tf.Offset
	if start > len(f.trades) {
		start = len(f.trades)
	}
	return store.TradePage{Total: int64(len(f.trades)), Items: f.trades[start:end]}, nil
}

func (f *fakeStore) ListAuditMessages(_ context.Context, _ store.AuditFilter) (store.SamplePage, error) {
	if f.auditErr != nil {
		return store.SamplePage{}, f.auditErr
	}
	return store.SamplePage{Total: int64(len(f.audit)), Items: f.audit}, nil
}

func (f *fakeStore) ListBots(_ context.Context) ([]store.Bot, error) {
	return f.bots, f.botsErr
}

func (f *fakeStore) Close() error { return nil }

func newTestService(t *testing.T, st store.Store) *Service {
	t.Helper()
	rules, err := correlate.NewRuleRegistry("")
	require.NoError(t, err)
	return NewService(st, config.Default().Report, rules)
}

func TestMissedTradesReport(t *testing.T) {
	st := &fakeStore{
		signatures: []store.AnomalousSignature{
			{SignatureHash: "h1", Signature: "funding rate too low: N% < M%"},
			{SignatureHash: "h2", Signature: "User denied entry"},
		},
		samples: map[string][]correlate.LogSample{
			"h1": {
				{EventTime: base, BotID: 1, Logger: "s", Message: "funding rate too low: 0.01% < 0.05%"},
				{EventTime: base, BotID: 1, Logger: "s", Message: "funding rate too low: 0.01% < 0.05%"},
			},
			"h2": {
				{EventTime: base, BotID: 1, Logger: "s", Message: "User denied entry for BTC/USDT"},
			},
		},
		bots: []store.Bot{{ID: 1, Name: "alpha", Container: "ft-alpha"}},
	}
	svc := newTestService(t, st)

	rep, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.SessionID)
	assert.Empty(t, rep.Failures)
	// duplicate line deduped, denied line suppressed
	require.Len(t, rep.Events, 1)
	assert.Equal(t, correlate.ReasonFundingRateTooLow, rep.Events[0].ReasonCode)
	assert.Equal(t, 1, rep.Summary.ByReason[correlate.ReasonFundingRateTooLow])
	assert.Same(t, rep, svc.LastMissed())
}

func TestMissedTradesContainerFilter(t *testing.T) {
	st := &fakeStore{
		signatures: []store.AnomalousSignature{{SignatureHash: "h1", Signature: "momentum"}},
		samples: map[string][]correlate.LogSample{
			"h1": {
				{EventTime: base, BotID: 1, Logger: "s", Message: "momentum filter rejected"},
				{EventTime: base.Add(time.Second), BotID: 2, Logger: "s", Message: "momentum filter rejected"},
			},
		},
		bots: []store.Bot{
			{ID: 1, Name: "alpha", Container: "ft-alpha"},
			{ID: 2, Name: "beta", Container: "ft-beta"},
		},
	}
	svc := newTestService(t, st)

	rep, err := svc.MissedTrades(context.Background(), correlate.Filter{Container: "beta"})
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	assert.Equal(t, 2, rep.Events[0].Sample.BotID)
	assert.Equal(t, 1, rep.Summary.EventCount)
}

func TestMissedTradesSignatureFailure(t *testing.T) {
	st := &fakeStore{signaturesErr: errors.New("store down")}
	svc := newTestService(t, st)

	rep, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rep.Events)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "signatures", rep.Failures[0].Section)
}

func TestMissedTradesPartialSampleFailure(t *testing.T) {
	st := &fakeStore{
		signatures: []store.AnomalousSignature{
			{SignatureHash: "ok", Signature: "momentum"},
			{SignatureHash: "bad", Signature: "slippage"},
		},
		samples: map[string][]correlate.LogSample{
			"ok": {{EventTime: base, BotID: 1, Logger: "s", Message: "momentum filter rejected"}},
		},
		samplesErr: map[string]error{"bad": errors.New("timeout")},
	}
	svc := newTestService(t, st)

	rep, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	require.Len(t, rep.Events, 1)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "samples", rep.Failures[0].Section)
}

func TestTrailingBenefitReport(t *testing.T) {
	open := base.Add(3 * time.Minute)
	st := &fakeStore{
		signatures: []store.AnomalousSignature{
			{SignatureHash: "trig", Signature: "Triggering long for PAIR. Profit: N%"},
			{SignatureHash: "noise", Signature: "funding rate too low"},
		},
		samples: map[string][]correlate.LogSample{
			"trig": {{
				EventTime: base,
				BotID:     1,
				Logger:    "s",
				Message:   "Triggering long for BTC/USDT:USDT. Profit: 0.45%, Offset: 0.20%, duration: 12 min",
			}},
			"noise": {{EventTime: base, BotID: 1, Logger: "s", Message: "funding rate too low"}},
		},
		trades: []correlate.Trade{
			{ID: 101, BotID: 1, Pair: "BTC/USDT:USDT", EnterTag: "dca_trail", OpenDate: tp(open), CloseDate: tp(open.Add(time.Hour))},
			{ID: 102, BotID: 1, Pair: "ETH/USDT:USDT", EnterTag: "dca_trail", OpenDate: tp(open), CloseDate: tp(open.Add(time.Hour))},
		},
		bots: []store.Bot{{ID: 1, Name: "alpha", Container: "ft-alpha"}},
	}
	svc := newTestService(t, st)

	rep, err := svc.TrailingBenefit(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
	require.Len(t, rep.Rows, 2)

	byID := map[int]correlate.TrailingTradeRow{}
	for _, row := range rep.Rows {
		byID[row.TradeID] = row
	}
	matched := byID[101]
	assert.Equal(t, correlate.MatchClosedTrail, matched.MatchSource)
	assert.Equal(t, "alpha", matched.BotName)
	assert.Equal(t, "ft-alpha", matched.Container)
	require.NotNil(t, matched.Snapshot)
	assert.InDelta(t, 0.45, *matched.Snapshot.ProfitPct, 1e-9)

	synthetic := byID[102]
	assert.Equal(t, correlate.MatchTradeOnly, synthetic.MatchSource)
	assert.Nil(t, synthetic.Snapshot)

	assert.Equal(t, 2, rep.Summary.RowCount)
	assert.Equal(t, 1, rep.Summary.TriggerCount)
	assert.Same(t, rep, svc.LastTrailing())
}

func TestTrailingBenefitSectionFailures(t *testing.T) {
	st := &fakeStore{
		signatures: []store.AnomalousSignature{
			{SignatureHash: "trig", Signature: "Triggering long for PAIR"},
		},
		samples: map[string][]correlate.LogSample{
			"trig": {{EventTime: base, BotID: 1, Logger: "s", Message: "Triggering long for BTC/USDT"}},
		},
		tradesErr: errors.New("ledger offline"),
		auditErr:  errors.New("audit offline"),
	}
	svc := newTestService(t, st)

	rep, err := svc.TrailingBenefit(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	sections := make([]string, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		sections = append(sections, f.Section)
	}
	assert.ElementsMatch(t, []string{"trades", "rpc_hints"}, sections)
	// the trigger line still produces an unmatched view of zero rows:
	// no trades means no qualifying ledger rows at all
	assert.Equal(t, 0, rep.Summary.RowCount)
}

func TestTrailingBenefitRowCap(t *testing.T) {
	cfg := config.Default().Report
	trades := make([]correlate.Trade, cfg.TradeRowCap+cfg.TradePageSize)
	for i := range trades {
		trades[i] = correlate.Trade{ID: i + 1, BotID: 1, Pair: "BTC/USDT", OpenDate: tp(base)}
	}
	st := &fakeStore{trades: trades}
	svc := newTestService(t, st)

	fetched, err := svc.fetchTrades(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, fetched, cfg.TradeRowCap)
	assert.Equal(t, cfg.TradeRowCap/cfg.TradePageSize, st.tradeCalls)
}

func TestStaleRefreshNeverOverwrites(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(t, st)

	rep1, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)

	// a refresh holding an old token must not replace the cached report
	stale := &MissedReport{SessionID: "stale", GeneratedAt: base}
	svc.storeMissed(svc.missedToken.Load()-1, stale)
	assert.Same(t, rep1, svc.LastMissed())

	rep2, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	assert.Same(t, rep2, svc.LastMissed())
}

func TestReportTokensAreIndependent(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(t, st)

	// a trailing refresh is in flight, holding its token
	token := svc.trailingToken.Add(1)

	// missed refreshes of the other kind run meanwhile
	_, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	_, err = svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)

	// the in-flight trailing result is still the freshest of its kind
	fresh := &TrailingReport{SessionID: "fresh", GeneratedAt: base}
	svc.storeTrailing(token, fresh)
	assert.Same(t, fresh, svc.LastTrailing())
}

func TestBotNameCacheFailureIsCosmetic(t *testing.T) {
	st := &fakeStore{botsErr: errors.New("bots table missing")}
	svc := newTestService(t, st)

	rep, err := svc.MissedTrades(context.Background(), correlate.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rep.Failures)
}
