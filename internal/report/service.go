// Package report orchestrates one report refresh: concurrent read-only
// fetches, then a single-threaded correlation pass over the joined
// results.
package report

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tradelens/internal/config"
	"tradelens/internal/correlate"
	"tradelens/internal/logger"
	"tradelens/internal/store"
)

const sampleFetchers = 8

// SectionError reports one failed report section. Sections that failed
// are empty rather than silently half-populated; sections that succeeded
// keep their data.
type SectionError struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// MissedReport is the classified missed-trade view.
type MissedReport struct {
	SessionID   string                       `json:"session_id"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Events      []correlate.MissedTradeEvent `json:"events"`
	Summary     correlate.MissedSummary      `json:"summary"`
	Failures    []SectionError               `json:"failures,omitempty"`
}

// TrailingReport is the trailing-benefit correlation view.
type TrailingReport struct {
	SessionID   string                       `json:"session_id"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Rows        []correlate.TrailingTradeRow `json:"rows"`
	Summary     correlate.TrailingSummary    `json:"summary"`
	Failures    []SectionError               `json:"failures,omitempty"`
}

// Service builds reports against the storage collaborator. Each refresh
// carries a monotonically increasing per-report token; a refresh that
// finishes after a newer one of the same kind started never overwrites
// the cached result.
type Service struct {
	store store.Store
	cfg   config.ReportConfig
	rules *correlate.RuleRegistry

	trailingToken atomic.Int64
	missedToken   atomic.Int64

	mu           sync.Mutex
	lastTrailing *TrailingReport
	lastMissed   *MissedReport
}

// NewService wires the service. The rule registry may serve the built-in
// table only.
func NewService(st store.Store, cfg config.ReportConfig, rules *correlate.RuleRegistry) *Service {
	return &Service{store: st, cfg: cfg, rules: rules}
}

// session is the explicit per-refresh cache object: bot display names and
// containers resolved once and reused for every row of the refresh.
type session struct {
	id   string
	bots map[int]store.Bot
}

func (s *Service) newSession(ctx context.Context) *session {
	sess := &session{id: uuid.NewString(), bots: map[int]store.Bot{}}
	bots, err := s.store.ListBots(ctx)
	if err != nil {
		// names are cosmetic; the report proceeds unnamed
		logger.Warnf("bot name cache unavailable: %v", err)
		return sess
	}
	for _, b := range bots {
		sess.bots[b.ID] = b
	}
	return sess
}

// MissedTrades classifies why entries were not taken over the configured
// lookback window.
func (s *Service) MissedTrades(ctx context.Context, filter correlate.Filter) (*MissedReport, error) {
	token := s.missedToken.Add(1)
	sess := s.newSession(ctx)
	rep := &MissedReport{SessionID: sess.id, GeneratedAt: time.Now()}

	samples, failures := s.fetchReasonSamples(ctx)
	rep.Failures = failures

	classifier := s.rules.Classifier()
	events := correlate.ClassifySamples(samples, classifier)
	events = correlate.DedupeMissed(events)

	filtered := make([]correlate.MissedTradeEvent, 0, len(events))
	for _, ev := range events {
		if filter.MatchesEvent(ev, sess.bots[ev.Sample.BotID].Container) {
			filtered = append(filtered, ev)
		}
	}
	rep.Events = filtered
	rep.Summary = correlate.SummarizeMissed(filtered)

	s.storeMissed(token, rep)
	return rep, nil
}

// TrailingBenefit correlates trailing-trigger lines with the trades they
// caused and fills the gaps with trade-only rows.
func (s *Service) TrailingBenefit(ctx context.Context, filter correlate.Filter) (*TrailingReport, error) {
	token := s.trailingToken.Add(1)
	sess := s.newSession(ctx)
	rep := &TrailingReport{SessionID: sess.id, GeneratedAt: time.Now()}

	var (
		trades      []correlate.Trade
		triggers    []correlate.LogSample
		rpcMessages []correlate.LogSample

		failMu sync.Mutex
	)
	addFailure := func(section string, err error) {
		failMu.Lock()
		rep.Failures = append(rep.Failures, SectionError{Section: section, Message: err.Error()})
		failMu.Unlock()
	}

	// All fetches are read-only; they run in parallel and join before
	// the correlation pass touches any of the results.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := s.fetchTrades(gctx, filter.BotID)
		if err != nil {
			addFailure("trades", err)
			return nil
		}
		trades = fetched
		return nil
	})
	g.Go(func() error {
		fetched, failures := s.fetchTriggerSamples(gctx)
		failMu.Lock()
		rep.Failures = append(rep.Failures, failures...)
		failMu.Unlock()
		triggers = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := s.fetchRPCMessages(gctx, filter.BotID)
		if err != nil {
			addFailure("rpc_hints", err)
			return nil
		}
		rpcMessages = fetched
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events := make([]correlate.TriggerEvent, 0, len(triggers))
	for _, sample := range triggers {
		if ev, ok := correlate.ParseTriggerEvent(sample); ok {
			events = append(events, ev)
		}
	}
	events = correlate.DedupeEvents(events)

	hints := correlate.NewRpcHintIndex(rpcMessages)
	resolver := correlate.NewResolver(trades, hints, s.cfg.MatchWindows(), s.cfg.HintWindows())
	resolved := make([]correlate.TriggerEvent, 0, len(events))
	for _, ev := range events {
		resolved = append(resolved, resolver.Resolve(ev))
	}

	rows := correlate.BuildTrailingRows(trades, resolved)
	for i := range rows {
		bot := sess.bots[rows[i].BotID]
		rows[i].BotName = bot.Name
		rows[i].Container = bot.Container
	}
	rep.Rows, rep.Summary = correlate.Aggregate(rows, filter)

	s.storeTrailing(token, rep)
	return rep, nil
}

// fetchTrades pages through the ledger until the row cap. The cap bounds
// memory and latency regardless of the true total row count.
func (s *Service) fetchTrades(ctx context.Context, botID *int) ([]correlate.Trade, error) {
	var all []correlate.Trade
	offset := 0
	for len(all) < s.cfg.TradeRowCap {
		page, err := s.store.ListTrades(ctx, store.TradeFilter{
			Days:   s.cfg.LookbackDays,
			BotID:  botID,
			Limit:  s.cfg.TradePageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		offset += len(page.Items)
		if len(page.Items) < s.cfg.TradePageSize || int64(offset) >= page.Total {
			break
		}
	}
	if len(all) > s.cfg.TradeRowCap {
		logger.Debugf("trade fetch hit row cap at %d rows", s.cfg.TradeRowCap)
		all = all[:s.cfg.TradeRowCap]
	}
	return all, nil
}

// fetchReasonSamples pulls occurrences for every anomalous signature in
// the lookback window. One failed signature marks the samples section
// without discarding the others.
func (s *Service) fetchReasonSamples(ctx context.Context) ([]correlate.LogSample, []SectionError) {
	sigs, err := s.store.ListAnomalousSignatures(ctx, s.cfg.LookbackDays, s.cfg.SignatureLimit)
	if err != nil {
		return nil, []SectionError{{Section: "signatures", Message: err.Error()}}
	}
	return s.fetchSamplesFor(ctx, sigs, nil)
}

// fetchTriggerSamples is fetchReasonSamples narrowed to signatures whose
// representative text is a trailing-trigger line.
func (s *Service) fetchTriggerSamples(ctx context.Context) ([]correlate.LogSample, []SectionError) {
	sigs, err := s.store.ListAnomalousSignatures(ctx, s.cfg.LookbackDays, s.cfg.SignatureLimit)
	if err != nil {
		return nil, []SectionError{{Section: "signatures", Message: err.Error()}}
	}
	return s.fetchSamplesFor(ctx, sigs, correlate.IsTrailingTrigger)
}

func (s *Service) fetchSamplesFor(ctx context.Context, sigs []store.AnomalousSignature, keep func(string) bool) ([]correlate.LogSample, []SectionError) {
	var (
		mu       sync.Mutex
		samples  []correlate.LogSample
		fetchErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sampleFetchers)
	for _, sig := range sigs {
		if keep != nil && !keep(sig.Signature) {
			continue
		}
		hash := sig.SignatureHash
		g.Go(func() error {
			batch, err := s.store.ListSamples(gctx, hash, s.cfg.SampleLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fetchErr == nil {
					fetchErr = err
				}
				return nil
			}
			samples = append(samples, batch...)
			return nil
		})
	}
	_ = g.Wait()
	if fetchErr != nil {
		return samples, []SectionError{{Section: "samples", Message: fetchErr.Error()}}
	}
	return samples, nil
}

// fetchRPCMessages pulls the audit lines the hint index is built from.
func (s *Service) fetchRPCMessages(ctx context.Context, botID *int) ([]correlate.LogSample, error) {
	page, err := s.store.ListAuditMessages(ctx, store.AuditFilter{
		Hours:     s.cfg.AuditHours,
		BotID:     botID,
		TextQuery: "entry",
		Limit:     store.MaxPageSize,
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// storeTrailing keeps the freshest report only. A slow refresh that
// finishes after a newer one started is dropped. The token check and the
// store happen under one lock so a stale writer cannot slip between them.
func (s *Service) storeTrailing(token int64, rep *TrailingReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trailingToken.Load() != token {
		logger.Debugf("dropping stale trailing report (token %d)", token)
		return
	}
	s.lastTrailing = rep
}

func (s *Service) storeMissed(token int64, rep *MissedReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missedToken.Load() != token {
		logger.Debugf("dropping stale missed report (token %d)", token)
		return
	}
	s.lastMissed = rep
}

// LastTrailing returns the most recent trailing report, if any.
func (s *Service) LastTrailing() *TrailingReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTrailing
}

// LastMissed returns the most recent missed report, if any.
func (s *Service) LastMissed() *MissedReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMissed
}
