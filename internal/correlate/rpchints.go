package correlate

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradelens/internal/pkg/convert"
	"tradelens/internal/pkg/symbol"
)

// HintWindows bounds the hint search around an unresolved event and
// weights the tie-break. PenaltyMS is added to the score of hints that
// precede the event so post-event hints win ties, matching the expected
// causal order (trigger first, entry broadcast after).
type HintWindows struct {
	Before    time.Duration
	After     time.Duration
	PenaltyMS int64
}

// DefaultHintWindows returns the stock [-5m, +20m] window with a 4s
// pre-event penalty.
func DefaultHintWindows() HintWindows {
	return HintWindows{Before: 5 * time.Minute, After: 20 * time.Minute, PenaltyMS: 4000}
}

// RpcHintIndex holds (bot, pair, time) -> trade id facts extracted from
// RPC entry broadcasts. Used only as last-resort match evidence.
type RpcHintIndex struct {
	exact      map[indexKey][]RpcTradeHint
	simplified map[indexKey][]RpcTradeHint
}

// NewRpcHintIndex parses a batch of RPC broadcast samples into an index.
// Samples that are not entry payloads are skipped.
func NewRpcHintIndex(samples []LogSample) *RpcHintIndex {
	ix := &RpcHintIndex{
		exact:      make(map[indexKey][]RpcTradeHint),
		simplified: make(map[indexKey][]RpcTradeHint),
	}
	for _, sample := range samples {
		hint, ok := ParseRpcHint(sample)
		if !ok {
			continue
		}
		ek := indexKey{bot: hint.BotID, pair: symbol.Normalize(hint.Pair)}
		sk := indexKey{bot: hint.BotID, pair: symbol.Simplify(hint.Pair)}
		ix.exact[ek] = append(ix.exact[ek], hint)
		ix.simplified[sk] = append(ix.simplified[sk], hint)
	}
	return ix
}

// ParseRpcHint extracts a hint from one broadcast message. JSON payloads
// are read with gjson; free-text payloads fall back to field extraction.
// A message qualifies only when it carries a trade id, a pair, and looks
// like an entry-type payload.
func ParseRpcHint(sample LogSample) (RpcTradeHint, bool) {
	msg := strings.TrimSpace(sample.Message)
	if msg == "" {
		return RpcTradeHint{}, false
	}
	if strings.HasPrefix(msg, "{") && gjson.Valid(msg) {
		typ := strings.ToLower(gjson.Get(msg, "type").String())
		if !strings.Contains(typ, "entry") {
			return RpcTradeHint{}, false
		}
		// broadcasters are inconsistent about numeric vs string ids
		tradeID := convert.ToInt(gjson.Get(msg, "trade_id").Value())
		pair := strings.TrimSpace(gjson.Get(msg, "pair").String())
		if tradeID <= 0 || pair == "" {
			return RpcTradeHint{}, false
		}
		return RpcTradeHint{
			EventTime: sample.EventTime,
			BotID:     sample.BotID,
			Pair:      pair,
			TradeID:   tradeID,
		}, true
	}
	if !strings.Contains(strings.ToLower(msg), "entry") {
		return RpcTradeHint{}, false
	}
	tradeID := ExtractTradeID(msg)
	pair := ExtractPair(msg)
	if tradeID == nil || pair == "" {
		return RpcTradeHint{}, false
	}
	return RpcTradeHint{
		EventTime: sample.EventTime,
		BotID:     sample.BotID,
		Pair:      pair,
		TradeID:   *tradeID,
	}, true
}

// Match returns the best hint for an unresolved event: same bot, same
// normalized or simplified pair, timestamp within [-Before, +After] of the
// event, minimizing |Δt| plus the pre-event penalty.
func (ix *RpcHintIndex) Match(ev TriggerEvent, w HintWindows) (RpcTradeHint, bool) {
	candidates := ix.exact[indexKey{bot: ev.Sample.BotID, pair: symbol.Normalize(ev.Pair)}]
	if len(candidates) == 0 {
		candidates = ix.simplified[indexKey{bot: ev.Sample.BotID, pair: symbol.Simplify(ev.Pair)}]
	}
	var (
		best      RpcTradeHint
		bestScore int64 = -1
	)
	for _, hint := range candidates {
		delta := hint.EventTime.Sub(ev.Sample.EventTime)
		if delta < -w.Before || delta > w.After {
			continue
		}
		score := delta.Milliseconds()
		if score < 0 {
			score = -score + w.PenaltyMS
		}
		if bestScore < 0 || score < bestScore {
			best = hint
			bestScore = score
		}
	}
	if bestScore < 0 {
		return RpcTradeHint{}, false
	}
	return best, true
}
