package correlate

// Resolver runs the evidence cascade for one trigger event. Tiers are
// ordered by confidence: a closed trailing-tagged trade near in time is
// the strongest signal, a generic nearby trade is weaker, an RPC entry
// broadcast is weakest but better than nothing.
type Resolver struct {
	trail       *TradeIndex // closed, trailing-tagged trades only
	all         *TradeIndex
	hints       *RpcHintIndex
	windows     MatchWindows
	hintWindows HintWindows
}

// NewResolver builds both trade views and wires the hint index. A nil
// hint index disables the rpc tier.
func NewResolver(trades []Trade, hints *RpcHintIndex, w MatchWindows, hw HintWindows) *Resolver {
	var trail []Trade
	for _, tr := range trades {
		if !tr.IsOpen && tr.IsTrailingTagged() {
			trail = append(trail, tr)
		}
	}
	return &Resolver{
		trail:       NewTradeIndex(trail),
		all:         NewTradeIndex(trades),
		hints:       hints,
		windows:     w,
		hintWindows: hw,
	}
}

type resolveStep func(TriggerEvent) (TriggerEvent, bool)

// Resolve returns an annotated copy of the event. The input is never
// mutated; the first successful tier wins and later tiers do not run.
func (r *Resolver) Resolve(ev TriggerEvent) TriggerEvent {
	steps := []resolveStep{
		r.matchClosedTrail,
		r.matchAnyTrade,
		r.matchHint,
	}
	for _, step := range steps {
		if out, ok := step(ev); ok {
			return out
		}
	}
	out := ev
	out.MatchSource = MatchNone
	out.TradeID = nil
	out.EnteredAt = nil
	return out
}

func (r *Resolver) matchClosedTrail(ev TriggerEvent) (TriggerEvent, bool) {
	return r.matchIndex(ev, r.trail, MatchClosedTrail)
}

func (r *Resolver) matchAnyTrade(ev TriggerEvent) (TriggerEvent, bool) {
	return r.matchIndex(ev, r.all, MatchTradeFallback)
}

func (r *Resolver) matchIndex(ev TriggerEvent, ix *TradeIndex, source MatchSource) (TriggerEvent, bool) {
	if ix == nil || ix.Len() == 0 || ev.Pair == "" {
		return ev, false
	}
	tr, ok := ix.PickClosest(ev.Sample.BotID, ev.Pair, ev.Sample.EventTime, r.windows)
	if !ok {
		return ev, false
	}
	out := ev
	id := tr.ID
	out.TradeID = &id
	out.EnteredAt = tr.OpenDate
	out.MatchSource = source
	return out, true
}

func (r *Resolver) matchHint(ev TriggerEvent) (TriggerEvent, bool) {
	if r.hints == nil || ev.Pair == "" {
		return ev, false
	}
	hint, ok := r.hints.Match(ev, r.hintWindows)
	if !ok {
		return ev, false
	}
	out := ev
	id := hint.TradeID
	out.TradeID = &id
	entered := hint.EventTime
	out.EnteredAt = &entered
	out.MatchSource = MatchRPCHint
	return out, true
}
