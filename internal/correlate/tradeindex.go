package correlate

import (
	"sort"
	"time"

	"tradelens/internal/pkg/symbol"
)

// MatchWindows bounds the nearest-trade search. The asymmetry is
// intentional: a trigger line normally precedes the entry it causes, so
// the forward window is generous while a match in the past is accepted
// only when very close.
type MatchWindows struct {
	Forward  time.Duration
	Backward time.Duration
}

// DefaultMatchWindows returns the stock 12h forward / 10m backward pair.
func DefaultMatchWindows() MatchWindows {
	return MatchWindows{Forward: 12 * time.Hour, Backward: 10 * time.Minute}
}

type indexKey struct {
	bot  int
	pair string
}

// TradeIndex stores the trade batch once and keeps two lookup maps into
// it: one keyed by the exact normalized pair, one by the settle-stripped
// simplified pair for futures/spot cross-matching.
type TradeIndex struct {
	arena      []Trade
	exact      map[indexKey][]int
	simplified map[indexKey][]int
}

// NewTradeIndex groups trades by (bot, pair) and time-sorts every bucket
// ascending by open date; trades without an open date sort last.
func NewTradeIndex(trades []Trade) *TradeIndex {
	ix := &TradeIndex{
		arena:      trades,
		exact:      make(map[indexKey][]int),
		simplified: make(map[indexKey][]int),
	}
	for i, tr := range trades {
		ek := indexKey{bot: tr.BotID, pair: symbol.Normalize(tr.Pair)}
		sk := indexKey{bot: tr.BotID, pair: symbol.Simplify(tr.Pair)}
		ix.exact[ek] = append(ix.exact[ek], i)
		ix.simplified[sk] = append(ix.simplified[sk], i)
	}
	for _, bucket := range ix.exact {
		ix.sortBucket(bucket)
	}
	for _, bucket := range ix.simplified {
		ix.sortBucket(bucket)
	}
	return ix
}

func (ix *TradeIndex) sortBucket(bucket []int) {
	sort.SliceStable(bucket, func(a, b int) bool {
		da, db := ix.arena[bucket[a]].OpenDate, ix.arena[bucket[b]].OpenDate
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		default:
			return da.Before(*db)
		}
	})
}

// Candidates returns arena offsets for the event's (bot, pair), trying the
// exact normalized bucket first and falling back to the simplified one.
func (ix *TradeIndex) Candidates(botID int, pair string) []int {
	if bucket := ix.exact[indexKey{bot: botID, pair: symbol.Normalize(pair)}]; len(bucket) > 0 {
		return bucket
	}
	return ix.simplified[indexKey{bot: botID, pair: symbol.Simplify(pair)}]
}

// Trade returns the arena entry at the given offset.
func (ix *TradeIndex) Trade(offset int) Trade {
	return ix.arena[offset]
}

// Len reports the arena size.
func (ix *TradeIndex) Len() int {
	return len(ix.arena)
}

// PickClosest selects the trade nearest to the event time: the earliest
// trade opening at or after the event within the forward window, else the
// latest trade opening before it within the backward window.
func (ix *TradeIndex) PickClosest(botID int, pair string, at time.Time, w MatchWindows) (Trade, bool) {
	bucket := ix.Candidates(botID, pair)
	if len(bucket) == 0 {
		return Trade{}, false
	}
	// bucket is ascending by open date, nil dates last
	var backward *Trade
	for _, off := range bucket {
		tr := ix.arena[off]
		if tr.OpenDate == nil {
			break
		}
		if tr.OpenDate.Before(at) {
			if at.Sub(*tr.OpenDate) <= w.Backward {
				cp := tr
				backward = &cp
			}
			continue
		}
		if tr.OpenDate.Sub(at) <= w.Forward {
			return tr, true
		}
		break
	}
	if backward != nil {
		return *backward, true
	}
	return Trade{}, false
}
