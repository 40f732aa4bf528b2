package correlate

// TradeKey identifies a ledger row across bots.
type TradeKey struct {
	BotID   int
	TradeID int
}

// BuildSyntheticRows fabricates one trade-only row per closed,
// trailing-tagged trade absent from the matched set. Rows are sourced
// purely from the trade record: every trailing-log-derived numeric stays
// nil by construction, because trade P&L and log-reported trailing profit
// are different units and must not be conflated.
func BuildSyntheticRows(trades []Trade, matched map[TradeKey]bool) []TrailingTradeRow {
	if matched == nil {
		matched = make(map[TradeKey]bool, len(trades))
	}
	var rows []TrailingTradeRow
	for _, tr := range trades {
		if tr.IsOpen || !tr.IsTrailingTagged() {
			continue
		}
		k := TradeKey{BotID: tr.BotID, TradeID: tr.ID}
		if matched[k] {
			continue
		}
		// rows dedupe on (bot, trade id): a trade refetched across
		// overlapping pages must still yield one row
		matched[k] = true
		rows = append(rows, TrailingTradeRow{
			BotID:       tr.BotID,
			TradeID:     tr.ID,
			Pair:        tr.Pair,
			IsShort:     tr.IsShort,
			EnterTag:    tr.EnterTag,
			OpenDate:    tr.OpenDate,
			CloseDate:   tr.CloseDate,
			MatchSource: MatchTradeOnly,
		})
	}
	return rows
}
