package sqlite

import (
	"context"
	"fmt"
	"time"

	"tradelens/internal/correlate"
	"tradelens/internal/store"
	"tradelens/internal/store/model"
)

// ListTrades returns one page of ledger rows, ascending by open date.
// The page size is clamped to MaxPageSize; callers page via Offset and
// stop at their own row cap.
func (s *SqliteStore) ListTrades(ctx context.Context, f store.TradeFilter) (store.TradePage, error) {
	if err := f.Validate(); err != nil {
		return store.TradePage{}, err
	}
	limit := f.Limit
	if limit <= 0 || limit > store.MaxPageSize {
		limit = store.MaxPageSize
	}
	q := s.db.WithContext(ctx).Model(&model.TradeModel{})
	switch {
	case f.From != nil || f.To != nil:
		if f.From != nil {
			q = q.Where("open_ts >= ?", f.From.UnixMilli())
		}
		if f.To != nil {
			q = q.Where("open_ts < ?", f.To.UnixMilli())
		}
	case f.Days > 0:
		since := time.Now().AddDate(0, 0, -f.Days).UnixMilli()
		q = q.Where("open_ts >= ? OR open_ts IS NULL", since)
	}
	if f.BotID != nil {
		q = q.Where("bot_id = ?", *f.BotID)
	}
	if f.Pair != "" {
		q = q.Where("pair LIKE ?", "%"+f.Pair+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return store.TradePage{}, fmt.Errorf("count trades failed: %w", err)
	}
	var rows []model.TradeModel
	err := q.Order("open_ts ASC").Order("id ASC").Limit(limit).Offset(f.Offset).Find(&rows).Error
	if err != nil {
		return store.TradePage{}, fmt.Errorf("list trades failed: %w", err)
	}
	page := store.TradePage{Total: total, Items: make([]correlate.Trade, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, row.ToTrade())
	}
	return page, nil
}
