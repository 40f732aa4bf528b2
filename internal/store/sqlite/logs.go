package sqlite

import (
	"context"
	"fmt"
	"time"

	"tradelens/internal/correlate"
	"tradelens/internal/store"
	"tradelens/internal/store/model"
)

// ListAnomalousSignatures returns the most frequent message families seen
// in the last `days` days, highest occurrence count first.
func (s *SqliteStore) ListAnomalousSignatures(ctx context.Context, days, limit int) ([]store.AnomalousSignature, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 || limit > store.MaxPageSize {
		limit = store.MaxPageSize
	}
	since := time.Now().AddDate(0, 0, -days).UnixMilli()
	var rows []model.SignatureModel
	err := s.db.WithContext(ctx).
		Where("last_seen >= ?", since).
		Order("occurrences DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list signatures failed: %w", err)
	}
	out := make([]store.AnomalousSignature, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.AnomalousSignature{
			SignatureHash: row.SignatureHash,
			Signature:     row.Signature,
			Logger:        row.Logger,
			Level:         row.Level,
			Occurrences:   row.Occurrences,
		})
	}
	return out, nil
}

// ListSamples returns individual occurrences of one signature, newest
// first.
func (s *SqliteStore) ListSamples(ctx context.Context, signatureHash string, limit int) ([]correlate.LogSample, error) {
	if limit <= 0 || limit > store.MaxPageSize {
		limit = store.MaxPageSize
	}
	var rows []model.LogSampleModel
	err := s.db.WithContext(ctx).
		Where("signature_hash = ?", signatureHash).
		Order("event_ts DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list samples failed: %w", err)
	}
	out := make([]correlate.LogSample, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToSample())
	}
	return out, nil
}

// ListAuditMessages returns a page of raw log lines from the audit
// stream, ascending by event time.
func (s *SqliteStore) ListAuditMessages(ctx context.Context, f store.AuditFilter) (store.SamplePage, error) {
	if err := f.Validate(); err != nil {
		return store.SamplePage{}, err
	}
	hours := f.Hours
	if hours == 0 {
		hours = 24
	}
	limit := f.Limit
	if limit <= 0 || limit > store.MaxPageSize {
		limit = store.MaxPageSize
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	q := s.db.WithContext(ctx).Model(&model.LogSampleModel{}).Where("event_ts >= ?", since)
	if f.BotID != nil {
		q = q.Where("bot_id = ?", *f.BotID)
	}
	if f.Logger != "" {
		q = q.Where("logger = ?", f.Logger)
	}
	if f.TextQuery != "" {
		q = q.Where("message LIKE ?", "%"+f.TextQuery+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return store.SamplePage{}, fmt.Errorf("count audit messages failed: %w", err)
	}
	var rows []model.LogSampleModel
	err := q.Order("event_ts ASC").Limit(limit).Offset(f.Offset).Find(&rows).Error
	if err != nil {
		return store.SamplePage{}, fmt.Errorf("list audit messages failed: %w", err)
	}
	page := store.SamplePage{Total: total, Items: make([]correlate.LogSample, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, row.ToSample())
	}
	return page, nil
}

// ListBots returns every registered bot.
func (s *SqliteStore) ListBots(ctx context.Context) ([]store.Bot, error) {
	var rows []model.BotModel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list bots failed: %w", err)
	}
	out := make([]store.Bot, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.Bot{ID: row.ID, Name: row.Name, Container: row.Container})
	}
	return out, nil
}
