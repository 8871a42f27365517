package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

// IngestService saves bulk spending submissions: every item is analyzed,
// appended to the day's record and the daily comment is refreshed, all in
// one transactional write.
type IngestService struct {
	store     RecordStore
	analyzer  ItemAnalyzer
	publisher SyncPublisher
	onSaved   func(userID, date string)
	now       func() time.Time
}

// NewIngestService wires the ingest flow. publisher may be nil when the
// sync pipeline is disabled; onSaved may be nil and is called after a
// successful save (used for report cache invalidation).
func NewIngestService(store RecordStore, analyzer ItemAnalyzer, publisher SyncPublisher, onSaved func(userID, date string)) *IngestService {
	return &IngestService{
		store:     store,
		analyzer:  analyzer,
		publisher: publisher,
		onSaved:   onSaved,
		now:       time.Now,
	}
}

// IngestResult reports what a bulk save did.
type IngestResult struct {
	Saved int
	ID    int64
	Date  string
}

// BulkItem is one raw submission line before analysis.
type BulkItem struct {
	Memo   string
	Amount int64
}

// SaveBulk validates, analyzes and persists the submitted items. Items
// keep their submission order; a failure anywhere leaves the previous
// record untouched.
func (s *IngestService) SaveBulk(ctx context.Context, userID, dateToken string, items []BulkItem, analyze bool) (IngestResult, error) {
	if len(items) == 0 {
		return IngestResult{}, core.ErrNoItems
	}

	entries := make([]core.SpendingEntry, len(items))
	for i, it := range items {
		entries[i] = core.SpendingEntry{Memo: it.Memo, Amount: it.Amount}
		if err := entries[i].Validate(); err != nil {
			return IngestResult{}, fmt.Errorf("item %d: %w", i, err)
		}
	}

	date := core.NormalizeDate(dateToken, s.now())

	if analyze {
		// Classify concurrently; results land at their submission index
		// so the stored order never changes.
		g, gctx := errgroup.WithContext(ctx)
		for i := range entries {
			g.Go(func() error {
				verdict := s.analyzer.AnalyzeItem(gctx, entries[i].Memo, entries[i].Amount)
				entries[i].Category = verdict.Category
				entries[i].Tags = verdict.Tags
				confidence := verdict.Confidence
				entries[i].Confidence = &confidence
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return IngestResult{}, fmt.Errorf("analyze items: %w", err)
		}
	}

	existing, err := s.store.FindDailyRecord(ctx, userID, date)
	if err != nil {
		return IngestResult{}, fmt.Errorf("load daily record: %w", err)
	}

	rec := &core.DailyRecord{UserID: userID, SpentAt: date}
	if existing != nil {
		rec.Items = append(existing.Items, entries...)
	} else {
		rec.Items = entries
	}
	rec.TotalAmount = core.SumAmounts(rec.Items)
	rec.Comment = s.analyzer.DailyComment(ctx, rec.Items)

	id, err := s.store.SaveDailyRecord(ctx, rec)
	if err != nil {
		return IngestResult{}, fmt.Errorf("save daily record: %w", err)
	}

	if s.onSaved != nil {
		s.onSaved(userID, date)
	}

	// Export is best-effort: the record is saved either way and the
	// worker's periodic scan catches anything the queue missed.
	if s.publisher != nil {
		if err := s.publisher.PublishRecordSync(ctx, userID, date); err != nil {
			slog.WarnContext(ctx, "failed to publish record sync",
				"error", err, "user_id", userID, "date", date)
		}
	}

	return IngestResult{Saved: len(entries), ID: id, Date: date}, nil
}

// RangeItem is one flattened entry for calendar and list views.
type RangeItem struct {
	Memo     string   `json:"memo"`
	Amount   int64    `json:"amount"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	SpentAt  string   `json:"spentAt"`
}

// ListRange returns every item with spent_at in [from, to], flattened
// across daily records.
func (s *IngestService) ListRange(ctx context.Context, userID, from, to string) ([]RangeItem, error) {
	records, err := s.store.ListDailyRecords(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}

	items := []RangeItem{}
	for _, rec := range records {
		for _, it := range rec.Items {
			items = append(items, RangeItem{
				Memo:     it.Memo,
				Amount:   it.Amount,
				Category: it.Category,
				Tags:     it.Tags,
				SpentAt:  rec.SpentAt,
			})
		}
	}
	return items, nil
}
