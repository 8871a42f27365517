package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/amqp"
	"github.com/kwondongha1116/spendwallet/internal/core"
	"github.com/kwondongha1116/spendwallet/internal/sheets"
)

// Ports for the sync worker.
type (
	SyncStore interface {
		FindDailyRecord(ctx context.Context, userID, date string) (*core.DailyRecord, error)
		PendingSyncRecords(ctx context.Context, limit int) ([]core.DailyRecord, error)
		MarkRecordSynced(ctx context.Context, userID, date string, at time.Time) error
	}

	SyncConsumer interface {
		ConsumeRecordSync(ctx context.Context, handler func(*amqp.RecordSyncMessage) error) error
	}
)

// SyncWorker exports daily records to the spreadsheet. It consumes the
// sync queue and additionally scans for pending records on an interval,
// so records survive broker outages.
type SyncWorker struct {
	store     SyncStore
	writer    sheets.RecordWriter
	consumer  SyncConsumer
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

func NewSyncWorker(store SyncStore, writer sheets.RecordWriter, consumer SyncConsumer, batchSize int, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		consumer:  consumer,
		batchSize: batchSize,
		interval:  interval,
		now:       time.Now,
	}
}

// Run blocks until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	// Catch up on anything saved while the worker was down.
	if n, err := w.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "startup pending scan failed", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "startup pending scan complete", "exported", n)
	}

	go w.periodicScan(ctx)

	if w.consumer == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return w.consumer.ConsumeRecordSync(ctx, func(msg *amqp.RecordSyncMessage) error {
		return w.ExportRecord(ctx, msg.UserID, msg.Date)
	})
}

func (w *SyncWorker) periodicScan(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "periodic pending scan failed", "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "periodic pending scan complete", "exported", n)
			}
		}
	}
}

// ExportRecord loads the current record state and appends it to the
// sheet. The message only carries the key, so a stale queue entry still
// exports fresh data.
func (w *SyncWorker) ExportRecord(ctx context.Context, userID, date string) error {
	rec, err := w.store.FindDailyRecord(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		// Deleted since the message was queued; nothing to export.
		slog.WarnContext(ctx, "sync requested for missing record", "user_id", userID, "date", date)
		return nil
	}
	if len(rec.Items) == 0 {
		return nil
	}

	rowRef, err := w.writer.Append(ctx, *rec)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkRecordSynced(ctx, userID, date, w.now()); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "record exported", "user_id", userID, "date", date, "row_ref", rowRef)
	return nil
}

// ProcessPending exports up to batchSize unsynced records and returns
// how many succeeded.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingSyncRecords(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending records: %w", err)
	}

	exported := 0
	for _, rec := range pending {
		if err := w.ExportRecord(ctx, rec.UserID, rec.SpentAt); err != nil {
			slog.ErrorContext(ctx, "failed to export pending record",
				"error", err, "user_id", rec.UserID, "date", rec.SpentAt)
			continue
		}
		exported++
	}
	return exported, nil
}
