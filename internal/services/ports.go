package services

import (
	"context"

	"github.com/kwondongha1116/spendwallet/internal/ai"
	"github.com/kwondongha1116/spendwallet/internal/core"
)

// Ports consumed by the services. Wired to the SQLite repository, the
// analyzer and the AMQP client in main; tests plug in fakes.
type (
	RecordStore interface {
		FindDailyRecord(ctx context.Context, userID, date string) (*core.DailyRecord, error)
		SaveDailyRecord(ctx context.Context, rec *core.DailyRecord) (int64, error)
		ListDailyRecords(ctx context.Context, userID, from, to string) ([]core.DailyRecord, error)
	}

	ReportStore interface {
		RecordStore
		FindWeeklyReport(ctx context.Context, userID, weekStart, weekEnd string) (*core.WeeklyReport, error)
		SaveWeeklyReport(ctx context.Context, rep *core.WeeklyReport) error
		FindMonthlyProfile(ctx context.Context, userID, month string) (*core.MonthlyProfile, error)
		SaveMonthlyProfile(ctx context.Context, p *core.MonthlyProfile) error
	}

	InsightStore interface {
		ListDailyRecords(ctx context.Context, userID, from, to string) ([]core.DailyRecord, error)
		FindNewsInsight(ctx context.Context, userID, weekKey string) (*core.NewsInsight, error)
		SaveNewsInsight(ctx context.Context, in *core.NewsInsight) error
	}

	ItemAnalyzer interface {
		AnalyzeItem(ctx context.Context, memo string, amount int64) ai.Classification
		DailyComment(ctx context.Context, items []core.SpendingEntry) string
		WeeklyComment(ctx context.Context, week string, totals map[string]int64, deltas map[string]float64) string
		MonthlyProfile(ctx context.Context, month string, totals map[string]int64, tagRatios map[string]float64) ai.Profile
		WeekNewsInsight(ctx context.Context, headlines []core.NewsArticle, topCategory string) ai.Insight
	}

	SyncPublisher interface {
		PublishRecordSync(ctx context.Context, userID, date string) error
	}
)
