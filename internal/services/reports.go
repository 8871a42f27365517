package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/cache"
	"github.com/kwondongha1116/spendwallet/internal/core"
)

// ReportService builds the daily, weekly and monthly report views.
// Weekly and monthly aggregates are cached in the database keyed by the
// window and reused while the window's total amount is unchanged.
type ReportService struct {
	store    ReportStore
	analyzer ItemAnalyzer
	daily    *cache.LRUCache[DailyReport]
	now      func() time.Time
}

func NewReportService(store ReportStore, analyzer ItemAnalyzer, daily *cache.LRUCache[DailyReport]) *ReportService {
	return &ReportService{
		store:    store,
		analyzer: analyzer,
		daily:    daily,
		now:      time.Now,
	}
}

// DailyReport is the per-day view: total, tag spending fractions and the
// stored comment.
type DailyReport struct {
	TotalAmount int64              `json:"total_amount"`
	ChartData   map[string]float64 `json:"chart_data"`
	AIComment   string             `json:"ai_comment"`
}

func dailyCacheKey(userID, date string) string {
	return userID + "|" + date
}

// InvalidateDaily drops the cached daily report for one (user, date).
func (s *ReportService) InvalidateDaily(userID, date string) {
	if s.daily != nil {
		s.daily.Delete(dailyCacheKey(userID, date))
	}
}

// Daily returns the day's report. A day without a record is not an
// error; it reports zero spending.
func (s *ReportService) Daily(ctx context.Context, userID, date string) (DailyReport, error) {
	key := dailyCacheKey(userID, date)
	if s.daily != nil {
		if cached, ok := s.daily.Get(key); ok {
			return cached, nil
		}
	}

	rec, err := s.store.FindDailyRecord(ctx, userID, date)
	if err != nil {
		return DailyReport{}, fmt.Errorf("load daily record: %w", err)
	}
	if rec == nil {
		return DailyReport{TotalAmount: 0, ChartData: map[string]float64{}, AIComment: "기록이 없습니다."}, nil
	}

	tagTotal := map[string]int64{}
	var total int64
	for _, it := range rec.Items {
		total += it.Amount
		for _, tag := range it.Tags {
			tagTotal[tag] += it.Amount
		}
	}

	chart := map[string]float64{}
	if total > 0 {
		for tag, amt := range tagTotal {
			chart[tag] = float64(amt) / float64(total)
		}
	}

	report := DailyReport{
		TotalAmount: rec.TotalAmount,
		ChartData:   chart,
		AIComment:   rec.Comment,
	}
	if s.daily != nil {
		s.daily.Set(key, report)
	}
	return report, nil
}

// Weekly aggregates one Monday-to-Sunday window. Totals and deltas are
// always computed fresh; the comment is reused from the cached report
// when the window's total amount has not changed since it was written.
func (s *ReportService) Weekly(ctx context.Context, userID, weekToken string) (*core.WeeklyReport, error) {
	start, end, err := core.ParseWeekToken(weekToken)
	if err != nil {
		return nil, err
	}
	prevStart, err := core.ShiftDate(start, -7)
	if err != nil {
		return nil, err
	}
	prevEnd, err := core.ShiftDate(end, -7)
	if err != nil {
		return nil, err
	}

	totals, totalAmount, err := s.categorySums(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	prevTotals, _, err := s.categorySums(ctx, userID, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	deltas := map[string]float64{}
	for k := range totals {
		deltas[k] = deltaRate(totals[k], prevTotals[k])
	}
	for k := range prevTotals {
		if _, seen := totals[k]; !seen {
			deltas[k] = deltaRate(0, prevTotals[k])
		}
	}

	existing, err := s.store.FindWeeklyReport(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load weekly report: %w", err)
	}

	var comment string
	if existing != nil && existing.TotalAmount == totalAmount {
		comment = existing.Comment
	} else {
		comment = s.analyzer.WeeklyComment(ctx, weekToken, totals, deltas)
	}

	report := &core.WeeklyReport{
		UserID:      userID,
		WeekStart:   start,
		WeekEnd:     end,
		Totals:      totals,
		Deltas:      deltas,
		Comment:     comment,
		TotalAmount: totalAmount,
	}
	if err := s.store.SaveWeeklyReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save weekly report: %w", err)
	}
	return report, nil
}

// Monthly builds the consumer-type profile for one calendar month,
// reusing the cached profile while the month's total is unchanged.
func (s *ReportService) Monthly(ctx context.Context, userID, month string) (*core.MonthlyProfile, error) {
	if err := core.ValidateMonthToken(month); err != nil {
		return nil, err
	}
	start, end := core.MonthRange(month)

	records, err := s.store.ListDailyRecords(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}

	catSum := map[string]int64{}
	tagSum := map[string]int64{}
	var totalAmount int64
	for _, rec := range records {
		for _, it := range rec.Items {
			catSum[it.CategoryOf()] += it.Amount
			totalAmount += it.Amount
			for _, tag := range it.Tags {
				tagSum[tag] += it.Amount
			}
		}
	}

	existing, err := s.store.FindMonthlyProfile(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("load monthly profile: %w", err)
	}
	if existing != nil && existing.TotalAmount == totalAmount {
		return existing, nil
	}

	tagRatios := map[string]float64{}
	for tag, amt := range tagSum {
		if totalAmount > 0 {
			tagRatios[tag] = float64(amt) / float64(totalAmount)
		} else {
			tagRatios[tag] = 0
		}
	}

	verdict := s.analyzer.MonthlyProfile(ctx, month, catSum, tagRatios)
	profile := &core.MonthlyProfile{
		UserID:      userID,
		Month:       month,
		Type:        verdict.Type,
		Label:       verdict.Label,
		Rationale:   verdict.Rationale,
		Advice:      verdict.Advice,
		TotalAmount: totalAmount,
	}
	if err := s.store.SaveMonthlyProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save monthly profile: %w", err)
	}
	return profile, nil
}

func (s *ReportService) categorySums(ctx context.Context, userID, from, to string) (map[string]int64, int64, error) {
	records, err := s.store.ListDailyRecords(ctx, userID, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("list daily records: %w", err)
	}
	sums := map[string]int64{}
	var total int64
	for _, rec := range records {
		for _, it := range rec.Items {
			sums[it.CategoryOf()] += it.Amount
			total += it.Amount
		}
	}
	return sums, total, nil
}

// deltaRate is the week-over-week change. A category that appears from
// nothing reads as +100%; absent both weeks reads as flat.
func deltaRate(cur, prev int64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(cur-prev) / float64(prev)
}
