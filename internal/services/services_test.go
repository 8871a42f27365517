package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/ai"
	"github.com/kwondongha1116/spendwallet/internal/core"
)

// In-memory store used by the service tests.
type fakeStore struct {
	mu       sync.Mutex
	records  map[string]*core.DailyRecord // key user|date
	weekly   map[string]*core.WeeklyReport
	monthly  map[string]*core.MonthlyProfile
	insights map[string]*core.NewsInsight
	nextID   int64
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string]*core.DailyRecord{},
		weekly:   map[string]*core.WeeklyReport{},
		monthly:  map[string]*core.MonthlyProfile{},
		insights: map[string]*core.NewsInsight{},
	}
}

func recKey(userID, date string) string { return userID + "|" + date }

func (f *fakeStore) FindDailyRecord(ctx context.Context, userID, date string) (*core.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recKey(userID, date)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Items = append([]core.SpendingEntry(nil), rec.Items...)
	return &cp, nil
}

func (f *fakeStore) SaveDailyRecord(ctx context.Context, rec *core.DailyRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return 0, fmt.Errorf("store unavailable")
	}
	key := recKey(rec.UserID, rec.SpentAt)
	if existing, ok := f.records[key]; ok {
		rec.ID = existing.ID
	} else {
		f.nextID++
		rec.ID = f.nextID
	}
	cp := *rec
	cp.Items = append([]core.SpendingEntry(nil), rec.Items...)
	f.records[key] = &cp
	return rec.ID, nil
}

func (f *fakeStore) ListDailyRecords(ctx context.Context, userID, from, to string) ([]core.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.DailyRecord
	for _, rec := range f.records {
		if rec.UserID == userID && rec.SpentAt >= from && rec.SpentAt <= to {
			cp := *rec
			cp.Items = append([]core.SpendingEntry(nil), rec.Items...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeStore) FindWeeklyReport(ctx context.Context, userID, weekStart, weekEnd string) (*core.WeeklyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.weekly[userID+"|"+weekStart+"|"+weekEnd]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (f *fakeStore) SaveWeeklyReport(ctx context.Context, rep *core.WeeklyReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rep
	f.weekly[rep.UserID+"|"+rep.WeekStart+"|"+rep.WeekEnd] = &cp
	return nil
}

func (f *fakeStore) FindMonthlyProfile(ctx context.Context, userID, month string) (*core.MonthlyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.monthly[userID+"|"+month]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SaveMonthlyProfile(ctx context.Context, p *core.MonthlyProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.monthly[p.UserID+"|"+p.Month] = &cp
	return nil
}

func (f *fakeStore) FindNewsInsight(ctx context.Context, userID, weekKey string) (*core.NewsInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.insights[userID+"|"+weekKey]
	if !ok {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

func (f *fakeStore) SaveNewsInsight(ctx context.Context, in *core.NewsInsight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *in
	f.insights[in.UserID+"|"+in.WeekKey] = &cp
	return nil
}

// Scripted analyzer counting how often each method runs.
type fakeAnalyzer struct {
	mu             sync.Mutex
	classification ai.Classification
	dailyComment   string
	weeklyComment  string
	profile        ai.Profile
	insight        ai.Insight

	analyzeCalls int
	weeklyCalls  int
	monthlyCalls int
	insightCalls int
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		classification: ai.Classification{Category: "식비", Tags: []string{"보상"}, Confidence: 0.8},
		dailyComment:   "오늘도 수고하셨어요.",
		weeklyComment:  "이번 주 코멘트",
		profile:        ai.Profile{Type: "reward", Label: "보상형 소비자", Rationale: "r", Advice: "a"},
		insight:        ai.Insight{Summary: "활기찬 한 주", Mood: "긍정적"},
	}
}

func (f *fakeAnalyzer) AnalyzeItem(ctx context.Context, memo string, amount int64) ai.Classification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	return f.classification
}

func (f *fakeAnalyzer) DailyComment(ctx context.Context, items []core.SpendingEntry) string {
	return f.dailyComment
}

func (f *fakeAnalyzer) WeeklyComment(ctx context.Context, week string, totals map[string]int64, deltas map[string]float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeklyCalls++
	return fmt.Sprintf("%s #%d", f.weeklyComment, f.weeklyCalls)
}

func (f *fakeAnalyzer) MonthlyProfile(ctx context.Context, month string, totals map[string]int64, tagRatios map[string]float64) ai.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthlyCalls++
	return f.profile
}

func (f *fakeAnalyzer) WeekNewsInsight(ctx context.Context, headlines []core.NewsArticle, topCategory string) ai.Insight {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insightCalls++
	return f.insight
}

type fakePublisher struct {
	mu     sync.Mutex
	calls  []string
	err    error
}

func (f *fakePublisher) PublishRecordSync(ctx context.Context, userID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"|"+date)
	return f.err
}

func fixedNow(date string) func() time.Time {
	t, _ := time.Parse("2006-01-02", date)
	return func() time.Time { return t }
}
