package services

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/ai"
	"github.com/kwondongha1116/spendwallet/internal/core"
	"github.com/kwondongha1116/spendwallet/internal/news"
)

const defaultTopCategory = "기본 생활비"

// InsightService ties the week's headlines to the user's dominant
// spending category. The generated commentary is cached per ISO week and
// reused while both the headlines and the top category are unchanged.
type InsightService struct {
	store    InsightStore
	fetcher  news.HeadlineFetcher
	analyzer ItemAnalyzer
	now      func() time.Time
}

func NewInsightService(store InsightStore, fetcher news.HeadlineFetcher, analyzer ItemAnalyzer) *InsightService {
	return &InsightService{
		store:    store,
		fetcher:  fetcher,
		analyzer: analyzer,
		now:      time.Now,
	}
}

// WeekNewsResult is the insight endpoint payload.
type WeekNewsResult struct {
	Headlines   []core.NewsArticle `json:"headlines"`
	Insight     ai.Insight         `json:"insight"`
	TopCategory string             `json:"top_category"`
}

// WeekNews returns this week's news briefing for the user.
func (s *InsightService) WeekNews(ctx context.Context, userID string) (*WeekNewsResult, error) {
	headlines, err := s.fetcher.Headlines(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	if headlines == nil {
		headlines = []core.NewsArticle{}
	}

	topCategory, err := s.topCategoryThisWeek(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekKey := core.WeekKey(s.now())
	existing, err := s.store.FindNewsInsight(ctx, userID, weekKey)
	if err != nil {
		return nil, fmt.Errorf("load news insight: %w", err)
	}
	if existing != nil && existing.TopCategory == topCategory && sameHeadlines(existing.Headlines, headlines) {
		return &WeekNewsResult{
			Headlines:   headlines,
			Insight:     ai.Insight{Summary: existing.Summary, Mood: existing.Mood},
			TopCategory: topCategory,
		}, nil
	}

	verdict := s.analyzer.WeekNewsInsight(ctx, headlines, topCategory)

	record := &core.NewsInsight{
		UserID:      userID,
		WeekKey:     weekKey,
		Headlines:   headlines,
		TopCategory: topCategory,
		Summary:     verdict.Summary,
		Mood:        verdict.Mood,
	}
	if err := s.store.SaveNewsInsight(ctx, record); err != nil {
		return nil, fmt.Errorf("save news insight: %w", err)
	}

	return &WeekNewsResult{Headlines: headlines, Insight: verdict, TopCategory: topCategory}, nil
}

// topCategoryThisWeek picks the category with the largest spend over the
// trailing seven days.
func (s *InsightService) topCategoryThisWeek(ctx context.Context, userID string) (string, error) {
	end := core.Today(s.now())
	start, err := core.ShiftDate(end, -7)
	if err != nil {
		return "", err
	}

	records, err := s.store.ListDailyRecords(ctx, userID, start, end)
	if err != nil {
		return "", fmt.Errorf("list daily records: %w", err)
	}

	catSum := map[string]int64{}
	for _, rec := range records {
		for _, it := range rec.Items {
			catSum[it.CategoryOf()] += it.Amount
		}
	}
	if len(catSum) == 0 {
		return defaultTopCategory, nil
	}

	var top string
	var best int64
	for cat, amt := range catSum {
		if top == "" || amt > best || (amt == best && cat < top) {
			top, best = cat, amt
		}
	}
	return top, nil
}

func sameHeadlines(a, b []core.NewsArticle) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
