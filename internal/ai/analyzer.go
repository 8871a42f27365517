package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

// Analyzer produces classifications and commentary. Every method tries the
// completion backend once and switches to the rule-based fallback on any
// failure, so callers always get a usable verdict.
type Analyzer struct {
	llm Client
}

func NewAnalyzer(llm Client) *Analyzer {
	return &Analyzer{llm: llm}
}

// AnalyzeItem classifies a single entry into a category, up to a few
// motivation tags and a confidence score.
func (a *Analyzer) AnalyzeItem(ctx context.Context, memo string, amount int64) Classification {
	if a.llm != nil {
		system := "You are a helpful assistant that outputs strict JSON."
		user := fmt.Sprintf(
			"아래 소비 기록의 카테고리(한국어)와 동기 태그(최대 2개)를 추정하세요.\n"+
				"출력은 JSON: {category, tags, confidence}.\n"+
				"메모: %s, 금액: %d", memo, amount)

		raw, err := a.llm.Complete(ctx, system, user)
		if err == nil {
			var c Classification
			if jsonErr := json.Unmarshal([]byte(stripCodeFence(raw)), &c); jsonErr == nil && c.Category != "" {
				if c.Tags == nil {
					c.Tags = []string{}
				}
				if c.Confidence == 0 {
					c.Confidence = 0.75
				}
				return c
			}
			err = fmt.Errorf("unusable classification: %q", truncate(raw, 120))
		}
		slog.WarnContext(ctx, "item analysis fell back to rules", "error", err)
	}
	return fallbackClassify(memo, amount)
}

// DailyComment writes a short observation plus one suggestion for the
// day's entries.
func (a *Analyzer) DailyComment(ctx context.Context, items []core.SpendingEntry) string {
	tagAmount := map[string]int64{}
	var total int64
	for _, it := range items {
		total += it.Amount
		for _, tag := range it.Tags {
			tagAmount[tag] += it.Amount
		}
	}
	if total <= 0 {
		return fallbackDailyComment(items)
	}

	if a.llm != nil {
		system := "Coach persona. Polite. No blame."
		user := fmt.Sprintf(
			"아래 일간 소비 항목들을 보고 1-2문장의 코멘트를 한국어로 생성하세요.\n"+
				"원칙: [관찰 1개] + [행동 제안 1개], 최대 180자, 존댓말, 비난 금지.\n"+
				"TopTag: %s, Total: %d", topInt64Key(tagAmount), total)

		msg, err := a.llm.Complete(ctx, system, user)
		if err == nil && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
		slog.WarnContext(ctx, "daily comment fell back to rules", "error", err)
	}
	return fallbackDailyComment(items)
}

// WeeklyComment writes the week-over-week commentary from category totals
// and deltas.
func (a *Analyzer) WeeklyComment(ctx context.Context, week string, totals map[string]int64, deltas map[string]float64) string {
	if a.llm != nil {
		summary, err := json.Marshal(map[string]any{"totals": totals, "deltas": deltas, "week": week})
		if err == nil {
			system := "Coach persona. Polite. No blame."
			user := fmt.Sprintf(
				"주어진 주간 요약으로 3문장 + 제안 1문장 주간 코멘트를 만들어주세요. 한국어, 존댓말. 비난 금지.\n요약: %s",
				summary)

			msg, llmErr := a.llm.Complete(ctx, system, user)
			if llmErr == nil && strings.TrimSpace(msg) != "" {
				return strings.TrimSpace(msg)
			}
			err = llmErr
		}
		slog.WarnContext(ctx, "weekly comment fell back to rules", "error", err)
	}
	return fallbackWeeklyComment(deltas)
}

// MonthlyProfile decides the consumer type for one month of aggregates.
func (a *Analyzer) MonthlyProfile(ctx context.Context, month string, totals map[string]int64, tagRatios map[string]float64) Profile {
	fallback := fallbackMonthlyProfile(tagRatios)

	if a.llm != nil {
		aggregate, err := json.Marshal(map[string]any{"totals": totals, "tags": tagRatios, "month": month})
		if err == nil {
			system := "You output strict JSON only."
			user := fmt.Sprintf(
				"아래 월간 요약을 보고 소비자 타입을 결정하세요. JSON으로 응답: {type, label, rationale, advice}.\n요약: %s",
				aggregate)

			raw, llmErr := a.llm.Complete(ctx, system, user)
			if llmErr == nil {
				var p Profile
				if json.Unmarshal([]byte(stripCodeFence(raw)), &p) == nil {
					// Keep rule-based values for anything the model left out.
					if p.Type == "" {
						p.Type = fallback.Type
					}
					if p.Label == "" {
						p.Label = fallback.Label
					}
					if p.Rationale == "" {
						p.Rationale = fallback.Rationale
					}
					if p.Advice == "" {
						p.Advice = fallback.Advice
					}
					return p
				}
				llmErr = fmt.Errorf("unusable profile: %q", truncate(raw, 120))
			}
			err = llmErr
		}
		slog.WarnContext(ctx, "monthly profile fell back to rules", "error", err)
	}
	return fallback
}

// WeekNewsInsight ties the week's headlines to the user's top spending
// category in one light sentence.
func (a *Analyzer) WeekNewsInsight(ctx context.Context, headlines []core.NewsArticle, topCategory string) Insight {
	if a.llm != nil {
		var titles [3]string
		for i := 0; i < len(headlines) && i < 3; i++ {
			titles[i] = headlines[i].Title
		}
		system := "너는 사용자의 소비 리포트에 가볍게 덧붙일 '이번 주 이슈 브리핑'을 써주는 한국어 어시스턴트야. " +
			"뉴스와 소비 사이의 인과관계를 과도하게 만들지 말고, 분위기를 연결하는 정도로만 자연스럽게 엮어줘."
		user := fmt.Sprintf(
			"아래는 이번 주 주요 뉴스 헤드라인들이야. 이 뉴스들의 전반적인 분위기를 한두 문장으로 짧게 요약하고,\n"+
				"사용자의 대표 소비 카테고리인 '%s'와 부드럽게 엮어서 한 문장으로 표현해줘.\n\n"+
				"뉴스 헤드라인:\n- %s\n- %s\n- %s\n\n"+
				"출력 형식 (JSON 한 줄): {\"summary\": \"...\", \"mood\": \"긍정적\"}",
			topCategory, titles[0], titles[1], titles[2])

		raw, err := a.llm.Complete(ctx, system, user)
		if err == nil {
			var in Insight
			if json.Unmarshal([]byte(stripCodeFence(raw)), &in) == nil && in.Summary != "" {
				if in.Mood == "" {
					in.Mood = "중립"
				}
				return in
			}
			// Non-JSON reply still carries the summary text.
			if s := strings.TrimSpace(raw); s != "" {
				return Insight{Summary: s, Mood: "중립"}
			}
			err = fmt.Errorf("empty insight reply")
		}
		slog.WarnContext(ctx, "news insight fell back to rules", "error", err)
	}
	return fallbackInsight()
}

// stripCodeFence removes a surrounding markdown fence that some models
// wrap JSON replies in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
