package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

// Rule-based classification used whenever the completion backend is
// unavailable. The same memo and amount always produce the same verdict.

const highValueThreshold = 50000

type rule struct {
	keywords []string
	category string
	tag      string
}

// Checked in order; the first keyword match wins.
var classifyRules = []rule{
	{[]string{"택시", "버스", "지하철", "교통", "kakaot", "uber"}, "교통", "시간절약"},
	{[]string{"커피", "카페", "스타벅스", "커피빈"}, "식비", "보상"},
	{[]string{"배달", "요기요", "배민", "배달의민족"}, "식비", "편의"},
	{[]string{"점심", "저녁", "식사", "한식", "분식", "라면"}, "식비", ""},
	{[]string{"넷플릭스", "구독", "멤버십", "유튜브"}, "구독", "취미"},
	{[]string{"책", "강의", "토익", "토플", "인강"}, "교육", "투자"},
	{[]string{"술", "맥주", "소주", "회식", "모임"}, "유흥", "사회"},
}

func fallbackClassify(memo string, amount int64) Classification {
	m := strings.ToLower(memo)
	category := core.CategoryOther
	tags := []string{}

	for _, r := range classifyRules {
		if containsAny(m, r.keywords) {
			category = r.category
			if r.tag != "" {
				tags = append(tags, r.tag)
			}
			break
		}
	}

	if amount >= highValueThreshold {
		tags = append(tags, core.TagHighValue)
	}

	confidence := 0.8
	if category == core.CategoryOther {
		confidence = 0.6
	}
	return Classification{Category: category, Tags: tags, Confidence: confidence}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func fallbackDailyComment(items []core.SpendingEntry) string {
	tagAmount := map[string]int64{}
	var total int64
	for _, it := range items {
		total += it.Amount
		for _, tag := range it.Tags {
			tagAmount[tag] += it.Amount
		}
	}
	if total <= 0 {
		return "오늘 기록이 없어요. 가볍게 한 건부터 적어볼까요?"
	}
	if top := topInt64Key(tagAmount); top != "" {
		return fmt.Sprintf("오늘은 %s 관련 지출 비중이 높았어요. 한 번은 대중교통 등 대체 옵션을 시도해보는 건 어떨까요?", top)
	}
	return "오늘 지출이 소액으로 분산되었습니다. 불필요한 이동/간식 한 번만 줄여보는 걸 추천드립니다."
}

func fallbackWeeklyComment(deltas map[string]float64) string {
	if top := topFloat64Key(deltas); top != "" {
		return fmt.Sprintf("이번 주는 '%s' 지출이 늘었습니다. 평일 루틴을 약간 앞당기거나 대체 수단을 시도해 비용을 낮춰보세요.", top)
	}
	return "이번 주 기록이 적었습니다. 이번 주 한 건부터 가볍게 입력해보시고, 소액 지출부터 점검해보는 걸 추천드립니다."
}

func fallbackMonthlyProfile(tagRatios map[string]float64) Profile {
	top := topFloat64Key(tagRatios)

	typeCode, label := "reward", "보상형 소비자"
	switch top {
	case "시간절약", "편의":
		typeCode, label = "comfort", "귀찮음형 소비자"
	case "투자", "학습":
		typeCode, label = "growth", "투자형 소비자"
	case "사회", "모임":
		typeCode, label = "social", "사회형 소비자"
	}

	return Profile{
		Type:      typeCode,
		Label:     label,
		Rationale: "상위 태그 비중을 기준으로 유형을 추정했습니다.",
		Advice:    "다음 달 한 가지 지출을 대체 옵션으로 바꿔보는 작은 실험을 제안드립니다.",
	}
}

func fallbackInsight() Insight {
	return Insight{Summary: "", Mood: "중립"}
}

// topInt64Key returns the key with the largest value, the smallest key
// winning ties so the result is deterministic. Empty map returns "".
func topInt64Key(m map[string]int64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var top string
	var best int64
	for _, k := range keys {
		if top == "" || m[k] > best {
			top, best = k, m[k]
		}
	}
	return top
}

func topFloat64Key(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var top string
	var best float64
	for _, k := range keys {
		if top == "" || m[k] > best {
			top, best = k, m[k]
		}
	}
	return top
}
