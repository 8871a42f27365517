package core

import (
	"errors"
	"strings"
	"time"
)

// Category and tag names follow the product taxonomy. The default category
// is assigned when an entry was saved without analysis.
const (
	CategoryOther = "기타"

	TagHighValue = "고가"
)

var (
	ErrNoItems           = errors.New("no items to save")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyMemo         = errors.New("empty memo")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidWeekToken  = errors.New("invalid week format, expected YYYY-Www")
	ErrInvalidMonthToken = errors.New("invalid month format, expected YYYY-MM")
)

type (
	// SpendingEntry is one user-submitted line item. Category, tags and
	// confidence are filled in by the analyzer; they stay empty when the
	// entry was ingested with analyze=false.
	SpendingEntry struct {
		Memo       string   `json:"memo"`
		Amount     int64    `json:"amount"` // smallest currency unit, never negative
		Category   string   `json:"category,omitempty"`
		Tags       []string `json:"tags,omitempty"`
		Confidence *float64 `json:"confidence,omitempty"`
	}

	// DailyRecord holds every entry for one (user, date) pair. Items are
	// append-only and keep submission order. TotalAmount is derived and
	// must always equal the sum of item amounts.
	DailyRecord struct {
		ID          int64
		UserID      string
		SpentAt     string // YYYY-MM-DD
		Items       []SpendingEntry
		TotalAmount int64
		Comment     string
		CreatedAt   time.Time
	}

	// WeeklyReport is the cached aggregate for one Monday-start window.
	WeeklyReport struct {
		UserID      string
		WeekStart   string
		WeekEnd     string
		Totals      map[string]int64
		Deltas      map[string]float64
		Comment     string
		TotalAmount int64
	}

	// MonthlyProfile is the cached persona for one calendar month.
	MonthlyProfile struct {
		UserID      string
		Month       string // YYYY-MM
		Type        string
		Label       string
		Rationale   string
		Advice      string
		TotalAmount int64
	}

	User struct {
		ID           int64
		Email        string
		DisplayName  string
		PasswordHash string
		CreatedAt    time.Time
	}

	NewsArticle struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	// NewsInsight is the cached weekly news commentary. It is reused only
	// while both the headlines and the user's top category are unchanged.
	NewsInsight struct {
		UserID      string
		WeekKey     string // YYYY-Www
		Headlines   []NewsArticle
		TopCategory string
		Summary     string
		Mood        string
	}
)

func (e SpendingEntry) Validate() error {
	if len(strings.TrimSpace(e.Memo)) == 0 {
		return ErrEmptyMemo
	}
	if e.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SumAmounts returns the exact sum of the entries' amounts.
func SumAmounts(items []SpendingEntry) int64 {
	var total int64
	for _, it := range items {
		total += it.Amount
	}
	return total
}

// CategoryOf returns the entry's category, falling back to the default
// bucket for unanalyzed entries.
func (e SpendingEntry) CategoryOf() string {
	if e.Category == "" {
		return CategoryOther
	}
	return e.Category
}
