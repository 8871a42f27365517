package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	repo, err := NewRepository(dbPath)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func conf(v float64) *float64 { return &v }

func sampleRecord(userID, date string) *core.DailyRecord {
	return &core.DailyRecord{
		UserID:  userID,
		SpentAt: date,
		Items: []core.SpendingEntry{
			{Memo: "택시 15000원", Amount: 15000, Category: "교통", Tags: []string{"시간절약"}, Confidence: conf(0.8)},
			{Memo: "점심", Amount: 9000, Category: "식비", Tags: []string{"편의"}, Confidence: conf(0.8)},
		},
		TotalAmount: 24000,
		Comment:     "오늘은 교통비 지출이 많았어요.",
	}
}

func TestSaveAndFindDailyRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := sampleRecord("u1", "2025-11-17")
	id, err := repo.SaveDailyRecord(ctx, rec)
	if err != nil {
		t.Fatalf("SaveDailyRecord() error = %v", err)
	}
	if id == 0 {
		t.Fatal("SaveDailyRecord() id = 0")
	}

	got, err := repo.FindDailyRecord(ctx, "u1", "2025-11-17")
	if err != nil {
		t.Fatalf("FindDailyRecord() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindDailyRecord() = nil, want record")
	}
	if got.TotalAmount != 24000 {
		t.Errorf("TotalAmount = %d, want 24000", got.TotalAmount)
	}
	if len(got.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(got.Items))
	}
	if got.Items[0].Memo != "택시 15000원" || got.Items[1].Memo != "점심" {
		t.Errorf("items out of order: %q, %q", got.Items[0].Memo, got.Items[1].Memo)
	}
	if got.Items[0].Category != "교통" {
		t.Errorf("Category = %s, want 교통", got.Items[0].Category)
	}
	if got.Items[0].Confidence == nil || *got.Items[0].Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got.Items[0].Confidence)
	}
}

func TestFindDailyRecordMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.FindDailyRecord(context.Background(), "nobody", "2025-01-01")
	if err != nil {
		t.Fatalf("FindDailyRecord() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindDailyRecord() = %+v, want nil", got)
	}
}

func TestSaveDailyRecordUpsertKeepsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := sampleRecord("u1", "2025-11-17")
	id1, err := repo.SaveDailyRecord(ctx, rec)
	if err != nil {
		t.Fatalf("first SaveDailyRecord() error = %v", err)
	}

	rec.Items = append(rec.Items, core.SpendingEntry{Memo: "커피", Amount: 4500, Category: "식비", Tags: []string{}})
	rec.TotalAmount = 28500
	id2, err := repo.SaveDailyRecord(ctx, rec)
	if err != nil {
		t.Fatalf("second SaveDailyRecord() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("upsert changed id: %d -> %d", id1, id2)
	}

	got, err := repo.FindDailyRecord(ctx, "u1", "2025-11-17")
	if err != nil {
		t.Fatalf("FindDailyRecord() error = %v", err)
	}
	if len(got.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(got.Items))
	}
	if got.Items[2].Memo != "커피" {
		t.Errorf("appended item = %q, want 커피", got.Items[2].Memo)
	}
	if got.TotalAmount != 28500 {
		t.Errorf("TotalAmount = %d, want 28500", got.TotalAmount)
	}
}

func TestSaveDailyRecordUnanalyzedItem(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &core.DailyRecord{
		UserID:      "u1",
		SpentAt:     "2025-11-18",
		Items:       []core.SpendingEntry{{Memo: "현금 지출", Amount: 3000}},
		TotalAmount: 3000,
	}
	if _, err := repo.SaveDailyRecord(ctx, rec); err != nil {
		t.Fatalf("SaveDailyRecord() error = %v", err)
	}

	got, err := repo.FindDailyRecord(ctx, "u1", "2025-11-18")
	if err != nil {
		t.Fatalf("FindDailyRecord() error = %v", err)
	}
	if got.Items[0].Category != "" {
		t.Errorf("Category = %q, want empty", got.Items[0].Category)
	}
	if got.Items[0].Confidence != nil {
		t.Errorf("Confidence = %v, want nil", got.Items[0].Confidence)
	}
}

func TestListDailyRecordsRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, date := range []string{"2025-11-16", "2025-11-17", "2025-11-20", "2025-11-24"} {
		if _, err := repo.SaveDailyRecord(ctx, sampleRecord("u1", date)); err != nil {
			t.Fatalf("SaveDailyRecord(%s) error = %v", date, err)
		}
	}
	// Another user's records must not leak into the range.
	if _, err := repo.SaveDailyRecord(ctx, sampleRecord("u2", "2025-11-18")); err != nil {
		t.Fatalf("SaveDailyRecord(u2) error = %v", err)
	}

	got, err := repo.ListDailyRecords(ctx, "u1", "2025-11-17", "2025-11-23")
	if err != nil {
		t.Fatalf("ListDailyRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SpentAt != "2025-11-17" || got[1].SpentAt != "2025-11-20" {
		t.Errorf("dates = %s, %s", got[0].SpentAt, got[1].SpentAt)
	}
	if len(got[0].Items) != 2 {
		t.Errorf("items not loaded: %d", len(got[0].Items))
	}
}

func TestWeeklyReportRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rep := &core.WeeklyReport{
		UserID:      "u1",
		WeekStart:   "2025-11-17",
		WeekEnd:     "2025-11-23",
		Totals:      map[string]int64{"식비": 45000, "교통": 30000},
		Deltas:      map[string]float64{"식비": 0.5, "교통": 1.0},
		Comment:     "식비가 절반 늘었어요.",
		TotalAmount: 75000,
	}
	if err := repo.SaveWeeklyReport(ctx, rep); err != nil {
		t.Fatalf("SaveWeeklyReport() error = %v", err)
	}

	got, err := repo.FindWeeklyReport(ctx, "u1", "2025-11-17", "2025-11-23")
	if err != nil {
		t.Fatalf("FindWeeklyReport() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindWeeklyReport() = nil")
	}
	if got.Totals["식비"] != 45000 {
		t.Errorf("Totals[식비] = %d, want 45000", got.Totals["식비"])
	}
	if got.Deltas["교통"] != 1.0 {
		t.Errorf("Deltas[교통] = %f, want 1.0", got.Deltas["교통"])
	}
	if got.TotalAmount != 75000 {
		t.Errorf("TotalAmount = %d, want 75000", got.TotalAmount)
	}

	// Upsert replaces the cached aggregate.
	rep.TotalAmount = 80000
	rep.Comment = "updated"
	if err := repo.SaveWeeklyReport(ctx, rep); err != nil {
		t.Fatalf("second SaveWeeklyReport() error = %v", err)
	}
	got, err = repo.FindWeeklyReport(ctx, "u1", "2025-11-17", "2025-11-23")
	if err != nil {
		t.Fatalf("FindWeeklyReport() error = %v", err)
	}
	if got.TotalAmount != 80000 || got.Comment != "updated" {
		t.Errorf("upsert not applied: %+v", got)
	}
}

func TestMonthlyProfileRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := &core.MonthlyProfile{
		UserID:      "u1",
		Month:       "2025-11",
		Type:        "미식가형",
		Label:       "맛집 탐험가",
		Rationale:   "식비 비중이 가장 높아요.",
		Advice:      "구독 서비스를 점검해 보세요.",
		TotalAmount: 320000,
	}
	if err := repo.SaveMonthlyProfile(ctx, p); err != nil {
		t.Fatalf("SaveMonthlyProfile() error = %v", err)
	}

	got, err := repo.FindMonthlyProfile(ctx, "u1", "2025-11")
	if err != nil {
		t.Fatalf("FindMonthlyProfile() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindMonthlyProfile() = nil")
	}
	if got.Type != "미식가형" || got.TotalAmount != 320000 {
		t.Errorf("profile = %+v", got)
	}

	missing, err := repo.FindMonthlyProfile(ctx, "u1", "2025-10")
	if err != nil {
		t.Fatalf("FindMonthlyProfile() error = %v", err)
	}
	if missing != nil {
		t.Errorf("FindMonthlyProfile(2025-10) = %+v, want nil", missing)
	}
}

func TestNewsInsightRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := &core.NewsInsight{
		UserID:  "u1",
		WeekKey: "2025-W47",
		Headlines: []core.NewsArticle{
			{Title: "물가 상승", URL: "https://example.com/1"},
		},
		TopCategory: "식비",
		Summary:     "물가가 오르는 한 주였어요.",
		Mood:        "cautious",
	}
	if err := repo.SaveNewsInsight(ctx, in); err != nil {
		t.Fatalf("SaveNewsInsight() error = %v", err)
	}

	got, err := repo.FindNewsInsight(ctx, "u1", "2025-W47")
	if err != nil {
		t.Fatalf("FindNewsInsight() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindNewsInsight() = nil")
	}
	if len(got.Headlines) != 1 || got.Headlines[0].Title != "물가 상승" {
		t.Errorf("Headlines = %+v", got.Headlines)
	}
	if got.TopCategory != "식비" {
		t.Errorf("TopCategory = %s, want 식비", got.TopCategory)
	}
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "kim@example.com", "Kim", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == 0 || u.Email != "kim@example.com" {
		t.Errorf("user = %+v", u)
	}

	if _, err := repo.CreateUser(ctx, "kim@example.com", "Other", "hash2"); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Errorf("duplicate CreateUser() error = %v, want ErrDuplicateEmail", err)
	}

	got, err := repo.FindUserByEmail(ctx, "kim@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail() error = %v", err)
	}
	if got == nil || got.DisplayName != "Kim" {
		t.Errorf("FindUserByEmail() = %+v", got)
	}

	none, err := repo.FindUserByEmail(ctx, "none@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail() error = %v", err)
	}
	if none != nil {
		t.Errorf("FindUserByEmail(none) = %+v, want nil", none)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

func TestSyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.SaveDailyRecord(ctx, sampleRecord("u1", "2025-11-17")); err != nil {
		t.Fatalf("SaveDailyRecord() error = %v", err)
	}
	if _, err := repo.SaveDailyRecord(ctx, sampleRecord("u1", "2025-11-18")); err != nil {
		t.Fatalf("SaveDailyRecord() error = %v", err)
	}

	pending, err := repo.PendingSyncRecords(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncRecords() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	if pending[0].SpentAt != "2025-11-17" {
		t.Errorf("oldest first: got %s", pending[0].SpentAt)
	}
	if len(pending[0].Items) == 0 {
		t.Error("pending record items not loaded")
	}

	if err := repo.MarkRecordSynced(ctx, "u1", "2025-11-17", time.Now()); err != nil {
		t.Fatalf("MarkRecordSynced() error = %v", err)
	}
	pending, err = repo.PendingSyncRecords(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncRecords() error = %v", err)
	}
	if len(pending) != 1 || pending[0].SpentAt != "2025-11-18" {
		t.Errorf("pending after sync = %+v", pending)
	}

	// Re-saving a synced record clears the marker.
	if _, err := repo.SaveDailyRecord(ctx, sampleRecord("u1", "2025-11-17")); err != nil {
		t.Fatalf("SaveDailyRecord() error = %v", err)
	}
	pending, err = repo.PendingSyncRecords(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncRecords() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("len(pending) = %d, want 2 after re-save", len(pending))
	}

	if err := repo.MarkRecordSynced(ctx, "u1", "2099-01-01", time.Now()); err == nil {
		t.Error("MarkRecordSynced() on missing record = nil, want error")
	}
}
