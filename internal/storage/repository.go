package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

// Repository provides persistence for every collection on a single SQLite
// database. All multi-row writes run inside a transaction.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, display_name, password_hash) VALUES (?, ?, ?)`,
		email, displayName, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, core.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return r.findUser(ctx, `WHERE id = ?`, id)
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.findUser(ctx, `WHERE email = ?`, email)
}

func (r *Repository) findUser(ctx context.Context, where string, arg any) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- daily records ---

// FindDailyRecord returns the record for a (user, date) pair with its items
// in submission order, or nil when no record exists.
func (r *Repository) FindDailyRecord(ctx context.Context, userID, date string) (*core.DailyRecord, error) {
	var rec core.DailyRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, spent_at, total_amount, ai_comment, created_at
		 FROM daily_records WHERE user_id = ? AND spent_at = ?`, userID, date).
		Scan(&rec.ID, &rec.UserID, &rec.SpentAt, &rec.TotalAmount, &rec.Comment, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query daily record: %w", err)
	}

	items, err := r.loadItems(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return &rec, nil
}

// SaveDailyRecord writes the record and all of its items in one transaction.
// Items are replaced wholesale so a failed write never leaves a partial
// record behind. The sync marker is cleared so the worker picks it up again.
func (r *Repository) SaveDailyRecord(ctx context.Context, rec *core.DailyRecord) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO daily_records (user_id, spent_at, total_amount, ai_comment)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, spent_at) DO UPDATE SET
			total_amount = excluded.total_amount,
			ai_comment = excluded.ai_comment,
			version = version + 1,
			synced_at = NULL
		 RETURNING id`,
		rec.UserID, rec.SpentAt, rec.TotalAmount, rec.Comment).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert daily record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM spending_items WHERE record_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	for i, it := range rec.Items {
		tags, err := json.Marshal(it.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshal tags: %w", err)
		}
		var category any
		if it.Category != "" {
			category = it.Category
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO spending_items (record_id, position, memo, amount, category, tags, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, it.Memo, it.Amount, category, string(tags), it.Confidence)
		if err != nil {
			return 0, fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit daily record: %w", err)
	}

	slog.InfoContext(ctx, "daily record saved",
		"user_id", rec.UserID, "date", rec.SpentAt, "items", len(rec.Items))
	return id, nil
}

// ListDailyRecords returns all records for the user with spent_at in
// [from, to], items included, ordered by date.
func (r *Repository) ListDailyRecords(ctx context.Context, userID, from, to string) ([]core.DailyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, spent_at, total_amount, ai_comment, created_at
		 FROM daily_records
		 WHERE user_id = ? AND spent_at >= ? AND spent_at <= ?
		 ORDER BY spent_at`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily records: %w", err)
	}
	defer rows.Close()

	var records []core.DailyRecord
	for rows.Next() {
		var rec core.DailyRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SpentAt, &rec.TotalAmount, &rec.Comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		items, err := r.loadItems(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Items = items
	}
	return records, nil
}

func (r *Repository) loadItems(ctx context.Context, recordID int64) ([]core.SpendingEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT memo, amount, category, tags, confidence
		 FROM spending_items WHERE record_id = ? ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []core.SpendingEntry
	for rows.Next() {
		var (
			it       core.SpendingEntry
			category sql.NullString
			tags     string
		)
		if err := rows.Scan(&it.Memo, &it.Amount, &category, &tags, &it.Confidence); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Category = category.String
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- weekly reports ---

func (r *Repository) FindWeeklyReport(ctx context.Context, userID, weekStart, weekEnd string) (*core.WeeklyReport, error) {
	var (
		rep    core.WeeklyReport
		totals string
		deltas string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, week_start, week_end, totals, deltas, comment, total_amount
		 FROM weekly_reports WHERE user_id = ? AND week_start = ? AND week_end = ?`,
		userID, weekStart, weekEnd).
		Scan(&rep.UserID, &rep.WeekStart, &rep.WeekEnd, &totals, &deltas, &rep.Comment, &rep.TotalAmount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query weekly report: %w", err)
	}
	if err := json.Unmarshal([]byte(totals), &rep.Totals); err != nil {
		return nil, fmt.Errorf("unmarshal totals: %w", err)
	}
	if err := json.Unmarshal([]byte(deltas), &rep.Deltas); err != nil {
		return nil, fmt.Errorf("unmarshal deltas: %w", err)
	}
	return &rep, nil
}

func (r *Repository) SaveWeeklyReport(ctx context.Context, rep *core.WeeklyReport) error {
	totals, err := json.Marshal(rep.Totals)
	if err != nil {
		return fmt.Errorf("marshal totals: %w", err)
	}
	deltas, err := json.Marshal(rep.Deltas)
	if err != nil {
		return fmt.Errorf("marshal deltas: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO weekly_reports (user_id, week_start, week_end, totals, deltas, comment, total_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, week_start, week_end) DO UPDATE SET
			totals = excluded.totals,
			deltas = excluded.deltas,
			comment = excluded.comment,
			total_amount = excluded.total_amount,
			updated_at = CURRENT_TIMESTAMP`,
		rep.UserID, rep.WeekStart, rep.WeekEnd, string(totals), string(deltas), rep.Comment, rep.TotalAmount)
	if err != nil {
		return fmt.Errorf("upsert weekly report: %w", err)
	}
	return nil
}

// --- monthly profiles ---

func (r *Repository) FindMonthlyProfile(ctx context.Context, userID, month string) (*core.MonthlyProfile, error) {
	var p core.MonthlyProfile
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, month, type, label, rationale, advice, total_amount
		 FROM monthly_profiles WHERE user_id = ? AND month = ?`, userID, month).
		Scan(&p.UserID, &p.Month, &p.Type, &p.Label, &p.Rationale, &p.Advice, &p.TotalAmount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query monthly profile: %w", err)
	}
	return &p, nil
}

func (r *Repository) SaveMonthlyProfile(ctx context.Context, p *core.MonthlyProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_profiles (user_id, month, type, label, rationale, advice, total_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET
			type = excluded.type,
			label = excluded.label,
			rationale = excluded.rationale,
			advice = excluded.advice,
			total_amount = excluded.total_amount,
			updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.Month, p.Type, p.Label, p.Rationale, p.Advice, p.TotalAmount)
	if err != nil {
		return fmt.Errorf("upsert monthly profile: %w", err)
	}
	return nil
}

// --- news insights ---

func (r *Repository) FindNewsInsight(ctx context.Context, userID, weekKey string) (*core.NewsInsight, error) {
	var (
		in        core.NewsInsight
		headlines string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, week_key, headlines, top_category, summary, mood
		 FROM news_insights WHERE user_id = ? AND week_key = ?`, userID, weekKey).
		Scan(&in.UserID, &in.WeekKey, &headlines, &in.TopCategory, &in.Summary, &in.Mood)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query news insight: %w", err)
	}
	if err := json.Unmarshal([]byte(headlines), &in.Headlines); err != nil {
		return nil, fmt.Errorf("unmarshal headlines: %w", err)
	}
	return &in, nil
}

func (r *Repository) SaveNewsInsight(ctx context.Context, in *core.NewsInsight) error {
	headlines, err := json.Marshal(in.Headlines)
	if err != nil {
		return fmt.Errorf("marshal headlines: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO news_insights (user_id, week_key, headlines, top_category, summary, mood)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, week_key) DO UPDATE SET
			headlines = excluded.headlines,
			top_category = excluded.top_category,
			summary = excluded.summary,
			mood = excluded.mood,
			updated_at = CURRENT_TIMESTAMP`,
		in.UserID, in.WeekKey, string(headlines), in.TopCategory, in.Summary, in.Mood)
	if err != nil {
		return fmt.Errorf("upsert news insight: %w", err)
	}
	return nil
}

// --- sync bookkeeping ---

// PendingSyncRecords returns records never exported or changed since their
// last export, oldest first.
func (r *Repository) PendingSyncRecords(ctx context.Context, limit int) ([]core.DailyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, spent_at, total_amount, ai_comment, created_at
		 FROM daily_records WHERE synced_at IS NULL
		 ORDER BY spent_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}
	defer rows.Close()

	var records []core.DailyRecord
	for rows.Next() {
		var rec core.DailyRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SpentAt, &rec.TotalAmount, &rec.Comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		items, err := r.loadItems(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Items = items
	}
	return records, nil
}

func (r *Repository) MarkRecordSynced(ctx context.Context, userID, date string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE daily_records SET synced_at = ? WHERE user_id = ? AND spent_at = ?`,
		at.UTC(), userID, date)
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no record for user %s on %s", userID, date)
	}
	return nil
}
