package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kwondongha1116/spendwallet/internal/auth"
	"github.com/kwondongha1116/spendwallet/internal/core"
	"github.com/kwondongha1116/spendwallet/internal/services"
)

// --- auth ---

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func userToPayload(u *core.User) userPayload {
	return userPayload{
		ID:          strconv.FormatInt(u.ID, 10),
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "invalid email")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "password is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "password hash failed", "error", err)
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Email, req.DisplayName, hash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		slog.ErrorContext(r.Context(), "create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	token, err := s.tokens.Issue(strconv.FormatInt(user.ID, 10), user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user":         userToPayload(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.FindUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		slog.ErrorContext(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(strconv.FormatInt(user.ID, 10), user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user":         userToPayload(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; the client discards its copy.
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- users ---

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Email, req.DisplayName, "")
	if errors.Is(err, core.ErrDuplicateEmail) {
		// Idempotent: return the existing account.
		user, err = s.users.FindUserByEmail(r.Context(), req.Email)
	}
	if err != nil || user == nil {
		slog.ErrorContext(r.Context(), "create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create user failed")
		return
	}

	writeJSON(w, http.StatusOK, userToPayload(user))
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	user, err := s.users.FindUserByEmail(r.Context(), claims.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	writeJSON(w, http.StatusOK, userToPayload(user))
}

// --- spendings ---

type bulkItemRequest struct {
	Memo   string `json:"memo"`
	Amount int64  `json:"amount"`
}

type bulkSpendingsRequest struct {
	UserID  string            `json:"user_id"`
	Date    string            `json:"date"`
	Items   []bulkItemRequest `json:"items"`
	Analyze *bool             `json:"analyze"`
}

func (s *Server) handleBulkSpendings(w http.ResponseWriter, r *http.Request) {
	var req bulkSpendingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	items := make([]services.BulkItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = services.BulkItem{Memo: it.Memo, Amount: it.Amount}
	}
	analyze := req.Analyze == nil || *req.Analyze

	res, err := s.ingest.SaveBulk(r.Context(), req.UserID, req.Date, items, analyze)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNoItems):
			writeError(w, http.StatusBadRequest, "items is empty")
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrEmptyMemo):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.ErrorContext(r.Context(), "bulk save failed", "error", err, "user_id", req.UserID)
			writeError(w, http.StatusInternalServerError, "save failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"saved": res.Saved,
		"daily": map[string]string{
			"id":   strconv.FormatInt(res.ID, 10),
			"date": res.Date,
		},
	})
}

func (s *Server) handleListSpendings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, from, to := q.Get("user_id"), q.Get("from"), q.Get("to")
	if userID == "" || from == "" || to == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id, from and to are required")
		return
	}

	items, err := s.ingest.ListRange(r.Context(), userID, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "list spendings failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// --- reports ---

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, date := q.Get("user_id"), q.Get("date")
	if userID == "" || date == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id and date are required")
		return
	}

	report, err := s.reports.Daily(r.Context(), userID, date)
	if err != nil {
		slog.ErrorContext(r.Context(), "daily report failed", "error", err, "user_id", userID, "date", date)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, week := q.Get("user_id"), q.Get("week")
	if userID == "" || week == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id and week are required")
		return
	}

	report, err := s.reports.Weekly(r.Context(), userID, week)
	if err != nil {
		if errors.Is(err, core.ErrInvalidWeekToken) {
			writeError(w, http.StatusBadRequest, "Invalid week format, expected YYYY-Www")
			return
		}
		slog.ErrorContext(r.Context(), "weekly report failed", "error", err, "user_id", userID, "week", week)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totals":  report.Totals,
		"deltas":  report.Deltas,
		"comment": report.Comment,
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, month := q.Get("user_id"), q.Get("month")
	if userID == "" || month == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id and month are required")
		return
	}

	profile, err := s.reports.Monthly(r.Context(), userID, month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMonthToken) {
			writeError(w, http.StatusBadRequest, "Invalid month format, expected YYYY-MM")
			return
		}
		slog.ErrorContext(r.Context(), "monthly report failed", "error", err, "user_id", userID, "month", month)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}

	// The public type field carries the display label.
	profileType := profile.Label
	if profileType == "" {
		profileType = profile.Type
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"type":      profileType,
		"rationale": profile.Rationale,
		"advice":    profile.Advice,
	})
}

// --- insights ---

func (s *Server) handleWeekNews(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	result, err := s.insights.WeekNews(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "week news insight failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "insight failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
