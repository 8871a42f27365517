package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/core"
	"github.com/kwondongha1116/spendwallet/internal/mail"
)

// UserLister provides the recipients for the daily reminder.
type UserLister interface {
	ListUsers(ctx context.Context) ([]core.User, error)
}

// ReminderScheduler mails every user once a day at the configured local
// hour, nudging them to record the day's spending.
type ReminderScheduler struct {
	users  UserLister
	sender mail.Sender
	hour   int
	now    func() time.Time
}

func NewReminderScheduler(users UserLister, sender mail.Sender, hour int) *ReminderScheduler {
	return &ReminderScheduler{
		users:  users,
		sender: sender,
		hour:   hour,
		now:    time.Now,
	}
}

// Run blocks until the context is cancelled, firing once per day.
func (r *ReminderScheduler) Run(ctx context.Context) error {
	for {
		wait := r.untilNextRun()
		slog.InfoContext(ctx, "next reminder scheduled", "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			sent, err := r.SendAll(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reminder run failed", "error", err)
			} else {
				slog.InfoContext(ctx, "daily reminders sent", "count", sent)
			}
		}
	}
}

func (r *ReminderScheduler) untilNextRun() time.Duration {
	now := r.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// SendAll mails every registered user. One failed delivery does not stop
// the rest.
func (r *ReminderScheduler) SendAll(ctx context.Context) (int, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if u.Email == "" {
			continue
		}
		if err := r.sender.SendReminder(ctx, u.Email, u.DisplayName); err != nil {
			slog.WarnContext(ctx, "reminder delivery failed", "error", err, "email", u.Email)
			continue
		}
		sent++
	}
	return sent, nil
}
