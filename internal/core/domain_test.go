package core

import (
	"errors"
	"testing"
)

func TestSpendingEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   SpendingEntry
		wantErr error
	}{
		{"valid", SpendingEntry{Memo: "택시", Amount: 15000}, nil},
		{"zero amount allowed", SpendingEntry{Memo: "쿠폰 사용", Amount: 0}, nil},
		{"negative amount", SpendingEntry{Memo: "환불", Amount: -100}, ErrInvalidAmount},
		{"empty memo", SpendingEntry{Memo: "   ", Amount: 100}, ErrEmptyMemo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSumAmounts(t *testing.T) {
	items := []SpendingEntry{
		{Memo: "커피", Amount: 4500},
		{Memo: "점심", Amount: 9000},
		{Memo: "버스", Amount: 1500},
	}
	if got := SumAmounts(items); got != 15000 {
		t.Errorf("SumAmounts = %d, want 15000", got)
	}
	if got := SumAmounts(nil); got != 0 {
		t.Errorf("SumAmounts(nil) = %d, want 0", got)
	}
}

func TestCategoryOf(t *testing.T) {
	if got := (SpendingEntry{Memo: "x"}).CategoryOf(); got != CategoryOther {
		t.Errorf("CategoryOf unclassified = %q, want %q", got, CategoryOther)
	}
	if got := (SpendingEntry{Memo: "x", Category: "식비"}).CategoryOf(); got != "식비" {
		t.Errorf("CategoryOf = %q, want 식비", got)
	}
}
