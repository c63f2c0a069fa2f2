package core

import (
	"errors"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"outcome", Outcome, true},
		{" income ", Income, true},
		{"", "", false},
		{"INCOME", "", false},
		{"transfer", "", false},
	}
	for i, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%q, %v), want %q", i, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidType) {
			t.Fatalf("case %d: expected ErrInvalidType, got %v", i, err)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Title:    "Salary",
		Value:    Money{Cents: 500000},
		Type:     Income,
		Category: "Salary",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Title: "", Value: Money{Cents: 1}, Type: Income, Category: "c"},
		{Title: "  ", Value: Money{Cents: 1}, Type: Income, Category: "c"},
		{Title: "a", Value: Money{Cents: 0}, Type: Income, Category: "c"},
		{Title: "a", Value: Money{Cents: 1}, Type: "transfer", Category: "c"},
		{Title: "a", Value: Money{Cents: 1}, Type: Outcome, Category: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewBalance(t *testing.T) {
	cases := []struct {
		income, outcome, total int64
	}{
		{0, 0, 0},
		{500000, 120000, 380000},
		{100, 250, -150},
	}
	for i, tc := range cases {
		b := NewBalance(tc.income, tc.outcome)
		if b.Total.Cents != tc.total {
			t.Fatalf("case %d: total=%d, want %d", i, b.Total.Cents, tc.total)
		}
		if b.Total.Cents != b.Income.Cents-b.Outcome.Cents {
			t.Fatalf("case %d: balance invariant violated", i)
		}
	}
}

func TestBalanceCanWithdraw(t *testing.T) {
	b := NewBalance(5000, 0)
	if !b.CanWithdraw(Money{Cents: 5000}) {
		t.Fatalf("withdrawing exactly the total should be allowed")
	}
	if b.CanWithdraw(Money{Cents: 5001}) {
		t.Fatalf("withdrawing past the total should be rejected")
	}
}
