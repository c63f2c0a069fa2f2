package core

import (
	"errors"
	"strings"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	Category struct {
		ID    int64
		Title string
	}

	// Transaction is immutable after creation and always references
	// exactly one category.
	Transaction struct {
		ID         int64
		Title      string
		Value      Money
		Type       TransactionType
		CategoryID int64
		Category   string
	}

	// Balance is derived from the full transaction set on read, never stored.
	Balance struct {
		Income  Money
		Outcome Money
		Total   Money
	}
)

var (
	ErrEmptyTitle     = errors.New("empty title")
	ErrTitleTooLong   = errors.New("title too long (max 200 characters)")
	ErrEmptyCategory  = errors.New("empty category")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrInvalidBalance = errors.New("invalid balance")
	ErrNotFound       = errors.New("transaction not found")
	ErrImportFailed   = errors.New("import failed")
)

// ParseTransactionType decodes a raw string into the strict enumeration.
// Surrounding whitespace is tolerated; anything but the two known values fails.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.TrimSpace(s)) {
	case Income:
		return Income, nil
	case Outcome:
		return Outcome, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Outcome:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if t.CategoryID == 0 && strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NewBalance builds a Balance from the income and outcome totals.
// The invariant Total == Income - Outcome holds by construction.
func NewBalance(incomeCents, outcomeCents int64) Balance {
	return Balance{
		Income:  Money{Cents: incomeCents},
		Outcome: Money{Cents: outcomeCents},
		Total:   Money{Cents: incomeCents - outcomeCents},
	}
}

// CanWithdraw reports whether an outcome of the given magnitude would
// keep the total non-negative.
func (b Balance) CanWithdraw(m Money) bool {
	return b.Total.Cents-m.Cents >= 0
}
