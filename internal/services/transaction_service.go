package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/storage"
)

// CreateTransactionRequest carries the validated input for a single
// transaction creation.
type CreateTransactionRequest struct {
	Title      string
	ValueCents int64
	Type       core.TransactionType
	Category   string

	// CheckBalance guards outcome transactions against driving the
	// total negative. Bulk import disables it.
	CheckBalance bool
}

// TransactionService validates and persists single transactions,
// resolving or creating their category on the way.
type TransactionService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, events *amqp.Client) *TransactionService {
	return &TransactionService{
		storage: storage,
		events:  events,
	}
}

// Create validates the request, optionally enforces the non-negative
// balance invariant, resolves the category and persists the transaction.
// Nothing is persisted when any check fails.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	t := core.Transaction{
		Title:    strings.TrimSpace(req.Title),
		Value:    core.Money{Cents: req.ValueCents},
		Type:     req.Type,
		Category: strings.TrimSpace(req.Category),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if req.CheckBalance && t.Type == core.Outcome {
		balance, err := s.storage.Balance(ctx)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("read balance: %w", err)
		}
		if !balance.CanWithdraw(t.Value) {
			return core.Transaction{}, fmt.Errorf("%w: outcome of %d cents exceeds total of %d cents",
				core.ErrInvalidBalance, t.Value.Cents, balance.Total.Cents)
		}
	}

	category, err := s.storage.GetOrCreateCategory(ctx, t.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}
	t.CategoryID = category.ID
	t.Category = category.Title

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// Ledger sync is best-effort; the transaction is already durable locally
	s.publishSync(ctx, created.ID)

	return created, nil
}

// List returns all transactions with the derived balance.
func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, core.Balance, error) {
	transactions, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, core.Balance{}, fmt.Errorf("list transactions: %w", err)
	}
	balance, err := s.storage.Balance(ctx)
	if err != nil {
		return nil, core.Balance{}, fmt.Errorf("read balance: %w", err)
	}
	return transactions, balance, nil
}

// Delete removes a transaction by identifier; unknown identifiers fail
// with core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete event",
				"id", id, "error", err)
			// Don't fail the request - the transaction is deleted locally
		}
	}
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event",
			"id", id, "error", err)
	}
}
