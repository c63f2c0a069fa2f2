package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetOrCreateCategoryIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateCategory(ctx, "Housing")
	require.NoError(t, err)
	assert.Equal(t, "Housing", first.Title)
	assert.NotZero(t, first.ID)

	second, err := repo.GetOrCreateCategory(ctx, "Housing")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	cats, err := repo.CategoriesByTitles(ctx, []string{"Housing"})
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestCategoriesByTitles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateCategories(ctx, []string{"Salary", "Housing"})
	require.NoError(t, err)

	cats, err := repo.CategoriesByTitles(ctx, []string{"Salary", "Housing", "Unknown"})
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	none, err := repo.CategoriesByTitles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateAndListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.GetOrCreateCategory(ctx, "Salary")
	require.NoError(t, err)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Title:      "Salary",
		Value:      core.Money{Cents: 500000},
		Type:       core.Income,
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	ts, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "Salary", ts[0].Category)
	assert.Equal(t, core.Income, ts[0].Type)
	assert.Equal(t, int64(500000), ts[0].Value.Cents)
}

func TestBalanceInvariant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bal, err := repo.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal.Total.Cents)

	cat, err := repo.GetOrCreateCategory(ctx, "Misc")
	require.NoError(t, err)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Title: "Salary", Value: core.Money{Cents: 500000}, Type: core.Income, CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Title: "Rent", Value: core.Money{Cents: 120000}, Type: core.Outcome, CategoryID: cat.ID})
	require.NoError(t, err)

	bal, err = repo.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), bal.Income.Cents)
	assert.Equal(t, int64(120000), bal.Outcome.Cents)
	assert.Equal(t, bal.Income.Cents-bal.Outcome.Cents, bal.Total.Cents)
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.GetOrCreateCategory(ctx, "Misc")
	require.NoError(t, err)
	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Title: "Coffee", Value: core.Money{Cents: 300}, Type: core.Outcome, CategoryID: cat.ID})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, created.ID))

	err = repo.DeleteTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.DeleteTransaction(ctx, 99999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetTransaction(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	cat, err := repo.GetOrCreateCategory(ctx, "Misc")
	require.NoError(t, err)
	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Title: "Book", Value: core.Money{Cents: 2500}, Type: core.Outcome, CategoryID: cat.ID})
	require.NoError(t, err)

	got, err := repo.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book", got.Title)
	assert.Equal(t, "Misc", got.Category)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := repo.WithTx(ctx, func(tx *SQLiteRepository) error {
		if _, err := tx.CreateCategories(ctx, []string{"Doomed"}); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	cats, err := repo.CategoriesByTitles(ctx, []string{"Doomed"})
	require.NoError(t, err)
	assert.Empty(t, cats, "rolled back category must not exist")
}

func TestWithTxCommits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx *SQLiteRepository) error {
		cats, err := tx.CreateCategories(ctx, []string{"Kept"})
		if err != nil {
			return err
		}
		_, err = tx.CreateTransactions(ctx, []core.Transaction{
			{Title: "a", Value: core.Money{Cents: 100}, Type: core.Income, CategoryID: cats[0].ID},
			{Title: "b", Value: core.Money{Cents: 200}, Type: core.Outcome, CategoryID: cats[0].ID},
		})
		return err
	})
	require.NoError(t, err)

	ts, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, ts, 2)
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.GetOrCreateCategory(ctx, "Misc")
	require.NoError(t, err)
	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Title: "Lunch", Value: core.Money{Cents: 1500}, Type: core.Outcome, CategoryID: cat.ID})
	require.NoError(t, err)

	pending, err := repo.PendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)

	require.NoError(t, repo.MarkSynced(ctx, created.ID))

	pending, err = repo.PendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.MarkSyncError(ctx, created.ID))
}
