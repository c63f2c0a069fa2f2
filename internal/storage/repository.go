package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"saldo/internal/core"

	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repository methods
// can run standalone or inside a transaction started by WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB // nil when the repository is bound to a transaction
	q  dbtx
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn against a repository bound to a single database
// transaction. The transaction commits when fn returns nil and rolls
// back otherwise. Nested calls reuse the ambient transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(*SQLiteRepository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetOrCreateCategory resolves a category by exact title, creating it
// when absent. The insert tolerates conflicts on the unique title index,
// so concurrent callers racing on an unseen title converge on one row.
func (r *SQLiteRepository) GetOrCreateCategory(ctx context.Context, title string) (core.Category, error) {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO categories (title) VALUES (?) ON CONFLICT (title) DO NOTHING", title)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	var c core.Category
	err = r.q.QueryRowContext(ctx,
		"SELECT id, title FROM categories WHERE title = ?", title).Scan(&c.ID, &c.Title)
	if err != nil {
		return core.Category{}, fmt.Errorf("fetch category %q: %w", title, err)
	}
	return c, nil
}

// CategoriesByTitles looks up all categories whose title is in the given
// set with a single query. Unknown titles are simply absent from the result.
func (r *SQLiteRepository) CategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(titles))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(titles))
	for i, t := range titles {
		args[i] = t
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT id, title FROM categories WHERE title IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query categories by titles: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// CreateCategories inserts one category row per title and returns the
// created rows. Callers are expected to pass distinct titles.
func (r *SQLiteRepository) CreateCategories(ctx context.Context, titles []string) ([]core.Category, error) {
	cats := make([]core.Category, 0, len(titles))
	for _, title := range titles {
		res, err := r.q.ExecContext(ctx, "INSERT INTO categories (title) VALUES (?)", title)
		if err != nil {
			return nil, fmt.Errorf("insert category %q: %w", title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("category insert id: %w", err)
		}
		cats = append(cats, core.Category{ID: id, Title: title})
	}
	return cats, nil
}

// CreateTransaction persists a single transaction and returns it with
// its generated identifier.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO transactions (title, value_cents, type, category_id) VALUES (?, ?, ?, ?)",
		t.Title, t.Value.Cents, string(t.Type), t.CategoryID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"title", t.Title,
		"value_cents", t.Value.Cents,
		"type", t.Type,
		"category_id", t.CategoryID)

	return t, nil
}

// CreateTransactions persists all given transactions. Run inside WithTx
// when the batch must commit atomically.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		res, err := r.q.ExecContext(ctx,
			"INSERT INTO transactions (title, value_cents, type, category_id) VALUES (?, ?, ?, ?)",
			t.Title, t.Value.Cents, string(t.Type), t.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("insert transaction %q: %w", t.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("transaction insert id: %w", err)
		}
		t.ID = id
		out = append(out, t)
	}
	return out, nil
}

// ListTransactions returns every transaction joined with its category title.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT t.id, t.title, t.value_cents, t.type, t.category_id, c.title
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var ts []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return ts, nil
}

// GetTransaction fetches a single transaction by identifier.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	err := r.q.QueryRowContext(ctx, `
		SELECT t.id, t.title, t.value_cents, t.type, t.category_id, c.title
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?`, id).
		Scan(&t.ID, &t.Title, &t.Value.Cents, &typ, &t.CategoryID, &t.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}

// Balance computes the derived balance from the full transaction set
// in one aggregate query.
func (r *SQLiteRepository) Balance(ctx context.Context) (core.Balance, error) {
	var income, outcome int64
	err := r.q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN value_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'outcome' THEN value_cents ELSE 0 END), 0)
		FROM transactions`).Scan(&income, &outcome)
	if err != nil {
		return core.Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	return core.NewBalance(income, outcome), nil
}

// DeleteTransaction removes a transaction by identifier. Deleting an
// unknown identifier fails with core.ErrNotFound.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// PendingSyncTransactions returns transactions not yet mirrored to the ledger.
func (r *SQLiteRepository) PendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT t.id, t.title, t.value_cents, t.type, t.category_id, c.title
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.sync_status = 'pending'
		ORDER BY t.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending transactions: %w", err)
	}
	defer rows.Close()

	var ts []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending transactions: %w", err)
	}
	return ts, nil
}

// MarkSynced marks a transaction as successfully mirrored to the ledger.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having failed ledger sync.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	if err := rows.Scan(&t.ID, &t.Title, &t.Value.Cents, &typ, &t.CategoryID, &t.Category); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}
