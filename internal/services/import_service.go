package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/storage"
)

// ImportService bulk-loads transactions from an uploaded CSV file.
//
// The whole file is parsed first, categories are reconciled against the
// store in one batch, and all transactions are inserted in one batch, so
// the number of store round-trips is constant regardless of file size.
type ImportService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
}

func NewImportService(storage *storage.SQLiteRepository, events *amqp.Client) *ImportService {
	return &ImportService{
		storage: storage,
		events:  events,
	}
}

// csvRow is one accepted data row of the import file.
type csvRow struct {
	title    string
	typ      core.TransactionType
	cents    int64
	category string
}

// Import parses the CSV file at path, reconciles categories in bulk and
// persists all resulting transactions atomically. The service owns the
// file and removes it on every exit path; removal failures are logged,
// never propagated.
func (s *ImportService) Import(ctx context.Context, path string) ([]core.Transaction, error) {
	defer removeQuietly(ctx, path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", core.ErrImportFailed, err)
	}
	defer f.Close()

	rows, err := parseRows(f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		slog.InfoContext(ctx, "Import produced no valid rows", "file", path)
		return nil, nil
	}

	var created []core.Transaction
	err = s.storage.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		pool, err := reconcileCategories(ctx, tx, rows)
		if err != nil {
			return err
		}

		transactions := make([]core.Transaction, 0, len(rows))
		for _, row := range rows {
			category := pool[row.category]
			transactions = append(transactions, core.Transaction{
				Title:      row.title,
				Value:      core.Money{Cents: row.cents},
				Type:       row.typ,
				CategoryID: category.ID,
				Category:   category.Title,
			})
		}

		created, err = tx.CreateTransactions(ctx, transactions)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		for _, t := range created {
			if err := s.events.PublishTransactionSync(ctx, t.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to publish sync event for imported transaction",
					"id", t.ID, "error", err)
				break
			}
		}
	}

	slog.InfoContext(ctx, "CSV import completed",
		"file", path,
		"transactions", len(created))

	return created, nil
}

// reconcileCategories resolves every referenced category title against
// the store in one lookup, creates exactly one row per distinct missing
// title, and returns the combined pool keyed by title.
func reconcileCategories(ctx context.Context, tx *storage.SQLiteRepository, rows []csvRow) (map[string]core.Category, error) {
	// Duplicates are retained in rows; distinct titles drive the store work
	var distinct []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := seen[row.category]; ok {
			continue
		}
		seen[row.category] = struct{}{}
		distinct = append(distinct, row.category)
	}

	existing, err := tx.CategoriesByTitles(ctx, distinct)
	if err != nil {
		return nil, err
	}

	pool := make(map[string]core.Category, len(distinct))
	for _, c := range existing {
		pool[c.Title] = c
	}

	var missing []string
	for _, title := range distinct {
		if _, ok := pool[title]; !ok {
			missing = append(missing, title)
		}
	}

	createdCats, err := tx.CreateCategories(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, c := range createdCats {
		pool[c.Title] = c
	}

	return pool, nil
}

// parseRows stream-parses the CSV, skipping the header line. A data row
// must carry the four ordered fields title, type, value, category with
// surrounding whitespace trimmed; rows missing title, type or value, or
// whose type or value fails to decode, are silently skipped. Structural
// parse failures abort the import.
func parseRows(r io.Reader) ([]csvRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	// Header line is ignored
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read header: %v", core.ErrImportFailed, err)
	}

	var rows []csvRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse csv: %v", core.ErrImportFailed, err)
		}
		if len(record) != 4 {
			continue
		}

		title := strings.TrimSpace(record[0])
		rawType := strings.TrimSpace(record[1])
		rawValue := strings.TrimSpace(record[2])
		category := strings.TrimSpace(record[3])

		if title == "" || rawType == "" || rawValue == "" || category == "" {
			continue
		}

		typ, err := core.ParseTransactionType(rawType)
		if err != nil {
			continue
		}
		cents, err := core.ParseDecimalToCents(rawValue)
		if err != nil {
			continue
		}

		rows = append(rows, csvRow{
			title:    title,
			typ:      typ,
			cents:    cents,
			category: category,
		})
	}

	return rows, nil
}

func removeQuietly(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "Failed to remove uploaded file", "file", path, "error", err)
	}
}
