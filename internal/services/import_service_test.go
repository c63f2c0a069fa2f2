package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportBatch(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	path := writeCSV(t, "title,type,value,category\n"+
		"Salary,income,5000,Salary\n"+
		"Rent,outcome,1200,Housing\n"+
		"Rent,outcome,1200,Housing\n")

	created, err := svc.Import(ctx, path)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	// Two distinct categories despite Housing appearing twice
	cats, err := repo.CategoriesByTitles(ctx, []string{"Salary", "Housing"})
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	transactions, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	housingID := int64(0)
	for _, tx := range transactions {
		if tx.Category == "Housing" {
			if housingID == 0 {
				housingID = tx.CategoryID
			}
			assert.Equal(t, housingID, tx.CategoryID,
				"both Housing rows must reference the same category")
		}
	}

	balance, err := repo.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), balance.Income.Cents)
	assert.Equal(t, int64(240000), balance.Outcome.Cents)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "source file must be removed after import")
}

func TestImportReusesExistingCategories(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	existing, err := repo.GetOrCreateCategory(ctx, "Housing")
	require.NoError(t, err)

	path := writeCSV(t, "title,type,value,category\n"+
		"Rent,outcome,1200,Housing\n"+
		"Groceries,outcome,300,Food\n")

	created, err := svc.Import(ctx, path)
	require.NoError(t, err)
	require.Len(t, created, 2)

	for _, tx := range created {
		if tx.Category == "Housing" {
			assert.Equal(t, existing.ID, tx.CategoryID, "existing category must be reused, not duplicated")
		}
	}

	cats, err := repo.CategoriesByTitles(ctx, []string{"Housing", "Food"})
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestImportSkipsInvalidRows(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	path := writeCSV(t, "title,type,value,category\n"+
		",income,5000,Salary\n"+ // missing title
		"Rent,,1200,Housing\n"+ // missing type
		"Rent,outcome,,Housing\n"+ // missing value
		"Rent,transfer,1200,Housing\n"+ // type outside the enumeration
		"Rent,outcome,abc,Housing\n"+ // unparseable value
		"short,row\n"+ // wrong field count
		"Lunch,outcome,15,Food\n") // the only valid row

	created, err := svc.Import(ctx, path)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Lunch", created[0].Title)

	// Skipped rows produce no store writes
	cats, err := repo.CategoriesByTitles(ctx, []string{"Salary", "Housing", "Food"})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Title)
}

func TestImportTrimsWhitespace(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	path := writeCSV(t, "title, type, value, category\n"+
		"Salary , income , 5000 , Salary \n")

	created, err := svc.Import(ctx, path)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Salary", created[0].Title)
	assert.Equal(t, core.Income, created[0].Type)
	assert.Equal(t, int64(500000), created[0].Value.Cents)
	assert.Equal(t, "Salary", created[0].Category)
}

func TestImportEmptyAndHeaderOnlyFiles(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	for _, content := range []string{"", "title,type,value,category\n"} {
		path := writeCSV(t, content)
		created, err := svc.Import(ctx, path)
		require.NoError(t, err)
		assert.Empty(t, created)
	}

	transactions, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestImportMissingFile(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)

	_, err := svc.Import(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, core.ErrImportFailed)

	transactions, listErr := repo.ListTransactions(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, transactions)
}

func TestImportStructuralErrorPersistsNothing(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewImportService(repo, nil)
	ctx := context.Background()

	// Unterminated quote is a structural CSV error
	path := writeCSV(t, "title,type,value,category\n"+
		"Salary,income,5000,Salary\n"+
		"\"broken,outcome,10,Misc\n")

	_, err := svc.Import(ctx, path)
	assert.ErrorIs(t, err, core.ErrImportFailed)

	transactions, listErr := repo.ListTransactions(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, transactions, "structural failure must persist nothing")

	cats, catErr := repo.CategoriesByTitles(ctx, []string{"Salary", "Misc"})
	require.NoError(t, catErr)
	assert.Empty(t, cats)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "source file is removed even on failure")
}
