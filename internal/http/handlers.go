package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"saldo/internal/core"
	"saldo/internal/services"
)

type transactionResponse struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Value    float64 `json:"value"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
}

type balanceResponse struct {
	Income  float64 `json:"income"`
	Outcome float64 `json:"outcome"`
	Total   float64 `json:"total"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		Title:    t.Title,
		Value:    t.Value.Units(),
		Type:     string(t.Type),
		Category: t.Category,
	}
}

func toTransactionResponses(transactions []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, balance, err := s.transactions.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, struct {
		Transactions []transactionResponse `json:"transactions"`
		Balance      balanceResponse       `json:"balance"`
	}{
		Transactions: toTransactionResponses(transactions),
		Balance: balanceResponse{
			Income:  balance.Income.Units(),
			Outcome: balance.Outcome.Units(),
			Total:   balance.Total.Units(),
		},
	})
}

type createTransactionBody struct {
	Title    string          `json:"title"`
	Value    json.RawMessage `json:"value"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var body createTransactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.WarnContext(r.Context(), "Invalid request body", "error", err)
		writeJSON(r.Context(), w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cents, err := parseValue(body.Value)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	typ, err := core.ParseTransactionType(body.Type)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), services.CreateTransactionRequest{
		Title:        body.Title,
		ValueCents:   cents,
		Type:         typ,
		Category:     body.Category,
		CheckBalance: true,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, toTransactionResponse(created))
}

// parseValue accepts the transaction value either as a JSON number or as
// a decimal string ("12.34" and "12,34" both work).
func parseValue(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, core.ErrInvalidAmount
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, core.ErrInvalidAmount
		}
		text = s
	}
	return core.ParseDecimalToCents(text)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}

	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		slog.WarnContext(r.Context(), "Missing or oversized upload", "error", err)
		writeError(r.Context(), w, fmt.Errorf("%w: multipart field 'file' is required", core.ErrImportFailed))
		return
	}
	defer file.Close()

	path, err := s.spoolUpload(file)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	created, err := s.imports.Import(r.Context(), path)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, struct {
		Transactions []transactionResponse `json:"transactions"`
	}{
		Transactions: toTransactionResponses(created),
	})
}

// spoolUpload copies the uploaded stream to a temporary file under the
// configured upload directory. The import service owns the file from
// there and removes it when done.
func (s *Server) spoolUpload(src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, generateUploadName())
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("flush upload: %w", err)
	}

	return path, nil
}
