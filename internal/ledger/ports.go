package ledger

import (
	"context"

	"saldo/internal/core"
)

// Writer appends a transaction to an external ledger and returns an
// opaque row reference for audit logging.
type Writer interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
