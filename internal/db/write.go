package db

import (
	"context"
	"fmt"
)

// WriteResult is the outcome record of a write statement. RowCount is
// present only on success, Error only on failure; a failed write is
// indistinguishable from zero rows affected unless Success is checked.
type WriteResult struct {
	Success  bool   `json:"success"`
	RowCount *int64 `json:"row_count,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ExecuteWrite runs a write statement inside a transaction that commits on
// success and rolls back on any failure, so a mid-transaction fault never
// leaves partial work visible. Like the read path it never returns a Go
// error; the outcome record is the only failure channel.
func (h *Handler) ExecuteWrite(ctx context.Context, query string) WriteResult {
	if err := h.ensureEngine(); err != nil {
		return writeFailure(msgNoEngine)
	}

	tx, err := h.engine.BeginTx(ctx, nil)
	if err != nil {
		return writeFailure(fmt.Sprintf("Database error: %v", err))
	}
	defer tx.Rollback() // no-op once committed

	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return writeFailure(fmt.Sprintf("Database error: %v", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return writeFailure(fmt.Sprintf("Database error: %v", err))
	}

	if err := tx.Commit(); err != nil {
		return writeFailure(fmt.Sprintf("Database error: %v", err))
	}

	return WriteResult{Success: true, RowCount: &affected}
}

func writeFailure(msg string) WriteResult {
	return WriteResult{Success: false, Error: msg}
}
