package db

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/noless3011/data-formulator/internal/exporter"
)

// ExecuteRead runs a read statement and serializes the result set as CSV:
// one header row of column names followed by one record per result row, each
// with exactly as many cells as there are columns. It never returns an error
// to the caller — every failure mode, including a missing connection,
// degrades to a two-line document with the single column "error" and one
// message row. Driver-reported failures keep their message as-is; faults
// inside this layer are prefixed "Execution error:" so operators can tell a
// bad query from an encoder bug.
func (h *Handler) ExecuteRead(ctx context.Context, query string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = errorCSV(fmt.Sprintf("Execution error: %v", r))
		}
	}()

	if err := h.ensureEngine(); err != nil {
		return errorCSV(msgNoEngine)
	}

	rows, err := h.engine.QueryContext(ctx, query)
	if err != nil {
		return errorCSV(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return errorCSV(err.Error())
	}
	if len(columns) == 0 {
		return errorCSV("Query returned no columns")
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return errorCSV(fmt.Sprintf("Execution error: %v", err))
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return errorCSV(err.Error())
		}
		for i, v := range values {
			record[i] = exporter.CellString(v)
		}
		if err := w.Write(record); err != nil {
			return errorCSV(fmt.Sprintf("Execution error: %v", err))
		}
	}
	if err := rows.Err(); err != nil {
		return errorCSV(err.Error())
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errorCSV(fmt.Sprintf("Execution error: %v", err))
	}
	return sb.String()
}

// errorCSV renders the uniform error-row convention: header "error", one
// message row. csv quoting keeps embedded delimiters and newlines intact.
func errorCSV(msg string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"error"})
	w.Write([]string{msg})
	w.Flush()
	return sb.String()
}
