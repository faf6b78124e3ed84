package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahilm/fuzzy"

	"github.com/noless3011/data-formulator/internal/exporter"
)

// fuzzyLimit caps how many ranked matches FuzzyFind returns.
const fuzzyLimit = 5

// FuzzyFind retrieves the distinct non-null values of table.column and ranks
// them against term, returning at most five matches by descending similarity
// score. Ties keep the scorer's own ordering.
//
// SECURITY: column and table are interpolated into the statement verbatim,
// wrapped only in backticks. They are covered by the package's trusted-input
// contract and are injection-unsafe for hostile identifiers by construction.
//
// A missing connection is returned as an error. A driver failure during
// retrieval is logged and yields an empty slice with a nil error instead —
// on that path callers cannot distinguish "no matches" from "lookup failed".
func (h *Handler) FuzzyFind(ctx context.Context, term, column, table string) ([]string, error) {
	if err := h.ensureEngine(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT DISTINCT `%s` FROM `%s` WHERE `%s` IS NOT NULL", column, table, column)
	rows, err := h.engine.QueryContext(ctx, query)
	if err != nil {
		slog.Error("fuzzy lookup failed", "table", table, "column", column, "error", err)
		return []string{}, nil
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			slog.Error("fuzzy lookup scan failed", "table", table, "column", column, "error", err)
			return []string{}, nil
		}
		candidates = append(candidates, exporter.CellString(v))
	}
	if err := rows.Err(); err != nil {
		slog.Error("fuzzy lookup iteration failed", "table", table, "column", column, "error", err)
		return []string{}, nil
	}

	return rankValues(term, candidates), nil
}

// rankValues orders candidates by descending fuzzy score and keeps the top
// fuzzyLimit entries.
func rankValues(term string, candidates []string) []string {
	matches := fuzzy.Find(term, candidates)
	if len(matches) > fuzzyLimit {
		matches = matches[:fuzzyLimit]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
