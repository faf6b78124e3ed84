package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Streamer executes export queries and streams their rows to an encoder
// without materializing the result set.
type Streamer struct {
	db *sql.DB
}

// NewStreamer creates a streamer over an established pool.
func NewStreamer(db *sql.DB) *Streamer {
	return &Streamer{db: db}
}

// StreamStats summarizes one streamed export.
type StreamStats struct {
	RowsProcessed int64
	Duration      time.Duration
}

// StreamQuery runs the statement inside a read-only repeatable-read
// transaction, so a long export sees a consistent snapshot, and feeds every
// row to the encoder. Memory stays constant: rows are scanned into reused
// buffers valid only until the next iteration.
func (s *Streamer) StreamQuery(ctx context.Context, query string, encoder RowEncoder) (*StreamStats, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		ReadOnly:  true,
		Isolation: sql.LevelRepeatableRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if err := encoder.WriteHeader(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	var rowCount int64
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		if err := encoder.WriteRow(values); err != nil {
			return nil, fmt.Errorf("encode failed: %w", err)
		}
		rowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	encoder.Flush()
	if err := encoder.Error(); err != nil {
		return nil, fmt.Errorf("encoder flush error: %w", err)
	}

	_ = tx.Commit()

	return &StreamStats{
		RowsProcessed: rowCount,
		Duration:      time.Since(start),
	}, nil
}
