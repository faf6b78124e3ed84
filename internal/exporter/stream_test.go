package exporter

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/noless3011/data-formulator/internal/dbtest"
)

func TestStreamQueryEncodesAllRows(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return &dbtest.Result{
			Columns: []string{"id", "name"},
			Rows: [][]driver.Value{
				{int64(1), "Alice"},
				{int64(2), "Bob"},
				{int64(3), "Carol"},
			},
		}, nil
	})
	pool := engine.Open()
	defer pool.Close()

	var buf bytes.Buffer
	stats, err := NewStreamer(pool).StreamQuery(context.Background(), "SELECT id, name FROM users", NewCSVEncoder(&buf))
	if err != nil {
		t.Fatalf("StreamQuery failed: %v", err)
	}
	if stats.RowsProcessed != 3 {
		t.Errorf("RowsProcessed = %d, want 3", stats.RowsProcessed)
	}

	want := "id,name\n1,Alice\n2,Bob\n3,Carol\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if engine.Commits() != 1 {
		t.Errorf("commits = %d, want 1", engine.Commits())
	}
}

func TestStreamQueryPropagatesQueryError(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return nil, errors.New("server has gone away")
	})
	pool := engine.Open()
	defer pool.Close()

	var buf bytes.Buffer
	_, err := NewStreamer(pool).StreamQuery(context.Background(), "SELECT 1", NewCSVEncoder(&buf))
	if err == nil {
		t.Fatal("query failure did not propagate")
	}
	if engine.Rollbacks() == 0 {
		t.Error("transaction was not rolled back on failure")
	}
}

func TestStreamQueryHonorsCancellation(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		rows := make([][]driver.Value, 100)
		for i := range rows {
			rows[i] = []driver.Value{int64(i)}
		}
		return &dbtest.Result{Columns: []string{"id"}, Rows: rows}, nil
	})
	pool := engine.Open()
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := NewStreamer(pool).StreamQuery(ctx, "SELECT id FROM big", NewCSVEncoder(&buf))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
