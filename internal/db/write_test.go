package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/noless3011/data-formulator/internal/dbtest"
)

func TestExecuteWriteCommitsAndReportsAffectedRows(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnExec(func(query string, args []driver.Value) (int64, error) {
		return 3, nil
	})
	h := readHandler(t, engine)

	res := h.ExecuteWrite(context.Background(), "UPDATE users SET active = 1")
	if !res.Success {
		t.Fatalf("write failed: %s", res.Error)
	}
	if res.RowCount == nil || *res.RowCount != 3 {
		t.Errorf("RowCount = %v, want 3", res.RowCount)
	}
	if res.Error != "" {
		t.Errorf("Error = %q, want empty", res.Error)
	}
	if engine.Commits() != 1 {
		t.Errorf("commits = %d, want 1", engine.Commits())
	}
}

func TestExecuteWriteZeroAffectedStillSucceeds(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnExec(func(query string, args []driver.Value) (int64, error) {
		return 0, nil
	})
	h := readHandler(t, engine)

	res := h.ExecuteWrite(context.Background(), "DELETE FROM users WHERE id = -1")
	if !res.Success {
		t.Fatalf("write failed: %s", res.Error)
	}
	if res.RowCount == nil {
		t.Fatal("RowCount absent on success")
	}
	if *res.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", *res.RowCount)
	}
}

func TestExecuteWriteFailureRollsBack(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnExec(func(query string, args []driver.Value) (int64, error) {
		return 0, errors.New("Duplicate entry '7' for key 'PRIMARY'")
	})
	h := readHandler(t, engine)

	res := h.ExecuteWrite(context.Background(), "INSERT INTO users (id) VALUES (7)")
	if res.Success {
		t.Fatal("write reported success despite exec failure")
	}
	if res.RowCount != nil {
		t.Errorf("RowCount = %d, want absent on failure", *res.RowCount)
	}
	if !strings.HasPrefix(res.Error, "Database error: ") {
		t.Errorf("Error = %q, want Database error prefix", res.Error)
	}
	if !strings.Contains(res.Error, "Duplicate entry") {
		t.Errorf("Error = %q, driver message lost", res.Error)
	}
	if engine.Rollbacks() != 1 {
		t.Errorf("rollbacks = %d, want 1", engine.Rollbacks())
	}
	if engine.Commits() != 0 {
		t.Errorf("commits = %d, want 0", engine.Commits())
	}
}

func TestExecuteWriteWithoutEngineFails(t *testing.T) {
	h := New("127.0.0.1", "alice", "secret", "sales", "1")

	res := h.ExecuteWrite(context.Background(), "DELETE FROM users")
	if res.Success {
		t.Fatal("write reported success without a connection")
	}
	if res.Error != msgNoEngine {
		t.Errorf("Error = %q, want %q", res.Error, msgNoEngine)
	}
	if res.RowCount != nil {
		t.Error("RowCount present on failure")
	}
}
