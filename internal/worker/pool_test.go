package worker

import (
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/noless3011/data-formulator/internal/dbtest"
	"github.com/noless3011/data-formulator/internal/email"
	"github.com/noless3011/data-formulator/internal/storage"
)

type statusEvent struct {
	jobID  string
	status JobStatus
	rows   int64
}

// awaitStatus drains events until the wanted terminal status arrives.
func awaitStatus(t *testing.T, events <-chan statusEvent, want JobStatus) statusEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.status == want {
				return ev
			}
			if ev.status == StatusFailed && want != StatusFailed {
				t.Fatalf("job failed while waiting for %s", want)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		}
	}
}

func TestPoolRunsExportToLocalStorage(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return &dbtest.Result{
			Columns: []string{"id", "name"},
			Rows: [][]driver.Value{
				{int64(1), "Alice"},
				{int64(2), "Bob"},
			},
		}, nil
	})
	pool := engine.Open()
	defer pool.Close()

	dir := t.TempDir()
	p := NewPool(1, 1, pool, storage.NewLocalProvider(dir), email.NewLogSender(), false, false)

	events := make(chan statusEvent, 16)
	p.OnEvent(func(jobID string, status JobStatus, rows int64) {
		events <- statusEvent{jobID, status, rows}
	})
	p.Start()
	defer p.Stop()

	job := NewExportJob("SELECT id, name FROM users", "", "csv", time.Minute)
	if !p.Submit(job) {
		t.Fatal("Submit rejected the job")
	}

	ev := awaitStatus(t, events, StatusCompleted)
	if ev.rows != 2 {
		t.Errorf("rows = %d, want 2", ev.rows)
	}

	content, err := os.ReadFile(filepath.Join(dir, "exports", job.ID+".csv"))
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	want := "id,name\n1,Alice\n2,Bob\n"
	if string(content) != want {
		t.Errorf("artifact = %q, want %q", content, want)
	}
}

func TestPoolMarksJobFailedOnQueryError(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return nil, errors.New("server has gone away")
	})
	pool := engine.Open()
	defer pool.Close()

	p := NewPool(1, 1, pool, storage.NewLocalProvider(t.TempDir()), email.NewLogSender(), false, false)
	events := make(chan statusEvent, 16)
	p.OnEvent(func(jobID string, status JobStatus, rows int64) {
		events <- statusEvent{jobID, status, rows}
	})
	p.Start()
	defer p.Stop()

	job := NewExportJob("SELECT 1", "", "csv", time.Minute)
	if !p.Submit(job) {
		t.Fatal("Submit rejected the job")
	}

	awaitStatus(t, events, StatusFailed)
	if job.Error == nil {
		t.Error("failed job carries no error")
	}
}

func TestPoolSubmitRejectsWhenQueueFull(t *testing.T) {
	engine := dbtest.NewEngine()
	pool := engine.Open()
	defer pool.Close()

	// No workers started, so the queue only drains on Stop.
	p := NewPool(0, 1, pool, storage.NewLocalProvider(t.TempDir()), email.NewLogSender(), false, false)

	accepted := 0
	for i := 0; i < 200; i++ {
		job := NewExportJob("SELECT 1", "", "csv", time.Minute)
		defer job.Cancel()
		if p.Submit(job) {
			accepted++
		}
	}
	if accepted != 100 {
		t.Errorf("accepted = %d, want queue capacity 100", accepted)
	}
}

func TestPoolGzipArtifact(t *testing.T) {
	engine := dbtest.NewEngine()
	engine.OnQuery(func(query string, args []driver.Value) (*dbtest.Result, error) {
		return &dbtest.Result{
			Columns: []string{"id"},
			Rows:    [][]driver.Value{{int64(1)}},
		}, nil
	})
	pool := engine.Open()
	defer pool.Close()

	dir := t.TempDir()
	p := NewPool(1, 1, pool, storage.NewLocalProvider(dir), email.NewLogSender(), true, false)
	events := make(chan statusEvent, 16)
	p.OnEvent(func(jobID string, status JobStatus, rows int64) {
		events <- statusEvent{jobID, status, rows}
	})
	p.Start()
	defer p.Stop()

	job := NewExportJob("SELECT id FROM t", "", "csv", time.Minute)
	if !p.Submit(job) {
		t.Fatal("Submit rejected the job")
	}
	awaitStatus(t, events, StatusCompleted)

	if job.ArtifactKey != "exports/"+job.ID+".csv.gz" {
		t.Errorf("ArtifactKey = %q, want gzip suffix", job.ArtifactKey)
	}
	if _, err := os.Stat(filepath.Join(dir, job.ArtifactKey)); err != nil {
		t.Errorf("gzip artifact missing: %v", err)
	}
}
