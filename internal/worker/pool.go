package worker

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/noless3011/data-formulator/internal/email"
	"github.com/noless3011/data-formulator/internal/exporter"
	"github.com/noless3011/data-formulator/internal/storage"
)

// EventFunc receives job lifecycle updates (for the dashboard stream).
type EventFunc func(jobID string, status JobStatus, rows int64)

// Pool runs export jobs on a fixed set of workers. A separate weighted
// semaphore caps how many jobs may hold a database query at once, so a large
// worker count cannot starve the pool the agent's query paths share.
type Pool struct {
	jobQueue chan *ExportJob
	workers  int
	dbSem    *semaphore.Weighted
	wg       sync.WaitGroup
	quit     chan struct{}

	db         *sql.DB
	storage    storage.Provider
	emailer    email.Sender
	onEvent    EventFunc
	useGzip    bool
	attachFile bool
}

// NewPool configures a pool; Start launches the workers.
func NewPool(workers int, maxDBConcurrency int64, db *sql.DB, store storage.Provider, emailer email.Sender, useGzip, attachFile bool) *Pool {
	return &Pool{
		jobQueue:   make(chan *ExportJob, 100), // bounded, so floods are rejected not buffered
		workers:    workers,
		dbSem:      semaphore.NewWeighted(maxDBConcurrency),
		quit:       make(chan struct{}),
		db:         db,
		storage:    store,
		emailer:    emailer,
		useGzip:    useGzip,
		attachFile: attachFile,
	}
}

// OnEvent registers a lifecycle callback. Call before Start.
func (p *Pool) OnEvent(fn EventFunc) {
	p.onEvent = fn
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("export worker pool started", "workers", p.workers)
}

// Submit enqueues a job. It returns false when the queue is full or the pool
// is shutting down.
func (p *Pool) Submit(job *ExportJob) bool {
	select {
	case p.jobQueue <- job:
		p.notify(job, 0)
		return true
	case <-p.quit:
		return false
	default:
		return false
	}
}

// Stop initiates graceful shutdown and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
	slog.Info("export worker pool stopped")
}

func (p *Pool) notify(job *ExportJob, rows int64) {
	if p.onEvent != nil {
		p.onEvent(job.ID, job.Status, rows)
	}
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	defer job.Cancel()
	slog.Info("processing export job", "worker_id", workerID, "job_id", job.ID, "format", job.Format)

	job.Started = time.Now()
	job.Status = StatusProcessing
	p.notify(job, 0)

	if err := p.dbSem.Acquire(job.Ctx, 1); err != nil {
		p.failJob(job, fmt.Errorf("failed to acquire db slot: %w", err))
		return
	}
	err := p.runExport(job)
	p.dbSem.Release(1)

	if err != nil {
		p.failJob(job, err)
		return
	}

	job.Status = StatusCompleted
	job.Finished = time.Now()
	slog.Info("export job completed", "job_id", job.ID, "rows", job.Stats.RowsProcessed)
	p.notify(job, job.Stats.RowsProcessed)

	p.deliver(job)
}

func (p *Pool) failJob(job *ExportJob, err error) {
	job.Status = StatusFailed
	job.Error = err
	job.Finished = time.Now()
	slog.Error("export job failed", "job_id", job.ID, "error", err)
	p.notify(job, 0)
}

// runExport streams the query through the requested encoder into storage.
func (p *Pool) runExport(job *ExportJob) error {
	ext := job.Format
	if ext == "excel" {
		ext = "xlsx"
	}
	job.ArtifactKey = fmt.Sprintf("exports/%s.%s", job.ID, ext)
	if p.useGzip {
		job.ArtifactKey += ".gz"
	}

	storageWriter, errChan := p.storage.StreamToFile(job.Ctx, job.ArtifactKey)
	if storageWriter == nil {
		return <-errChan
	}

	var out io.WriteCloser = storageWriter
	var gz *gzip.Writer
	if p.useGzip {
		gz = gzip.NewWriter(storageWriter)
		out = gz
	}

	encoder := exporter.New(job.Format, out)
	stats, streamErr := exporter.NewStreamer(p.db).StreamQuery(job.Ctx, job.Query, encoder)
	closeErr := encoder.Close()
	if gz != nil {
		if err := gz.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	if err := storageWriter.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if storeErr := <-errChan; storeErr != nil {
		return storeErr
	}
	if streamErr != nil {
		return streamErr
	}
	if closeErr != nil {
		return closeErr
	}

	job.Stats = stats
	return nil
}

// maxAttachmentSize caps inline email attachments.
const maxAttachmentSize = 25 * 1024 * 1024

// deliver notifies the requester, attaching the artifact when configured and
// small enough, otherwise sending a download link.
func (p *Pool) deliver(job *ExportJob) {
	if job.Email == "" {
		return
	}

	report := fmt.Sprintf(
		"Export %s\nRows: %d\nSubmitted: %s\nFinished: %s\nQuery time: %v\n",
		job.ID,
		job.Stats.RowsProcessed,
		job.Submitted.Format(time.RFC3339),
		job.Finished.Format(time.RFC3339),
		job.Stats.Duration,
	)

	if p.attachFile {
		content, err := p.readArtifact(job)
		if err != nil {
			slog.Warn("skipping attachment", "key", job.ArtifactKey, "error", err)
		} else {
			p.emailer.SendWithAttachment(job.Email, job.ArtifactKey, content, report)
			return
		}
	}
	p.emailer.SendDownloadLink(job.Email, p.storage.GetDownloadURL(job.ArtifactKey), report)
}

func (p *Pool) readArtifact(job *ExportJob) ([]byte, error) {
	reader, err := p.storage.OpenFile(job.Ctx, job.ArtifactKey)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, maxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxAttachmentSize {
		return nil, fmt.Errorf("artifact exceeds max attachment size (%d bytes)", maxAttachmentSize)
	}
	return content, nil
}
