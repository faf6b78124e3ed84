package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noless3011/data-formulator/internal/exporter"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ExportJob is one asynchronous "run this read query and deliver the result
// as a file" unit of work.
type ExportJob struct {
	// ID is the job's UUID.
	ID string
	// Query is the SQL statement to stream. It reaches the database
	// verbatim; the HTTP layer decides whether to pre-validate it.
	Query string
	// Email receives the completion notification. Empty disables it.
	Email string
	// Format is the requested output format (csv, json, excel, pdf).
	Format string

	Submitted time.Time
	Started   time.Time
	Finished  time.Time

	Status JobStatus
	Error  error
	// Stats is populated after the stream completes.
	Stats *exporter.StreamStats
	// ArtifactKey is where the storage provider placed the result.
	ArtifactKey string

	Ctx    context.Context
	Cancel context.CancelFunc
}

// NewExportJob builds a pending job with its own timeout-bounded context.
func NewExportJob(query, email, format string, timeout time.Duration) *ExportJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = "csv"
	}
	return &ExportJob{
		ID:        uuid.New().String(),
		Query:     query,
		Email:     email,
		Format:    format,
		Submitted: time.Now(),
		Status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
	}
}
