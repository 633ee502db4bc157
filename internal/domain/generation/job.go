package generation

import (
	"context"
	"time"
)

// JobKind distinguishes video and image jobs in the job log.
type JobKind string

const (
	JobKindVideo JobKind = "video"
	JobKindImage JobKind = "image"
)

// Job is one submitted generation as recorded in the job log.
type Job struct {
	ID            string
	Kind          JobKind
	OperationName string
	SceneID       string
	ProjectID     string
	ModelKey      string
	Prompt        string
	Status        string
	MediaURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobRepository persists the job log. FindByOperation returns nil, nil when
// no job matches.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	UpdateStatus(ctx context.Context, operationName, status, mediaURL string) error
	FindByOperation(ctx context.Context, operationName string) (*Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
}
