package jobs

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a video job.
type Status string

// Job states. completed and failed are terminal.
const (
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusRunning, StatusCompleted, StatusFailed}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrNotFound is returned by a Store when no job matches.
	ErrNotFound = errors.New("job not found")
	// ErrConflict is returned by a Store when a transition does not apply to
	// the job's current state.
	ErrConflict = errors.New("job state conflict")
)

// Job is the durable record of one video generation, keyed by fingerprint.
type Job struct {
	CacheKey      string
	RawCacheKey   string
	OperationName string
	Status        Status
	Asset         string
	Prompt        string
	// ArtifactPath is the committed video, relative to the cache root.
	ArtifactPath string
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists jobs. Implementations must make CreateJob an atomic
// insert-if-absent and DeleteJob a compare-and-delete, since those two
// operations are how concurrent submitters coordinate.
type Store interface {
	// CreateJob inserts job in the submitted state unless a row already
	// exists for its cache key. It returns the stored row and whether this
	// call created it.
	CreateJob(ctx context.Context, job Job) (Job, bool, error)
	GetJob(ctx context.Context, cacheKey string) (Job, error)
	GetJobByOperation(ctx context.Context, operationName string) (Job, error)
	// SetJobRunning moves a submitted job to running with its operation name.
	SetJobRunning(ctx context.Context, cacheKey, operationName string) error
	// CompleteJob and FailJob move a live job to a terminal state. Repeating
	// the same terminal transition is a no-op.
	CompleteJob(ctx context.Context, cacheKey, artifactPath string) error
	FailJob(ctx context.Context, cacheKey, message string) error
	// DeleteJob removes the row only if it still has the given status and
	// update time. It reports whether a row was removed.
	DeleteJob(ctx context.Context, cacheKey string, status Status, updatedAt time.Time) (bool, error)
}
