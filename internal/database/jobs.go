package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"image-resize-ai/internal/jobs"
)

var _ jobs.Store = (*Database)(nil)

// ErrJobNotFound is returned when no job row matches.
var ErrJobNotFound = jobs.ErrNotFound

const jobColumns = `cache_key, raw_cache_key, operation_name, status, asset, prompt,
	artifact_path, error, created_at, updated_at`

// CreateJob inserts job as submitted unless a row exists for its cache key.
// It returns the stored row and whether this call created it.
func (d *Database) CreateJob(ctx context.Context, job jobs.Job) (jobs.Job, bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	var res sql.Result
	res, err = d.db.ExecContext(ctx, `
		INSERT INTO jobs (cache_key, raw_cache_key, operation_name, status, asset, prompt,
			artifact_path, error, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?, ?, '', '', ?, ?)
		ON CONFLICT(cache_key) DO NOTHING
	`, job.CacheKey, job.RawCacheKey, jobs.StatusSubmitted, job.Asset, job.Prompt,
		now.UnixNano(), now.UnixNano())
	if err != nil {
		return jobs.Job{}, false, fmt.Errorf("insert job: %w", err)
	}

	rows, _ := res.RowsAffected()
	var stored jobs.Job
	stored, err = d.scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE cache_key = ?", job.CacheKey))
	if err != nil {
		return jobs.Job{}, false, err
	}
	return stored, rows == 1, nil
}

// GetJob returns the job for a fingerprint.
func (d *Database) GetJob(ctx context.Context, cacheKey string) (jobs.Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, ignoreNotFound(err)) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var job jobs.Job
	job, err = d.scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE cache_key = ?", cacheKey))
	return job, err
}

// GetJobByOperation returns the job a provider operation belongs to.
func (d *Database) GetJobByOperation(ctx context.Context, operationName string) (jobs.Job, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job_by_operation", start, ignoreNotFound(err)) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var job jobs.Job
	job, err = d.scanJob(d.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE operation_name = ?", operationName))
	return job, err
}

// SetJobRunning records the provider operation for a submitted job.
func (d *Database) SetJobRunning(ctx context.Context, cacheKey, operationName string) error {
	return d.transition(ctx, "set_job_running", cacheKey, jobs.StatusRunning,
		[]jobs.Status{jobs.StatusSubmitted},
		"operation_name = ?", operationName)
}

// CompleteJob marks a live job completed with its artifact path.
func (d *Database) CompleteJob(ctx context.Context, cacheKey, artifactPath string) error {
	return d.transition(ctx, "complete_job", cacheKey, jobs.StatusCompleted,
		[]jobs.Status{jobs.StatusSubmitted, jobs.StatusRunning},
		"artifact_path = ?, error = ''", artifactPath)
}

// FailJob marks a live job failed with a client-facing message.
func (d *Database) FailJob(ctx context.Context, cacheKey, message string) error {
	return d.transition(ctx, "fail_job", cacheKey, jobs.StatusFailed,
		[]jobs.Status{jobs.StatusSubmitted, jobs.StatusRunning},
		"error = ?", message)
}

// transition moves cacheKey to status when its current status is one of
// from. Repeating a terminal transition is a no-op; any other mismatch is
// jobs.ErrConflict.
func (d *Database) transition(ctx context.Context, op, cacheKey string, status jobs.Status, from []jobs.Status, set string, arg any) error {
	start := time.Now()
	var err error
	defer func() { recordQuery(op, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := "?"
	args := []any{status, time.Now().UTC().UnixNano(), arg, cacheKey, from[0]}
	for _, s := range from[1:] {
		placeholders += ", ?"
		args = append(args, s)
	}

	var res sql.Result
	res, err = d.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ?, "+set+
			" WHERE cache_key = ? AND status IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 1 {
		return nil
	}

	var current jobs.Status
	qerr := d.db.QueryRowContext(ctx, "SELECT status FROM jobs WHERE cache_key = ?", cacheKey).Scan(&current)
	if errors.Is(qerr, sql.ErrNoRows) {
		err = ErrJobNotFound
		return err
	}
	if qerr != nil {
		err = qerr
		return err
	}
	if current == status && status.Terminal() {
		return nil
	}
	err = fmt.Errorf("%w: %s is %s, cannot move to %s", jobs.ErrConflict, cacheKey, current, status)
	return err
}

// DeleteJob removes the row only if it is unchanged since the caller read it.
func (d *Database) DeleteJob(ctx context.Context, cacheKey string, status jobs.Status, updatedAt time.Time) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE cache_key = ? AND status = ? AND updated_at = ?",
		cacheKey, status, updatedAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows == 1, nil
}

// CountJobsByStatus returns the number of jobs in each state.
func (d *Database) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_jobs", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err = rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	err = rows.Err()
	return counts, err
}

func (d *Database) scanJob(row *sql.Row) (jobs.Job, error) {
	var (
		job       jobs.Job
		operation sql.NullString
		status    string
		created   int64
		updated   int64
	)
	err := row.Scan(&job.CacheKey, &job.RawCacheKey, &operation, &status, &job.Asset, &job.Prompt,
		&job.ArtifactPath, &job.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, ErrJobNotFound
	}
	if err != nil {
		return jobs.Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.OperationName = operation.String
	job.Status = jobs.Status(status)
	job.CreatedAt = time.Unix(0, created).UTC()
	job.UpdatedAt = time.Unix(0, updated).UTC()
	return job, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	return err
}
