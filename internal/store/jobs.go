package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scenesmith/internal/types"
)

// CreateJob inserts a freshly submitted build job in pending state.
func (s *Store) CreateJob(id, sourceCode string) (types.BuildJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job := types.BuildJob{
		ID:         id,
		SourceCode: sourceCode,
		Status:     types.JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.Exec(
		`INSERT INTO build_jobs (id, source_code, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.SourceCode, string(job.Status), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return types.BuildJob{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJob loads one build job.
func (s *Store) GetJob(id string) (types.BuildJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(
		`SELECT id, source_code, status, artifact_ref, error_message, retry_count, created_at, updated_at
		 FROM build_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ClaimPendingJob atomically moves the oldest pending job to building and
// returns it. The conditional update is the claim: two workers racing for
// the same job see exactly one success. Returns ErrNotFound when the queue
// is empty.
func (s *Store) ClaimPendingJob() (types.BuildJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return types.BuildJob{}, fmt.Errorf("claim job: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(
		`SELECT id FROM build_jobs WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
		string(types.JobPending)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BuildJob{}, ErrNotFound
	}
	if err != nil {
		return types.BuildJob{}, fmt.Errorf("claim job: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE build_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(types.JobBuilding), time.Now().UTC(), id, string(types.JobPending))
	if err != nil {
		return types.BuildJob{}, fmt.Errorf("claim job: %w", err)
	}
	if err := requireRow(res); err != nil {
		return types.BuildJob{}, err
	}

	row := tx.QueryRow(
		`SELECT id, source_code, status, artifact_ref, error_message, retry_count, created_at, updated_at
		 FROM build_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return types.BuildJob{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.BuildJob{}, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// MarkJobReady completes a building job with its artifact locator. The
// invariant holds by construction: the same statement that sets ready also
// sets artifact_ref and clears error_message.
func (s *Store) MarkJobReady(id, artifactRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE build_jobs
		 SET status = ?, artifact_ref = ?, error_message = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(types.JobReady), artifactRef, time.Now().UTC(), id, string(types.JobBuilding))
	if err != nil {
		return fmt.Errorf("mark job ready: %w", err)
	}
	return requireRow(res)
}

// MarkJobFailed fails a building job, retaining the classified diagnostic
// for a later fix resubmission.
func (s *Store) MarkJobFailed(id, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE build_jobs
		 SET status = ?, error_message = ?, artifact_ref = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(types.JobFailed), errorMessage, time.Now().UTC(), id, string(types.JobBuilding))
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return requireRow(res)
}

// ResubmitJob is the fix transition: failed → pending with new source. It is
// equivalent to a fresh submission of the corrected source under the same
// job identity, so calling it twice is harmless.
func (s *Store) ResubmitJob(id, newSource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE build_jobs
		 SET source_code = ?, status = ?, error_message = '', artifact_ref = '', updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		newSource, string(types.JobPending), time.Now().UTC(), id,
		string(types.JobFailed), string(types.JobPending))
	if err != nil {
		return fmt.Errorf("resubmit job: %w", err)
	}
	return requireRow(res)
}

// ReclaimStaleJobs returns every building job whose heartbeat lapsed back to
// pending, bumping its retry count. Builds are idempotent, so re-running a
// reclaimed job converges on the identical artifact.
func (s *Store) ReclaimStaleJobs(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(
		`UPDATE build_jobs
		 SET status = ?, retry_count = retry_count + 1, updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		string(types.JobPending), time.Now().UTC(), string(types.JobBuilding), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// TouchJob refreshes a building job's heartbeat so long-running builds are
// not reclaimed out from under their worker.
func (s *Store) TouchJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE build_jobs SET updated_at = ? WHERE id = ? AND status = ?`,
		time.Now().UTC(), id, string(types.JobBuilding))
	if err != nil {
		return fmt.Errorf("touch job: %w", err)
	}
	return requireRow(res)
}

func scanJob(row rowScanner) (types.BuildJob, error) {
	var job types.BuildJob
	var status string
	err := row.Scan(&job.ID, &job.SourceCode, &status, &job.ArtifactRef,
		&job.ErrorMessage, &job.RetryCount, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BuildJob{}, ErrNotFound
		}
		return types.BuildJob{}, fmt.Errorf("scan job: %w", err)
	}
	job.Status = types.JobStatus(status)
	return job, nil
}
