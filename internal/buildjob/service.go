// Package buildjob wraps the compilation pipeline in a durable asynchronous
// state machine: pending → building → {ready, failed}, failed → pending via
// an explicit fix resubmission, and building → pending when a heartbeat
// lapses. Builds are idempotent — identical source yields an identical
// artifact — which is what makes the at-least-once reclaim semantics safe.
package buildjob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scenesmith/internal/objectstore"
	"scenesmith/internal/pipeline"
	"scenesmith/internal/store"
	"scenesmith/internal/types"
)

// Config tunes the worker side of the lifecycle. Retry capping is a policy
// concern layered on top: MaxRetries 0 means reclaim forever.
type Config struct {
	PollInterval    time.Duration
	BuildTimeout    time.Duration
	ReclaimInterval time.Duration
	StaleAfter      time.Duration
	MaxRetries      int
	Workers         int
}

// DefaultConfig returns sane worker settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:    500 * time.Millisecond,
		BuildTimeout:    30 * time.Second,
		ReclaimInterval: 15 * time.Second,
		StaleAfter:      2 * time.Minute,
		MaxRetries:      5,
		Workers:         2,
	}
}

// Service is the Build Job Lifecycle Manager: the only part of the system
// with externally observable latency, and the only part allowed to block or
// retry.
type Service struct {
	store     *store.Store
	artifacts objectstore.Store
	pipe      *pipeline.Pipeline
	logger    *zap.Logger
	cfg       Config
}

// New assembles the lifecycle service around the given collaborators. The
// pipeline runs in artifact mode: persisted build-job output is the same
// compiler as the inline path, parameterized by delivery mode.
func New(st *store.Store, artifacts objectstore.Store, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		artifacts: artifacts,
		pipe: pipeline.New(
			pipeline.WithMode(pipeline.ModeArtifact),
			pipeline.WithValidateOptions(pipeline.ValidateOptions{Dynamic: true, Timeout: 5 * time.Second}),
			pipeline.WithLogger(logger),
		),
		logger: logger,
		cfg:    cfg,
	}
}

// Submit creates a pending job for the given source and returns its ID.
func (s *Service) Submit(ctx context.Context, sourceCode string) (string, error) {
	id := uuid.NewString()
	if _, err := s.store.CreateJob(id, sourceCode); err != nil {
		return "", err
	}
	s.logger.Info("build job submitted", zap.String("job", id))
	return id, nil
}

// Status reports a job's durable state.
func (s *Service) Status(ctx context.Context, jobID string) (types.BuildJob, error) {
	return s.store.GetJob(jobID)
}

// Fix resubmits a failed job with corrected source, transitioning it back to
// pending. It is idempotent: fixing an already-pending job just replaces its
// source.
func (s *Service) Fix(ctx context.Context, jobID, newSourceCode string) error {
	if err := s.store.ResubmitJob(jobID, newSourceCode); err != nil {
		return err
	}
	s.logger.Info("build job resubmitted", zap.String("job", jobID))
	return nil
}

// ProcessOne claims and builds a single pending job. It reports whether a
// job was processed; an empty queue is not an error.
func (s *Service) ProcessOne(ctx context.Context) (bool, error) {
	job, err := s.store.ClaimPendingJob()
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if s.cfg.MaxRetries > 0 && job.RetryCount > s.cfg.MaxRetries {
		msg := fmt.Sprintf("%s: job exceeded %d retries", types.ErrBuildTimeout, s.cfg.MaxRetries)
		if err := s.store.MarkJobFailed(job.ID, msg); err != nil {
			return true, err
		}
		s.logger.Warn("build job exhausted retries", zap.String("job", job.ID))
		return true, nil
	}

	s.logger.Info("building job", zap.String("job", job.ID), zap.Int("retry", job.RetryCount))
	buildCtx, cancel := context.WithTimeout(ctx, s.cfg.BuildTimeout)
	defer cancel()

	result := s.pipe.CompileScene(buildCtx, job.SourceCode, pipeline.SceneContextInfo{
		SceneID:   job.ID,
		ProjectID: "buildjob:" + job.ID,
		SceneName: "job " + job.ID,
	})

	if buildCtx.Err() != nil {
		msg := formatJobError(types.ErrBuildTimeout, buildCtx.Err().Error())
		if err := s.store.MarkJobFailed(job.ID, msg); err != nil {
			return true, err
		}
		return true, nil
	}

	if !result.Success {
		if err := s.store.MarkJobFailed(job.ID, result.CompilationError); err != nil {
			return true, err
		}
		s.logger.Warn("build job failed",
			zap.String("job", job.ID),
			zap.String("error", result.CompilationError))
		return true, nil
	}

	ref, err := s.uploadArtifact(ctx, job, result.Code)
	if err != nil {
		msg := formatJobError(types.ErrStorageUploadFailure, err.Error())
		if markErr := s.store.MarkJobFailed(job.ID, msg); markErr != nil {
			return true, markErr
		}
		s.logger.Error("artifact upload failed", zap.String("job", job.ID), zap.Error(err))
		return true, nil
	}

	if err := s.store.MarkJobReady(job.ID, ref); err != nil {
		return true, err
	}
	s.logger.Info("build job ready", zap.String("job", job.ID), zap.String("artifact", ref))
	return true, nil
}

// uploadArtifact persists the compiled code under a source-derived key, so
// rebuilding identical source overwrites with identical bytes.
func (s *Service) uploadArtifact(ctx context.Context, job types.BuildJob, code string) (string, error) {
	sum := sha256.Sum256([]byte(job.SourceCode))
	key := "artifacts/" + hex.EncodeToString(sum[:16]) + ".scene"
	return s.artifacts.Put(ctx, key, strings.NewReader(code), int64(len(code)), "text/plain; charset=utf-8")
}

// Reclaim reverts stale building jobs to pending.
func (s *Service) Reclaim() (int, error) {
	n, err := s.store.ReclaimStaleJobs(s.cfg.StaleAfter)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("reclaimed stale build jobs", zap.Int("count", n))
	}
	return n, nil
}

func formatJobError(kind types.ErrorKind, detail string) string {
	if detail == "" {
		return kind.String()
	}
	return kind.String() + ": " + detail
}
