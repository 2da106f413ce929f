// Package types defines the shared data model for the scene compilation
// pipeline: scenes, projects, build jobs, and the classified error kinds
// every stage reports instead of throwing.
package types

import "time"

// Scene is one unit of generated visual content. SourceCode is owned by the
// editing/generation flow; CompiledCode, CompiledAt and CompilationError are
// owned exclusively by the pipeline. CompiledCode, when present, was produced
// by a successful pipeline run against the SourceCode stored alongside it —
// any edit to SourceCode invalidates the artifact until recompiled.
type Scene struct {
	ID               string
	ProjectID        string
	Order            int // position within the project's ordered scene sequence
	Name             string
	SourceCode       string
	CompiledCode     string
	CompiledAt       time.Time
	CompilationError string
}

// Project is an ordered sequence of scenes that execute inside one shared
// runtime namespace at playback time.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// JobStatus is the durable state of an asynchronous build job.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobBuilding JobStatus = "building"
	JobReady    JobStatus = "ready"
	JobFailed   JobStatus = "failed"
)

// Valid reports whether s is one of the defined job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobBuilding, JobReady, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether the status accepts no further automatic
// transitions. A failed job still accepts an explicit fix resubmission.
func (s JobStatus) Terminal() bool {
	return s == JobReady || s == JobFailed
}

// BuildJob is the durable wrapper around one asynchronous pipeline run.
// Invariants: ArtifactRef is set iff Status == JobReady; ErrorMessage is set
// iff Status == JobFailed. Jobs are never deleted implicitly — they are
// retained for audit and fix workflows.
type BuildJob struct {
	ID           string
	SourceCode   string
	Status       JobStatus
	ArtifactRef  string
	ErrorMessage string
	RetryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrorKind classifies every failure the pipeline can report.
type ErrorKind int

const (
	// ErrNone marks the absence of a classified error.
	ErrNone ErrorKind = iota

	// ErrSyntaxDefect is preprocessor-recoverable and never surfaces as a
	// pipeline failure on its own.
	ErrSyntaxDefect

	// ErrForbiddenConstruct marks a disallowed import or statement form.
	ErrForbiddenConstruct

	// ErrMissingDefaultExport marks a scene that does not export exactly one
	// entry component.
	ErrMissingDefaultExport

	// ErrIdentifierCollisionUnresolved is defensive only: the resolver's
	// deterministic algorithm should never leave a collision behind, but the
	// condition is checked and reported rather than silently ignored.
	ErrIdentifierCollisionUnresolved

	// ErrCompileFailure marks source the compiler could not turn into a
	// valid artifact even after preprocessing.
	ErrCompileFailure

	// ErrRuntimeThrowOnValidate marks an artifact that threw immediately
	// when instantiated once during validation.
	ErrRuntimeThrowOnValidate

	// ErrBuildTimeout and ErrStorageUploadFailure occur on the asynchronous
	// path only.
	ErrBuildTimeout
	ErrStorageUploadFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "None"
	case ErrSyntaxDefect:
		return "SyntaxDefect"
	case ErrForbiddenConstruct:
		return "ForbiddenConstruct"
	case ErrMissingDefaultExport:
		return "MissingDefaultExport"
	case ErrIdentifierCollisionUnresolved:
		return "IdentifierCollisionUnresolved"
	case ErrCompileFailure:
		return "CompileFailure"
	case ErrRuntimeThrowOnValidate:
		return "RuntimeThrowOnValidate"
	case ErrBuildTimeout:
		return "BuildTimeout"
	case ErrStorageUploadFailure:
		return "StorageUploadFailure"
	default:
		return "Unknown"
	}
}

// Rename records one deterministic identifier rename applied by the conflict
// resolver: the declaration and every reference to From inside the named
// scene's own code were rewritten to To.
type Rename struct {
	SceneID string `json:"scene_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// SiblingScene is the slice of a sibling scene relevant to conflict
// resolution: identity, order within the project, and current source.
type SiblingScene struct {
	ID         string
	Name       string
	Order      int
	SourceCode string
}
