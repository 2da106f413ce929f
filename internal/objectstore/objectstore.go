// Package objectstore persists compiled artifacts. The pipeline only needs
// "put artifact, get URL": artifacts are addressed by an opaque
// bucket-qualified key that becomes the job's artifactRef.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store is the artifact storage surface the build-job lifecycle depends on.
type Store interface {
	// Put stores an artifact and returns its opaque ref ("bucket/key").
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)

	// Get opens a stored artifact by ref.
	Get(ctx context.Context, ref string) (io.ReadCloser, error)

	// URL returns a time-limited fetch URL for a stored artifact.
	URL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}
