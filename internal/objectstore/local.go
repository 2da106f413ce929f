package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps artifacts under a directory. It serves development and
// tests; the ref format matches MinioStore so the two are interchangeable.
type LocalStore struct {
	root   string
	bucket string
}

// NewLocalStore roots a store at dir, using the directory base name as the
// bucket component of refs.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStore{root: dir, bucket: filepath.Base(dir)}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}
	return s.bucket + "/" + key, nil
}

func (s *LocalStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	_, key, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return f, nil
}

func (s *LocalStore) URL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	_, key, err := splitRef(ref)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key))), nil
}
