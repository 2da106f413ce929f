package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	body := "var _ = motion.Export(Title)\n"
	ref, err := s.Put(ctx, "artifacts/abc.scene", strings.NewReader(body), int64(len(body)), "text/plain")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasSuffix(ref, "/artifacts/abc.scene") {
		t.Errorf("ref = %q", ref)
	}

	rc, err := s.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != body {
		t.Errorf("got %q", got)
	}
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Put(ctx, "a.scene", strings.NewReader("v1"), 2, "text/plain"); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	ref, err := s.Put(ctx, "a.scene", strings.NewReader("v2"), 2, "text/plain")
	if err != nil {
		t.Fatalf("put v2: %v", err)
	}
	rc, err := s.Get(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "v2" {
		t.Errorf("got %q, want overwrite", got)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Put(context.Background(), "../escape", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Error("traversal key accepted")
	}
}

func TestLocalStore_URL(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	ref, err := s.Put(ctx, "a.scene", strings.NewReader("x"), 1, "text/plain")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	url, err := s.URL(ctx, ref, time.Minute)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %q", url)
	}
}

func TestLocalStore_GetBadRef(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Get(context.Background(), "no-slash"); err == nil {
		t.Error("malformed ref accepted")
	}
}
