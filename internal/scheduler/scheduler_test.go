package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seice/seice/internal/store"
)

type fakeStore struct {
	mu       sync.Mutex
	calls    int
	removed  int64
	err      error
	metadata map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{metadata: make(map[string]string)}
}

func (f *fakeStore) CleanupExpiredSessions(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.removed, f.err
}

func (f *fakeStore) SetMetadata(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[key] = value
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunCleanup(t *testing.T) {
	store := newFakeStore()
	store.removed = 3
	s := New(store, time.Minute)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	n, err := s.RunCleanup(context.Background())
	if err != nil {
		t.Fatalf("RunCleanup: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d, want 3", n)
	}
	if got := store.metadata[LastCleanupKey]; got != "2024-06-01T12:00:00Z" {
		t.Errorf("%s = %q", LastCleanupKey, got)
	}
}

func TestRunCleanupStampsSQLiteStore(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	s := New(db, time.Minute)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	if _, err := s.RunCleanup(ctx); err != nil {
		t.Fatalf("RunCleanup: %v", err)
	}
	got, err := db.GetMetadata(ctx, LastCleanupKey)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if got != "2024-06-01T12:00:00Z" {
		t.Errorf("%s = %q, want 2024-06-01T12:00:00Z", LastCleanupKey, got)
	}
}

func TestRunCleanupError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db closed")
	s := New(store, time.Minute)

	if _, err := s.RunCleanup(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.metadata[LastCleanupKey]; ok {
		t.Error("failed cleanup must not be recorded")
	}
}

func TestStartRunsImmediately(t *testing.T) {
	store := newFakeStore()
	s := New(store, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for store.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.callCount() == 0 {
		t.Error("expected cleanup to run right after Start")
	}
}

func TestStartRejectsZeroInterval(t *testing.T) {
	if err := New(newFakeStore(), 0).Start(); err == nil {
		t.Error("expected error for zero interval")
	}
}
