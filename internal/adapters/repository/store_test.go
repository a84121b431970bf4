package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestContentKey(t *testing.T) {
	a := ContentKey(StageEvaluate, 1, []byte("pred"), []byte("truth"))

	if b := ContentKey(StageEvaluate, 1, []byte("pred"), []byte("truth")); a != b {
		t.Errorf("expected stable key, got %s and %s", a, b)
	}
	if b := ContentKey(StageEvaluate, 2, []byte("pred"), []byte("truth")); a == b {
		t.Error("expected version to change the key")
	}
	if b := ContentKey(StageResolve, 1, []byte("pred"), []byte("truth")); a == b {
		t.Error("expected stage to change the key")
	}
	if b := ContentKey(StageEvaluate, 1, []byte("pre"), []byte("dtruth")); a == b {
		t.Error("expected part boundaries to change the key")
	}
	if want := "evaluate/v1/"; a[:len(want)] != want {
		t.Errorf("expected prefix %q, got %s", want, a)
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("expected v1, got %q", got)
	}

	if err := s.Put(ctx, "k1", []byte("v1b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = s.Get(ctx, "k1")
	if string(got) != "v1b" {
		t.Errorf("expected replaced value v1b, got %q", got)
	}
	if n := s.Count(ctx); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}

	// Capacity is 3 in these tests: k1 (oldest) is evicted by the fourth key.
	for i := 2; i <= 4; i++ {
		if err := s.Put(ctx, fmt.Sprintf("k%d", i), []byte("v")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := s.Count(ctx); n != 3 {
		t.Errorf("expected count 3 after eviction, got %d", n)
	}
	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected k1 evicted, got %v", err)
	}
	if _, err := s.Get(ctx, "k4"); err != nil {
		t.Errorf("expected k4 present, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(context.Background(), WithCapacity(3))
	defer s.Close()

	storeContract(t, s)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer s.Close()

	in := []byte("abc")
	if err := s.Put(ctx, "k", in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in[0] = 'X'
	out, _ := s.Get(ctx, "k")
	out[1] = 'Y'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("expected stored value untouched, got %q", again)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(ctx, WithCapacity(50))
	defer s.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%60)
				if err := s.Put(ctx, key, []byte(key)); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if v, err := s.Get(ctx, key); err == nil && string(v) != key {
					t.Errorf("expected %s, got %s", key, v)
				}
			}
		}(g)
	}
	wg.Wait()

	if n := s.Count(ctx); n != 50 {
		t.Errorf("expected count capped at 50, got %d", n)
	}
}

func TestMemoryStore_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	cancel()

	if err := s.Put(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = s.Close()
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")
	s, err := NewSQLiteStore(context.Background(), path, WithCapacity(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	storeContract(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "artifacts.db")

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(ctx, "report", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err = NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "report")
	if err != nil {
		t.Fatalf("expected artifact to survive reopen, got %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("unexpected value %q", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverMemory, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Close()

	s, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, "redis", ""); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}
