package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/orgchart/pkg/metrics"
)

// MemoryStore is a bounded in-process Store with FIFO eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	order    []string // insertion order, oldest first
	capacity int

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a memory store. Background metrics stop when
// ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newOptions(opts)
	s := &MemoryStore{
		entries:  make(map[string][]byte),
		capacity: o.capacity,
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx, o.metricsUpdateInterval)
	return s
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements Store.Put. Replacing a value keeps its eviction position.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		s.order = append(s.order, key)
	}
	s.entries[key] = slices.Clone(value)

	for s.capacity > 0 && len(s.order) > s.capacity {
		delete(s.entries, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the metrics goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreEntries(s.Count(ctx))
			}
		}
	}()
}
