// Package repository caches pipeline artifacts by content address.
//
// Keys are derived from the input bytes plus a pipeline stage and version,
// so a changed input or a bumped version never reads a stale artifact.
package repository

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Pipeline stages that produce cached artifacts.
const (
	StageResolve  = "resolve"
	StageEvaluate = "evaluate"
)

// Store provides read/write access to cached artifacts.
type Store interface {
	// Get returns the artifact stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Count returns the number of stored artifacts.
	Count(ctx context.Context) int
	// Close releases background work and handles.
	Close() error
}

// ContentKey hashes stage, version and every part into a store key. Parts
// are length-prefixed so ("ab", "c") and ("a", "bc") differ.
func ContentKey(stage string, version int, parts ...[]byte) string {
	d := xxhash.New()
	var n [8]byte
	write := func(p []byte) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = d.Write(n[:])
		_, _ = d.Write(p)
	}
	write([]byte(stage))
	for _, p := range parts {
		write(p)
	}
	return fmt.Sprintf("%s/v%d/%016x", stage, version, d.Sum64())
}

// Open creates the store for driver. path is only used by the SQLite driver.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(ctx, opts...), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
