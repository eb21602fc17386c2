package engine

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/actorfs/actorfs/pkg/actor"
	"github.com/actorfs/actorfs/pkg/store"
)

var testDBCounter int64

// newTestEngine opens a fresh in-memory SQLite store, unique per call so
// parallel tests never share schema state, and builds an Engine over it
// with a fixed clock for deterministic timestamp assertions.
func newTestEngine(t *testing.T, chunkSize int64) *Engine {
	t.Helper()
	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)

	st, err := store.Open(dsn, nil)
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	t.Cleanup(func() { st.Close() })

	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, err := New(Config{
		Actor:     actor.NewStatic(fmt.Sprintf("test-%d", n), st),
		ChunkSize: chunkSize,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new engine: %s", err)
	}
	return eng
}
