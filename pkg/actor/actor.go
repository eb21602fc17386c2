// Package actor describes the host-provided actor abstraction the
// engine is injected into. The host owns the actor lifecycle, the
// single-writer guarantee (§5), and the embedded SQL store; the
// engine only ever sees the narrow handle below.
package actor

import "github.com/actorfs/actorfs/pkg/store"

// Actor is a single-writer, stateful, per-instance host object with an
// attached persistent store. Exactly one Engine is constructed per
// Actor; the core never reaches for process-wide state, so two Actors
// in the same process are fully isolated from one another.
type Actor interface {
	// ID identifies this actor instance, e.g. for log correlation and
	// metrics labeling. Never reused across distinct filesystem trees.
	ID() string

	// Store returns the embedded SQL handle this actor owns. The
	// engine treats it as dependency-injected and never opens or
	// closes it directly.
	Store() *store.Store
}

// Static is the simplest Actor: a fixed ID wrapping an already-open
// store. Hosts with richer lifecycle management (pooling, eviction)
// implement their own Actor instead.
type Static struct {
	id string
	st *store.Store
}

// NewStatic wraps an already-opened store under the given actor id.
func NewStatic(id string, st *store.Store) *Static {
	return &Static{id: id, st: st}
}

func (s *Static) ID() string          { return s.id }
func (s *Static) Store() *store.Store { return s.st }
