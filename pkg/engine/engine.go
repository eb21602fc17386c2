// Package engine is the storage engine: the inode/chunk schema, the
// path resolver, the byte-addressable read/write/truncate pipeline,
// the directory model, device accounting, and the streaming writer.
// Every operation in §6 is an exported method; Metrics and ChunkSize
// are the only exported methods beyond that surface.
//
// An Engine value is constructed once per actor instance (§9) and holds
// no process-wide state; two Engines over two different actors never
// share a logger, metrics registry, or mutex.
package engine

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/actorfs/actorfs/pkg/actor"
	"github.com/actorfs/actorfs/pkg/metrics"
	"github.com/actorfs/actorfs/pkg/schema"
	"github.com/actorfs/actorfs/pkg/store"
	"github.com/actorfs/actorfs/pkg/utils"
)

// DefaultChunkSize is the per-instance surface default (§4.3); the
// general documented default for other deployments is 64 KiB, also
// supported via Config.ChunkSize.
const DefaultChunkSize int64 = 4 << 10

// Config configures a new Engine. Zero-value fields take the documented
// defaults from §4.
type Config struct {
	// Actor is the host-provided handle this engine instance is
	// scoped to. Required.
	Actor actor.Actor

	// ChunkSize is the fixed block granularity (§4.3). Zero means
	// DefaultChunkSize. Immutable for the lifetime of the underlying
	// store once any chunk has been written (§6); the Schema Manager
	// enforces this by recording it in meta on first bootstrap.
	ChunkSize int64

	// DeviceSize seeds meta.device_size on first bootstrap only; it
	// has no effect on an already-initialized store (use
	// Engine.SetDeviceSize instead). Zero means schema.DefaultDeviceSize.
	DeviceSize int64

	// Now, if set, overrides time.Now for attribute timestamps. Tests
	// use this to get deterministic scenarios; production leaves it
	// nil.
	Now func() time.Time

	// Logger receives per-operation diagnostics. Nil gets a fresh,
	// unregistered logger scoped to this actor's ID (see
	// pkg/utils.NewScoped) rather than the shared package-global
	// logger: two Engines over two different actors must not share
	// logger state just because neither was given one explicitly.
	Logger *logrus.Entry
}

// Engine is the storage engine for one filesystem instance.
type Engine struct {
	st        *store.Store
	chunkSize int64
	log       *logrus.Entry
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New constructs an Engine over cfg.Actor's store, running the Schema
// Manager's idempotent bootstrap (§4.7) before returning.
func New(cfg Config) (*Engine, error) {
	if cfg.Actor == nil {
		return nil, errors.New("engine: Config.Actor is required")
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = utils.NewScoped("engine", cfg.Actor.ID())
	} else {
		log = log.WithField("actor", cfg.Actor.ID())
	}

	st := cfg.Actor.Store()

	rootAttr := newDirAttr(schema.RootIno, nil, 0, now())
	rootAttr.Nlink = 2
	rootJSON, err := marshalAttr(rootAttr)
	if err != nil {
		return nil, errors.Wrap(err, "engine: marshal root attr")
	}

	if err := schema.Bootstrap(st, chunkSize, cfg.DeviceSize, rootJSON); err != nil {
		return nil, errors.Wrap(err, "engine: bootstrap schema")
	}

	e := &Engine{
		st:        st,
		chunkSize: chunkSize,
		log:       log,
		metrics:   metrics.New(cfg.Actor.ID()),
		now:       now,
	}

	spaceUsed, deviceSize, err := e.loadDeviceMeta()
	if err != nil {
		return nil, errors.Wrap(err, "engine: load device meta")
	}
	e.metrics.SetDeviceStats(spaceUsed, deviceSize)

	return e, nil
}

// Metrics exposes the engine's prometheus registry for a host to scrape.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// ChunkSize reports the immutable per-instance chunk granularity.
func (e *Engine) ChunkSize() int64 { return e.chunkSize }

func (e *Engine) timeit(op string) func() {
	start := e.now()
	return func() { e.metrics.Timeit(op, start) }
}
