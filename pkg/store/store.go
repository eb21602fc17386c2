// Package store is a thin trait over the embedded SQL engine. It
// exposes parameterized exec, row iteration, and single-row fetch, and
// nothing else — schema design and query shape live above this layer,
// in pkg/schema and pkg/engine.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"xorm.io/xorm"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a *xorm.Engine session for one filesystem instance. It is
// safe to share across goroutines only insofar as the host's
// single-writer guarantee (§5) serializes calls; the Store itself does
// no locking of its own.
type Store struct {
	id     string
	driver string
	dsn    string
	engine *xorm.Engine
	log    *logrus.Entry
}

// Open dispatches a store URI to the matching database/sql driver by
// scheme. Supported schemes: "sqlite"/"sqlite3" (default when no scheme
// is present), "mysql", "postgres"/"postgresql".
func Open(uri string, log *logrus.Entry) (*Store, error) {
	driver, dsn := splitURI(uri)
	engine, err := xorm.NewEngine(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", driver)
	}
	if err := engine.Ping(); err != nil {
		engine.Close()
		return nil, errors.Wrapf(err, "ping %s store", driver)
	}
	// An embedded single-writer store never benefits from a pool; one
	// connection also makes SQLite's own locking a non-issue.
	engine.SetMaxOpenConns(1)

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	id := uuid.NewString()
	return &Store{
		id:     id,
		driver: driver,
		dsn:    dsn,
		engine: engine,
		log:    log.WithField("store", id),
	}, nil
}

func splitURI(uri string) (driver, dsn string) {
	if !strings.Contains(uri, "://") {
		return "sqlite3", uri
	}
	p := strings.Index(uri, "://")
	scheme, rest := uri[:p], uri[p+3:]
	switch scheme {
	case "sqlite", "sqlite3":
		return "sqlite3", rest
	case "mysql":
		return "mysql", rest
	case "postgres", "postgresql":
		return "postgres", rest
	default:
		return scheme, rest
	}
}

// Driver reports the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

// Close releases the underlying connection(s).
func (s *Store) Close() error {
	return s.engine.Close()
}

// Exec runs a parameterized, non-row-returning statement.
func (s *Store) Exec(query string, args ...interface{}) (sql.Result, error) {
	res, err := s.engine.Exec(append([]interface{}{query}, args...)...)
	if err != nil {
		return nil, errors.Wrapf(err, "exec %q", query)
	}
	return res, nil
}

// Find iterates rows matching query into dest, which must be a pointer
// to a slice of a struct carrying xorm column tags.
func (s *Store) Find(dest interface{}, query string, args ...interface{}) error {
	if err := s.engine.SQL(append([]interface{}{query}, args...)...).Find(dest); err != nil {
		return errors.Wrapf(err, "find %q", query)
	}
	return nil
}

// Get fetches a single row matching query into dest. The returned bool
// reports whether a row was found.
func (s *Store) Get(dest interface{}, query string, args ...interface{}) (bool, error) {
	ok, err := s.engine.SQL(append([]interface{}{query}, args...)...).Get(dest)
	if err != nil {
		return false, errors.Wrapf(err, "get %q", query)
	}
	return ok, nil
}

// Tx is a single logical-writer transaction scope, used by operations
// whose effects must be atomic (chunk upsert + size recompute, rename's
// destination replacement, schema bootstrap).
type Tx struct {
	session *xorm.Session
}

// Exec runs a parameterized statement inside the transaction.
func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	res, err := t.session.Exec(append([]interface{}{query}, args...)...)
	if err != nil {
		return nil, errors.Wrapf(err, "tx exec %q", query)
	}
	return res, nil
}

// Find iterates rows inside the transaction.
func (t *Tx) Find(dest interface{}, query string, args ...interface{}) error {
	if err := t.session.SQL(append([]interface{}{query}, args...)...).Find(dest); err != nil {
		return errors.Wrapf(err, "tx find %q", query)
	}
	return nil
}

// Get fetches a single row inside the transaction.
func (t *Tx) Get(dest interface{}, query string, args ...interface{}) (bool, error) {
	ok, err := t.session.SQL(append([]interface{}{query}, args...)...).Get(dest)
	if err != nil {
		return false, errors.Wrapf(err, "tx get %q", query)
	}
	return ok, nil
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on any error (including a panic, which is re-raised
// after rollback).
func (s *Store) WithTx(fn func(tx *Tx) error) (err error) {
	session := s.engine.NewSession()
	defer session.Close()

	if err := session.Begin(); err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() {
		if p := recover(); p != nil {
			session.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{session: session}); err != nil {
		if rbErr := session.Rollback(); rbErr != nil {
			return errors.Wrap(err, fmt.Sprintf("tx failed, rollback also failed: %s", rbErr))
		}
		return err
	}
	if err := session.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
