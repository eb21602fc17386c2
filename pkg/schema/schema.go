// Package schema is the Schema Manager (§4.7): idempotent creation of
// the meta, files and chunks tables from §3, their indices, and first-run
// meta/root seeding. It never runs outside the single-writer scope the
// host actor guarantees (§4.7's closing requirement), since bootstrap
// itself mutates the store.
package schema

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/actorfs/actorfs/pkg/store"
)

// DefaultDeviceSize is the device quota seeded on first bootstrap
// (§3: meta.device_size, default 1 GiB).
const DefaultDeviceSize int64 = 1 << 30

// RootIno is the inode number reserved for the filesystem root (§3,
// invariant 1).
const RootIno int64 = 1

const ddl = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	ino    INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	parent INTEGER,
	is_dir INTEGER NOT NULL,
	attr   TEXT NOT NULL,
	data   BLOB
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_files_parent_name ON files(parent, name);
CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent);

CREATE TABLE IF NOT EXISTS chunks (
	ino    INTEGER NOT NULL,
	offset INTEGER NOT NULL,
	data   BLOB NOT NULL,
	length INTEGER NOT NULL,
	PRIMARY KEY (ino, offset)
);
`

// Bootstrap creates all tables/indices if absent and seeds meta and the
// root directory inode if this is a fresh store. chunkSize is recorded
// so future opens of the same store can detect an incompatible
// granularity (§6: "chunk granularity ... immutable ... implementations
// must refuse to change it after first chunk write or detect
// inconsistency").
func Bootstrap(s *store.Store, chunkSize int64, deviceSize int64, rootAttrJSON string) error {
	if deviceSize <= 0 {
		deviceSize = DefaultDeviceSize
	}
	return s.WithTx(func(tx *store.Tx) error {
		for _, stmt := range splitStatements(ddl) {
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Wrap(err, "create schema")
			}
		}

		if err := seedMetaIfAbsent(tx, "chunk_size", chunkSize); err != nil {
			return err
		}
		if err := checkChunkSize(tx, chunkSize); err != nil {
			return err
		}
		if err := seedMetaIfAbsent(tx, "device_size", deviceSize); err != nil {
			return err
		}
		if err := seedMetaIfAbsent(tx, "space_used", int64(0)); err != nil {
			return err
		}

		var existing int64
		found, err := tx.Get(&existing, "SELECT ino FROM files WHERE ino = ?", RootIno)
		if err != nil {
			return errors.Wrap(err, "check root inode")
		}
		if !found {
			if _, err := tx.Exec(
				`INSERT INTO files (ino, name, parent, is_dir, attr, data) VALUES (?, ?, NULL, 1, ?, NULL)`,
				RootIno, "/", rootAttrJSON,
			); err != nil {
				return errors.Wrap(err, "create root inode")
			}
		}
		return nil
	})
}

func seedMetaIfAbsent(tx *store.Tx, key string, value interface{}) error {
	var existing string
	found, err := tx.Get(&existing, "SELECT value FROM meta WHERE key = ?", key)
	if err != nil {
		return errors.Wrapf(err, "check meta %q", key)
	}
	if found {
		return nil
	}
	_, err = tx.Exec("INSERT INTO meta (key, value) VALUES (?, ?)", key, toText(value))
	return errors.Wrapf(err, "seed meta %q", key)
}

func checkChunkSize(tx *store.Tx, wanted int64) error {
	var existing string
	found, err := tx.Get(&existing, "SELECT value FROM meta WHERE key = ?", "chunk_size")
	if err != nil || !found {
		return err
	}
	if existing != toText(wanted) {
		return errors.Errorf("chunk_size is immutable: store was created with %s, opened with %d", existing, wanted)
	}
	return nil
}

func toText(v interface{}) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	default:
		return ""
	}
}

// splitStatements breaks the DDL block into individual statements on
// ";" so they can be issued one at a time: some drivers (sqlite3 in
// particular, via database/sql) reject a multi-statement Exec.
func splitStatements(s string) []string {
	var out []string
	for _, stmt := range strings.Split(s, ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
