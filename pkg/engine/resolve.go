package engine

import (
	"database/sql"
	"strings"

	"github.com/actorfs/actorfs/pkg/schema"
)

// fileRow mirrors the files relation (§3). Parent is nullable only for
// the root.
type fileRow struct {
	Ino    int64         `xorm:"ino"`
	Name   string        `xorm:"name"`
	Parent sql.NullInt64 `xorm:"parent"`
	IsDir  int           `xorm:"is_dir"`
	Attr   string        `xorm:"attr"`
	Data   []byte        `xorm:"data"`
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// lookupChild does the (parent, name) unique-index lookup (§3's
// required index). It reports ENOTDIR if parent is not a directory,
// since no entry can be legally looked up under a non-directory.
func (e *Engine) lookupChild(parent int64, name string) (fileRow, error) {
	var parentRow fileRow
	found, err := e.st.Get(&parentRow, "SELECT * FROM files WHERE ino = ?", parent)
	if err != nil {
		return fileRow{}, err
	}
	if !found {
		return fileRow{}, newErr(ENOENT, "lookup", name, nil)
	}
	if parentRow.IsDir == 0 {
		return fileRow{}, newErr(ENOTDIR, "lookup", name, nil)
	}

	var row fileRow
	found, err = e.st.Get(&row, "SELECT * FROM files WHERE parent = ? AND name = ?", parent, name)
	if err != nil {
		return fileRow{}, err
	}
	if !found {
		return fileRow{}, newErr(ENOENT, "lookup", name, nil)
	}
	return row, nil
}

// resolve walks path from root to an inode (§4.1). An empty path or "/"
// returns the root.
func (e *Engine) resolve(path string) (fileRow, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return e.getFileRow(schema.RootIno)
	}

	cur := int64(schema.RootIno)
	var row fileRow
	for i, seg := range segments {
		r, err := e.lookupChild(cur, seg)
		if err != nil {
			return fileRow{}, err
		}
		row = r
		if i != len(segments)-1 && row.IsDir == 0 {
			return fileRow{}, newErr(ENOTDIR, "resolve", path, nil)
		}
		cur = row.Ino
	}
	return row, nil
}

// resolveIno is a convenience wrapper returning just the inode number.
func (e *Engine) resolveIno(path string) (int64, error) {
	row, err := e.resolve(path)
	if err != nil {
		return 0, err
	}
	return row.Ino, nil
}

// splitLeaf walks all but the last segment of path, returning the
// parent inode and the leaf name (§4.1). emptyCode selects the
// POSIX code for an empty path: ENOENT for rename, EEXIST for
// create/mkdir/symlink.
func (e *Engine) splitLeaf(path string, emptyCode Code) (parent int64, leaf string, err error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, "", newErr(emptyCode, "splitLeaf", path, nil)
	}

	cur := int64(schema.RootIno)
	for _, seg := range segments[:len(segments)-1] {
		row, err := e.lookupChild(cur, seg)
		if err != nil {
			return 0, "", err
		}
		if row.IsDir == 0 {
			return 0, "", newErr(ENOTDIR, "splitLeaf", path, nil)
		}
		cur = row.Ino
	}
	return cur, segments[len(segments)-1], nil
}

func (e *Engine) getFileRow(ino int64) (fileRow, error) {
	var row fileRow
	found, err := e.st.Get(&row, "SELECT * FROM files WHERE ino = ?", ino)
	if err != nil {
		return fileRow{}, err
	}
	if !found {
		return fileRow{}, newErr(ENOENT, "getFileRow", "", nil)
	}
	return row, nil
}
