package engine

import (
	"strings"

	"github.com/actorfs/actorfs/pkg/schema"
	"github.com/actorfs/actorfs/pkg/store"
)

func joinPath(base, name string) string {
	if base == "" || base == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

func allocInoTx(tx *store.Tx) (int64, error) {
	var maxIno int64
	found, err := tx.Get(&maxIno, "SELECT MAX(ino) FROM files")
	if err != nil {
		return 0, err
	}
	if !found || maxIno < 1 {
		return 2, nil
	}
	return maxIno + 1, nil
}

// create is the shared implementation behind Create, Mkdir, Symlink and
// write's auto-create path (§4.2, §4.3, §4.4).
func (e *Engine) create(path string, opts CreateOptions, kind Kind) error {
	parent, leaf, err := e.splitLeaf(path, EEXIST)
	if err != nil {
		return err
	}
	now := e.now()

	return e.st.WithTx(func(tx *store.Tx) error {
		var existing int64
		found, err := tx.Get(&existing, "SELECT ino FROM files WHERE parent = ? AND name = ?", parent, leaf)
		if err != nil {
			return err
		}
		if found {
			return newErr(EEXIST, "create", path, nil)
		}

		ino, err := allocInoTx(tx)
		if err != nil {
			return err
		}

		var attr Attr
		isDir := 0
		switch kind {
		case KindDirectory:
			attr = newDirAttr(ino, opts.Mode, opts.Umask, now)
			isDir = 1
		default:
			attr = newFileAttr(ino, opts.Mode, opts.Umask, now)
		}
		attrJSON, err := marshalAttr(attr)
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			"INSERT INTO files (ino, name, parent, is_dir, attr, data) VALUES (?, ?, ?, ?, ?, NULL)",
			ino, leaf, parent, isDir, attrJSON,
		)
		return err
	})
}

// Create creates an empty regular file (§6).
func (e *Engine) Create(path string, opts CreateOptions) error {
	defer e.timeit("create")()
	return e.create(path, opts, KindFile)
}

// Mkdir creates a directory, optionally creating missing intermediates
// (§4.4).
func (e *Engine) Mkdir(path string, opts MkdirOptions) error {
	defer e.timeit("mkdir")()

	if !opts.Recursive {
		return e.create(path, CreateOptions{Mode: opts.Mode, Umask: opts.Umask}, KindDirectory)
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return newErr(EEXIST, "mkdir", path, nil)
	}

	cur := int64(schema.RootIno)
	curPath := ""
	for _, seg := range segments {
		curPath = joinPath(curPath, seg)
		row, err := e.lookupChild(cur, seg)
		if err != nil {
			if !Is(err, ENOENT) {
				return err
			}
			if cerr := e.create(curPath, CreateOptions{Mode: opts.Mode, Umask: opts.Umask}, KindDirectory); cerr != nil {
				return cerr
			}
			row, err = e.lookupChild(cur, seg)
			if err != nil {
				return err
			}
		}
		if row.IsDir == 0 {
			return newErr(ENOTDIR, "mkdir", path, nil)
		}
		cur = row.Ino
	}
	return nil
}

// Rmdir removes an empty directory, or, with Recursive set, unlinks
// its contents first (§4.4).
func (e *Engine) Rmdir(path string, opts RmdirOptions) error {
	defer e.timeit("rmdir")()

	row, err := e.resolve(path)
	if err != nil {
		return err
	}
	if row.IsDir == 0 {
		return newErr(ENOTDIR, "rmdir", path, nil)
	}

	if opts.Recursive {
		return e.rmdirRecursive(row.Ino, path)
	}

	var count int64
	if _, err := e.st.Get(&count, "SELECT COUNT(*) FROM files WHERE parent = ?", row.Ino); err != nil {
		return err
	}
	if count > 0 {
		return newErr(ENOTEMPTY, "rmdir", path, nil)
	}

	_, err = e.st.Exec("DELETE FROM files WHERE ino = ?", row.Ino)
	return err
}

func (e *Engine) rmdirRecursive(ino int64, path string) error {
	var children []fileRow
	if err := e.st.Find(&children, "SELECT * FROM files WHERE parent = ? ORDER BY name", ino); err != nil {
		return err
	}
	for _, c := range children {
		childPath := joinPath(path, c.Name)
		if c.IsDir == 1 {
			if err := e.rmdirRecursive(c.Ino, childPath); err != nil {
				return err
			}
		} else if err := e.Unlink(childPath); err != nil {
			return err
		}
	}
	_, err := e.st.Exec("DELETE FROM files WHERE ino = ?", ino)
	return err
}

// ListDir returns child names preceded by "." and ".." (§4.4); the only
// documented ordering guarantee is that those two come first (§9).
// Remaining names are additionally sorted lexicographically. When
// Recursive is set, descendants are appended in pre-order with paths
// relative to path.
func (e *Engine) ListDir(path string, opts ListDirOptions) ([]string, error) {
	defer e.timeit("listdir")()

	row, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	if row.IsDir == 0 {
		return nil, newErr(ENOTDIR, "listDir", path, nil)
	}

	var children []fileRow
	if err := e.st.Find(&children, "SELECT * FROM files WHERE parent = ? ORDER BY name", row.Ino); err != nil {
		return nil, err
	}

	result := []string{".", ".."}
	for _, c := range children {
		result = append(result, c.Name)
		if opts.Recursive && c.IsDir == 1 {
			childPath := joinPath(path, c.Name)
			sub, err := e.ListDir(childPath, ListDirOptions{Recursive: true})
			if err != nil {
				return nil, err
			}
			for _, s := range sub {
				if s == "." || s == ".." {
					continue
				}
				result = append(result, c.Name+"/"+s)
			}
		}
	}
	return result, nil
}

// Unlink removes a file or symlink entry, reclaiming its chunks'
// bytes from space_used (§4.4). EISDIR on a directory.
func (e *Engine) Unlink(path string) error {
	defer e.timeit("unlink")()

	row, err := e.resolve(path)
	if err != nil {
		return err
	}
	if row.IsDir == 1 {
		return newErr(EISDIR, "unlink", path, nil)
	}

	return e.st.WithTx(func(tx *store.Tx) error {
		if _, err := tx.Exec("DELETE FROM files WHERE ino = ?", row.Ino); err != nil {
			return err
		}
		if err := deleteAllChunksTx(tx, row.Ino); err != nil {
			return err
		}
		spaceUsed, err := sumLengthAllTx(tx)
		if err != nil {
			return err
		}
		if err := setMetaIntTx(tx, "space_used", spaceUsed); err != nil {
			return err
		}
		deviceSize, err := getMetaIntTx(tx, "device_size")
		if err != nil {
			return err
		}
		e.metrics.SetDeviceStats(spaceUsed, deviceSize)
		return nil
	})
}

// Symlink creates a symlink entry whose data holds the raw target bytes
// (§4.4).
func (e *Engine) Symlink(target, path string) error {
	defer e.timeit("symlink")()

	parent, leaf, err := e.splitLeaf(path, EEXIST)
	if err != nil {
		return err
	}
	now := e.now()

	return e.st.WithTx(func(tx *store.Tx) error {
		var existing int64
		found, err := tx.Get(&existing, "SELECT ino FROM files WHERE parent = ? AND name = ?", parent, leaf)
		if err != nil {
			return err
		}
		if found {
			return newErr(EEXIST, "symlink", path, nil)
		}

		ino, err := allocInoTx(tx)
		if err != nil {
			return err
		}
		attr := newSymlinkAttr(ino, len(target), now)
		attrJSON, err := marshalAttr(attr)
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			"INSERT INTO files (ino, name, parent, is_dir, attr, data) VALUES (?, ?, ?, 0, ?, ?)",
			ino, leaf, parent, attrJSON, []byte(target),
		)
		return err
	})
}

// Readlink returns the decoded symlink target (§4.4). ENOENT on a
// missing path or on a path that is not a symlink (§7).
func (e *Engine) Readlink(path string) (string, error) {
	defer e.timeit("readlink")()

	row, err := e.resolve(path)
	if err != nil {
		return "", err
	}
	a, err := unmarshalAttr(row.Attr)
	if err != nil {
		return "", err
	}
	if a.Kind != KindSymlink {
		return "", newErr(ENOENT, "readlink", path, nil)
	}
	return string(row.Data), nil
}

// Rename atomically replaces the destination entry, if any (§4.4). This
// is the contract the tempfile-then-rename upload idiom (§8) relies
// on.
func (e *Engine) Rename(oldPath, newPath string) error {
	defer e.timeit("rename")()

	oldParent, oldLeaf, err := e.splitLeaf(oldPath, ENOENT)
	if err != nil {
		return err
	}
	newParent, newLeaf, err := e.splitLeaf(newPath, ENOENT)
	if err != nil {
		return err
	}

	return e.st.WithTx(func(tx *store.Tx) error {
		var srcIno int64
		found, err := tx.Get(&srcIno, "SELECT ino FROM files WHERE parent = ? AND name = ?", oldParent, oldLeaf)
		if err != nil {
			return err
		}
		if !found {
			return newErr(ENOENT, "rename", oldPath, nil)
		}

		var dst fileRow
		dstFound, err := tx.Get(&dst, "SELECT * FROM files WHERE parent = ? AND name = ?", newParent, newLeaf)
		if err != nil {
			return err
		}
		if dstFound {
			if dst.IsDir == 1 {
				var childCount int64
				if _, err := tx.Get(&childCount, "SELECT COUNT(*) FROM files WHERE parent = ?", dst.Ino); err != nil {
					return err
				}
				if childCount > 0 {
					return newErr(ENOTEMPTY, "rename", newPath, nil)
				}
			}
			if _, err := tx.Exec("DELETE FROM files WHERE ino = ?", dst.Ino); err != nil {
				return err
			}
			if err := deleteAllChunksTx(tx, dst.Ino); err != nil {
				return err
			}
		}

		if _, err := tx.Exec("UPDATE files SET parent = ?, name = ? WHERE ino = ?", newParent, newLeaf, srcIno); err != nil {
			return err
		}

		spaceUsed, err := sumLengthAllTx(tx)
		if err != nil {
			return err
		}
		if err := setMetaIntTx(tx, "space_used", spaceUsed); err != nil {
			return err
		}
		deviceSize, err := getMetaIntTx(tx, "device_size")
		if err != nil {
			return err
		}
		e.metrics.SetDeviceStats(spaceUsed, deviceSize)
		return nil
	})
}
