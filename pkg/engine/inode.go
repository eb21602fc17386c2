package engine

import (
	"github.com/actorfs/actorfs/pkg/store"
)

// allocIno returns max(ino)+1, or 2 if only the root exists (§4.2).
// Inodes are never reused within an instance's lifetime, which is safe
// under the single-writer model the host actor guarantees.
func (e *Engine) allocIno() (int64, error) {
	var maxIno int64
	found, err := e.st.Get(&maxIno, "SELECT MAX(ino) FROM files")
	if err != nil {
		return 0, err
	}
	if !found || maxIno < 1 {
		return 2, nil
	}
	return maxIno + 1, nil
}

func (e *Engine) getAttr(ino int64) (Attr, error) {
	row, err := e.getFileRow(ino)
	if err != nil {
		return Attr{}, err
	}
	return unmarshalAttr(row.Attr)
}

func (e *Engine) putAttr(ino int64, a Attr) error {
	_, err := e.st.Exec("UPDATE files SET attr = ? WHERE ino = ?", mustMarshalAttr(a), ino)
	return err
}

func (e *Engine) putAttrTx(tx *store.Tx, ino int64, a Attr) error {
	_, err := tx.Exec("UPDATE files SET attr = ? WHERE ino = ?", mustMarshalAttr(a), ino)
	return err
}

func mustMarshalAttr(a Attr) string {
	s, err := marshalAttr(a)
	if err != nil {
		// Attr is a plain struct of scalars; marshaling cannot fail.
		panic(err)
	}
	return s
}

// Stat returns the attribute view for path (§6).
func (e *Engine) Stat(path string) (Stat, error) {
	defer e.timeit("stat")()
	row, err := e.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	a, err := unmarshalAttr(row.Attr)
	if err != nil {
		return Stat{}, err
	}
	return attrToStat(a), nil
}

// SetAttr updates only the provided fields (§4.2).
func (e *Engine) SetAttr(path string, opts SetAttrOptions) error {
	defer e.timeit("setattr")()
	row, err := e.resolve(path)
	if err != nil {
		return err
	}
	a, err := unmarshalAttr(row.Attr)
	if err != nil {
		return err
	}
	if opts.Mode != nil {
		a.Perm = *opts.Mode & 0o7777
	}
	if opts.Uid != nil {
		a.Uid = *opts.Uid
	}
	if opts.Gid != nil {
		a.Gid = *opts.Gid
	}
	a.Ctime = e.now().UnixNano()
	return e.putAttr(row.Ino, a)
}
