package engine

import (
	"encoding/json"
	"time"
)

// Kind discriminates the three node kinds §3 names inside the
// attr record's `kind` field.
type Kind string

const (
	KindDirectory Kind = "Directory"
	KindFile      Kind = "File"
	KindSymlink   Kind = "Symlink"
)

// Attr is the attribute record serialized into files.attr (§3). Field
// names follow the documented list verbatim so the JSON on disk is
// self-describing for anyone inspecting the store directly.
type Attr struct {
	Ino     int64 `json:"ino"`
	Size    int64 `json:"size"`
	Blocks  int64 `json:"blocks"`
	Atime   int64 `json:"atime"`
	Mtime   int64 `json:"mtime"`
	Ctime   int64 `json:"ctime"`
	Crtime  int64 `json:"crtime"`
	Kind    Kind  `json:"kind"`
	Perm    int   `json:"perm"`
	Nlink   int   `json:"nlink"`
	Uid     int   `json:"uid"`
	Gid     int   `json:"gid"`
	Rdev    int   `json:"rdev"`
	Flags   int   `json:"flags"`
	Blksize int   `json:"blksize"`
}

const blockSize = 512

func blocksFor(size int64) int64 {
	return (size + blockSize - 1) / blockSize
}

func marshalAttr(a Attr) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalAttr(s string) (Attr, error) {
	var a Attr
	err := json.Unmarshal([]byte(s), &a)
	return a, err
}

// newFileAttr builds the initial attribute record for a regular file
// created via create/write's auto-create path (§4.2).
func newFileAttr(ino int64, mode *int, umask int, now time.Time) Attr {
	perm := 0o644
	if mode != nil {
		perm = *mode
	}
	perm = perm &^ umask & 0o7777
	ts := now.UnixNano()
	return Attr{
		Ino:     ino,
		Size:    0,
		Blocks:  0,
		Atime:   ts,
		Mtime:   ts,
		Ctime:   ts,
		Crtime:  ts,
		Kind:    KindFile,
		Perm:    perm,
		Nlink:   1,
		Blksize: blockSize,
	}
}

// newDirAttr builds the initial attribute record for a directory (§4.2).
func newDirAttr(ino int64, mode *int, umask int, now time.Time) Attr {
	perm := 0o755
	if mode != nil {
		perm = *mode
	}
	perm = perm &^ umask & 0o7777
	ts := now.UnixNano()
	return Attr{
		Ino:     ino,
		Size:    0,
		Atime:   ts,
		Mtime:   ts,
		Ctime:   ts,
		Crtime:  ts,
		Kind:    KindDirectory,
		Perm:    perm,
		Nlink:   2,
		Blksize: blockSize,
	}
}

// newSymlinkAttr builds the initial attribute record for a symlink
// (§4.2); size is the byte-length of the target.
func newSymlinkAttr(ino int64, targetLen int, now time.Time) Attr {
	ts := now.UnixNano()
	return Attr{
		Ino:     ino,
		Size:    int64(targetLen),
		Blocks:  blocksFor(int64(targetLen)),
		Atime:   ts,
		Mtime:   ts,
		Ctime:   ts,
		Crtime:  ts,
		Kind:    KindSymlink,
		Perm:    0o777,
		Nlink:   1,
		Blksize: blockSize,
	}
}

// Stat is the public, read-only view returned by Engine.Stat (§6).
type Stat struct {
	IsFile      bool
	IsDirectory bool
	Size        int64
	Mode        int
	Uid         int
	Gid         int
	Mtime       time.Time
	Ctime       time.Time
	Atime       time.Time
	Crtime      time.Time
	Blocks      int64
	Nlink       int
	Rdev        int
	Flags       int
	Blksize     int
	Kind        Kind
}

func attrToStat(a Attr) Stat {
	return Stat{
		IsFile:      a.Kind == KindFile,
		IsDirectory: a.Kind == KindDirectory,
		Size:        a.Size,
		Mode:        a.Perm,
		Uid:         a.Uid,
		Gid:         a.Gid,
		Mtime:       time.Unix(0, a.Mtime),
		Ctime:       time.Unix(0, a.Ctime),
		Atime:       time.Unix(0, a.Atime),
		Crtime:      time.Unix(0, a.Crtime),
		Blocks:      a.Blocks,
		Nlink:       a.Nlink,
		Rdev:        a.Rdev,
		Flags:       a.Flags,
		Blksize:     a.Blksize,
		Kind:        a.Kind,
	}
}
