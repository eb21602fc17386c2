package engine

import "testing"

// TestTruncateGrowIsSparse checks the case where attr.size exceeds the
// sum of chunk lengths: growing a file past its current size sets the
// requested size without materializing the chunks in between, and reads
// past the written region return zero bytes.
func TestTruncateGrowIsSparse(t *testing.T) {
	e := newTestEngine(t, 8)

	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := e.Write("/f", []byte("hi"), WriteOptions{Offset: 0}); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := e.Truncate("/f", 20); err != nil {
		t.Fatalf("truncate: %s", err)
	}

	stat, err := e.Stat("/f")
	if err != nil {
		t.Fatalf("stat: %s", err)
	}
	if stat.Size != 20 {
		t.Fatalf("size = %d, want 20", stat.Size)
	}

	got, err := e.Read("/f", ReadOptions{})
	if err != nil {
		t.Fatalf("read: %s", err)
	}
	want := append([]byte("hi"), make([]byte, 18)...)
	if string(got) != string(want) {
		t.Errorf("read = %q, want %q", got, want)
	}
}

// TestTruncateShrinkTrimsBoundaryChunk checks that shrinking deletes
// chunks past the new boundary and trims the straddling one, so that
// space_used drops exactly to the new size.
func TestTruncateShrinkTrimsBoundaryChunk(t *testing.T) {
	e := newTestEngine(t, 8)

	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := e.Write("/f", []byte("0123456789abcdef"), WriteOptions{Offset: 0}); err != nil {
		t.Fatalf("write: %s", err)
	}
	if err := e.Truncate("/f", 10); err != nil {
		t.Fatalf("truncate: %s", err)
	}

	got, err := e.Read("/f", ReadOptions{})
	if err != nil {
		t.Fatalf("read: %s", err)
	}
	if string(got) != "0123456789" {
		t.Errorf("read = %q, want %q", got, "0123456789")
	}

	stats, err := e.GetDeviceStats()
	if err != nil {
		t.Fatalf("device stats: %s", err)
	}
	if stats.SpaceUsed != 10 {
		t.Errorf("space_used = %d, want 10", stats.SpaceUsed)
	}
}

// TestWriteRejectsOverQuota checks that a write whose additional bytes
// would exceed the configured device size is rejected atomically: no
// chunk rows and no size change survive the failed attempt.
func TestWriteRejectsOverQuota(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.SetDeviceSize(4); err != nil {
		t.Fatalf("set device size: %s", err)
	}
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}

	err := e.Write("/f", []byte("too much data"), WriteOptions{Offset: 0})
	if !Is(err, ENOSPC) {
		t.Fatalf("write err = %v, want ENOSPC", err)
	}

	stat, err := e.Stat("/f")
	if err != nil {
		t.Fatalf("stat: %s", err)
	}
	if stat.Size != 0 {
		t.Errorf("size = %d, want 0 (rejected write must not partially apply)", stat.Size)
	}

	stats, err := e.GetDeviceStats()
	if err != nil {
		t.Fatalf("device stats: %s", err)
	}
	if stats.SpaceUsed != 0 {
		t.Errorf("space_used = %d, want 0", stats.SpaceUsed)
	}
}

// TestWriteFileRejectsOverQuotaLeavesNoFile checks the composite
// WriteFile path specifically: a []byte payload that would exceed the
// device quota must not leave an empty file behind, since WriteFile's
// own Create step runs in a separate transaction from the Write that
// would normally catch ENOSPC.
func TestWriteFileRejectsOverQuotaLeavesNoFile(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.SetDeviceSize(10); err != nil {
		t.Fatalf("set device size: %s", err)
	}

	err := e.WriteFile("/big", []byte("eleven byte"), WriteFileOptions{})
	if !Is(err, ENOSPC) {
		t.Fatalf("writefile err = %v, want ENOSPC", err)
	}

	if _, err := e.Stat("/big"); !Is(err, ENOENT) {
		t.Fatalf("stat /big err = %v, want ENOENT (rejected writefile must not create the file)", err)
	}

	stats, err := e.GetDeviceStats()
	if err != nil {
		t.Fatalf("device stats: %s", err)
	}
	if stats.SpaceUsed != 0 {
		t.Errorf("space_used = %d, want 0", stats.SpaceUsed)
	}
}

// TestRenameReplacesDestinationAtomically checks that renaming onto an
// existing file atomically replaces it and reclaims its chunks, and
// that renaming onto a non-empty directory fails ENOTEMPTY without
// touching either side.
func TestRenameReplacesDestinationAtomically(t *testing.T) {
	e := newTestEngine(t, 8)

	for _, p := range []string{"/a", "/b"} {
		if err := e.Create(p, CreateOptions{}); err != nil {
			t.Fatalf("create %s: %s", p, err)
		}
	}
	if err := e.Write("/a", []byte("new"), WriteOptions{Offset: 0}); err != nil {
		t.Fatalf("write a: %s", err)
	}
	if err := e.Write("/b", []byte("old-content"), WriteOptions{Offset: 0}); err != nil {
		t.Fatalf("write b: %s", err)
	}

	if err := e.Rename("/a", "/b"); err != nil {
		t.Fatalf("rename: %s", err)
	}

	if _, err := e.Stat("/a"); !Is(err, ENOENT) {
		t.Fatalf("stat /a err = %v, want ENOENT", err)
	}
	got, err := e.Read("/b", ReadOptions{})
	if err != nil {
		t.Fatalf("read /b: %s", err)
	}
	if string(got) != "new" {
		t.Errorf("/b = %q, want %q", got, "new")
	}

	if err := e.Mkdir("/d", MkdirOptions{}); err != nil {
		t.Fatalf("mkdir /d: %s", err)
	}
	if err := e.Mkdir("/d/child", MkdirOptions{}); err != nil {
		t.Fatalf("mkdir /d/child: %s", err)
	}
	if err := e.Create("/e", CreateOptions{}); err != nil {
		t.Fatalf("create /e: %s", err)
	}
	if err := e.Rename("/e", "/d"); !Is(err, ENOTEMPTY) {
		t.Fatalf("rename onto non-empty dir err = %v, want ENOTEMPTY", err)
	}
}

// TestMkdirRecursiveIdempotent checks that Mkdir with Recursive set
// tolerates pre-existing intermediate directories, including the leaf,
// and still rejects a path blocked by a non-directory component.
func TestMkdirRecursiveIdempotent(t *testing.T) {
	e := newTestEngine(t, 8)

	if err := e.Mkdir("/a/b/c", MkdirOptions{Recursive: true}); err != nil {
		t.Fatalf("mkdir -p: %s", err)
	}
	if err := e.Mkdir("/a/b/c", MkdirOptions{Recursive: true}); err != nil {
		t.Fatalf("mkdir -p idempotent: %s", err)
	}
	if _, err := e.Stat("/a/b/c"); err != nil {
		t.Fatalf("stat: %s", err)
	}

	if err := e.Create("/a/file", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := e.Mkdir("/a/file/blocked", MkdirOptions{Recursive: true}); !Is(err, ENOTDIR) {
		t.Fatalf("mkdir -p through file err = %v, want ENOTDIR", err)
	}
}

// TestRmdirRecursiveReclaimsSpace checks that a recursive rmdir unlinks
// every descendant file (reclaiming its chunks) before removing the
// directory tree itself.
func TestRmdirRecursiveReclaimsSpace(t *testing.T) {
	e := newTestEngine(t, 8)

	if err := e.Mkdir("/d", MkdirOptions{}); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := e.Mkdir("/d/sub", MkdirOptions{}); err != nil {
		t.Fatalf("mkdir sub: %s", err)
	}
	if err := e.Create("/d/f1", CreateOptions{}); err != nil {
		t.Fatalf("create f1: %s", err)
	}
	if err := e.Write("/d/f1", []byte("payload"), WriteOptions{Offset: 0}); err != nil {
		t.Fatalf("write f1: %s", err)
	}
	if err := e.Create("/d/sub/f2", CreateOptions{}); err != nil {
		t.Fatalf("create f2: %s", err)
	}

	if err := e.Rmdir("/d", RmdirOptions{}); !Is(err, ENOTEMPTY) {
		t.Fatalf("non-recursive rmdir err = %v, want ENOTEMPTY", err)
	}

	if err := e.Rmdir("/d", RmdirOptions{Recursive: true}); err != nil {
		t.Fatalf("recursive rmdir: %s", err)
	}
	if _, err := e.Stat("/d"); !Is(err, ENOENT) {
		t.Fatalf("stat /d err = %v, want ENOENT", err)
	}

	stats, err := e.GetDeviceStats()
	if err != nil {
		t.Fatalf("device stats: %s", err)
	}
	if stats.SpaceUsed != 0 {
		t.Errorf("space_used = %d, want 0 after recursive rmdir", stats.SpaceUsed)
	}
}

// TestUnlinkRejectsDirectory and TestReadlinkRejectsNonSymlink check
// the kind-mismatch error codes spec.md §7 calls out by name.
func TestUnlinkRejectsDirectory(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Mkdir("/d", MkdirOptions{}); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := e.Unlink("/d"); !Is(err, EISDIR) {
		t.Fatalf("unlink dir err = %v, want EISDIR", err)
	}
}

func TestReadlinkRejectsNonSymlink(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if _, err := e.Readlink("/f"); !Is(err, ENOENT) {
		t.Fatalf("readlink non-symlink err = %v, want ENOENT", err)
	}

	if err := e.Symlink("/f", "/link"); err != nil {
		t.Fatalf("symlink: %s", err)
	}
	target, err := e.Readlink("/link")
	if err != nil {
		t.Fatalf("readlink: %s", err)
	}
	if target != "/f" {
		t.Errorf("target = %q, want %q", target, "/f")
	}
}

// TestCreateRejectsDuplicate and TestSetAttrAppliesOnlyGivenFields round
// out the create/attr surface.
func TestCreateRejectsDuplicate(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := e.Create("/f", CreateOptions{}); !Is(err, EEXIST) {
		t.Fatalf("duplicate create err = %v, want EEXIST", err)
	}
}

func TestSetAttrAppliesOnlyGivenFields(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	before, err := e.Stat("/f")
	if err != nil {
		t.Fatalf("stat: %s", err)
	}

	uid := 42
	if err := e.SetAttr("/f", SetAttrOptions{Uid: &uid}); err != nil {
		t.Fatalf("setattr: %s", err)
	}
	after, err := e.Stat("/f")
	if err != nil {
		t.Fatalf("stat: %s", err)
	}
	if after.Uid != 42 {
		t.Errorf("uid = %d, want 42", after.Uid)
	}
	if after.Mode != before.Mode || after.Gid != before.Gid {
		t.Errorf("unrequested fields changed: before=%+v after=%+v", before, after)
	}
}
