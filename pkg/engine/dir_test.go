package engine

import (
	"reflect"
	"testing"
)

func TestListDirOrderingAndDotEntries(t *testing.T) {
	e := newTestEngine(t, 8)

	for _, name := range []string{"zeta", "alpha", "mike"} {
		if err := e.Create("/"+name, CreateOptions{}); err != nil {
			t.Fatalf("create %s: %s", name, err)
		}
	}

	got, err := e.ListDir("/", ListDirOptions{})
	if err != nil {
		t.Fatalf("listdir: %s", err)
	}
	want := []string{".", "..", "alpha", "mike", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("listdir = %v, want %v", got, want)
	}
}

func TestListDirRecursiveWalksDescendants(t *testing.T) {
	e := newTestEngine(t, 8)

	if err := e.Mkdir("/a/b", MkdirOptions{Recursive: true}); err != nil {
		t.Fatalf("mkdir: %s", err)
	}
	if err := e.Create("/a/f1", CreateOptions{}); err != nil {
		t.Fatalf("create f1: %s", err)
	}
	if err := e.Create("/a/b/f2", CreateOptions{}); err != nil {
		t.Fatalf("create f2: %s", err)
	}

	got, err := e.ListDir("/a", ListDirOptions{Recursive: true})
	if err != nil {
		t.Fatalf("listdir recursive: %s", err)
	}

	want := []string{".", "..", "b", "b/f2", "f1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("listdir recursive = %v, want %v", got, want)
	}
}

func TestListDirOnFileFails(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if _, err := e.ListDir("/f", ListDirOptions{}); !Is(err, ENOTDIR) {
		t.Fatalf("listdir on file err = %v, want ENOTDIR", err)
	}
}

func TestResolveThroughFileComponentFails(t *testing.T) {
	e := newTestEngine(t, 8)
	if err := e.Create("/f", CreateOptions{}); err != nil {
		t.Fatalf("create: %s", err)
	}
	if err := e.Create("/f/child", CreateOptions{}); !Is(err, ENOTDIR) {
		t.Fatalf("create through file err = %v, want ENOTDIR", err)
	}
}
