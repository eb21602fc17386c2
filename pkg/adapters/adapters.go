// Package adapters names the boundary §1 calls out as external
// collaborators: the HTTP/WebSocket wire adapter and the FUSE client
// adapter. Neither is implemented here — this package exists purely so
// such an adapter (a separate module, layered on top of, never
// underneath, this one) has a stable Go interface to depend on instead
// of reaching into pkg/engine directly.
package adapters

import "github.com/actorfs/actorfs/pkg/engine"

// EngineAPI mirrors §6's in-process engine surface verbatim.
// An HTTP handler mapping POST /upload, GET /ls, GET /file, POST /rm,
// POST /mkdir, POST /rmdir, POST /mv, POST /symlink, GET /stat, GET /df
// (§6) onto these methods, or a WebSocket frame router dispatching
// {id, operation, path, ...} requests onto them, or a FUSE
// RawFileSystem shim translating kernel callbacks onto them, are each a
// separate concern this module does not build.
type EngineAPI interface {
	ReadFile(path string, opts engine.ReadFileOptions) ([]byte, error)
	WriteFile(path string, data interface{}, opts engine.WriteFileOptions) error
	Read(path string, opts engine.ReadOptions) ([]byte, error)
	Write(path string, data []byte, opts engine.WriteOptions) error
	Mkdir(path string, opts engine.MkdirOptions) error
	Rmdir(path string, opts engine.RmdirOptions) error
	ListDir(path string, opts engine.ListDirOptions) ([]string, error)
	Stat(path string) (engine.Stat, error)
	SetAttr(path string, opts engine.SetAttrOptions) error
	Symlink(target, path string) error
	Readlink(path string) (string, error)
	Rename(oldPath, newPath string) error
	Unlink(path string) error
	Create(path string, opts engine.CreateOptions) error
	Truncate(path string, size int64) error
	GetDeviceStats() (engine.DeviceStats, error)
	SetDeviceSize(newSize int64) error
}

var _ EngineAPI = (*engine.Engine)(nil)
