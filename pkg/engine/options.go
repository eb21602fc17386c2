package engine

// Per-call option structs replace the source's loose records of
// recognized keys (§9). Unknown keys do not exist in Go; callers simply
// leave fields at their zero value to get the defaults described in §4.

// ReadOptions configures Engine.Read. Zero value reads the whole file
// from offset 0.
type ReadOptions struct {
	Offset int64
	Length int64 // 0 means "to end of file"
	hasLen bool
}

// WithLength marks Length as explicitly set, distinguishing a real
// zero-length read from "read to end of file".
func (o ReadOptions) WithLength(n int64) ReadOptions {
	o.Length = n
	o.hasLen = true
	return o
}

// WriteOptions configures Engine.Write.
type WriteOptions struct {
	Offset int64
}

// MkdirOptions configures Engine.Mkdir (§4.4).
type MkdirOptions struct {
	Recursive bool
	Mode      *int
	Umask     int
}

// RmdirOptions configures Engine.Rmdir. Recursive is recognized per §6
// but §4.4 names no recursive-delete semantics for directories with
// children beyond ENOTEMPTY; it is accepted for interface parity with
// §6 and, when set, performs the same pre-order walk ListDir would
// report, unlinking files and recursing into subdirectories before
// removing the directory itself.
type RmdirOptions struct {
	Recursive bool
}

// ListDirOptions configures Engine.ListDir (§4.4).
type ListDirOptions struct {
	Recursive bool
}

// CreateOptions configures Engine.Create (§4.2).
type CreateOptions struct {
	Mode  *int
	Umask int
}

// SetAttrOptions configures Engine.SetAttr (§4.2); only non-nil fields
// are applied.
type SetAttrOptions struct {
	Mode *int
	Uid  *int
	Gid  *int
}

// WriteFileOptions configures Engine.WriteFile (§4.6). Encoding is
// accepted for interface parity with §6 but the engine always operates
// on raw bytes; any string payload is treated as its UTF-8 byte
// representation regardless of the declared encoding, since no
// transcoding requirement is named anywhere else.
type WriteFileOptions struct {
	Encoding string
}

// ReadFileOptions configures Engine.ReadFile (§6).
type ReadFileOptions struct {
	Encoding string
}
