package engine

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ByteStream is a pull-based byte source with explicit end-of-stream
// (§9): Next returns the next chunk of arbitrary size, ok=false once
// exhausted. This is the one place the engine suspends (§5): between
// calls to Next, other operations on the same actor are blocked only by
// the host's single-writer guarantee, not by anything in this package.
type ByteStream interface {
	Next() (chunk []byte, ok bool, err error)
}

// SliceStream adapts a pre-chunked [][]byte into a ByteStream, useful
// for tests exercising the streaming path without a real network
// source.
type SliceStream struct {
	chunks [][]byte
	pos    int
}

// NewSliceStream builds a ByteStream over the given chunks, pulled in
// order.
func NewSliceStream(chunks [][]byte) *SliceStream {
	return &SliceStream{chunks: chunks}
}

func (s *SliceStream) Next() ([]byte, bool, error) {
	if s.pos >= len(s.chunks) {
		return nil, false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, true, nil
}

// WriteFile is the batched/streaming append facade used by uploads
// (§4.6). data may be a []byte, a string, or a ByteStream.
func (e *Engine) WriteFile(path string, data interface{}, _ WriteFileOptions) error {
	defer e.timeit("writefile")()

	if err := e.Unlink(path); err != nil && !Is(err, ENOENT) {
		return err
	}

	switch v := data.(type) {
	case []byte:
		return e.createThenWrite(path, v)
	case string:
		return e.createThenWrite(path, []byte(v))
	case ByteStream:
		if err := e.Create(path, CreateOptions{}); err != nil {
			return err
		}
		return e.writeFileStream(path, v)
	default:
		return errors.Errorf("writeFile: unsupported payload type %T", data)
	}
}

// createThenWrite preflights the full payload size against the device
// quota before creating the file row. Create and the ensuing Write
// still commit as two separate transactions, but a rejected preflight
// here means Create never runs at all: a WriteFile call that ends in
// ENOSPC must leave no trace of the file behind (§8 scenario 4), and a
// preflight folded inside Write's own transaction is too late for that
// once Create has already committed an empty row.
func (e *Engine) createThenWrite(path string, data []byte) error {
	if err := e.preflightSpace(int64(len(data))); err != nil {
		return err
	}
	if err := e.Create(path, CreateOptions{}); err != nil {
		return err
	}
	return e.Write(path, data, WriteOptions{Offset: 0})
}

// writeFileStream pulls chunks until exhaustion, writing each at its
// cumulative offset. On a stream error mid-upload the partially-written
// file is left in place (§4.6 step 5); callers needing atomic
// visibility use the tempfile-then-rename idiom (§8) instead.
func (e *Engine) writeFileStream(path string, stream ByteStream) error {
	sessionID := uuid.NewString()
	log := e.log.WithField("stream_session", sessionID).WithField("path", path)

	var cumulative int64
	for {
		chunk, ok, err := stream.Next()
		if err != nil {
			log.WithError(err).Warn("writeFile stream source failed mid-upload")
			return err
		}
		if !ok {
			break
		}
		if len(chunk) == 0 {
			continue
		}
		if err := e.Write(path, chunk, WriteOptions{Offset: cumulative}); err != nil {
			return err
		}
		cumulative += int64(len(chunk))
	}
	return nil
}
