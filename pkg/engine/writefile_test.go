package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWriteFileRoundTrip(t *testing.T) {
	Convey("Given a fresh engine", t, func() {
		e := newTestEngine(t, 8)

		Convey("WriteFile with a []byte payload creates and fills the file", func() {
			err := e.WriteFile("/doc.txt", []byte("hello world"), WriteFileOptions{})
			So(err, ShouldBeNil)

			got, err := e.ReadFile("/doc.txt", ReadFileOptions{})
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "hello world")
		})

		Convey("WriteFile with a string payload behaves the same as []byte", func() {
			err := e.WriteFile("/doc.txt", "plain string", WriteFileOptions{})
			So(err, ShouldBeNil)

			got, err := e.ReadFile("/doc.txt", ReadFileOptions{})
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "plain string")
		})

		Convey("WriteFile replaces an existing file's content and size", func() {
			So(e.WriteFile("/doc.txt", []byte("first version, quite long"), WriteFileOptions{}), ShouldBeNil)
			So(e.WriteFile("/doc.txt", []byte("second"), WriteFileOptions{}), ShouldBeNil)

			got, err := e.ReadFile("/doc.txt", ReadFileOptions{})
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "second")

			stat, err := e.Stat("/doc.txt")
			So(err, ShouldBeNil)
			So(stat.Size, ShouldEqual, int64(len("second")))
		})

		Convey("WriteFile with a ByteStream pulls chunks at increasing offsets", func() {
			stream := NewSliceStream([][]byte{
				[]byte("one-"),
				[]byte("two-"),
				[]byte("three"),
			})
			err := e.WriteFile("/stream.txt", stream, WriteFileOptions{})
			So(err, ShouldBeNil)

			got, err := e.ReadFile("/stream.txt", ReadFileOptions{})
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "one-two-three")
		})

		Convey("A partial read with an explicit length returns exactly that slice", func() {
			So(e.WriteFile("/r.txt", []byte("0123456789"), WriteFileOptions{}), ShouldBeNil)

			got, err := e.Read("/r.txt", ReadOptions{Offset: 3}.WithLength(4))
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "3456")
		})
	})
}

type errStream struct{ calls int }

func (s *errStream) Next() ([]byte, bool, error) {
	s.calls++
	if s.calls == 1 {
		return []byte("partial"), true, nil
	}
	return nil, false, errStreamFailure
}

var errStreamFailure = &Error{Code: "ESTREAM", Op: "streamNext", Path: "", Err: nil}

func TestWriteFileStreamErrorLeavesPartialContent(t *testing.T) {
	Convey("Given a stream that fails after its first chunk", t, func() {
		e := newTestEngine(t, 8)
		stream := &errStream{}

		Convey("WriteFile returns the stream's error but keeps what was already written", func() {
			err := e.WriteFile("/partial.txt", stream, WriteFileOptions{})
			So(err, ShouldEqual, errStreamFailure)

			got, err := e.ReadFile("/partial.txt", ReadFileOptions{})
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "partial")
		})
	})
}
