package perw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader is a bounds-checked view over an io.ReaderAt of known length.
// Every read is range-checked against the declared size before the
// underlying source is touched, and the cursor only moves on success.
type Reader struct {
	src  io.ReaderAt
	size int64
	pos  int64
}

func NewReader(src io.ReaderAt, size int64) *Reader {
	if size < 0 {
		size = 0
	}
	return &Reader{src: src, size: size}
}

func (r *Reader) Size() int64 { return r.size }

func (r *Reader) Pos() int64 { return r.pos }

// Remaining returns how many bytes lie between off and the end of the source.
func (r *Reader) Remaining(off int64) int64 {
	if off < 0 || off >= r.size {
		return 0
	}
	return r.size - off
}

func (r *Reader) check(off int64, n int) error {
	if off < 0 || n < 0 || off > r.size || int64(n) > r.size-off {
		return &BoundsError{Offset: off, Length: n, Size: r.size}
	}
	return nil
}

// ReadAt returns a copy of n bytes starting at off.
func (r *Reader) ReadAt(off int64, n int) ([]byte, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if err := r.fill(off, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills buf from off, so callers can reuse one buffer across reads.
func (r *Reader) ReadInto(off int64, buf []byte) error {
	if err := r.check(off, len(buf)); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	return r.fill(off, buf)
}

func (r *Reader) fill(off int64, buf []byte) error {
	read, err := r.src.ReadAt(buf, off)
	if read == len(buf) {
		// io.ReaderAt may return io.EOF alongside a full read at the end.
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), off, err)
}

// Seek moves the cursor to off. Offsets past the end are rejected.
func (r *Reader) Seek(off int64) error {
	if err := r.check(off, 0); err != nil {
		return err
	}
	r.pos = off
	return nil
}

// Read reads n bytes at the cursor and advances it.
func (r *Reader) Read(n int) ([]byte, error) {
	b, err := r.ReadAt(r.pos, n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return b, nil
}

func (r *Reader) Uint16At(off int64) (uint16, error) {
	b, err := r.ReadAt(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32At(off int64) (uint32, error) {
	b, err := r.ReadAt(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64At(off int64) (uint64, error) {
	b, err := r.ReadAt(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
