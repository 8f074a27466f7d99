// Package disk provides the byte-addressable device the filesystem code
// reads and patches. Images are small enough to live entirely in memory;
// persistence is the caller's job.
package disk

import (
	"fmt"
	"io"
)

// Disk is random-access storage of a fixed size.
type Disk interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

// Memory implements Disk over a byte slice.
type Memory struct {
	data []byte
}

var _ Disk = (*Memory)(nil)

// NewMemory returns a zero-filled device of size bytes.
func NewMemory(size int64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// FromBytes returns a device holding a private copy of data.
func FromBytes(data []byte) *Memory {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Memory{data: buf}
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("disk read error: offset %d length %d out of range (size %d)", off, len(p), len(m.data))
	}
	return copy(p, m.data[off:]), nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("disk write error: offset %d length %d out of range (size %d)", off, len(p), len(m.data))
	}
	return copy(m.data[off:], p), nil
}

func (m *Memory) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns a copy of the device contents.
func (m *Memory) Bytes() []byte {
	buf := make([]byte, len(m.data))
	copy(buf, m.data)
	return buf
}
