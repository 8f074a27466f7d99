package bitmap

import (
	"fmt"
	"io"

	"minivsfs/internal/errs"
)

// Bitmap is one allocation bitmap block. Bit i lives in byte i/8 at
// position i%8 (LSB first). Only the first Size bits are meaningful.
type Bitmap struct {
	Data []uint8
	Size uint32
}

func NewBitmap(blockSize int, size uint32) *Bitmap {
	return &Bitmap{Data: make([]uint8, blockSize), Size: size}
}

// FromBytes wraps a copy of an on-disk bitmap block.
func FromBytes(data []byte, size uint32) (*Bitmap, error) {
	if int(size) > len(data)*8 {
		return nil, fmt.Errorf("%w: bitmap of %d bytes cannot track %d bits", errs.ErrCorruptImage, len(data), size)
	}
	buf := make([]uint8, len(data))
	copy(buf, data)
	return &Bitmap{Data: buf, Size: size}, nil
}

// SetBit marks index as allocated. Setting an already set bit is a no-op.
func (b *Bitmap) SetBit(index int) error {
	if index < 0 || index >= int(b.Size) {
		return fmt.Errorf("%w: bitmap index %d out of bounds (size %d)", errs.ErrIllegalArgument, index, b.Size)
	}
	b.Data[index/8] |= 1 << uint(index%8)
	return nil
}

func (b *Bitmap) GetBit(index int) (int, error) {
	if index < 0 || index >= int(b.Size) {
		return 0, fmt.Errorf("%w: bitmap index %d out of bounds (size %d)", errs.ErrIllegalArgument, index, b.Size)
	}
	return int((b.Data[index/8] >> uint(index%8)) & 1), nil
}

// FindFree returns the lowest clear bit below Size. The scan is
// deterministic first-fit; ok is false when every bit is set.
func (b *Bitmap) FindFree() (index int, ok bool) {
	for i := 0; i < int(b.Size); i++ {
		if b.Data[i/8]&(1<<uint(i%8)) == 0 {
			return i, true
		}
	}
	return -1, false
}

// Count returns the number of set bits below Size.
func (b *Bitmap) Count() int {
	n := 0
	for i := 0; i < int(b.Size); i++ {
		if b.Data[i/8]&(1<<uint(i%8)) != 0 {
			n++
		}
	}
	return n
}

// Stray reports the indices of bits set at or beyond Size.
func (b *Bitmap) Stray() []int {
	var out []int
	for i := int(b.Size); i < len(b.Data)*8; i++ {
		if b.Data[i/8]&(1<<uint(i%8)) != 0 {
			out = append(out, i)
		}
	}
	return out
}

func (b *Bitmap) ToByteArray() []byte {
	return b.Data
}

func (b *Bitmap) WriteAt(w io.WriterAt, offset int64) error {
	_, err := w.WriteAt(b.ToByteArray(), offset)
	return err
}
