package superblock

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/checksum"
	"minivsfs/internal/filesystem/layout"
)

const (
	Magic   = 0x4D565346
	Version = 1

	// Size is the encoded length; the rest of block 0 is zero padding.
	Size = 116

	checksumOffset = 112
	// checksumSpan is the prefix of block 0 covered by the checksum.
	checksumSpan = layout.BlockSize - 4
)

type Superblock struct {
	Magic             uint32
	Version           uint32
	BlockSize         uint32
	TotalBlocks       uint64
	InodeCount        uint64
	InodeBitmapStart  uint64
	InodeBitmapBlocks uint64
	DataBitmapStart   uint64
	DataBitmapBlocks  uint64
	InodeTableStart   uint64
	InodeTableBlocks  uint64
	DataRegionStart   uint64
	DataRegionBlocks  uint64
	RootInode         uint64
	MtimeEpoch        uint64
	Flags             uint32
	Checksum          uint32
}

func NewSuperblock(l *layout.Layout, createdAt time.Time) *Superblock {
	return &Superblock{
		Magic:             Magic,
		Version:           Version,
		BlockSize:         layout.BlockSize,
		TotalBlocks:       l.TotalBlocks,
		InodeCount:        l.InodeCount,
		InodeBitmapStart:  l.InodeBitmapStart,
		InodeBitmapBlocks: l.InodeBitmapBlocks,
		DataBitmapStart:   l.DataBitmapStart,
		DataBitmapBlocks:  l.DataBitmapBlocks,
		InodeTableStart:   l.InodeTableStart,
		InodeTableBlocks:  l.InodeTableBlocks,
		DataRegionStart:   l.DataRegionStart,
		DataRegionBlocks:  l.DataRegionBlocks,
		RootInode:         layout.RootInode,
		MtimeEpoch:        uint64(createdAt.Unix()),
	}
}

// Layout returns the geometry the superblock declares.
func (s *Superblock) Layout() *layout.Layout {
	return &layout.Layout{
		TotalBlocks:       s.TotalBlocks,
		InodeCount:        s.InodeCount,
		InodeBitmapStart:  s.InodeBitmapStart,
		InodeBitmapBlocks: s.InodeBitmapBlocks,
		DataBitmapStart:   s.DataBitmapStart,
		DataBitmapBlocks:  s.DataBitmapBlocks,
		InodeTableStart:   s.InodeTableStart,
		InodeTableBlocks:  s.InodeTableBlocks,
		DataRegionStart:   s.DataRegionStart,
		DataRegionBlocks:  s.DataRegionBlocks,
	}
}

// EncodeBlock serializes the superblock into a full zero-padded block and
// finalizes the checksum. Call it only after every other field is set.
func (s *Superblock) EncodeBlock() []byte {
	block := make([]byte, layout.BlockSize)
	s.Checksum = 0
	s.encode(block)
	s.Checksum = ComputeChecksum(block)
	binary.LittleEndian.PutUint32(block[checksumOffset:], s.Checksum)
	return block
}

func (s *Superblock) encode(data []byte) {
	le := binary.LittleEndian
	le.PutUint32(data[0:4], s.Magic)
	le.PutUint32(data[4:8], s.Version)
	le.PutUint32(data[8:12], s.BlockSize)
	le.PutUint64(data[12:20], s.TotalBlocks)
	le.PutUint64(data[20:28], s.InodeCount)
	le.PutUint64(data[28:36], s.InodeBitmapStart)
	le.PutUint64(data[36:44], s.InodeBitmapBlocks)
	le.PutUint64(data[44:52], s.DataBitmapStart)
	le.PutUint64(data[52:60], s.DataBitmapBlocks)
	le.PutUint64(data[60:68], s.InodeTableStart)
	le.PutUint64(data[68:76], s.InodeTableBlocks)
	le.PutUint64(data[76:84], s.DataRegionStart)
	le.PutUint64(data[84:92], s.DataRegionBlocks)
	le.PutUint64(data[92:100], s.RootInode)
	le.PutUint64(data[100:108], s.MtimeEpoch)
	le.PutUint32(data[108:112], s.Flags)
	le.PutUint32(data[112:116], s.Checksum)
}

func decode(data []byte) *Superblock {
	le := binary.LittleEndian
	return &Superblock{
		Magic:             le.Uint32(data[0:4]),
		Version:           le.Uint32(data[4:8]),
		BlockSize:         le.Uint32(data[8:12]),
		TotalBlocks:       le.Uint64(data[12:20]),
		InodeCount:        le.Uint64(data[20:28]),
		InodeBitmapStart:  le.Uint64(data[28:36]),
		InodeBitmapBlocks: le.Uint64(data[36:44]),
		DataBitmapStart:   le.Uint64(data[44:52]),
		DataBitmapBlocks:  le.Uint64(data[52:60]),
		InodeTableStart:   le.Uint64(data[60:68]),
		InodeTableBlocks:  le.Uint64(data[68:76]),
		DataRegionStart:   le.Uint64(data[76:84]),
		DataRegionBlocks:  le.Uint64(data[84:92]),
		RootInode:         le.Uint64(data[92:100]),
		MtimeEpoch:        le.Uint64(data[100:108]),
		Flags:             le.Uint32(data[108:112]),
		Checksum:          le.Uint32(data[112:116]),
	}
}

// ComputeChecksum returns the CRC32 of the first BlockSize-4 bytes of
// block 0 with the stored checksum field treated as zero.
func ComputeChecksum(block []byte) uint32 {
	return checksum.CRC32Masked(block[:checksumSpan], checksumOffset, checksumOffset+4)
}

// Decode parses block 0. Only the magic number is checked here; see
// Validate and VerifyChecksum for the rest.
func Decode(block []byte) (*Superblock, error) {
	if len(block) < Size {
		return nil, fmt.Errorf("%w: superblock truncated to %d bytes", errs.ErrCorruptImage, len(block))
	}
	s := decode(block)
	if s.Magic != Magic {
		return nil, fmt.Errorf("%w: got %#08x, want %#08x", errs.ErrInvalidMagic, s.Magic, uint32(Magic))
	}
	return s, nil
}

// ReadSuperblockAt reads and decodes block 0 from r.
func ReadSuperblockAt(r io.ReaderAt) (*Superblock, error) {
	block := make([]byte, layout.BlockSize)
	if _, err := r.ReadAt(block, layout.BlockOffset(layout.SuperblockBlock)); err != nil {
		return nil, fmt.Errorf("%w: reading superblock: %w", errs.ErrCorruptImage, err)
	}
	return Decode(block)
}

// VerifyChecksum recomputes the checksum over block and compares it with
// the stored value.
func (s *Superblock) VerifyChecksum(block []byte) error {
	if got := ComputeChecksum(block); got != s.Checksum {
		return fmt.Errorf("%w: superblock stores %#08x, computed %#08x", errs.ErrChecksumMismatch, s.Checksum, got)
	}
	return nil
}

// Validate checks that the declared geometry is the one the layout
// formula produces and that an image of imageSize bytes can hold it.
func (s *Superblock) Validate(imageSize int64) error {
	if s.BlockSize != layout.BlockSize {
		return fmt.Errorf("%w: block size %d, want %d", errs.ErrCorruptImage, s.BlockSize, layout.BlockSize)
	}
	if s.RootInode != layout.RootInode {
		return fmt.Errorf("%w: root inode %d, want %d", errs.ErrCorruptImage, s.RootInode, layout.RootInode)
	}
	want, err := layout.Calculate(s.TotalBlocks*layout.KiBPerBlock, s.InodeCount)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCorruptImage, err)
	}
	if !want.Equal(s.Layout()) {
		return fmt.Errorf("%w: declared geometry {%s} does not match {%s}", errs.ErrCorruptImage, s.Layout(), want)
	}
	if imageSize < want.SizeBytes() {
		return fmt.Errorf("%w: image is %d bytes, geometry needs %d", errs.ErrCorruptImage, imageSize, want.SizeBytes())
	}
	return nil
}

func (s *Superblock) WriteAt(w io.WriterAt, offset int64) error {
	_, err := w.WriteAt(s.EncodeBlock(), offset)
	return err
}
