// Package layout derives the block geometry of an image from its size and
// inode capacity.
//
//	block 0                      superblock
//	block 1                      inode bitmap
//	block 2                      data bitmap
//	block 3 .. 3+itb-1           inode table
//	block 3+itb .. total-1       data region (block 0 of it is the root directory)
package layout

import (
	"fmt"

	"minivsfs/internal/errs"
)

const (
	BlockSize    = 4096
	KiBPerBlock  = BlockSize / 1024
	InodeSize    = 128
	DirEntrySize = 64

	SuperblockBlock  = 0
	InodeBitmapStart = 1
	DataBitmapStart  = 2
	InodeTableStart  = 3
	BitmapBlocks     = 1

	RootInode = 1

	// BitsPerBitmap is the number of objects one bitmap block can track.
	BitsPerBitmap = BlockSize * 8
)

// Policy bounds the parameters accepted for a new image.
type Policy struct {
	MinSizeKiB uint64
	MaxSizeKiB uint64
	MinInodes  uint64
	MaxInodes  uint64
}

// DefaultPolicy matches the bounds enforced by the reference tools.
var DefaultPolicy = Policy{
	MinSizeKiB: 180,
	MaxSizeKiB: 4096,
	MinInodes:  128,
	MaxInodes:  512,
}

// Validate checks the policy itself for consistency.
func (p Policy) Validate() error {
	if p.MinSizeKiB == 0 || p.MinSizeKiB > p.MaxSizeKiB {
		return fmt.Errorf("%w: size bounds [%d, %d] KiB", errs.ErrIllegalArgument, p.MinSizeKiB, p.MaxSizeKiB)
	}
	if p.MinSizeKiB%KiBPerBlock != 0 || p.MaxSizeKiB%KiBPerBlock != 0 {
		return fmt.Errorf("%w: size bounds must be multiples of %d KiB", errs.ErrIllegalArgument, KiBPerBlock)
	}
	if p.MinInodes == 0 || p.MinInodes > p.MaxInodes {
		return fmt.Errorf("%w: inode bounds [%d, %d]", errs.ErrIllegalArgument, p.MinInodes, p.MaxInodes)
	}
	return nil
}

// Check reports whether sizeKiB and inodes are inside the policy.
func (p Policy) Check(sizeKiB, inodes uint64) error {
	if sizeKiB < p.MinSizeKiB || sizeKiB > p.MaxSizeKiB || sizeKiB%KiBPerBlock != 0 {
		return fmt.Errorf("%w: %d KiB (must be %d..%d and a multiple of %d)",
			errs.ErrSizeOutOfBounds, sizeKiB, p.MinSizeKiB, p.MaxSizeKiB, KiBPerBlock)
	}
	if inodes < p.MinInodes || inodes > p.MaxInodes {
		return fmt.Errorf("%w: %d (must be %d..%d)", errs.ErrInodesOutOfBounds, inodes, p.MinInodes, p.MaxInodes)
	}
	return nil
}

// Layout is the absolute geometry of one image, in blocks.
type Layout struct {
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
}

// Calculate computes the geometry for an image of sizeKiB holding inodes
// inode slots. It fails with ErrGeometryInfeasible when nothing would be
// left for the data region.
func Calculate(sizeKiB, inodes uint64) (*Layout, error) {
	if sizeKiB == 0 || sizeKiB%KiBPerBlock != 0 {
		return nil, fmt.Errorf("%w: %d KiB is not a positive multiple of %d", errs.ErrSizeOutOfBounds, sizeKiB, KiBPerBlock)
	}
	if inodes == 0 || inodes > BitsPerBitmap {
		return nil, fmt.Errorf("%w: %d (bitmap holds at most %d)", errs.ErrInodesOutOfBounds, inodes, BitsPerBitmap)
	}

	total := sizeKiB * 1024 / BlockSize
	tableBlocks := (inodes*InodeSize + BlockSize - 1) / BlockSize
	dataStart := uint64(InodeTableStart) + tableBlocks

	if total <= dataStart {
		return nil, fmt.Errorf("%w: %d blocks total, data region would start at block %d",
			errs.ErrGeometryInfeasible, total, dataStart)
	}
	dataBlocks := total - dataStart
	if dataBlocks > BitsPerBitmap {
		return nil, fmt.Errorf("%w: %d data blocks exceed one bitmap block (%d)",
			errs.ErrGeometryInfeasible, dataBlocks, BitsPerBitmap)
	}

	return &Layout{
		TotalBlocks:       total,
		InodeCount:        inodes,
		InodeBitmapStart:  InodeBitmapStart,
		InodeBitmapBlocks: BitmapBlocks,
		DataBitmapStart:   DataBitmapStart,
		DataBitmapBlocks:  BitmapBlocks,
		InodeTableStart:   InodeTableStart,
		InodeTableBlocks:  tableBlocks,
		DataRegionStart:   dataStart,
		DataRegionBlocks:  dataBlocks,
	}, nil
}

// CalculateWithPolicy applies policy before computing the geometry.
func CalculateWithPolicy(p Policy, sizeKiB, inodes uint64) (*Layout, error) {
	if err := p.Check(sizeKiB, inodes); err != nil {
		return nil, err
	}
	return Calculate(sizeKiB, inodes)
}

// SizeBytes is the exact length of the image file.
func (l *Layout) SizeBytes() int64 {
	return int64(l.TotalBlocks) * BlockSize
}

// BlockOffset converts an absolute block number to a byte offset.
func BlockOffset(block uint64) int64 {
	return int64(block) * BlockSize
}

// InodeOffset is the byte offset of 1-indexed inode slot n.
func (l *Layout) InodeOffset(n uint32) int64 {
	return BlockOffset(l.InodeTableStart) + int64(n-1)*InodeSize
}

// DataBlockOffset is the byte offset of data-region-relative block idx.
func (l *Layout) DataBlockOffset(idx uint32) int64 {
	return BlockOffset(l.DataRegionStart + uint64(idx))
}

// InodeSlots is the number of inode records the table blocks can hold,
// including padding slots past InodeCount.
func (l *Layout) InodeSlots() uint64 {
	return l.InodeTableBlocks * BlockSize / InodeSize
}

// Equal reports whether two layouts describe the same geometry.
func (l *Layout) Equal(o *Layout) bool {
	return *l == *o
}

func (l *Layout) String() string {
	return fmt.Sprintf("blocks=%d inodes=%d inode_table=%d+%d data_region=%d+%d",
		l.TotalBlocks, l.InodeCount, l.InodeTableStart, l.InodeTableBlocks, l.DataRegionStart, l.DataRegionBlocks)
}
