package inodemanager

import (
	"fmt"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
)

// InodeManager reads and writes 1-indexed inode slots of the inode table.
type InodeManager struct {
	disk   disk.Disk
	layout *layout.Layout
}

func NewInodeManager(d disk.Disk, l *layout.Layout) *InodeManager {
	return &InodeManager{disk: d, layout: l}
}

func (im InodeManager) offset(inodeIndex uint32) (int64, error) {
	if inodeIndex < 1 || uint64(inodeIndex) > im.layout.InodeCount {
		return 0, fmt.Errorf("%w: inode %d outside 1..%d", errs.ErrIllegalArgument, inodeIndex, im.layout.InodeCount)
	}
	return im.layout.InodeOffset(inodeIndex), nil
}

// ReadRaw returns the undecoded 128-byte record of slot inodeIndex.
func (im InodeManager) ReadRaw(inodeIndex uint32) ([]byte, error) {
	offset, err := im.offset(inodeIndex)
	if err != nil {
		return nil, err
	}
	data := make([]byte, inode.Size)
	if _, err := im.disk.ReadAt(data, offset); err != nil {
		return nil, fmt.Errorf("read inode %d: %w", inodeIndex, err)
	}
	return data, nil
}

func (im InodeManager) ReadInode(inodeIndex uint32) (*inode.Inode, error) {
	offset, err := im.offset(inodeIndex)
	if err != nil {
		return nil, err
	}
	value, err := inode.ReadInodeAt(im.disk, offset)
	if err != nil {
		return nil, fmt.Errorf("read inode %d: %w", inodeIndex, err)
	}
	return value, nil
}

// SaveInode finalizes the checksum of value and writes it to its slot.
func (im InodeManager) SaveInode(value *inode.Inode, inodeIndex uint32) error {
	offset, err := im.offset(inodeIndex)
	if err != nil {
		return err
	}
	if err := value.WriteAt(im.disk, offset); err != nil {
		return fmt.Errorf("write inode %d: %w", inodeIndex, err)
	}
	return nil
}

// ReserveInodeTableSpace zeroes every block of the inode table, including
// the padding slots past InodeCount.
func (im InodeManager) ReserveInodeTableSpace() error {
	data := make([]byte, im.layout.InodeTableBlocks*layout.BlockSize)

	if _, err := im.disk.WriteAt(data, layout.BlockOffset(im.layout.InodeTableStart)); err != nil {
		return fmt.Errorf("zero inode table: %w", err)
	}
	return nil
}
