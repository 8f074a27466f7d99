package blockmanager

import (
	"fmt"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/utils"
)

// BlockManager addresses the data region by data-region-relative index.
type BlockManager struct {
	disk   disk.Disk
	layout *layout.Layout
}

func NewBlockManager(d disk.Disk, l *layout.Layout) *BlockManager {
	return &BlockManager{disk: d, layout: l}
}

func (bm BlockManager) offset(blockIndex uint32) (int64, error) {
	if uint64(blockIndex) >= bm.layout.DataRegionBlocks {
		return 0, fmt.Errorf("%w: data block %d outside 0..%d", errs.ErrCorruptImage, blockIndex, bm.layout.DataRegionBlocks-1)
	}
	return bm.layout.DataBlockOffset(blockIndex), nil
}

func (bm BlockManager) ReadBlock(blockIndex uint32) ([]byte, error) {
	offset, err := bm.offset(blockIndex)
	if err != nil {
		return nil, err
	}
	data := make([]byte, layout.BlockSize)
	if _, err := bm.disk.ReadAt(data, offset); err != nil {
		return nil, fmt.Errorf("read data block %d: %w", blockIndex, err)
	}
	return data, nil
}

// WriteBlock stores content zero-padded to a full block.
func (bm BlockManager) WriteBlock(blockIndex uint32, content []byte) error {
	if len(content) > layout.BlockSize {
		return fmt.Errorf("%w: %d bytes do not fit one block", errs.ErrSourceTooLarge, len(content))
	}
	offset, err := bm.offset(blockIndex)
	if err != nil {
		return err
	}
	if _, err := bm.disk.WriteAt(utils.BytesToBlock(content, layout.BlockSize), offset); err != nil {
		return fmt.Errorf("write data block %d: %w", blockIndex, err)
	}
	return nil
}

// ReadBlocks returns the FileSize bytes of a file, following the direct
// pointers in order.
func (bm BlockManager) ReadBlocks(fileInode *inode.Inode) ([]byte, error) {
	need := fileInode.FileSize
	if need > inode.DirectBlocks*layout.BlockSize {
		return nil, fmt.Errorf("%w: inode declares %d bytes", errs.ErrCorruptImage, need)
	}
	data := make([]byte, 0, need)
	for i := 0; uint64(len(data)) < need; i++ {
		block, err := bm.ReadBlock(fileInode.Blocks[i])
		if err != nil {
			return nil, err
		}
		take := need - uint64(len(data))
		if take > layout.BlockSize {
			take = layout.BlockSize
		}
		data = append(data, block[:take]...)
	}
	return data, nil
}

// ReserveBlocksSpace zero-fills data blocks [from, DataRegionBlocks).
func (bm BlockManager) ReserveBlocksSpace(from uint32) error {
	if uint64(from) >= bm.layout.DataRegionBlocks {
		return nil
	}
	data := make([]byte, (bm.layout.DataRegionBlocks-uint64(from))*layout.BlockSize)

	if _, err := bm.disk.WriteAt(data, bm.layout.DataBlockOffset(from)); err != nil {
		return fmt.Errorf("zero data region: %w", err)
	}
	return nil
}
