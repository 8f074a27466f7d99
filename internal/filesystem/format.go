package filesystem

import (
	"context"
	"fmt"
	"time"

	"github.com/containerd/log"

	"minivsfs/internal/filesystem/bitmap"
	"minivsfs/internal/filesystem/directory"
	"minivsfs/internal/filesystem/directory/record"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/filesystem/superblock"
)

// FormatFilesystem builds a fresh image of sizeKiB KiB with room for
// inodes inodes. The image holds only the root directory.
func FormatFilesystem(ctx context.Context, sizeKiB, inodes uint64, opts Options) (*FileSystem, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	l, err := layout.CalculateWithPolicy(opts.Policy, sizeKiB, inodes)
	if err != nil {
		return nil, err
	}

	now := opts.now()
	fs := newFileSystem(disk.NewMemory(l.SizeBytes()), superblock.NewSuperblock(l, now), opts)
	fs.InodeBitmap = bitmap.NewBitmap(layout.BlockSize, uint32(l.InodeCount))
	fs.DataBitmap = bitmap.NewBitmap(layout.BlockSize, uint32(l.DataRegionBlocks))

	if err := fs.Superblock.WriteAt(fs.disk, layout.BlockOffset(layout.SuperblockBlock)); err != nil {
		return nil, fmt.Errorf("write superblock: %w", err)
	}
	if err := fs.inodes.ReserveInodeTableSpace(); err != nil {
		return nil, err
	}
	if err := fs.blocks.ReserveBlocksSpace(0); err != nil {
		return nil, err
	}
	if err := fs.CreateRootDirectory(now); err != nil {
		return nil, err
	}

	log.G(ctx).WithFields(log.Fields{
		"size_kib":           sizeKiB,
		"total_blocks":       l.TotalBlocks,
		"inodes":             l.InodeCount,
		"inode_table_blocks": l.InodeTableBlocks,
		"data_region_start":  l.DataRegionStart,
		"data_region_blocks": l.DataRegionBlocks,
	}).Debug("image formatted")
	return fs, nil
}

// CreateRootDirectory allocates inode 1 and data block 0 to the root
// directory and writes its "." and ".." entries.
func (fs *FileSystem) CreateRootDirectory(now time.Time) error {
	if err := fs.InodeBitmap.SetBit(0); err != nil {
		return err
	}
	if err := fs.DataBitmap.SetBit(0); err != nil {
		return err
	}
	if err := fs.writeBitmaps(); err != nil {
		return err
	}

	rootInode := inode.NewInode(false, fs.opts.Owner, fs.opts.ProjectId, 2*record.Size, now, []uint32{0})
	if err := fs.inodes.SaveInode(rootInode, layout.RootInode); err != nil {
		return err
	}

	rootDir := directory.CreateNewDirectory(layout.BlockSize, layout.RootInode, layout.RootInode)
	fs.dirs.SetDirectory(rootDir, 0, "/")
	return fs.dirs.SaveDirectory()
}

// CreateImage formats a new image and saves it to path.
func CreateImage(ctx context.Context, path string, sizeKiB, inodes uint64, opts Options) (*FileSystem, error) {
	fs, err := FormatFilesystem(ctx, sizeKiB, inodes, opts)
	if err != nil {
		return nil, err
	}
	if err := fs.Save(ctx, path); err != nil {
		return nil, err
	}
	log.G(ctx).WithFields(log.Fields{
		"image":  path,
		"layout": fs.Layout.String(),
	}).Info("created image")
	return fs, nil
}
