package filesystem

import (
	"context"
	"fmt"

	"github.com/containerd/log"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/bitmap"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/filesystem/superblock"
)

// OpenFilesystem loads an existing image from data. The slice is copied;
// later changes to the FileSystem never touch it.
//
// Only structural problems are rejected here: a wrong magic number, a
// block size other than 4096, a geometry that contradicts the layout
// formula, an image shorter than its geometry, or a root inode or root
// directory block not marked in its bitmap. Checksums are verified
// by Check.
func OpenFilesystem(ctx context.Context, data []byte, opts Options) (*FileSystem, error) {
	d := disk.FromBytes(data)
	sb, err := superblock.ReadSuperblockAt(d)
	if err != nil {
		return nil, err
	}
	if err := sb.Validate(d.Size()); err != nil {
		return nil, err
	}

	fs := newFileSystem(d, sb, opts)
	l := fs.Layout

	fs.InodeBitmap, err = fs.readBitmap(l.InodeBitmapStart, uint32(l.InodeCount))
	if err != nil {
		return nil, fmt.Errorf("inode bitmap: %w", err)
	}
	fs.DataBitmap, err = fs.readBitmap(l.DataBitmapStart, uint32(l.DataRegionBlocks))
	if err != nil {
		return nil, fmt.Errorf("data bitmap: %w", err)
	}

	root, err := fs.ReadRootInode()
	if err != nil {
		return nil, fmt.Errorf("root inode: %w", err)
	}
	if !root.IsDirectory() {
		return nil, fmt.Errorf("%w: root inode has mode %#04x", errs.ErrCorruptImage, root.Mode)
	}
	if uint64(root.Blocks[0]) >= l.DataRegionBlocks {
		return nil, fmt.Errorf("%w: root directory block %d outside data region", errs.ErrCorruptImage, root.Blocks[0])
	}
	// AddFile would otherwise hand the root's own inode or block to a file.
	if bit, _ := fs.InodeBitmap.GetBit(layout.RootInode - 1); bit == 0 {
		return nil, fmt.Errorf("%w: root inode is not marked allocated", errs.ErrCorruptImage)
	}
	if bit, _ := fs.DataBitmap.GetBit(int(root.Blocks[0])); bit == 0 {
		return nil, fmt.Errorf("%w: root directory block %d is not marked allocated", errs.ErrCorruptImage, root.Blocks[0])
	}
	if err := fs.dirs.OpenDirectory(root.Blocks[0], "/"); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptImage, err)
	}

	log.G(ctx).WithFields(log.Fields{
		"layout":      l.String(),
		"inodes_used": fs.InodeBitmap.Count(),
		"blocks_used": fs.DataBitmap.Count(),
	}).Debug("image opened")
	return fs, nil
}

// OpenFile reads the image stored at path.
func OpenFile(ctx context.Context, path string, opts Options) (*FileSystem, error) {
	data, err := readImage(path)
	if err != nil {
		return nil, err
	}
	fs, err := OpenFilesystem(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fs, nil
}

func (fs *FileSystem) readBitmap(block uint64, size uint32) (*bitmap.Bitmap, error) {
	data := make([]byte, layout.BlockSize)
	if _, err := fs.disk.ReadAt(data, layout.BlockOffset(block)); err != nil {
		return nil, err
	}
	return bitmap.FromBytes(data, size)
}
