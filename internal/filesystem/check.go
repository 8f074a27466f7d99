package filesystem

import (
	"context"
	"fmt"

	"github.com/containerd/log"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
)

// Check verifies the whole image and returns every problem found. An
// empty result means the image is consistent.
//
// It checks the superblock checksum, bit 0 of the data bitmap, that no bit is
// set past either bitmap's capacity, the checksum and block pointers of
// every allocated inode, the checksum of every root directory entry, that
// every entry names an allocated inode and that the root link count
// matches the number of entries.
func (fs *FileSystem) Check(ctx context.Context) []error {
	var problems []error
	report := func(err error) {
		log.G(ctx).WithError(err).Debug("check")
		problems = append(problems, err)
	}

	block := make([]byte, layout.BlockSize)
	if _, err := fs.disk.ReadAt(block, layout.BlockOffset(layout.SuperblockBlock)); err != nil {
		report(fmt.Errorf("superblock: %w", err))
	} else if err := fs.Superblock.VerifyChecksum(block); err != nil {
		report(err)
	}

	if bit, _ := fs.DataBitmap.GetBit(0); bit != 1 {
		report(fmt.Errorf("%w: data bitmap bit 0 is not set", errs.ErrCorruptImage))
	}
	for _, i := range fs.InodeBitmap.Stray() {
		report(fmt.Errorf("%w: inode bitmap bit %d set past %d inodes", errs.ErrCorruptImage, i, fs.InodeBitmap.Size))
	}
	for _, i := range fs.DataBitmap.Stray() {
		report(fmt.Errorf("%w: data bitmap bit %d set past %d blocks", errs.ErrCorruptImage, i, fs.DataBitmap.Size))
	}

	for i := 0; i < int(fs.InodeBitmap.Size); i++ {
		if bit, _ := fs.InodeBitmap.GetBit(i); bit == 0 {
			continue
		}
		if err := fs.checkInode(uint32(i) + 1); err != nil {
			report(err)
		}
	}

	root := fs.dirs.Current
	for _, err := range root.Verify() {
		report(fmt.Errorf("root directory: %w", err))
	}
	files := 0
	for _, rec := range root.GetRecords() {
		if !rec.IsDirectory() {
			files++
		}
		if rec.Inode < 1 || uint64(rec.Inode) > fs.Layout.InodeCount {
			report(fmt.Errorf("%w: entry %q names inode %d outside 1..%d", errs.ErrCorruptImage, rec.Name, rec.Inode, fs.Layout.InodeCount))
			continue
		}
		if bit, _ := fs.InodeBitmap.GetBit(int(rec.Inode) - 1); bit == 0 {
			report(fmt.Errorf("%w: entry %q names unallocated inode %d", errs.ErrCorruptImage, rec.Name, rec.Inode))
		}
	}
	if rootInode, err := fs.ReadRootInode(); err == nil {
		if want := 2 + files; int(rootInode.Links) != want {
			report(fmt.Errorf("%w: root has %d links, %d expected", errs.ErrCorruptImage, rootInode.Links, want))
		}
	}

	log.G(ctx).WithField("problems", len(problems)).Debug("check finished")
	return problems
}

func (fs *FileSystem) checkInode(n uint32) error {
	raw, err := fs.inodes.ReadRaw(n)
	if err != nil {
		return err
	}
	if err := inode.VerifyChecksum(raw); err != nil {
		return fmt.Errorf("inode %d: %w", n, err)
	}
	in, err := inode.Decode(raw)
	if err != nil {
		return fmt.Errorf("inode %d: %w", n, err)
	}
	if !in.InUse() {
		return fmt.Errorf("%w: inode %d is allocated but empty", errs.ErrCorruptImage, n)
	}
	used := (in.FileSize + layout.BlockSize - 1) / layout.BlockSize
	if in.IsDirectory() {
		used = 1
	}
	if used > inode.DirectBlocks {
		return fmt.Errorf("%w: inode %d declares %d bytes", errs.ErrCorruptImage, n, in.FileSize)
	}
	for _, b := range in.Blocks[:used] {
		if uint64(b) >= fs.Layout.DataRegionBlocks {
			return fmt.Errorf("%w: inode %d points at data block %d outside the data region", errs.ErrCorruptImage, n, b)
		}
		if bit, _ := fs.DataBitmap.GetBit(int(b)); bit == 0 {
			return fmt.Errorf("%w: inode %d points at unallocated data block %d", errs.ErrCorruptImage, n, b)
		}
	}
	return nil
}
