// Package filesystem builds and edits MiniVSFS images: a superblock, two
// one-block allocation bitmaps, an inode table and a data region whose
// first block is the root directory.
//
// Every operation works on an in-memory copy of the image. Nothing reaches
// the host filesystem until Save, which replaces the destination
// atomically, so a failed build or append never leaves a partial image.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"
	"github.com/moby/sys/atomicwriter"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/bitmap"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/filesystem/managers/blockmanager"
	"minivsfs/internal/filesystem/managers/directorymanager"
	"minivsfs/internal/filesystem/managers/inodemanager"
	"minivsfs/internal/filesystem/superblock"
	"minivsfs/internal/filesystem/user"
)

// Options controls policy and the values stamped into new inodes.
type Options struct {
	Policy    layout.Policy
	Owner     user.User
	ProjectId uint32
	Clock     clock.Clock
}

func DefaultOptions() Options {
	return Options{
		Policy:    layout.DefaultPolicy,
		Owner:     user.Root(),
		ProjectId: inode.DefaultProjectId,
		Clock:     clock.NewClock(),
	}
}

func (o Options) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

type FileSystem struct {
	Superblock  *superblock.Superblock
	Layout      *layout.Layout
	InodeBitmap *bitmap.Bitmap
	DataBitmap  *bitmap.Bitmap

	disk   *disk.Memory
	inodes *inodemanager.InodeManager
	blocks *blockmanager.BlockManager
	dirs   *directorymanager.DirectoryManager
	opts   Options
}

func newFileSystem(d *disk.Memory, sb *superblock.Superblock, opts Options) *FileSystem {
	l := sb.Layout()
	return &FileSystem{
		Superblock: sb,
		Layout:     l,
		disk:       d,
		inodes:     inodemanager.NewInodeManager(d, l),
		blocks:     blockmanager.NewBlockManager(d, l),
		dirs:       directorymanager.NewDirectoryManager(d, l),
		opts:       opts,
	}
}

// Bytes returns a copy of the whole image.
func (fs *FileSystem) Bytes() []byte {
	return fs.disk.Bytes()
}

// Save atomically replaces path with the image.
func (fs *FileSystem) Save(ctx context.Context, path string) error {
	if err := atomicwriter.WriteFile(path, fs.disk.Bytes(), 0o644); err != nil {
		return errs.IO("write image", path, err)
	}
	log.G(ctx).WithFields(log.Fields{
		"image": path,
		"bytes": fs.disk.Size(),
	}).Debug("image written")
	return nil
}

func (fs *FileSystem) writeBitmaps() error {
	if err := fs.InodeBitmap.WriteAt(fs.disk, layout.BlockOffset(fs.Layout.InodeBitmapStart)); err != nil {
		return fmt.Errorf("write inode bitmap: %w", err)
	}
	if err := fs.DataBitmap.WriteAt(fs.disk, layout.BlockOffset(fs.Layout.DataBitmapStart)); err != nil {
		return fmt.Errorf("write data bitmap: %w", err)
	}
	return nil
}

// Entry describes one name in the root directory.
type Entry struct {
	Name    string
	Inode   uint32
	IsDir   bool
	Size    uint64
	Links   uint16
	ModTime time.Time
}

// List returns the root directory entries in slot order, "." and ".."
// included.
func (fs *FileSystem) List() ([]Entry, error) {
	var out []Entry
	for _, rec := range fs.dirs.Current.GetRecords() {
		in, err := fs.inodes.ReadInode(rec.Inode)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", rec.Name, err)
		}
		out = append(out, Entry{
			Name:    rec.Name,
			Inode:   rec.Inode,
			IsDir:   rec.IsDirectory(),
			Size:    in.FileSize,
			Links:   in.Links,
			ModTime: time.Unix(int64(in.ModificationTime), 0).UTC(),
		})
	}
	return out, nil
}

// ReadFile returns the contents of the first root entry called name.
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	ino, err := fs.dirs.Current.GetInode(name)
	if err != nil {
		return nil, err
	}
	in, err := fs.inodes.ReadInode(ino)
	if err != nil {
		return nil, err
	}
	if !in.IsFile() {
		return nil, fmt.Errorf("%w: %s is not a regular file", errs.ErrIllegalArgument, name)
	}
	return fs.blocks.ReadBlocks(in)
}

// ReadRootInode returns inode 1.
func (fs *FileSystem) ReadRootInode() (*inode.Inode, error) {
	return fs.inodes.ReadInode(layout.RootInode)
}

// ReadInode returns inode n.
func (fs *FileSystem) ReadInode(n uint32) (*inode.Inode, error) {
	return fs.inodes.ReadInode(n)
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("read image", path, err)
	}
	return data, nil
}
