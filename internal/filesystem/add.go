package filesystem

import (
	"context"
	"fmt"
	"os"

	"github.com/containerd/log"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/directory/record"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
	"minivsfs/internal/utils"
)

// addState is the progress of one append, logged at debug level.
type addState int

const (
	addLoaded addState = iota
	addValidated
	addAllocated
	addPatched
	addWritten
)

func (s addState) String() string {
	switch s {
	case addLoaded:
		return "loaded"
	case addValidated:
		return "validated"
	case addAllocated:
		return "allocated"
	case addPatched:
		return "patched"
	case addWritten:
		return "written"
	default:
		return fmt.Sprintf("addState(%d)", int(s))
	}
}

// AddedFile describes where an appended file landed.
type AddedFile struct {
	Name      string
	Inode     uint32
	DataBlock uint32
	Slot      int
	Size      int
}

// AddFile stores content as a regular file called name in the root
// directory. name is reduced to its base name and cut on a rune boundary
// to the 57 bytes a directory entry can hold.
//
// Capacity is checked in a fixed order: content size, free inode, free
// data block, free directory slot. Nothing is modified unless all four
// succeed.
func (fs *FileSystem) AddFile(ctx context.Context, name string, content []byte) (*AddedFile, error) {
	logger := log.G(ctx).WithField("file", name)
	logger.WithField("state", addLoaded).Debug("add file")

	entryName, err := utils.BaseName(name)
	if err != nil {
		return nil, err
	}
	if short := utils.TruncateName(entryName, record.MaxNameLength); short != entryName {
		logger.Warnf("name truncated to %q", short)
		entryName = short
	}
	if len(content) > layout.BlockSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, at most %d fit", errs.ErrSourceTooLarge, name, len(content), layout.BlockSize)
	}
	logger.WithField("state", addValidated).Debug("add file")

	inodeIndex, ok := fs.InodeBitmap.FindFree()
	if !ok {
		return nil, fmt.Errorf("%w: all %d inodes in use", errs.ErrNoFreeInode, fs.InodeBitmap.Size)
	}
	blockIndex, ok := fs.DataBitmap.FindFree()
	if !ok {
		return nil, fmt.Errorf("%w: all %d data blocks in use", errs.ErrNoFreeDataBlock, fs.DataBitmap.Size)
	}
	root := fs.dirs.Current
	if _, ok := root.FreeSlot(); !ok {
		return nil, fmt.Errorf("%w: root directory holds %d entries", errs.ErrNoFreeDirectoryEntry, root.Capacity())
	}
	rootInode, err := fs.ReadRootInode()
	if err != nil {
		return nil, err
	}
	if _, err := root.GetInode(entryName); err == nil {
		logger.Warnf("root directory already has an entry called %q", entryName)
	}

	inodeNo := uint32(inodeIndex) + 1
	dataBlock := uint32(blockIndex)
	logger.WithFields(log.Fields{
		"state":      addAllocated,
		"inode":      inodeNo,
		"data_block": dataBlock,
	}).Debug("add file")

	if err := fs.InodeBitmap.SetBit(inodeIndex); err != nil {
		return nil, err
	}
	if err := fs.DataBitmap.SetBit(blockIndex); err != nil {
		return nil, err
	}
	if err := fs.writeBitmaps(); err != nil {
		return nil, err
	}

	fileInode := inode.NewInode(true, fs.opts.Owner, fs.opts.ProjectId, uint64(len(content)), fs.opts.now(), []uint32{dataBlock})
	if err := fs.inodes.SaveInode(fileInode, inodeNo); err != nil {
		return nil, err
	}
	if err := fs.blocks.WriteBlock(dataBlock, content); err != nil {
		return nil, err
	}

	slot, err := root.AddFile(inodeNo, entryName)
	if err != nil {
		return nil, err
	}
	if err := fs.dirs.SaveDirectory(); err != nil {
		return nil, err
	}

	rootInode.Links++
	if err := fs.inodes.SaveInode(rootInode, layout.RootInode); err != nil {
		return nil, err
	}
	logger.WithField("state", addPatched).Debug("add file")

	return &AddedFile{
		Name:      entryName,
		Inode:     inodeNo,
		DataBlock: dataBlock,
		Slot:      slot,
		Size:      len(content),
	}, nil
}

// AppendFile reads the image at inputPath, adds the host file sourcePath
// to it and saves the result to outputPath. inputPath is never modified
// unless it is also outputPath, and outputPath is untouched on failure.
func AppendFile(ctx context.Context, inputPath, outputPath, sourcePath string, opts Options) (*AddedFile, error) {
	fs, err := OpenFile(ctx, inputPath, opts)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, errs.IO("stat", sourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", errs.ErrIllegalArgument, sourcePath)
	}
	if info.Size() > layout.BlockSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, at most %d fit", errs.ErrSourceTooLarge, sourcePath, info.Size(), layout.BlockSize)
	}
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errs.IO("read", sourcePath, err)
	}

	added, err := fs.AddFile(ctx, sourcePath, content)
	if err != nil {
		return nil, err
	}
	if err := fs.Save(ctx, outputPath); err != nil {
		return nil, err
	}

	log.G(ctx).WithFields(log.Fields{
		"state":      addWritten,
		"image":      outputPath,
		"file":       added.Name,
		"inode":      added.Inode,
		"data_block": added.DataBlock,
		"size":       added.Size,
	}).Info("added file")
	return added, nil
}
