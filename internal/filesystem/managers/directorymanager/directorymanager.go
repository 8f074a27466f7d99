package directorymanager

import (
	"fmt"

	"minivsfs/internal/filesystem/directory"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/layout"
)

// DirectoryManager holds the directory block currently being worked on.
// The image has a single directory, the root, so Path is always "/".
type DirectoryManager struct {
	Current    *directory.Directory
	Path       string
	blockIndex uint32
	disk       disk.Disk
	layout     *layout.Layout
}

func NewDirectoryManager(d disk.Disk, l *layout.Layout) *DirectoryManager {
	return &DirectoryManager{
		disk:   d,
		layout: l,
	}
}

// OpenDirectory loads the directory stored in data block blockIndex.
func (dm *DirectoryManager) OpenDirectory(blockIndex uint32, path string) error {
	var err error
	dirOffset := dm.layout.DataBlockOffset(blockIndex)
	dm.Current, err = directory.ReadDirectoryAt(dm.disk, dirOffset, layout.BlockSize)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", path, err)
	}
	dm.Path = path
	dm.blockIndex = blockIndex

	return nil
}

// SetDirectory installs dir as the current directory at blockIndex
// without writing it.
func (dm *DirectoryManager) SetDirectory(dir *directory.Directory, blockIndex uint32, path string) {
	dm.Current = dir
	dm.blockIndex = blockIndex
	dm.Path = path
}

// SaveDirectory writes the current directory back to its block.
func (dm *DirectoryManager) SaveDirectory() error {
	if err := dm.Current.WriteAt(dm.disk, dm.layout.DataBlockOffset(dm.blockIndex)); err != nil {
		return fmt.Errorf("write directory %s: %w", dm.Path, err)
	}
	return nil
}
