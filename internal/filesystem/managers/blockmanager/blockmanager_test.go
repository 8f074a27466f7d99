package blockmanager

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/disk"
	"minivsfs/internal/filesystem/inode"
	"minivsfs/internal/filesystem/layout"
)

func setup(t *testing.T) (*disk.Memory, *layout.Layout, *BlockManager) {
	t.Helper()
	l, err := layout.Calculate(180, 128)
	assert.NilError(t, err)
	d := disk.NewMemory(l.SizeBytes())
	return d, l, NewBlockManager(d, l)
}

func TestWriteBlock(t *testing.T) {
	d, l, bm := setup(t)

	assert.NilError(t, bm.WriteBlock(2, []byte("abc")))
	got, err := bm.ReadBlock(2)
	assert.NilError(t, err)
	assert.Check(t, is.Len(got, layout.BlockSize))
	assert.Check(t, bytes.Equal(got[:3], []byte("abc")))
	assert.Check(t, bytes.Count(got[3:], []byte{0}) == layout.BlockSize-3)

	raw := d.Bytes()
	off := l.DataBlockOffset(2)
	assert.Check(t, bytes.Equal(raw[off:off+3], []byte("abc")))
}

func TestWriteBlockErrors(t *testing.T) {
	_, l, bm := setup(t)

	err := bm.WriteBlock(1, make([]byte, layout.BlockSize+1))
	assert.Check(t, is.ErrorIs(err, errs.ErrSourceTooLarge))

	err = bm.WriteBlock(uint32(l.DataRegionBlocks), []byte("x"))
	assert.Check(t, is.ErrorIs(err, errs.ErrCorruptImage))

	_, err = bm.ReadBlock(uint32(l.DataRegionBlocks))
	assert.Check(t, is.ErrorIs(err, errs.ErrCorruptImage))
}

func TestReadBlocks(t *testing.T) {
	_, _, bm := setup(t)
	assert.NilError(t, bm.WriteBlock(3, []byte("hello world")))

	file := &inode.Inode{Mode: inode.ModeFile, FileSize: 5}
	file.Blocks[0] = 3
	got, err := bm.ReadBlocks(file)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(got), "hello"))

	file.FileSize = inode.DirectBlocks*layout.BlockSize + 1
	_, err = bm.ReadBlocks(file)
	assert.Check(t, is.ErrorIs(err, errs.ErrCorruptImage))
}

func TestReserveBlocksSpace(t *testing.T) {
	d, l, bm := setup(t)
	assert.NilError(t, bm.WriteBlock(0, []byte("keep")))
	assert.NilError(t, bm.WriteBlock(5, []byte("drop")))

	assert.NilError(t, bm.ReserveBlocksSpace(1))

	raw := d.Bytes()
	assert.Check(t, bytes.Equal(raw[l.DataBlockOffset(0):l.DataBlockOffset(0)+4], []byte("keep")))
	rest := raw[l.DataBlockOffset(1):]
	assert.Check(t, bytes.Count(rest, []byte{0}) == len(rest))
}
