package directory

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/directory/record"
)

const blockSize = 4096

func TestCreateNewDirectory(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)

	recs := d.GetRecords()
	assert.Assert(t, is.Len(recs, 2))
	assert.Equal(t, recs[0].Name, ".")
	assert.Equal(t, recs[1].Name, "..")
	for _, rec := range recs {
		assert.Equal(t, rec.Inode, uint32(1))
		assert.Equal(t, rec.Type, uint8(record.TypeDirectory))
	}
	assert.Equal(t, d.Capacity(), 64)
	assert.Check(t, is.Len(d.Verify(), 0))

	raw := d.Bytes()
	for i := 2 * record.Size; i < len(raw); i++ {
		if raw[i] != 0 {
			t.Fatalf("byte %d of fresh directory = %#x", i, raw[i])
		}
	}
}

func TestAddFileUsesFirstFreeSlot(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)

	slot, err := d.AddFile(2, "a.txt")
	assert.NilError(t, err)
	assert.Equal(t, slot, 2)

	slot, err = d.AddFile(3, "b.txt")
	assert.NilError(t, err)
	assert.Equal(t, slot, 3)

	ino, err := d.GetInode("b.txt")
	assert.NilError(t, err)
	assert.Equal(t, ino, uint32(3))

	_, err = d.GetInode("missing")
	assert.Check(t, errors.Is(err, errs.ErrRecordNotFound))
}

func TestAddFileUntilFull(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)

	for i := 0; i < 62; i++ {
		_, err := d.AddFile(uint32(i+2), fmt.Sprintf("f%d", i))
		assert.NilError(t, err, "entry %d", i)
	}
	_, ok := d.FreeSlot()
	assert.Check(t, !ok)

	_, err := d.AddFile(100, "overflow")
	assert.Check(t, errors.Is(err, errs.ErrNoFreeDirectoryEntry))
}

func TestDecodeRoundTrip(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)
	_, err := d.AddFile(9, "nine")
	assert.NilError(t, err)

	back, err := Decode(d.Bytes())
	assert.NilError(t, err)
	assert.DeepEqual(t, back.GetRecords(), d.GetRecords())
	assert.Check(t, is.Len(back.Verify(), 0))
}

func TestDecodeKeepsUntouchedBytes(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)
	raw := d.Bytes()
	// A free slot (inode 0) carrying leftover bytes must survive an append
	// to a different slot.
	raw[10*record.Size+20] = 0x5A

	back, err := Decode(raw)
	assert.NilError(t, err)
	_, err = back.AddFile(2, "x")
	assert.NilError(t, err)
	assert.Equal(t, back.Bytes()[10*record.Size+20], uint8(0x5A))
}

func TestVerifyReportsUnterminatedName(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)
	_, err := d.AddFile(2, "x")
	assert.NilError(t, err)

	raw := d.Bytes()
	entry := raw[2*record.Size : 3*record.Size]
	for i := 5; i < record.Size-1; i++ {
		entry[i] = 'y'
	}
	entry[record.Size-1] = record.ComputeChecksum(entry)

	back, err := Decode(raw)
	assert.NilError(t, err)
	problems := back.Verify()
	assert.Assert(t, is.Len(problems, 1))
	assert.Check(t, errors.Is(problems[0], errs.ErrNullNotFound))
}

func TestVerifyReportsBadEntry(t *testing.T) {
	d := CreateNewDirectory(blockSize, 1, 1)
	raw := d.Bytes()
	raw[record.Size+63] ^= 0xFF

	back, err := Decode(raw)
	assert.NilError(t, err)
	problems := back.Verify()
	assert.Assert(t, is.Len(problems, 1))
	assert.Check(t, errors.Is(problems[0], errs.ErrChecksumMismatch))
}
