package record

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"minivsfs/internal/errs"
)

func TestEncode(t *testing.T) {
	r := NewRecord(1, TypeDirectory, "..")
	data := r.Encode()

	assert.Equal(t, len(data), Size)
	assert.Equal(t, binary.LittleEndian.Uint32(data[0:4]), uint32(1))
	assert.Equal(t, data[4], uint8(TypeDirectory))
	assert.Equal(t, string(data[5:7]), "..")
	assert.Equal(t, data[7], uint8(0))

	var x uint8
	for _, b := range data[:63] {
		x ^= b
	}
	assert.Equal(t, data[63], x)
	assert.Equal(t, r.Checksum, x)
	// 0x01 ^ 0x02 ^ '.' ^ '.'
	assert.Equal(t, x, uint8(0x03))
}

func TestNameTruncation(t *testing.T) {
	long := strings.Repeat("n", 80)
	r := NewRecord(2, TypeFile, long)
	assert.Equal(t, len(r.Name), MaxNameLength)

	data := r.Encode()
	assert.Equal(t, data[5+MaxNameLength], uint8(0), "name must stay NUL terminated")

	back, err := Decode(data)
	assert.NilError(t, err)
	assert.Equal(t, back.Name, strings.Repeat("n", MaxNameLength))
}

func TestDecodeRoundTrip(t *testing.T) {
	r := NewRecord(17, TypeFile, "hello.txt")
	data := r.Encode()

	back, err := Decode(data)
	assert.NilError(t, err)
	assert.Equal(t, back, r)
	assert.NilError(t, VerifyChecksum(data))
}

func TestDecodeFreeSlot(t *testing.T) {
	back, err := Decode(make([]byte, Size))
	assert.NilError(t, err)
	assert.Check(t, back.IsFree())
}

func TestDecodeUnterminatedName(t *testing.T) {
	data := make([]byte, Size)
	binary.LittleEndian.PutUint32(data[0:4], 3)
	for i := 5; i < 63; i++ {
		data[i] = 'x'
	}
	back, err := Decode(data)
	assert.NilError(t, err)
	assert.Equal(t, back.Name, strings.Repeat("x", NameSize))
	assert.Check(t, errors.Is(VerifyName(data), errs.ErrNullNotFound))
}

func TestNameTruncationKeepsRunes(t *testing.T) {
	r := NewRecord(2, TypeFile, strings.Repeat("n", 55)+"日本")
	assert.Equal(t, r.Name, strings.Repeat("n", 55))
	assert.NilError(t, VerifyName(r.Encode()))
}

func TestVerifyChecksumDetectsCorruption(t *testing.T) {
	r := NewRecord(5, TypeFile, "a")
	data := r.Encode()
	data[10] = 'z'
	assert.Check(t, errors.Is(VerifyChecksum(data), errs.ErrChecksumMismatch))
}
