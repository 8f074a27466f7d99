package record

import (
	"encoding/binary"
	"fmt"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/checksum"
	"minivsfs/internal/utils"
)

const (
	Size     = 64
	NameSize = 58
	// MaxNameLength leaves room for the terminating NUL.
	MaxNameLength = NameSize - 1

	TypeFile      = 1
	TypeDirectory = 2

	checksumOffset = Size - 1
)

type Record struct {
	Inode    uint32
	Type     uint8
	Name     string
	Checksum uint8
}

// NewRecord truncates name to at most MaxNameLength bytes without
// splitting a UTF-8 sequence.
func NewRecord(inode uint32, recordType uint8, name string) Record {
	name = utils.TruncateName(name, MaxNameLength)
	return Record{
		Inode: inode,
		Type:  recordType,
		Name:  name,
	}
}

func (r Record) IsFree() bool {
	return r.Inode == 0
}

func (r Record) IsDirectory() bool {
	return r.Type == TypeDirectory
}

// Encode serializes the record and finalizes its checksum.
func (r *Record) Encode() []byte {
	data := make([]byte, Size)

	binary.LittleEndian.PutUint32(data[0:4], r.Inode)
	data[4] = r.Type
	copy(data[5:5+MaxNameLength], r.Name)

	r.Checksum = ComputeChecksum(data)
	data[checksumOffset] = r.Checksum
	return data
}

func Decode(data []byte) (Record, error) {
	if len(data) < Size {
		return Record{}, fmt.Errorf("%w: directory entry of %d bytes", errs.ErrCorruptImage, len(data))
	}
	r := Record{
		Inode:    binary.LittleEndian.Uint32(data[0:4]),
		Type:     data[4],
		Checksum: data[checksumOffset],
	}
	if r.IsFree() {
		return r, nil
	}
	// An unterminated name keeps all NameSize bytes; VerifyName reports it.
	name, err := utils.CString(data[5 : 5+NameSize])
	if err != nil {
		name = string(data[5 : 5+NameSize])
	}
	r.Name = name
	return r, nil
}

// VerifyName checks that the name field of a used entry is NUL terminated.
func VerifyName(data []byte) error {
	if _, err := utils.CString(data[5 : 5+NameSize]); err != nil {
		return fmt.Errorf("directory entry for inode %d: %w", binary.LittleEndian.Uint32(data[0:4]), err)
	}
	return nil
}

// ComputeChecksum XORs the inode number, type and name bytes.
func ComputeChecksum(data []byte) uint8 {
	return checksum.XOR8(data[:checksumOffset])
}

func VerifyChecksum(data []byte) error {
	if got := ComputeChecksum(data); got != data[checksumOffset] {
		return fmt.Errorf("%w: directory entry stores %#02x, computed %#02x", errs.ErrChecksumMismatch, data[checksumOffset], got)
	}
	return nil
}
