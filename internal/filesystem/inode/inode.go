package inode

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/checksum"
	"minivsfs/internal/filesystem/user"
)

const (
	ModeDirectory = 0x4000
	ModeFile      = 0x8000

	Size         = 128
	DirectBlocks = 12

	// DefaultProjectId is the project id the reference tools stamp on
	// every inode they create.
	DefaultProjectId = 9

	checksumOffset = 120
)

type Inode struct {
	Mode             uint16
	Links            uint16
	UserId           uint32
	GroupId          uint32
	FileSize         uint64
	AccessTime       uint64
	ModificationTime uint64
	CreationTime     uint64
	Blocks           [DirectBlocks]uint32
	Reserved0        uint32
	Reserved1        uint32
	ProjectId        uint32
	Uid16Gid16       uint32
	XattrPtr         uint64
	Padding          uint32
	Checksum         uint64
}

// NewInode builds a file or directory inode owned by owner. All three
// timestamps are set to now; dataBlocks beyond DirectBlocks are ignored.
func NewInode(
	isFile bool,
	owner user.User,
	projectId uint32,
	fileSize uint64,
	now time.Time,
	dataBlocks []uint32,
) *Inode {
	var blocks [DirectBlocks]uint32
	for i, dataBlock := range dataBlocks {
		if i >= DirectBlocks {
			break
		}
		blocks[i] = dataBlock
	}

	mode := uint16(ModeDirectory)
	links := uint16(2)
	if isFile {
		mode = ModeFile
		links = 1
	}

	ts := uint64(now.Unix())
	return &Inode{
		Mode:             mode,
		Links:            links,
		UserId:           owner.UserId,
		GroupId:          owner.GroupId,
		FileSize:         fileSize,
		AccessTime:       ts,
		ModificationTime: ts,
		CreationTime:     ts,
		Blocks:           blocks,
		ProjectId:        projectId,
	}
}

func (inode Inode) IsFile() bool {
	return inode.Mode&ModeFile != 0
}

func (inode Inode) IsDirectory() bool {
	return inode.Mode&ModeDirectory != 0
}

// InUse reports whether the slot holds anything at all.
func (inode Inode) InUse() bool {
	return inode.Mode != 0
}

func (inode Inode) GetTypeString() string {
	switch {
	case inode.IsDirectory():
		return "d"
	case inode.IsFile():
		return "-"
	default:
		return "?"
	}
}

// Encode serializes the inode and finalizes its checksum. Call it only
// after every other field is set.
func (inode *Inode) Encode() []byte {
	data := make([]byte, Size)
	inode.Checksum = 0
	inode.encode(data)
	inode.Checksum = uint64(ComputeChecksum(data))
	binary.LittleEndian.PutUint64(data[checksumOffset:], inode.Checksum)
	return data
}

func (inode Inode) encode(data []byte) {
	le := binary.LittleEndian
	le.PutUint16(data[0:2], inode.Mode)
	le.PutUint16(data[2:4], inode.Links)
	le.PutUint32(data[4:8], inode.UserId)
	le.PutUint32(data[8:12], inode.GroupId)
	le.PutUint64(data[12:20], inode.FileSize)
	le.PutUint64(data[20:28], inode.AccessTime)
	le.PutUint64(data[28:36], inode.ModificationTime)
	le.PutUint64(data[36:44], inode.CreationTime)

	for i := 0; i < DirectBlocks; i++ {
		offset := 44 + i*4
		le.PutUint32(data[offset:offset+4], inode.Blocks[i])
	}

	le.PutUint32(data[92:96], inode.Reserved0)
	le.PutUint32(data[96:100], inode.Reserved1)
	le.PutUint32(data[100:104], inode.ProjectId)
	le.PutUint32(data[104:108], inode.Uid16Gid16)
	le.PutUint64(data[108:116], inode.XattrPtr)
	le.PutUint32(data[116:120], inode.Padding)
	le.PutUint64(data[120:128], inode.Checksum)
}

func decodeInode(data []byte) *Inode {
	le := binary.LittleEndian
	inode := Inode{}

	inode.Mode = le.Uint16(data[0:2])
	inode.Links = le.Uint16(data[2:4])
	inode.UserId = le.Uint32(data[4:8])
	inode.GroupId = le.Uint32(data[8:12])
	inode.FileSize = le.Uint64(data[12:20])
	inode.AccessTime = le.Uint64(data[20:28])
	inode.ModificationTime = le.Uint64(data[28:36])
	inode.CreationTime = le.Uint64(data[36:44])

	for i := 0; i < DirectBlocks; i++ {
		offset := 44 + i*4
		inode.Blocks[i] = le.Uint32(data[offset : offset+4])
	}

	inode.Reserved0 = le.Uint32(data[92:96])
	inode.Reserved1 = le.Uint32(data[96:100])
	inode.ProjectId = le.Uint32(data[100:104])
	inode.Uid16Gid16 = le.Uint32(data[104:108])
	inode.XattrPtr = le.Uint64(data[108:116])
	inode.Padding = le.Uint32(data[116:120])
	inode.Checksum = le.Uint64(data[120:128])

	return &inode
}

// Decode parses one 128-byte record without verifying it.
func Decode(data []byte) (*Inode, error) {
	if len(data) < Size {
		return nil, fmt.Errorf("%w: inode record of %d bytes", errs.ErrCorruptImage, len(data))
	}
	return decodeInode(data), nil
}

// ComputeChecksum returns the CRC32 of the first 120 bytes of a record.
// The trailing 8-byte checksum field is outside the covered range.
func ComputeChecksum(data []byte) uint32 {
	return checksum.CRC32(data[:checksumOffset])
}

// VerifyChecksum compares the stored checksum with one recomputed from
// the raw record. The high 32 bits of the field must be zero.
func VerifyChecksum(data []byte) error {
	stored := binary.LittleEndian.Uint64(data[checksumOffset:Size])
	if got := uint64(ComputeChecksum(data)); got != stored {
		return fmt.Errorf("%w: inode stores %#016x, computed %#016x", errs.ErrChecksumMismatch, stored, got)
	}
	return nil
}

func ReadInodeAt(r io.ReaderAt, offset int64) (*Inode, error) {
	data := make([]byte, Size)
	if _, err := r.ReadAt(data, offset); err != nil {
		return nil, err
	}
	return decodeInode(data), nil
}

func (inode *Inode) WriteAt(w io.WriterAt, offset int64) error {
	_, err := w.WriteAt(inode.Encode(), offset)
	return err
}
