package directory

import (
	"fmt"
	"io"

	"minivsfs/internal/errs"
	"minivsfs/internal/filesystem/directory/record"
)

// Directory is one directory data block: a fixed array of record slots.
// Slots are filled append-only into the first free one and never
// compacted, so the raw block is kept and only touched slots are
// re-encoded.
type Directory struct {
	raw     []byte
	records []record.Record
}

// CreateNewDirectory returns a block holding "." and "..".
func CreateNewDirectory(blockSize int, inode uint32, parentInode uint32) *Directory {
	d := &Directory{
		raw:     make([]byte, blockSize),
		records: make([]record.Record, blockSize/record.Size),
	}
	d.put(0, record.NewRecord(inode, record.TypeDirectory, "."))
	d.put(1, record.NewRecord(parentInode, record.TypeDirectory, ".."))
	return d
}

// Decode parses a directory block. Undecodable used slots are an error.
func Decode(block []byte) (*Directory, error) {
	d := &Directory{
		raw:     append([]byte(nil), block...),
		records: make([]record.Record, len(block)/record.Size),
	}
	for i := range d.records {
		rec, err := record.Decode(d.slot(i))
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		d.records[i] = rec
	}
	return d, nil
}

func ReadDirectoryAt(r io.ReaderAt, offset int64, blockSize int) (*Directory, error) {
	block := make([]byte, blockSize)
	if _, err := r.ReadAt(block, offset); err != nil {
		return nil, err
	}
	return Decode(block)
}

func (d *Directory) slot(i int) []byte {
	return d.raw[i*record.Size : (i+1)*record.Size]
}

func (d *Directory) put(i int, rec record.Record) {
	copy(d.slot(i), rec.Encode())
	d.records[i] = rec
}

// FreeSlot returns the first slot whose inode number is 0.
func (d *Directory) FreeSlot() (int, bool) {
	for i, rec := range d.records {
		if rec.IsFree() {
			return i, true
		}
	}
	return -1, false
}

// AddFile stores a file entry in the first free slot and returns the slot.
func (d *Directory) AddFile(inode uint32, name string) (int, error) {
	i, ok := d.FreeSlot()
	if !ok {
		return -1, fmt.Errorf("%w: all %d slots in use", errs.ErrNoFreeDirectoryEntry, len(d.records))
	}
	d.put(i, record.NewRecord(inode, record.TypeFile, name))
	return i, nil
}

// GetRecords returns the used entries in slot order.
func (d *Directory) GetRecords() []record.Record {
	var out []record.Record
	for _, rec := range d.records {
		if !rec.IsFree() {
			out = append(out, rec)
		}
	}
	return out
}

func (d *Directory) Capacity() int {
	return len(d.records)
}

// GetInode returns the inode of the first entry called recordName.
func (d *Directory) GetInode(recordName string) (uint32, error) {
	for _, rec := range d.records {
		if !rec.IsFree() && rec.Name == recordName {
			return rec.Inode, nil
		}
	}
	return 0, fmt.Errorf("%w - %s", errs.ErrRecordNotFound, recordName)
}

// Verify recomputes the checksum of every used slot and checks that its
// name is terminated.
func (d *Directory) Verify() []error {
	var out []error
	for i, rec := range d.records {
		if rec.IsFree() {
			continue
		}
		if err := record.VerifyChecksum(d.slot(i)); err != nil {
			out = append(out, fmt.Errorf("entry %d (%q): %w", i, rec.Name, err))
		}
		if err := record.VerifyName(d.slot(i)); err != nil {
			out = append(out, fmt.Errorf("entry %d: %w", i, err))
		}
	}
	return out
}

// Bytes returns a copy of the encoded block.
func (d *Directory) Bytes() []byte {
	return append([]byte(nil), d.raw...)
}

func (d *Directory) WriteAt(w io.WriterAt, offset int64) error {
	_, err := w.WriteAt(d.raw, offset)
	return err
}
