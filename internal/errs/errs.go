package errs

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// kindError is a sentinel that also matches one errdefs class, so callers
// can test either errors.Is(err, ErrNoFreeInode) or
// errdefs.IsResourceExhausted(err).
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(msg string, kind error) error {
	return &kindError{msg: msg, kind: kind}
}

// Image integrity.
var ErrInvalidMagic = newKind("invalid magic number", errdefs.ErrDataLoss)
var ErrCorruptImage = newKind("corrupt image", errdefs.ErrDataLoss)
var ErrChecksumMismatch = newKind("checksum mismatch", errdefs.ErrDataLoss)

// Geometry and policy.
var ErrGeometryInfeasible = newKind("geometry infeasible: data region would be empty", errdefs.ErrInvalidArgument)
var ErrSizeOutOfBounds = newKind("image size out of bounds", errdefs.ErrInvalidArgument)
var ErrInodesOutOfBounds = newKind("inode count out of bounds", errdefs.ErrInvalidArgument)
var ErrIncorrectFileName = newKind("incorrect file name", errdefs.ErrInvalidArgument)
var ErrIllegalArgument = newKind("illegal argument", errdefs.ErrInvalidArgument)

// Capacity.
var ErrSourceTooLarge = newKind("source file too large", errdefs.ErrOutOfRange)
var ErrNoFreeInode = newKind("no free inodes", errdefs.ErrResourceExhausted)
var ErrNoFreeDataBlock = newKind("no free data blocks", errdefs.ErrResourceExhausted)
var ErrNoFreeDirectoryEntry = newKind("no free directory entries", errdefs.ErrResourceExhausted)

var ErrRecordNotFound = newKind("record not found", errdefs.ErrNotFound)
var ErrNullNotFound = newKind("null terminator not found", errdefs.ErrDataLoss)

var ErrIO = newKind("i/o failure", errdefs.ErrUnavailable)

// IO wraps a failed open/read/write so that it matches both ErrIO and the
// underlying error.
func IO(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
