package utils

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"minivsfs/internal/errs"
)

// BytesToBlock copies data into a zero-filled buffer of blockSize bytes.
// data longer than blockSize is cut.
func BytesToBlock(data []byte, blockSize uint32) []byte {
	block := make([]byte, blockSize)
	copy(block, data)
	return block
}

// CString decodes a NUL-terminated string from a fixed-size field.
func CString(field []byte) (string, error) {
	end := bytes.IndexByte(field, 0)
	if end == -1 {
		return "", fmt.Errorf("%w in %d-byte field", errs.ErrNullNotFound, len(field))
	}
	return string(field[:end]), nil
}

// TruncateName cuts name to at most max bytes, backing up to the start of
// a UTF-8 sequence so that a multibyte rune is never split.
func TruncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	end := max
	for end > 0 && !utf8.RuneStart(name[end]) {
		end--
	}
	return name[:end]
}

// BaseName returns the last element of a host path, the name a file is
// stored under in the image.
func BaseName(path string) (string, error) {
	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("%w - %q", errs.ErrIncorrectFileName, path)
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w - %q contains a NUL byte", errs.ErrIncorrectFileName, path)
	}
	return name, nil
}
