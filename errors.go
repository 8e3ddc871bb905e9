package zipr

import "errors"

var (
	// ErrFormat is returned when the input is structurally not a valid ZIP archive:
	// a missing end-of-central-directory record, a mismatched header signature, or
	// directory size/offset arithmetic that cannot be reconciled.
	ErrFormat = errors.New("zipr: not a valid zip archive")

	// ErrUnsupported is returned for archives or entries that are recognized but
	// not implemented: encryption, multi-disk archives, data-descriptor streaming,
	// and compression methods without a registered decompressor.
	ErrUnsupported = errors.New("zipr: unsupported archive feature")

	// ErrNotFound is returned by [Archive.ByIndex] and [Archive.ByName] when the
	// index is out of range or no entry has the given name. It is always
	// distinguishable from corruption.
	ErrNotFound = errors.New("zipr: entry not found")

	// ErrChecksum is returned by [File.Read] when the accumulated CRC32 of the
	// decompressed bytes does not match the declared value. It surfaces only on
	// the read that reaches end of stream, never earlier.
	ErrChecksum = errors.New("zipr: checksum mismatch")
)
