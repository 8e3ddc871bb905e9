package zipr

import (
	"errors"
	"fmt"
	"io"
)

// File is an open entry: its metadata plus a decompressed, CRC32-validated
// byte stream capped at the entry's compressed size.
//
// A File returned by [Archive.ByIndex] or [Archive.ByName] borrows its
// metadata and the archive's source; one returned by [ReadStreamEntry] owns a
// standalone copy. The distinction drives Close: an owned handle drains the
// remaining raw compressed bytes so the shared forward-only source ends up
// positioned exactly after the entry, since nothing else tracks that offset
// in streaming mode. A borrowed handle drains nothing; random access always
// re-seeks absolutely before each open.
type File struct {
	*Entry

	pipe  *pipeline
	owned bool
}

// errReleased is an internal invariant violation, not an archive condition:
// the torn-down pipeline must never be read.
var errReleased = errors.New("zipr: read from released entry")

// Read reads decompressed bytes. Reaching end of stream triggers the CRC32
// comparison; a mismatch is reported as the terminal read error in place of
// io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if f.pipe == nil {
		return 0, errReleased
	}
	return f.pipe.crc.Read(p)
}

// Close releases the entry. Closing an owned (streamed) handle discards the
// decompression and CRC layers and pulls the raw, still length-bounded
// compressed stream to exhaustion. Close is idempotent.
func (f *File) Close() error {
	if f.pipe == nil {
		return nil
	}
	p := f.pipe
	f.pipe = nil

	err := p.dec.Close()

	if f.owned {
		if _, derr := io.Copy(io.Discard, p.raw); derr != nil {
			return fmt.Errorf("drain entry error: %w", derr)
		}
	}

	return err
}
