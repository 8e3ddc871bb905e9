package zipr

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// crc32Reader tallies a running CRC32 over the bytes it delivers and, on the
// read that reaches end of stream, compares it against the declared value.
// A mismatch replaces io.EOF with ErrChecksum; a consumer that stops reading
// early never observes it.
type crc32Reader struct {
	r    io.Reader
	hash hash.Hash32
	want uint32
}

func newCRC32Reader(r io.Reader, want uint32) *crc32Reader {
	return &crc32Reader{
		r:    r,
		hash: crc32.NewIEEE(),
		want: want,
	}
}

func (c *crc32Reader) Read(p []byte) (n int, err error) {
	n, err = c.r.Read(p)
	_, _ = c.hash.Write(p[:n])

	if errors.Is(err, io.EOF) && c.hash.Sum32() != c.want {
		return n, fmt.Errorf("%w: got 0x%08x, declared 0x%08x", ErrChecksum, c.hash.Sum32(), c.want)
	}

	return n, err
}
