package zipr

import (
	"fmt"
	"io"
)

// Method is a ZIP compression method tag.
type Method uint16

const (
	// Stored means no transform; the entry bytes are kept verbatim.
	Stored Method = 0
	// Deflated is raw DEFLATE (RFC 1951).
	Deflated Method = 8
	// Bzip2 is bzip2 compression.
	Bzip2 Method = 12
)

func (m Method) String() string {
	switch m {
	case Stored:
		return "stored"
	case Deflated:
		return "deflated"
	case Bzip2:
		return "bzip2"
	default:
		return fmt.Sprintf("unknown (%d)", uint16(m))
	}
}

// decompressorFn builds the byte-transform stage of an entry pipeline over the
// length-bounded compressed stream.
type decompressorFn func(src io.Reader) (io.ReadCloser, error)

// decompressors is the closed capability registry. Stored is always present;
// deflate.go and bzip2.go register their methods unless excluded at build time
// (build tags zipr_nodeflate, zipr_nobzip2). Selecting a method without a
// registered decompressor fails as unsupported before any byte is read.
var decompressors = map[Method]decompressorFn{
	Stored: func(src io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(src), nil
	},
}

// newPipeline wraps the bounded compressed stream in the decompressor for
// method and a CRC32 shim comparing against want at end of stream.
func newPipeline(method Method, want uint32, raw io.Reader) (*pipeline, error) {
	fn, ok := decompressors[method]
	if !ok {
		return nil, fmt.Errorf("%w: compression method %v", ErrUnsupported, method)
	}

	dec, err := fn(raw)
	if err != nil {
		return nil, fmt.Errorf("create %v reader error: %w", method, err)
	}

	return &pipeline{
		raw: raw,
		dec: dec,
		crc: newCRC32Reader(dec, want),
	}, nil
}

// pipeline is a constructed entry pipeline: the length-bounded raw compressed
// stream, the decompressor over it, and the CRC32 shim over that. Reads always
// go through crc; raw is retained so that release of an owned handle can drain
// the remaining compressed bytes without decompressing them.
type pipeline struct {
	raw io.Reader
	dec io.ReadCloser
	crc *crc32Reader
}
