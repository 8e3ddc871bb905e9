//go:build !zipr_nodeflate

package zipr

import (
	"io"

	"github.com/klauspost/compress/flate"
)

func init() {
	decompressors[Deflated] = func(src io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(src), nil
	}
}
