//go:build !zipr_nobzip2

package zipr

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

func init() {
	decompressors[Bzip2] = func(src io.Reader) (io.ReadCloser, error) {
		return bzip2.NewReader(src, nil)
	}
}
