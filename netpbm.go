// Package netpbm reads, writes and scales images in the netpbm
// container formats (PBM, PGM, PPM and PAM, plain and raw variants).
//
// The package decodes streams row by row rather than loading whole
// images, so arbitrarily tall images process in constant memory.
// Bilevel (PBM) rows stay in their packed bit-per-byte representation
// end to end; the integer scaling engine in this package enlarges
// packed rows directly with table-driven bit expansion instead of
// unpacking to one sample per pixel.
//
// Inputs can come from local files, standard input, or HTTP(S) URLs
// (streamed with range requests), and gzip- or zstd-compressed streams
// are decompressed transparently.
package netpbm

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fasthttp"
)

// Open opens a PNM image from a local path, an HTTP(S) URL, or
// standard input when pathOrURL is "-". The header is parsed before
// Open returns. A nil client is fine; it only applies to URLs.
//
// The caller must Close the returned reader.
func Open(pathOrURL string, client *fasthttp.Client) (*Reader, error) {
	if pathOrURL == "-" {
		return NewReader(os.Stdin)
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return NewReader(NewHTTPReader(pathOrURL, client))
	}

	f, err := os.Open(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", pathOrURL, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", pathOrURL, err)
	}
	r.closer = f
	return r, nil
}
