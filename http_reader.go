package netpbm

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// Default chunk size for range-request reads (256KB)
const defaultChunkSize = 256 * 1024

// HTTPReader implements io.Reader over HTTP range requests. PNM
// decoding is strictly sequential, so the reader fetches fixed-size
// chunks ahead of the consumer instead of offering random access.
type HTTPReader struct {
	url    string
	client *fasthttp.Client
	size   int64 // content length, -1 if unknown
	mu     sync.Mutex
	pos    int64

	chunk      []byte
	chunkStart int64 // position of chunk[0] in the stream, -1 when empty
	chunkSize  int
}

// NewHTTPReader creates a reader streaming the resource at url. A nil
// client gets a default with 30 second timeouts.
func NewHTTPReader(url string, client *fasthttp.Client) *HTTPReader {
	if client == nil {
		client = &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}

	hr := &HTTPReader{
		url:        url,
		client:     client,
		chunkSize:  defaultChunkSize,
		chunkStart: -1,
	}
	hr.size = hr.probeSize()
	return hr
}

// SetChunkSize sets the range-request chunk size. Larger chunks mean
// fewer round trips at the cost of memory.
func (hr *HTTPReader) SetChunkSize(size int) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	if size > 0 {
		hr.chunkSize = size
	}
}

// Size returns the resource size, or -1 if the server did not report one.
func (hr *HTTPReader) Size() int64 {
	return hr.size
}

// probeSize gets the resource size with a HEAD request.
func (hr *HTTPReader) probeSize() int64 {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(hr.url)
	req.Header.SetMethod("HEAD")

	if err := hr.client.Do(req, resp); err != nil {
		return -1
	}
	if n := resp.Header.ContentLength(); n > 0 {
		return int64(n)
	}
	return -1
}

// Read serves from the current chunk, fetching the next one when the
// consumer runs past its end.
func (hr *HTTPReader) Read(p []byte) (int, error) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	if hr.size > 0 && hr.pos >= hr.size {
		return 0, io.EOF
	}

	if hr.chunkStart < 0 || hr.pos < hr.chunkStart || hr.pos >= hr.chunkStart+int64(len(hr.chunk)) {
		if err := hr.fetchChunk(); err != nil {
			return 0, err
		}
		if len(hr.chunk) == 0 {
			return 0, io.EOF
		}
	}

	off := int(hr.pos - hr.chunkStart)
	n := copy(p, hr.chunk[off:])
	hr.pos += int64(n)
	return n, nil
}

// fetchChunk downloads the chunk starting at the current position.
func (hr *HTTPReader) fetchChunk() error {
	end := hr.pos + int64(hr.chunkSize) - 1
	if hr.size > 0 && end >= hr.size {
		end = hr.size - 1
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(hr.url)
	req.Header.SetMethod("GET")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", hr.pos, end))

	if err := hr.client.Do(req, resp); err != nil {
		return fmt.Errorf("range request at %d: %w", hr.pos, err)
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusPartialContent && status != fasthttp.StatusOK {
		return fmt.Errorf("range request at %d: unexpected status code %d", hr.pos, status)
	}

	// The response body is released with resp, so keep our own copy.
	body := resp.Body()
	if cap(hr.chunk) >= len(body) {
		hr.chunk = hr.chunk[:len(body)]
	} else {
		hr.chunk = make([]byte, len(body))
	}
	copy(hr.chunk, body)

	if status == fasthttp.StatusOK {
		// Server ignored the Range header and sent the whole resource.
		hr.chunkStart = 0
		hr.size = int64(len(hr.chunk))
	} else {
		hr.chunkStart = hr.pos
	}
	return nil
}
