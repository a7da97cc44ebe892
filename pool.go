package netpbm

import (
	"sync"
)

// Row buffer pooling to keep per-row allocations out of hot loops.
// Buffers come in three size classes matched to typical row lengths:
// a packed bilevel row stays small even for very wide images, while
// 16-bit multi-sample rows can run to megabytes.

type rowBufferPool struct {
	// Small buffers (up to 4KB) - packed rows up to 32768 pixels wide
	small sync.Pool
	// Medium buffers (up to 64KB) - raw sample rows for common widths
	medium sync.Pool
	// Large buffers (up to 1MB) - wide 16-bit multi-sample rows
	large sync.Pool
}

const (
	smallRowSize  = 4 * 1024
	mediumRowSize = 64 * 1024
	largeRowSize  = 1024 * 1024
)

var rowPool = &rowBufferPool{
	small: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallRowSize)
			return &buf
		},
	},
	medium: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, mediumRowSize)
			return &buf
		},
	},
	large: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeRowSize)
			return &buf
		},
	},
}

// GetRowBuffer returns a byte slice of exactly the requested length
// from the pool; its backing array may be larger. Call PutRowBuffer
// when done to return it to the pool.
func GetRowBuffer(size int) []byte {
	if size <= smallRowSize {
		bufPtr := rowPool.small.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	if size <= mediumRowSize {
		bufPtr := rowPool.medium.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	if size <= largeRowSize {
		bufPtr := rowPool.large.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	// Rows beyond the largest class are allocated directly.
	return make([]byte, size)
}

// GetSampleBuffer returns a uint16 slice of exactly the requested
// length for decoded sample rows. Call PutSampleBuffer when done.
func GetSampleBuffer(size int) []uint16 {
	bufPtr := samplePool.Get().(*[]uint16)
	if cap(*bufPtr) < size {
		samplePool.Put(bufPtr)
		return make([]uint16, size)
	}
	return (*bufPtr)[:size]
}

// PutSampleBuffer returns a buffer obtained from GetSampleBuffer to
// the pool. The buffer must not be used after this call.
func PutSampleBuffer(buf []uint16) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:cap(buf)]
	samplePool.Put(&buf)
}

var samplePool = sync.Pool{
	New: func() interface{} {
		buf := make([]uint16, smallRowSize)
		return &buf
	},
}

// PutRowBuffer returns a buffer obtained from GetRowBuffer to the pool.
// The buffer must not be used after this call.
func PutRowBuffer(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	// Restore full capacity for the next borrower.
	buf = buf[:c]

	switch c {
	case smallRowSize:
		rowPool.small.Put(&buf)
	case mediumRowSize:
		rowPool.medium.Put(&buf)
	case largeRowSize:
		rowPool.large.Put(&buf)
	}
	// Directly allocated (oversized) buffers are left to the GC.
}
