package netpbm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Writer encodes a PNM/PAM stream row by row. The header is written by
// NewWriter, before the first row, so a sink that wraps a Writer sees
// the enlarged extent up front.
//
// Output is always a raw-format stream: plain input formats are
// normalized to their raw counterparts.
type Writer struct {
	bw      *bufio.Writer
	header  Header
	row     int
	scratch []byte
}

// NewWriter writes the header described by h to w and returns a row
// writer for the pixel data that must follow.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	switch h.Format {
	case FormatPBMPlain:
		h.Format = FormatPBMRaw
	case FormatPGMPlain:
		h.Format = FormatPGMRaw
	case FormatPPMPlain:
		h.Format = FormatPPMRaw
	}

	if h.Width < 1 || h.Height < 1 {
		return nil, fmt.Errorf("invalid image dimensions: %d x %d", h.Width, h.Height)
	}

	pw := &Writer{bw: bufio.NewWriter(w), header: h}

	switch h.Format {
	case FormatPBMRaw:
		fmt.Fprintf(pw.bw, "P4\n%d %d\n", h.Width, h.Height)
	case FormatPGMRaw, FormatPPMRaw:
		if h.Maxval < 1 || h.Maxval > MaxSampleValue {
			return nil, fmt.Errorf("invalid maxval: %d", h.Maxval)
		}
		fmt.Fprintf(pw.bw, "%s\n%d %d\n%d\n", h.Format, h.Width, h.Height, h.Maxval)
	case FormatPAM:
		if h.Depth < 1 {
			return nil, fmt.Errorf("invalid PAM depth: %d", h.Depth)
		}
		if h.Maxval < 1 || h.Maxval > MaxSampleValue {
			return nil, fmt.Errorf("invalid maxval: %d", h.Maxval)
		}
		fmt.Fprintf(pw.bw, "P7\nWIDTH %d\nHEIGHT %d\nDEPTH %d\nMAXVAL %d\n", h.Width, h.Height, h.Depth, h.Maxval)
		if h.TupleType != "" {
			fmt.Fprintf(pw.bw, "TUPLTYPE %s\n", h.TupleType)
		}
		fmt.Fprintf(pw.bw, "ENDHDR\n")
	default:
		return nil, fmt.Errorf("unsupported output format: %s", h.Format)
	}

	if err := pw.bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return pw, nil
}

// Header returns the header the Writer emitted.
func (w *Writer) Header() Header {
	return w.header
}

// WriteRow writes one packed bilevel row. The row must be exactly
// PackedRowLen(width) bytes; callers expanding into an oversized buffer
// pass the exact-length prefix.
func (w *Writer) WriteRow(row []byte) error {
	if w.header.Format != FormatPBMRaw {
		return fmt.Errorf("packed rows are not valid for %s streams", w.header.Format)
	}
	if len(row) != PackedRowLen(w.header.Width) {
		return fmt.Errorf("row length %d does not match a %d-pixel packed row", len(row), w.header.Width)
	}
	if _, err := w.bw.Write(row); err != nil {
		return fmt.Errorf("row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

// WriteSampleRow writes one row of Width*Depth samples.
func (w *Writer) WriteSampleRow(row []uint16) error {
	return w.WriteSampleRowMult(row, 1)
}

// WriteSampleRowMult writes the same sample row n times. The row is
// encoded once and the encoded bytes are repeated, so vertical
// replication costs no recomputation.
func (w *Writer) WriteSampleRowMult(row []uint16, n int) error {
	h := w.header
	if h.Format == FormatPBMRaw {
		return fmt.Errorf("sample rows are not valid for %s streams", h.Format)
	}
	want := h.Width * h.Depth
	if len(row) < want {
		return fmt.Errorf("sample row too short: %d values for a %d x %d row", len(row), h.Width, h.Depth)
	}

	bytesPerSample := 1
	if h.Maxval > 255 {
		bytesPerSample = 2
	}
	need := want * bytesPerSample
	if cap(w.scratch) < need {
		w.scratch = make([]byte, need)
	}
	buf := w.scratch[:need]

	if bytesPerSample == 1 {
		for i := 0; i < want; i++ {
			buf[i] = byte(row[i])
		}
	} else {
		for i := 0; i < want; i++ {
			binary.BigEndian.PutUint16(buf[i*2:i*2+2], row[i])
		}
	}

	for i := 0; i < n; i++ {
		if _, err := w.bw.Write(buf); err != nil {
			return fmt.Errorf("row %d: %w", w.row, err)
		}
		w.row++
	}
	return nil
}

// Flush flushes buffered pixel data to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}
