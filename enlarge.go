package netpbm

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// RowSlack is the number of extra bytes an expanded-row buffer must
// carry beyond its exact packed length. The table-driven expanders for
// factors 2, 3 and 5 emit whole output bytes per source byte, so the
// last source byte of a row can push up to 4 bytes past the exact
// output length. Those bytes are never read back, but the buffer must
// exist for the writes to land in.
const RowSlack = 4

// ErrInvalidScaleFactor is returned for scale factors below 1.
var ErrInvalidScaleFactor = errors.New("scale factor must be an integer at least 1")

// OverflowError reports a scale factor whose output extent would
// overflow signed integer arithmetic for the given input dimensions.
type OverflowError struct {
	Width, Height  int
	ScaleFactor    int
	MaxScaleFactor int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("scale factor %d too large: the maximum for a %d x %d input image is %d",
		e.ScaleFactor, e.Width, e.Height, e.MaxScaleFactor)
}

// maxDimension keeps a safety margin below the platform integer
// ceiling, so width*scale and height*scale stay computable everywhere
// downstream.
const maxDimension = math.MaxInt - 2

// ValidateScale proves that width*scaleFactor and height*scaleFactor
// cannot overflow, or rejects the request with an *OverflowError
// carrying the largest admissible factor. It must run before anything
// multiplies a dimension by the scale factor.
func ValidateScale(width, height, scaleFactor int) error {
	if scaleFactor < 1 {
		return ErrInvalidScaleFactor
	}
	if width < 1 || height < 1 {
		return fmt.Errorf("invalid image dimensions: %d x %d", width, height)
	}
	long := width
	if height > long {
		long = height
	}
	maxScale := maxDimension / long
	if scaleFactor > maxScale {
		return &OverflowError{
			Width:          width,
			Height:         height,
			ScaleFactor:    scaleFactor,
			MaxScaleFactor: maxScale,
		}
	}
	return nil
}

// Expansion tables for the small-factor fast paths. Each table maps a
// small group of source bits to the output byte in which every source
// bit appears replicated, at the bit positions the factor dictates.
// pair maps two source bits to both bits replicated across a full
// 16-bit pattern; the general path shifts it into place.
var (
	dbl = [16]byte{
		0x00, 0x03, 0x0C, 0x0F, 0x30, 0x33, 0x3C, 0x3F,
		0xC0, 0xC3, 0xCC, 0xCF, 0xF0, 0xF3, 0xFC, 0xFF,
	}

	trp1 = [8]byte{0x00, 0x03, 0x1C, 0x1F, 0xE0, 0xE3, 0xFC, 0xFF}

	trp2 = [16]byte{
		0x00, 0x01, 0x0E, 0x0F, 0x70, 0x71, 0x7E, 0x7F,
		0x80, 0x81, 0x8E, 0x8F, 0xF0, 0xF1, 0xFE, 0xFF,
	}

	trp3 = [8]byte{0x00, 0x07, 0x38, 0x3F, 0xC0, 0xC7, 0xF8, 0xFF}

	quin2 = [8]byte{0x00, 0x01, 0x3E, 0x3F, 0xC0, 0xC1, 0xFE, 0xFF}

	quin4 = [8]byte{0x00, 0x03, 0x7C, 0x7F, 0x80, 0x83, 0xFC, 0xFF}

	pair = [4]uint16{0x0000, 0x00FF, 0xFF00, 0xFFFF}
)

// rowExpander turns one packed source row into one packed output row.
// Implementations are stateless; the same value may serve any number of
// rows, or concurrent callers.
type rowExpander interface {
	// expand writes the packed expansion of src's first width pixels
	// into dst. dst must hold maxExpandedLen bytes for the factor.
	expand(dst, src []byte, width int)

	// maxExpandedLen returns the largest byte offset expand may write
	// up to, which for the table-driven factors exceeds the exact
	// packed output length by up to RowSlack bytes.
	maxExpandedLen(width int) int
}

// newRowExpander selects the expansion strategy for a scale factor:
// identity for 1, precomputed tables for 2, 3 and 5, and the
// output-byte-driven general form for everything else.
func newRowExpander(scaleFactor int) rowExpander {
	switch scaleFactor {
	case 1:
		return identityExpander{}
	case 2:
		return doubleExpander{}
	case 3:
		return tripleExpander{}
	case 5:
		return quintupleExpander{}
	default:
		return generalExpander{factor: scaleFactor}
	}
}

type identityExpander struct{}

func (identityExpander) expand(dst, src []byte, width int) {
	copy(dst[:PackedRowLen(width)], src)
}

func (identityExpander) maxExpandedLen(width int) int {
	return PackedRowLen(width)
}

// doubleExpander emits two output bytes per source byte; each output
// byte is determined by one nibble of input.
type doubleExpander struct{}

func (doubleExpander) expand(dst, src []byte, width int) {
	n := PackedRowLen(width)
	for i := 0; i < n; i++ {
		b := src[i]
		dst[i*2] = dbl[b>>4]
		dst[i*2+1] = dbl[b&0x0F]
	}
}

func (doubleExpander) maxExpandedLen(width int) int {
	return 2 * PackedRowLen(width)
}

// tripleExpander emits three output bytes per source byte. 8 source
// bits do not divide evenly into 24 output bits at byte boundaries, so
// the middle table is keyed by a bit group straddling both nibbles.
type tripleExpander struct{}

func (tripleExpander) expand(dst, src []byte, width int) {
	n := PackedRowLen(width)
	for i := 0; i < n; i++ {
		b := src[i]
		dst[i*3] = trp1[b>>5]
		dst[i*3+1] = trp2[(b>>2)&0x0F]
		dst[i*3+2] = trp3[b&0x07]
	}
}

func (tripleExpander) maxExpandedLen(width int) int {
	return 3 * PackedRowLen(width)
}

// quintupleExpander emits five output bytes per source byte, mixing
// 3-bit group tables with shifted two-bit pair patterns for the output
// bytes that a single source bit dominates.
type quintupleExpander struct{}

func (quintupleExpander) expand(dst, src []byte, width int) {
	n := PackedRowLen(width)
	for i := 0; i < n; i++ {
		b := src[i]
		dst[i*5] = byte(pair[(b>>6)&0x03] >> 5)
		dst[i*5+1] = quin2[(b>>4)&0x07]
		dst[i*5+2] = byte(pair[(b>>3)&0x03] >> 4)
		dst[i*5+3] = quin4[(b>>1)&0x07]
		dst[i*5+4] = byte(pair[b&0x03] >> 3)
	}
}

func (quintupleExpander) maxExpandedLen(width int) int {
	return 5 * PackedRowLen(width)
}

// generalExpander handles every factor of 4 and above (5 excepted, which
// has its own table). It iterates output byte indices: with at least 4
// output bits per source bit, at most two consecutive source bits
// influence any one output byte, so each byte is either a solid
// replication of one bit or a shifted two-bit pair pattern. Cost is one
// lookup and one shift per output byte regardless of the factor, and no
// write ever lands past the exact output length.
type generalExpander struct {
	factor int
}

func (g generalExpander) expand(dst, src []byte, width int) {
	mult := g.factor
	out := PackedRowLen(width * mult)
	for j := 0; j < out; j++ {
		mod := j % mult
		bit := (mod * 8) / mult
		// offset: how many of this output byte's bits, from its
		// leftmost, come from that same source bit.
		offset := mult - (mod*8)%mult

		if offset >= 8 {
			dst[j] = 0xFF * (src[j/mult] >> (7 - bit) & 0x01)
		} else {
			dst[j] = byte(pair[src[j/mult]>>(6-bit)&0x03] >> offset)
		}
	}
}

func (g generalExpander) maxExpandedLen(width int) int {
	return PackedRowLen(width * g.factor)
}

// ExpandRow expands one packed bilevel row horizontally by scaleFactor,
// writing the packed result into dst. src must hold PackedRowLen(width)
// bytes with its trailing padding bits cleared (see ClearRowPadding);
// dst must hold PackedRowLen(width*scaleFactor)+RowSlack bytes when
// scaleFactor is 2, 3 or 5, and the exact packed length otherwise. Only
// the exact packed length of dst is meaningful afterwards.
func ExpandRow(dst, src []byte, width, scaleFactor int) error {
	if err := ValidateScale(width, 1, scaleFactor); err != nil {
		return err
	}
	if len(src) < PackedRowLen(width) {
		return fmt.Errorf("source row too short: %d bytes for %d pixels", len(src), width)
	}
	exp := newRowExpander(scaleFactor)
	if need := exp.maxExpandedLen(width); len(dst) < need {
		return fmt.Errorf("output row too short: %d bytes, need %d (including slack)", len(dst), need)
	}
	exp.expand(dst, src, width)
	return nil
}

// ClearRowPadding zeroes the bits of a packed row's last byte beyond
// width. Uncleared padding would be replicated into real pixel
// positions of the scaled row, because the table expanders consume
// whole source bytes.
func ClearRowPadding(row []byte, width int) {
	if width%8 != 0 {
		row[PackedRowLen(width)-1] &= 0xFF << (8 - width%8)
	}
}

// RowSource yields packed bilevel rows in top-to-bottom order. Each
// call fills exactly PackedRowLen(width) bytes of buf.
type RowSource interface {
	ReadRow(buf []byte) error
}

// RowSink accepts packed bilevel rows in top-to-bottom order.
type RowSink interface {
	WriteRow(row []byte) error
}

// EnlargePacked streams a bilevel image of the given extent from src to
// dst, scaled by scaleFactor in both axes without ever unpacking rows.
// Each source row is read once, expanded horizontally once, and written
// scaleFactor times; the sink therefore receives height*scaleFactor
// rows of PackedRowLen(width*scaleFactor) bytes each.
//
// Any failure is terminal: row errors carry the failing row index, and
// a truncated source surfaces as io.ErrUnexpectedEOF via errors.Is.
func EnlargePacked(src RowSource, dst RowSink, width, height, scaleFactor int) error {
	if err := ValidateScale(width, height, scaleFactor); err != nil {
		return err
	}

	inLen := PackedRowLen(width)
	outLen := PackedRowLen(width * scaleFactor)
	exp := newRowExpander(scaleFactor)

	inrow := GetRowBuffer(inLen)
	defer PutRowBuffer(inrow)

	// For factor 1 the expanded row is the input row itself.
	outrow := inrow
	if scaleFactor > 1 {
		outrow = GetRowBuffer(exp.maxExpandedLen(width) + RowSlack)
		defer PutRowBuffer(outrow)
	}

	for row := 0; row < height; row++ {
		if err := src.ReadRow(inrow); err != nil {
			return fmt.Errorf("source row %d: %w", row, err)
		}
		ClearRowPadding(inrow, width)

		if scaleFactor > 1 {
			exp.expand(outrow, inrow, width)
		}

		for i := 0; i < scaleFactor; i++ {
			if err := dst.WriteRow(outrow[:outLen]); err != nil {
				return fmt.Errorf("output row %d: %w", row*scaleFactor+i, err)
			}
		}
	}
	return nil
}

// Enlarge reads the image from r and writes it to w scaled by
// scaleFactor in both axes. Bilevel streams take the packed fast path;
// everything else goes through plain sample replication. The output
// header, with the enlarged extent, is written before the first row.
func Enlarge(r *Reader, w io.Writer, scaleFactor int) error {
	h := r.Header()
	if err := ValidateScale(h.Width, h.Height, scaleFactor); err != nil {
		return err
	}

	out := h
	out.Width = h.Width * scaleFactor
	out.Height = h.Height * scaleFactor

	pw, err := NewWriter(w, out)
	if err != nil {
		return err
	}

	if h.Format.IsBilevel() {
		err = EnlargePacked(r, pw, h.Width, h.Height, scaleFactor)
	} else {
		err = enlargeSampleRows(r, pw, scaleFactor)
	}
	if err != nil {
		return err
	}
	return pw.Flush()
}

// enlargeSampleRows is the generic path for multi-sample formats:
// pointer-free sample replication, one reusable row in each direction.
func enlargeSampleRows(r *Reader, w *Writer, scaleFactor int) error {
	h := r.Header()
	in := make([]uint16, h.Width*h.Depth)
	out := make([]uint16, h.Width*scaleFactor*h.Depth)

	for row := 0; row < h.Height; row++ {
		if err := r.ReadSampleRow(in); err != nil {
			return fmt.Errorf("source row %d: %w", row, err)
		}
		for col := 0; col < h.Width; col++ {
			px := in[col*h.Depth : (col+1)*h.Depth]
			base := col * scaleFactor * h.Depth
			for sub := 0; sub < scaleFactor; sub++ {
				copy(out[base+sub*h.Depth:base+(sub+1)*h.Depth], px)
			}
		}
		if err := w.WriteSampleRowMult(out, scaleFactor); err != nil {
			return err
		}
	}
	return nil
}
