package netpbm

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"
)

// expandRowReference is the obviously-correct oracle: unpack the row to
// one bit per pixel, replicate each pixel scale times, repack.
func expandRowReference(src []byte, width, scale int) []byte {
	bits := make([]byte, 0, width*scale)
	for x := 0; x < width; x++ {
		b := src[x/8] >> (7 - x%8) & 1
		for i := 0; i < scale; i++ {
			bits = append(bits, b)
		}
	}
	out := make([]byte, PackedRowLen(width*scale))
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func randomPackedRow(rng *rand.Rand, width int) []byte {
	row := make([]byte, PackedRowLen(width))
	rng.Read(row)
	ClearRowPadding(row, width)
	return row
}

func TestExpandRowMatchesReference(t *testing.T) {
	scales := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 16, 25, 32}
	widths := []int{1, 3, 7, 8, 9, 13, 16, 17, 31, 64, 100}

	rng := rand.New(rand.NewSource(1))
	for _, scale := range scales {
		for _, width := range widths {
			src := randomPackedRow(rng, width)
			want := expandRowReference(src, width, scale)

			dst := make([]byte, PackedRowLen(width*scale)+RowSlack)
			if err := ExpandRow(dst, src, width, scale); err != nil {
				t.Fatalf("ExpandRow(width=%d, scale=%d): %v", width, scale, err)
			}
			got := dst[:PackedRowLen(width*scale)]
			// Padding bits of the last output byte carry no pixels.
			ClearRowPadding(got, width*scale)
			ClearRowPadding(want, width*scale)
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("ExpandRow(width=%d, scale=%d): byte %d = %#02x, want %#02x",
						width, scale, i, got[i], want[i])
				}
			}
		}
	}
}

func TestExpandRowDoubleKnownPattern(t *testing.T) {
	// 10110010 doubled is 1100111100001100: each source bit twice.
	src := []byte{0xB2}
	dst := make([]byte, PackedRowLen(16)+RowSlack)
	if err := ExpandRow(dst, src, 8, 2); err != nil {
		t.Fatalf("ExpandRow: %v", err)
	}
	if dst[0] != 0xCF || dst[1] != 0x0C {
		t.Errorf("doubled 0xB2 = %#02x %#02x, want 0xcf 0x0c", dst[0], dst[1])
	}
}

func TestExpandRowBufferChecks(t *testing.T) {
	src := []byte{0xFF}
	if err := ExpandRow(make([]byte, 1), src, 8, 3); err == nil {
		t.Error("expected error for undersized output buffer")
	}
	if err := ExpandRow(make([]byte, 64), src[:0], 8, 3); err == nil {
		t.Error("expected error for undersized source buffer")
	}
	if err := ExpandRow(make([]byte, 64), src, 8, 0); !errors.Is(err, ErrInvalidScaleFactor) {
		t.Errorf("scale 0: got %v, want ErrInvalidScaleFactor", err)
	}
}

func TestClearRowPadding(t *testing.T) {
	tests := []struct {
		width int
		in    []byte
		want  []byte
	}{
		{1, []byte{0xFF}, []byte{0x80}},
		{7, []byte{0xFF}, []byte{0xFE}},
		{8, []byte{0xFF}, []byte{0xFF}},
		{9, []byte{0xFF, 0xFF}, []byte{0xFF, 0x80}},
		{12, []byte{0xAB, 0xCD}, []byte{0xAB, 0xC0}},
	}
	for _, tc := range tests {
		row := append([]byte(nil), tc.in...)
		ClearRowPadding(row, tc.width)
		for i := range tc.want {
			if row[i] != tc.want[i] {
				t.Errorf("ClearRowPadding(width=%d): byte %d = %#02x, want %#02x",
					tc.width, i, row[i], tc.want[i])
			}
		}
	}
}

func TestValidateScale(t *testing.T) {
	if err := ValidateScale(100, 100, 1); err != nil {
		t.Errorf("ValidateScale(100, 100, 1): %v", err)
	}
	if err := ValidateScale(100, 100, 1000); err != nil {
		t.Errorf("ValidateScale(100, 100, 1000): %v", err)
	}

	if err := ValidateScale(100, 100, 0); !errors.Is(err, ErrInvalidScaleFactor) {
		t.Errorf("scale 0: got %v, want ErrInvalidScaleFactor", err)
	}
	if err := ValidateScale(100, 100, -2); !errors.Is(err, ErrInvalidScaleFactor) {
		t.Errorf("scale -2: got %v, want ErrInvalidScaleFactor", err)
	}
	if err := ValidateScale(0, 100, 2); err == nil {
		t.Error("expected error for zero width")
	}

	err := ValidateScale(100000, 100000, math.MaxInt)
	var of *OverflowError
	if !errors.As(err, &of) {
		t.Fatalf("huge scale: got %v, want *OverflowError", err)
	}
	if want := (math.MaxInt - 2) / 100000; of.MaxScaleFactor != want {
		t.Errorf("MaxScaleFactor = %d, want %d", of.MaxScaleFactor, want)
	}

	// The reported maximum must itself validate.
	if err := ValidateScale(100000, 100000, of.MaxScaleFactor); err != nil {
		t.Errorf("ValidateScale at reported maximum: %v", err)
	}
	if err := ValidateScale(100000, 100000, of.MaxScaleFactor+1); err == nil {
		t.Error("expected overflow one past the reported maximum")
	}
}

// sliceRowSource serves pre-built packed rows and then fails the way a
// truncated stream does.
type sliceRowSource struct {
	rows [][]byte
	next int
}

func (s *sliceRowSource) ReadRow(buf []byte) error {
	if s.next >= len(s.rows) {
		return io.ErrUnexpectedEOF
	}
	copy(buf, s.rows[s.next])
	s.next++
	return nil
}

// captureRowSink records every row it is handed.
type captureRowSink struct {
	rows [][]byte
}

func (c *captureRowSink) WriteRow(row []byte) error {
	c.rows = append(c.rows, append([]byte(nil), row...))
	return nil
}

func TestEnlargePacked(t *testing.T) {
	const width, height, scale = 13, 4, 3

	rng := rand.New(rand.NewSource(7))
	src := &sliceRowSource{}
	for i := 0; i < height; i++ {
		src.rows = append(src.rows, randomPackedRow(rng, width))
	}
	sink := &captureRowSink{}

	if err := EnlargePacked(src, sink, width, height, scale); err != nil {
		t.Fatalf("EnlargePacked: %v", err)
	}

	if got, want := len(sink.rows), height*scale; got != want {
		t.Fatalf("sink received %d rows, want %d", got, want)
	}
	outLen := PackedRowLen(width * scale)
	for i, row := range sink.rows {
		if len(row) != outLen {
			t.Fatalf("output row %d is %d bytes, want %d", i, len(row), outLen)
		}
		want := expandRowReference(src.rows[i/scale], width, scale)
		ClearRowPadding(row, width*scale)
		ClearRowPadding(want, width*scale)
		for j := range want {
			if row[j] != want[j] {
				t.Fatalf("output row %d byte %d = %#02x, want %#02x", i, j, row[j], want[j])
			}
		}
	}
}

func TestEnlargePackedIgnoresPaddingBits(t *testing.T) {
	const width = 5

	clean := &sliceRowSource{rows: [][]byte{{0xA8}}} // 10101 and clear padding
	dirty := &sliceRowSource{rows: [][]byte{{0xAF}}} // 10101 and dirty padding

	cleanSink := &captureRowSink{}
	dirtySink := &captureRowSink{}
	if err := EnlargePacked(clean, cleanSink, width, 1, 2); err != nil {
		t.Fatalf("EnlargePacked(clean): %v", err)
	}
	if err := EnlargePacked(dirty, dirtySink, width, 1, 2); err != nil {
		t.Fatalf("EnlargePacked(dirty): %v", err)
	}
	for i := range cleanSink.rows {
		for j := range cleanSink.rows[i] {
			if cleanSink.rows[i][j] != dirtySink.rows[i][j] {
				t.Fatalf("padding bits leaked into output row %d byte %d: %#02x vs %#02x",
					i, j, cleanSink.rows[i][j], dirtySink.rows[i][j])
			}
		}
	}
}

func TestEnlargePackedShortSource(t *testing.T) {
	src := &sliceRowSource{rows: [][]byte{{0xFF}}}
	sink := &captureRowSink{}

	err := EnlargePacked(src, sink, 8, 3, 2)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("truncated source: got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestEnlargePackedIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := &sliceRowSource{rows: [][]byte{randomPackedRow(rng, 17), randomPackedRow(rng, 17)}}
	sink := &captureRowSink{}

	if err := EnlargePacked(src, sink, 17, 2, 1); err != nil {
		t.Fatalf("EnlargePacked: %v", err)
	}
	if len(sink.rows) != 2 {
		t.Fatalf("sink received %d rows, want 2", len(sink.rows))
	}
	for i, row := range sink.rows {
		for j := range row {
			if row[j] != src.rows[i][j] {
				t.Errorf("row %d byte %d changed under identity scaling", i, j)
			}
		}
	}
}
