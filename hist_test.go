package netpbm

import (
	"bytes"
	"fmt"
	"testing"
)

// createRawPPM builds a P6 stream with one byte per sample.
func createRawPPM(width, height int, pixels []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P6\n%d %d\n255\n", width, height)
	buf.Write(pixels)
	return buf.Bytes()
}

func TestComputeHistogramColor(t *testing.T) {
	// 3x2 image: 3 red, 2 white, 1 black.
	pixels := []byte{
		255, 0, 0 /**/, 255, 255, 255 /**/, 255, 0, 0,
		0, 0, 0 /*  */, 255, 0, 0 /*    */, 255, 255, 255,
	}
	r, err := NewReader(bytes.NewReader(createRawPPM(3, 2, pixels)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	hist, err := ComputeHistogram(r)
	if err != nil {
		t.Fatalf("ComputeHistogram: %v", err)
	}

	if hist.Distinct() != 3 {
		t.Fatalf("Distinct = %d, want 3", hist.Distinct())
	}

	byFreq := hist.Entries(SortByFrequency)
	if byFreq[0].Count != 3 || byFreq[0].R != 255 || byFreq[0].G != 0 || byFreq[0].B != 0 {
		t.Errorf("most frequent = %+v, want red x3", byFreq[0])
	}
	if byFreq[1].Count != 2 || byFreq[2].Count != 1 {
		t.Errorf("counts = %d, %d, want 2, 1", byFreq[1].Count, byFreq[2].Count)
	}

	byRGB := hist.Entries(SortByRGB)
	if byRGB[0].R != 0 {
		t.Errorf("first by rgb = %+v, want black", byRGB[0])
	}
	if byRGB[2].R != 255 || byRGB[2].G != 255 {
		t.Errorf("last by rgb = %+v, want white", byRGB[2])
	}

	s := hist.Summary()
	if s.Total != 3 || s.Black != 1 || s.White != 1 || s.Gray != 0 || s.Color != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestComputeHistogramFrequencyTieBreak(t *testing.T) {
	// Two colors with equal counts sort by ascending value.
	pixels := []byte{
		9, 9, 9, 1, 1, 1,
	}
	r, err := NewReader(bytes.NewReader(createRawPPM(2, 1, pixels)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	hist, err := ComputeHistogram(r)
	if err != nil {
		t.Fatalf("ComputeHistogram: %v", err)
	}
	entries := hist.Entries(SortByFrequency)
	if entries[0].R != 1 || entries[1].R != 9 {
		t.Errorf("tie order = %d, %d, want 1, 9", entries[0].R, entries[1].R)
	}
}

func TestComputeHistogramGray(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("P5\n4 1\n255\n")
	buf.Write([]byte{0, 128, 128, 255})

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	hist, err := ComputeHistogram(r)
	if err != nil {
		t.Fatalf("ComputeHistogram: %v", err)
	}

	s := hist.Summary()
	if s.Total != 3 || s.Black != 1 || s.White != 1 || s.Gray != 1 || s.Color != 0 {
		t.Errorf("summary = %+v", s)
	}
	for _, e := range hist.Entries(SortByRGB) {
		if e.R != e.G || e.G != e.B {
			t.Errorf("gray image produced non-gray entry %+v", e)
		}
	}
}

func TestComputeHistogramBilevel(t *testing.T) {
	// 8x1 bitmap 10101010: 4 black, 4 white, promoted to 0 and 255.
	var buf bytes.Buffer
	buf.WriteString("P4\n8 1\n")
	buf.WriteByte(0xAA)

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	hist, err := ComputeHistogram(r)
	if err != nil {
		t.Fatalf("ComputeHistogram: %v", err)
	}
	entries := hist.Entries(SortByRGB)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].R != 0 || entries[0].Count != 4 {
		t.Errorf("black entry = %+v", entries[0])
	}
	if entries[1].R != 255 || entries[1].Count != 4 {
		t.Errorf("white entry = %+v", entries[1])
	}
}
