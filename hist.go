package netpbm

import (
	"fmt"
	"sort"
)

// SortOrder selects how histogram entries are ordered.
type SortOrder int

const (
	// SortByFrequency orders entries by descending count, ties broken
	// by ascending color value.
	SortByFrequency SortOrder = iota
	// SortByRGB orders entries by ascending red, then green, then blue.
	SortByRGB
)

// ColorCount is one histogram entry: a color and how many pixels have it.
// Grayscale and bilevel images report R == G == B.
type ColorCount struct {
	R, G, B uint16
	Count   int
}

// ColorSummary classifies a histogram's colors into broad buckets.
type ColorSummary struct {
	Total int // distinct colors
	Black int // all components zero
	White int // all components at maxval
	Gray  int // equal components, neither black nor white
	Color int // everything else
}

// Histogram counts the distinct colors of an image.
type Histogram struct {
	Maxval int
	counts map[[3]uint16]int
}

// ComputeHistogram reads every row of r and tallies pixel colors.
// Images with fewer than three channels count their gray value as an
// equal-component color; images with more (PAM with alpha) count the
// first three channels.
func ComputeHistogram(r *Reader) (*Histogram, error) {
	h := r.Header()
	hist := &Histogram{
		Maxval: h.Maxval,
		counts: make(map[[3]uint16]int),
	}

	row := GetSampleBuffer(h.Width * h.Depth)
	defer PutSampleBuffer(row)

	for y := 0; y < h.Height; y++ {
		if err := r.ReadSampleRow(row); err != nil {
			return nil, fmt.Errorf("computing histogram: %w", err)
		}
		for x := 0; x < h.Width; x++ {
			px := row[x*h.Depth:]
			var c [3]uint16
			if h.Depth < 3 {
				c[0], c[1], c[2] = px[0], px[0], px[0]
			} else {
				c[0], c[1], c[2] = px[0], px[1], px[2]
			}
			hist.counts[c]++
		}
	}
	return hist, nil
}

// Distinct returns the number of distinct colors seen.
func (h *Histogram) Distinct() int {
	return len(h.counts)
}

// Entries returns the histogram entries in the given order.
func (h *Histogram) Entries(order SortOrder) []ColorCount {
	out := make([]ColorCount, 0, len(h.counts))
	for c, n := range h.counts {
		out = append(out, ColorCount{R: c[0], G: c[1], B: c[2], Count: n})
	}

	less := func(a, b ColorCount) bool {
		if a.R != b.R {
			return a.R < b.R
		}
		if a.G != b.G {
			return a.G < b.G
		}
		return a.B < b.B
	}
	switch order {
	case SortByFrequency:
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return less(out[i], out[j])
		})
	default:
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Summary classifies the distinct colors as black, white, gray or color.
func (h *Histogram) Summary() ColorSummary {
	s := ColorSummary{Total: len(h.counts)}
	maxval := uint16(h.Maxval)
	for c := range h.counts {
		switch {
		case c[0] == 0 && c[1] == 0 && c[2] == 0:
			s.Black++
		case c[0] == maxval && c[1] == maxval && c[2] == maxval:
			s.White++
		case c[0] == c[1] && c[1] == c[2]:
			s.Gray++
		default:
			s.Color++
		}
	}
	return s
}
