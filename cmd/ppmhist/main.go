// Command ppmhist prints a histogram of the colors in a PNM image.
//
// Usage:
//
//	ppmhist [flags] [file|url|-]
//
// By default entries are sorted by descending pixel count and printed
// as decimal component triples with a luminance column.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/sysfce2/netpbm"
)

type options struct {
	input    string
	sort     netpbm.SortOrder
	hex      bool
	float    bool
	noheader bool
	summary  bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ppmhist: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ppmhist: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: ppmhist [flags] [file|url|-]\n")
		flag.PrintDefaults()
	}
	sortOrder := flag.String("sort", "frequency", "Sort order: frequency or rgb")
	flag.BoolVar(&opts.hex, "hexcolor", false, "Print component values in hexadecimal")
	flag.BoolVar(&opts.float, "float", false, "Print component values as fractions of maxval")
	flag.BoolVar(&opts.noheader, "noheader", false, "Omit the column header")
	flag.BoolVar(&opts.summary, "colorname", false, "Append a black/white/gray/color summary")
	flag.Parse()

	switch *sortOrder {
	case "frequency":
		opts.sort = netpbm.SortByFrequency
	case "rgb":
		opts.sort = netpbm.SortByRGB
	default:
		return options{}, fmt.Errorf("invalid sort order %q", *sortOrder)
	}

	opts.input = "-"
	switch flag.NArg() {
	case 0:
	case 1:
		opts.input = flag.Arg(0)
	default:
		flag.Usage()
		return options{}, fmt.Errorf("at most one input argument")
	}
	return opts, nil
}

func run(opts options) error {
	r, err := netpbm.Open(opts.input, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	hist, err := netpbm.ComputeHistogram(r)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	if !opts.noheader {
		printHeader(w, opts)
	}
	maxval := float64(hist.Maxval)
	for _, e := range hist.Entries(opts.sort) {
		lum := 0.299*float64(e.R) + 0.587*float64(e.G) + 0.114*float64(e.B)
		switch {
		case opts.hex:
			fmt.Fprintf(w, "  %04x  %04x  %04x\t%04x\t%7d\n", e.R, e.G, e.B, int(lum+0.5), e.Count)
		case opts.float:
			fmt.Fprintf(w, " %1.3f %1.3f %1.3f\t%1.3f\t%7d\n",
				float64(e.R)/maxval, float64(e.G)/maxval, float64(e.B)/maxval, lum/maxval, e.Count)
		default:
			fmt.Fprintf(w, " %5d %5d %5d\t%5d\t%7d\n", e.R, e.G, e.B, int(lum+0.5), e.Count)
		}
	}

	if opts.summary {
		s := hist.Summary()
		fmt.Fprintf(w, "\n%d colors: %d black, %d white, %d gray, %d color\n",
			s.Total, s.Black, s.White, s.Gray, s.Color)
	}
	return nil
}

func printHeader(w *bufio.Writer, opts options) {
	switch {
	case opts.hex:
		fmt.Fprintf(w, "   r     g     b  \tlum \t count \n")
		fmt.Fprintf(w, "  ----  ----  ----\t----\t-------\n")
	case opts.float:
		fmt.Fprintf(w, "   r     g     b  \tlum \t count \n")
		fmt.Fprintf(w, " ----- ----- -----\t----\t-------\n")
	default:
		fmt.Fprintf(w, "   r     g     b  \t lum\t count \n")
		fmt.Fprintf(w, " ----- ----- -----\t-----\t-------\n")
	}
}
