// Command pamenlarge scales a PNM image up by an integer factor and
// writes the result to standard output.
//
// Usage:
//
//	pamenlarge <factor> [file|url|-]
//
// The input defaults to standard input. Bilevel images are scaled in
// their packed representation without unpacking to samples.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sysfce2/netpbm"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pamenlarge: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: pamenlarge <factor> [file|url|-]")
	}

	scale, err := strconv.Atoi(args[0])
	if err != nil || scale < 1 {
		return fmt.Errorf("scale factor must be an integer at least 1, got %q", args[0])
	}

	input := "-"
	if len(args) == 2 {
		input = args[1]
	}

	r, err := netpbm.Open(input, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	return netpbm.Enlarge(r, os.Stdout, scale)
}
