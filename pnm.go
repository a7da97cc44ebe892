package netpbm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies a netpbm stream format by its magic number.
type Format int

const (
	FormatPBMPlain Format = iota + 1 // P1: plain (ASCII) bitmap
	FormatPGMPlain                   // P2: plain graymap
	FormatPPMPlain                   // P3: plain pixmap
	FormatPBMRaw                     // P4: raw bitmap, packed 8 pixels per byte
	FormatPGMRaw                     // P5: raw graymap
	FormatPPMRaw                     // P6: raw pixmap
	FormatPAM                        // P7: arbitrary map with explicit depth
)

// String returns the two-character magic for the format.
func (f Format) String() string {
	if f < FormatPBMPlain || f > FormatPAM {
		return "P?"
	}
	return "P" + string(rune('0'+int(f)))
}

// IsBilevel reports whether rows of this format are packed one bit per pixel.
func (f Format) IsBilevel() bool {
	return f == FormatPBMPlain || f == FormatPBMRaw
}

// MaxSampleValue is the largest maxval a PNM/PAM header may declare.
const MaxSampleValue = 65535

// Header describes the image that follows a PNM/PAM header.
//
// For bilevel (PBM) images Depth is 1 and Maxval is 255, matching how
// bilevel rows promote to gray samples when read through ReadSampleRow.
type Header struct {
	Format    Format
	Width     int
	Height    int
	Depth     int    // samples per pixel: 1 for PBM/PGM, 3 for PPM, explicit for PAM
	Maxval    int    // largest sample value; samples above 255 occupy two bytes
	TupleType string // PAM only
}

// PackedRowLen returns the number of bytes occupied by one packed
// bit-per-pixel row of the given width.
func PackedRowLen(width int) int {
	return (width + 7) / 8
}

// Reader decodes a PNM/PAM stream row by row. Create one with NewReader
// or Open; the header is parsed eagerly so Header is valid immediately.
type Reader struct {
	br     *bufio.Reader
	header Header
	row    int
	closer io.Closer
}

// NewReader parses the PNM/PAM header from r and returns a row reader.
// Gzip- and zstd-compressed streams are detected by their magic bytes
// and decompressed transparently.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	magic, _ := br.Peek(4)
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		br = bufio.NewReader(zr)
	case len(magic) >= 4 && magic[0] == 0x28 && magic[1] == 0xb5 && magic[2] == 0x2f && magic[3] == 0xfd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		br = bufio.NewReader(zr)
	}

	pr := &Reader{br: br}
	if err := pr.readHeader(); err != nil {
		return nil, err
	}
	return pr, nil
}

// Header returns the parsed stream header.
func (r *Reader) Header() Header {
	return r.header
}

// Close closes the underlying source if the Reader owns one (Open does
// this; NewReader does not take ownership).
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) readHeader() error {
	c0, err := r.br.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read magic: %w", err)
	}
	c1, err := r.br.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read magic: %w", err)
	}
	if c0 != 'P' || c1 < '1' || c1 > '7' {
		return fmt.Errorf("invalid netpbm magic: %q", string([]byte{c0, c1}))
	}
	r.header.Format = Format(c1 - '0')

	if r.header.Format == FormatPAM {
		return r.readPAMHeader()
	}

	w, err := r.nextHeaderInt("width")
	if err != nil {
		return err
	}
	h, err := r.nextHeaderInt("height")
	if err != nil {
		return err
	}
	if w < 1 || h < 1 {
		return fmt.Errorf("invalid image dimensions: %d x %d", w, h)
	}
	r.header.Width = w
	r.header.Height = h

	switch r.header.Format {
	case FormatPBMPlain, FormatPBMRaw:
		r.header.Depth = 1
		r.header.Maxval = 255
	case FormatPGMPlain, FormatPGMRaw:
		r.header.Depth = 1
	case FormatPPMPlain, FormatPPMRaw:
		r.header.Depth = 3
	}

	if !r.header.Format.IsBilevel() {
		maxval, err := r.nextHeaderInt("maxval")
		if err != nil {
			return err
		}
		if maxval < 1 || maxval > MaxSampleValue {
			return fmt.Errorf("invalid maxval: %d", maxval)
		}
		r.header.Maxval = maxval
	}

	return nil
}

// readPAMHeader parses the line-oriented P7 header up to ENDHDR.
func (r *Reader) readPAMHeader() error {
	h := &r.header
	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read PAM header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch name {
		case "ENDHDR":
			if h.Width < 1 || h.Height < 1 {
				return fmt.Errorf("invalid PAM dimensions: %d x %d", h.Width, h.Height)
			}
			if h.Depth < 1 {
				return fmt.Errorf("invalid PAM depth: %d", h.Depth)
			}
			if h.Maxval < 1 || h.Maxval > MaxSampleValue {
				return fmt.Errorf("invalid PAM maxval: %d", h.Maxval)
			}
			return nil
		case "WIDTH", "HEIGHT", "DEPTH", "MAXVAL":
			v, err := strconv.Atoi(rest)
			if err != nil {
				return fmt.Errorf("invalid PAM %s value %q: %w", name, rest, err)
			}
			switch name {
			case "WIDTH":
				h.Width = v
			case "HEIGHT":
				h.Height = v
			case "DEPTH":
				h.Depth = v
			case "MAXVAL":
				h.Maxval = v
			}
		case "TUPLTYPE":
			if h.TupleType != "" {
				h.TupleType += " "
			}
			h.TupleType += rest
		default:
			return fmt.Errorf("unknown PAM header field: %q", name)
		}
	}
}

func isPNMSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// skipSpaceAndComments consumes whitespace and '#' comments (which run
// to end of line) before the next token.
func (r *Reader) skipSpaceAndComments() error {
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			return err
		}
		if isPNMSpace(c) {
			continue
		}
		if c == '#' {
			if _, err := r.br.ReadString('\n'); err != nil {
				return err
			}
			continue
		}
		return r.br.UnreadByte()
	}
}

// nextToken returns the next whitespace-delimited token, consuming the
// single delimiter byte that terminates it. That matches the raw-format
// framing rule: binary pixel data starts immediately after the one
// whitespace character following the last header field.
func (r *Reader) nextToken() (string, error) {
	if err := r.skipSpaceAndComments(); err != nil {
		return "", err
	}
	var sb strings.Builder
	for {
		c, err := r.br.ReadByte()
		if err == io.EOF && sb.Len() > 0 {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if isPNMSpace(c) {
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

func (r *Reader) nextHeaderInt(what string) (int, error) {
	tok, err := r.nextToken()
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", what, err)
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, tok, err)
	}
	return v, nil
}

// nextBit reads the next '0' or '1' from a plain bitmap, skipping
// whitespace and comments. Plain PBM digits need no separators.
func (r *Reader) nextBit() (byte, error) {
	if err := r.skipSpaceAndComments(); err != nil {
		return 0, err
	}
	c, err := r.br.ReadByte()
	if err != nil {
		return 0, err
	}
	if c != '0' && c != '1' {
		return 0, fmt.Errorf("invalid plain bitmap digit: %q", string(c))
	}
	return c - '0', nil
}

// ReadRow reads one bilevel row in packed form into buf, which must
// hold at least PackedRowLen(width) bytes. It is valid only for PBM
// streams; other formats go through ReadSampleRow.
//
// Raw rows are copied as stored. Plain rows are packed MSB-first with
// bit 1 meaning black, so both variants produce identical buffers.
func (r *Reader) ReadRow(buf []byte) error {
	n := PackedRowLen(r.header.Width)
	if len(buf) < n {
		return fmt.Errorf("row buffer too small: %d bytes for a %d-pixel row", len(buf), r.header.Width)
	}

	switch r.header.Format {
	case FormatPBMRaw:
		if _, err := io.ReadFull(r.br, buf[:n]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("row %d: %w", r.row, err)
		}
	case FormatPBMPlain:
		for i := 0; i < n; i++ {
			buf[i] = 0
		}
		for x := 0; x < r.header.Width; x++ {
			bit, err := r.nextBit()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return fmt.Errorf("row %d: %w", r.row, err)
			}
			if bit != 0 {
				buf[x/8] |= 0x80 >> (x % 8)
			}
		}
	default:
		return fmt.Errorf("packed rows are not available for %s streams", r.header.Format)
	}

	r.row++
	return nil
}

// ReadSampleRow reads one row of samples into row, which must hold
// Width*Depth values. Bilevel rows are promoted to gray samples the way
// the pnm layer traditionally renders them: black bit 1 becomes 0 and
// white bit 0 becomes the maxval of 255.
func (r *Reader) ReadSampleRow(row []uint16) error {
	h := r.header
	want := h.Width * h.Depth
	if len(row) < want {
		return fmt.Errorf("sample buffer too small: %d values for a %d x %d row", len(row), h.Width, h.Depth)
	}

	switch h.Format {
	case FormatPBMPlain, FormatPBMRaw:
		packed := GetRowBuffer(PackedRowLen(h.Width))
		defer PutRowBuffer(packed)
		if err := r.ReadRow(packed); err != nil {
			return err
		}
		for x := 0; x < h.Width; x++ {
			if packed[x/8]&(0x80>>(x%8)) != 0 {
				row[x] = 0
			} else {
				row[x] = uint16(h.Maxval)
			}
		}
		return nil

	case FormatPGMPlain, FormatPPMPlain:
		for i := 0; i < want; i++ {
			v, err := r.nextHeaderInt("sample")
			if err != nil {
				return fmt.Errorf("row %d: %w", r.row, err)
			}
			if v < 0 || v > h.Maxval {
				return fmt.Errorf("row %d: sample value %d exceeds maxval %d", r.row, v, h.Maxval)
			}
			row[i] = uint16(v)
		}

	default: // raw PGM/PPM and PAM
		bytesPerSample := 1
		if h.Maxval > 255 {
			bytesPerSample = 2
		}
		raw := GetRowBuffer(want * bytesPerSample)
		defer PutRowBuffer(raw)
		if _, err := io.ReadFull(r.br, raw); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("row %d: %w", r.row, err)
		}
		if bytesPerSample == 1 {
			for i := 0; i < want; i++ {
				row[i] = uint16(raw[i])
			}
		} else {
			// Multi-byte raw samples are big endian.
			for i := 0; i < want; i++ {
				row[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
			}
		}
	}

	r.row++
	return nil
}
