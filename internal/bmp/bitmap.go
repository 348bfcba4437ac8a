// bmp package reads and writes 24-bit uncompressed Windows bitmaps.
package bmp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/anas-shakeel/imgconv/internal/img"
)

// Largest image (in pixels) Decode will allocate.
const MaxPixels = 1 << 28

// Header holds both headers of a bitmap file and the row layout they imply.
type Header struct {
	File BitmapFileHeader
	Info BitmapInfoHeader

	Width   int  // Pixels per row
	Rows    int  // Absolute height
	TopDown bool // Rows are stored top to bottom (negative height)
	Stride  int  // Total bytes in a row (incl. padding)
	Padding int  // Padding bytes at the end of each row
}

// EncodeOptions overrides the informational header fields written by Encode.
// Zero values fall back to the defaults.
type EncodeOptions struct {
	XPelsPerMeter int32
	YPelsPerMeter int32
}

// Returns the number of bytes one row of width pixels occupies on disk,
// rounded up to a multiple of 4.
func Stride(width int) int {
	return 4 * ((width*bytesPerPixel + 3) / 4)
}

// Builds the headers for a bottom-up 24-bit bitmap of the given size
func newHeader(width, height int, opts *EncodeOptions) (*Header, error) {
	stride := Stride(width)
	sizeImage := int64(stride) * int64(height)
	if width > math.MaxInt32 || height > math.MaxInt32 || sizeImage > math.MaxUint32-HeadersSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}

	xppm, yppm := int32(DefaultPelsPerMeter), int32(DefaultPelsPerMeter)
	if opts != nil {
		if opts.XPelsPerMeter != 0 {
			xppm = opts.XPelsPerMeter
		}
		if opts.YPelsPerMeter != 0 {
			yppm = opts.YPelsPerMeter
		}
	}

	return &Header{
		File: BitmapFileHeader{
			Type:    magic,
			Size:    uint32(HeadersSize + sizeImage),
			OffBits: HeadersSize,
		},
		Info: BitmapInfoHeader{
			Size:            InfoHeaderSize,
			Width:           int32(width),
			Height:          int32(height), // positive: bottom-up
			Planes:          1,
			BitCount:        bitCount,
			Compression:     compressionRGB,
			SizeImage:       uint32(sizeImage),
			XPelsPerMeter:   xppm,
			YPelsPerMeter:   yppm,
			ColorsImportant: defaultColorsImportant,
		},
		Width:   width,
		Rows:    height,
		Stride:  stride,
		Padding: stride - width*bytesPerPixel,
	}, nil
}

// Reads and validates the file and info headers from r.
// Only 24-bit uncompressed bitmaps with a 40 byte info header are accepted.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeadersSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, truncated(err, "reading headers")
	}

	var h Header
	if err := h.File.UnmarshalBinary(buf[:FileHeaderSize]); err != nil {
		return nil, err
	}
	if err := h.Info.UnmarshalBinary(buf[FileHeaderSize:]); err != nil {
		return nil, err
	}

	switch {
	case h.File.Type != magic:
		return nil, fmt.Errorf("%w: type %#04x", ErrInvalidMagic, h.File.Type)
	case h.Info.Size != InfoHeaderSize:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedHeader, h.Info.Size)
	case h.Info.BitCount != bitCount:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitCount, h.Info.BitCount)
	case h.Info.Compression != compressionRGB:
		return nil, fmt.Errorf("%w: method %d", ErrUnsupportedCompression, h.Info.Compression)
	case h.Info.Width < 0:
		return nil, fmt.Errorf("%w: negative width %d", ErrInvalidDimensions, h.Info.Width)
	case h.File.OffBits < HeadersSize:
		return nil, fmt.Errorf("%w: pixel data offset %d inside headers", ErrInvalidHeader, h.File.OffBits)
	}

	// int64 so that -MinInt32 does not overflow
	rows := int64(h.Info.Height)
	if rows < 0 {
		h.TopDown = true
		rows = -rows
	}
	if int64(h.Info.Width)*rows > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, h.Info.Width, rows)
	}

	h.Width = int(h.Info.Width)
	h.Rows = int(rows)
	h.Stride = Stride(h.Width)
	h.Padding = h.Stride - h.Width*bytesPerPixel

	return &h, nil
}

// Decodes a bitmap from r. On any error no image is returned.
func Decode(r io.Reader) (*img.Image, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	// Skip anything between the headers and the pixel array (OffBits)
	if gap := int64(h.File.OffBits) - HeadersSize; gap > 0 {
		if _, err := io.CopyN(io.Discard, r, gap); err != nil {
			return nil, truncated(err, "seeking to pixel data")
		}
	}

	if h.Width == 0 {
		return img.New(h.Width, h.Rows, img.Black()), nil
	}

	// Pull the whole pixel array in before allocating the image, so the
	// buffer only grows as far as the data actually present.
	size := int64(h.Stride) * int64(h.Rows)
	var pix bytes.Buffer
	if n, err := io.CopyN(&pix, r, size); err != nil {
		return nil, truncated(err, fmt.Sprintf("reading row %d", n/int64(h.Stride)))
	}
	data := pix.Bytes()

	m := img.New(h.Width, h.Rows, img.Black())
	for i := range h.Rows {
		y := h.Rows - i - 1
		if h.TopDown {
			y = i
		}
		row := data[i*h.Stride : (i+1)*h.Stride]

		// On disk: Blue, Green, Red. Padding is ignored.
		line := m.Line(y)
		for x := range line {
			line[x] = img.Color{B: row[x*3], G: row[x*3+1], R: row[x*3+2]}
		}
	}

	return m, nil
}

// Encodes m as a bottom-up 24-bit bitmap into w.
func Encode(w io.Writer, m *img.Image) error {
	return EncodeWith(w, m, nil)
}

func EncodeWith(w io.Writer, m *img.Image, opts *EncodeOptions) error {
	if m == nil {
		m = &img.Image{}
	}
	width, height := m.Width(), m.Height()

	h, err := newHeader(width, height, opts)
	if err != nil {
		return err
	}

	// Create a buffer (to reduce syscalls)
	bw := bufio.NewWriter(w)

	fileHeader, _ := h.File.MarshalBinary()
	if _, err := bw.Write(fileHeader); err != nil {
		return err
	}
	infoHeader, _ := h.Info.MarshalBinary()
	if _, err := bw.Write(infoHeader); err != nil {
		return err
	}

	// Padding bytes past width*3 are never touched and stay zero
	row := make([]byte, h.Stride)

	// BottomUp: last row first
	for y := height - 1; y >= 0; y-- {
		for x, c := range m.Line(y) {
			row[x*3+0] = c.B
			row[x*3+1] = c.G
			row[x*3+2] = c.R
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Reads a Bitmap file
func Load(filename string) (*img.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// Saves the image onto local disk, creating or truncating filename.
// A partially written file is left in place on failure.
func Save(filename string, m *img.Image) error {
	return SaveWith(filename, m, nil)
}

func SaveWith(filename string, m *img.Image, opts *EncodeOptions) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := EncodeWith(file, m, opts); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return file.Close()
}

// SaveBMP is Save reduced to a success flag.
func SaveBMP(filename string, m *img.Image) bool {
	return Save(filename, m) == nil
}

// LoadBMP is Load with every failure collapsed into an empty image.
func LoadBMP(filename string) *img.Image {
	m, err := Load(filename)
	if err != nil {
		return &img.Image{}
	}
	return m
}

// Maps a short read onto ErrTruncated, leaving other I/O errors alone
func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
