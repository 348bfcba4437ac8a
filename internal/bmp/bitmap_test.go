package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/anas-shakeel/imgconv/internal/img"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawBitmap assembles a bitmap byte for byte, independent of Encode.
// rows are given in file order and must already include padding.
func rawBitmap(width, height int32, rows ...[]byte) []byte {
	var buf bytes.Buffer
	stride := Stride(int(width))
	size := uint32(stride * len(rows))

	le := binary.LittleEndian
	buf.WriteString("BM")
	binary.Write(&buf, le, uint32(HeadersSize)+size)
	binary.Write(&buf, le, uint16(0))
	binary.Write(&buf, le, uint16(0))
	binary.Write(&buf, le, uint32(HeadersSize))

	binary.Write(&buf, le, uint32(40))
	binary.Write(&buf, le, width)
	binary.Write(&buf, le, height)
	binary.Write(&buf, le, uint16(1))
	binary.Write(&buf, le, uint16(24))
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, size)
	binary.Write(&buf, le, int32(2835))
	binary.Write(&buf, le, int32(2835))
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, uint32(0))

	for _, row := range rows {
		buf.Write(row)
	}
	return buf.Bytes()
}

func patterned(width, height int) *img.Image {
	m := img.New(width, height, img.Black())
	m.Each(func(x, y int, c *img.Color) {
		c.R = byte(x*37 + y*11)
		c.G = byte(x*5 + y*101 + 7)
		c.B = byte(x*x + y*3 + 200)
	})
	return m
}

func TestStride(t *testing.T) {
	tests := []struct {
		width, stride int
	}{
		{0, 0},
		{1, 4},
		{2, 8},
		{3, 12},
		{4, 12},
		{5, 16},
		{8, 24},
		{100, 300},
		{101, 304},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.stride, Stride(tt.width), "width %d", tt.width)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"Empty", 0, 0},
		{"ZeroWidth", 0, 3},
		{"ZeroHeight", 3, 0},
		{"Single", 1, 1},
		{"Aligned", 4, 3},
		{"OddWidth", 5, 2},
		{"Tall", 3, 17},
		{"Wide", 33, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := patterned(tt.width, tt.height)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src))
			assert.Equal(t, HeadersSize+Stride(tt.width)*tt.height, buf.Len())

			got, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.width, got.Width())
			assert.Equal(t, tt.height, got.Height())
			assert.Equal(t, src, got)
		})
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, patterned(5, 3)))
	b := buf.Bytes()
	le := binary.LittleEndian

	assert.Equal(t, []byte("BM"), b[0:2])
	assert.Equal(t, uint32(54+16*3), le.Uint32(b[2:6]))
	assert.Equal(t, uint16(0), le.Uint16(b[6:8]))
	assert.Equal(t, uint16(0), le.Uint16(b[8:10]))
	assert.Equal(t, uint32(54), le.Uint32(b[10:14]))

	assert.Equal(t, uint32(40), le.Uint32(b[14:18]))
	assert.Equal(t, int32(5), int32(le.Uint32(b[18:22])))
	assert.Equal(t, int32(3), int32(le.Uint32(b[22:26])), "height is written positive (bottom-up)")
	assert.Equal(t, uint16(1), le.Uint16(b[26:28]))
	assert.Equal(t, uint16(24), le.Uint16(b[28:30]))
	assert.Equal(t, uint32(0), le.Uint32(b[30:34]))
	assert.Equal(t, uint32(16*3), le.Uint32(b[34:38]))
	assert.Equal(t, uint32(DefaultPelsPerMeter), le.Uint32(b[38:42]))
	assert.Equal(t, uint32(DefaultPelsPerMeter), le.Uint32(b[42:46]))
	assert.Equal(t, uint32(0), le.Uint32(b[46:50]))
	assert.Equal(t, uint32(0x1000000), le.Uint32(b[50:54]))
}

func TestEncodeWithResolution(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeWith(&buf, patterned(1, 1), &EncodeOptions{XPelsPerMeter: 2835}))
	b := buf.Bytes()

	assert.Equal(t, uint32(2835), binary.LittleEndian.Uint32(b[38:42]))
	assert.Equal(t, uint32(DefaultPelsPerMeter), binary.LittleEndian.Uint32(b[42:46]))
}

func TestEncodeRowsBottomUpBGRWithZeroPadding(t *testing.T) {
	m := img.New(5, 2, img.Black())
	for x := range 5 {
		m.Set(x, 0, img.Color{R: 1, G: 2, B: 3})
		m.Set(x, 1, img.Color{R: 0xAA, G: 0xBB, B: 0xCC})
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))
	pix := buf.Bytes()[HeadersSize:]
	require.Len(t, pix, 2*16)

	// first row on disk is the bottom row of the image
	first, second := pix[:16], pix[16:]
	for x := range 5 {
		assert.Equal(t, []byte{0xCC, 0xBB, 0xAA}, first[x*3 : x*3+3])
		assert.Equal(t, []byte{3, 2, 1}, second[x*3 : x*3+3])
	}
	assert.Equal(t, []byte{0}, first[15:])
	assert.Equal(t, []byte{0}, second[15:])
}

func TestDecodeRowOrder(t *testing.T) {
	red := []byte{0, 0, 0xFF, 0, 0, 0xFF, 0, 0}
	blue := []byte{0xFF, 0, 0, 0xFF, 0, 0, 0, 0}

	t.Run("BottomUp", func(t *testing.T) {
		m, err := Decode(bytes.NewReader(rawBitmap(2, 2, red, blue)))
		require.NoError(t, err)
		assert.Equal(t, img.Color{B: 0xFF}, m.At(0, 0), "last disk row is row 0")
		assert.Equal(t, img.Color{B: 0xFF}, m.At(1, 0))
		assert.Equal(t, img.Color{R: 0xFF}, m.At(0, 1))
		assert.Equal(t, img.Color{R: 0xFF}, m.At(1, 1))
	})

	t.Run("TopDown", func(t *testing.T) {
		m, err := Decode(bytes.NewReader(rawBitmap(2, -2, red, blue)))
		require.NoError(t, err)
		assert.Equal(t, 2, m.Height())
		assert.Equal(t, img.Color{R: 0xFF}, m.At(0, 0), "first disk row is row 0")
		assert.Equal(t, img.Color{R: 0xFF}, m.At(1, 0))
		assert.Equal(t, img.Color{B: 0xFF}, m.At(0, 1))
		assert.Equal(t, img.Color{B: 0xFF}, m.At(1, 1))
	})
}

func TestDecodeIgnoresPaddingValue(t *testing.T) {
	row := []byte{1, 2, 3, 0xDE, 0xAD, 0xBE, 0xEF, 0x99}
	m, err := Decode(bytes.NewReader(rawBitmap(2, 1, row)))
	require.NoError(t, err)
	assert.Equal(t, img.Color{R: 3, G: 2, B: 1}, m.At(0, 0))
	assert.Equal(t, img.Color{R: 0xBE, G: 0xAD, B: 0xDE}, m.At(1, 0))
}

func TestDecodeSkipsToPixelOffset(t *testing.T) {
	raw := rawBitmap(1, 1, []byte{9, 8, 7, 0})
	gap := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	binary.LittleEndian.PutUint32(raw[10:14], HeadersSize+uint32(len(gap)))
	data := append(append(append([]byte{}, raw[:HeadersSize]...), gap...), raw[HeadersSize:]...)

	m, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Color{R: 7, G: 8, B: 9}, m.At(0, 0))
}

func TestDecodeRejects(t *testing.T) {
	valid := func() []byte { return rawBitmap(1, 1, []byte{1, 2, 3, 0}) }

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
		err    error
	}{
		{"Magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrInvalidMagic},
		{"MagicSwapped", func(b []byte) []byte { b[0], b[1] = 'M', 'B'; return b }, ErrInvalidMagic},
		{"HeaderSize", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[14:18], 124); return b }, ErrUnsupportedHeader},
		{"BitCount32", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[28:30], 32); return b }, ErrUnsupportedBitCount},
		{"BitCount8", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[28:30], 8); return b }, ErrUnsupportedBitCount},
		{"RLE8", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[30:34], 1); return b }, ErrUnsupportedCompression},
		{"NegativeWidth", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[18:22], uint32(0xFFFFFFFF)); return b }, ErrInvalidDimensions},
		{"OffsetInsideHeaders", func(b []byte) []byte { binary.LittleEndian.PutUint32(b[10:14], 20); return b }, ErrInvalidHeader},
		{"TooLarge", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[18:22], 1<<20)
			binary.LittleEndian.PutUint32(b[22:26], 1<<20)
			return b
		}, ErrImageTooLarge},
		{"Empty", func(b []byte) []byte { return nil }, ErrTruncated},
		{"ShortFileHeader", func(b []byte) []byte { return b[:10] }, ErrTruncated},
		{"ShortInfoHeader", func(b []byte) []byte { return b[:40] }, ErrTruncated},
		{"NoPixels", func(b []byte) []byte { return b[:HeadersSize] }, ErrTruncated},
		{"MidRow", func(b []byte) []byte { return b[:HeadersSize+2] }, ErrTruncated},
		{"MissingPadding", func(b []byte) []byte { return b[:HeadersSize+3] }, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(tt.mutate(valid())))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
			assert.Nil(t, m)
		})
	}
}

func TestDecodeTruncatedLastRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, patterned(5, 4)))
	data := buf.Bytes()

	m, err := Decode(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, m)
}

func TestDecodeHeaderOnlyDoesNotAllocateImage(t *testing.T) {
	// 16384x16384 is exactly MaxPixels: accepted by the header checks,
	// 768 MB of pixel data that is not there
	data := rawBitmap(16384, 16384)
	require.Len(t, data, HeadersSize)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	m, err := Decode(bytes.NewReader(data))

	runtime.ReadMemStats(&after)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, m)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "allocated %d bytes", after.TotalAlloc-before.TotalAlloc)
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader(rawBitmap(5, -3)))
	require.NoError(t, err)

	assert.Equal(t, 5, h.Width)
	assert.Equal(t, 3, h.Rows)
	assert.True(t, h.TopDown)
	assert.Equal(t, 16, h.Stride)
	assert.Equal(t, 1, h.Padding)
	assert.Equal(t, int32(-3), h.Info.Height)
	assert.Equal(t, uint32(HeadersSize), h.File.OffBits)
}

func TestHeaderBinaryRoundTrip(t *testing.T) {
	fh := BitmapFileHeader{Type: magic, Size: 1234, OffBits: 54}
	b, err := fh.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, FileHeaderSize)

	var fh2 BitmapFileHeader
	require.NoError(t, fh2.UnmarshalBinary(b))
	assert.Equal(t, fh, fh2)

	ih := BitmapInfoHeader{Size: 40, Width: 7, Height: -9, Planes: 1, BitCount: 24, XPelsPerMeter: -1}
	b, err = ih.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, InfoHeaderSize)

	var ih2 BitmapInfoHeader
	require.NoError(t, ih2.UnmarshalBinary(b))
	assert.Equal(t, ih, ih2)

	assert.ErrorIs(t, ih2.UnmarshalBinary(b[:39]), ErrTruncated)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pattern.bmp")
	src := patterned(7, 5)

	require.NoError(t, Save(path, src))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(HeadersSize+Stride(7)*5), info.Size())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.bmp"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.bmp")
	require.NoError(t, os.WriteFile(bad, []byte("GIF89a not a bitmap at all, not even close to one......."), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)
	assert.Contains(t, err.Error(), bad)
}

func TestSaveErrors(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "no", "such", "dir.bmp"), patterned(1, 1))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLegacyContract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.bmp")
	src := patterned(3, 2)

	require.True(t, SaveBMP(path, src))
	assert.Equal(t, src, LoadBMP(path))

	assert.False(t, SaveBMP(filepath.Join(dir, "missing", "x.bmp"), src))

	missing := LoadBMP(filepath.Join(dir, "missing.bmp"))
	require.NotNil(t, missing)
	assert.True(t, missing.Empty())
	assert.Equal(t, 0, missing.Width())
	assert.Equal(t, 0, missing.Height())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	truncatedPath := filepath.Join(dir, "truncated.bmp")
	require.NoError(t, os.WriteFile(truncatedPath, data[:len(data)-4], 0o644))
	assert.True(t, LoadBMP(truncatedPath).Empty())
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	n := min(len(p), w.after)
	w.after -= n
	if n < len(p) {
		return n, errors.New("disk full")
	}
	return n, nil
}

func TestEncodeWriteFailure(t *testing.T) {
	// bufio holds 4096 bytes, a 100x100 image forces flushes mid-way
	err := Encode(&failingWriter{after: 100}, patterned(100, 100))
	assert.EqualError(t, err, "disk full")
}
