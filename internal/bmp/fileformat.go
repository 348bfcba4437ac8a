// BMP-specific structs and types
package bmp

import "encoding/binary"

const (
	// "BM" read as a little-endian uint16
	magic = 0x4D42

	FileHeaderSize = 14
	InfoHeaderSize = 40
	HeadersSize    = FileHeaderSize + InfoHeaderSize

	bitCount       = 24
	bytesPerPixel  = bitCount / 8
	compressionRGB = 0

	// 300 dpi
	DefaultPelsPerMeter    = 11811
	defaultColorsImportant = 0x1000000
)

// The BitmapFileHeader structure contains information about the type, size,
// and layout of a file that contains a DIB [device-independent bitmap].
// https://learn.microsoft.com/en-us/windows/win32/api/wingdi/ns-wingdi-bitmapfileheader
type BitmapFileHeader struct {
	Type      uint16 // The file type: must be 0x4d42 (ASCII string "BM").
	Size      uint32 // The size, in bytes, of the bitmap file.
	Reserved1 uint16 // Reserved; must be zero.
	Reserved2 uint16 // Reserved; must be zero.
	OffBits   uint32 // Bitmap File Offset (In bytes) to Pixel Arrays
}

// The BitmapInfoHeader structure contains information about the
// dimensions and color format of DIB [device-independent bitmap].
type BitmapInfoHeader struct {
	Size            uint32 // The number of bytes required by the structure.
	Width           int32  // The width of the bitmap, in pixels.
	Height          int32  // The height of the bitmap, in pixels. Negative means top-down rows.
	Planes          uint16 // The number of planes for the target device.
	BitCount        uint16 // The number of bits-per-pixel.
	Compression     uint32 // The type of compression
	SizeImage       uint32 // The size of the image (in bytes).
	XPelsPerMeter   int32  // The horizontal resolution, in pixels-per-meter.
	YPelsPerMeter   int32  // The vertical resolution, in pixels-per-meter.
	ColorsUsed      uint32 // Number of color indexes that are actually used by bitmap.
	ColorsImportant uint32 // Number of color indexes required for displaying the bitmap.
}

var le = binary.LittleEndian

func (h *BitmapFileHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, FileHeaderSize)
	le.PutUint16(b[0:2], h.Type)
	le.PutUint32(b[2:6], h.Size)
	le.PutUint16(b[6:8], h.Reserved1)
	le.PutUint16(b[8:10], h.Reserved2)
	le.PutUint32(b[10:14], h.OffBits)
	return b, nil
}

func (h *BitmapFileHeader) UnmarshalBinary(b []byte) error {
	if len(b) < FileHeaderSize {
		return ErrTruncated
	}
	h.Type = le.Uint16(b[0:2])
	h.Size = le.Uint32(b[2:6])
	h.Reserved1 = le.Uint16(b[6:8])
	h.Reserved2 = le.Uint16(b[8:10])
	h.OffBits = le.Uint32(b[10:14])
	return nil
}

func (h *BitmapInfoHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, InfoHeaderSize)
	le.PutUint32(b[0:4], h.Size)
	le.PutUint32(b[4:8], uint32(h.Width))
	le.PutUint32(b[8:12], uint32(h.Height))
	le.PutUint16(b[12:14], h.Planes)
	le.PutUint16(b[14:16], h.BitCount)
	le.PutUint32(b[16:20], h.Compression)
	le.PutUint32(b[20:24], h.SizeImage)
	le.PutUint32(b[24:28], uint32(h.XPelsPerMeter))
	le.PutUint32(b[28:32], uint32(h.YPelsPerMeter))
	le.PutUint32(b[32:36], h.ColorsUsed)
	le.PutUint32(b[36:40], h.ColorsImportant)
	return b, nil
}

func (h *BitmapInfoHeader) UnmarshalBinary(b []byte) error {
	if len(b) < InfoHeaderSize {
		return ErrTruncated
	}
	h.Size = le.Uint32(b[0:4])
	h.Width = int32(le.Uint32(b[4:8]))
	h.Height = int32(le.Uint32(b[8:12]))
	h.Planes = le.Uint16(b[12:14])
	h.BitCount = le.Uint16(b[14:16])
	h.Compression = le.Uint32(b[16:20])
	h.SizeImage = le.Uint32(b[20:24])
	h.XPelsPerMeter = int32(le.Uint32(b[24:28]))
	h.YPelsPerMeter = int32(le.Uint32(b[28:32]))
	h.ColorsUsed = le.Uint32(b[32:36])
	h.ColorsImportant = le.Uint32(b[36:40])
	return nil
}
