package bmp

import "errors"

var (
	ErrInvalidMagic           = errors.New("bmp: invalid file: provided file is not a bitmap")
	ErrUnsupportedHeader      = errors.New("bmp: unsupported info header size")
	ErrUnsupportedBitCount    = errors.New("bmp: unsupported bit count: only 24-bit is supported")
	ErrUnsupportedCompression = errors.New("bmp: unsupported compression: only uncompressed is supported")
	ErrInvalidHeader          = errors.New("bmp: invalid header")
	ErrInvalidDimensions      = errors.New("bmp: invalid dimensions")
	ErrImageTooLarge          = errors.New("bmp: image dimensions exceed limit")
	ErrTruncated              = errors.New("bmp: truncated data")
)
