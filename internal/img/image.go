// img package holds the in-memory pixel grid the codecs read and write.
package img

// Color is a single pixel with 8-bit Red, Green and Blue channels.
type Color struct {
	R, G, B byte
}

// Returns the color black (all channels zero)
func Black() Color {
	return Color{}
}

// Image is a rectangular grid of colors stored row by row.
// The zero Image has no pixels and stands for "no image".
type Image struct {
	width  int
	height int
	pixels []Color
}

// Creates a width x height image with every pixel set to fill.
// Negative dimensions are treated as zero.
func New(width, height int, fill Color) *Image {
	width, height = max(width, 0), max(height, 0)
	if width == 0 || height == 0 {
		return &Image{width: width, height: height}
	}

	pixels := make([]Color, width*height)
	if fill != Black() {
		for i := range pixels {
			pixels[i] = fill
		}
	}

	return &Image{width: width, height: height, pixels: pixels}
}

func (m *Image) Width() int  { return m.width }
func (m *Image) Height() int { return m.height }

// Reports whether the image has no pixels.
func (m *Image) Empty() bool {
	return m == nil || m.width == 0 || m.height == 0
}

// Returns row y as a slice aliasing the image's storage.
// Writes through the slice modify the image.
func (m *Image) Line(y int) []Color {
	start := y * m.width
	return m.pixels[start : start+m.width : start+m.width]
}

// Returns the color at (x, y); (0, 0) is the top-left pixel.
func (m *Image) At(x, y int) Color {
	return m.pixels[y*m.width+x]
}

func (m *Image) Set(x, y int, c Color) {
	m.pixels[y*m.width+x] = c
}

// Returns a deep copy of the image
func (m *Image) Clone() *Image {
	dup := &Image{width: m.width, height: m.height}
	if m.pixels != nil {
		dup.pixels = make([]Color, len(m.pixels))
		copy(dup.pixels, m.pixels)
	}
	return dup
}

// Calls fn for every pixel, row by row. fn may modify the pixel.
func (m *Image) Each(fn func(x, y int, c *Color)) {
	for y := range m.height {
		line := m.Line(y)
		for x := range line {
			fn(x, y, &line[x])
		}
	}
}
