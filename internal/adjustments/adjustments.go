// Adjusts image dimensions, orientation, or structure.
package adjustments

import (
	"errors"
	"slices"

	"github.com/anas-shakeel/imgconv/internal/img"
)

// Crops a region in the image (0,0  is at the top-left of the image)
func Crop(m *img.Image, x, y, width, height int) (*img.Image, error) {
	// Validate bounds
	if x < 0 || y < 0 || width < 0 || height < 0 {
		return nil, errors.New("invalid bounds: negative offset or size")
	} else if width+x > m.Width() {
		return nil, errors.New("invalid bounds: width out of bounds")
	} else if height+y > m.Height() {
		return nil, errors.New("invalid bounds: height out of bounds")
	}

	cropped := img.New(width, height, img.Black())
	for row := range height {
		src := m.Line(y + row)
		copy(cropped.Line(row), src[x : x+width])
	}

	return cropped, nil
}

// Mirrors the image top-to-bottom in-place
func FlipVertical(m *img.Image) {
	for top, bottom := 0, m.Height()-1; top < bottom; top, bottom = top+1, bottom-1 {
		a, b := m.Line(top), m.Line(bottom)
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
}

// Mirrors the image left-to-right in-place
func FlipHorizontal(m *img.Image) {
	for y := range m.Height() {
		slices.Reverse(m.Line(y))
	}
}
