package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gwillem/rover/pkg/rover"
)

// Thumbnail size of the camera preview and each receptive-field map.
const (
	ThumbWidth  = 32
	ThumbHeight = 24
	ThumbValues = ThumbWidth * ThumbHeight * 3
)

// Thumbnail reshapes display-scaled values into a w x h RGB image.
// Values are laid out the way the network sees the camera: column-major
// over pixels with interleaved channels, so index (x*h+y)*3+c.
func Thumbnail(values []float64, w, h int) (*image.RGBA, error) {
	if len(values) != w*h*3 {
		return nil, fmt.Errorf("%w: reshape %d values into %dx%dx3", rover.ErrShapeMismatch, len(values), w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			i := (x*h + y) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(values[i]),
				G: toByte(values[i+1]),
				B: toByte(values[i+2]),
				A: 0xff,
			})
		}
	}
	return img, nil
}

// WeightMap scales one neuron's input weights and reshapes them into a
// receptive-field thumbnail.
func WeightMap(column []float64) (*image.RGBA, error) {
	return Thumbnail(ScaleForDisplay(column), ThumbWidth, ThumbHeight)
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clampPixel(v)))
}
