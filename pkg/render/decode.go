package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned for empty or malformed camera frames.
var ErrDecode = errors.New("decode frame")

// DecodeFrame decodes an encoded camera image.
func DecodeFrame(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Downsample scales img to exactly w x h pixels.
func Downsample(img image.Image, w, h int) image.Image {
	return resize.Resize(uint(w), uint(h), img, resize.Bilinear)
}

// Fit scales img to fit inside w x h, keeping its aspect ratio.
func Fit(img image.Image, w, h int) image.Image {
	return resize.Thumbnail(uint(w), uint(h), img, resize.Bilinear)
}
