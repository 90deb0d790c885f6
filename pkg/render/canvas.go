package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Canvas is the composited console picture plus the regions changed since
// the last present. Whoever creates it owns it and passes it to the renderer.
type Canvas struct {
	img   *image.RGBA
	dirty []image.Rectangle
}

// NewCanvas returns a black canvas of the given size, fully dirty.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	c.Fill(c.img.Bounds(), color.RGBA{A: 0xff})
	return c
}

// Bounds returns the canvas rectangle.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Image returns the canvas pixels. Callers must not modify them.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Blit draws src with its top-left corner at p and marks the area dirty.
func (c *Canvas) Blit(src image.Image, p image.Point) {
	r := src.Bounds().Sub(src.Bounds().Min).Add(p).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, src, src.Bounds().Min, draw.Src)
	c.dirty = append(c.dirty, r)
}

// Fill paints r with a solid colour and marks it dirty.
func (c *Canvas) Fill(r image.Rectangle, col color.Color) {
	r = r.Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
	c.dirty = append(c.dirty, r)
}

// Damage returns the regions changed since the previous call and resets
// the list.
func (c *Canvas) Damage() []image.Rectangle {
	d := c.dirty
	c.dirty = nil
	return d
}
