package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

// TerminalDisplay shows a canvas as text using upper half-block cells: the
// foreground colour paints the top pixel row of a cell and the background
// colour the bottom one. Only rows touched by dirty regions are redrawn.
type TerminalDisplay struct {
	width  int // terminal columns available
	scale  int // canvas pixels per cell column
	cols   int
	rows   int
	lines  []string
	canvas *Canvas

	redrawn int
}

// NewTerminalDisplay returns a display fitting the canvas into width columns.
func NewTerminalDisplay(width int) *TerminalDisplay {
	d := &TerminalDisplay{}
	d.Resize(width)
	return d
}

// Resize adapts to a new terminal width and redraws everything on the next
// Present or immediately if a canvas was already shown.
func (d *TerminalDisplay) Resize(width int) {
	if width < 1 {
		width = 80
	}
	d.width = width
	d.lines = nil
	if d.canvas != nil {
		d.redraw(d.canvas, nil)
	}
}

// Present redraws the text rows overlapping the dirty regions.
func (d *TerminalDisplay) Present(c *Canvas, dirty []image.Rectangle) error {
	if c == nil {
		return fmt.Errorf("present: nil canvas")
	}
	d.redraw(c, dirty)
	return nil
}

// View returns the rendered canvas.
func (d *TerminalDisplay) View() string {
	return strings.Join(d.lines, "\n")
}

// Size returns the rendered size in cells.
func (d *TerminalDisplay) Size() (cols, rows int) {
	return d.cols, d.rows
}

// Close drops the rendered rows.
func (d *TerminalDisplay) Close() error {
	d.lines = nil
	d.canvas = nil
	return nil
}

func (d *TerminalDisplay) redraw(c *Canvas, dirty []image.Rectangle) {
	b := c.Bounds()
	full := d.canvas != c || d.lines == nil
	d.canvas = c

	if full {
		d.scale = max(1, (b.Dx()+d.width-1)/d.width)
		d.cols = (b.Dx() + d.scale - 1) / d.scale
		d.rows = (b.Dy() + 2*d.scale - 1) / (2 * d.scale)
		d.lines = make([]string, d.rows)
		for row := range d.lines {
			d.lines[row] = d.renderRow(c.Image(), row)
		}
		return
	}

	cellH := 2 * d.scale
	done := make(map[int]bool)
	for _, r := range dirty {
		r = r.Intersect(b)
		if r.Empty() {
			continue
		}
		for row := (r.Min.Y - b.Min.Y) / cellH; row <= (r.Max.Y-1-b.Min.Y)/cellH && row < d.rows; row++ {
			if !done[row] {
				done[row] = true
				d.lines[row] = d.renderRow(c.Image(), row)
			}
		}
	}
}

func (d *TerminalDisplay) renderRow(img *image.RGBA, row int) string {
	d.redrawn++
	b := img.Bounds()
	y0 := b.Min.Y + row*2*d.scale
	y1 := y0 + d.scale

	var sb strings.Builder
	var runTop, runBottom color.RGBA
	run := 0
	flush := func() {
		if run == 0 {
			return
		}
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(hex(runTop))).
			Background(lipgloss.Color(hex(runBottom)))
		sb.WriteString(style.Render(strings.Repeat(halfBlock, run)))
		run = 0
	}

	for col := 0; col < d.cols; col++ {
		x0 := b.Min.X + col*d.scale
		top := average(img, image.Rect(x0, y0, x0+d.scale, y0+d.scale))
		bottom := average(img, image.Rect(x0, y1, x0+d.scale, y1+d.scale))
		if run > 0 && (top != runTop || bottom != runBottom) {
			flush()
		}
		runTop, runBottom = top, bottom
		run++
	}
	flush()
	return sb.String()
}

// average returns the mean colour of img inside r.
func average(img *image.RGBA, r image.Rectangle) color.RGBA {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return color.RGBA{A: 0xff}
	}
	var sr, sg, sb, n int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := img.RGBAAt(x, y)
			sr += int(p.R)
			sg += int(p.G)
			sb += int(p.B)
			n++
		}
	}
	return color.RGBA{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n), A: 0xff}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
