package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/gwillem/rover/pkg/rover"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 2 && d(a.G, b.G) <= 2 && d(a.B, b.B) <= 2
}

// rampTensor builds an (inputs+1) x neurons tensor with distinct columns.
func rampTensor(neurons int) rover.Tensor {
	t := rover.NewTensor(ThumbValues+1, neurons)
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			t.Data[r*t.Cols+c] = float64(r * (c + 1))
		}
	}
	return t
}

func TestThumbnail_Layout(t *testing.T) {
	values := make([]float64, 2*3*3)
	// pixel (x=1, y=2) sits at index (1*3+2)*3
	values[(1*3+2)*3] = 200
	values[(1*3+2)*3+2] = 300 // clamped to 255

	img, err := Thumbnail(values, 2, 3)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	got := img.RGBAAt(1, 2)
	if got.R != 200 || got.G != 0 || got.B != 255 {
		t.Errorf("pixel (1,2) = %+v, want R=200 G=0 B=255", got)
	}
	if img.RGBAAt(0, 0).R != 0 {
		t.Errorf("pixel (0,0) = %+v, want black", img.RGBAAt(0, 0))
	}

	if _, err := Thumbnail(values[:5], 2, 3); err == nil {
		t.Error("Thumbnail accepted wrong number of values")
	}
}

func TestRenderer_DrawsCameraAndThumbnail(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	c.Damage()
	r := NewRenderer(c, nil)

	red := color.RGBA{R: 255, A: 255}
	frame := &rover.Frame{Seq: 1, Data: encodePNG(t, 64, 48, red)}
	if err := r.Draw(frame, rover.Telemetry{}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if got := c.Image().RGBAAt(10, 10); !near(got, red) {
		t.Errorf("camera pane pixel = %+v, want red", got)
	}
	thumb := CameraThumbSlot()
	if got := c.Image().RGBAAt(thumb.X+5, thumb.Y+5); !near(got, red) {
		t.Errorf("thumbnail pixel = %+v, want red", got)
	}
	if len(c.Damage()) == 0 {
		t.Error("no damage recorded after drawing a frame")
	}

	// Same frame again: nothing to redraw.
	r.Draw(frame, rover.Telemetry{})
	if d := c.Damage(); len(d) != 0 {
		t.Errorf("redrawing an unchanged frame produced damage %v", d)
	}
}

func TestRenderer_DecodeFailureKeepsLastPicture(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	r := NewRenderer(c, nil)

	green := color.RGBA{G: 255, A: 255}
	if err := r.Draw(&rover.Frame{Seq: 1, Data: encodePNG(t, 32, 24, green)}, rover.Telemetry{}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	c.Damage()

	for seq, data := range [][]byte{nil, []byte("not an image")} {
		err := r.Draw(&rover.Frame{Seq: uint64(seq + 2), Data: data}, rover.Telemetry{})
		if !IsDecodeError(err) {
			t.Fatalf("Draw(bad frame) error = %v, want decode error", err)
		}
	}
	if got := c.Image().RGBAAt(5, 5); !near(got, green) {
		t.Errorf("camera pane pixel = %+v, want last good frame", got)
	}
	if d := c.Damage(); len(d) != 0 {
		t.Errorf("bad frames produced damage %v", d)
	}

	st := r.Stats()
	if st.DecodeErrors != 2 || st.Decoded != 1 || st.LastSeq != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRenderer_NeuronMaps(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	r := NewRenderer(c, nil)

	tel := rover.Telemetry{
		Weights: rampTensor(9),
		Deltas:  rover.NewTensor(ThumbValues+1, 9),
		Updated: time.Unix(100, 0),
	}
	r.Draw(nil, tel)

	if got := r.Stats().Neurons; got != 9 {
		t.Errorf("Neurons = %d, want 9", got)
	}
	// Ramp columns end at the bottom-right pixel with full intensity.
	for k := 0; k < MaxNeurons; k++ {
		p := WeightSlot(k).Add(image.Pt(ThumbWidth-1, ThumbHeight-1))
		if got := c.Image().RGBAAt(p.X, p.Y); got.B != 255 {
			t.Errorf("neuron %d weight map corner = %+v, want B=255", k, got)
		}
	}
	// Only seven neurons are shown.
	p := WeightSlot(MaxNeurons).Add(image.Pt(ThumbWidth-1, ThumbHeight-1))
	if p.X < CanvasWidth {
		if got := c.Image().RGBAAt(p.X, p.Y); got.B != 0 {
			t.Errorf("eighth neuron drawn: %+v", got)
		}
	}
	// All-zero deltas stay black rather than NaN garbage.
	d := DeltaSlot(0)
	if got := c.Image().RGBAAt(d.X+3, d.Y+3); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("zero delta map pixel = %+v, want black", got)
	}

	// Fewer neurons: stale slots are cleared.
	tel2 := rover.Telemetry{Weights: rampTensor(2), Deltas: rampTensor(2), Updated: time.Unix(101, 0)}
	r.Draw(nil, tel2)
	s := WeightSlot(4).Add(image.Pt(ThumbWidth-1, ThumbHeight-1))
	if got := c.Image().RGBAAt(s.X, s.Y); got.B != 0 {
		t.Errorf("slot 4 not cleared: %+v", got)
	}
}

func TestRenderer_ShapeMismatchIsSkipped(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	r := NewRenderer(c, nil)

	tel := rover.Telemetry{
		Weights: rover.NewTensor(11, 2),
		Updated: time.Unix(1, 0),
	}
	if err := r.Draw(nil, tel); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if got := r.Stats().ShapeErrors; got != 4 {
		t.Errorf("ShapeErrors = %d, want 4", got)
	}
}

func TestCanvas_BlitClipsAndRecordsDamage(t *testing.T) {
	c := NewCanvas(10, 10)
	c.Damage()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	c.Blit(src, image.Pt(8, 8))
	d := c.Damage()
	if len(d) != 1 || d[0] != image.Rect(8, 8, 10, 10) {
		t.Errorf("damage = %v, want [(8,8)-(10,10)]", d)
	}

	c.Blit(src, image.Pt(20, 20))
	if d := c.Damage(); len(d) != 0 {
		t.Errorf("off-canvas blit produced damage %v", d)
	}
}

func TestTerminalDisplay_RedrawsDirtyRows(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	d := NewTerminalDisplay(100)
	if err := d.Present(c, c.Damage()); err != nil {
		t.Fatalf("Present: %v", err)
	}

	cols, rows := d.Size()
	if cols > 100 || cols == 0 || rows == 0 {
		t.Fatalf("size = %dx%d, want at most 100 columns", cols, rows)
	}
	if got := d.redrawn; got != rows {
		t.Errorf("first present redrew %d rows, want %d", got, rows)
	}
	if d.View() == "" {
		t.Error("empty view")
	}

	// 8 pixels per column, 16 per row: a 40px square touches rows 0-2.
	d.redrawn = 0
	c.Fill(image.Rect(0, 0, 40, 40), color.RGBA{R: 255, A: 255})
	if err := d.Present(c, c.Damage()); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if d.redrawn != 3 {
		t.Errorf("redrew %d rows, want 3", d.redrawn)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLimiter_SleepsRemainingBudget(t *testing.T) {
	now := time.Unix(0, 0)
	var slept []time.Duration

	l := NewLimiter(50) // 20ms frames
	l.now = func() time.Time { return now }
	l.sleep = func(d time.Duration) {
		slept = append(slept, d)
		now = now.Add(d)
	}

	l.Begin()
	now = now.Add(5 * time.Millisecond)
	l.Wait()
	if len(slept) != 1 || slept[0] != 15*time.Millisecond {
		t.Fatalf("slept %v, want [15ms]", slept)
	}

	// Overloaded frame: no sleep, no skipped frame.
	now = now.Add(35 * time.Millisecond)
	l.Wait()
	if len(slept) != 1 {
		t.Errorf("slept during an overloaded frame: %v", slept)
	}
	if l.FPS() <= 0 {
		t.Errorf("FPS() = %v, want > 0", l.FPS())
	}
}
