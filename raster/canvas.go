// Package raster is the drawing surface a session renders segments onto.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"drawing-board/protocol"
)

const (
	DefaultWidth      = 800
	DefaultHeight     = 600
	DefaultBackground = "#ffffff"
)

var ErrSnapshotSize = errors.New("raster: snapshot does not match canvas size")

// Canvas is an RGBA raster filled with a background color. It is not safe for
// concurrent use; the owning session serializes access.
type Canvas struct {
	img        *image.RGBA
	background string
	bg         color.NRGBA
	ras        *vector.Rasterizer
}

// New returns a blank canvas of the given size.
func New(width, height int, background string) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid size %dx%d", width, height)
	}
	bg, err := protocol.ParseColor(background)
	if err != nil {
		return nil, fmt.Errorf("raster: background: %w", err)
	}

	c := &Canvas{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		background: background,
		bg:         bg,
		ras:        vector.NewRasterizer(0, 0),
	}
	c.Clear()
	return c, nil
}

// Background is the color string a blank canvas is filled with.
func (c *Canvas) Background() string { return c.background }

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Clear fills the whole canvas with the background color.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.bg), image.Point{}, draw.Src)
}

// DrawSegment strokes seg as a line with round caps, composited over the
// current pixels. Only the part of the stroke that can reach the canvas is
// rasterized, and only within the rectangle it covers.
func (c *Canvas) DrawSegment(seg protocol.Segment) error {
	if err := seg.Validate(); err != nil {
		return err
	}
	col, _ := protocol.ParseColor(seg.Color)

	b := c.img.Bounds()
	radius := seg.BrushSize / 2
	pad := radius + 1

	x0, y0, x1, y1, ok := clipSegment(seg.X0, seg.Y0, seg.X1, seg.Y1,
		float64(b.Min.X)-pad, float64(b.Min.Y)-pad, float64(b.Max.X)+pad, float64(b.Max.Y)+pad)
	if !ok {
		return nil
	}

	box := image.Rect(
		int(math.Floor(math.Min(x0, x1)-pad)), int(math.Floor(math.Min(y0, y1)-pad)),
		int(math.Ceil(math.Max(x0, x1)+pad)), int(math.Ceil(math.Max(y0, y1)+pad)),
	).Intersect(b)
	if box.Empty() {
		return nil
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	c.ras.Reset(box.Dx(), box.Dy())
	capsule(c.ras, x0-ox, y0-oy, x1-ox, y1-oy, radius)
	c.ras.Draw(c.img, box, image.NewUniform(col), image.Point{})
	return nil
}

// Snapshot returns a copy of the pixel buffer.
func (c *Canvas) Snapshot() []byte {
	out := make([]byte, len(c.img.Pix))
	copy(out, c.img.Pix)
	return out
}

// Restore replaces the pixel buffer with a snapshot taken from a canvas of
// the same size.
func (c *Canvas) Restore(snap []byte) error {
	if len(snap) != len(c.img.Pix) {
		return ErrSnapshotSize
	}
	copy(c.img.Pix, snap)
	return nil
}

// Image returns a copy of the current raster.
func (c *Canvas) Image() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// capsule adds the outline of a thick line with semicircular ends. A zero
// length segment becomes a disc.
func capsule(r *vector.Rasterizer, x0, y0, x1, y1, radius float64) {
	dx, dy := x1-x0, y1-y0
	theta := math.Atan2(dy, dx)
	if dx == 0 && dy == 0 {
		theta = 0
	}
	steps := arcSteps(radius)

	pt := func(cx, cy, a float64) (float32, float32) {
		return float32(cx + radius*math.Cos(a)), float32(cy + radius*math.Sin(a))
	}

	// around the end cap from +normal to -normal, then back around the start
	start := theta + math.Pi/2
	r.MoveTo(pt(x1, y1, start))
	for i := 1; i <= steps; i++ {
		r.LineTo(pt(x1, y1, start-math.Pi*float64(i)/float64(steps)))
	}
	start = theta - math.Pi/2
	r.LineTo(pt(x0, y0, start))
	for i := 1; i <= steps; i++ {
		r.LineTo(pt(x0, y0, start-math.Pi*float64(i)/float64(steps)))
	}
	r.ClosePath()
}

func arcSteps(radius float64) int {
	n := int(math.Ceil(radius * 2))
	if n < 4 {
		return 4
	}
	if n > 64 {
		return 64
	}
	return n
}

// clipSegment clips the segment to the rectangle with Liang-Barsky. Endpoints
// already inside are returned unchanged and clipped ones land on the edge they
// were cut by. ok is false when no part of the segment lies in the rectangle.
func clipSegment(x0, y0, x1, y1, xmin, ymin, xmax, ymax float64) (ax, ay, bx, by float64, ok bool) {
	// halved deltas stay finite for any pair of finite endpoints
	hdx, hdy := x1/2-x0/2, y1/2-y0/2

	edges := [4]struct {
		p, q, bound float64
		vertical    bool
	}{
		{-hdx, (x0 - xmin) / 2, xmin, true},
		{hdx, (xmax - x0) / 2, xmax, true},
		{-hdy, (y0 - ymin) / 2, ymin, false},
		{hdy, (ymax - y0) / 2, ymax, false},
	}

	t0, t1 := 0.0, 1.0
	in, out := -1, -1
	for i, e := range edges {
		if e.p == 0 {
			if e.q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := e.q / e.p
		if e.p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			if t > t0 {
				t0, in = t, i
			}
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			if t < t1 {
				t1, out = t, i
			}
		}
	}

	at := func(t float64, edge int) (float64, float64) {
		x, y := x0+t*hdx+t*hdx, y0+t*hdy+t*hdy
		if edges[edge].vertical {
			x = edges[edge].bound
		} else {
			y = edges[edge].bound
		}
		return clamp(x, xmin, xmax), clamp(y, ymin, ymax)
	}

	ax, ay, bx, by = x0, y0, x1, y1
	if in >= 0 {
		ax, ay = at(t0, in)
	}
	if out >= 0 {
		bx, by = at(t1, out)
	}
	return ax, ay, bx, by, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
