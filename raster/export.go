package raster

import (
	"bytes"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// EncodePNG writes the current raster as a PNG image.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

// EncodePDF writes a single page PDF, sized to the canvas in points, holding
// the raster.
func (c *Canvas) EncodePDF(w io.Writer) error {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return err
	}

	b := c.img.Bounds()
	wd, ht := float64(b.Dx()), float64(b.Dy())

	// "L" would swap the custom size, so always portrait
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("board", opts, &buf)
	p.ImageOptions("board", 0, 0, wd, ht, false, opts, 0, "")

	return p.Output(w)
}
