package surface

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/vector"
)

const (
	labelDPI  float64 = 72
	labelSize float64 = 14
)

// Image is a raster surface backed by an *image.RGBA. Strokes are
// anti-aliased.
type Image struct {
	img   *image.RGBA
	paths [][]point
	text  *freetype.Context
}

// NewImage returns a transparent surface of the given pixel size.
func NewImage(width, height int) *Image {
	return &Image{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Bounds is the drawing area in pixels.
func (s *Image) Bounds() image.Rectangle { return s.img.Bounds() }

// RGBA exposes the backing image.
func (s *Image) RGBA() *image.RGBA { return s.img }

func (s *Image) Clear(r image.Rectangle) {
	draw.Draw(s.img, r, image.Transparent, image.Point{}, draw.Src)
}

func (s *Image) Fill(r image.Rectangle, c color.Color) {
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *Image) MoveTo(x, y float64) {
	s.paths = append(s.paths, []point{{x, y}})
}

func (s *Image) LineTo(x, y float64) {
	if len(s.paths) == 0 {
		s.MoveTo(x, y)
		return
	}
	last := len(s.paths) - 1
	s.paths[last] = append(s.paths[last], point{x, y})
}

// Stroke rasterizes each segment as a quad of the given width. All quads
// wind the same way so overlaps at joints do not cancel out.
func (s *Image) Stroke(width float64, c color.Color) {
	defer func() { s.paths = s.paths[:0] }()
	if width <= 0 {
		return
	}

	b := s.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	half := width / 2
	drawn := false

	for _, path := range s.paths {
		for i := 1; i < len(path); i++ {
			p0, p1 := path[i-1], path[i]
			dx, dy := p1.x-p0.x, p1.y-p0.y
			length := math.Hypot(dx, dy)
			if length == 0 {
				continue
			}
			nx, ny := -dy/length*half, dx/length*half

			ox, oy := float64(b.Min.X), float64(b.Min.Y)
			z.MoveTo(float32(p0.x+nx-ox), float32(p0.y+ny-oy))
			z.LineTo(float32(p1.x+nx-ox), float32(p1.y+ny-oy))
			z.LineTo(float32(p1.x-nx-ox), float32(p1.y-ny-oy))
			z.LineTo(float32(p0.x-nx-ox), float32(p0.y-ny-oy))
			z.ClosePath()
			drawn = true
		}
	}
	if drawn {
		z.Draw(s.img, b, image.NewUniform(c), image.Point{})
	}
}

// Label draws text with its baseline at (x, y).
func (s *Image) Label(text string, x, y int, c color.Color) error {
	if s.text == nil {
		parsedFont, err := freetype.ParseFont(goregular.TTF)
		if err != nil {
			return fmt.Errorf("parsing font: %w", err)
		}
		ctx := freetype.NewContext()
		ctx.SetDPI(labelDPI)
		ctx.SetFont(parsedFont)
		ctx.SetFontSize(labelSize)
		ctx.SetHinting(font.HintingNone)
		s.text = ctx
	}

	s.text.SetClip(s.img.Bounds())
	s.text.SetDst(s.img)
	s.text.SetSrc(image.NewUniform(c))
	if _, err := s.text.DrawString(text, freetype.Pt(x, y)); err != nil {
		return fmt.Errorf("drawing label: %w", err)
	}
	return nil
}

// EncodePNG writes the surface as a PNG.
func (s *Image) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}
