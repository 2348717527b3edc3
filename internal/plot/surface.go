package plot

import (
	"image"
	"image/color"
)

// Surface is the 2D drawing target Draw paints into.
type Surface interface {
	Clear(r image.Rectangle)
	Fill(r image.Rectangle, c color.Color)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Stroke paints the accumulated path and starts a new one.
	Stroke(width float64, c color.Color)
}

// WithAlpha replaces the alpha of c, keeping its color channels.
func WithAlpha(c color.Color, alpha float64) color.NRGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(alpha*255 + 0.5)
	return n
}
