// Package surface provides drawing targets for the waveform: a terminal
// surface built from Unicode Braille cells and a raster image surface.
package surface

import (
	"image"
	"image/color"
	"math"
	"strings"
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

type point struct{ x, y float64 }

type dot struct {
	on    bool
	color rgb
	stamp uint32
}

// Braille is a terminal surface. Each character cell is a 2x4 dot grid, so
// a surface of cols×rows cells has a drawing area of (2·cols)×(4·rows) dots.
type Braille struct {
	cols, rows int
	dots       []dot
	background color.Color
	paths      [][]point
	stamp      uint32
	profile    ColorProfile
}

// NewBraille returns a blank surface cols cells wide and rows cells tall.
func NewBraille(cols, rows int) *Braille {
	b := &Braille{background: color.Black, profile: DetectProfile()}
	b.Resize(cols, rows)
	return b
}

// Resize changes the cell grid and clears it.
func (b *Braille) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	b.cols, b.rows = cols, rows
	b.dots = make([]dot, cols*2*rows*4)
	b.paths = b.paths[:0]
}

// SetProfile overrides the detected color profile.
func (b *Braille) SetProfile(p ColorProfile) { b.profile = p }

// Bounds is the drawing area in dots.
func (b *Braille) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.cols*2, b.rows*4)
}

func (b *Braille) Clear(r image.Rectangle) {
	r = r.Intersect(b.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			b.dots[y*b.cols*2+x] = dot{}
		}
	}
}

// Fill sets the color strokes are blended against. Cells cannot show a
// background, so the area itself is only cleared.
func (b *Braille) Fill(r image.Rectangle, c color.Color) {
	b.background = c
	b.Clear(r)
}

func (b *Braille) MoveTo(x, y float64) {
	b.paths = append(b.paths, []point{{x, y}})
}

func (b *Braille) LineTo(x, y float64) {
	if len(b.paths) == 0 {
		b.MoveTo(x, y)
		return
	}
	last := len(b.paths) - 1
	b.paths[last] = append(b.paths[last], point{x, y})
}

// Stroke sets every dot along the path. Lines 1.5 dots or wider also set
// the dot below each one.
func (b *Braille) Stroke(width float64, c color.Color) {
	b.stamp++
	col := blend(c, b.background)
	thick := width >= 1.5

	for _, path := range b.paths {
		if len(path) == 1 {
			b.plot(path[0].x, path[0].y, col, thick)
			continue
		}
		for i := 1; i < len(path); i++ {
			b.line(path[i-1], path[i], col, thick)
		}
	}
	b.paths = b.paths[:0]
}

func (b *Braille) plot(fx, fy float64, col rgb, thick bool) {
	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	b.set(x, y, col)
	if thick {
		b.set(x, y+1, col)
	}
}

func (b *Braille) set(x, y int, col rgb) {
	if x < 0 || y < 0 || x >= b.cols*2 || y >= b.rows*4 {
		return
	}
	b.dots[y*b.cols*2+x] = dot{on: true, color: col, stamp: b.stamp}
}

// line walks from p0 to p1 with Bresenham's algorithm.
func (b *Braille) line(p0, p1 point, col rgb, thick bool) {
	x0, y0 := int(math.Floor(p0.x)), int(math.Floor(p0.y))
	x1, y1 := int(math.Floor(p1.x)), int(math.Floor(p1.y))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		b.set(x0, y0, col)
		if thick {
			b.set(x0, y0+1, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// String renders the grid with ANSI colors for the surface's profile. Each
// cell takes the color of the most recently stroked dot inside it.
func (b *Braille) String() string {
	return b.render(b.profile)
}

// Plain renders the grid without color sequences.
func (b *Braille) Plain() string {
	return b.render(ProfileNone)
}

func (b *Braille) render(p ColorProfile) string {
	dotCols := b.cols * 2
	state := newANSIState(p)
	var sb strings.Builder
	sb.Grow(b.rows * (b.cols*3 + 1))

	for row := 0; row < b.rows; row++ {
		if row > 0 {
			state.reset(&sb)
			sb.WriteByte('\n')
		}
		for col := 0; col < b.cols; col++ {
			var pattern uint
			var cellColor rgb
			var newest uint32
			for dx := range 2 {
				for dy := range 4 {
					d := b.dots[(row*4+dy)*dotCols+col*2+dx]
					if !d.on {
						continue
					}
					pattern |= 1 << brailleBits[dx][dy]
					if d.stamp >= newest {
						newest = d.stamp
						cellColor = d.color
					}
				}
			}
			if pattern != 0 {
				state.set(&sb, cellColor)
			}
			sb.WriteRune(rune(0x2800 + pattern))
		}
	}
	state.reset(&sb)
	return sb.String()
}
