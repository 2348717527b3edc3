package surface

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"
	"sync"
)

// ColorProfile is the color depth used when rendering to a terminal.
type ColorProfile uint8

const (
	ProfileNone ColorProfile = iota
	ProfileANSI16
	ProfileANSI256
	ProfileTrueColor
)

type rgb struct {
	R, G, B uint8
}

var (
	profileOnce sync.Once
	profile     ColorProfile
	seqCache    sync.Map
)

// DetectProfile inspects NO_COLOR, COLORTERM and TERM once per process.
func DetectProfile() ColorProfile {
	profileOnce.Do(func() {
		if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
			profile = ProfileNone
			return
		}
		term := strings.ToLower(os.Getenv("TERM"))
		colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
		switch {
		case strings.Contains(colorTerm, "truecolor"), strings.Contains(colorTerm, "24bit"):
			profile = ProfileTrueColor
		case strings.Contains(term, "256color"):
			profile = ProfileANSI256
		case term == "", term == "dumb":
			profile = ProfileNone
		default:
			profile = ProfileANSI16
		}
	})
	return profile
}

// blend composites c over an opaque background.
func blend(c, background color.Color) rgb {
	fg := color.NRGBAModel.Convert(c).(color.NRGBA)
	bg := color.NRGBAModel.Convert(background).(color.NRGBA)
	a := float64(fg.A) / 255
	mix := func(f, b uint8) uint8 {
		return uint8(math.Round(float64(f)*a + float64(b)*(1-a)))
	}
	return rgb{R: mix(fg.R, bg.R), G: mix(fg.G, bg.G), B: mix(fg.B, bg.B)}
}

type ansiState struct {
	profile ColorProfile
	current uint32
}

func newANSIState(p ColorProfile) ansiState {
	return ansiState{profile: p, current: ^uint32(0)}
}

func (s *ansiState) set(sb *strings.Builder, c rgb) {
	if s.profile == ProfileNone {
		return
	}
	key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	if key == s.current {
		return
	}
	sb.WriteString(colorSequence(s.profile, c))
	s.current = key
}

func (s *ansiState) reset(sb *strings.Builder) {
	if s.profile == ProfileNone || s.current == ^uint32(0) {
		return
	}
	sb.WriteString("\x1b[0m")
	s.current = ^uint32(0)
}

var ansi16Palette = []rgb{
	{R: 0, G: 0, B: 0},
	{R: 205, G: 49, B: 49},
	{R: 13, G: 188, B: 121},
	{R: 229, G: 229, B: 16},
	{R: 36, G: 114, B: 200},
	{R: 188, G: 63, B: 188},
	{R: 17, G: 168, B: 205},
	{R: 229, G: 229, B: 229},
}

func colorSequence(p ColorProfile, c rgb) string {
	key := uint32(p)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	if seq, ok := seqCache.Load(key); ok {
		return seq.(string)
	}

	var seq string
	switch p {
	case ProfileTrueColor:
		seq = fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
	case ProfileANSI256:
		r := int(c.R) * 5 / 255
		g := int(c.G) * 5 / 255
		b := int(c.B) * 5 / 255
		seq = fmt.Sprintf("\x1b[38;5;%dm", 16+36*r+6*g+b)
	case ProfileANSI16:
		best := 0
		bestDist := math.MaxFloat64
		for i, q := range ansi16Palette {
			dr := float64(c.R) - float64(q.R)
			dg := float64(c.G) - float64(q.G)
			db := float64(c.B) - float64(q.B)
			if d := dr*dr + dg*dg + db*db; d < bestDist {
				bestDist = d
				best = i
			}
		}
		seq = fmt.Sprintf("\x1b[%dm", 30+best)
	}

	seqCache.Store(key, seq)
	return seq
}
