package engine

import (
	"math"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/Zelak312/tweenarr/frame"
)

const magnitudeScale = 0.3

// Visualize color codes a motion field: hue is the direction, value the
// magnitude. Vectors with a non finite component become transparent.
func Visualize(field *flow.Field) *frame.Frame {
	out := frame.New(field.Width, field.Height)
	for i, v := range field.Vectors {
		if !v.Finite() {
			// frame.New is already transparent
			continue
		}

		magnitude := float64(v.Length()) * magnitudeScale
		angle := math.Atan2(float64(v.Y), float64(v.X))
		if angle < 0 {
			angle += 2 * math.Pi
		}
		hue := angle / (2 * math.Pi)
		if hue >= 1 {
			hue -= 1
		}

		r, g, b := hsvToRGB(hue, 1, math.Min(math.Max(magnitude, 0), 1))
		p := out.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = toByte(r), toByte(g), toByte(b), 255
	}
	return out
}

// hsvToRGB converts h, s, v in [0, 1] to r, g, b in [0, 1]
func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h6 := h * 6
	sector := math.Floor(h6)
	f := h6 - sector
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(sector) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func toByte(c float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(c, 0), 1) * 255))
}
