package engine

import (
	"fmt"
	"math"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/Zelak312/tweenarr/frame"
)

// Warp builds a new frame by sampling every output pixel from f at the
// position the motion field points back to, scaled by multiplier.
// Sampling is nearest neighbour and coordinates are clamped to the frame.
// A zero multiplier returns a copy without reading the field.
func Warp(f *frame.Frame, field *flow.Field, multiplier float32) *frame.Frame {
	out, err := WarpChecked(f, field, multiplier)
	if err != nil {
		panic(err)
	}
	return out
}

// WarpChecked is Warp returning an error when the field doesn't match the frame
func WarpChecked(f *frame.Frame, field *flow.Field, multiplier float32) (*frame.Frame, error) {
	if multiplier == 0 {
		return f.Clone(), nil
	}

	if field == nil || field.Width != f.Width || field.Height != f.Height {
		return nil, fmt.Errorf("motion field %v doesn't match frame %v", field, f)
	}

	w, h := f.Width, f.Height
	out := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := field.At(x, y)
			if !v.Finite() {
				v = flow.Vector{}
			}

			// TODO: sample with a bilinear filter instead of rounding once pixel art mode is optional
			sx := clampCoord(float32(x)-v.X*multiplier, w)
			sy := clampCoord(float32(y)-v.Y*multiplier, h)

			src := (sy*w + sx) * 4
			dst := (y*w + x) * 4
			copy(out.Pix[dst:dst+4], f.Pix[src:src+4])
		}
	}

	return out, nil
}

// clampCoord rounds half away from zero and clamps into [0, size-1].
// Clamping happens before the int conversion so huge values can't overflow.
func clampCoord(v float32, size int) int {
	r := math.Round(float64(v))
	if r < 0 {
		return 0
	}
	if r > float64(size-1) {
		return size - 1
	}
	return int(r)
}
