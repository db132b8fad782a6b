package flow

import (
	"image"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/anthonynsimon/bild/blur"
)

// Pixels this transparent are treated as black before estimating flow,
// the color stored under them is usually garbage.
const alphaCutoff = 30

const presmoothRadius = 0.8

// plane is a single channel float image
type plane struct {
	w, h int
	v    []float32
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, v: make([]float32, w*h)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *plane) at(x, y int) float32 {
	x = clampInt(x, 0, p.w-1)
	y = clampInt(y, 0, p.h-1)
	return p.v[y*p.w+x]
}

// sample reads the plane with bilinear filtering, coordinates are clamped to the edges
func (p *plane) sample(x, y float32) float32 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > float32(p.w-1) {
		x = float32(p.w - 1)
	}
	if y > float32(p.h-1) {
		y = float32(p.h - 1)
	}

	x0, y0 := int(x), int(y)
	fx, fy := x-float32(x0), y-float32(y0)
	top := p.at(x0, y0)*(1-fx) + p.at(x0+1, y0)*fx
	bottom := p.at(x0, y0+1)*(1-fx) + p.at(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

// down halves the plane by averaging 2x2 blocks
func (p *plane) down() *plane {
	d := newPlane((p.w+1)/2, (p.h+1)/2)
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			sx, sy := x*2, y*2
			d.v[y*d.w+x] = (p.at(sx, sy) + p.at(sx+1, sy) + p.at(sx, sy+1) + p.at(sx+1, sy+1)) / 4
		}
	}
	return d
}

// gradients returns the central difference derivatives along x and y
func (p *plane) gradients() (*plane, *plane) {
	gx, gy := newPlane(p.w, p.h), newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			gx.v[y*p.w+x] = (p.at(x+1, y) - p.at(x-1, y)) / 2
			gy.v[y*p.w+x] = (p.at(x, y+1) - p.at(x, y-1)) / 2
		}
	}
	return gx, gy
}

// pyramid builds up to levels planes, index 0 being full resolution.
// It stops early once a level gets smaller than minSize in either direction.
func pyramid(base *plane, levels, minSize int) []*plane {
	out := []*plane{base}
	for len(out) < levels {
		last := out[len(out)-1]
		if last.w/2 < minSize || last.h/2 < minSize {
			break
		}
		out = append(out, last.down())
	}
	return out
}

// grayPlane converts a frame to luminance. Nearly transparent pixels become
// black and the image is slightly blurred to make matching less noisy.
func grayPlane(f *frame.Frame) *plane {
	opaque := image.NewNRGBA(f.Bounds())
	for i := 0; i < len(f.Pix); i += 4 {
		if f.Pix[i+3] >= alphaCutoff {
			opaque.Pix[i] = f.Pix[i]
			opaque.Pix[i+1] = f.Pix[i+1]
			opaque.Pix[i+2] = f.Pix[i+2]
		}
		opaque.Pix[i+3] = 255
	}

	var src image.Image = opaque
	if f.Width > 2 && f.Height > 2 {
		src = blur.Gaussian(opaque, presmoothRadius)
	}

	p := newPlane(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			p.v[y*p.w+x] = (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 257
		}
	}
	return p
}

// opaqueImage returns the frame with the same low alpha handling as grayPlane,
// for backends that do their own grayscale conversion
func opaqueImage(f *frame.Frame) *image.NRGBA {
	img := f.ToImage()
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] < alphaCutoff {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 0
		}
		img.Pix[i+3] = 255
	}
	return img
}
