package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Frame is an owned RGBA8 pixel buffer with straight alpha. Pixels are
// stored row-major, 4 bytes per pixel, so len(Pix) == Width*Height*4.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// New creates a fully transparent frame
func New(width, height int) *Frame {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("frame: negative size %dx%d", width, height))
	}

	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// FromPix wraps an existing pixel buffer, the buffer is copied
func FromPix(width, height int, pix []uint8) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer has %d bytes, expected %d for %dx%d", len(pix), width*height*4, width, height)
	}

	f := New(width, height)
	copy(f.Pix, pix)
	return f, nil
}

// FromImage converts any image into a frame, the origin is moved to (0, 0)
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())

	// Fast path, avoids the per pixel color model conversion
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < f.Height; y++ {
			src := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(f.Pix[y*f.Width*4:(y+1)*f.Width*4], src[:f.Width*4])
		}
		return f
	}

	// Pixels are stored with straight (non premultiplied) alpha
	nrgba := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	copy(f.Pix, nrgba.Pix)
	return f
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f *Frame) offset(x, y int) int {
	return (y*f.Width + x) * 4
}

// At returns the pixel at (x, y). Coordinates must be in bounds.
func (f *Frame) At(x, y int) color.NRGBA {
	i := f.offset(x, y)
	p := f.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    make([]uint8, len(f.Pix)),
	}
	copy(c.Pix, f.Pix)
	return c
}

// ToImage returns a copy of the frame as a standard library image
func (f *Frame) ToImage() *image.NRGBA {
	img := image.NewNRGBA(f.Bounds())
	copy(img.Pix, f.Pix)
	return img
}

// SameSize reports whether both frames have identical dimensions
func (f *Frame) SameSize(other *Frame) bool {
	return f.Width == other.Width && f.Height == other.Height
}

// Equal reports whether both frames have the same size and pixels
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}

	return f.SameSize(other) && bytes.Equal(f.Pix, other.Pix)
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%dx%d)", f.Width, f.Height)
}
