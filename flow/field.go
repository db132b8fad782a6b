package flow

import (
	"fmt"
	"math"
)

// Vector is a per pixel displacement, components may be NaN or infinite
type Vector struct {
	X float32
	Y float32
}

// Finite reports whether both components are finite numbers
func (v Vector) Finite() bool {
	return !math.IsNaN(float64(v.X)) && !math.IsInf(float64(v.X), 0) &&
		!math.IsNaN(float64(v.Y)) && !math.IsInf(float64(v.Y), 0)
}

func (v Vector) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// Field is a dense motion field, one vector per pixel stored row-major.
// A vector at (x, y) maps the pixel of the first frame to (x+X, y+Y) in the second.
type Field struct {
	Width   int
	Height  int
	Vectors []Vector
}

func NewField(width, height int) *Field {
	return &Field{
		Width:   width,
		Height:  height,
		Vectors: make([]Vector, width*height),
	}
}

func (f *Field) At(x, y int) Vector {
	return f.Vectors[y*f.Width+x]
}

func (f *Field) Set(x, y int, v Vector) {
	f.Vectors[y*f.Width+x] = v
}

func (f *Field) String() string {
	return fmt.Sprintf("Field(%dx%d)", f.Width, f.Height)
}
