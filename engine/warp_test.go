package engine

import (
	"math"
	"testing"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarpZeroMultiplierIsIdentity(t *testing.T) {
	f := gradientFrame(5, 4)

	out := Warp(f, nil, 0)
	assert.True(t, out.Equal(f))

	out.Pix[0] = 99
	assert.NotEqual(t, uint8(99), f.Pix[0], "warp must not alias the input")
}

func TestWarpZeroFieldIsIdempotent(t *testing.T) {
	f := gradientFrame(6, 3)
	field := flow.NewField(6, 3)

	for _, m := range []float32{0.25, 1, -3, 100} {
		assert.True(t, Warp(f, field, m).Equal(f), "multiplier %v", m)
	}
}

func TestWarpNonFiniteIsZeroMotion(t *testing.T) {
	f := gradientFrame(4, 4)
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	field := flow.NewField(4, 4)
	for i := range field.Vectors {
		switch i % 3 {
		case 0:
			field.Vectors[i] = flow.Vector{X: nan, Y: 0}
		case 1:
			field.Vectors[i] = flow.Vector{X: 0, Y: inf}
		default:
			field.Vectors[i] = flow.Vector{X: nan, Y: -inf}
		}
	}

	assert.True(t, Warp(f, field, 1).Equal(f))
}

func TestWarpSamplesBackwards(t *testing.T) {
	f := gradientFrame(5, 1)
	out := Warp(f, uniformField(5, 1, flow.Vector{X: 1}), 1)

	// output x reads source x-1, clamped at the left edge
	assert.Equal(t, f.At(0, 0), out.At(0, 0))
	for x := 1; x < 5; x++ {
		assert.Equal(t, f.At(x-1, 0), out.At(x, 0), "x=%d", x)
	}
}

func TestWarpRoundsHalfAwayFromZero(t *testing.T) {
	f := gradientFrame(5, 1)
	out := Warp(f, uniformField(5, 1, flow.Vector{X: 1}), 0.5)

	// x - 0.5 rounds up to x
	assert.True(t, out.Equal(f))
}

func TestWarpClampsHugeDisplacements(t *testing.T) {
	f := gradientFrame(4, 4)
	out := Warp(f, uniformField(4, 4, flow.Vector{X: 1e30, Y: -1e30}), 1)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, f.At(0, 3), out.At(x, y))
		}
	}
}

func TestWarpCheckedRejectsMismatchedField(t *testing.T) {
	f := gradientFrame(4, 4)

	_, err := WarpChecked(f, flow.NewField(3, 4), 1)
	require.Error(t, err)

	_, err = WarpChecked(f, nil, 1)
	require.Error(t, err)

	assert.Panics(t, func() { Warp(f, flow.NewField(3, 4), 1) })
}
