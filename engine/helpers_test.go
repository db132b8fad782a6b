package engine

import (
	"context"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/Zelak312/tweenarr/frame"
)

func solidFrame(w, h int, c uint8) *frame.Frame {
	f := frame.New(w, h)
	for i := range f.Pix {
		f.Pix[i] = c
	}
	return f
}

// gradientFrame has a distinct red value per column
func gradientFrame(w, h int) *frame.Frame {
	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := (y*w + x) * 4
			f.Pix[o] = uint8(x * 10)
			f.Pix[o+1] = uint8(y * 10)
			f.Pix[o+3] = 255
		}
	}
	return f
}

func uniformField(w, h int, v flow.Vector) *flow.Field {
	field := flow.NewField(w, h)
	for i := range field.Vectors {
		field.Vectors[i] = v
	}
	return field
}

func constantEstimator(v flow.Vector) flow.Estimator {
	return flow.EstimatorFunc(func(_ context.Context, a, _ *frame.Frame, _ flow.Algorithm) (*flow.Field, error) {
		return uniformField(a.Width, a.Height, v), nil
	})
}

func simpleFlowParams() Params {
	return Params{
		Inbetweens:     1,
		FlowMultiplier: 1,
		Algorithm: flow.Algorithm{
			Kind:       flow.KindSimpleFlow,
			SimpleFlow: flow.SimpleFlowParams{Layers: 3, AveragingBlockSize: 2, MaxFlow: 4},
		},
	}
}
