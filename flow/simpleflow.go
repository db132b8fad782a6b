package flow

import (
	"context"
	"math"

	"github.com/Zelak312/tweenarr/frame"
)

// simpleFlow is a coarse to fine block matcher. The coarsest level is searched
// exhaustively inside the max flow radius, every finer level refines the
// upscaled estimate by one pixel in each direction. The result is averaged
// over the averaging block to smooth out matching noise.
func simpleFlow(ctx context.Context, a, b *frame.Frame, p SimpleFlowParams) (*Field, error) {
	levelsA := pyramid(grayPlane(a), p.Layers, 4)
	levelsB := pyramid(grayPlane(b), len(levelsA), 4)
	top := len(levelsA) - 1

	radius := int(math.Ceil(float64(p.MaxFlow) / float64(int(1)<<top)))
	if radius < 1 {
		radius = 1
	}

	var guess []Vector
	for level := top; level >= 0; level-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pa, pb := levelsA[level], levelsB[level]
		search := 1
		if level == top {
			search = radius
			guess = make([]Vector, pa.w*pa.h)
		} else {
			guess = upscale(guess, levelsA[level+1], pa)
		}

		var err error
		guess, err = matchBlocks(ctx, pa, pb, guess, p.AveragingBlockSize, search, float32(p.MaxFlow)/float32(int(1)<<level))
		if err != nil {
			return nil, err
		}
	}

	field := &Field{Width: a.Width, Height: a.Height, Vectors: guess}
	return smoothField(ctx, field, p.AveragingBlockSize)
}

// upscale doubles a vector grid to the size of the finer plane
func upscale(vectors []Vector, coarse, fine *plane) []Vector {
	out := make([]Vector, fine.w*fine.h)
	for y := 0; y < fine.h; y++ {
		cy := clampInt(y/2, 0, coarse.h-1)
		for x := 0; x < fine.w; x++ {
			cx := clampInt(x/2, 0, coarse.w-1)
			v := vectors[cy*coarse.w+cx]
			out[y*fine.w+x] = Vector{X: v.X * 2, Y: v.Y * 2}
		}
	}
	return out
}

func matchBlocks(ctx context.Context, pa, pb *plane, guess []Vector, half, search int, maxFlow float32) ([]Vector, error) {
	out := make([]Vector, len(guess))
	for y := 0; y < pa.h; y++ {
		for x := 0; x < pa.w; x++ {
			g := guess[y*pa.w+x]
			gx, gy := int(math.Round(float64(g.X))), int(math.Round(float64(g.Y)))

			best := Vector{X: float32(gx), Y: float32(gy)}
			bestCost := float32(math.MaxFloat32)
			bestLen := float32(math.MaxFloat32)
			for dy := -search; dy <= search; dy++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				for dx := -search; dx <= search; dx++ {
					cand := Vector{X: float32(gx + dx), Y: float32(gy + dy)}
					if absf(cand.X) > maxFlow || absf(cand.Y) > maxFlow {
						continue
					}

					cost := blockCost(pa, pb, x, y, gx+dx, gy+dy, half)
					length := cand.X*cand.X + cand.Y*cand.Y
					// ties go to the smallest displacement so flat areas stay still
					if cost < bestCost || (cost == bestCost && length < bestLen) {
						best, bestCost, bestLen = cand, cost, length
					}
				}
			}

			out[y*pa.w+x] = best
		}
	}
	return out, nil
}

// blockCost is the sum of squared differences between the block around
// (x, y) in a and the block around (x+dx, y+dy) in b
func blockCost(pa, pb *plane, x, y, dx, dy, half int) float32 {
	var cost float32
	for wy := -half; wy <= half; wy++ {
		for wx := -half; wx <= half; wx++ {
			d := pa.at(x+wx, y+wy) - pb.at(x+dx+wx, y+dy+wy)
			cost += d * d
		}
	}
	return cost
}

// smoothField box filters the finite vectors of a field
func smoothField(ctx context.Context, f *Field, half int) (*Field, error) {
	out := NewField(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for x := 0; x < f.Width; x++ {
			var sx, sy float32
			n := 0
			for wy := -half; wy <= half; wy++ {
				for wx := -half; wx <= half; wx++ {
					v := f.At(clampInt(x+wx, 0, f.Width-1), clampInt(y+wy, 0, f.Height-1))
					if !v.Finite() {
						continue
					}
					sx += v.X
					sy += v.Y
					n++
				}
			}

			if n == 0 {
				out.Set(x, y, f.At(x, y))
				continue
			}
			out.Set(x, y, Vector{X: sx / float32(n), Y: sy / float32(n)})
		}
	}
	return out, nil
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
