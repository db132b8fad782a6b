package flow

import (
	"context"
	"math"
	"sort"

	"github.com/Zelak312/tweenarr/frame"
	"gonum.org/v1/gonum/mat"
)

const (
	rlofLevels       = 3
	rlofWindow       = 7
	rlofIterations   = 10
	rlofMinEigen     = 1e-3
	rlofEpsilon      = 0.01
	refineIterations = 30
	refineSmoothness = 400
)

type tracker struct {
	levelsA, levelsB []*plane
	gradX, gradY     []*plane
}

func newTracker(from, to []*plane) *tracker {
	t := &tracker{levelsA: from, levelsB: to}
	for _, p := range from {
		gx, gy := p.gradients()
		t.gradX = append(t.gradX, gx)
		t.gradY = append(t.gradY, gy)
	}
	return t
}

// track follows the point (x, y) of the first pyramid into the second one
// with pyramidal Lucas-Kanade. ok is false when the window has no texture
// to lock on to.
func (t *tracker) track(x, y float32) (Vector, bool) {
	var d Vector
	for level := len(t.levelsA) - 1; level >= 0; level-- {
		scale := float32(int(1) << level)
		px, py := x/scale, y/scale
		a, b := t.levelsA[level], t.levelsB[level]
		gx, gy := t.gradX[level], t.gradY[level]

		var gxx, gxy, gyy float64
		for wy := -rlofWindow; wy <= rlofWindow; wy++ {
			for wx := -rlofWindow; wx <= rlofWindow; wx++ {
				ix := float64(gx.sample(px+float32(wx), py+float32(wy)))
				iy := float64(gy.sample(px+float32(wx), py+float32(wy)))
				gxx += ix * ix
				gxy += ix * iy
				gyy += iy * iy
			}
		}

		area := float64((2*rlofWindow + 1) * (2*rlofWindow + 1))
		trace, det := gxx+gyy, gxx*gyy-gxy*gxy
		minEigen := (trace - math.Sqrt(math.Max(trace*trace-4*det, 0))) / 2 / area
		if minEigen < rlofMinEigen {
			return Vector{}, false
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(mat.NewSymDense(2, []float64{gxx, gxy, gxy, gyy})); !ok {
			return Vector{}, false
		}

		for iter := 0; iter < rlofIterations; iter++ {
			var bx, by float64
			for wy := -rlofWindow; wy <= rlofWindow; wy++ {
				for wx := -rlofWindow; wx <= rlofWindow; wx++ {
					sx, sy := px+float32(wx), py+float32(wy)
					it := float64(b.sample(sx+d.X, sy+d.Y) - a.sample(sx, sy))
					bx += float64(gx.sample(sx, sy)) * it
					by += float64(gy.sample(sx, sy)) * it
				}
			}

			var delta mat.VecDense
			if err := chol.SolveVecTo(&delta, mat.NewVecDense(2, []float64{-bx, -by})); err != nil {
				return Vector{}, false
			}

			d.X += float32(delta.AtVec(0))
			d.Y += float32(delta.AtVec(1))
			if math.Hypot(delta.AtVec(0), delta.AtVec(1)) < rlofEpsilon {
				break
			}
		}

		if level > 0 {
			d.X *= 2
			d.Y *= 2
		}
	}

	if !d.Finite() {
		return Vector{}, false
	}
	return d, true
}

func gridAxis(size, step int) []int {
	axis := []int{}
	for v := 0; v < size; v += step {
		axis = append(axis, v)
	}
	if axis[len(axis)-1] != size-1 {
		axis = append(axis, size-1)
	}
	return axis
}

// denseRLOF tracks a sparse grid of points forward and backward, drops
// the ones failing the consistency check and interpolates the survivors
// into a dense field. Pixels without any surviving neighbour are NaN.
func denseRLOF(ctx context.Context, a, b *frame.Frame, p DenseRLOFParams) (*Field, error) {
	planeA, planeB := grayPlane(a), grayPlane(b)
	levelsA := pyramid(planeA, rlofLevels, 8)
	levelsB := pyramid(planeB, len(levelsA), 8)
	forward := newTracker(levelsA, levelsB)
	backward := newTracker(levelsB, levelsA)

	xs, ys := gridAxis(a.Width, p.GridStepX), gridAxis(a.Height, p.GridStepY)
	nan := float32(math.NaN())
	grid := make([]Vector, len(xs)*len(ys))
	for gy, y := range ys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for gx, x := range xs {
			grid[gy*len(xs)+gx] = Vector{X: nan, Y: nan}

			fwd, ok := forward.track(float32(x), float32(y))
			if !ok {
				continue
			}

			if p.ForwardBackwardThreshold > 0 {
				bwd, ok := backward.track(float32(x)+fwd.X, float32(y)+fwd.Y)
				if !ok {
					continue
				}
				if (Vector{X: fwd.X + bwd.X, Y: fwd.Y + bwd.Y}).Length() > p.ForwardBackwardThreshold {
					continue
				}
			}

			grid[gy*len(xs)+gx] = fwd
		}
	}

	field := interpolateGrid(grid, xs, ys, a.Width, a.Height)
	if p.UsePostProc {
		field = medianField(field)
	}
	if p.UseVariationalRefinement {
		if err := refineField(ctx, field, planeA, planeB); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return field, nil
}

// interpolateGrid bilinearly interpolates the finite grid vectors of each cell
func interpolateGrid(grid []Vector, xs, ys []int, w, h int) *Field {
	field := NewField(w, h)
	nan := float32(math.NaN())

	for y := 0; y < h; y++ {
		cy := sort.SearchInts(ys, y+1) - 1
		cy = clampInt(cy, 0, max(len(ys)-2, 0))
		for x := 0; x < w; x++ {
			cx := sort.SearchInts(xs, x+1) - 1
			cx = clampInt(cx, 0, max(len(xs)-2, 0))

			x0, y0 := xs[cx], ys[cy]
			x1, y1 := xs[min(cx+1, len(xs)-1)], ys[min(cy+1, len(ys)-1)]
			fx, fy := float32(0), float32(0)
			if x1 > x0 {
				fx = float32(x-x0) / float32(x1-x0)
			}
			if y1 > y0 {
				fy = float32(y-y0) / float32(y1-y0)
			}

			corners := [4]struct {
				v Vector
				w float32
			}{
				{grid[cy*len(xs)+cx], (1 - fx) * (1 - fy)},
				{grid[cy*len(xs)+min(cx+1, len(xs)-1)], fx * (1 - fy)},
				{grid[min(cy+1, len(ys)-1)*len(xs)+cx], (1 - fx) * fy},
				{grid[min(cy+1, len(ys)-1)*len(xs)+min(cx+1, len(xs)-1)], fx * fy},
			}

			var sx, sy, sw float32
			for _, c := range corners {
				if !c.v.Finite() {
					continue
				}
				sx += c.v.X * c.w
				sy += c.v.Y * c.w
				sw += c.w
			}

			if sw <= 0 {
				// fall back to any finite corner, weights can all be zero on the cell edge
				v := Vector{X: nan, Y: nan}
				for _, c := range corners {
					if c.v.Finite() {
						v = c.v
						break
					}
				}
				field.Set(x, y, v)
				continue
			}
			field.Set(x, y, Vector{X: sx / sw, Y: sy / sw})
		}
	}
	return field
}

// medianField replaces every vector by the component wise median of the
// finite vectors in its 3x3 neighbourhood
func medianField(f *Field) *Field {
	out := NewField(f.Width, f.Height)
	xs := make([]float64, 0, 9)
	ys := make([]float64, 0, 9)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			xs, ys = xs[:0], ys[:0]
			for wy := -1; wy <= 1; wy++ {
				for wx := -1; wx <= 1; wx++ {
					nx, ny := x+wx, y+wy
					if nx < 0 || ny < 0 || nx >= f.Width || ny >= f.Height {
						continue
					}
					v := f.At(nx, ny)
					if v.Finite() {
						xs = append(xs, float64(v.X))
						ys = append(ys, float64(v.Y))
					}
				}
			}

			if len(xs) == 0 {
				out.Set(x, y, f.At(x, y))
				continue
			}
			sort.Float64s(xs)
			sort.Float64s(ys)
			out.Set(x, y, Vector{X: float32(xs[len(xs)/2]), Y: float32(ys[len(ys)/2])})
		}
	}
	return out
}

// refineField runs warped Horn-Schunck iterations seeded with the
// interpolated field. Non finite vectors are left untouched.
func refineField(ctx context.Context, f *Field, a, b *plane) error {
	gxB, gyB := b.gradients()
	u0 := make([]Vector, len(f.Vectors))
	copy(u0, f.Vectors)

	ix := make([]float32, len(u0))
	iy := make([]float32, len(u0))
	it := make([]float32, len(u0))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			v := u0[i]
			if !v.Finite() {
				continue
			}
			wx, wy := float32(x)+v.X, float32(y)+v.Y
			ix[i] = gxB.sample(wx, wy)
			iy[i] = gyB.sample(wx, wy)
			it[i] = b.sample(wx, wy) - a.at(x, y)
		}
	}

	next := make([]Vector, len(u0))
	for iter := 0; iter < refineIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				i := y*f.Width + x
				cur := f.Vectors[i]
				if !u0[i].Finite() {
					next[i] = cur
					continue
				}

				avg, n := Vector{}, float32(0)
				for _, o := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+o[0], y+o[1]
					if nx < 0 || ny < 0 || nx >= f.Width || ny >= f.Height {
						continue
					}
					v := f.At(nx, ny)
					if !v.Finite() {
						continue
					}
					avg.X += v.X
					avg.Y += v.Y
					n++
				}
				if n == 0 {
					next[i] = cur
					continue
				}
				avg.X /= n
				avg.Y /= n

				residual := ix[i]*(avg.X-u0[i].X) + iy[i]*(avg.Y-u0[i].Y) + it[i]
				denom := refineSmoothness + ix[i]*ix[i] + iy[i]*iy[i]
				next[i] = Vector{
					X: avg.X - ix[i]*residual/denom,
					Y: avg.Y - iy[i]*residual/denom,
				}
			}
		}
		copy(f.Vectors, next)
	}
	return nil
}
