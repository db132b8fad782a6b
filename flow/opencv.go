//go:build with_cv
// +build with_cv

package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// OpenCV estimates flow with OpenCV's Farneback implementation. The
// algorithm parameters are mapped onto Farneback's pyramid and window.
type OpenCV struct {
	logger *logrus.Entry
}

func NewOpenCV(logger *logrus.Entry) (*OpenCV, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &OpenCV{logger: logger}, nil
}

type farnebackParams struct {
	levels     int
	winSize    int
	iterations int
	polyN      int
	polySigma  float64
}

func farnebackFor(alg Algorithm) farnebackParams {
	switch alg.Kind {
	case KindSimpleFlow:
		p := alg.SimpleFlow
		return farnebackParams{
			levels:     p.Layers,
			winSize:    max(p.AveragingBlockSize*2+1, 5),
			iterations: 3,
			polyN:      5,
			polySigma:  1.1,
		}
	case KindDenseRLOF:
		p := alg.DenseRLOF
		params := farnebackParams{
			levels:     rlofLevels,
			winSize:    max(max(p.GridStepX, p.GridStepY)*2+1, 9),
			iterations: 3,
			polyN:      5,
			polySigma:  1.1,
		}
		if p.UseVariationalRefinement {
			params.iterations = 6
		}
		if p.UsePostProc {
			params.polyN = 7
			params.polySigma = 1.5
		}
		return params
	default:
		panic(fmt.Sprintf("unknown optical flow algorithm %v", alg))
	}
}

func grayMat(f *frame.Frame) (gocv.Mat, error) {
	rgba, err := gocv.ImageToMatRGBA(opaqueImage(f))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("unable to convert the frame into a Mat: %w", err)
	}
	defer rgba.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray)
	return gray, nil
}

func (o *OpenCV) Estimate(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error) {
	if !a.SameSize(b) {
		return nil, fmt.Errorf("frames don't have the same size: %dx%d != %dx%d", a.Width, a.Height, b.Width, b.Height)
	}

	params := farnebackFor(alg)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matA, err := grayMat(a)
	if err != nil {
		return nil, err
	}
	defer matA.Close()

	matB, err := grayMat(b)
	if err != nil {
		return nil, err
	}
	defer matB.Close()

	start := time.Now()
	flowMat := gocv.NewMat()
	defer flowMat.Close()
	gocv.CalcOpticalFlowFarneback(matA, matB, &flowMat, 0.5, params.levels, params.winSize,
		params.iterations, params.polyN, params.polySigma, 0)

	if flowMat.Rows() != a.Height || flowMat.Cols() != a.Width {
		return nil, fmt.Errorf("opencv returned a %dx%d flow for %dx%d frames", flowMat.Cols(), flowMat.Rows(), a.Width, a.Height)
	}

	field := NewField(a.Width, a.Height)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			v := flowMat.GetVecfAt(y, x)
			field.Set(x, y, Vector{X: v[0], Y: v[1]})
		}
	}

	o.logger.WithField("algorithm", alg.Kind.String()).
		WithField("duration", time.Since(start).String()).
		Debug("OpenCV optical flow computed")
	return field, nil
}
