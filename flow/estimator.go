package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/sirupsen/logrus"
)

// Estimator computes the motion field going from frame a to frame b.
// Both frames must have the same dimensions. Receiving a KindInvalid
// algorithm is a programming error and panics.
type Estimator interface {
	Estimate(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error)
}

// EstimatorFunc adapts a plain function to the Estimator interface
type EstimatorFunc func(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error)

func (f EstimatorFunc) Estimate(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error) {
	return f(ctx, a, b, alg)
}

const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// NewEstimator returns the estimator implementation for the given backend name
func NewEstimator(backend string, logger *logrus.Entry) (Estimator, error) {
	switch backend {
	case "", BackendNative:
		return NewNative(logger), nil
	case BackendOpenCV:
		est, err := NewOpenCV(logger)
		if err != nil {
			return nil, err
		}
		return est, nil
	default:
		return nil, fmt.Errorf("unknown flow backend %q", backend)
	}
}

// Native is a pure Go implementation of both algorithm families
type Native struct {
	logger *logrus.Entry
}

func NewNative(logger *logrus.Entry) *Native {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Native{logger: logger}
}

func (n *Native) Estimate(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error) {
	if !a.SameSize(b) {
		return nil, fmt.Errorf("frames don't have the same size: %dx%d != %dx%d", a.Width, a.Height, b.Width, b.Height)
	}

	if a.Width == 0 || a.Height == 0 {
		return NewField(a.Width, a.Height), nil
	}

	start := time.Now()
	var (
		field *Field
		err   error
	)

	switch alg.Kind {
	case KindSimpleFlow:
		field, err = simpleFlow(ctx, a, b, alg.SimpleFlow)
	case KindDenseRLOF:
		field, err = denseRLOF(ctx, a, b, alg.DenseRLOF)
	default:
		panic(fmt.Sprintf("unknown optical flow algorithm %v", alg))
	}

	if err != nil {
		return nil, err
	}

	n.logger.WithField("algorithm", alg.Kind.String()).
		WithField("size", fmt.Sprintf("%dx%d", a.Width, a.Height)).
		WithField("duration", time.Since(start).String()).
		Debug("Optical flow computed")
	return field, nil
}
