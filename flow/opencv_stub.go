//go:build !with_cv
// +build !with_cv

package flow

import (
	"context"
	"errors"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/sirupsen/logrus"
)

var ErrOpenCVUnavailable = errors.New("built without OpenCV support, rebuild with -tags with_cv")

// OpenCV is only available when building with the with_cv tag
type OpenCV struct{}

func NewOpenCV(logger *logrus.Entry) (*OpenCV, error) {
	return nil, ErrOpenCVUnavailable
}

func (o *OpenCV) Estimate(ctx context.Context, a, b *frame.Frame, alg Algorithm) (*Field, error) {
	return nil, ErrOpenCVUnavailable
}
