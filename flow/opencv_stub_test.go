//go:build !with_cv
// +build !with_cv

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenCVBackendNeedsBuildTag(t *testing.T) {
	est, err := NewEstimator(BackendOpenCV, nil)
	assert.ErrorIs(t, err, ErrOpenCVUnavailable)
	assert.Nil(t, est)
}
