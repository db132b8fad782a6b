package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/Zelak312/tweenarr/frame"
)

// ProgressEpsilon is reported at the start of every run so hosts can tell
// "started" apart from "idle at zero"
const ProgressEpsilon = 2.220446049250313e-16

// scaled multipliers closer to zero than this copy the frame instead of warping
const flowMultiplierEpsilon = 1e-6

var (
	// ErrCancelled is returned when a run is abandoned because newer input arrived
	ErrCancelled = errors.New("run cancelled")
	// ErrFlow wraps failures of the flow estimator
	ErrFlow = errors.New("optical flow failed")
)

// DimensionError reports a frame whose size differs from the first frame
type DimensionError struct {
	Index    int
	Expected string
	Got      string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("frame %d has size %s, expected %s like the first frame", e.Index, e.Got, e.Expected)
}

// FieldSizeError reports a motion field that doesn't cover the frame it was
// estimated from
type FieldSizeError struct {
	Index    int
	Expected string
	Got      string
}

func (e *FieldSizeError) Error() string {
	return fmt.Sprintf("motion field of frame %d has size %s, expected %s like the frame", e.Index, e.Got, e.Expected)
}

func checkFieldSize(index int, f *frame.Frame, field *flow.Field) error {
	if field != nil && field.Width == f.Width && field.Height == f.Height {
		return nil
	}

	got := "none"
	if field != nil {
		got = fmt.Sprintf("%dx%d", field.Width, field.Height)
	}
	return &FieldSizeError{
		Index:    index,
		Expected: fmt.Sprintf("%dx%d", f.Width, f.Height),
		Got:      got,
	}
}

// PanicError carries a panic recovered during a run
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("Unknown error '%v' with type %T", v, v)
	}
}

type Job struct {
	Frames    frame.Sequence
	Params    Params
	Estimator flow.Estimator
	// Cancelled is polled before every pair and after every emitted frame
	Cancelled func() bool
	Progress  func(fraction float64)
}

// Pair is two consecutive frames of the extended sequence
type Pair struct {
	Index int
	A, B  *frame.Frame
}

// PairFrames extends frames with the first frame when loop is set, or holds
// the last frame otherwise, and slides a window of two over the result.
// There is always one pair per input frame.
func PairFrames(frames frame.Sequence, loop bool) []Pair {
	if len(frames) == 0 {
		return nil
	}

	extended := make(frame.Sequence, 0, len(frames)+1)
	extended = append(extended, frames...)
	if loop {
		extended = append(extended, frames[0])
	} else {
		extended = append(extended, frames[len(frames)-1])
	}

	pairs := make([]Pair, 0, len(frames))
	for i := 0; i+1 < len(extended); i++ {
		pairs = append(pairs, Pair{Index: i, A: extended[i], B: extended[i+1]})
	}
	return pairs
}

// Schedule returns the fractions of the motion each pair emits, k/(n+1) for
// k in [0, n]. Motion vector mode forces n to zero.
func Schedule(inbetweens int, motionVectors bool) []float32 {
	if motionVectors || inbetweens < 0 {
		inbetweens = 0
	}

	fractions := make([]float32, inbetweens+1)
	for k := range fractions {
		fractions[k] = float32(k) / float32(inbetweens+1)
	}
	return fractions
}

// Run interpolates job.Frames. The motion of every pair is estimated, then
// each fraction of the schedule emits the first frame of the pair warped by
// fraction*multiplier. In motion vector mode the visualized field is emitted
// once per pair instead.
//
// Run returns ErrCancelled as soon as job.Cancelled reports true or ctx is done.
func Run(ctx context.Context, job Job) (frame.Sequence, error) {
	frames := job.Frames
	if len(frames) == 0 {
		return nil, nil
	}

	params := job.Params
	cancelled := func() bool {
		return ctx.Err() != nil || (job.Cancelled != nil && job.Cancelled())
	}
	progress := func(f float64) {
		if job.Progress != nil {
			job.Progress(f)
		}
	}

	pairs := PairFrames(frames, params.LoopSeamlessly)
	schedule := Schedule(params.Inbetweens, params.ShowMotionVectors)
	total := float64(len(pairs) * len(schedule))
	if params.ShowMotionVectors {
		total = float64(len(pairs))
	}

	out := make(frame.Sequence, 0, int(total))
	emit := func(f *frame.Frame) bool {
		out = append(out, f)
		progress(float64(len(out)) / total)
		return !cancelled()
	}

	for _, pair := range pairs {
		if cancelled() {
			return nil, ErrCancelled
		}

		if !pair.A.SameSize(pair.B) {
			return nil, &DimensionError{
				Index:    (pair.Index + 1) % len(frames),
				Expected: fmt.Sprintf("%dx%d", pair.A.Width, pair.A.Height),
				Got:      fmt.Sprintf("%dx%d", pair.B.Width, pair.B.Height),
			}
		}

		field, err := job.Estimator.Estimate(ctx, pair.A, pair.B, params.Algorithm)
		if err != nil {
			if cancelled() {
				return nil, ErrCancelled
			}
			return nil, fmt.Errorf("%w for frame %d: %w", ErrFlow, pair.Index, err)
		}
		if err := checkFieldSize(pair.Index, pair.A, field); err != nil {
			return nil, err
		}

		if params.ShowMotionVectors {
			if !emit(Visualize(field)) {
				return nil, ErrCancelled
			}
			continue
		}

		for _, fraction := range schedule {
			m := fraction * params.FlowMultiplier
			var next *frame.Frame
			if math.Abs(float64(m)) < flowMultiplierEpsilon {
				next = pair.A.Clone()
			} else {
				next, err = WarpChecked(pair.A, field, m)
				if err != nil {
					return nil, fmt.Errorf("warping frame %d: %w", pair.Index, err)
				}
			}

			if !emit(next) {
				return nil, ErrCancelled
			}
		}
	}

	progress(1)
	return out, nil
}
