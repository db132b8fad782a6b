package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zelak312/tweenarr/flow"
	"github.com/Zelak312/tweenarr/frame"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

type updateKind int

const (
	newFrames updateKind = iota
	newParams
)

type update struct {
	kind   updateKind
	frames frame.Sequence
	params Params
}

// Events receives what the worker produced since the last Poll
type Events interface {
	OnProgress(fraction float64)
	OnResult(frames frame.Sequence)
	// OnError gets nil when a new run starts, clearing the previous error
	OnError(err *string)
}

// Processor owns the background worker. Every batch of updates restarts the
// interpolation from scratch with the latest frames and params.
type Processor struct {
	logger    *logrus.Entry
	estimator flow.Estimator

	updates  *mailbox[update]
	progress *mailbox[float64]
	results  *mailbox[frame.Sequence]
	errs     *mailbox[*string]

	state guard

	busy         atomic.Bool
	lastProgress atomic.Float64
	runs         atomic.Uint64

	cancel   context.CancelFunc
	done     chan struct{}
	startMux sync.Mutex
}

func NewProcessor(estimator flow.Estimator, logger *logrus.Entry) *Processor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Processor{
		logger:    logger,
		estimator: estimator,
		updates:   newMailbox[update](),
		progress:  newMailbox[float64](),
		results:   newMailbox[frame.Sequence](),
		errs:      newMailbox[*string](),
		state:     guard{logger: logger},
	}
}

// Start spawns the worker goroutine, calling it again is a no-op
func (p *Processor) Start(ctx context.Context) {
	p.startMux.Lock()
	defer p.startMux.Unlock()
	if p.done != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.progress.Push(0)

	go func() {
		defer close(p.done)
		p.loop(ctx)
	}()
	p.logger.Info("Processor started")
}

// Stop cancels the worker and waits for it to exit
func (p *Processor) Stop() {
	p.startMux.Lock()
	cancel, done := p.cancel, p.done
	p.startMux.Unlock()
	if done == nil {
		return
	}

	cancel()
	<-done
	p.logger.Info("Processor stopped")
}

func (p *Processor) SubmitParams(params Params) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	p.logger.WithField("params", params).Debug("Params submitted")
	p.updates.Push(update{kind: newParams, params: params})
	return nil
}

// SubmitFrames replaces the frames to interpolate, an empty sequence idles the worker
func (p *Processor) SubmitFrames(frames frame.Sequence) {
	owned := append(frame.Sequence(nil), frames...)
	p.logger.WithField("count", len(owned)).Debug("Frames submitted")
	p.updates.Push(update{kind: newFrames, frames: owned})
}

func (p *Processor) PollProgress() []float64 {
	return p.progress.Drain()
}

func (p *Processor) PollResult() (frame.Sequence, bool) {
	return p.results.TryPop()
}

func (p *Processor) PollError() (*string, bool) {
	return p.errs.TryPop()
}

// Poll delivers every queued progress value, at most one result and at most one error
func (p *Processor) Poll(events Events) {
	for _, fraction := range p.PollProgress() {
		events.OnProgress(fraction)
	}

	if result, ok := p.PollResult(); ok {
		events.OnResult(result)
	}

	if err, ok := p.PollError(); ok {
		events.OnError(err)
	}
}

// IsBusy reports whether a run is being computed
func (p *Processor) IsBusy() bool {
	return p.busy.Load()
}

// LastProgress is the last fraction reported by the current or previous run
func (p *Processor) LastProgress() float64 {
	return p.lastProgress.Load()
}

// Runs counts the runs that were started
func (p *Processor) Runs() uint64 {
	return p.runs.Load()
}

// retainLatest keeps the last params and the last frames of a batch
func retainLatest(batch []update) (*Params, frame.Sequence, bool) {
	var params *Params
	var frames frame.Sequence
	haveFrames := false
	for i := range batch {
		switch batch[i].kind {
		case newParams:
			params = &batch[i].params
		case newFrames:
			frames = batch[i].frames
			haveFrames = true
		}
	}
	return params, frames, haveFrames
}

func (p *Processor) loop(ctx context.Context) {
	for {
		batch, err := p.updates.Wait(ctx)
		if err != nil {
			return
		}

		params, frames, haveFrames := retainLatest(batch)
		var snapshot state
		p.state.Do(func(s *state) {
			if params != nil {
				s.params = *params
			}
			if haveFrames {
				s.frames = frames
			}
			snapshot = *s
		})

		p.logger.WithFields(logrus.Fields{
			"updates": len(batch),
			"frames":  len(snapshot.frames),
		}).Debug("Applied updates")
		p.compute(ctx, snapshot)
	}
}

func (p *Processor) compute(ctx context.Context, s state) {
	if len(s.frames) == 0 {
		p.logger.Debug("No frames, waiting")
		return
	}

	if s.params.Algorithm.Kind == flow.KindInvalid {
		p.logger.Debug("No params yet, waiting")
		return
	}

	p.busy.Store(true)
	defer p.busy.Store(false)

	run := p.runs.Inc()
	logger := p.logger.WithField("run", run)
	p.reportProgress(ProgressEpsilon)
	p.errs.Push(nil)

	start := time.Now()
	out, err := p.protectedRun(ctx, s)
	switch {
	case errors.Is(err, ErrCancelled):
		logger.Debug("Cancelling current calculation")
	case err != nil:
		msg := err.Error()
		logger.Warn("Run failed: ", msg)
		p.errs.Push(&msg)
	default:
		logger.WithFields(logrus.Fields{
			"input":    len(s.frames),
			"output":   len(out),
			"duration": time.Since(start),
		}).Info("Run finished")
		p.results.Push(out)
	}
}

// protectedRun turns a panic anywhere in the pipeline into a *PanicError
func (p *Processor) protectedRun(ctx context.Context, s state) (out frame.Sequence, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := newPanicError(r)
			p.logger.WithField("stack", string(perr.Stack)).Error("Run panicked: ", perr)
			out, err = nil, perr
		}
	}()

	return Run(ctx, Job{
		Frames:    s.frames,
		Params:    s.params,
		Estimator: p.estimator,
		Cancelled: p.updates.HasPending,
		Progress:  p.reportProgress,
	})
}

func (p *Processor) reportProgress(fraction float64) {
	p.lastProgress.Store(fraction)
	p.progress.Push(fraction)
}
