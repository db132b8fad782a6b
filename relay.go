package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type RunStore interface {
	InsertRun(run *RunRecord) error
}

type RelayInfo struct {
	Busy         bool     `json:"busy"`
	Progress     float64  `json:"progress"`
	LastError    *string  `json:"lastError"`
	InputFrames  int      `json:"inputFrames"`
	OutputFrames int      `json:"outputFrames"`
	SpeedRatio   *float64 `json:"speedRatio"`
	Runs         uint64   `json:"runs"`
	LastRunID    string   `json:"lastRunId"`
}

// Relay polls the engine on every tick and forwards what it produced to the
// session, the websocket clients and the run history
type Relay struct {
	logger    *logrus.Entry
	processor *engine.Processor
	session   *Session
	hub       *Hub
	runs      RunStore
	interval  time.Duration
	sync.RWMutex

	relayInfo RelayInfo
	current   runContext
}

// runContext is what the running computation was started with
type runContext struct {
	start       time.Time
	params      engine.Params
	inputFrames int
}

func NewRelay(logger *logrus.Entry, processor *engine.Processor, session *Session, hub *Hub, runs RunStore, interval time.Duration) *Relay {
	return &Relay{
		logger:    logger,
		processor: processor,
		session:   session,
		hub:       hub,
		runs:      runs,
		interval:  interval,
	}
}

func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Relay stopped")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick delivers everything the engine queued since the last tick
func (r *Relay) Tick() {
	r.processor.Poll(r)

	r.Lock()
	r.relayInfo.Busy = r.processor.IsBusy()
	r.relayInfo.Runs = r.processor.Runs()
	r.relayInfo.InputFrames = len(r.session.Input())
	r.Unlock()
}

func (r *Relay) OnProgress(fraction float64) {
	var started *runContext
	if fraction == engine.ProgressEpsilon {
		started = &runContext{
			start:       time.Now(),
			params:      r.session.Params(),
			inputFrames: len(r.session.Input()),
		}
	}

	r.Lock()
	if started != nil {
		r.current = *started
	}
	r.relayInfo.Progress = fraction
	r.Unlock()

	r.hub.BroadcastMessage(WsProgress{
		WsBaseMessage: WsBaseMessage{Type: WsTypeProgress},
		Progress:      fraction,
	})
}

func (r *Relay) OnResult(frames frame.Sequence) {
	r.session.SetOutput(frames)
	run := r.record(RunStatusDone, len(frames), "")

	var speedRatio *float64
	if ratio, ok := imageio.SpeedRatio(run.InputFrames, run.OutputFrames); ok {
		speedRatio = &ratio
	}

	r.Lock()
	r.relayInfo.OutputFrames = len(frames)
	r.relayInfo.SpeedRatio = speedRatio
	r.relayInfo.LastRunID = run.ID
	r.Unlock()

	r.logger.WithFields(StructFields(run)).Info("Interpolation finished")
	r.hub.BroadcastMessage(WsResult{
		WsBaseMessage: WsBaseMessage{Type: WsTypeResult},
		RunID:         run.ID,
		OutputFrames:  len(frames),
		SpeedRatio:    speedRatio,
	})
}

func (r *Relay) OnError(err *string) {
	r.Lock()
	r.relayInfo.LastError = err
	r.Unlock()

	if err != nil {
		run := r.record(RunStatusFailed, 0, *err)
		r.Lock()
		r.relayInfo.LastRunID = run.ID
		r.Unlock()
		r.logger.WithFields(StructFields(run)).Warn("Interpolation failed")
	}

	r.hub.BroadcastMessage(WsError{
		WsBaseMessage: WsBaseMessage{Type: WsTypeError},
		Error:         err,
	})
}

func (r *Relay) record(status string, outputFrames int, errMsg string) RunRecord {
	r.RLock()
	current := r.current
	r.RUnlock()

	var duration int64
	if current.start.IsZero() {
		// the start marker was missed, fall back to the session as it is now
		current.params = r.session.Params()
		current.inputFrames = len(r.session.Input())
	} else {
		duration = time.Since(current.start).Milliseconds()
	}

	params, err := json.Marshal(current.params)
	if err != nil {
		r.logger.Error("Failed to encode params for the run history: ", err)
	}

	run := RunRecord{
		ID:           uuid.NewString(),
		FinishedAt:   time.Now().UTC(),
		Status:       status,
		InputFrames:  current.inputFrames,
		OutputFrames: outputFrames,
		Duration:     duration,
		Params:       string(params),
		Error:        errMsg,
	}

	if r.runs != nil {
		if err := r.runs.InsertRun(&run); err != nil {
			r.logger.WithFields(StructFields(run)).Error("Failed to save run: ", err)
		}
	}
	return run
}

func (r *Relay) GetInfo() RelayInfo {
	r.RLock() // Shared lock for reading
	defer r.RUnlock()

	return r.relayInfo
}
