package main

import (
	"fmt"
	"sync"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Session holds the loaded input frames, the latest output of the engine and
// the params last accepted by it
type Session struct {
	logger    *logrus.Entry
	processor *engine.Processor
	sync.RWMutex

	input  frame.Sequence
	output frame.Sequence
	params engine.Params
}

func NewSession(processor *engine.Processor, logger *logrus.Entry) *Session {
	return &Session{
		logger:    logger,
		processor: processor,
	}
}

// LoadFrames replaces the input, drops the previous output and hands the
// frames to the engine
func (s *Session) LoadFrames(frames frame.Sequence) error {
	if len(frames) == 0 {
		return imageio.ErrNoFrames
	}

	s.Lock()
	s.input = frames
	s.output = nil
	s.Unlock()

	var size uint64
	for _, f := range frames {
		size += uint64(len(f.Pix))
	}
	s.logger.WithFields(logrus.Fields{
		"frames": len(frames),
		"width":  frames[0].Width,
		"height": frames[0].Height,
		"size":   humanize.Bytes(size),
	}).Info("Loaded input frames")

	s.processor.SubmitFrames(frames)
	return nil
}

func (s *Session) SetParams(params engine.Params) error {
	if err := s.processor.SubmitParams(params); err != nil {
		return err
	}

	s.Lock()
	s.params = params
	s.Unlock()

	s.logger.WithFields(StructFields(params)).Debug("Params updated")
	return nil
}

func (s *Session) Params() engine.Params {
	s.RLock()
	defer s.RUnlock()
	return s.params
}

func (s *Session) Input() frame.Sequence {
	s.RLock()
	defer s.RUnlock()
	return s.input
}

func (s *Session) Output() frame.Sequence {
	s.RLock()
	defer s.RUnlock()
	return s.output
}

func (s *Session) SetOutput(frames frame.Sequence) {
	s.Lock()
	defer s.Unlock()
	s.output = frames
}

func (s *Session) OutputFrame(index int) (*frame.Frame, error) {
	s.RLock()
	defer s.RUnlock()

	if index < 0 || index >= len(s.output) {
		return nil, fmt.Errorf("frame %d doesn't exist, there are %d output frames", index, len(s.output))
	}
	return s.output[index], nil
}
