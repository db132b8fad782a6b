package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/sirupsen/logrus"
)

// VideoWriter pipes raw RGBA frames into ffmpeg
type VideoWriter struct {
	binary    string
	width     int
	height    int
	frameRate float64
	logger    *logrus.Entry

	writer *Command
	stdin  io.WriteCloser
}

func NewVideoWriter(binary string, width, height int, frameRate float64, logger *logrus.Entry) *VideoWriter {
	return &VideoWriter{
		binary:    binary,
		width:     width,
		height:    height,
		frameRate: frameRate,
		logger:    logger,
	}
}

func (vw *VideoWriter) args(outputPath string) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", vw.width, vw.height),
		"-framerate", strconv.FormatFloat(vw.frameRate, 'f', -1, 64),
		"-i", "pipe:0",
		// yuv420p needs even dimensions
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
}

func (vw *VideoWriter) StartWriting(ctx context.Context, outputPath string) error {
	vw.writer = CommandContextLogger(ctx, vw.logger, vw.binary, vw.args(outputPath)...)

	stdin, err := vw.writer.GetStdin()
	if err != nil {
		return fmt.Errorf("creating stdin pipe: %w", err)
	}

	vw.stdin = stdin
	return vw.writer.Start()
}

func (vw *VideoWriter) WriteFrame(f *frame.Frame) error {
	if f.Width != vw.width || f.Height != vw.height {
		return fmt.Errorf("frame %v doesn't match the %dx%d video", f, vw.width, vw.height)
	}

	_, err := vw.stdin.Write(f.Pix)
	return err
}

func (vw *VideoWriter) Close() error {
	var errs []error

	if vw.stdin != nil {
		if err := vw.stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing stdin: %w", err))
		}
	}

	if vw.writer != nil {
		if err := vw.writer.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("waiting for writer: %w", err))
		}
	}

	return errors.Join(errs...)
}

// EncodeVideo writes frames to outputPath through ffmpeg and returns the
// ffmpeg output when it fails
func EncodeVideo(ctx context.Context, logger *logrus.Entry, binary string, frames frame.Sequence, fps float64, outputPath string) (string, error) {
	if len(frames) == 0 {
		return "", imageio.ErrNoFrames
	}

	vw := NewVideoWriter(binary, frames[0].Width, frames[0].Height, fps, logger)
	if err := vw.StartWriting(ctx, outputPath); err != nil {
		return "", err
	}

	for i, f := range frames {
		if err := vw.WriteFrame(f); err != nil {
			closeErr := vw.Close()
			return vw.writer.GetOutput(), errors.Join(fmt.Errorf("writing frame %d: %w", i, err), closeErr)
		}
	}

	if err := vw.Close(); err != nil {
		return vw.writer.GetOutput(), err
	}
	return vw.writer.GetOutput(), nil
}
