package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	ExportGIF         = "gif"
	ExportFrames      = "frames"
	ExportSpritesheet = "spritesheet"
	ExportVideo       = "video"
)

var (
	ErrUnknownExportKind = errors.New("unknown export kind")
	ErrExportExists      = errors.New("export target already exists")
)

type ExportRequest struct {
	Kind         string  `json:"kind"`
	Path         string  `json:"path"`
	FPS          float64 `json:"fps"`
	FramesPerRow int     `json:"frames_per_row"`
	Overwrite    bool    `json:"overwrite"`
}

// Exporter writes output frames under a single folder
type Exporter struct {
	folder       string
	ffmpegBinary string
	defaultFPS   float64
	logger       *logrus.Entry
}

func NewExporter(folder string, ffmpegBinary string, defaultFPS float64, logger *logrus.Entry) *Exporter {
	return &Exporter{
		folder:       folder,
		ffmpegBinary: ffmpegBinary,
		defaultFPS:   defaultFPS,
		logger:       logger,
	}
}

// Export writes frames as requested and returns the written paths relative
// to the export folder
func (e *Exporter) Export(ctx context.Context, req ExportRequest, frames frame.Sequence) ([]string, error) {
	if len(frames) == 0 {
		return nil, imageio.ErrNoFrames
	}

	switch req.Kind {
	case ExportGIF, ExportFrames, ExportSpritesheet, ExportVideo:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownExportKind, req.Kind)
	}

	target, err := SafeJoin(e.folder, req.Path)
	if err != nil {
		return nil, err
	}
	if !req.Overwrite {
		if err := refuseExisting(exportTargets(req.Kind, target, len(frames))); err != nil {
			return nil, err
		}
	}
	if err := EnsureParentDir(target); err != nil {
		return nil, err
	}

	fps := req.FPS
	if fps <= 0 {
		fps = e.defaultFPS
	}

	logger := e.logger.WithFields(StructFields(req))
	var paths []string
	switch req.Kind {
	case ExportGIF:
		var buf bytes.Buffer
		if err := imageio.EncodeGIF(ctx, &buf, frames, fps); err != nil {
			return nil, err
		}
		if err := writeFile(target, buf.Bytes(), logger); err != nil {
			return nil, err
		}
		paths = []string{target}

	case ExportFrames:
		paths, err = imageio.EncodePNGs(ctx, filepath.Dir(target), filepath.Base(target), frames)
		if err != nil {
			return nil, err
		}

	case ExportSpritesheet:
		framesPerRow := req.FramesPerRow
		if framesPerRow <= 0 {
			framesPerRow = len(frames)
		}
		sheet, err := imageio.PackSpritesheet(frames, framesPerRow)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := imageio.EncodePNG(&buf, sheet); err != nil {
			return nil, err
		}
		if err := writeFile(target, buf.Bytes(), logger); err != nil {
			return nil, err
		}
		paths = []string{target}

	case ExportVideo:
		output, err := EncodeVideo(ctx, logger, e.ffmpegBinary, frames, fps, target)
		if err != nil {
			logger.Debug("ffmpeg output: ", output)
			return nil, fmt.Errorf("encoding video: %w", err)
		}
		paths = []string{target}

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownExportKind, req.Kind)
	}

	return e.relative(paths), nil
}

// exportTargets lists the files an export of kind would write
func exportTargets(kind string, target string, frameCount int) []string {
	if kind != ExportFrames {
		return []string{target}
	}

	dir, base := filepath.Dir(target), filepath.Base(target)
	paths := make([]string, frameCount)
	for i := range paths {
		paths[i] = filepath.Join(dir, imageio.FrameFileName(base, i))
	}
	return paths
}

func refuseExisting(paths []string) error {
	for _, p := range paths {
		exist, err := PathExist(p)
		if err != nil {
			return err
		}
		if exist {
			return fmt.Errorf("%w: %s", ErrExportExists, filepath.Base(p))
		}
	}
	return nil
}

func (e *Exporter) relative(paths []string) []string {
	absFolder, err := filepath.Abs(e.folder)
	if err != nil {
		return paths
	}

	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(absFolder, p)
		if err != nil {
			rel = p
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func writeFile(path string, data []byte, logger *logrus.Entry) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.WithField("size", humanize.Bytes(uint64(len(data)))).Info("Exported ", path)
	return nil
}
