package imageio

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Zelak312/tweenarr/frame"
	"golang.org/x/sync/errgroup"
)

func EncodePNG(w io.Writer, f *frame.Frame) error {
	return png.Encode(w, f.ToImage())
}

// FrameFileName is the name of the i-th frame written by EncodePNGs
func FrameFileName(base string, i int) string {
	return fmt.Sprintf("%s%04d.png", strings.TrimSuffix(base, ".png"), i)
}

// EncodePNGs writes every frame to dir as <base>0000.png, <base>0001.png, ...
// and returns the written paths in frame order
func EncodePNGs(ctx context.Context, dir, base string, frames frame.Sequence) ([]string, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	paths := make([]string, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			path := filepath.Join(dir, FrameFileName(base, i))
			if err := writePNG(path, f); err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writePNG(path string, f *frame.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := EncodePNG(file, f); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}
