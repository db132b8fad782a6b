package imageio

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"runtime"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ErrNoFrames is returned when a decoder or encoder ends up with nothing to work on
var ErrNoFrames = errors.New("no frames")

// DecodeImage decodes a single PNG, GIF (first frame), JPEG, BMP or WebP image
func DecodeImage(r io.Reader) (*frame.Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	f := frame.FromImage(img)
	if f.Width == 0 || f.Height == 0 {
		return nil, fmt.Errorf("decode %s image: empty image", format)
	}
	return f, nil
}

// DecodeFrames decodes every reader in parallel and keeps their order
func DecodeFrames(ctx context.Context, readers []io.Reader) (frame.Sequence, error) {
	if len(readers) == 0 {
		return nil, ErrNoFrames
	}

	frames := make(frame.Sequence, len(readers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, r := range readers {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			f, err := DecodeImage(r)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// DecodeSpritesheet decodes the sheet once and crops one frame per rectangle
func DecodeSpritesheet(r io.Reader, rects []image.Rectangle) (frame.Sequence, error) {
	if len(rects) == 0 {
		return nil, ErrNoFrames
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode spritesheet: %w", err)
	}

	bounds := img.Bounds()
	frames := make(frame.Sequence, 0, len(rects))
	for i, rect := range rects {
		rect = rect.Canon().Add(bounds.Min)
		if rect.Empty() || !rect.In(bounds) {
			return nil, fmt.Errorf("sprite %d: rectangle %v is outside of the %dx%d sheet", i, rect.Sub(bounds.Min), bounds.Dx(), bounds.Dy())
		}

		frames = append(frames, frame.FromImage(transform.Crop(img, rect)))
	}
	return frames, nil
}
