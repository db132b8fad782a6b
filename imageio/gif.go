package imageio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"math"
	"runtime"

	"github.com/Zelak312/tweenarr/frame"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// DecodeGIF returns every frame of an animated GIF composited onto the full
// logical screen, honouring each frame's disposal method.
func DecodeGIF(r io.Reader) (frame.Sequence, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, ErrNoFrames
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(screen)

	frames := make(frame.Sequence, 0, len(g.Image))
	for i, img := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = image.NewNRGBA(screen)
			copy(previous.Pix, canvas.Pix)
		}

		area := img.Bounds().Intersect(screen)
		draw.Draw(canvas, area, img, area.Min, draw.Over)
		frames = append(frames, frame.FromImage(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, area, image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	return frames, nil
}

// GIFDelay converts frames per second to a GIF frame delay in hundredths of a second
func GIFDelay(fps float64) int {
	if !(fps > 0.01) {
		fps = 0.01
	}

	csec := math.Ceil(1000 / fps / 10)
	return int(math.Min(math.Max(csec, 0), math.MaxUint16))
}

// EncodeGIF writes an infinitely looping GIF. All frames must have the size of
// the first one. Fully transparent pixels are written as transparent black.
func EncodeGIF(ctx context.Context, w io.Writer, frames frame.Sequence, fps float64) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if i := frames.SameSize(); i >= 0 {
		return fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, frames[i].Width, frames[i].Height, frames[0].Width, frames[0].Height)
	}

	delay := GIFDelay(fps)
	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: 0,
		Config: image.Config{
			Width:  frames[0].Width,
			Height: frames[0].Height,
		},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out.Image[i] = quantize(clearTransparent(f))
			out.Delay[i] = delay
			out.Disposal[i] = gif.DisposalBackground
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return gif.EncodeAll(w, out)
}

// clearTransparent zeroes the color of pixels with no alpha, otherwise
// some viewers show random backgrounds
func clearTransparent(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] == 0 {
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0, 0, 0
		}
	}
	return out
}

// quantize keeps the exact colors when a frame has few enough of them (the
// usual case for pixel art), otherwise it dithers onto the web safe palette.
// Index 0 is always transparent.
func quantize(f *frame.Frame) *image.Paletted {
	rect := f.Bounds()
	if pal, index, ok := exactPalette(f); ok {
		img := image.NewPaletted(rect, pal)
		for i := range img.Pix {
			img.Pix[i] = index[pixelColor(f.Pix[i*4:i*4+4])]
		}
		return img
	}

	pal := append(color.Palette{color.NRGBA{}}, palette.WebSafe...)
	img := image.NewPaletted(rect, pal)
	draw.FloydSteinberg.Draw(img, rect, f.ToImage(), image.Point{})
	for i := range img.Pix {
		if f.Pix[i*4+3] == 0 {
			img.Pix[i] = 0
		}
	}
	return img
}

func pixelColor(p []uint8) color.NRGBA {
	if p[3] == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255}
}

// exactPalette collects the distinct colors of f, alpha is either fully
// transparent or opaque in a GIF
func exactPalette(f *frame.Frame) (color.Palette, map[color.NRGBA]uint8, bool) {
	index := map[color.NRGBA]uint8{{}: 0}
	pal := color.Palette{color.NRGBA{}}
	for i := 0; i < len(f.Pix); i += 4 {
		c := pixelColor(f.Pix[i : i+4])
		if _, ok := index[c]; ok {
			continue
		}
		if len(pal) == 256 {
			return nil, nil, false
		}
		index[c] = uint8(len(pal))
		pal = append(pal, c)
	}
	return pal, index, true
}
