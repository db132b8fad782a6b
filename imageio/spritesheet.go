package imageio

import (
	"fmt"
	"image"

	"github.com/Zelak312/tweenarr/frame"
	"golang.org/x/image/draw"
)

// PackSpritesheet lays the frames out row-major, framesPerRow per row.
// framesPerRow is clamped to [1, len(frames)].
func PackSpritesheet(frames frame.Sequence, framesPerRow int) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if i := frames.SameSize(); i >= 0 {
		return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, frames[i].Width, frames[i].Height, frames[0].Width, frames[0].Height)
	}

	framesPerRow = min(max(framesPerRow, 1), len(frames))
	rows := (len(frames) + framesPerRow - 1) / framesPerRow
	fw, fh := frames[0].Width, frames[0].Height

	sheet := image.NewNRGBA(image.Rect(0, 0, fw*framesPerRow, fh*rows))
	for i, f := range frames {
		at := image.Pt((i%framesPerRow)*fw, (i/framesPerRow)*fh)
		draw.Copy(sheet, at, f.ToImage(), f.Bounds(), draw.Src, nil)
	}
	return frame.FromImage(sheet), nil
}

// Upscale enlarges f by an integer factor without smoothing, for previews of
// small pixel art
func Upscale(f *frame.Frame, factor int) *frame.Frame {
	if factor <= 1 {
		return f.Clone()
	}

	dst := image.NewNRGBA(image.Rect(0, 0, f.Width*factor, f.Height*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), f.ToImage(), f.Bounds(), draw.Src, nil)
	return frame.FromImage(dst)
}

// SpeedRatio is how many output frames were produced per input frame
func SpeedRatio(inputs, outputs int) (float64, bool) {
	if inputs == 0 || outputs == 0 {
		return 0, false
	}
	return float64(outputs) / float64(inputs), true
}
