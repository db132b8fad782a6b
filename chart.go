package main

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderRunChart plots the duration of the given runs, oldest first, as a PNG
func RenderRunChart(runs []RunRecord) (io.WriterTo, error) {
	p := plot.New()
	p.Title.Text = "Interpolation runs"
	p.X.Label.Text = "run"
	p.Y.Label.Text = "duration (ms)"

	done := make(plotter.XYs, 0, len(runs))
	failed := make(plotter.XYs, 0)
	for i := len(runs) - 1; i >= 0; i-- {
		pt := plotter.XY{X: float64(len(runs) - 1 - i), Y: float64(runs[i].Duration)}
		if runs[i].Status == RunStatusFailed {
			failed = append(failed, pt)
			continue
		}
		done = append(done, pt)
	}

	if len(done) > 0 {
		line, err := plotter.NewLine(done)
		if err != nil {
			return nil, fmt.Errorf("creating line: %w", err)
		}
		line.Width = vg.Points(1)
		line.Color = color.RGBA{B: 200, A: 255}
		p.Add(line)
		p.Legend.Add("done", line)
	}

	if len(failed) > 0 {
		scatter, err := plotter.NewScatter(failed)
		if err != nil {
			return nil, fmt.Errorf("creating scatter: %w", err)
		}
		scatter.Color = color.RGBA{R: 200, A: 255}
		p.Add(scatter)
		p.Legend.Add("failed", scatter)
	}

	return p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
}
