package main

import (
	"context"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFrames() frame.Sequence {
	return frame.Sequence{
		solidFrame(4, 3, color.NRGBA{R: 255, A: 255}),
		solidFrame(4, 3, color.NRGBA{G: 255, A: 255}),
		solidFrame(4, 3, color.NRGBA{B: 255, A: 255}),
	}
}

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	folder := t.TempDir()
	return NewExporter(folder, "tweenarr-missing-ffmpeg", 12, testLogger(t, "export")), folder
}

func TestExportGIF(t *testing.T) {
	exporter, folder := newTestExporter(t)

	files, err := exporter.Export(context.Background(), ExportRequest{Kind: ExportGIF, Path: "anim/out.gif", FPS: 25}, exportFrames())
	require.NoError(t, err)
	assert.Equal(t, []string{"anim/out.gif"}, files)

	f, err := os.Open(filepath.Join(folder, "anim", "out.gif"))
	require.NoError(t, err)
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 3)
	assert.Equal(t, []int{4, 4, 4}, anim.Delay)
}

func TestExportFrames(t *testing.T) {
	exporter, folder := newTestExporter(t)

	files, err := exporter.Export(context.Background(), ExportRequest{Kind: ExportFrames, Path: "frames/shot"}, exportFrames())
	require.NoError(t, err)
	assert.Equal(t, []string{"frames/shot0000.png", "frames/shot0001.png", "frames/shot0002.png"}, files)

	for _, name := range files {
		exist, err := PathExist(filepath.Join(folder, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.True(t, exist, name)
	}
}

func TestExportSpritesheet(t *testing.T) {
	exporter, folder := newTestExporter(t)

	files, err := exporter.Export(context.Background(), ExportRequest{Kind: ExportSpritesheet, Path: "sheet.png", FramesPerRow: 2}, exportFrames())
	require.NoError(t, err)
	assert.Equal(t, []string{"sheet.png"}, files)

	f, err := os.Open(filepath.Join(folder, "sheet.png"))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 6, cfg.Height)
}

func TestExportRefusesToOverwrite(t *testing.T) {
	exporter, _ := newTestExporter(t)
	ctx := context.Background()

	for _, req := range []ExportRequest{
		{Kind: ExportGIF, Path: "anim.gif"},
		{Kind: ExportFrames, Path: "frames/shot"},
		{Kind: ExportSpritesheet, Path: "sheet.png"},
	} {
		first, err := exporter.Export(ctx, req, exportFrames())
		require.NoError(t, err, req.Kind)

		_, err = exporter.Export(ctx, req, exportFrames())
		assert.ErrorIs(t, err, ErrExportExists, req.Kind)

		req.Overwrite = true
		again, err := exporter.Export(ctx, req, exportFrames())
		require.NoError(t, err, req.Kind)
		assert.Equal(t, first, again)
	}

	// a longer sequence only collides on the frames already written
	_, err := exporter.Export(ctx, ExportRequest{Kind: ExportFrames, Path: "frames/other"}, exportFrames()[:1])
	require.NoError(t, err)
	_, err = exporter.Export(ctx, ExportRequest{Kind: ExportFrames, Path: "frames/other"}, exportFrames())
	assert.ErrorIs(t, err, ErrExportExists)
}

func TestExportErrors(t *testing.T) {
	exporter, _ := newTestExporter(t)
	ctx := context.Background()

	_, err := exporter.Export(ctx, ExportRequest{Kind: "bmp", Path: "out.bmp"}, exportFrames())
	assert.ErrorIs(t, err, ErrUnknownExportKind)

	_, err = exporter.Export(ctx, ExportRequest{Kind: ExportGIF, Path: "../out.gif"}, exportFrames())
	assert.ErrorIs(t, err, ErrUnsafePath)

	_, err = exporter.Export(ctx, ExportRequest{Kind: ExportGIF, Path: "out.gif"}, nil)
	assert.ErrorIs(t, err, imageio.ErrNoFrames)

	_, err = exporter.Export(ctx, ExportRequest{Kind: ExportVideo, Path: "out.mp4"}, exportFrames())
	assert.Error(t, err)
}
