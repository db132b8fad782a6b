package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/Zelak312/tweenarr/frame"
	"github.com/Zelak312/tweenarr/imageio"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxPreviewScale     = 16
)

type Server struct {
	config   Config
	logger   *logrus.Entry
	session  *Session
	relay    *Relay
	hub      *Hub
	sqlite   *Sqlite
	exporter *Exporter
}

type SpriteRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type InputSummary struct {
	Frames int `json:"frames"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.logger))

	r.GET("/ping", s.ping)
	r.GET("/ws", s.hub.HandleConnections)

	frames := r.Group("/frames", MaxBodySize(s.config.MaxUploadSize))
	frames.POST("/gif", s.loadGIF)
	frames.POST("/separate", s.loadSeparateFrames)
	frames.POST("/spritesheet", s.loadSpritesheet)

	r.GET("/params", s.getParams)
	r.PUT("/params", s.putParams)
	r.GET("/status", s.getStatus)

	r.GET("/result/gif", s.resultGIF)
	r.GET("/result/spritesheet", s.resultSpritesheet)
	r.GET("/result/frames/:index", s.resultFrame)
	r.POST("/export", s.export)

	r.GET("/history", s.history)
	r.GET("/history/chart", s.historyChart)
	return r
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ping",
	})
}

func (s *Server) loadFrames(c *gin.Context, frames frame.Sequence, err error) {
	if err != nil {
		s.logger.Warn("Failed to load frames: ", err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if err := s.session.LoadFrames(frames); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	summary := InputSummary{Frames: len(frames), Width: frames[0].Width, Height: frames[0].Height}
	s.hub.BroadcastMessage(WsInput{
		WsBaseMessage: WsBaseMessage{Type: WsTypeInput},
		Frames:        summary.Frames,
		Width:         summary.Width,
		Height:        summary.Height,
	})
	c.JSON(http.StatusOK, summary)
}

func (s *Server) openUpload(header *multipart.FileHeader) (multipart.File, error) {
	s.logger.WithFields(logrus.Fields{
		"file": header.Filename,
		"size": humanize.Bytes(uint64(header.Size)),
	}).Debug("Received upload")
	return header.Open()
}

func (s *Server) loadGIF(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	file, err := s.openUpload(header)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	frames, err := imageio.DecodeGIF(file)
	s.loadFrames(c, frames, err)
}

func (s *Server) loadSeparateFrames(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	headers := form.File["files"]
	readers := make([]io.Reader, 0, len(headers))
	for _, header := range headers {
		file, err := s.openUpload(header)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		defer file.Close()
		readers = append(readers, file)
	}

	frames, err := imageio.DecodeFrames(c.Request.Context(), readers)
	s.loadFrames(c, frames, err)
}

func (s *Server) loadSpritesheet(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	var spriteRects []SpriteRect
	if err := json.Unmarshal([]byte(c.PostForm("rects")), &spriteRects); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid rects: %v", err))
		return
	}

	rects := make([]image.Rectangle, len(spriteRects))
	for i, r := range spriteRects {
		x, y := int(math.Round(r.X)), int(math.Round(r.Y))
		rects[i] = image.Rect(x, y, x+int(math.Round(r.W)), y+int(math.Round(r.H)))
	}

	file, err := s.openUpload(header)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	frames, err := imageio.DecodeSpritesheet(file, rects)
	s.loadFrames(c, frames, err)
}

func (s *Server) getParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Params())
}

func (s *Server) putParams(c *gin.Context) {
	var params engine.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if err := s.session.SetParams(params); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, params)
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"relay":   s.relay.GetInfo(),
		"clients": s.hub.ClientCount(),
	})
}

// output returns the current output or answers 409 when there is none yet
func (s *Server) output(c *gin.Context) (frame.Sequence, bool) {
	frames := s.session.Output()
	if len(frames) == 0 {
		c.String(http.StatusConflict, "no output frames yet")
		return nil, false
	}
	return frames, true
}

func queryFloat(c *gin.Context, key string, fallback float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func (s *Server) resultGIF(c *gin.Context) {
	frames, ok := s.output(c)
	if !ok {
		return
	}

	fps, err := queryFloat(c, "fps", s.config.DefaultFPS)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := imageio.EncodeGIF(c.Request.Context(), &buf, frames, fps); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/gif", buf.Bytes())
}

func (s *Server) resultSpritesheet(c *gin.Context) {
	frames, ok := s.output(c)
	if !ok {
		return
	}

	framesPerRow, err := queryInt(c, "frames_per_row", len(frames))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	sheet, err := imageio.PackSpritesheet(frames, framesPerRow)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	s.writePNG(c, sheet)
}

func (s *Server) resultFrame(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	scale, err := queryInt(c, "scale", 1)
	if err != nil || scale < 1 || scale > maxPreviewScale {
		c.String(http.StatusBadRequest, fmt.Sprintf("scale must be between 1 and %d", maxPreviewScale))
		return
	}

	f, err := s.session.OutputFrame(index)
	if err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	s.writePNG(c, imageio.Upscale(f, scale))
}

func (s *Server) writePNG(c *gin.Context, f *frame.Frame) {
	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, f); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	frames, ok := s.output(c)
	if !ok {
		return
	}

	files, err := s.exporter.Export(c.Request.Context(), req, frames)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrUnknownExportKind) || errors.Is(err, ErrUnsafePath):
			status = http.StatusBadRequest
		case errors.Is(err, ErrExportExists):
			status = http.StatusConflict
		}
		s.logger.WithFields(StructFields(req)).Warn("Export failed: ", err)
		c.String(status, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) history(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 {
		c.String(http.StatusBadRequest, "limit must be a positive number")
		return
	}

	runs, err := s.sqlite.GetRuns(min(limit, maxHistoryLimit))
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) historyChart(c *gin.Context) {
	runs, err := s.sqlite.GetRuns(defaultHistoryLimit)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	if len(runs) == 0 {
		c.String(http.StatusNotFound, "no runs yet")
		return
	}

	chart, err := RenderRunChart(runs)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if _, err := chart.WriteTo(&buf); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
