package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/gif"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zelak312/tweenarr/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, path string, files map[string][][]byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, contents := range files {
		for i, content := range contents {
			part, err := mw.CreateFormFile(field, strings.Repeat("f", i+1)+".bin")
			require.NoError(t, err)
			_, err = part.Write(content)
			require.NoError(t, err)
		}
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidFrame(w, h, c).ToImage()))
	return buf.Bytes()
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ping"}`, w.Body.String())
}

func TestParamsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/params", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var params engine.Params
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.Equal(t, testParams(), params)

	body := `{"inbetweens":2,"loop_seamlessly":true,"flow_multiplier":0.5,"show_motion_vectors":false,
		"optflow_alg":"DenseRLOF","forward_backward_threshold":1,"grid_step_x":6,"grid_step_y":6,"use_post_proc":true}`
	w = env.do(t, httptest.NewRequest(http.MethodPut, "/params", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, env.session.Params().Inbetweens)
	assert.Equal(t, 6, env.session.Params().Algorithm.DenseRLOF.GridStepX)

	for _, bad := range []string{
		`{"inbetweens":-1,"flow_multiplier":1,"optflow_alg":"SimpleFlow","layers":3,"averaging_block_size":2,"max_flow":4}`,
		`{"inbetweens":1,"flow_multiplier":1,"optflow_alg":"Farneback"}`,
		`not json`,
	} {
		w = env.do(t, httptest.NewRequest(http.MethodPut, "/params", strings.NewReader(bad)))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	assert.Equal(t, 2, env.session.Params().Inbetweens)
}

func TestResultBeforeAnyRun(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/result/gif", "/result/spritesheet", "/result/frames/0"} {
		w := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Contains(t, []int{http.StatusConflict, http.StatusNotFound}, w.Code, path)
	}

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"gif","path":"out.gif"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGIFRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	upload := gifBytes(t, 4, 4, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255})
	w := env.do(t, multipartRequest(t, "/frames/gif", map[string][][]byte{"file": {upload}}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"frames":2,"width":4,"height":4}`, w.Body.String())

	env.waitForOutput(t, 4)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/gif?fps=50", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	anim, err := gif.DecodeAll(w.Body)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 4)
	assert.Equal(t, 2, anim.Delay[0])

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/spritesheet?frames_per_row=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sheet, err := png.DecodeConfig(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, sheet.Width)
	assert.Equal(t, 8, sheet.Height)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/frames/1?scale=3", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview, err := png.DecodeConfig(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 12, preview.Width)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/frames/4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/frames/0?scale=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/result/gif?fps=fast", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Relay   RelayInfo `json:"relay"`
		Clients int       `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 4, status.Relay.OutputFrames)
	assert.Zero(t, status.Clients)
}

func TestLoadSeparateFrames(t *testing.T) {
	env := newTestEnv(t)

	files := [][]byte{
		pngBytes(t, 3, 3, color.NRGBA{R: 255, A: 255}),
		pngBytes(t, 3, 3, color.NRGBA{G: 255, A: 255}),
		pngBytes(t, 3, 3, color.NRGBA{B: 255, A: 255}),
	}
	w := env.do(t, multipartRequest(t, "/frames/separate", map[string][][]byte{"files": files}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"frames":3,"width":3,"height":3}`, w.Body.String())
	assert.Len(t, env.session.Input(), 3)

	w = env.do(t, multipartRequest(t, "/frames/separate", map[string][][]byte{"files": {[]byte("garbage")}}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, multipartRequest(t, "/frames/separate", nil, map[string]string{"other": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadSpritesheet(t *testing.T) {
	env := newTestEnv(t)
	sheet := pngBytes(t, 8, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	rects := `[{"x":0,"y":0,"w":4,"h":4},{"x":4.2,"y":0,"w":3.8,"h":4}]`
	w := env.do(t, multipartRequest(t, "/frames/spritesheet", map[string][][]byte{"file": {sheet}}, map[string]string{"rects": rects}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"frames":2,"width":4,"height":4}`, w.Body.String())

	outside := `[{"x":6,"y":0,"w":4,"h":4}]`
	w = env.do(t, multipartRequest(t, "/frames/spritesheet", map[string][][]byte{"file": {sheet}}, map[string]string{"rects": outside}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, multipartRequest(t, "/frames/spritesheet", map[string][][]byte{"file": {sheet}}, map[string]string{"rects": "nope"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.server.config.MaxUploadSize = 16
	env.router = NewRouter(env.server)

	upload := gifBytes(t, 4, 4, color.NRGBA{R: 255, A: 255})
	w := env.do(t, multipartRequest(t, "/frames/gif", map[string][][]byte{"file": {upload}}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.session.Input())
}

func TestExportAndHistory(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/history/chart", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	upload := gifBytes(t, 2, 2, color.NRGBA{R: 255, A: 255}, color.NRGBA{G: 255, A: 255})
	w = env.do(t, multipartRequest(t, "/frames/gif", map[string][][]byte{"file": {upload}}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env.waitForOutput(t, 4)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"frames","path":"shots/f"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var exported struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Equal(t, []string{"shots/f0000.png", "shots/f0001.png", "shots/f0002.png", "shots/f0003.png"}, exported.Files)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"frames","path":"shots/f"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"frames","path":"shots/f","overwrite":true}`)))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"gif","path":"../escape.gif"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"kind":"webm","path":"out.webm"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var runs []RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusDone, runs[0].Status)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/history?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/history/chart", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(w.Body)
	assert.NoError(t, err)
}
