package main

const (
	WsTypeProgress = "progress"
	WsTypeResult   = "result"
	WsTypeError    = "error"
	WsTypeInput    = "input"
)

type WsBaseMessage struct {
	Type string `json:"type"`
}

type WsProgress struct {
	WsBaseMessage
	Progress float64 `json:"progress"`
}

type WsResult struct {
	WsBaseMessage
	RunID        string   `json:"runId"`
	OutputFrames int      `json:"outputFrames"`
	SpeedRatio   *float64 `json:"speedRatio"`
}

// WsError carries a nil error when a new run clears the previous one
type WsError struct {
	WsBaseMessage
	Error *string `json:"error"`
}

type WsInput struct {
	WsBaseMessage
	Frames int `json:"frames"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
