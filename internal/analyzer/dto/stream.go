package dto

import "time"

// Stream event names, matching the SSE wire protocol.
const (
	EventConnected    = "connected"
	EventLog          = "log"
	EventProgress     = "progress"
	EventScoreUpdate  = "scores_update"
	EventAIToken      = "ai_stream"
	EventFinalResult  = "final_result"
	EventError        = "analysis_error"
	EventHeartbeat    = "heartbeat"
)

// StreamEvent is one tagged event on a client's ordered stream. Events are
// consumed at most once by the transport layer.
type StreamEvent struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewStreamEvent stamps an event with the current time.
func NewStreamEvent(event string, data interface{}) StreamEvent {
	return StreamEvent{Event: event, Data: data, Timestamp: time.Now()}
}

// Droppable reports whether the event may be discarded under backpressure.
// Final results and errors are always delivered.
func (e StreamEvent) Droppable() bool {
	return e.Event != EventFinalResult && e.Event != EventError
}

// LogData is the payload of a log event.
type LogData struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ProgressData is the payload of a progress event.
type ProgressData struct {
	TaskID  string `json:"task_id"`
	Symbol  string `json:"symbol"`
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// ErrorData is the payload of an analysis_error event. Classification is a
// human-readable error kind, never a stack trace.
type ErrorData struct {
	TaskID         string `json:"task_id"`
	Symbol         string `json:"symbol"`
	Classification string `json:"classification"`
	Error          string `json:"error"`
}

// AITokenData is one relayed narrative token. Reset tells the consumer to
// discard the tokens relayed so far for this task; a replacement stream
// follows.
type AITokenData struct {
	TaskID  string `json:"task_id"`
	Content string `json:"content"`
	Reset   bool   `json:"reset,omitempty"`
}

// ScoreUpdateData is the payload of a scores_update event.
type ScoreUpdateData struct {
	TaskID string `json:"task_id"`
	Symbol string `json:"symbol"`
	Scores Scores `json:"scores"`
}
