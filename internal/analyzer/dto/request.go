package dto

// AnalyzeRequest submits a single-symbol analysis.
type AnalyzeRequest struct {
	Symbol   string `json:"symbol"`
	Market   string `json:"market"`
	ClientID string `json:"client_id"`
}

// BatchAnalyzeRequest submits one analysis per symbol.
type BatchAnalyzeRequest struct {
	Symbols  []string `json:"symbols"`
	Market   string   `json:"market"`
	ClientID string   `json:"client_id"`
}

// SubmitResponse returns the created task id(s).
type SubmitResponse struct {
	TaskIDs []string `json:"task_ids"`
}

// TaskStatusResponse reports a task's current state.
type TaskStatusResponse struct {
	TaskID string `json:"task_id"`
	Symbol string `json:"symbol"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

// SystemInfoResponse reports runtime counters for the info surface.
type SystemInfoResponse struct {
	ActiveTasks int `json:"active_tasks"`
	MaxWorkers  int `json:"max_workers"`
	Clients     int `json:"connected_clients"`
}

// ErrorResponse is the generic HTTP error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
