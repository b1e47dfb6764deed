package model

type GenerateResponse struct {
	Success  bool     `json:"success"`
	Data     []*Row   `json:"data"`
	Fields   FieldSet `json:"fields,omitempty"`
	Source   string   `json:"source"`
	RowCount int      `json:"rowCount"`
}

// ErrorResponse Kind 取 apperr.Kind 的值，供客户端按类别处理
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
	Details    string `json:"details"`
	Suggestion string `json:"suggestion,omitempty"`
}

// 流式响应的事件类型
const (
	EventStarted   = "started"
	EventBatch     = "batch"
	EventData      = "data"
	EventCompleted = "completed"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
)

// StreamEvent 流式响应中的一行 JSON
type StreamEvent struct {
	Type         string            `json:"type"`
	RequestID    string            `json:"requestId,omitempty"`
	Message      string            `json:"message,omitempty"`
	Batch        int               `json:"batch,omitempty"`
	TotalBatches int               `json:"totalBatches,omitempty"`
	RowsSoFar    int               `json:"rowsSoFar,omitempty"`
	Result       *GenerateResponse `json:"result,omitempty"`
	Error        *ErrorResponse    `json:"error,omitempty"`
	Timestamp    int64             `json:"timestamp"`
}

// BatchProgress 批次完成后的进度回报
type BatchProgress struct {
	Batch        int
	TotalBatches int
	RowsSoFar    int
}
