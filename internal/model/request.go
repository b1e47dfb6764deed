package model

import "encoding/json"

const (
	DataTypeMock = "mock"
	DataTypeReal = "real"
)

// GenerateRequest /generate 的请求体；rows 可能是数字或数字字符串，校验时再转换
type GenerateRequest struct {
	DataType string          `json:"dataType"`
	Prompt   string          `json:"prompt"`
	Rows     json.RawMessage `json:"rows"`
}

// GenerationRequest 校验和截断之后的生成请求
type GenerationRequest struct {
	DataType string
	Prompt   string
	Rows     int
}

type DownloadRequest struct {
	Data   []*Row `json:"data"`
	Format string `json:"format"`
	Prompt string `json:"prompt"`
}
