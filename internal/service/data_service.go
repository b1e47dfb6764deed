package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/config"
	"datagen-backend/internal/model"
	"datagen-backend/pkg/logger"

	"github.com/spf13/cast"
)

// MockGenerator 模拟数据路径
type MockGenerator interface {
	GenerateMockData(ctx context.Context, prompt string, rows int, onBatch func(model.BatchProgress)) (*model.GenerationResult, error)
}

// RealFetcher 真实数据路径
type RealFetcher interface {
	FetchRealData(ctx context.Context, prompt string, rows int) (*model.GenerationResult, error)
}

// 命中任意一个就改走模拟数据路径：这类训练数据没有公开 API 可查
var trainingDataMarkers = []string{
	"fine-tune", "fine tune", "finetune", "llm", "training data", "instruction",
	"chatbot", "prompt-response", "conversation dataset",
}

// LooksLikeTrainingData 提示词是否在请求 LLM 训练/微调类数据
func LooksLikeTrainingData(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, m := range trainingDataMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Plan 路由结果，流式响应在开始时回报给客户端
type Plan struct {
	Mock         bool
	AutoDetected bool
	TotalBatches int
	Timeout      time.Duration
}

// DataService 校验 → 路由 → 生成，JSON 和流式两种响应共用
type DataService struct {
	cfg     config.GenerationConfig
	mock    MockGenerator
	fetcher RealFetcher
}

func NewDataService(cfg config.GenerationConfig, mock MockGenerator, fetcher RealFetcher) *DataService {
	return &DataService{cfg: cfg, mock: mock, fetcher: fetcher}
}

// Validate 去掉提示词首尾空白，解析并截断行数
func (s *DataService) Validate(req model.GenerateRequest) (model.GenerationRequest, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return model.GenerationRequest{}, apperr.Validation("Prompt is required", "prompt must be a non-empty string")
	}

	rows, err := s.parseRows(req.Rows)
	if err != nil {
		return model.GenerationRequest{}, err
	}

	dataType := strings.ToLower(strings.TrimSpace(req.DataType))
	if dataType != model.DataTypeMock {
		dataType = model.DataTypeReal
	}

	return model.GenerationRequest{
		DataType: dataType,
		Prompt:   prompt,
		Rows:     s.cfg.ClampRows(rows),
	}, nil
}

// parseRows 接受数字或数字字符串；缺省时使用默认行数
func (s *DataService) parseRows(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return s.cfg.DefaultRows, nil
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, invalidRows(string(trimmed))
	}
	switch val := v.(type) {
	case float64:
		return s.rowsFromFloat(val), nil
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return s.cfg.DefaultRows, nil
		}
		f, err := cast.ToFloat64E(val)
		if err != nil || math.IsNaN(f) {
			return 0, invalidRows(val)
		}
		return s.rowsFromFloat(f), nil
	default:
		return 0, invalidRows(string(trimmed))
	}
}

// rowsFromFloat 先在 float64 上截断到 [MinRows, MaxRows] 再转 int，超大值不会溢出
func (s *DataService) rowsFromFloat(f float64) int {
	switch {
	case f >= float64(s.cfg.MaxRows):
		return s.cfg.MaxRows
	case f <= float64(s.cfg.MinRows):
		return s.cfg.MinRows
	}
	return cast.ToInt(math.Trunc(f))
}

func invalidRows(v string) error {
	return apperr.Validation("Invalid row count", fmt.Sprintf("rows must be a number, got %s", v))
}

// Plan 决定走哪条路径以及请求级超时
func (s *DataService) Plan(req model.GenerationRequest) Plan {
	p := Plan{
		Mock:         req.DataType == model.DataTypeMock,
		TotalBatches: 1,
	}
	if !p.Mock && LooksLikeTrainingData(req.Prompt) {
		p.Mock = true
		p.AutoDetected = true
	}
	if p.Mock {
		p.TotalBatches = s.cfg.BatchCount(req.Prompt, req.Rows)
	}
	p.Timeout = s.cfg.RequestTimeoutFor(req.Prompt, req.Rows)
	return p
}

// Generate 在请求级超时内执行生成；返回的错误都是 *apperr.Error
func (s *DataService) Generate(ctx context.Context, req model.GenerationRequest, onBatch func(model.BatchProgress)) (*model.GenerationResult, error) {
	plan := s.Plan(req)
	ctx, cancel := context.WithTimeout(ctx, plan.Timeout)
	defer cancel()

	if plan.AutoDetected {
		logger.Infof("prompt looks like LLM training data, routing to mock generation")
	}

	var (
		res *model.GenerationResult
		err error
	)
	if plan.Mock {
		res, err = s.mock.GenerateMockData(ctx, req.Prompt, req.Rows, onBatch)
	} else {
		res, err = s.fetcher.FetchRealData(ctx, req.Prompt, req.Rows)
		if err == nil && onBatch != nil {
			onBatch(model.BatchProgress{Batch: 1, TotalBatches: 1, RowsSoFar: len(res.Data)})
		}
	}
	if err != nil {
		if ctx.Err() != nil && !apperr.IsTimeout(err) {
			return nil, apperr.Timeout("Request timeout", err)
		}
		return nil, apperr.From(err)
	}
	return res, nil
}

// Response 把结果整理成 /generate 的响应体；真实数据不返回 fields
func Response(res *model.GenerationResult, mock bool) *model.GenerateResponse {
	resp := &model.GenerateResponse{
		Success:  true,
		Data:     res.Data,
		Source:   res.Source,
		RowCount: len(res.Data),
	}
	if mock {
		resp.Fields = res.Fields
	}
	return resp
}
