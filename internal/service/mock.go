package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/classifier"
	"datagen-backend/internal/config"
	"datagen-backend/internal/llm"
	"datagen-backend/internal/model"
	"datagen-backend/internal/retry"
	"datagen-backend/pkg/logger"

	"github.com/google/jsonschema-go/jsonschema"
)

// MockSource 模拟数据结果的来源标签
const MockSource = "AI Generated Mock Data"

// 最后一次重试使用的通用请求
const minimalRequest = "a small table of realistic sample records with a few descriptive columns"

// ErrShortOutput 模型返回的行数少于请求的行数
var ErrShortOutput = errors.New("model returned fewer rows than requested")

var mockTemplate = llm.NewTemplate(
	"You are a synthetic data generator. Produce realistic, varied and internally consistent tabular records. "+
		"Return fields as the ordered list of column names and rows as a list of strings, "+
		"where every string is one JSON-encoded object whose keys are exactly those column names. "+
		"Values must be strings, numbers, booleans or null. {hint}",
	"Generate exactly {count} records for this dataset request: {request}{fieldsHint}",
)

// MockDataGenerator 调用生成式模型伪造结构化数据，大行数时按批顺序生成
type MockDataGenerator struct {
	model llm.StructuredModel
	cfg   config.GenerationConfig
}

// NewMockDataGenerator m 为 nil 表示没有配置模型凭证
func NewMockDataGenerator(m llm.StructuredModel, cfg config.GenerationConfig) *MockDataGenerator {
	return &MockDataGenerator{model: m, cfg: cfg}
}

func mockSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"fields": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"rows":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"fields", "rows"},
	}
}

func (g *MockDataGenerator) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    g.cfg.MaxRetries + 1,
		AttemptTimeout: g.cfg.CallTimeout,
	}
}

// GenerateMockData 生成 rows 行数据。任一批次重试耗尽时整体失败，不返回部分结果
func (g *MockDataGenerator) GenerateMockData(ctx context.Context, prompt string, rows int, onBatch func(model.BatchProgress)) (*model.GenerationResult, error) {
	if g.model == nil {
		return nil, apperr.Configuration("no generative AI credential is configured, mock data generation is unavailable")
	}

	total := g.cfg.BatchCount(prompt, rows)
	size := rows
	if total > 1 {
		size = g.cfg.BatchSizeFor(prompt)
	}
	hint := classifier.Heuristic(prompt).Category.GenerationHint()

	log := logger.WithFields(map[string]interface{}{
		"rows":    rows,
		"batches": total,
	})
	log.Infof("generating mock data")

	var fields model.FieldSet
	data := make([]*model.Row, 0, rows)
	for b := 0; b < total; b++ {
		if b > 0 {
			if err := retry.Sleep(ctx, g.cfg.BatchDelay); err != nil {
				return nil, g.wrapError(ctx, err, b, total)
			}
		}

		count := size
		if remaining := rows - len(data); remaining < count {
			count = remaining
		}
		batch, err := g.generateBatch(ctx, batchInput{
			prompt: prompt,
			hint:   hint,
			count:  count,
			fields: fields,
		})
		if err != nil {
			log.Warnf("batch %d/%d failed: %v", b+1, total, err)
			return nil, g.wrapError(ctx, err, b, total)
		}

		if fields == nil {
			fields = batch.fields
		}
		if lost := batch.lostUnparsed(fields); lost > 0 {
			log.Warnf("batch %d/%d: %d unparsable rows do not match fields %v, their raw text is dropped", b+1, total, lost, fields)
		}
		data = append(data, model.ConformAll(batch.rows, fields)...)
		log.Debugf("batch %d/%d done, %d rows so far", b+1, total, len(data))
		if onBatch != nil {
			onBatch(model.BatchProgress{Batch: b + 1, TotalBatches: total, RowsSoFar: len(data)})
		}
	}

	return &model.GenerationResult{Data: data, Fields: fields, Source: MockSource}, nil
}

type batchInput struct {
	prompt string
	hint   string
	count  int
	fields model.FieldSet // 第一批之后已确定的字段
}

// generateBatch 按重试策略调用模型；每次重试简化一次请求：完整 → 截断 → 通用
func (g *MockDataGenerator) generateBatch(ctx context.Context, in batchInput) (*mockBatch, error) {
	var batch *mockBatch
	err := retry.Do(ctx, g.policy(), func(actx context.Context, a retry.Attempt) error {
		msgs, err := mockTemplate.Render(actx, map[string]any{
			"hint":       in.hint,
			"count":      in.count,
			"request":    g.requestFor(in.prompt, a.Number),
			"fieldsHint": fieldsHint(in.fields),
		})
		if err != nil {
			return err
		}

		raw, err := g.model.GenerateStructured(actx, llm.StructuredRequest{
			Name:     "mock_dataset",
			Schema:   mockSchema(),
			Messages: msgs,
		})
		if err != nil {
			logger.Warnf("mock generation attempt %d failed: %v", a.Number+1, err)
			return err
		}

		parsed, err := parseMockOutput(raw, in.count)
		if err != nil {
			logger.Warnf("mock generation attempt %d returned unusable output: %v", a.Number+1, err)
			return err
		}
		batch = parsed
		return nil
	})
	return batch, err
}

func (g *MockDataGenerator) requestFor(prompt string, attempt int) string {
	switch attempt {
	case 0:
		return prompt
	case 1:
		return truncateRunes(prompt, g.cfg.TruncatedPromptChars)
	default:
		return minimalRequest
	}
}

func fieldsHint(fields model.FieldSet) string {
	if len(fields) == 0 {
		return ""
	}
	return ". Use exactly these fields in this order: " + strings.Join(fields, ", ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

type mockOutput struct {
	Fields []string          `json:"fields"`
	Rows   []json.RawMessage `json:"rows"`
}

// mockBatch 一次成功调用解析出的行；unparsed 是退化为 {value} 的行数
type mockBatch struct {
	rows     []*model.Row
	fields   model.FieldSet
	unparsed int
}

// lostUnparsed 按 fields 对齐时原文会被丢掉的退化行数
func (b *mockBatch) lostUnparsed(fields model.FieldSet) int {
	for _, f := range fields {
		if f == "value" {
			return 0
		}
	}
	return b.unparsed
}

// parseMockOutput 解析模型输出。rows 里通常是 JSON 字符串，也接受直接给出的对象；
// 解析失败的行退化为 {value: 原文}。行数不足视为失败，多余的截掉
func parseMockOutput(raw string, count int) (*mockBatch, error) {
	var out mockOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if len(out.Rows) < count {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShortOutput, len(out.Rows), count)
	}

	rows := make([]*model.Row, 0, count)
	unparsed := 0
	for _, item := range out.Rows[:count] {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			text = string(item)
		}
		row, ok := model.ParseRow(text)
		if !ok {
			unparsed++
		}
		rows = append(rows, row)
	}

	fields := cleanFields(out.Fields)
	switch {
	case unparsed == len(rows):
		fields = model.FieldSet{"value"}
	case len(fields) == 0:
		fields = model.FieldsOf(rows)
	}
	return &mockBatch{rows: rows, fields: fields, unparsed: unparsed}, nil
}

// cleanFields 去掉空白和重复的字段名
func cleanFields(names []string) model.FieldSet {
	seen := make(map[string]bool, len(names))
	out := make(model.FieldSet, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// wrapError 父 ctx 结束归为请求超时，单次调用超时归为模型超时，其余为生成失败
func (g *MockDataGenerator) wrapError(ctx context.Context, err error, batch, total int) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if ctx.Err() != nil {
		return apperr.Timeout("Request timeout", err)
	}
	if apperr.IsTimeout(err) {
		return apperr.Timeout("AI model timeout", err)
	}
	if total > 1 {
		return apperr.Generation(fmt.Sprintf("batch %d of %d failed after %d attempts", batch+1, total, g.cfg.MaxRetries+1), err)
	}
	return apperr.Generation(fmt.Sprintf("no usable rows after %d attempts", g.cfg.MaxRetries+1), err)
}
