package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"datagen-backend/internal/config"
	"datagen-backend/internal/llm"
)

func testGenConfig() config.GenerationConfig {
	return config.GenerationConfig{
		MinRows:              1,
		MaxRows:              100,
		DefaultRows:          10,
		BatchThreshold:       15,
		BatchSize:            10,
		LongPromptBatchSize:  5,
		LongPromptChars:      200,
		TruncatedPromptChars: 120,
		MaxRetries:           2,
		CallTimeout:          time.Second,
		ClassifyTimeout:      time.Second,
		RequestTimeout:       5 * time.Second,
		PerBatchTimeout:      time.Second,
		HeartbeatInterval:    time.Second,
	}
}

// scriptedModel 按调用序号返回预设的回复
type scriptedModel struct {
	mu      sync.Mutex
	respond func(ctx context.Context, call int, user string) (string, error)
	users   []string
}

func (m *scriptedModel) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (string, error) {
	m.mu.Lock()
	call := len(m.users)
	user := ""
	if len(req.Messages) > 0 {
		user = req.Messages[len(req.Messages)-1].Content
	}
	m.users = append(m.users, user)
	m.mu.Unlock()
	return m.respond(ctx, call, user)
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// requestedCount 从用户消息中读出请求的行数
func requestedCount(user string) int {
	var n int
	_, _ = fmt.Sscanf(user, "Generate exactly %d records", &n)
	return n
}

// reply 构造模型输出：fields 加上 n 行 JSON 字符串
func reply(fields []string, n int, row func(i int) map[string]interface{}) string {
	rows := make([]string, n)
	for i := 0; i < n; i++ {
		b, _ := json.Marshal(row(i))
		rows[i] = string(b)
	}
	out, _ := json.Marshal(map[string]interface{}{"fields": fields, "rows": rows})
	return string(out)
}

func customerRow(i int) map[string]interface{} {
	return map[string]interface{}{"name": fmt.Sprintf("user-%d", i), "email": fmt.Sprintf("u%d@example.com", i)}
}

var errModelDown = errors.New("model unavailable")
