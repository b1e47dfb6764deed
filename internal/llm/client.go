// Package llm 封装生成式模型调用，提供以 JSON Schema 约束输出的结构化生成
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/jsonschema-go/jsonschema"
)

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("model returned empty content")

// StructuredRequest 一次结构化生成调用
type StructuredRequest struct {
	Name     string
	Schema   *jsonschema.Schema
	Messages []*schema.Message
}

// StructuredModel 生成器和分类器依赖的最小接口
type StructuredModel interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
}

// Client 基于 eino 聊天模型的 StructuredModel 实现
type Client struct {
	chat     einoModel.BaseChatModel
	provider string
}

func NewClient(chat einoModel.BaseChatModel, provider string) *Client {
	return &Client{chat: chat, provider: provider}
}

// GenerateStructured 把 schema 同时作为原生约束(openai)和系统指令(所有 provider)传给模型，
// 返回去掉代码围栏后的 JSON 文本
func (c *Client) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	rawSchema, err := json.Marshal(req.Schema)
	if err != nil {
		return "", fmt.Errorf("marshal response schema: %w", err)
	}

	instruction := "Respond with a single JSON object only, no prose and no markdown. " +
		"The object must conform to this JSON Schema: " + string(rawSchema)

	resp, err := c.chat.Generate(ctx, withSchemaInstruction(req.Messages, instruction), WithResponseSchema(req.Name, rawSchema))
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.provider, err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	content := ExtractJSON(resp.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// withSchemaInstruction 指令并入开头的系统消息；没有系统消息时放在最前面。
// qwen、ark 等模板只认开头唯一的一条系统消息
func withSchemaInstruction(in []*schema.Message, instruction string) []*schema.Message {
	out := make([]*schema.Message, 0, len(in)+1)
	if len(in) > 0 && in[0].Role == schema.System {
		merged := *in[0]
		merged.Content = strings.TrimSpace(merged.Content) + "\n\n" + instruction
		out = append(out, &merged)
		return append(out, in[1:]...)
	}
	out = append(out, schema.SystemMessage(instruction))
	return append(out, in...)
}

// ExtractJSON 去掉 markdown 代码围栏和前后说明文字，只保留最外层 JSON 对象
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
