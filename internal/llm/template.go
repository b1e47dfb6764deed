package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Template 系统提示词 + 用户提示词模板，变量用 {name} 占位。
// 模板文本里不能出现其他花括号，用户输入一律通过变量传入
type Template struct {
	tpl prompt.ChatTemplate
}

func NewTemplate(system, user string) *Template {
	return &Template{
		tpl: prompt.FromMessages(schema.FString,
			schema.SystemMessage(system),
			schema.UserMessage(user),
		),
	}
}

func (t *Template) Render(ctx context.Context, vars map[string]any) ([]*schema.Message, error) {
	msgs, err := t.tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render prompt template: %w", err)
	}
	return msgs, nil
}
