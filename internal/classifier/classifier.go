// Package classifier 把自由文本请求归类到固定的数据领域，并抽取检索关键词
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"datagen-backend/internal/llm"
	"datagen-backend/pkg/logger"

	"github.com/google/jsonschema-go/jsonschema"
)

const maxKeywords = 5

var classifyTemplate = llm.NewTemplate(
	"You classify dataset requests into exactly one data category and extract up to 5 short search keywords. "+
		"Allowed categories: {categories}. Use general when nothing else fits. "+
		"specificRequest is a one-line restatement of what data the user wants.",
	"Dataset request: {prompt}",
)

type Classifier struct {
	model   llm.StructuredModel
	timeout time.Duration
}

// New model 为 nil 时只使用关键词启发式
func New(model llm.StructuredModel, timeout time.Duration) *Classifier {
	return &Classifier{model: model, timeout: timeout}
}

// Classify 从不返回错误：模型不可用或失败时退化为启发式
func (c *Classifier) Classify(ctx context.Context, prompt string) Intent {
	if c.model == nil {
		return Heuristic(prompt)
	}

	intent, err := c.classifyWithModel(ctx, prompt)
	if err != nil {
		logger.Warnf("AI classification failed, falling back to keyword heuristic: %v", err)
		return Heuristic(prompt)
	}
	return intent
}

func (c *Classifier) classifyWithModel(ctx context.Context, prompt string) (Intent, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	names := make([]string, len(AllCategories))
	for i, cat := range AllCategories {
		names[i] = string(cat)
	}
	msgs, err := classifyTemplate.Render(ctx, map[string]any{
		"categories": strings.Join(names, ", "),
		"prompt":     prompt,
	})
	if err != nil {
		return Intent{}, err
	}

	raw, err := c.model.GenerateStructured(ctx, llm.StructuredRequest{
		Name:     "request_intent",
		Schema:   intentSchema(),
		Messages: msgs,
	})
	if err != nil {
		return Intent{}, err
	}

	var out struct {
		Category        string   `json:"category"`
		SpecificRequest string   `json:"specificRequest"`
		Keywords        []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Intent{}, fmt.Errorf("decode classification: %w", err)
	}

	category, ok := ParseCategory(strings.ToLower(strings.TrimSpace(out.Category)))
	if !ok {
		return Intent{}, fmt.Errorf("unknown category %q", out.Category)
	}

	intent := Intent{
		Category:        category,
		SpecificRequest: strings.TrimSpace(out.SpecificRequest),
		Keywords:        cleanKeywords(out.Keywords),
	}
	if intent.SpecificRequest == "" {
		intent.SpecificRequest = prompt
	}
	if len(intent.Keywords) == 0 {
		intent.Keywords = ExtractKeywords(prompt)
	}
	return intent, nil
}

func intentSchema() *jsonschema.Schema {
	enum := make([]any, len(AllCategories))
	for i, cat := range AllCategories {
		enum[i] = string(cat)
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"category":        {Type: "string", Enum: enum},
			"specificRequest": {Type: "string"},
			"keywords":        {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"category", "specificRequest", "keywords"},
	}
}

// 每条规则编译成一个正则：关键词只在词边界上命中，允许复数后缀，"transport" 不会命中 "sport"
var rulePatterns = compileRules()

func compileRules() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(heuristicRules))
	for i, rule := range heuristicRules {
		alts := make([]string, len(rule.keywords))
		for j, kw := range rule.keywords {
			alts[j] = regexp.QuoteMeta(kw)
		}
		out[i] = regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)(?:s|es)?\b`)
	}
	return out
}

// Heuristic 按规则顺序对小写后的提示词做整词匹配
func Heuristic(prompt string) Intent {
	lower := strings.ToLower(prompt)
	category := General
	for i, re := range rulePatterns {
		if re.MatchString(lower) {
			category = heuristicRules[i].category
			break
		}
	}
	return Intent{
		Category:        category,
		SpecificRequest: prompt,
		Keywords:        ExtractKeywords(prompt),
	}
}

// ExtractKeywords 取长度大于 3 的单词，去重后最多 5 个
func ExtractKeywords(prompt string) []string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	return cleanKeywords(words)
}

func cleanKeywords(words []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, maxKeywords)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if len([]rune(w)) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
