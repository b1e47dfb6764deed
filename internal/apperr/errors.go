// Package apperr 定义对外可见的错误分类，每类错误对应固定的 HTTP 状态码和补救建议
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindConfiguration    Kind = "ConfigurationError"
	KindTimeout          Kind = "TimeoutError"
	KindGeneration       Kind = "GenerationError"
	KindSourceFetch      Kind = "SourceFetchError"
	KindMalformedRequest Kind = "MalformedRequestError"
)

// Status 返回该类错误的 HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindMalformedRequest:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error 带分类的错误。Label 是稳定的错误标签，Details 给人看，Suggestion 是补救提示
type Error struct {
	Kind       Kind
	Label      string
	Details    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Label)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Status() int {
	return e.Kind.Status()
}

func Validation(label, details string) *Error {
	return &Error{Kind: KindValidation, Label: label, Details: details}
}

func MalformedRequest(err error) *Error {
	return &Error{
		Kind:       KindMalformedRequest,
		Label:      "Invalid request body",
		Details:    "request body must be valid JSON",
		Suggestion: "Send a JSON body with dataType, prompt and rows",
		Err:        err,
	}
}

func Configuration(details string) *Error {
	return &Error{
		Kind:       KindConfiguration,
		Label:      "AI service not configured",
		Details:    details,
		Suggestion: "Set DATAGEN_API_KEY or OPENAI_API_KEY (or llm.api_key in the config file) and restart the server",
	}
}

func Timeout(label string, err error) *Error {
	return &Error{
		Kind:       KindTimeout,
		Label:      label,
		Details:    "the operation exceeded its time budget",
		Suggestion: "Try again with fewer rows or a shorter, simpler prompt",
		Err:        err,
	}
}

func Generation(details string, err error) *Error {
	return &Error{
		Kind:       KindGeneration,
		Label:      "Failed to generate data",
		Details:    details,
		Suggestion: "Try rephrasing the prompt or requesting fewer rows",
		Err:        err,
	}
}

func SourceFetch(details string, err error) *Error {
	return &Error{
		Kind:       KindSourceFetch,
		Label:      "Failed to fetch real data",
		Details:    details,
		Suggestion: "The public data source may be unavailable; try again later or switch to mock data",
		Err:        err,
	}
}

// IsTimeout 判断错误是否由超时引起
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// From 把任意错误转换为分类错误，未分类的错误按超时或生成失败处理
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if IsTimeout(err) {
		return Timeout("Request timeout", err)
	}
	return Generation("unexpected error", err)
}
