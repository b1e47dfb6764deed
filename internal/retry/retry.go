// Package retry 提供有界重试：每次尝试有独立超时，可按尝试序号降级输入
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy 重试策略。MaxAttempts 包含首次调用
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff 两次尝试之间的等待，为 0 时立即重试
	Backoff time.Duration
}

// Attempt 单次尝试的上下文信息
type Attempt struct {
	Number int // 从 0 开始
	Last   bool
}

// Do 按策略执行 fn，直到成功、尝试耗尽或父 ctx 结束。
// 返回最后一次尝试的错误；父 ctx 结束时返回的错误包装 ctx.Err()
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, a Attempt) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("aborted before attempt %d: %w", i+1, err)
		}

		err := runAttempt(ctx, p.AttemptTimeout, func(actx context.Context) error {
			return fn(actx, Attempt{Number: i, Last: i == attempts-1})
		})
		if err == nil {
			return nil
		}
		lastErr = err

		// 父 ctx 已结束，不再重试
		if ctx.Err() != nil {
			return fmt.Errorf("aborted after attempt %d: %w", i+1, ctx.Err())
		}

		if i < attempts-1 && p.Backoff > 0 {
			if err := Sleep(ctx, p.Backoff); err != nil {
				return fmt.Errorf("aborted during backoff: %w", err)
			}
		}
	}
	return lastErr
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(actx)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &AttemptTimeoutError{Limit: timeout, Err: err}
	}
	return err
}

// AttemptTimeoutError 单次尝试超过了 AttemptTimeout
type AttemptTimeoutError struct {
	Limit time.Duration
	Err   error
}

func (e *AttemptTimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s: %v", e.Limit, e.Err)
}

func (e *AttemptTimeoutError) Unwrap() error {
	return e.Err
}

func (e *AttemptTimeoutError) Timeout() bool {
	return true
}

// Sleep 可被 ctx 中断的等待
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
