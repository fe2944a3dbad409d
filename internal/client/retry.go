package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// retryPolicy 代表指数退避重试策略
type retryPolicy struct {
	attempts int
	initial  time.Duration
	maxDelay time.Duration
}

// newRetryPolicy 从配置创建重试策略，未配置时只尝试一次
func newRetryPolicy(cfg *config.RetryConfig) retryPolicy {
	policy := retryPolicy{
		attempts: 1,
		initial:  time.Duration(constants.DefaultRetryInitial) * time.Millisecond,
		maxDelay: time.Duration(constants.MaxRetryDelay) * time.Millisecond,
	}
	if cfg == nil {
		return policy
	}
	if cfg.Attempts > 0 {
		policy.attempts = cfg.Attempts
	}
	if cfg.Initial > 0 {
		policy.initial = time.Duration(cfg.Initial) * time.Millisecond
	}
	return policy
}

// delay 计算第 attempt 次失败后的等待时间：initial * 2^attempt，不超过 maxDelay
func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.maxDelay {
			return p.maxDelay
		}
	}
	return min(d, p.maxDelay)
}

// retryableStatus 判断上游状态码是否值得重试
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// do 执行 fn 并按策略重试；最后一次仍为可重试状态码时原样返回该响应
func (p retryPolicy) do(ctx context.Context, fn func(attempt int) (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := fn(attempt)
		last := attempt == p.attempts-1
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errNotReplayable) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if !retryableStatus(resp.StatusCode) || last {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	return nil, lastErr
}
