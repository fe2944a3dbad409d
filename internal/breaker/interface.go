package breaker

import (
	"errors"

	"github.com/sony/gobreaker"
)

// ErrEmptyName 熔断器名称为空
var ErrEmptyName = errors.New("breaker name cannot be empty")

// CircuitBreaker 代表上游熔断器接口
type CircuitBreaker interface {
	// Execute 执行受保护的操作
	Execute(req func() (interface{}, error)) (interface{}, error)

	// Name 获取熔断器名称
	Name() string

	// State 获取当前状态
	State() gobreaker.State

	// Counts 获取当前统计周期内的计数
	Counts() gobreaker.Counts
}

// IsOpen 判断错误是否由熔断器拒绝产生
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
