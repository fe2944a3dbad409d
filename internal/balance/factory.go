package balance

import (
	"errors"
	"fmt"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// New 根据策略名称创建负载均衡器，空字符串使用默认策略
func New(strategy string) (LoadBalancer, error) {
	if strategy == "" {
		strategy = constants.DefaultBalanceStrategy
	}

	switch strategy {
	case constants.BalanceRoundRobin:
		return NewRoundRobinBalancer(), nil
	case constants.BalanceHash:
		return NewHashBalancer(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
}

// CreateFromConfig 从上游组配置创建负载均衡器
func CreateFromConfig(group *config.UpstreamGroupConfig) (LoadBalancer, error) {
	if group == nil {
		return nil, errors.New("upstream group config cannot be nil")
	}
	if group.Balance == nil {
		return New("")
	}
	return New(group.Balance.Strategy)
}
