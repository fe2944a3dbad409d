package balance

import (
	"context"
	"sync"

	"github.com/findworkai/aigate/internal/constants"
)

// RoundRobinBalancer 实现平滑加权轮询，权重相同时退化为普通轮询
type RoundRobinBalancer struct {
	mu      sync.Mutex
	current map[string]int
}

// NewRoundRobinBalancer 创建轮询负载均衡器
func NewRoundRobinBalancer() *RoundRobinBalancer {
	return &RoundRobinBalancer{current: make(map[string]int)}
}

// Select 选择当前权重最大的上游，随后将其当前权重减去总权重
func (b *RoundRobinBalancer) Select(_ context.Context, upstreams []Upstream) (Upstream, error) {
	if len(upstreams) == 0 {
		return Upstream{}, ErrEmptyUpstreams
	}
	if len(upstreams) == 1 {
		return upstreams[0], nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	best := -1
	for i, upstream := range upstreams {
		weight := upstream.Weight
		if weight <= 0 {
			weight = 1
		}
		total += weight

		b.current[upstream.Name] += weight
		if best < 0 || b.current[upstream.Name] > b.current[upstreams[best].Name] {
			best = i
		}
	}

	selected := upstreams[best]
	b.current[selected.Name] -= total
	return selected, nil
}

func (b *RoundRobinBalancer) Type() string {
	return constants.BalanceRoundRobin
}
