package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// noopCollector 空操作指标收集器，用于禁用指标收集时的占位实现
type noopCollector struct {
	name     string
	registry *prometheus.Registry
}

// NewNoopCollector 创建新的空操作指标收集器实例
func NewNoopCollector() MetricsCollector {
	return &noopCollector{
		name:     MetricsTypeNoop,
		registry: prometheus.NewRegistry(),
	}
}

func (c *noopCollector) RecordResponse(string, string, string, int, time.Duration, int64, int64) {}

func (c *noopCollector) RecordError(string, string) {}

func (c *noopCollector) RecordUpstreamResponse(string, string, string, int, time.Duration) {}

func (c *noopCollector) RecordUpstreamError(string, string, string) {}

func (c *noopCollector) RecordCircuitBreakerState(string, int) {}

func (c *noopCollector) RecordCircuitBreakerStateChange(string, string, string) {}

func (c *noopCollector) RecordLoadBalancerSelection(string, string, string) {}

func (c *noopCollector) RecordRateLimitDecision(string, string, string) {}

func (c *noopCollector) RecordRateLimitEviction(string) {}

func (c *noopCollector) RecordRateLimitSweep(string, int, time.Duration) {}

func (c *noopCollector) SetRateLimitIdentifiers(string, int) {}

// GetRegistry 返回空的注册器
func (c *noopCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}

func (c *noopCollector) Name() string {
	return c.name
}

func (c *noopCollector) Close() error {
	return nil
}
