package metrics

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// 注册器相关错误定义
var (
	ErrCollectorAlreadyRegistered = errors.New("collector already registered")
	ErrEmptyCollectorName         = errors.New("collector name cannot be empty")
)

// MetricsRegistry 代表指标注册管理器，持有共享的 Prometheus 注册器和按名称管理的收集器
type MetricsRegistry struct {
	mu         sync.RWMutex
	registry   *prometheus.Registry
	collectors map[string]MetricsCollector
}

// NewMetricsRegistry 创建新的指标注册器实例
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		registry:   prometheus.NewRegistry(),
		collectors: make(map[string]MetricsCollector),
	}
}

// CreateSharedCollector 创建一个使用共享注册器的收集器并以给定名称注册
func (r *MetricsRegistry) CreateSharedCollector(name string, config *Config) (MetricsCollector, error) {
	if name == "" {
		return nil, ErrEmptyCollectorName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collectors[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectorAlreadyRegistered, name)
	}

	collector, err := NewFactory(r.registry).Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector %s: %w", name, err)
	}
	r.collectors[name] = collector

	return collector, nil
}

// GetRegistry 获取共享的 Prometheus 注册器
func (r *MetricsRegistry) GetRegistry() *prometheus.Registry {
	return r.registry
}

// ListCollectors 获取所有已注册收集器的名称列表（按名称排序）
func (r *MetricsRegistry) ListCollectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Gather 收集共享注册器中的全部指标
func (r *MetricsRegistry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

// Close 关闭所有已注册的收集器
func (r *MetricsRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, collector := range r.collectors {
		if err := collector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close collector %s: %w", name, err))
		}
	}
	r.collectors = make(map[string]MetricsCollector)

	return errors.Join(errs...)
}
