package breaker

import (
	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"
)

// circuitBreaker 包装 sony/gobreaker 的实现
type circuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func (b *circuitBreaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(req)
}

func (b *circuitBreaker) Name() string {
	return b.cb.Name()
}

func (b *circuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *circuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Factory 代表熔断器工厂，为每个上游创建熔断器并上报状态变化
type Factory struct {
	logger  *logr.Logger
	metrics metrics.MetricsCollector
}

// NewFactory 创建熔断器工厂
func NewFactory(logger *logr.Logger, collector metrics.MetricsCollector) *Factory {
	if logger == nil {
		discard := logr.Discard()
		logger = &discard
	}
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}
	return &Factory{logger: logger, metrics: collector}
}

// Create 根据上游熔断配置创建熔断器
func (f *Factory) Create(name string, cfg *config.BreakerConfig) (CircuitBreaker, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	settings := SettingsFromConfig(name, cfg)
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		f.logger.Info("circuit breaker state changed", "upstream", name, "from", from.String(), "to", to.String())
		f.metrics.RecordCircuitBreakerStateChange(name, from.String(), to.String())
		f.metrics.RecordCircuitBreakerState(name, stateValue(to))
	}

	f.metrics.RecordCircuitBreakerState(name, stateValue(gobreaker.StateClosed))
	return &circuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}, nil
}

// stateValue 将状态转换为指标值（0=关闭, 1=半开, 2=开启）
func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
