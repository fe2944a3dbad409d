package breaker

import (
	"time"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/sony/gobreaker"
)

// tripAt 返回按失败率触发熔断的判定函数
func tripAt(threshold float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < constants.DefaultBreakerMinRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= threshold
	}
}

// DefaultSettings 返回默认的熔断器设置
func DefaultSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: constants.DefaultBreakerMaxRequests,
		Interval:    time.Duration(constants.DefaultBreakerInterval) * time.Millisecond,
		Timeout:     time.Duration(constants.DefaultBreakerCooldown) * time.Millisecond,
		ReadyToTrip: tripAt(constants.DefaultBreakerThreshold),
	}
}

// SettingsFromConfig 从配置创建熔断器设置，未配置的字段使用默认值
func SettingsFromConfig(name string, cfg *config.BreakerConfig) gobreaker.Settings {
	settings := DefaultSettings(name)
	if cfg == nil {
		return settings
	}

	if cfg.MaxRequests > 0 {
		settings.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		settings.Interval = time.Duration(cfg.Interval) * time.Millisecond
	}
	if cfg.Cooldown > 0 {
		settings.Timeout = time.Duration(cfg.Cooldown) * time.Millisecond
	}
	if cfg.Threshold > 0 {
		settings.ReadyToTrip = tripAt(cfg.Threshold)
	}

	return settings
}
