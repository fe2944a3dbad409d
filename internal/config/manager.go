package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Manager 代表配置管理器，负责配置文件的加载、验证和管理
type Manager struct {
	config     *Config             // 当前加载的配置实例
	configPath string              // 配置文件的绝对路径
	envFile    string              // 可选的环境变量文件
	validator  *validator.Validate // 配置验证器
}

// NewManager 创建新的配置管理器实例
func NewManager() (*Manager, error) {
	v := validator.New()

	// 注册自定义验证器
	validations := map[string]validator.Func{
		"auth_conditional":       validateAuthConditional,
		"identifier_conditional": validateIdentifierConditional,
		"http_url":               validateHTTPURL,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, err
		}
	}

	return &Manager{
		envFile:   constants.DefaultEnvFile,
		validator: v,
	}, nil
}

// WithEnvFile 指定加载配置前读取的环境变量文件，空字符串表示不读取
func (m *Manager) WithEnvFile(path string) *Manager {
	m.envFile = path
	return m
}

// LoadFromFile 从指定路径加载配置文件并进行验证
// configPath: 配置文件路径
func (m *Manager) LoadFromFile(configPath string) error {
	// 检查文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// .env 不存在时忽略，已存在的环境变量不会被覆盖
	if m.envFile != "" {
		if err := godotenv.Load(m.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", m.envFile, err)
		}
	}

	if err := m.LoadFromBytes(data); err != nil {
		return err
	}

	m.configPath, _ = filepath.Abs(configPath)
	return nil
}

// LoadFromBytes 解析 YAML 内容，展开 ${VAR} 环境变量后设置默认值并验证
func (m *Manager) LoadFromBytes(data []byte) error {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// 设置默认值
	m.SetDefaults(&config)

	// 验证配置结构
	if err := m.validator.Struct(&config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 验证引用关系
	if err := m.validateReferences(&config); err != nil {
		return fmt.Errorf("config reference validation failed: %w", err)
	}

	m.config = &config
	return nil
}

// validateReferences 验证配置中的引用关系是否正确
func (m *Manager) validateReferences(config *Config) error {
	upstreamNames := make(map[string]bool, len(config.Upstreams))
	for _, upstream := range config.Upstreams {
		if upstreamNames[upstream.Name] {
			return fmt.Errorf("duplicate upstream name '%s'", upstream.Name)
		}
		upstreamNames[upstream.Name] = true
	}

	groupNames := make(map[string]bool, len(config.UpstreamGroups))
	for _, group := range config.UpstreamGroups {
		if groupNames[group.Name] {
			return fmt.Errorf("duplicate upstream group name '%s'", group.Name)
		}
		groupNames[group.Name] = true

		for _, upstreamRef := range group.Upstreams {
			if !upstreamNames[upstreamRef.Name] {
				return fmt.Errorf("upstream group '%s' references unknown upstream '%s'",
					group.Name, upstreamRef.Name)
			}
		}
	}

	forwardNames := make(map[string]bool, len(config.HTTPServer.Forwards))
	for _, forward := range config.HTTPServer.Forwards {
		if forwardNames[forward.Name] {
			return fmt.Errorf("duplicate forward service name '%s'", forward.Name)
		}
		forwardNames[forward.Name] = true

		if !groupNames[forward.DefaultGroup] {
			return fmt.Errorf("forward service '%s' references unknown upstream group '%s'",
				forward.Name, forward.DefaultGroup)
		}
	}

	if config.RateLimitStore.Type == constants.StoreRedis && config.RateLimitStore.Redis == nil {
		return errors.New("rate limit store type 'redis' requires a redis section")
	}

	return nil
}

// GetConfig 返回当前加载的配置实例
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetConfigPath 返回当前配置文件的绝对路径
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetDefaults 为配置设置默认值，确保所有必需字段都有合理的默认值
func (m *Manager) SetDefaults(config *Config) {
	m.setForwardDefaults(config)
	m.setAdminDefaults(config)
	m.setStoreDefaults(config)
	m.setUpstreamDefaults(config)
	m.setUpstreamGroupDefaults(config)
}

// setForwardDefaults 设置转发服务的默认值
func (m *Manager) setForwardDefaults(config *Config) {
	for i := range config.HTTPServer.Forwards {
		forward := &config.HTTPServer.Forwards[i]
		if forward.Address == "" {
			forward.Address = constants.DefaultAddress
		}
		if forward.RateLimit == nil {
			forward.RateLimit = &RateLimitConfig{}
		}
		setRateLimitDefaults(forward.RateLimit)

		if forward.Timeout == nil {
			forward.Timeout = &TimeoutConfig{}
		}
		setTimeoutDefaults(forward.Timeout, constants.DefaultForwardRequestTimeout)
	}
}

// setRateLimitDefaults 填充滑动窗口限流的默认值
func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.Interval == 0 {
		rl.Interval = constants.DefaultRateLimitInterval
	}
	if rl.Limit == 0 {
		rl.Limit = constants.DefaultRateLimitLimit
	}
	if rl.MaxUniqueTokens == nil {
		rl.MaxUniqueTokens = intPtr(constants.DefaultMaxUniqueTokens)
	}
	if rl.Identifier == nil {
		rl.Identifier = &IdentifierConfig{}
	}
	if rl.Identifier.Source == "" {
		rl.Identifier.Source = constants.IdentifierIP
	}
}

// intPtr 返回整数的指针，用于可显式配置为 0 的字段
func intPtr(v int) *int {
	return &v
}

// setTimeoutDefaults 为超时配置中为 0 的字段设置默认值
func setTimeoutDefaults(t *TimeoutConfig, request int) {
	if t.Idle == 0 {
		t.Idle = constants.DefaultIdleTimeout
	}
	if t.Read == 0 {
		t.Read = constants.DefaultReadTimeout
	}
	if t.Write == 0 {
		t.Write = constants.DefaultWriteTimeout
	}
	if t.Connect == 0 {
		t.Connect = constants.DefaultConnectTimeout
	}
	if t.Request == 0 {
		t.Request = request
	}
}

// setAdminDefaults 设置管理服务的默认值
func (m *Manager) setAdminDefaults(config *Config) {
	if config.HTTPServer.Admin.Port == 0 {
		config.HTTPServer.Admin.Port = constants.DefaultAdminPort
	}
	if config.HTTPServer.Admin.Address == "" {
		config.HTTPServer.Admin.Address = constants.DefaultAddress
	}
	if config.HTTPServer.Admin.Timeout == nil {
		config.HTTPServer.Admin.Timeout = &TimeoutConfig{}
	}
	setTimeoutDefaults(config.HTTPServer.Admin.Timeout, constants.DefaultForwardRequestTimeout)
}

// setStoreDefaults 设置限流存储的默认值
func (m *Manager) setStoreDefaults(config *Config) {
	store := &config.RateLimitStore
	if store.Type == "" {
		store.Type = constants.StoreMemory
	}
	if store.Cleanup == nil {
		store.Cleanup = &CleanupConfig{}
	}
	if store.Cleanup.Mode == "" {
		store.Cleanup.Mode = constants.CleanupProbabilistic
	}
	if store.Cleanup.Probability == nil {
		probability := constants.DefaultCleanupProbability
		store.Cleanup.Probability = &probability
	}
	if store.Cleanup.Interval == 0 {
		store.Cleanup.Interval = constants.DefaultCleanupInterval
	}
	if store.Redis != nil {
		if store.Redis.Addr == "" {
			store.Redis.Addr = constants.DefaultRedisAddr
		}
		if store.Redis.KeyPrefix == "" {
			store.Redis.KeyPrefix = constants.DefaultRedisKeyPrefix
		}
		if store.Redis.DialTimeout == 0 {
			store.Redis.DialTimeout = constants.DefaultRedisDialTimeout
		}
	}
}

// setUpstreamDefaults 设置上游服务的默认值
func (m *Manager) setUpstreamDefaults(config *Config) {
	for i := range config.Upstreams {
		upstream := &config.Upstreams[i]
		if upstream.Auth == nil {
			upstream.Auth = &AuthConfig{Type: constants.AuthTypeNone}
		} else if upstream.Auth.Type == "" {
			upstream.Auth.Type = constants.AuthTypeNone
		}
		if upstream.Breaker != nil {
			if upstream.Breaker.Threshold == 0 {
				upstream.Breaker.Threshold = constants.DefaultBreakerThreshold
			}
			if upstream.Breaker.Cooldown == 0 {
				upstream.Breaker.Cooldown = constants.DefaultBreakerCooldown
			}
			if upstream.Breaker.MaxRequests == 0 {
				upstream.Breaker.MaxRequests = constants.DefaultBreakerMaxRequests
			}
			if upstream.Breaker.Interval == 0 {
				upstream.Breaker.Interval = constants.DefaultBreakerInterval
			}
		}
		if upstream.RateLimit != nil {
			if upstream.RateLimit.PerSecond == 0 {
				upstream.RateLimit.PerSecond = 100
			}
			if upstream.RateLimit.Burst == 0 {
				upstream.RateLimit.Burst = upstream.RateLimit.PerSecond
			}
		}
	}
}

// setUpstreamGroupDefaults 设置上游组的默认值
func (m *Manager) setUpstreamGroupDefaults(config *Config) {
	for i := range config.UpstreamGroups {
		group := &config.UpstreamGroups[i]
		if group.Balance == nil {
			group.Balance = &BalanceConfig{}
		}
		if group.Balance.Strategy == "" {
			group.Balance.Strategy = constants.DefaultBalanceStrategy
		}

		if group.HTTPClient == nil {
			group.HTTPClient = &HTTPClientConfig{KeepAlive: constants.DefaultKeepAlive}
		}
		client := group.HTTPClient
		if client.Agent == "" {
			client.Agent = constants.UserAgent
		}
		if client.Connect == nil {
			client.Connect = &ConnectConfig{}
		}
		if client.Connect.IdleTotal == 0 {
			client.Connect.IdleTotal = constants.DefaultIdleTotal
		}
		if client.Connect.IdlePerHost == 0 {
			client.Connect.IdlePerHost = constants.DefaultIdlePerHost
		}
		if client.Connect.MaxPerHost == 0 {
			client.Connect.MaxPerHost = constants.DefaultMaxPerHost
		}
		if client.Timeout == nil {
			client.Timeout = &TimeoutConfig{}
		}
		setTimeoutDefaults(client.Timeout, constants.DefaultForwardRequestTimeout)

		// 设置上游引用权重默认值
		for j := range group.Upstreams {
			if group.Upstreams[j].Weight == 0 {
				group.Upstreams[j].Weight = constants.DefaultWeight
			}
		}
	}
}

// validateAuthConditional 验证认证配置的条件必填字段
func validateAuthConditional(fl validator.FieldLevel) bool {
	var auth AuthConfig
	switch parent := fl.Parent().Interface().(type) {
	case AuthConfig:
		auth = parent
	case *AuthConfig:
		auth = *parent
	default:
		return true
	}

	switch auth.Type {
	case constants.AuthTypeBearer:
		// 当type为bearer时，token必填
		return auth.Token != ""
	case constants.AuthTypeBasic:
		// 当type为basic时，username和password必填
		return auth.Username != "" && auth.Password != ""
	case constants.AuthTypeNone, "":
		return true
	default:
		return false
	}
}

// validateIdentifierConditional 当标识符来源为 header 时要求提供头部名称
func validateIdentifierConditional(fl validator.FieldLevel) bool {
	var id IdentifierConfig
	switch parent := fl.Parent().Interface().(type) {
	case IdentifierConfig:
		id = parent
	case *IdentifierConfig:
		id = *parent
	default:
		return true
	}

	if id.Source == constants.IdentifierHeader {
		return strings.TrimSpace(id.Header) != ""
	}
	return true
}

// validateHTTPURL 验证URL必须使用HTTP或HTTPS协议
func validateHTTPURL(fl validator.FieldLevel) bool {
	urlStr := fl.Field().String()
	if urlStr == "" {
		return false
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	// 检查协议必须是http或https（大小写不敏感）
	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != constants.ProtocolHTTP && scheme != constants.ProtocolHTTPS {
		return false
	}

	return parsedURL.Host != ""
}
