package config

// Config 代表主配置结构体，包含HTTP服务器、上游服务、上游组以及限流存储的完整配置
type Config struct {
	HTTPServer     HTTPServerConfig      `yaml:"httpServer" json:"httpServer" validate:"required"`
	Upstreams      []UpstreamConfig      `yaml:"upstreams" json:"upstreams" validate:"required,min=1,dive"`
	UpstreamGroups []UpstreamGroupConfig `yaml:"upstreamGroups" json:"upstreamGroups" validate:"required,min=1,dive"`
	RateLimitStore StoreConfig           `yaml:"rateLimitStore" json:"rateLimitStore"`
}

// HTTPServerConfig 代表HTTP服务器配置，包含转发服务和管理服务设置
type HTTPServerConfig struct {
	Forwards []ForwardConfig `yaml:"forwards" json:"forwards" validate:"required,min=1,dive"`
	Admin    AdminConfig     `yaml:"admin" json:"admin"`
}

// ForwardConfig 代表转发服务配置，定义单个 AI 代理入口的参数
type ForwardConfig struct {
	Name         string           `yaml:"name" json:"name" validate:"required"`
	Port         int              `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	Address      string           `yaml:"address" json:"address"`
	DefaultGroup string           `yaml:"defaultGroup" json:"defaultGroup" validate:"required"`
	RateLimit    *RateLimitConfig `yaml:"ratelimit,omitempty" json:"ratelimit,omitempty"`
	Timeout      *TimeoutConfig   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// AdminConfig 代表管理服务配置，用于健康检查、监控指标和限流器管理
type AdminConfig struct {
	Port    int            `yaml:"port" json:"port" validate:"min=1,max=65535"`
	Address string         `yaml:"address" json:"address"`
	Timeout *TimeoutConfig `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// RateLimitConfig 代表滑动窗口限流配置（时间单位：毫秒）
type RateLimitConfig struct {
	Interval        int               `yaml:"interval" json:"interval" validate:"omitempty,min=1,max=86400000"`
	Limit           int               `yaml:"limit" json:"limit" validate:"omitempty,min=1,max=1000000"`
	MaxUniqueTokens *int              `yaml:"maxUniqueTokens,omitempty" json:"maxUniqueTokens,omitempty" validate:"omitempty,min=0,max=10000000"` // 0 表示不限制，缺省时使用默认值
	Identifier      *IdentifierConfig `yaml:"identifier,omitempty" json:"identifier,omitempty"`
	FailOpen        bool              `yaml:"failOpen" json:"failOpen"`
}

// IdentifierConfig 代表限流标识符的提取方式
type IdentifierConfig struct {
	Source string `yaml:"source" json:"source" validate:"omitempty,oneof=ip header"`
	Header string `yaml:"header,omitempty" json:"header,omitempty" validate:"identifier_conditional"`
}

// CleanupConfig 代表过期窗口的清理策略
type CleanupConfig struct {
	Mode        string  `yaml:"mode" json:"mode" validate:"omitempty,oneof=probabilistic background"`
	Probability *float64 `yaml:"probability,omitempty" json:"probability,omitempty" validate:"omitempty,min=0,max=1"` // 0 表示关闭概率清理
	Interval    int     `yaml:"interval" json:"interval" validate:"omitempty,min=1000,max=86400000"`
}

// StoreConfig 代表限流窗口的后端存储配置，清理策略作用于该存储上的全部限流器
type StoreConfig struct {
	Type    string         `yaml:"type" json:"type" validate:"omitempty,oneof=memory redis"`
	Cleanup *CleanupConfig `yaml:"cleanup,omitempty" json:"cleanup,omitempty"`
	Redis   *RedisConfig   `yaml:"redis,omitempty" json:"redis,omitempty" validate:"omitempty"`
}

// RedisConfig 代表 Redis 连接配置，多实例部署时共享限流计数
type RedisConfig struct {
	Addr        string `yaml:"addr" json:"addr" validate:"required"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	DB          int    `yaml:"db" json:"db" validate:"min=0,max=15"`
	KeyPrefix   string `yaml:"keyPrefix" json:"keyPrefix"`
	DialTimeout int    `yaml:"dialTimeout" json:"dialTimeout" validate:"omitempty,min=100,max=60000"`
}

// TimeoutConfig 代表超时配置，定义各种操作的超时时间（单位：毫秒）
type TimeoutConfig struct {
	Idle    int `yaml:"idle,omitempty" json:"idle,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Read    int `yaml:"read,omitempty" json:"read,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Write   int `yaml:"write,omitempty" json:"write,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Connect int `yaml:"connect,omitempty" json:"connect,omitempty" validate:"omitempty,min=1000,max=86400000"`
	Request int `yaml:"request,omitempty" json:"request,omitempty" validate:"omitempty,min=1000,max=86400000"`
}

// UpstreamConfig 代表上游服务配置，定义 AI 后端服务的连接参数
type UpstreamConfig struct {
	Name      string             `yaml:"name" json:"name" validate:"required"`
	URL       string             `yaml:"url" json:"url" validate:"required,http_url"`
	Auth      *AuthConfig        `yaml:"auth,omitempty" json:"auth,omitempty"`
	Breaker   *BreakerConfig     `yaml:"breaker,omitempty" json:"breaker,omitempty"`
	RateLimit *TokenBucketConfig `yaml:"ratelimit,omitempty" json:"ratelimit,omitempty"`
	Headers   []HeaderOpConfig   `yaml:"headers,omitempty" json:"headers,omitempty" validate:"omitempty,dive"`
}

// HeaderOpConfig 代表转发到上游前的一条头部改写规则
type HeaderOpConfig struct {
	Op    string `yaml:"op" json:"op" validate:"required,oneof=insert replace remove"`
	Key   string `yaml:"key" json:"key" validate:"required"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// TokenBucketConfig 代表上游级别的令牌桶限流配置
type TokenBucketConfig struct {
	PerSecond int `yaml:"perSecond" json:"perSecond" validate:"omitempty,min=1,max=65535"`
	Burst     int `yaml:"burst" json:"burst" validate:"omitempty,min=1,max=65535"`
}

// AuthConfig 代表认证配置，支持Bearer Token和Basic Auth
type AuthConfig struct {
	Type     string `yaml:"type,omitempty" json:"type,omitempty" validate:"omitempty,oneof=none bearer basic"`
	Token    string `yaml:"token,omitempty" json:"token,omitempty" validate:"auth_conditional"`
	Username string `yaml:"username,omitempty" json:"username,omitempty" validate:"auth_conditional"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" validate:"auth_conditional"`
}

// BreakerConfig 代表熔断器配置，用于保护上游服务避免过载
type BreakerConfig struct {
	Threshold   float64 `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"omitempty,min=0.01,max=1.0"`
	Cooldown    int     `yaml:"cooldown,omitempty" json:"cooldown,omitempty" validate:"omitempty,min=1000,max=3600000"` // 单位：毫秒
	MaxRequests uint32  `yaml:"maxRequests,omitempty" json:"maxRequests,omitempty" validate:"omitempty,min=1,max=100"`
	Interval    int     `yaml:"interval,omitempty" json:"interval,omitempty" validate:"omitempty,min=1000,max=3600000"` // 单位：毫秒
}

// UpstreamGroupConfig 代表上游组配置，将多个上游服务组织为一个逻辑单元
type UpstreamGroupConfig struct {
	Name       string              `yaml:"name" json:"name" validate:"required"`
	Upstreams  []UpstreamRefConfig `yaml:"upstreams" json:"upstreams" validate:"required,min=1,dive"`
	Balance    *BalanceConfig      `yaml:"balance,omitempty" json:"balance,omitempty"`
	HTTPClient *HTTPClientConfig   `yaml:"httpClient,omitempty" json:"httpClient,omitempty"`
}

// UpstreamRefConfig 代表上游引用配置，在上游组中引用具体的上游服务
type UpstreamRefConfig struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Weight int    `yaml:"weight,omitempty" json:"weight,omitempty" validate:"omitempty,min=1,max=65535"`
}

// BalanceConfig 代表负载均衡配置，定义选择上游服务的策略
type BalanceConfig struct {
	Strategy string `yaml:"strategy" json:"strategy" validate:"omitempty,oneof=roundrobin hash"`
}

// HTTPClientConfig 代表HTTP客户端配置，控制与上游服务的连接行为
type HTTPClientConfig struct {
	Agent     string         `yaml:"agent" json:"agent"`
	KeepAlive int            `yaml:"keepalive" json:"keepalive" validate:"min=0,max=600000"` // 单位：毫秒
	Connect   *ConnectConfig `yaml:"connect,omitempty" json:"connect,omitempty"`
	Timeout   *TimeoutConfig `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry     *RetryConfig   `yaml:"retry,omitempty" json:"retry,omitempty"`
	Proxy     *ProxyConfig   `yaml:"proxy,omitempty" json:"proxy,omitempty"`
}

// ConnectConfig 代表连接池配置，控制HTTP连接的复用和管理
type ConnectConfig struct {
	IdleTotal   int `yaml:"idleTotal" json:"idleTotal" validate:"min=0,max=1000"`
	IdlePerHost int `yaml:"idlePerHost" json:"idlePerHost" validate:"min=0,max=100"`
	MaxPerHost  int `yaml:"maxPerHost" json:"maxPerHost" validate:"min=0,max=500"`
}

// RetryConfig 代表重试配置，定义失败请求的重试策略
type RetryConfig struct {
	Attempts int `yaml:"attempts" json:"attempts" validate:"min=1,max=120"`
	Initial  int `yaml:"initial" json:"initial" validate:"min=100,max=3600000"` // 单位：毫秒
}

// ProxyConfig 代表代理配置，设置HTTP代理服务器
type ProxyConfig struct {
	URL string `yaml:"url" json:"url" validate:"required,url"`
}
