package constants

const (
	// Command line flags - 命令行标志

	// FlagConfig 配置文件路径参数名
	FlagConfig = "config"

	// FlagJSON JSON日志格式参数名
	FlagJSON = "json"

	// FlagRelease 发布模式参数名
	FlagRelease = "release"

	// FlagConfigShort 配置文件路径短参数
	FlagConfigShort = "c"

	// FlagJSONShort JSON日志格式短参数
	FlagJSONShort = "j"

	// FlagReleaseShort 发布模式短参数
	FlagReleaseShort = "r"

	// FlagEnvFile 环境变量文件参数名
	FlagEnvFile = "env"

	// FlagEnvFileShort 环境变量文件短参数
	FlagEnvFileShort = "e"
)

const (
	// Default configuration values - 配置默认值（时间单位均为毫秒）

	// DefaultAddress 默认绑定地址
	DefaultAddress = "0.0.0.0"

	// DefaultAdminPort 默认管理端口
	DefaultAdminPort = 9000

	// DefaultRequestTimeout 默认上游请求超时
	DefaultRequestTimeout = 60000

	// DefaultIdleTimeout 默认空闲超时
	DefaultIdleTimeout = 60000

	// DefaultReadTimeout 默认读取超时
	DefaultReadTimeout = 30000

	// DefaultWriteTimeout 默认写入超时
	DefaultWriteTimeout = 30000

	// DefaultConnectTimeout 默认连接超时
	DefaultConnectTimeout = 10000

	// DefaultForwardRequestTimeout 默认转发请求超时
	DefaultForwardRequestTimeout = 300000

	// DefaultKeepAlive 默认Keep-Alive时间
	DefaultKeepAlive = 60000

	// DefaultIdleTotal 默认总空闲连接数
	DefaultIdleTotal = 100

	// DefaultIdlePerHost 默认每主机空闲连接数
	DefaultIdlePerHost = 10

	// DefaultMaxPerHost 默认每主机最大连接数
	DefaultMaxPerHost = 50

	// DefaultWeight 默认权重
	DefaultWeight = 1

	// DefaultRetryAttempts 默认重试次数
	DefaultRetryAttempts = 1

	// DefaultRetryInitial 默认首次重试延迟
	DefaultRetryInitial = 500

	// MaxRetryDelay 重试延迟上限
	MaxRetryDelay = 30000
)

const (
	// Sliding window rate limit defaults - 滑动窗口限流默认值

	// DefaultRateLimitInterval 默认窗口长度（毫秒）
	DefaultRateLimitInterval = 60000

	// DefaultRateLimitLimit 默认窗口内允许的请求数
	DefaultRateLimitLimit = 10

	// DefaultMaxUniqueTokens 默认标识符数量上限，0 表示不限制
	DefaultMaxUniqueTokens = 500

	// DefaultCleanupProbability 默认每次检查触发全量清理的概率
	DefaultCleanupProbability = 0.01

	// DefaultCleanupInterval 后台清理的默认周期（毫秒）
	DefaultCleanupInterval = 60000

	// DefaultRedisKeyPrefix Redis 存储的默认键前缀
	DefaultRedisKeyPrefix = "aigate:ratelimit:"

	// DefaultRedisAddr 默认 Redis 地址
	DefaultRedisAddr = "127.0.0.1:6379"

	// DefaultRedisDialTimeout 默认 Redis 连接超时（毫秒）
	DefaultRedisDialTimeout = 5000

	// DefaultRedisMaxTxRetries Redis 乐观事务最大重试次数
	DefaultRedisMaxTxRetries = 16
)

const (
	// Breaker defaults - 熔断器默认值

	// DefaultBreakerName 默认熔断器名称
	DefaultBreakerName = "default"

	// DefaultBreakerThreshold 默认熔断阈值（失败率）
	DefaultBreakerThreshold = 0.5

	// DefaultBreakerCooldown 默认熔断冷却时间（毫秒）
	DefaultBreakerCooldown = 30000

	// DefaultBreakerMaxRequests 半开状态允许的最大请求数
	DefaultBreakerMaxRequests = 3

	// DefaultBreakerInterval 闭合状态统计周期（毫秒）
	DefaultBreakerInterval = 10000

	// DefaultBreakerMinRequests 触发熔断前的最少请求数
	DefaultBreakerMinRequests = 5
)

const (
	// Enumerations - 配置枚举值

	// StoreMemory 进程内存储
	StoreMemory = "memory"

	// StoreRedis Redis 共享存储
	StoreRedis = "redis"

	// CleanupProbabilistic 按概率在请求路径上清理
	CleanupProbabilistic = "probabilistic"

	// CleanupBackground 后台定时清理
	CleanupBackground = "background"

	// IdentifierIP 按客户端 IP 区分
	IdentifierIP = "ip"

	// IdentifierHeader 按请求头（例如用户 ID）区分
	IdentifierHeader = "header"

	// BalanceRoundRobin 轮询负载均衡策略
	BalanceRoundRobin = "roundrobin"

	// BalanceHash 按限流标识符一致性哈希
	BalanceHash = "hash"

	// DefaultBalanceStrategy 默认负载均衡策略
	DefaultBalanceStrategy = BalanceRoundRobin
)
