// Package constants 定义项目中使用的应用级常量
package constants

const (
	// Application metadata - 应用程序元数据

	// DefaultVersion 应用程序默认版本号
	DefaultVersion = "0.0.0"

	// AppName 应用程序名称
	AppName = "AIGate"

	// UserAgent 转发到 AI 后端时使用的默认用户代理
	UserAgent = "AIGate/1.0"

	// DefaultConfigPath 默认配置文件路径
	DefaultConfigPath = "./config.yaml"

	// DefaultEnvFile 默认环境变量文件，不存在时忽略
	DefaultEnvFile = ".env"
)

const (
	// Exit codes - 程序退出码

	// ExitFailure 程序异常退出码
	ExitFailure = -1

	// ExitSuccess 程序正常退出码
	ExitSuccess = 0
)

const (
	// Metrics collector constants - 指标收集器常量

	// MetricsCollectorGlobal 共享指标收集器名称
	MetricsCollectorGlobal = "global"

	// MetricsTypePrometheus Prometheus指标类型
	MetricsTypePrometheus = "prometheus"

	// MetricsTypeNoop 空操作指标类型
	MetricsTypeNoop = "noop"

	// MetricsNamespace 指标命名空间
	MetricsNamespace = "aigate"
)
