package constants

const (
	// Error messages - 错误消息

	// ErrMsgServerAlreadyStarted 服务器已启动错误消息
	ErrMsgServerAlreadyStarted = "server already started"

	// ErrMsgServerNotRunning 服务器未运行错误消息
	ErrMsgServerNotRunning = "server is not running"

	// ErrMsgNilRequest 空请求错误消息
	ErrMsgNilRequest = "request cannot be nil"

	// ErrMsgNilUpstream 空上游错误消息
	ErrMsgNilUpstream = "upstream cannot be nil"

	// ErrMsgClientClosed 客户端已关闭错误消息
	ErrMsgClientClosed = "client is closed"

	// ErrMsgEmptyUpstreams 空上游列表错误消息
	ErrMsgEmptyUpstreams = "upstreams cannot be empty"

	// ErrMsgUnknownStrategy 未知策略错误消息
	ErrMsgUnknownStrategy = "unknown load balance strategy"

	// ErrMsgEmptyIdentifier 空限流标识符错误消息
	ErrMsgEmptyIdentifier = "rate limit identifier cannot be empty"

	// ErrMsgInvalidLimit 非正数限额错误消息
	ErrMsgInvalidLimit = "rate limit must be a positive integer"

	// ErrMsgInvalidInterval 非正数窗口错误消息
	ErrMsgInvalidInterval = "rate limit interval must be positive"

	// ErrMsgNilStore 空存储错误消息
	ErrMsgNilStore = "rate limit store cannot be nil"

	// ErrMsgStoreClosed 存储已关闭错误消息
	ErrMsgStoreClosed = "rate limit store is closed"

	// ErrMsgRegistryClosed 注册表已关闭错误消息
	ErrMsgRegistryClosed = "limiter registry is closed"

	// ErrMsgTxConflict Redis 乐观事务冲突重试耗尽
	ErrMsgTxConflict = "rate limit store transaction retries exhausted"
)

const (
	// Error types for metrics - 指标错误类型

	// ErrorTypeProcessing 处理错误类型
	ErrorTypeProcessing = "processing_error"

	// ErrorTypeSelection 选择错误类型
	ErrorTypeSelection = "selection_failed"

	// ErrorTypeExecution 执行错误类型
	ErrorTypeExecution = "execution_error"

	// ErrorTypeLimiter 限流器存储错误类型
	ErrorTypeLimiter = "limiter_error"
)

const (
	// Rate limit decisions for metrics - 限流决策标签

	// DecisionAllowed 放行
	DecisionAllowed = "allowed"

	// DecisionRejected 拒绝
	DecisionRejected = "rejected"

	// DecisionError 存储故障
	DecisionError = "error"

	// LimitTypeClient 客户端滑动窗口限流
	LimitTypeClient = "client"

	// LimitTypeUpstream 上游令牌桶限流
	LimitTypeUpstream = "upstream"
)
