package constants

const (
	// HTTP schemes - HTTP协议方案

	// SchemeHTTP HTTP协议前缀
	SchemeHTTP = "http://"

	// DefaultScheme 默认协议方案
	DefaultScheme = SchemeHTTP

	// ProtocolHTTP HTTP协议名称
	ProtocolHTTP = "http"

	// ProtocolHTTPS HTTPS协议名称
	ProtocolHTTPS = "https"
)

const (
	// HTTP headers - HTTP头部

	// HeaderUserAgent User-Agent头部名称
	HeaderUserAgent = "User-Agent"

	// HeaderConnection Connection头部名称
	HeaderConnection = "Connection"

	// HeaderXForwardedFor X-Forwarded-For头部名称
	HeaderXForwardedFor = "X-Forwarded-For"

	// HeaderXForwardedHost X-Forwarded-Host头部名称
	HeaderXForwardedHost = "X-Forwarded-Host"

	// HeaderXForwardedProto X-Forwarded-Proto头部名称
	HeaderXForwardedProto = "X-Forwarded-Proto"

	// HeaderXRealIP X-Real-IP头部名称
	HeaderXRealIP = "X-Real-IP"

	// HeaderAuthorization Authorization头部名称
	HeaderAuthorization = "Authorization"

	// HeaderRetryAfter Retry-After头部名称
	HeaderRetryAfter = "Retry-After"

	// HeaderRateLimitLimit 窗口内允许的请求数
	HeaderRateLimitLimit = "X-RateLimit-Limit"

	// HeaderRateLimitRemaining 窗口内剩余的请求数
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// HeaderRateLimitReset 配额恢复时间（Unix 秒）
	HeaderRateLimitReset = "X-RateLimit-Reset"
)

const (
	// Connection values - 连接值

	// ConnectionClose 关闭连接值
	ConnectionClose = "close"

	// ConnectionKeepAlive 保持连接值
	ConnectionKeepAlive = "keep-alive"
)

const (
	// Authentication types - 认证类型

	// AuthTypeNone 无认证类型
	AuthTypeNone = "none"

	// AuthTypeBearer Bearer令牌认证类型
	AuthTypeBearer = "bearer"

	// AuthTypeBasic Basic认证类型
	AuthTypeBasic = "basic"

	// BearerPrefix Bearer令牌前缀
	BearerPrefix = "Bearer "
)

const (
	// Header operations - 头部操作类型

	// HeaderOpInsert 头部不存在时插入
	HeaderOpInsert = "insert"

	// HeaderOpReplace 覆盖头部
	HeaderOpReplace = "replace"

	// HeaderOpRemove 删除头部
	HeaderOpRemove = "remove"
)
