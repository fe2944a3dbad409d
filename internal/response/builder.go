// Package response 基于 httptool.BaseHttpResponse 输出统一的 JSON 响应
//
//	response.OK(c, data)
//	response.RateLimited(c, detail)
//	response.Error(response.CodeBadGateway, "upstream service unavailable").Abort(c, http.StatusBadGateway)
package response

import (
	"net/http"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/gin-gonic/gin"
	"github.com/shengyanli1982/toolkit/pkg/httptool"
)

// 业务码
const (
	CodeSuccess = 0

	// 1000-1999: 客户端错误
	CodeBadRequest = 1000 // 请求参数错误
	CodeNotFound   = 1003 // 资源未找到
	CodeRateLimit  = 1004 // 客户端超出滑动窗口限额

	// 2000-2999: 网关错误
	CodeBadGateway         = 2001 // 上游调用失败
	CodeServiceUnavailable = 2002 // 没有可用上游
	CodeGatewayTimeout     = 2003 // 上游超时
	CodeLimiterUnavailable = 2004 // 限流存储不可用

	// 3000-3999: 上游保护
	CodeCircuitBreaker = 3000 // 熔断器开启
	CodeUpstreamLimit  = 3001 // 上游令牌桶耗尽
)

// Builder 构建一条错误响应
type Builder struct {
	body httptool.BaseHttpResponse
}

// Error 创建错误响应
func Error(code int64, message string) *Builder {
	return &Builder{body: httptool.BaseHttpResponse{Code: code, ErrorMessage: message}}
}

// WithDetail 附加错误详情
func (b *Builder) WithDetail(detail interface{}) *Builder {
	b.body.ErrorDetail = detail
	return b
}

// Abort 写出响应并中断处理链，中间件和终端处理器都可以使用
func (b *Builder) Abort(c *gin.Context, status int) {
	c.AbortWithStatusJSON(status, &b.body)
}

// OK 返回业务码为 0 的成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &httptool.BaseHttpResponse{Code: CodeSuccess, Data: data})
}

// RateLimited 客户端被滑动窗口拒绝（HTTP 429）
func RateLimited(c *gin.Context, detail interface{}) {
	Error(CodeRateLimit, "too many requests").WithDetail(detail).Abort(c, http.StatusTooManyRequests)
}

// UpstreamLimited 上游令牌桶没有剩余令牌（HTTP 429）
func UpstreamLimited(c *gin.Context, upstream string) {
	Error(CodeUpstreamLimit, "too many requests to upstream service").
		WithDetail(map[string]interface{}{"type": constants.LimitTypeUpstream, "upstream": upstream}).
		Abort(c, http.StatusTooManyRequests)
}

// LimiterUnavailable 限流存储出错（HTTP 503），err 作为详情返回
func LimiterUnavailable(c *gin.Context, message string, err error) {
	b := Error(CodeLimiterUnavailable, message)
	if err != nil {
		b.WithDetail(err.Error())
	}
	b.Abort(c, http.StatusServiceUnavailable)
}

// CircuitOpen 上游熔断器处于开启或半开限流状态（HTTP 503）
func CircuitOpen(c *gin.Context, upstream string) {
	Error(CodeCircuitBreaker, "upstream circuit breaker is open").
		WithDetail(map[string]interface{}{"upstream": upstream}).
		Abort(c, http.StatusServiceUnavailable)
}

// PayloadTooLarge 请求体超过转发上限（HTTP 413）
func PayloadTooLarge(c *gin.Context, message string) {
	Error(CodeBadRequest, message).Abort(c, http.StatusRequestEntityTooLarge)
}

// BadRequest HTTP 400
func BadRequest(c *gin.Context, message string) {
	Error(CodeBadRequest, message).Abort(c, http.StatusBadRequest)
}

// NotFound HTTP 404
func NotFound(c *gin.Context, message string) {
	Error(CodeNotFound, message).Abort(c, http.StatusNotFound)
}

// BadGateway HTTP 502
func BadGateway(c *gin.Context, message string) {
	Error(CodeBadGateway, message).Abort(c, http.StatusBadGateway)
}

// ServiceUnavailable HTTP 503
func ServiceUnavailable(c *gin.Context, message string) {
	Error(CodeServiceUnavailable, message).Abort(c, http.StatusServiceUnavailable)
}

// GatewayTimeout HTTP 504
func GatewayTimeout(c *gin.Context, message string) {
	Error(CodeGatewayTimeout, message).Abort(c, http.StatusGatewayTimeout)
}
