package server

import (
	"context"
	"runtime"
	"time"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/findworkai/aigate/internal/ratelimit"
	"github.com/findworkai/aigate/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// adminQueryTimeout 管理接口访问限流存储的超时时间
const adminQueryTimeout = 5 * time.Second

// AdminService 代表管理服务，提供指标、状态和限流器管理接口
type AdminService struct {
	limiters        *ratelimit.Registry
	metricsRegistry *metrics.MetricsRegistry
	server          *Server
	version         string
	logger          *logr.Logger
	startTime       time.Time
}

// NewAdminService 创建新的管理服务实例
func NewAdminService(deps Dependencies, server *Server, logger *logr.Logger) *AdminService {
	if logger == nil {
		discard := logr.Discard()
		logger = &discard
	}
	version := deps.Version
	if version == "" {
		version = constants.DefaultVersion
	}

	return &AdminService{
		limiters:        deps.Limiters,
		metricsRegistry: deps.Metrics,
		server:          server,
		version:         version,
		logger:          logger,
		startTime:       time.Now(),
	}
}

// RegisterGroup 实现 orbit.Service 接口
func (s *AdminService) RegisterGroup(g *gin.RouterGroup) {
	g.GET("/metrics", s.handleMetrics)
	g.GET("/status", s.handleStatus)
	g.GET("/info", s.handleInfo)

	rl := g.Group("/ratelimit")
	rl.GET("", s.handleListLimiters)
	rl.POST("/:forward/sweep", s.handleSweep)
	rl.DELETE("/:forward/:identifier", s.handleReset)
}

// handleMetrics 导出共享注册器中的 Prometheus 指标
func (s *AdminService) handleMetrics(c *gin.Context) {
	if s.metricsRegistry == nil {
		response.NotFound(c, "metrics registry not available")
		return
	}

	promhttp.HandlerFor(s.metricsRegistry.GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}).ServeHTTP(c.Writer, c.Request)
}

// handleStatus 返回服务及各转发服务器状态
func (s *AdminService) handleStatus(c *gin.Context) {
	forwards := make([]gin.H, 0)
	if s.server != nil {
		for _, name := range s.server.ForwardNames() {
			fs := s.server.GetForwardServer(name)
			if fs == nil {
				continue
			}
			upstreams := make([]gin.H, 0, len(fs.GetService().Upstreams()))
			for _, u := range fs.GetService().Upstreams() {
				item := gin.H{"name": u.Name, "weight": u.Weight}
				if u.Breaker != nil {
					item["breaker"] = u.Breaker.State().String()
				}
				upstreams = append(upstreams, item)
			}
			forwards = append(forwards, gin.H{
				"name":      name,
				"endpoint":  fs.GetEndpoint(),
				"running":   fs.IsRunning(),
				"limiter":   fs.GetService().LimiterName(),
				"limit":     fs.GetService().Limit(),
				"upstreams": upstreams,
			})
		}
	}

	collectors := make([]string, 0)
	if s.metricsRegistry != nil {
		collectors = s.metricsRegistry.ListCollectors()
	}

	response.OK(c, gin.H{
		"service": gin.H{
			"name":       constants.AppName,
			"version":    s.version,
			"uptime":     time.Since(s.startTime).Seconds(),
			"start_time": s.startTime.Format(time.RFC3339),
		},
		"forwards":   forwards,
		"collectors": collectors,
	})
}

// handleInfo 返回运行时和主机信息，主机信息获取失败时只返回错误描述
func (s *AdminService) handleInfo(c *gin.Context) {
	ctx := c.Request.Context()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := gin.H{
		"application": gin.H{
			"name":    constants.AppName,
			"version": s.version,
		},
		"build": gin.H{
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		},
		"runtime": gin.H{
			"uptime":     time.Since(s.startTime).Seconds(),
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": m.HeapAlloc,
			"sys":        m.Sys,
			"gc_cycles":  m.NumGC,
		},
		"host": hostInfo(ctx),
	}

	response.OK(c, info)
}

// hostInfo 使用 gopsutil 采集主机负载与内存
func hostInfo(ctx context.Context) gin.H {
	result := gin.H{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		result["hostname"] = h.Hostname
		result["platform"] = h.Platform
		result["kernel"] = h.KernelVersion
		result["uptime_sec"] = h.Uptime
	} else {
		result["host_error"] = err.Error()
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		result["mem_total"] = vm.Total
		result["mem_used"] = vm.Used
		result["mem_used_pct"] = vm.UsedPercent
	} else {
		result["mem_error"] = err.Error()
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		result["load1"] = avg.Load1
		result["load5"] = avg.Load5
		result["load15"] = avg.Load15
	} else {
		result["load_error"] = err.Error()
	}

	return result
}

// handleListLimiters 返回注册表中的限流器快照以及转发服务与限流器的对应关系
func (s *AdminService) handleListLimiters(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), adminQueryTimeout)
	defer cancel()

	limiters := make([]gin.H, 0, s.limiters.Len())
	for _, l := range s.limiters.List() {
		item := gin.H{
			"name":              l.Name(),
			"interval_ms":       l.Interval().Milliseconds(),
			"max_unique_tokens": l.Signature().MaxUniqueTokens,
			"store":             l.StoreType(),
			"cleanup":           l.CleanupMode(),
		}
		if size, err := l.Size(ctx); err == nil {
			item["identifiers"] = size
		} else {
			item["error"] = err.Error()
		}
		limiters = append(limiters, item)
	}

	forwards := make([]gin.H, 0)
	if s.server != nil {
		for _, name := range s.server.ForwardNames() {
			svc := s.server.GetForwardServer(name).GetService()
			forwards = append(forwards, gin.H{
				"name":    name,
				"limiter": svc.LimiterName(),
				"limit":   svc.Limit(),
			})
		}
	}

	response.OK(c, gin.H{"limiters": limiters, "forwards": forwards})
}

// forwardLimiter 根据路径参数查找转发服务的限流器，找不到时写入 404
func (s *AdminService) forwardLimiter(c *gin.Context) (*ratelimit.Limiter, bool) {
	name := c.Param("forward")
	if s.server != nil {
		if fs := s.server.GetForwardServer(name); fs != nil && fs.GetService().Limiter() != nil {
			return fs.GetService().Limiter(), true
		}
	}
	response.NotFound(c, "rate limited forward not found: "+name)
	return nil, false
}

// handleReset 清除某个标识符的窗口
func (s *AdminService) handleReset(c *gin.Context) {
	limiter, ok := s.forwardLimiter(c)
	if !ok {
		return
	}

	identifier := c.Param("identifier")
	ctx, cancel := context.WithTimeout(c.Request.Context(), adminQueryTimeout)
	defer cancel()

	if err := limiter.Reset(ctx, identifier); err != nil {
		s.logger.Error(err, "Failed to reset rate limit window", "forward", c.Param("forward"), "identifier", identifier)
		response.LimiterUnavailable(c, "failed to reset rate limit window", err)
		return
	}

	s.logger.Info("Rate limit window reset", "forward", c.Param("forward"), "identifier", identifier)
	response.OK(c, gin.H{"forward": c.Param("forward"), "identifier": identifier})
}

// handleSweep 立即执行一次全量清理
func (s *AdminService) handleSweep(c *gin.Context) {
	limiter, ok := s.forwardLimiter(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminQueryTimeout)
	defer cancel()

	removed, err := limiter.Sweep(ctx)
	if err != nil {
		response.LimiterUnavailable(c, "failed to sweep rate limit windows", err)
		return
	}

	response.OK(c, gin.H{"limiter": limiter.Name(), "removed": removed})
}
