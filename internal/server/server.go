package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/findworkai/aigate/internal/ratelimit"
	"github.com/go-logr/logr"
)

// Dependencies 代表由 main 创建并注入各个服务的共享组件
type Dependencies struct {
	Limiters  *ratelimit.Registry      // 滑动窗口限流器注册表
	Metrics   *metrics.MetricsRegistry // 指标注册器，admin 的 /metrics 从这里导出
	Collector metrics.MetricsCollector // 共享指标收集器
	Version   string
}

// Server 代表主服务器，管理转发服务器和管理服务器
type Server struct {
	lock           sync.RWMutex
	forwardServers map[string]*ForwardServer
	adminServer    *AdminServer
	logger         *logr.Logger
}

// NewServer 根据配置创建全部转发服务器和管理服务器
func NewServer(debug bool, logger *logr.Logger, cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Limiters == nil {
		return nil, ErrNilLimiterRegistry
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetricsRegistry()
	}
	if deps.Collector == nil {
		deps.Collector = metrics.NewNoopCollector()
	}

	srv := &Server{
		forwardServers: make(map[string]*ForwardServer, len(cfg.HTTPServer.Forwards)),
		logger:         logger,
	}

	for i := range cfg.HTTPServer.Forwards {
		forward := &cfg.HTTPServer.Forwards[i]
		forwardServer, err := NewForwardServer(debug, logger, forward, cfg, deps)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("forward %s: %w", forward.Name, err), srv.closeForwards())
		}
		srv.forwardServers[forward.Name] = forwardServer
	}

	srv.adminServer = NewAdminServer(debug, logger, &cfg.HTTPServer.Admin, deps, srv)
	return srv, nil
}

// Start 启动所有服务器（转发服务器和管理服务器）
func (s *Server) Start() {
	s.lock.RLock()
	defer s.lock.RUnlock()

	for _, forwardServer := range s.forwardServers {
		forwardServer.Start()
	}
	s.adminServer.Start()
}

// Stop 停止所有服务器（转发服务器和管理服务器）
func (s *Server) Stop() {
	s.lock.RLock()
	defer s.lock.RUnlock()

	s.logger.Info("Stopping all servers")
	for _, forwardServer := range s.forwardServers {
		forwardServer.Stop()
	}
	s.adminServer.Stop()
}

// closeForwards 释放已创建转发服务的资源，用于初始化失败时回滚
func (s *Server) closeForwards() error {
	var errs []error
	for _, forwardServer := range s.forwardServers {
		errs = append(errs, forwardServer.GetService().Close())
	}
	return errors.Join(errs...)
}

// GetForwardServer 根据名称获取转发服务器实例
func (s *Server) GetForwardServer(name string) *ForwardServer {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.forwardServers[name]
}

// ForwardNames 返回按名称排序的转发服务列表
func (s *Server) ForwardNames() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	names := make([]string, 0, len(s.forwardServers))
	for name := range s.forwardServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAdminServer 获取管理服务器实例
func (s *Server) GetAdminServer() *AdminServer {
	return s.adminServer
}
