package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/findworkai/aigate/internal/ratelimit"
	"github.com/findworkai/aigate/internal/server"
	"github.com/shengyanli1982/gs"
	"github.com/shengyanli1982/law"
	"github.com/shengyanli1982/orbit/utils/log"
)

// Version 通过 ldflags 在编译时设置
var Version = "0.1.0"

const ASCII_LOGO = `
 █████╗ ██╗ ██████╗  █████╗ ████████╗███████╗
██╔══██╗██║██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝
███████║██║██║  ███╗███████║   ██║   █████╗
██╔══██║██║██║   ██║██╔══██║   ██║   ██╔══╝
██║  ██║██║╚██████╔╝██║  ██║   ██║   ███████╗
╚═╝  ╚═╝╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝
	`

// storeConnectTimeout 启动时连接限流存储的超时时间
const storeConnectTimeout = 10 * time.Second

// ServiceContext 服务上下文结构体，用于管理服务所需的所有组件
type ServiceContext struct {
	logger      *logr.Logger
	asyncWriter *law.WriteAsyncer
	config      *config.Config
	configMgr   *config.Manager
	metrics     *metrics.MetricsRegistry
	backend     *ratelimit.Backend
	limiters    *ratelimit.Registry
	proxyServer *server.Server
}

// isReleaseMode 判断是否为发布模式
func isReleaseMode(releaseMode bool) bool {
	return releaseMode || gin.Mode() == gin.ReleaseMode
}

// initLogger 初始化日志系统，发布模式下使用异步写入器
func initLogger(releaseMode, jsonOutput bool) (*logr.Logger, *law.WriteAsyncer) {
	if isReleaseMode(releaseMode) {
		asyncWriter := law.NewWriteAsyncer(os.Stdout, law.DefaultConfig())
		if jsonOutput {
			return log.NewZapLogger(zapcore.AddSync(asyncWriter)).GetLogrLogger(), asyncWriter
		}
		return log.NewLogrLogger(asyncWriter).GetLogrLogger(), asyncWriter
	}

	return log.NewLogrLogger(os.Stdout).GetLogrLogger(), nil
}

// initConfig 初始化配置管理器，env 文件中的变量可在配置中以 ${VAR} 引用
func initConfig(configPath, envFile string) (*config.Manager, *config.Config, error) {
	configManager, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create configuration manager: %w", err)
	}
	if err := configManager.WithEnvFile(envFile).LoadFromFile(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return configManager, configManager.GetConfig(), nil
}

// initRateLimit 连接限流存储并创建限流器注册表
func initRateLimit(ctx *ServiceContext, collector metrics.MetricsCollector) error {
	connectCtx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	backend, err := ratelimit.NewBackend(connectCtx, &ctx.config.RateLimitStore)
	if err != nil {
		return fmt.Errorf("failed to connect rate limit store: %w", err)
	}

	opts := ratelimit.OptionsFromConfig(ctx.config.RateLimitStore.Cleanup)
	opts.Logger = ctx.logger
	opts.Metrics = collector

	ctx.backend = backend
	ctx.limiters = ratelimit.NewRegistry(backend.NewStore, opts)
	ctx.logger.Info("Rate limit store ready", "type", backend.Type(), "cleanup", opts.CleanupMode)
	return nil
}

// setupGracefulShutdown 设置优雅关闭机制
func setupGracefulShutdown(ctx *ServiceContext, releaseMode bool) {
	// 先停止服务器，等在途请求结束后再关闭限流存储和指标
	serverSignal := gs.NewTerminateSignal()
	serverSignal.RegisterCancelHandles(func() {
		ctx.proxyServer.Stop()
		closeStores(ctx)
	})

	writerSignal := gs.NewTerminateSignal()
	if isReleaseMode(releaseMode) && ctx.asyncWriter != nil {
		writerSignal.RegisterCancelHandles(ctx.asyncWriter.Stop)
	}

	gs.WaitForSync(serverSignal, writerSignal)
}

// closeStores 依次关闭限流器注册表、存储后端和指标注册器
func closeStores(ctx *ServiceContext) {
	if err := ctx.limiters.Close(); err != nil {
		ctx.logger.Error(err, "Failed to close rate limiters")
	}
	if err := ctx.backend.Close(); err != nil {
		ctx.logger.Error(err, "Failed to close rate limit store")
	}
	if err := ctx.metrics.Close(); err != nil {
		ctx.logger.Error(err, "Failed to close metrics registry")
	}
}

func main() {
	var (
		configPath  string
		envFile     string
		releaseMode bool
		jsonOutput  bool
	)

	cmd := cobra.Command{
		Use:     "aigate",
		Version: Version,
		Short:   "AIGate is a rate limiting gateway for AI generation services",
		Long: `AIGate sits in front of AI generation backends and throttles each client
with a per-identifier sliding window.

Core Features:
- Sliding window rate limiting keyed by client IP or header
- Shared limiter registry, one limiter per (interval, maxUniqueTokens)
- In-memory LRU store or Redis store for multi-instance deployments
- X-RateLimit-* headers and 429 responses with Retry-After
- Upstream token buckets, circuit breakers and retries
- Admin API for metrics, limiter inspection and window reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := &ServiceContext{}
			ctx.logger, ctx.asyncWriter = initLogger(releaseMode, jsonOutput)

			var err error
			ctx.configMgr, ctx.config, err = initConfig(configPath, envFile)
			if err != nil {
				ctx.logger.Error(err, "Failed to load service configuration")
				return err
			}
			ctx.logger.Info("Configuration loaded successfully", "path", ctx.configMgr.GetConfigPath())

			ctx.metrics = metrics.NewMetricsRegistry()
			collector, err := ctx.metrics.CreateSharedCollector(constants.MetricsCollectorGlobal, metrics.DefaultConfig())
			if err != nil {
				ctx.logger.Error(err, "Failed to create metrics collector")
				return err
			}

			if err := initRateLimit(ctx, collector); err != nil {
				ctx.logger.Error(err, "Failed to initialize rate limiting")
				return err
			}

			fmt.Println(ASCII_LOGO)

			ctx.proxyServer, err = server.NewServer(!releaseMode, ctx.logger, ctx.config, server.Dependencies{
				Limiters:  ctx.limiters,
				Metrics:   ctx.metrics,
				Collector: collector,
				Version:   Version,
			})
			if err != nil {
				ctx.logger.Error(err, "Failed to create servers")
				_ = ctx.limiters.Close()
				_ = ctx.backend.Close()
				return err
			}

			ctx.proxyServer.Start()
			ctx.logger.Info("AIGate started successfully", "forwards", ctx.proxyServer.ForwardNames())

			setupGracefulShutdown(ctx, releaseMode)

			ctx.logger.Info("AIGate stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, constants.FlagConfig, constants.FlagConfigShort, constants.DefaultConfigPath, "Path to configuration file")
	cmd.Flags().StringVarP(&envFile, constants.FlagEnvFile, constants.FlagEnvFileShort, constants.DefaultEnvFile, "Path to .env file loaded before configuration expansion")
	cmd.Flags().BoolVarP(&jsonOutput, constants.FlagJSON, constants.FlagJSONShort, false, "Enable JSON format logging output (only effective in release mode)")
	cmd.Flags().BoolVarP(&releaseMode, constants.FlagRelease, constants.FlagReleaseShort, false, "Enable release mode for performance optimizations and async logging")

	if err := cmd.Execute(); err != nil {
		fmt.Printf("Failed to execute command: %v\n", err)
		os.Exit(constants.ExitFailure)
	}
}
