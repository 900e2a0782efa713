package router

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paas-cd/internal/adapter/audit"
	"paas-cd/internal/adapter/build"
	"paas-cd/internal/adapter/notification"
	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/api/handler"
	"paas-cd/internal/api/middleware"
	"paas-cd/internal/core"
	"paas-cd/internal/pkg/auth"
	"paas-cd/internal/pkg/config"
	"paas-cd/internal/pkg/framework"
	"paas-cd/internal/pkg/git"
	gitApi "paas-cd/internal/pkg/git/api"
	"paas-cd/internal/repository"
	"paas-cd/internal/service"
)

// Setup 设置路由并完成全部组件装配
func Setup(cfg *config.Config, registry *core.PollerRegistry, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 获取数据库连接
	db := cfg.DB.(*gorm.DB)

	// 初始化Repository
	projectRepo := repository.NewProjectRepository(db)
	deploymentRepo := repository.NewDeploymentRepository(db)
	envVariableRepo := repository.NewEnvVariableRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// 初始化外部服务适配器
	builder, err := build.NewHTTPBuilder(cfg.Build.BaseURL, cfg.Build.Token)
	if err != nil {
		logger.Fatal("构建服务客户端初始化失败", zap.Error(err))
	}
	platform, err := serving.NewHTTPPlatform(cfg.Serving.BaseURL, cfg.Serving.Token, cfg.Serving.Region)
	if err != nil {
		logger.Fatal("托管平台客户端初始化失败", zap.Error(err))
	}

	var gitProvider gitApi.GitProvider
	if p, err := git.NewProvider(gitApi.PlatformType(cfg.Git.Platform), &gitApi.ProviderConfig{
		BaseURL: cfg.Git.BaseURL,
		Token:   cfg.Git.Token,
	}); err != nil {
		logger.Warn("Git平台客户端初始化失败,相关通知将被跳过", zap.Error(err))
	} else {
		gitProvider = p
	}

	var auditor audit.Auditor
	if cfg.Audit.Enabled {
		auditor = audit.NewHTTPAuditor(cfg.Audit.BaseURL, cfg.Audit.Token)
	}

	// 通知通道
	notifiers := []notification.Notifier{
		notification.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Enabled, logger),
	}
	if cfg.Notify.Email.Enabled {
		notifiers = append(notifiers, notification.NewEmailNotifier(notification.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
			To:       splitRecipients(cfg.Notify.Email.To),
		}, logger))
	}

	// 框架预设
	presets, err := framework.Load(cfg.Framework.PresetsFile)
	if err != nil {
		logger.Warn("框架预设加载失败,使用空预设", zap.Error(err))
		presets = framework.Presets{}
	}

	// 核心流水线组件
	fanout := core.NewFanout(notifiers, gitProvider, logger)
	poller := core.NewBuildPoller(deploymentRepo, projectRepo, builder, platform, auditor, fanout,
		pollerOptions(&cfg.Build), logger)

	// 初始化Service
	classifier := service.NewClassifierService(logger)
	envService := service.NewEnvService(envVariableRepo, projectRepo, logger)
	deployService := service.NewDeployService(
		projectRepo, deploymentRepo, auditLogRepo, envVariableRepo,
		classifier, envService, builder, platform,
		registry, poller, fanout, gitProvider, presets, logger)
	aliasService := service.NewAliasService(deploymentRepo, auditLogRepo, platform, logger)
	teardownService := service.NewTeardownService(projectRepo, deploymentRepo, auditLogRepo, platform, registry, logger)

	// 初始化Handler
	webhookHandler := handler.NewWebhookHandler(deployService, cfg.Webhook.Secret)
	deploymentHandler := handler.NewDeploymentHandler(deployService)
	aliasHandler := handler.NewAliasHandler(aliasService)
	envConfigHandler := handler.NewEnvConfigHandler(envService)
	projectHandler := handler.NewProjectHandler(teardownService, deployService)

	// Webhook限流器
	var limiter middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Store == "redis" {
			rl, err := middleware.NewRedisRateLimiter(
				cfg.RateLimit.Redis.Addr, cfg.RateLimit.Redis.Password, cfg.RateLimit.Redis.DB)
			if err != nil {
				logger.Warn("Redis限流器初始化失败,回退到内存限流", zap.Error(err))
				limiter = middleware.NewMemoryRateLimiter()
			} else {
				limiter = rl
			}
		} else {
			limiter = middleware.NewMemoryRateLimiter()
		}
	}

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Webhook 入口(签名验证在handler内,不走JWT)
		webhook := v1.Group("/webhook")
		if limiter != nil {
			webhook.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit.Limit, rateWindow(cfg.RateLimit.Window)))
		}
		webhook.POST("", webhookHandler.Handle)

		// 需要认证的路由
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware())
		{
			// 部署管理
			authed.GET("/deployments", middleware.RequirePermission(auth.PermDeploymentView), deploymentHandler.List)
			authed.GET("/deployment/:id", middleware.RequirePermission(auth.PermDeploymentView), deploymentHandler.Get)
			authed.POST("/deployment/:id/cancel", middleware.RequirePermission(auth.PermDeploymentCancel), deploymentHandler.Cancel)
			authed.POST("/deployment/rollback", middleware.RequirePermission(auth.PermDeploymentRollback), deploymentHandler.Rollback)

			// 别名管理
			authed.POST("/alias", middleware.RequirePermission(auth.PermAliasAssign), aliasHandler.Assign)
			authed.DELETE("/alias", middleware.RequirePermission(auth.PermAliasRemove), aliasHandler.Remove)

			// 环境变量管理
			authed.GET("/env", middleware.RequirePermission(auth.PermEnvView), envConfigHandler.List)
			authed.POST("/env", middleware.RequirePermission(auth.PermEnvUpdate), envConfigHandler.Create)
			authed.PUT("/env", middleware.RequirePermission(auth.PermEnvUpdate), envConfigHandler.Update)
			authed.DELETE("/env/:id", middleware.RequirePermission(auth.PermEnvUpdate), envConfigHandler.Delete)

			// 项目级操作
			authed.DELETE("/project/:id", middleware.RequirePermission(auth.PermProjectDelete), projectHandler.Delete)
			authed.GET("/project/:id/audit-logs", middleware.RequirePermission(auth.PermDeploymentView), projectHandler.AuditLogs)
		}
	}

	return r
}

// pollerOptions 配置缺省时回退到内置默认值
func pollerOptions(cfg *config.BuildConfig) core.PollerOptions {
	opts := core.DefaultPollerOptions()
	if d, err := time.ParseDuration(cfg.GracePeriod); err == nil && d > 0 {
		opts.GracePeriod = d
	}
	if d, err := time.ParseDuration(cfg.PollInterval); err == nil && d > 0 {
		opts.PollInterval = d
	}
	if cfg.MaxPolls > 0 {
		opts.MaxPolls = cfg.MaxPolls
	}
	return opts
}

func rateWindow(window string) time.Duration {
	if d, err := time.ParseDuration(window); err == nil && d > 0 {
		return d
	}
	return time.Minute
}

func splitRecipients(to string) []string {
	var out []string
	for _, s := range strings.Split(to, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
