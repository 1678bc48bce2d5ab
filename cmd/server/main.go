package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gitbridge/internal/database"
	"gitbridge/internal/router"
	"gitbridge/internal/services"
	"gitbridge/pkg/config"
	"gitbridge/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting GitBridge...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		// 关闭数据库连接
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		// 关闭Redis连接
		if err := database.CloseRedisQueue(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	db := database.GetDB()
	redisQueue := database.GetRedisQueue()

	// 装配全量同步消费链路
	resolver := services.NewConnectorResolverService(services.NewConnectorCatalog(db))
	modes := services.NewExecutionModeService(services.NewGitSyncSettingsStore(db), resolver)
	manager := services.NewScmManagerFacilitator(resolver, nil)
	delegate := services.NewScmDelegateFacilitator(resolver, redisQueue)
	orchestrator := services.NewGitSyncOrchestrator(modes, manager, delegate)
	branchSync := services.NewBranchSyncService(services.NewGormBranchStore(db), services.NewGormCommitStore(db))
	contentSync := services.NewBranchContentSyncService(orchestrator, branchSync, services.NewEntityFileProcessor(db), redisQueue)
	configService := services.NewConfigService(db)

	// 启动全量同步消费者
	fullSyncWorker := services.NewFullSyncWorker(redisQueue.GetClient(), contentSync, configService)
	fullSyncWorker.Start()
	defer fullSyncWorker.Stop()

	// 启动定时重同步调度器（在路由初始化前）
	resyncScheduler := services.NewResyncScheduler(configService, services.NewFullSyncService(redisQueue))
	if err := resyncScheduler.Start(); err != nil {
		appLogger.Errorf("Failed to start resync scheduler: %v", err)
		// 不影响主服务启动
	}
	defer resyncScheduler.Stop()

	// 设置路由（在调度器初始化后）
	r := router.SetupRouter(resyncScheduler)

	// 启动委托端离线清理任务（每30秒执行一次）
	agentService := services.NewAgentAuthService(db)
	cleanupTicker := time.NewTicker(30 * time.Second)
	go func() {
		for range cleanupTicker.C {
			if err := agentService.MarkStaleOffline(2 * time.Minute); err != nil {
				appLogger.Errorf("Failed to mark stale agents offline: %v", err)
			}
		}
	}()
	defer cleanupTicker.Stop()

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// 启动服务
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
