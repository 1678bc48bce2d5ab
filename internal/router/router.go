package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"gitbridge/internal/database"
	"gitbridge/internal/handlers"
	"gitbridge/internal/middleware"
	"gitbridge/internal/services"
	"gitbridge/pkg/response"
)

// SetupRouter 设置路由
func SetupRouter(scheduler *services.ResyncScheduler) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router, scheduler)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, scheduler *services.ResyncScheduler) {

	auth := middleware.NewAuthMiddleware()

	db := database.GetDB()
	redisQueue := database.GetRedisQueue()

	// 服务装配
	resolver := services.NewConnectorResolverService(services.NewConnectorCatalog(db))
	modes := services.NewExecutionModeService(services.NewGitSyncSettingsStore(db), resolver)
	manager := services.NewScmManagerFacilitator(resolver, nil)
	delegate := services.NewScmDelegateFacilitator(resolver, redisQueue)
	orchestrator := services.NewGitSyncOrchestrator(modes, manager, delegate)

	branchSync := services.NewBranchSyncService(services.NewGormBranchStore(db), services.NewGormCommitStore(db))
	contentSync := services.NewBranchContentSyncService(orchestrator, branchSync, services.NewEntityFileProcessor(db), redisQueue)
	pushes := services.NewGitPushService(orchestrator, branchSync, contentSync)
	fullSync := services.NewFullSyncService(redisQueue)
	configs := services.NewConfigService(db)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 委托端路由（注册/认证无需JWT）
		agentHandler := handlers.NewAgentHandler(services.NewAgentAuthService(db))
		agents := api.Group("/agents")
		{
			agents.POST("/register", agentHandler.Register)
			agents.POST("/auth", agentHandler.Authenticate)
			agents.POST("/heartbeat", auth.RequireLogin(), agentHandler.Heartbeat)
			agents.GET("", auth.RequireLogin(), auth.RequireSameAccount(), agentHandler.List)
		}

		// 连接器路由
		connectorHandler := handlers.NewConnectorHandler(services.NewConnectorService(db))
		connectors := api.Group("/connectors", auth.RequireLogin(), auth.RequireSameAccount())
		{
			connectors.POST("", connectorHandler.Create)
			connectors.GET("", connectorHandler.List)
			connectors.GET("/:identifier", connectorHandler.Get)
			connectors.PUT("/:identifier/credentials", connectorHandler.UpdateCredentials)
			connectors.PUT("/:identifier/execution", connectorHandler.SetExecutionOverride)
			connectors.DELETE("/:identifier", connectorHandler.Delete)
		}

		// 同步配置路由
		configHandler := handlers.NewSyncConfigHandler(configs, modes, scheduler)
		syncConfigs := api.Group("/sync-configs", auth.RequireLogin(), auth.RequireSameAccount())
		{
			syncConfigs.POST("", configHandler.Create)
			syncConfigs.GET("", configHandler.List)
			syncConfigs.GET("/:identifier", configHandler.Get)
			syncConfigs.PUT("/:identifier", configHandler.Update)
			syncConfigs.DELETE("/:identifier", configHandler.Delete)
		}

		// 作用域级执行路由设置
		settings := api.Group("/sync-settings", auth.RequireLogin(), auth.RequireSameAccount())
		{
			settings.GET("", configHandler.GetExecutionMode)
			settings.PUT("", configHandler.SetExecutionMode)
		}

		// Git同步操作路由
		gitSyncHandler := handlers.NewGitSyncHandler(orchestrator, configs, pushes, branchSync, fullSync)
		gitSync := api.Group("/git-sync", auth.RequireLogin(), auth.RequireSameAccount())
		{
			gitSync.GET("/branches", gitSyncHandler.ListBranches)
			gitSync.GET("/:identifier/file", gitSyncHandler.GetFileContent)
			gitSync.GET("/:identifier/files", gitSyncHandler.ListFilesOfBranch)
			gitSync.POST("/:identifier/files/batch", gitSyncHandler.ListFilesByPaths)
			gitSync.GET("/:identifier/diff", gitSyncHandler.DiffCommits)
			gitSync.GET("/:identifier/commits", gitSyncHandler.ListCommits)
			gitSync.GET("/:identifier/commits/latest", gitSyncHandler.LatestCommit)
			gitSync.POST("/:identifier/push", gitSyncHandler.Push)
			gitSync.POST("/:identifier/pull-requests", gitSyncHandler.CreatePullRequest)
			gitSync.POST("/:identifier/full-sync", gitSyncHandler.TriggerFullSync)
			gitSync.GET("/:identifier/branch-status", gitSyncHandler.GetBranchStatus)
		}

		// 同步进度WebSocket（token走查询参数）
		progressHandler := handlers.NewSyncProgressHandler()
		api.GET("/git-sync/progress/ws", progressHandler.Progress)
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "GitBridge",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
