package handlers

import (
	"github.com/gin-gonic/gin"

	"gitbridge/internal/models"
	"gitbridge/internal/services"
	"gitbridge/pkg/pagination"
	"gitbridge/pkg/response"
)

// SyncConfigHandler 同步配置处理器
type SyncConfigHandler struct {
	configs   *services.ConfigService
	modes     *services.ExecutionModeService
	scheduler *services.ResyncScheduler
}

// NewSyncConfigHandler 创建同步配置处理器
func NewSyncConfigHandler(configs *services.ConfigService, modes *services.ExecutionModeService, scheduler *services.ResyncScheduler) *SyncConfigHandler {
	return &SyncConfigHandler{configs: configs, modes: modes, scheduler: scheduler}
}

// createConfigRequest 创建同步配置请求
type createConfigRequest struct {
	Identifier      string `json:"identifier" binding:"required"`
	Name            string `json:"name"`
	GitConnectorRef string `json:"git_connector_ref" binding:"required"`
	RepoURL         string `json:"repo_url" binding:"required"`
	DefaultBranch   string `json:"default_branch"`
	RootFolders     string `json:"root_folders"`

	ConnectorsRepo   string `json:"connectors_repo"`
	ConnectorsBranch string `json:"connectors_branch"`

	ResyncEnabled bool   `json:"resync_enabled"`
	ResyncCron    string `json:"resync_cron"`
}

// Create 创建同步配置
func (h *SyncConfigHandler) Create(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var req createConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	cfg := &models.GitSyncConfig{
		AccountID:        scope.AccountID,
		OrgID:            scope.OrgID,
		ProjectID:        scope.ProjectID,
		Identifier:       req.Identifier,
		Name:             req.Name,
		GitConnectorRef:  req.GitConnectorRef,
		RepoURL:          req.RepoURL,
		DefaultBranch:    req.DefaultBranch,
		RootFolders:      req.RootFolders,
		ConnectorsRepo:   req.ConnectorsRepo,
		ConnectorsBranch: req.ConnectorsBranch,
		ResyncEnabled:    req.ResyncEnabled,
		ResyncCron:       req.ResyncCron,
		Status:           "active",
	}

	if err := h.configs.Create(cfg); err != nil {
		respondError(c, err)
		return
	}

	if cfg.ResyncEnabled && h.scheduler != nil {
		if err := h.scheduler.AddJob(cfg); err != nil {
			respondError(c, err)
			return
		}
	}

	response.SuccessWithMessage(c, "创建成功", cfg)
}

// Get 查询同步配置
func (h *SyncConfigHandler) Get(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(scope, c.Param("identifier"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, cfg)
}

// List 列出同步配置
func (h *SyncConfigHandler) List(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	params := pagination.ParsePageParams(c)
	configs, total, err := h.configs.List(scope, params.Page, params.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithPage(c, configs, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新同步配置
func (h *SyncConfigHandler) Update(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	cfg, err := h.configs.Update(scope, c.Param("identifier"), updates)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.UpdateJob(cfg); err != nil {
			respondError(c, err)
			return
		}
	}

	response.SuccessWithMessage(c, "更新成功", cfg)
}

// Delete 删除同步配置
func (h *SyncConfigHandler) Delete(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(scope, c.Param("identifier"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.configs.Delete(scope, cfg.Identifier); err != nil {
		respondError(c, err)
		return
	}
	if h.scheduler != nil {
		h.scheduler.RemoveJob(cfg.ID)
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// executionModeRequest 作用域级执行路由设置请求
type executionModeRequest struct {
	ExecuteOnDelegate *bool `json:"execute_on_delegate" binding:"required"`
}

// GetExecutionMode 查询作用域级执行路由
func (h *SyncConfigHandler) GetExecutionMode(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	onDelegate, err := h.modes.ShouldExecuteOnDelegate(scope)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"execute_on_delegate": onDelegate})
}

// SetExecutionMode 设置作用域级执行路由
func (h *SyncConfigHandler) SetExecutionMode(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var req executionModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	if err := h.modes.SetExecutionMode(scope, *req.ExecuteOnDelegate); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "执行路由已更新", gin.H{"execute_on_delegate": *req.ExecuteOnDelegate})
}
