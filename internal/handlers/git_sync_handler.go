package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gitbridge/internal/models"
	"gitbridge/internal/services"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/response"
)

// GitSyncHandler Git同步处理器
type GitSyncHandler struct {
	orchestrator *services.GitSyncOrchestrator
	configs      *services.ConfigService
	pushes       *services.GitPushService
	branches     *services.BranchSyncService
	fullSync     *services.FullSyncService
}

// NewGitSyncHandler 创建Git同步处理器
func NewGitSyncHandler(orchestrator *services.GitSyncOrchestrator, configs *services.ConfigService, pushes *services.GitPushService, branches *services.BranchSyncService, fullSync *services.FullSyncService) *GitSyncHandler {
	return &GitSyncHandler{
		orchestrator: orchestrator,
		configs:      configs,
		pushes:       pushes,
		branches:     branches,
		fullSync:     fullSync,
	}
}

// scopeFromQuery 从查询参数提取作用域
func scopeFromQuery(c *gin.Context) (models.Scope, bool) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "缺少account_id参数")
		return models.Scope{}, false
	}
	return models.NewScope(accountID, c.Query("org_id"), c.Query("project_id")), true
}

// respondError 按错误类别映射HTTP状态
func respondError(c *gin.Context, err error) {
	var notFound *gserrors.ConnectorNotFoundError
	var notGit *gserrors.NotAGitConnectorError
	var invalid *gserrors.InvalidRequestError
	var provider *gserrors.ProviderError
	var remote *gserrors.RemoteExecutionFailedError
	var prFailed *gserrors.PRCreationFailedError

	switch {
	case errors.As(err, &notFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &notGit), errors.As(err, &invalid):
		response.BadRequest(c, err.Error())
	case errors.As(err, &provider):
		response.Error(c, provider.StatusCode, err.Error())
	case errors.As(err, &prFailed):
		response.Error(c, 502, err.Error())
	case errors.As(err, &remote):
		response.Error(c, 502, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// configFor 按标识加载同步配置
func (h *GitSyncHandler) configFor(c *gin.Context, scope models.Scope) (*models.GitSyncConfig, bool) {
	identifier := c.Param("identifier")
	cfg, err := h.configs.Get(scope, identifier)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return cfg, true
}

// ListBranches 列出仓库分支
func (h *GitSyncHandler) ListBranches(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	connectorRef := c.Query("connector_ref")
	repoURL := c.Query("repo_url")
	if connectorRef == "" || repoURL == "" {
		response.BadRequest(c, "缺少connector_ref或repo_url参数")
		return
	}

	ctx := c.Request.Context()
	branches, err := services.DispatchByConnector(ctx, h.orchestrator, scope, connectorRef, func(f services.ScmFacilitator) ([]string, error) {
		return f.ListBranches(ctx, scope, connectorRef, repoURL)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"branches": branches})
}

// GetFileContent 获取单文件内容
func (h *GitSyncHandler) GetFileContent(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	req := &services.GetFileContentRequest{
		Config:   cfg,
		FilePath: c.Query("file_path"),
		Branch:   c.Query("branch"),
		CommitID: c.Query("commit_id"),
	}

	ctx := c.Request.Context()
	file, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.GetFileContent(ctx, scope, req)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, file)
}

// ListFilesOfBranch 列出分支上根目录下的全部文件
func (h *GitSyncHandler) ListFilesOfBranch(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	branch := c.DefaultQuery("branch", cfg.DefaultBranch)

	ctx := c.Request.Context()
	files, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.ListFilesOfBranch(ctx, scope, cfg, cfg.RootFolderList(), branch)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, files)
}

// listFilesRequest 批量文件查询请求
type listFilesRequest struct {
	Paths    []string `json:"paths" binding:"required,min=1"`
	Branch   string   `json:"branch"`
	CommitID string   `json:"commit_id"`
}

// ListFilesByPaths 按路径列表批量获取文件
func (h *GitSyncHandler) ListFilesByPaths(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	var req listFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	ctx := c.Request.Context()
	files, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		if req.CommitID != "" {
			return f.ListFilesByCommit(ctx, scope, cfg, req.Paths, req.CommitID)
		}
		branch := req.Branch
		if branch == "" {
			branch = cfg.DefaultBranch
		}
		return f.ListFilesByPaths(ctx, scope, cfg, req.Paths, branch)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, files)
}

// DiffCommits 比较两个提交间的文件差异
func (h *GitSyncHandler) DiffCommits(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	baseCommit := c.Query("base_commit")
	headCommit := c.Query("head_commit")
	if baseCommit == "" || headCommit == "" {
		response.BadRequest(c, "缺少base_commit或head_commit参数")
		return
	}

	ctx := c.Request.Context()
	diffs, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.DiffCommits(ctx, scope, cfg, baseCommit, headCommit)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, diffs)
}

// ListCommits 分页列出分支提交
func (h *GitSyncHandler) ListCommits(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	branch := c.DefaultQuery("branch", cfg.DefaultBranch)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx := c.Request.Context()
	commits, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.ListCommits(ctx, scope, cfg, branch, page, pageSize)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, commits)
}

// LatestCommit 获取分支最新提交
func (h *GitSyncHandler) LatestCommit(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	branch := c.DefaultQuery("branch", cfg.DefaultBranch)

	ctx := c.Request.Context()
	commit, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.LatestCommit(ctx, scope, cfg, branch)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, commit)
}

// pushRequest 文件推送请求
type pushRequest struct {
	Action        string `json:"action" binding:"required,oneof=create update delete"`
	FilePath      string `json:"file_path" binding:"required"`
	FolderPath    string `json:"folder_path"`
	Branch        string `json:"branch" binding:"required"`
	BaseBranch    string `json:"base_branch"`
	CommitMessage string `json:"commit_message" binding:"required"`
	IsNewBranch   bool   `json:"is_new_branch"`
	OldFileSHA    string `json:"old_file_sha"`
	Content       string `json:"content"`
}

// Push 推送单文件变更
func (h *GitSyncHandler) Push(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 解析验证错误，提供更友好的提示
		if validationErr, ok := err.(validator.ValidationErrors); ok {
			errorMsg := "参数验证失败"
			for _, fieldErr := range validationErr {
				switch fieldErr.Field() {
				case "Action":
					errorMsg = "推送动作必须是 create、update 或 delete"
				case "FilePath":
					errorMsg = "文件路径不能为空"
				case "Branch":
					errorMsg = "分支名不能为空"
				case "CommitMessage":
					errorMsg = "提交信息不能为空"
				}
			}
			response.BadRequest(c, errorMsg)
			return
		}
		response.BadRequest(c, "请求参数错误")
		return
	}

	result, err := h.pushes.Push(c.Request.Context(), scope, services.PushAction(req.Action), &services.PushInfo{
		Config:        cfg,
		FilePath:      req.FilePath,
		FolderPath:    req.FolderPath,
		Branch:        req.Branch,
		BaseBranch:    req.BaseBranch,
		CommitMessage: req.CommitMessage,
		IsNewBranch:   req.IsNewBranch,
		OldFileSHA:    req.OldFileSHA,
		Content:       req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "推送成功", result)
}

// createPRRequest 创建PR请求
type createPRRequest struct {
	Title        string `json:"title" binding:"required"`
	SourceBranch string `json:"source_branch" binding:"required"`
	TargetBranch string `json:"target_branch" binding:"required"`
}

// CreatePullRequest 创建PR
func (h *GitSyncHandler) CreatePullRequest(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	var req createPRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	ctx := c.Request.Context()
	pr, err := services.Dispatch(ctx, h.orchestrator, scope, func(f services.ScmFacilitator) (interface{}, error) {
		return f.CreatePullRequest(ctx, scope, &services.CreatePullRequestRequest{
			Config:       cfg,
			Title:        req.Title,
			SourceBranch: req.SourceBranch,
			TargetBranch: req.TargetBranch,
		})
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "PR创建成功", pr)
}

// TriggerFullSync 触发全量同步（投递即忘）
func (h *GitSyncHandler) TriggerFullSync(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	branch := c.DefaultQuery("branch", cfg.DefaultBranch)
	createPR := c.Query("create_pr") == "true"
	targetBranch := c.Query("target_branch")
	triggered := h.fullSync.Trigger(c.Request.Context(), scope, cfg, branch, createPR, targetBranch, "api")

	response.Success(c, gin.H{"triggered": triggered})
}

// GetBranchStatus 查询分支同步状态
func (h *GitSyncHandler) GetBranchStatus(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}
	cfg, ok := h.configFor(c, scope)
	if !ok {
		return
	}

	branch := c.Query("branch")
	if branch == "" {
		response.BadRequest(c, "缺少branch参数")
		return
	}

	record, err := h.branches.GetBranch(scope.AccountID, cfg.RepoURL, branch)
	if err != nil {
		response.NotFound(c, "分支记录不存在")
		return
	}

	response.Success(c, record)
}
