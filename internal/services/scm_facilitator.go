package services

import (
	"context"
	"strings"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/scm"
)

// PushAction 单文件变更动作
type PushAction string

const (
	PushActionCreate PushAction = "create"
	PushActionUpdate PushAction = "update"
	PushActionDelete PushAction = "delete"
)

// GetFileContentRequest 获取文件内容请求
//
// Branch与CommitID二选一，两者同时给出或同时缺失都是非法请求。
type GetFileContentRequest struct {
	Config   *models.GitSyncConfig
	FilePath string
	Branch   string
	CommitID string
}

// PushInfo 单次出站文件变更描述
//
// 按调用构造，不落库。更新/删除必须带旧文件blob sha，提供商以此拒绝
// 过期写入。
type PushInfo struct {
	Config        *models.GitSyncConfig
	FilePath      string
	FolderPath    string
	Branch        string
	BaseBranch    string
	CommitMessage string
	IsNewBranch   bool
	OldFileSHA    string
	Content       string
}

// FullPath 计算文件在仓库中的完整路径
func (p *PushInfo) FullPath() string {
	folder := strings.Trim(p.FolderPath, "/")
	file := strings.TrimPrefix(p.FilePath, "/")
	if folder == "" {
		return file
	}
	if strings.HasPrefix(file, folder+"/") {
		return file
	}
	return folder + "/" + file
}

// CreatePullRequestRequest 创建PR请求
type CreatePullRequestRequest struct {
	Config       *models.GitSyncConfig
	Title        string
	SourceBranch string
	TargetBranch string
}

// ScmFacilitator SCM操作执行器
//
// 两个实现：本地执行器在进程内同步调用提供商API；委托端执行器把操作
// 打包成RPC任务送往客户网络内的委托端。两者错误形态一致，调用方无法
// 从错误上区分执行路径。
type ScmFacilitator interface {
	ListBranches(ctx context.Context, scope models.Scope, connectorRef, repoURL string) ([]string, error)
	GetFileContent(ctx context.Context, scope models.Scope, req *GetFileContentRequest) (*scm.FileContent, error)
	ListFilesOfBranch(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, folders []string, branch string) ([]scm.FileContent, error)
	ListFilesByPaths(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, branch string) ([]scm.FileContent, error)
	ListFilesByCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, commitID string) ([]scm.FileContent, error)
	DiffCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, baseCommit, headCommit string) ([]scm.FileDiff, error)
	ListCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string, page, pageSize int) ([]scm.Commit, error)
	LatestCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string) (*scm.Commit, error)
	CreateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error)
	UpdateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error)
	DeleteFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error)
	CreatePullRequest(ctx context.Context, scope models.Scope, req *CreatePullRequestRequest) (*scm.PullRequest, error)
}

// validateGetFileContentRequest 校验branch/commit二选一约束
//
// 在任何网络或RPC调用之前执行。
func validateGetFileContentRequest(req *GetFileContentRequest) error {
	if req.Branch != "" && req.CommitID != "" {
		return gserrors.NewInvalidRequest("branch和commit_id只能指定其一")
	}
	if req.Branch == "" && req.CommitID == "" {
		return gserrors.NewInvalidRequest("必须指定branch或commit_id之一")
	}
	return nil
}

// validateCreatePullRequest 校验源/目标分支不同
//
// 在任何网络或RPC调用之前执行。
func validateCreatePullRequest(req *CreatePullRequestRequest) error {
	if req.SourceBranch == req.TargetBranch {
		return gserrors.NewInvalidRequest("PR源分支和目标分支不能相同: %s", req.SourceBranch)
	}
	return nil
}
