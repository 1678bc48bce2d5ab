package services

import (
	"context"
	"fmt"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/scm"
)

// ScmClientFactory 基于解密后连接器构建提供商客户端
type ScmClientFactory func(ctx context.Context, connector *models.GitConnector) (scm.Client, error)

// DefaultScmClientFactory 默认客户端工厂
func DefaultScmClientFactory(ctx context.Context, connector *models.GitConnector) (scm.Client, error) {
	token := connector.Token
	if connector.AuthType == models.ConnectorAuthPassword {
		token = connector.Password
	}

	cfg := config.GetConfig()
	return scm.NewGitHubClient(ctx, token, cfg.Provider.APIBaseURL)
}

// ScmManagerFacilitator 本地执行器
//
// 每个操作都在进程内同步调用提供商API：解析连接器、就地解密、绑定仓库、
// 发起调用。明文凭证只在单次调用内存活，不向外传播。
type ScmManagerFacilitator struct {
	resolver *ConnectorResolverService
	clients  ScmClientFactory
}

// NewScmManagerFacilitator 创建本地执行器
func NewScmManagerFacilitator(resolver *ConnectorResolverService, clients ScmClientFactory) *ScmManagerFacilitator {
	if clients == nil {
		clients = DefaultScmClientFactory
	}
	return &ScmManagerFacilitator{resolver: resolver, clients: clients}
}

// clientFor 解析并解密连接器，构建提供商客户端
func (f *ScmManagerFacilitator) clientFor(ctx context.Context, scope models.Scope, connectorRef, repoHint, branchHint string) (scm.Client, error) {
	connector, err := f.resolver.Resolve(scope, connectorRef, repoHint, branchHint)
	if err != nil {
		return nil, err
	}

	decrypted, err := f.resolver.Decrypt(connector, scope)
	if err != nil {
		return nil, err
	}

	return f.clients(ctx, decrypted)
}

// clientForConfig 按同步配置构建提供商客户端，同时返回仓库slug
func (f *ScmManagerFacilitator) clientForConfig(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig) (scm.Client, string, error) {
	client, err := f.clientFor(ctx, scope, cfg.GitConnectorRef, cfg.ConnectorsRepo, cfg.ConnectorsBranch)
	if err != nil {
		return nil, "", err
	}

	repo, err := scm.ParseRepoSlug(cfg.RepoURL)
	if err != nil {
		return nil, "", gserrors.NewInvalidRequest("仓库URL无效: %v", err)
	}

	return client, repo, nil
}

// ListBranches 列出仓库分支
func (f *ScmManagerFacilitator) ListBranches(ctx context.Context, scope models.Scope, connectorRef, repoURL string) ([]string, error) {
	client, err := f.clientFor(ctx, scope, connectorRef, "", "")
	if err != nil {
		return nil, err
	}

	repo, err := scm.ParseRepoSlug(repoURL)
	if err != nil {
		return nil, gserrors.NewInvalidRequest("仓库URL无效: %v", err)
	}

	return client.ListBranches(ctx, repo)
}

// GetFileContent 获取单文件内容
func (f *ScmManagerFacilitator) GetFileContent(ctx context.Context, scope models.Scope, req *GetFileContentRequest) (*scm.FileContent, error) {
	if err := validateGetFileContentRequest(req); err != nil {
		return nil, err
	}

	client, repo, err := f.clientForConfig(ctx, scope, req.Config)
	if err != nil {
		return nil, err
	}

	ref := req.Branch
	if ref == "" {
		ref = req.CommitID
	}
	return client.GetFile(ctx, repo, req.FilePath, ref)
}

// ListFilesOfBranch 列出分支上指定根目录下的全部文件
func (f *ScmManagerFacilitator) ListFilesOfBranch(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, folders []string, branch string) ([]scm.FileContent, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.ListFilesUnder(ctx, repo, folders, branch)
}

// ListFilesByPaths 按路径列表批量获取分支上的文件
func (f *ScmManagerFacilitator) ListFilesByPaths(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, branch string) ([]scm.FileContent, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.GetFilesByPaths(ctx, repo, paths, branch)
}

// ListFilesByCommit 按路径列表批量获取指定提交上的文件
func (f *ScmManagerFacilitator) ListFilesByCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, commitID string) ([]scm.FileContent, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.GetFilesByPaths(ctx, repo, paths, commitID)
}

// DiffCommits 比较两个提交间的文件差异
func (f *ScmManagerFacilitator) DiffCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, baseCommit, headCommit string) ([]scm.FileDiff, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.CompareCommits(ctx, repo, baseCommit, headCommit)
}

// ListCommits 分页列出分支提交
func (f *ScmManagerFacilitator) ListCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string, page, pageSize int) ([]scm.Commit, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.ListCommits(ctx, repo, branch, page, pageSize)
}

// LatestCommit 获取分支最新提交
func (f *ScmManagerFacilitator) LatestCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string) (*scm.Commit, error) {
	client, repo, err := f.clientForConfig(ctx, scope, cfg)
	if err != nil {
		return nil, err
	}
	return client.LatestCommit(ctx, repo, branch)
}

// CreateFile 创建文件（新分支时先从基准分支建分支）
func (f *ScmManagerFacilitator) CreateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	client, repo, err := f.clientForConfig(ctx, scope, push.Config)
	if err != nil {
		return nil, err
	}

	if push.IsNewBranch {
		baseBranch := push.BaseBranch
		if baseBranch == "" {
			baseBranch = push.Config.DefaultBranch
		}
		if err := client.CreateBranch(ctx, repo, push.Branch, baseBranch); err != nil {
			return nil, err
		}
	}

	return client.CreateFile(ctx, repo, &scm.CommitFileOptions{
		Path:    push.FullPath(),
		Branch:  push.Branch,
		Message: push.CommitMessage,
		Content: push.Content,
	})
}

// UpdateFile 更新文件
func (f *ScmManagerFacilitator) UpdateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	if push.OldFileSHA == "" {
		return nil, gserrors.NewInvalidRequest("更新文件必须携带旧文件sha")
	}

	client, repo, err := f.clientForConfig(ctx, scope, push.Config)
	if err != nil {
		return nil, err
	}

	return client.UpdateFile(ctx, repo, &scm.CommitFileOptions{
		Path:    push.FullPath(),
		Branch:  push.Branch,
		Message: push.CommitMessage,
		Content: push.Content,
		SHA:     push.OldFileSHA,
	})
}

// DeleteFile 删除文件
func (f *ScmManagerFacilitator) DeleteFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	if push.OldFileSHA == "" {
		return nil, gserrors.NewInvalidRequest("删除文件必须携带旧文件sha")
	}

	client, repo, err := f.clientForConfig(ctx, scope, push.Config)
	if err != nil {
		return nil, err
	}

	return client.DeleteFile(ctx, repo, &scm.CommitFileOptions{
		Path:    push.FullPath(),
		Branch:  push.Branch,
		Message: push.CommitMessage,
		SHA:     push.OldFileSHA,
	})
}

// CreatePullRequest 创建PR
func (f *ScmManagerFacilitator) CreatePullRequest(ctx context.Context, scope models.Scope, req *CreatePullRequestRequest) (*scm.PullRequest, error) {
	if err := validateCreatePullRequest(req); err != nil {
		return nil, err
	}

	client, repo, err := f.clientForConfig(ctx, scope, req.Config)
	if err != nil {
		return nil, err
	}

	pr, err := client.CreatePullRequest(ctx, repo, req.Title, req.SourceBranch, req.TargetBranch)
	if err != nil {
		if gserrors.IsProviderError(err) {
			return nil, gserrors.NewPRCreationFailed(req.SourceBranch, req.TargetBranch, err)
		}
		return nil, fmt.Errorf("创建PR失败: %v", err)
	}
	return pr, nil
}
