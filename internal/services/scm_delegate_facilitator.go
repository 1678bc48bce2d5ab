package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/queue"
	"gitbridge/pkg/scm"
)

// TaskTransport 代理任务传输通道
type TaskTransport interface {
	SubmitAndWait(ctx context.Context, msg *queue.ScmTaskMessage, timeout time.Duration) ([]byte, error)
}

// ScmDelegateFacilitator 远程执行器
//
// 操作打包为任务投递到账户级队列，由客户网络内的代理执行后回传结果。
// 连接器凭证保持密文下发，解密由代理在其网络内完成。
type ScmDelegateFacilitator struct {
	resolver  *ConnectorResolverService
	transport TaskTransport
	timeout   time.Duration
}

// NewScmDelegateFacilitator 创建远程执行器
func NewScmDelegateFacilitator(resolver *ConnectorResolverService, transport TaskTransport) *ScmDelegateFacilitator {
	timeout := config.GetConfig().GitSync.DelegateTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ScmDelegateFacilitator{resolver: resolver, transport: transport, timeout: timeout}
}

// submit 投递任务并解析回传信封
func (f *ScmDelegateFacilitator) submit(ctx context.Context, scope models.Scope, taskType string, params *scmTaskParams) (*taskReply, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, gserrors.NewRemoteExecutionFailed("任务参数序列化失败", err)
	}

	msg := &queue.ScmTaskMessage{
		TaskID:    uuid.New().String(),
		TaskType:  taskType,
		AccountID: scope.AccountID,
		OrgID:     scope.OrgID,
		ProjectID: scope.ProjectID,
		Params:    raw,
		Timeout:   int(f.timeout.Seconds()),
		Created:   time.Now().Unix(),
	}

	data, err := f.transport.SubmitAndWait(ctx, msg, f.timeout)
	if err != nil {
		return nil, gserrors.NewRemoteExecutionFailed("代理任务执行失败", err)
	}

	var reply taskReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, gserrors.NewUnexpectedRemoteResponse("结果反序列化失败: " + err.Error())
	}

	switch reply.Status {
	case taskStatusSuccess:
		return &reply, nil
	case taskStatusFailed:
		if reply.Error == nil {
			return nil, gserrors.NewUnexpectedRemoteResponse("失败结果缺少错误信息")
		}
		return nil, gserrors.NewProviderError(reply.Error.StatusCode, reply.Error.Message)
	default:
		return nil, gserrors.NewUnexpectedRemoteResponse("未知的结果状态: " + reply.Status)
	}
}

// paramsFor 解析连接器并构造任务参数，凭证不解密
func (f *ScmDelegateFacilitator) paramsFor(scope models.Scope, cfg *models.GitSyncConfig) (*scmTaskParams, error) {
	connector, err := f.resolver.ResolveForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &scmTaskParams{
		Connector: newConnectorPayload(connector),
		RepoURL:   cfg.RepoURL,
	}, nil
}

// ListBranches 列出仓库分支
func (f *ScmDelegateFacilitator) ListBranches(ctx context.Context, scope models.Scope, connectorRef, repoURL string) ([]string, error) {
	connector, err := f.resolver.Resolve(scope, connectorRef, "", "")
	if err != nil {
		return nil, err
	}

	reply, err := f.submit(ctx, scope, TaskListBranches, &scmTaskParams{
		Connector: newConnectorPayload(connector),
		RepoURL:   repoURL,
	})
	if err != nil {
		return nil, err
	}
	return reply.Branches, nil
}

// GetFileContent 获取单文件内容
func (f *ScmDelegateFacilitator) GetFileContent(ctx context.Context, scope models.Scope, req *GetFileContentRequest) (*scm.FileContent, error) {
	if err := validateGetFileContentRequest(req); err != nil {
		return nil, err
	}

	params, err := f.paramsFor(scope, req.Config)
	if err != nil {
		return nil, err
	}
	params.FilePath = req.FilePath
	params.Branch = req.Branch
	params.CommitID = req.CommitID

	reply, err := f.submit(ctx, scope, TaskGetFileContent, params)
	if err != nil {
		return nil, err
	}
	if reply.File == nil {
		return nil, gserrors.NewUnexpectedRemoteResponse("成功结果缺少文件内容")
	}
	return reply.File, nil
}

// ListFilesOfBranch 列出分支上指定根目录下的全部文件
func (f *ScmDelegateFacilitator) ListFilesOfBranch(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, folders []string, branch string) ([]scm.FileContent, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.Folders = folders
	params.Branch = branch

	reply, err := f.submit(ctx, scope, TaskListFilesOfBranch, params)
	if err != nil {
		return nil, err
	}
	return reply.Files, nil
}

// ListFilesByPaths 按路径列表批量获取分支上的文件
func (f *ScmDelegateFacilitator) ListFilesByPaths(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, branch string) ([]scm.FileContent, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.Paths = paths
	params.Branch = branch

	reply, err := f.submit(ctx, scope, TaskListFilesByPaths, params)
	if err != nil {
		return nil, err
	}
	return reply.Files, nil
}

// ListFilesByCommit 按路径列表批量获取指定提交上的文件
func (f *ScmDelegateFacilitator) ListFilesByCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, paths []string, commitID string) ([]scm.FileContent, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.Paths = paths
	params.CommitID = commitID

	reply, err := f.submit(ctx, scope, TaskListFilesByCommit, params)
	if err != nil {
		return nil, err
	}
	return reply.Files, nil
}

// DiffCommits 比较两个提交间的文件差异
func (f *ScmDelegateFacilitator) DiffCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, baseCommit, headCommit string) ([]scm.FileDiff, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.BaseCommit = baseCommit
	params.HeadCommit = headCommit

	reply, err := f.submit(ctx, scope, TaskDiffCommits, params)
	if err != nil {
		return nil, err
	}
	return reply.Diffs, nil
}

// ListCommits 分页列出分支提交
func (f *ScmDelegateFacilitator) ListCommits(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string, page, pageSize int) ([]scm.Commit, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.Branch = branch
	params.Page = page
	params.PageSize = pageSize

	reply, err := f.submit(ctx, scope, TaskListCommits, params)
	if err != nil {
		return nil, err
	}
	return reply.Commits, nil
}

// LatestCommit 获取分支最新提交
func (f *ScmDelegateFacilitator) LatestCommit(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string) (*scm.Commit, error) {
	params, err := f.paramsFor(scope, cfg)
	if err != nil {
		return nil, err
	}
	params.Branch = branch

	reply, err := f.submit(ctx, scope, TaskLatestCommit, params)
	if err != nil {
		return nil, err
	}
	if reply.Commit == nil {
		return nil, gserrors.NewUnexpectedRemoteResponse("成功结果缺少提交信息")
	}
	return reply.Commit, nil
}

// pushParams 构造文件变更任务参数
func (f *ScmDelegateFacilitator) pushParams(scope models.Scope, push *PushInfo) (*scmTaskParams, error) {
	params, err := f.paramsFor(scope, push.Config)
	if err != nil {
		return nil, err
	}
	params.FilePath = push.FullPath()
	params.Branch = push.Branch
	params.BaseBranch = push.BaseBranch
	params.Message = push.CommitMessage
	params.Content = push.Content
	params.OldFileSHA = push.OldFileSHA
	params.NewBranch = push.IsNewBranch
	return params, nil
}

// CreateFile 创建文件
func (f *ScmDelegateFacilitator) CreateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	return f.pushTask(ctx, scope, TaskCreateFile, push)
}

// UpdateFile 更新文件
func (f *ScmDelegateFacilitator) UpdateFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	if push.OldFileSHA == "" {
		return nil, gserrors.NewInvalidRequest("更新文件必须携带旧文件sha")
	}
	return f.pushTask(ctx, scope, TaskUpdateFile, push)
}

// DeleteFile 删除文件
func (f *ScmDelegateFacilitator) DeleteFile(ctx context.Context, scope models.Scope, push *PushInfo) (*scm.CommitResult, error) {
	if push.OldFileSHA == "" {
		return nil, gserrors.NewInvalidRequest("删除文件必须携带旧文件sha")
	}
	return f.pushTask(ctx, scope, TaskDeleteFile, push)
}

func (f *ScmDelegateFacilitator) pushTask(ctx context.Context, scope models.Scope, taskType string, push *PushInfo) (*scm.CommitResult, error) {
	params, err := f.pushParams(scope, push)
	if err != nil {
		return nil, err
	}

	reply, err := f.submit(ctx, scope, taskType, params)
	if err != nil {
		return nil, err
	}
	if reply.Result == nil {
		return nil, gserrors.NewUnexpectedRemoteResponse("成功结果缺少提交回执")
	}
	return reply.Result, nil
}

// CreatePullRequest 创建PR
func (f *ScmDelegateFacilitator) CreatePullRequest(ctx context.Context, scope models.Scope, req *CreatePullRequestRequest) (*scm.PullRequest, error) {
	if err := validateCreatePullRequest(req); err != nil {
		return nil, err
	}

	params, err := f.paramsFor(scope, req.Config)
	if err != nil {
		return nil, err
	}
	params.Title = req.Title
	params.Source = req.SourceBranch
	params.Target = req.TargetBranch

	reply, err := f.submit(ctx, scope, TaskCreatePR, params)
	if err != nil {
		if gserrors.IsProviderError(err) {
			return nil, gserrors.NewPRCreationFailed(req.SourceBranch, req.TargetBranch, err)
		}
		return nil, err
	}
	if reply.PR == nil {
		return nil, gserrors.NewUnexpectedRemoteResponse("成功结果缺少PR信息")
	}
	return reply.PR, nil
}
