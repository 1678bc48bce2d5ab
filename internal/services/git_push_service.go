package services

import (
	"context"
	"fmt"

	"gitbridge/internal/models"
	"gitbridge/pkg/errors"
	"gitbridge/pkg/scm"
)

// BranchContentScheduler 新分支内容同步的调度入口
type BranchContentScheduler interface {
	ScheduleBranchSync(scope models.Scope, cfg *models.GitSyncConfig, branch, excludePath string)
}

// PushResult 推送结果
type PushResult struct {
	CommitID    string `json:"commit_id"`
	BlobID      string `json:"blob_id"`
	Branch      string `json:"branch"`
	IsNewBranch bool   `json:"is_new_branch"`
}

// GitPushService 平台到Git的推送工作流
//
// 单次推送：经编排器分发文件变更，落分支记录（幂等），写
// HARNESS_TO_GIT提交记录，新分支再调度后台内容同步并剔除刚推送的文件。
type GitPushService struct {
	orchestrator *GitSyncOrchestrator
	branches     *BranchSyncService
	contentSync  BranchContentScheduler
}

// NewGitPushService 创建推送服务
func NewGitPushService(orchestrator *GitSyncOrchestrator, branches *BranchSyncService, contentSync BranchContentScheduler) *GitPushService {
	return &GitPushService{
		orchestrator: orchestrator,
		branches:     branches,
		contentSync:  contentSync,
	}
}

// Push 执行推送
func (s *GitPushService) Push(ctx context.Context, scope models.Scope, action PushAction, push *PushInfo) (*PushResult, error) {
	if push.Config == nil {
		return nil, errors.NewInvalidRequest("推送必须携带同步配置")
	}

	result, err := Dispatch(ctx, s.orchestrator, scope, func(f ScmFacilitator) (*scm.CommitResult, error) {
		switch action {
		case PushActionCreate:
			return f.CreateFile(ctx, scope, push)
		case PushActionUpdate:
			return f.UpdateFile(ctx, scope, push)
		case PushActionDelete:
			return f.DeleteFile(ctx, scope, push)
		default:
			return nil, errors.NewInvalidRequest("未知的推送动作: %s", action)
		}
	})
	if err != nil {
		return nil, err
	}

	repoURL := push.Config.RepoURL

	// 分支记录和提交记录落库失败不能向调用方确认成功
	if _, _, err := s.branches.LookupOrCreateBranch(scope.AccountID, repoURL, push.Branch); err != nil {
		return nil, fmt.Errorf("推送后落分支记录失败: %v", err)
	}

	if err := s.branches.UpsertCommit(&models.GitCommit{
		AccountID:     scope.AccountID,
		CommitID:      result.CommitID,
		RepoURL:       repoURL,
		BranchName:    push.Branch,
		Direction:     models.DirectionHarnessToGit,
		Status:        models.CommitStatusCompleted,
		CommitMessage: push.CommitMessage,
	}, map[string]int64{
		models.SummaryKeySuccessCount: 1,
		models.SummaryKeyTotalCount:   1,
	}); err != nil {
		return nil, fmt.Errorf("推送后落提交记录失败: %v", err)
	}

	if push.IsNewBranch && s.contentSync != nil {
		s.contentSync.ScheduleBranchSync(scope, push.Config, push.Branch, push.FullPath())
	}

	return &PushResult{
		CommitID:    result.CommitID,
		BlobID:      result.BlobID,
		Branch:      push.Branch,
		IsNewBranch: push.IsNewBranch,
	}, nil
}
