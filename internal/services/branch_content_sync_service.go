package services

import (
	"context"
	"encoding/json"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	"gitbridge/pkg/logger"
	"gitbridge/pkg/scm"
)

// FileChangeType 文件变更类型
const FileChangeTypeAdd = "ADD"

// FileChange 待处理的文件变更
type FileChange struct {
	File       scm.FileContent `json:"file"`
	ChangeType string          `json:"change_type"`
}

// FileProcessor 文件处理器，消费分支内容并落到平台实体
type FileProcessor interface {
	ProcessFiles(ctx context.Context, scope models.Scope, changes []FileChange, branch string, cfg *models.GitSyncConfig) error
}

// ProgressPublisher 同步进度广播通道
type ProgressPublisher interface {
	PublishMessage(channel string, message interface{}) error
}

// BranchContentSyncService 新分支内容同步
//
// 推送创建新分支后，其余文件在后台异步拉取：标记SYNCING，从委托/本地
// 执行器列出根目录下全部文件，剔除触发本次同步的文件，交处理器消费后
// 标记SYNCED。任何一步失败分支停在SYNCING，等待下次触发重试。
type BranchContentSyncService struct {
	orchestrator *GitSyncOrchestrator
	branches     *BranchSyncService
	processor    FileProcessor
	progress     ProgressPublisher
}

// NewBranchContentSyncService 创建分支内容同步服务
func NewBranchContentSyncService(orchestrator *GitSyncOrchestrator, branches *BranchSyncService, processor FileProcessor, progress ProgressPublisher) *BranchContentSyncService {
	return &BranchContentSyncService{
		orchestrator: orchestrator,
		branches:     branches,
		processor:    processor,
		progress:     progress,
	}
}

// ScheduleBranchSync 调度后台分支内容同步（投递即忘）
func (s *BranchContentSyncService) ScheduleBranchSync(scope models.Scope, cfg *models.GitSyncConfig, branch, excludePath string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"account_id": scope.AccountID,
					"branch":     branch,
					"panic":      r,
				}).Error("分支内容同步异常退出")
			}
		}()

		if err := s.SyncBranchContent(context.Background(), scope, cfg, branch, excludePath); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"account_id": scope.AccountID,
				"repo_url":   cfg.RepoURL,
				"branch":     branch,
			}).WithError(err).Error("分支内容同步失败")
		}
	}()
}

// SyncBranchContent 同步分支内容
func (s *BranchContentSyncService) SyncBranchContent(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch, excludePath string) error {
	if err := s.branches.MarkBranchSyncing(scope.AccountID, cfg.RepoURL, branch); err != nil {
		return err
	}
	s.publishProgress(scope, cfg.RepoURL, branch, string(models.BranchSyncStatusSyncing))

	files, err := Dispatch(ctx, s.orchestrator, scope, func(f ScmFacilitator) ([]scm.FileContent, error) {
		return f.ListFilesOfBranch(ctx, scope, cfg, cfg.RootFolderList(), branch)
	})
	if err != nil {
		return err
	}

	changes := make([]FileChange, 0, len(files))
	for _, file := range files {
		if excludePath != "" && file.Path == excludePath {
			continue
		}
		changes = append(changes, FileChange{File: file, ChangeType: FileChangeTypeAdd})
	}

	if len(changes) > 0 {
		if err := s.processor.ProcessFiles(ctx, scope, changes, branch, cfg); err != nil {
			return err
		}
	}

	if err := s.branches.MarkBranchSynced(scope.AccountID, cfg.RepoURL, branch); err != nil {
		return err
	}
	s.publishProgress(scope, cfg.RepoURL, branch, string(models.BranchSyncStatusSynced))

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": scope.AccountID,
		"repo_url":   cfg.RepoURL,
		"branch":     branch,
		"files":      len(changes),
	}).Info("分支内容同步完成")
	return nil
}

// publishProgress 广播同步进度，失败只记日志
func (s *BranchContentSyncService) publishProgress(scope models.Scope, repoURL, branch, status string) {
	if s.progress == nil {
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"account_id": scope.AccountID,
		"repo_url":   repoURL,
		"branch":     branch,
		"status":     status,
	})
	channel := config.GetConfig().GitSync.ProgressChannel
	if err := s.progress.PublishMessage(channel, string(payload)); err != nil {
		logger.GetLogger().WithError(err).Warn("同步进度广播失败")
	}
}
