package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitbridge/internal/models"
	"gitbridge/pkg/logger"
)

// ErrBranchExists 分支记录已存在（并发创建时由唯一索引兜底）
var ErrBranchExists = errors.New("分支记录已存在")

// GitBranchStore 分支同步记录存储
type GitBranchStore interface {
	Get(accountID, repoURL, branchName string) (*models.GitBranch, error)
	Create(branch *models.GitBranch) error
	UpdateStatus(accountID, repoURL, branchName string, status models.BranchSyncStatus) error
}

// GitCommitStore 提交同步记录存储
type GitCommitStore interface {
	Get(commitID, repoURL string, direction models.CommitDirection) (*models.GitCommit, error)
	Save(commit *models.GitCommit) error
}

type gormBranchStore struct {
	db *gorm.DB
}

// NewGormBranchStore 创建gorm分支存储
func NewGormBranchStore(db *gorm.DB) GitBranchStore {
	return &gormBranchStore{db: db}
}

func (s *gormBranchStore) Get(accountID, repoURL, branchName string) (*models.GitBranch, error) {
	var branch models.GitBranch
	err := s.db.Where("account_id = ? AND repo_url = ? AND branch_name = ?",
		accountID, repoURL, branchName).First(&branch).Error
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (s *gormBranchStore) Create(branch *models.GitBranch) error {
	err := s.db.Create(branch).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrBranchExists
	}
	return err
}

func (s *gormBranchStore) UpdateStatus(accountID, repoURL, branchName string, status models.BranchSyncStatus) error {
	return s.db.Model(&models.GitBranch{}).
		Where("account_id = ? AND repo_url = ? AND branch_name = ?", accountID, repoURL, branchName).
		Update("sync_status", status).Error
}

type gormCommitStore struct {
	db *gorm.DB
}

// NewGormCommitStore 创建gorm提交存储
func NewGormCommitStore(db *gorm.DB) GitCommitStore {
	return &gormCommitStore{db: db}
}

func (s *gormCommitStore) Get(commitID, repoURL string, direction models.CommitDirection) (*models.GitCommit, error) {
	var commit models.GitCommit
	err := s.db.Where("commit_id = ? AND repo_url = ? AND direction = ?",
		commitID, repoURL, direction).First(&commit).Error
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

func (s *gormCommitStore) Save(commit *models.GitCommit) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "commit_id"}, {Name: "repo_url"}, {Name: "direction"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"branch_name", "status", "commit_message", "file_processing_summary", "updated_at",
		}),
	}).Create(commit).Error
}

// isDuplicateKeyError 识别唯一索引冲突
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// BranchSyncService 分支/提交同步状态管理
type BranchSyncService struct {
	branches GitBranchStore
	commits  GitCommitStore
}

// NewBranchSyncService 创建分支同步服务
func NewBranchSyncService(branches GitBranchStore, commits GitCommitStore) *BranchSyncService {
	return &BranchSyncService{branches: branches, commits: commits}
}

// LookupOrCreateBranch 查找或创建分支记录（幂等）
//
// 已存在的记录原样返回，不会重置其同步状态；并发创建冲突时回读既有记录。
// 返回值第二项表示本次是否新建。
func (s *BranchSyncService) LookupOrCreateBranch(accountID, repoURL, branchName string) (*models.GitBranch, bool, error) {
	existing, err := s.branches.Get(accountID, repoURL, branchName)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("查询分支记录失败: %v", err)
	}

	branch := &models.GitBranch{
		AccountID:  accountID,
		RepoURL:    repoURL,
		BranchName: branchName,
		SyncStatus: models.BranchSyncStatusUnsynced,
	}
	if err := s.branches.Create(branch); err != nil {
		if errors.Is(err, ErrBranchExists) {
			existing, err := s.branches.Get(accountID, repoURL, branchName)
			if err != nil {
				return nil, false, fmt.Errorf("回读分支记录失败: %v", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("创建分支记录失败: %v", err)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": accountID,
		"repo_url":   repoURL,
		"branch":     branchName,
	}).Info("创建分支同步记录")

	return branch, true, nil
}

// MarkBranchSyncing 标记分支进入同步中
func (s *BranchSyncService) MarkBranchSyncing(accountID, repoURL, branchName string) error {
	return s.branches.UpdateStatus(accountID, repoURL, branchName, models.BranchSyncStatusSyncing)
}

// MarkBranchSynced 标记分支同步完成
func (s *BranchSyncService) MarkBranchSynced(accountID, repoURL, branchName string) error {
	return s.branches.UpdateStatus(accountID, repoURL, branchName, models.BranchSyncStatusSynced)
}

// GetBranch 查询分支记录
func (s *BranchSyncService) GetBranch(accountID, repoURL, branchName string) (*models.GitBranch, error) {
	return s.branches.Get(accountID, repoURL, branchName)
}

// UpsertCommit 写入或细化提交记录
//
// 以 (commit_id, repo_url, direction) 为键：首次写入建立记录，后续调用
// 将 summary 中的计数累加到既有统计上，方向与提交ID不变。
func (s *BranchSyncService) UpsertCommit(commit *models.GitCommit, summary map[string]int64) error {
	existing, err := s.commits.Get(commit.CommitID, commit.RepoURL, commit.Direction)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询提交记录失败: %v", err)
	}

	merged := datatypes.JSONMap{}
	if existing != nil {
		commit.ID = existing.ID
		for k := range existing.FileProcessingSummary {
			merged[k] = existing.SummaryCount(k)
		}
	}
	for k, v := range summary {
		prev, _ := merged[k].(int64)
		merged[k] = prev + v
	}
	commit.FileProcessingSummary = merged

	if commit.Status == "" {
		commit.Status = models.CommitStatusCompleted
	}
	return s.commits.Save(commit)
}

// RecordFileProcessed 累积git回流提交的单文件处理结果
func (s *BranchSyncService) RecordFileProcessed(accountID, repoURL, branchName, commitID, message string, ok bool) error {
	summary := map[string]int64{models.SummaryKeyTotalCount: 1}
	if ok {
		summary[models.SummaryKeySuccessCount] = 1
	} else {
		summary[models.SummaryKeyFailureCount] = 1
	}

	return s.UpsertCommit(&models.GitCommit{
		AccountID:     accountID,
		CommitID:      commitID,
		RepoURL:       repoURL,
		BranchName:    branchName,
		Direction:     models.DirectionGitToHarness,
		Status:        models.CommitStatusCompleted,
		CommitMessage: message,
	}, summary)
}
