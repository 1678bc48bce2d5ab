package models

import (
	"gorm.io/datatypes"
)

// CommitDirection 同步方向
type CommitDirection string

const (
	DirectionHarnessToGit CommitDirection = "HARNESS_TO_GIT" // 平台变更推送到Git
	DirectionGitToHarness CommitDirection = "GIT_TO_HARNESS" // Git变更回流到平台
)

// CommitStatus 提交处理状态
type CommitStatus string

const (
	CommitStatusCompleted  CommitStatus = "COMPLETED"
	CommitStatusProcessing CommitStatus = "PROCESSING"
	CommitStatusFailed     CommitStatus = "FAILED"
)

// 文件处理统计键名
const (
	SummaryKeySuccessCount = "success_count"
	SummaryKeyFailureCount = "failure_count"
	SummaryKeyTotalCount   = "total_count"
)

// GitCommit 提交同步记录
//
// 以 (commit_id, repo_url, direction) 为键做upsert：推送完成记一条
// HARNESS_TO_GIT记录；git侧批量回流则随文件逐个处理不断累积
// FileProcessingSummary，同一条记录被多次细化，方向不会被改写。
type GitCommit struct {
	BaseModel
	AccountID  string          `gorm:"size:64;not null;index" json:"account_id"`
	CommitID   string          `gorm:"size:64;not null;uniqueIndex:idx_commit_repo_direction" json:"commit_id"`
	RepoURL    string          `gorm:"size:500;not null;uniqueIndex:idx_commit_repo_direction" json:"repo_url"`
	BranchName string          `gorm:"size:255;not null" json:"branch_name"`
	Direction  CommitDirection `gorm:"size:20;not null;uniqueIndex:idx_commit_repo_direction" json:"direction"`
	Status     CommitStatus    `gorm:"size:20;not null;default:'COMPLETED'" json:"status"`

	CommitMessage string `gorm:"size:1000" json:"commit_message,omitempty"`

	// 文件处理统计（success_count/failure_count/total_count）
	FileProcessingSummary datatypes.JSONMap `json:"file_processing_summary,omitempty"`
}

// TableName 指定表名
func (GitCommit) TableName() string {
	return "git_commits"
}

// SummaryCount 读取统计值，缺失按0处理
func (c *GitCommit) SummaryCount(key string) int64 {
	if c.FileProcessingSummary == nil {
		return 0
	}
	switch v := c.FileProcessingSummary[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
