package models

// BranchSyncStatus 分支同步状态
type BranchSyncStatus string

const (
	BranchSyncStatusUnsynced BranchSyncStatus = "UNSYNCED" // 已发现，内容尚未拉取
	BranchSyncStatusSyncing  BranchSyncStatus = "SYNCING"  // 内容拉取进行中
	BranchSyncStatusSynced   BranchSyncStatus = "SYNCED"   // 内容已全部拉取并交付处理
)

// GitBranch 分支同步记录
//
// 首次有推送触及某个分支时创建，状态机 UNSYNCED -> SYNCING -> SYNCED，
// 不会自动回退；记录只做软生命周期管理，不自动删除。并发创建由唯一索引
// 兜底，重复插入按"已存在"处理。
type GitBranch struct {
	BaseModel
	AccountID  string           `gorm:"size:64;not null;uniqueIndex:idx_account_repo_branch" json:"account_id"`
	RepoURL    string           `gorm:"size:500;not null;uniqueIndex:idx_account_repo_branch" json:"repo_url"`
	BranchName string           `gorm:"size:255;not null;uniqueIndex:idx_account_repo_branch" json:"branch_name"`
	SyncStatus BranchSyncStatus `gorm:"size:20;not null;default:'UNSYNCED'" json:"sync_status"`
}

// TableName 指定表名
func (GitBranch) TableName() string {
	return "git_branches"
}
