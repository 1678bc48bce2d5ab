package models

import (
	"strings"
)

// GitSyncConfig 项目与Git仓库的同步映射
//
// ConnectorsRepo/ConnectorsBranch 是连接器定义的存储上下文提示：当连接器
// 在默认上下文中查不到时，用该提示重试解析。
type GitSyncConfig struct {
	BaseModel
	AccountID string `gorm:"size:64;not null;uniqueIndex:idx_scope_sync_config" json:"account_id"`
	OrgID     string `gorm:"size:64;default:'';uniqueIndex:idx_scope_sync_config" json:"org_id,omitempty"`
	ProjectID string `gorm:"size:64;default:'';uniqueIndex:idx_scope_sync_config" json:"project_id,omitempty"`

	Identifier string `gorm:"size:128;not null;uniqueIndex:idx_scope_sync_config" json:"identifier"`
	Name       string `gorm:"size:100" json:"name"`

	// Git配置
	GitConnectorRef string `gorm:"size:128;not null" json:"git_connector_ref"`
	RepoURL         string `gorm:"size:500;not null" json:"repo_url"`
	DefaultBranch   string `gorm:"size:255;default:'main'" json:"default_branch"`
	RootFolders     string `gorm:"size:2000" json:"root_folders"` // 逗号分隔的根目录列表

	// 连接器解析提示
	ConnectorsRepo   string `gorm:"size:500" json:"connectors_repo,omitempty"`
	ConnectorsBranch string `gorm:"size:255" json:"connectors_branch,omitempty"`

	// 定时全量同步
	ResyncEnabled bool   `gorm:"default:false" json:"resync_enabled"`
	ResyncCron    string `gorm:"size:50" json:"resync_cron,omitempty"` // cron表达式

	Status string `gorm:"size:20;default:'active'" json:"status"`
}

// TableName 指定表名
func (GitSyncConfig) TableName() string {
	return "git_sync_configs"
}

// GetScope 返回配置所属作用域
func (c *GitSyncConfig) GetScope() Scope {
	return Scope{AccountID: c.AccountID, OrgID: c.OrgID, ProjectID: c.ProjectID}
}

// RootFolderList 解析根目录列表
func (c *GitSyncConfig) RootFolderList() []string {
	if c.RootFolders == "" {
		return nil
	}
	parts := strings.Split(c.RootFolders, ",")
	folders := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			folders = append(folders, trimmed)
		}
	}
	return folders
}
