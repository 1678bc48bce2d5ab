package models

// GitSyncSettings 作用域级执行路由设置
//
// 记录缺失时按"委托端执行"处理：多数外部Git主机无法从控制面直连，
// 这是保守默认值。
type GitSyncSettings struct {
	BaseModel
	AccountID string `gorm:"size:64;not null;uniqueIndex:idx_scope_sync_settings" json:"account_id"`
	OrgID     string `gorm:"size:64;default:'';uniqueIndex:idx_scope_sync_settings" json:"org_id,omitempty"`
	ProjectID string `gorm:"size:64;default:'';uniqueIndex:idx_scope_sync_settings" json:"project_id,omitempty"`

	ExecuteOnDelegate bool `gorm:"not null;default:true" json:"execute_on_delegate"`
}

// TableName 指定表名
func (GitSyncSettings) TableName() string {
	return "git_sync_settings"
}
