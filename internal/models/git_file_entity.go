package models

// GitFileEntity 从Git同步回平台的文件实体
//
// 分支内容同步和全量同步的落点：每个被处理的文件在对应分支上有一条
// 记录，内容随同步更新。
type GitFileEntity struct {
	BaseModel
	AccountID  string `gorm:"size:64;not null;uniqueIndex:idx_file_entity" json:"account_id"`
	RepoURL    string `gorm:"size:500;not null;uniqueIndex:idx_file_entity" json:"repo_url"`
	BranchName string `gorm:"size:255;not null;uniqueIndex:idx_file_entity" json:"branch_name"`
	FilePath   string `gorm:"size:1000;not null;uniqueIndex:idx_file_entity" json:"file_path"`

	BlobID  string `gorm:"size:64" json:"blob_id"`
	Content string `gorm:"type:text" json:"content"`
}

// TableName 指定表名
func (GitFileEntity) TableName() string {
	return "git_file_entities"
}
