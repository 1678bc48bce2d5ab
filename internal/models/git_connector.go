package models

// ConnectorType 连接器类型
type ConnectorType string

const (
	ConnectorTypeGitHub ConnectorType = "github" // GitHub/GitHub企业版
	ConnectorTypeGitLab ConnectorType = "gitlab" // GitLab
	ConnectorTypeGit    ConnectorType = "git"    // 通用Git（仅限委托端执行）
	ConnectorTypeSSH    ConnectorType = "ssh"    // 主机SSH连接器，非Git类型
	ConnectorTypeAPI    ConnectorType = "api"    // 通用API连接器，非Git类型
)

// ConnectorAuthType 连接器认证方式
type ConnectorAuthType string

const (
	ConnectorAuthToken    ConnectorAuthType = "token"    // 个人访问令牌
	ConnectorAuthPassword ConnectorAuthType = "password" // 用户名密码
	ConnectorAuthSSHKey   ConnectorAuthType = "ssh_key"  // SSH密钥（仅限委托端执行）
)

// GitConnector 连接器模型
//
// 敏感字段加密存储（AES-GCM，base64编码）。连接器定义本身也可能被同步到
// Git仓库中，StoreRepo/StoreBranch 记录该定义所在的仓库/分支上下文，
// 为空表示存放在默认上下文。
type GitConnector struct {
	BaseModel
	AccountID string `gorm:"size:64;not null;uniqueIndex:idx_scope_connector_ctx" json:"account_id"`
	OrgID     string `gorm:"size:64;default:'';uniqueIndex:idx_scope_connector_ctx" json:"org_id,omitempty"`
	ProjectID string `gorm:"size:64;default:'';uniqueIndex:idx_scope_connector_ctx" json:"project_id,omitempty"`

	Identifier  string        `gorm:"size:128;not null;uniqueIndex:idx_scope_connector_ctx" json:"identifier"`
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description string        `gorm:"size:500" json:"description"`
	Type        ConnectorType `gorm:"size:20;not null" json:"type"`

	// Git配置
	URL      string            `gorm:"size:500" json:"url"`
	AuthType ConnectorAuthType `gorm:"size:20" json:"auth_type"`
	Username string            `gorm:"size:100" json:"username,omitempty"`

	// 凭证内容（加密存储）
	Token      string `gorm:"size:2000" json:"-"`
	Password   string `gorm:"size:500" json:"-"`
	PrivateKey string `gorm:"type:text" json:"-"`
	Passphrase string `gorm:"size:500" json:"-"`

	// 执行路由：显式覆盖作用域级设置；为空表示继承
	ExecuteOnDelegate *bool `json:"execute_on_delegate,omitempty"`

	// 定义所在的存储上下文
	StoreRepo   string `gorm:"size:500;default:'';uniqueIndex:idx_scope_connector_ctx" json:"store_repo,omitempty"`
	StoreBranch string `gorm:"size:255;default:'';uniqueIndex:idx_scope_connector_ctx" json:"store_branch,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// TableName 指定表名
func (GitConnector) TableName() string {
	return "git_connectors"
}

// IsGitType 是否为Git类型连接器
func (c *GitConnector) IsGitType() bool {
	switch c.Type {
	case ConnectorTypeGitHub, ConnectorTypeGitLab, ConnectorTypeGit:
		return true
	}
	return false
}

// GetScope 返回连接器所属作用域
func (c *GitConnector) GetScope() Scope {
	return Scope{AccountID: c.AccountID, OrgID: c.OrgID, ProjectID: c.ProjectID}
}
