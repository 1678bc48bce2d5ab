package models

import "fmt"

// Scope 账户/组织/项目三级租户边界
//
// OrgID/ProjectID 可为空，为空时表示账户级作用域。作为查找键在各服务间
// 按值传递，不可变。
type Scope struct {
	AccountID string `json:"account_id"`
	OrgID     string `json:"org_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// NewScope 创建作用域
func NewScope(accountID, orgID, projectID string) Scope {
	return Scope{AccountID: accountID, OrgID: orgID, ProjectID: projectID}
}

// String 返回作用域的可读标识
func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.AccountID, s.OrgID, s.ProjectID)
}

// IsAccountLevel 是否账户级作用域
func (s Scope) IsAccountLevel() bool {
	return s.OrgID == "" && s.ProjectID == ""
}
