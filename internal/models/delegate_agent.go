package models

import (
	"time"
)

// DelegateAgentStatus 委托端状态
const (
	DelegateAgentStatusOnline  = "online"
	DelegateAgentStatusOffline = "offline"
)

// DelegateAgent 客户网络内的委托执行端
//
// 委托端通过访问密钥注册并周期性心跳；访问密钥只存bcrypt哈希。
type DelegateAgent struct {
	BaseModel
	AccountID string `gorm:"size:64;not null;index" json:"account_id"`
	AgentID   string `gorm:"size:64;not null;uniqueIndex" json:"agent_id"`
	Name      string `gorm:"size:100" json:"name"`
	Hostname  string `gorm:"size:255" json:"hostname"`
	Version   string `gorm:"size:50" json:"version"`

	AccessKeyHash string `gorm:"size:100;not null" json:"-"`

	Status          string     `gorm:"size:20;default:'offline'" json:"status"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
}

// TableName 指定表名
func (DelegateAgent) TableName() string {
	return "delegate_agents"
}
