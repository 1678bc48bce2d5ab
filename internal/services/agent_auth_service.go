package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
	"gitbridge/pkg/jwt"
	"gitbridge/pkg/logger"
)

// AgentAuthService 委托端注册与认证
type AgentAuthService struct {
	db *gorm.DB
}

// NewAgentAuthService 创建委托端认证服务
func NewAgentAuthService(db *gorm.DB) *AgentAuthService {
	return &AgentAuthService{db: db}
}

// RegisterAgent 注册委托端，返回仅此一次下发的访问密钥
func (s *AgentAuthService) RegisterAgent(accountID, name, hostname, version string) (*models.DelegateAgent, string, error) {
	if accountID == "" {
		return nil, "", gserrors.NewInvalidRequest("注册委托端必须携带账户ID")
	}

	accessKey := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("生成访问密钥哈希失败: %v", err)
	}

	agent := &models.DelegateAgent{
		AccountID:     accountID,
		AgentID:       uuid.New().String(),
		Name:          name,
		Hostname:      hostname,
		Version:       version,
		AccessKeyHash: string(hash),
		Status:        models.DelegateAgentStatusOffline,
	}
	if err := s.db.Create(agent).Error; err != nil {
		return nil, "", fmt.Errorf("创建委托端记录失败: %v", err)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": accountID,
		"agent_id":   agent.AgentID,
	}).Info("委托端注册成功")

	return agent, accessKey, nil
}

// Authenticate 校验访问密钥并签发JWT
func (s *AgentAuthService) Authenticate(agentID, accessKey string) (string, error) {
	var agent models.DelegateAgent
	err := s.db.Where("agent_id = ?", agentID).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("委托端不存在")
		}
		return "", fmt.Errorf("查询委托端失败: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(agent.AccessKeyHash), []byte(accessKey)); err != nil {
		return "", fmt.Errorf("访问密钥无效")
	}

	token, err := jwt.GetJWTManager().GenerateToken(agent.AgentID, agent.AccountID, agent.Name, false)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %v", err)
	}
	return token, nil
}

// Heartbeat 更新委托端心跳
func (s *AgentAuthService) Heartbeat(agentID string) error {
	now := time.Now()
	result := s.db.Model(&models.DelegateAgent{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"status":            models.DelegateAgentStatusOnline,
			"last_heartbeat_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("更新心跳失败: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("委托端不存在")
	}
	return nil
}

// ListAgents 列出账户下的委托端
func (s *AgentAuthService) ListAgents(accountID string) ([]models.DelegateAgent, error) {
	var agents []models.DelegateAgent
	err := s.db.Where("account_id = ?", accountID).Order("created_at DESC").Find(&agents).Error
	if err != nil {
		return nil, fmt.Errorf("查询委托端列表失败: %v", err)
	}
	return agents, nil
}

// MarkStaleOffline 将心跳超时的委托端标记为离线
func (s *AgentAuthService) MarkStaleOffline(timeout time.Duration) error {
	deadline := time.Now().Add(-timeout)
	return s.db.Model(&models.DelegateAgent{}).
		Where("status = ? AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)",
			models.DelegateAgentStatusOnline, deadline).
		Update("status", models.DelegateAgentStatusOffline).Error
}
