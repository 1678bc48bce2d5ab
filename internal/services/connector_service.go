package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
)

// ConnectorService 连接器管理
//
// 写入目录前加密全部敏感字段；读取接口一律返回密文记录，明文只在
// 执行器内部短暂存在。
type ConnectorService struct {
	db *gorm.DB
}

// NewConnectorService 创建连接器服务
func NewConnectorService(db *gorm.DB) *ConnectorService {
	return &ConnectorService{db: db}
}

// Create 创建连接器
func (s *ConnectorService) Create(connector *models.GitConnector) error {
	if connector.Identifier == "" || connector.Type == "" {
		return gserrors.NewInvalidRequest("连接器必须携带标识和类型")
	}

	if err := EncryptConnectorFields(connector); err != nil {
		return fmt.Errorf("加密连接器凭证失败: %v", err)
	}

	if err := s.db.Create(connector).Error; err != nil {
		if isDuplicateKeyError(err) {
			return gserrors.NewInvalidRequest("连接器已存在: %s", connector.Identifier)
		}
		return fmt.Errorf("创建连接器失败: %v", err)
	}
	return nil
}

// Get 按作用域和标识查询连接器（凭证保持密文）
func (s *ConnectorService) Get(scope models.Scope, identifier string) (*models.GitConnector, error) {
	var connector models.GitConnector
	err := s.db.Where("account_id = ? AND org_id = ? AND project_id = ? AND identifier = ? AND store_repo = '' AND store_branch = ''",
		scope.AccountID, scope.OrgID, scope.ProjectID, identifier).First(&connector).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gserrors.NewConnectorNotFound(identifier)
		}
		return nil, fmt.Errorf("查询连接器失败: %v", err)
	}
	return &connector, nil
}

// List 列出作用域下的连接器
func (s *ConnectorService) List(scope models.Scope, page, pageSize int) ([]models.GitConnector, int64, error) {
	query := s.db.Model(&models.GitConnector{}).
		Where("account_id = ? AND org_id = ? AND project_id = ?",
			scope.AccountID, scope.OrgID, scope.ProjectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计连接器失败: %v", err)
	}

	var connectors []models.GitConnector
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&connectors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询连接器失败: %v", err)
	}
	return connectors, total, nil
}

// UpdateCredentials 轮换连接器凭证
func (s *ConnectorService) UpdateCredentials(scope models.Scope, identifier string, creds *models.GitConnector) error {
	connector, err := s.Get(scope, identifier)
	if err != nil {
		return err
	}

	if err := EncryptConnectorFields(creds); err != nil {
		return fmt.Errorf("加密连接器凭证失败: %v", err)
	}

	updates := map[string]interface{}{}
	if creds.Token != "" {
		updates["token"] = creds.Token
	}
	if creds.Password != "" {
		updates["password"] = creds.Password
	}
	if creds.PrivateKey != "" {
		updates["private_key"] = creds.PrivateKey
	}
	if creds.Passphrase != "" {
		updates["passphrase"] = creds.Passphrase
	}
	if len(updates) == 0 {
		return gserrors.NewInvalidRequest("未提供任何凭证字段")
	}

	return s.db.Model(connector).Updates(updates).Error
}

// SetExecutionOverride 设置连接器级执行路由覆盖（nil表示继承作用域设置）
func (s *ConnectorService) SetExecutionOverride(scope models.Scope, identifier string, onDelegate *bool) error {
	connector, err := s.Get(scope, identifier)
	if err != nil {
		return err
	}
	return s.db.Model(connector).Update("execute_on_delegate", onDelegate).Error
}

// Delete 删除连接器
func (s *ConnectorService) Delete(scope models.Scope, identifier string) error {
	connector, err := s.Get(scope, identifier)
	if err != nil {
		return err
	}
	return s.db.Delete(connector).Error
}
