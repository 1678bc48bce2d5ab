package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gitbridge/internal/models"
	gserrors "gitbridge/pkg/errors"
)

// ConfigService 同步配置管理
type ConfigService struct {
	db *gorm.DB
}

// NewConfigService 创建配置服务
func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{db: db}
}

// Create 创建同步配置
func (s *ConfigService) Create(cfg *models.GitSyncConfig) error {
	if cfg.Identifier == "" || cfg.GitConnectorRef == "" || cfg.RepoURL == "" {
		return gserrors.NewInvalidRequest("同步配置必须携带标识、连接器引用和仓库URL")
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	if err := s.db.Create(cfg).Error; err != nil {
		if isDuplicateKeyError(err) {
			return gserrors.NewInvalidRequest("同步配置已存在: %s", cfg.Identifier)
		}
		return fmt.Errorf("创建同步配置失败: %v", err)
	}
	return nil
}

// Get 按作用域和标识查询同步配置
func (s *ConfigService) Get(scope models.Scope, identifier string) (*models.GitSyncConfig, error) {
	var cfg models.GitSyncConfig
	err := s.db.Where("account_id = ? AND org_id = ? AND project_id = ? AND identifier = ?",
		scope.AccountID, scope.OrgID, scope.ProjectID, identifier).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gserrors.NewInvalidRequest("同步配置不存在: %s", identifier)
		}
		return nil, fmt.Errorf("查询同步配置失败: %v", err)
	}
	return &cfg, nil
}

// GetByID 按主键查询作用域内的同步配置
func (s *ConfigService) GetByID(scope models.Scope, id uint) (*models.GitSyncConfig, error) {
	var cfg models.GitSyncConfig
	err := s.db.Where("id = ? AND account_id = ? AND org_id = ? AND project_id = ?",
		id, scope.AccountID, scope.OrgID, scope.ProjectID).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gserrors.NewInvalidRequest("同步配置不存在 (ID: %d)", id)
		}
		return nil, fmt.Errorf("查询同步配置失败: %v", err)
	}
	return &cfg, nil
}

// List 列出作用域下的同步配置
func (s *ConfigService) List(scope models.Scope, page, pageSize int) ([]models.GitSyncConfig, int64, error) {
	query := s.db.Model(&models.GitSyncConfig{}).
		Where("account_id = ? AND org_id = ? AND project_id = ?",
			scope.AccountID, scope.OrgID, scope.ProjectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计同步配置失败: %v", err)
	}

	var configs []models.GitSyncConfig
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&configs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询同步配置失败: %v", err)
	}
	return configs, total, nil
}

// Update 更新同步配置
func (s *ConfigService) Update(scope models.Scope, identifier string, updates map[string]interface{}) (*models.GitSyncConfig, error) {
	cfg, err := s.Get(scope, identifier)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(cfg).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新同步配置失败: %v", err)
	}
	return cfg, nil
}

// Delete 删除同步配置
func (s *ConfigService) Delete(scope models.Scope, identifier string) error {
	cfg, err := s.Get(scope, identifier)
	if err != nil {
		return err
	}
	return s.db.Delete(cfg).Error
}

// ListResyncEnabled 列出所有启用定时重同步的配置
func (s *ConfigService) ListResyncEnabled() ([]models.GitSyncConfig, error) {
	var configs []models.GitSyncConfig
	err := s.db.Where("resync_enabled = ? AND status = ?", true, "active").Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("查询重同步配置失败: %v", err)
	}
	return configs, nil
}
