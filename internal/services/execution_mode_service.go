package services

import (
	"errors"
	"fmt"

	"gitbridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GitSyncSettingsStore 作用域级执行路由设置存储
type GitSyncSettingsStore interface {
	Get(scope models.Scope) (*models.GitSyncSettings, error)
	Upsert(settings *models.GitSyncSettings) error
}

// gormSettingsStore 数据库实现
type gormSettingsStore struct {
	db *gorm.DB
}

// NewGitSyncSettingsStore 创建设置存储
func NewGitSyncSettingsStore(db *gorm.DB) GitSyncSettingsStore {
	return &gormSettingsStore{db: db}
}

func (s *gormSettingsStore) Get(scope models.Scope) (*models.GitSyncSettings, error) {
	var settings models.GitSyncSettings
	err := s.db.Where("account_id = ? AND org_id = ? AND project_id = ?",
		scope.AccountID, scope.OrgID, scope.ProjectID).First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *gormSettingsStore) Upsert(settings *models.GitSyncSettings) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "org_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"execute_on_delegate", "updated_at"}),
	}).Create(settings).Error
}

// ExecutionModeService 执行路由决策
//
// 每次调用都重新读取设置，不做缓存——设置可能在两次调用之间变化。
type ExecutionModeService struct {
	settings GitSyncSettingsStore
	resolver *ConnectorResolverService
}

// NewExecutionModeService 创建执行路由决策服务
func NewExecutionModeService(settings GitSyncSettingsStore, resolver *ConnectorResolverService) *ExecutionModeService {
	return &ExecutionModeService{settings: settings, resolver: resolver}
}

// ShouldExecuteOnDelegate 作用域级决策
//
// 设置记录缺失时返回true：多数外部Git主机无法从控制面直连，委托端执行
// 是保守默认。
func (s *ExecutionModeService) ShouldExecuteOnDelegate(scope models.Scope) (bool, error) {
	settings, err := s.settings.Get(scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("查询执行路由设置失败: %v", err)
	}
	return settings.ExecuteOnDelegate, nil
}

// ShouldExecuteOnDelegateForConnector 连接器级决策
//
// 连接器携带显式覆盖标志时以标志为准，否则落回作用域级决策。
func (s *ExecutionModeService) ShouldExecuteOnDelegateForConnector(scope models.Scope, connectorRef string) (bool, error) {
	connector, err := s.resolver.Resolve(scope, connectorRef, "", "")
	if err != nil {
		return false, err
	}

	if connector.ExecuteOnDelegate != nil {
		return *connector.ExecuteOnDelegate, nil
	}

	return s.ShouldExecuteOnDelegate(scope)
}

// SetExecutionMode 写入作用域级执行路由设置
func (s *ExecutionModeService) SetExecutionMode(scope models.Scope, onDelegate bool) error {
	return s.settings.Upsert(&models.GitSyncSettings{
		AccountID:         scope.AccountID,
		OrgID:             scope.OrgID,
		ProjectID:         scope.ProjectID,
		ExecuteOnDelegate: onDelegate,
	})
}
