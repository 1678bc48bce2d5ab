package database

import (
	"gitbridge/internal/models"
	"gitbridge/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.GitConnector{},
		&models.GitSyncConfig{},
		&models.GitSyncSettings{},
		&models.GitBranch{},
		&models.GitCommit{},
		&models.GitFileEntity{},
		&models.DelegateAgent{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")

	return nil
}
