package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitbridge/internal/models"
	"gitbridge/pkg/logger"
)

// EntityFileProcessor 把同步回来的文件落为平台实体
type EntityFileProcessor struct {
	db *gorm.DB
}

// NewEntityFileProcessor 创建文件处理器
func NewEntityFileProcessor(db *gorm.DB) *EntityFileProcessor {
	return &EntityFileProcessor{db: db}
}

// ProcessFiles 逐个落库，单个文件失败不中断整批
func (p *EntityFileProcessor) ProcessFiles(ctx context.Context, scope models.Scope, changes []FileChange, branch string, cfg *models.GitSyncConfig) error {
	var failed int
	for _, change := range changes {
		entity := &models.GitFileEntity{
			AccountID:  scope.AccountID,
			RepoURL:    cfg.RepoURL,
			BranchName: branch,
			FilePath:   change.File.Path,
			BlobID:     change.File.BlobID,
			Content:    change.File.Content,
		}

		err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "account_id"}, {Name: "repo_url"}, {Name: "branch_name"}, {Name: "file_path"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"blob_id", "content", "updated_at"}),
		}).Create(entity).Error
		if err != nil {
			failed++
			logger.GetLogger().WithError(err).Errorf("文件实体落库失败: %s", change.File.Path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("共 %d 个文件处理失败", failed)
	}
	return nil
}
