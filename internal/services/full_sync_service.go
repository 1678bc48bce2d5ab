package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	"gitbridge/pkg/logger"
)

// FullSyncEventVersion 全量同步事件格式版本
const FullSyncEventVersion = "v1"

// FullSyncEvent 全量同步事件
type FullSyncEvent struct {
	Version     string `json:"version"`
	EventID     string `json:"event_id"`
	AccountID   string `json:"account_id"`
	OrgID       string `json:"org_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	ConfigID    uint   `json:"config_id"`
	RepoURL     string `json:"repo_url"`
	Branch      string `json:"branch"`

	// 同步完成后按需回建PR的意图
	CreatePR     bool   `json:"create_pr,omitempty"`
	TargetBranch string `json:"target_branch,omitempty"`

	TriggeredBy string `json:"triggered_by,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// StreamPublisher 持久化事件流发布通道
type StreamPublisher interface {
	PublishStream(ctx context.Context, stream string, values map[string]interface{}) (string, error)
}

// FullSyncService 全量同步触发服务
//
// 触发是投递即忘语义：事件写入持久流后由后台消费者执行实际同步。
// 发布失败只记日志并返回未触发，不向调用方抛错。
type FullSyncService struct {
	publisher StreamPublisher
	stream    string
}

// NewFullSyncService 创建全量同步服务
func NewFullSyncService(publisher StreamPublisher) *FullSyncService {
	return &FullSyncService{
		publisher: publisher,
		stream:    config.GetConfig().GitSync.FullSyncStream,
	}
}

// Trigger 触发全量同步，返回是否成功投递
//
// createPR为真时事件携带回建PR意图，由消费者在同步完成后向targetBranch发起PR。
func (s *FullSyncService) Trigger(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, branch string, createPR bool, targetBranch, triggeredBy string) bool {
	if branch == "" {
		branch = cfg.DefaultBranch
	}
	if createPR && targetBranch == "" {
		targetBranch = cfg.DefaultBranch
	}

	event := FullSyncEvent{
		Version:      FullSyncEventVersion,
		EventID:      uuid.New().String(),
		AccountID:    scope.AccountID,
		OrgID:        scope.OrgID,
		ProjectID:    scope.ProjectID,
		ConfigID:     cfg.ID,
		RepoURL:      cfg.RepoURL,
		Branch:       branch,
		CreatePR:     createPR,
		TargetBranch: targetBranch,
		TriggeredBy:  triggeredBy,
		CreatedAt:    time.Now().Unix(),
	}

	payload, err := json.Marshal(&event)
	if err != nil {
		logger.GetLogger().WithError(err).Error("全量同步事件序列化失败")
		return false
	}

	id, err := s.publisher.PublishStream(ctx, s.stream, map[string]interface{}{
		"version": event.Version,
		"event":   string(payload),
	})
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"account_id": scope.AccountID,
			"repo_url":   cfg.RepoURL,
			"branch":     branch,
		}).WithError(err).Error("全量同步事件投递失败")
		return false
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id": scope.AccountID,
		"repo_url":   cfg.RepoURL,
		"branch":     branch,
		"stream_id":  id,
	}).Info("全量同步事件已投递")
	return true
}
