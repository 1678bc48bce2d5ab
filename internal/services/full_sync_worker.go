package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	"gitbridge/pkg/logger"
	"gitbridge/pkg/scm"
)

// ConfigFinder 按事件定位同步配置
type ConfigFinder interface {
	GetByID(scope models.Scope, id uint) (*models.GitSyncConfig, error)
}

// FullSyncWorker 全量同步事件消费者
//
// 阻塞读取全量同步事件流，对每个事件执行一次完整的分支内容同步，
// 事件带PR意图时同步完成后向目标分支发起PR。
// 单个事件失败只记日志，消费位点继续前进，依赖下一次触发重试。
type FullSyncWorker struct {
	client      *redis.Client
	contentSync *BranchContentSyncService
	configs     ConfigFinder
	stream      string
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewFullSyncWorker 创建全量同步消费者
func NewFullSyncWorker(client *redis.Client, contentSync *BranchContentSyncService, configs ConfigFinder) *FullSyncWorker {
	return &FullSyncWorker{
		client:      client,
		contentSync: contentSync,
		configs:     configs,
		stream:      config.GetConfig().GitSync.FullSyncStream,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start 启动消费循环
func (w *FullSyncWorker) Start() {
	logger.GetLogger().Infof("启动全量同步消费者，事件流: %s", w.stream)
	go w.run()
}

// Stop 停止消费循环
func (w *FullSyncWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logger.GetLogger().Info("全量同步消费者已停止")
}

func (w *FullSyncWorker) run() {
	defer close(w.doneCh)

	// 从流尾开始消费，历史事件不重放
	lastID := "$"

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		streams, err := w.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{w.stream, lastID},
			Count:   10,
			Block:   5 * time.Second,
		}).Result()
		cancel()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			logger.GetLogger().WithError(err).Error("读取全量同步事件流失败")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				w.handleMessage(msg)
			}
		}
	}
}

func (w *FullSyncWorker) handleMessage(msg redis.XMessage) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		logger.GetLogger().Errorf("全量同步事件缺少event字段: %s", msg.ID)
		return
	}

	var event FullSyncEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		logger.GetLogger().WithError(err).Errorf("全量同步事件解析失败: %s", msg.ID)
		return
	}

	scope := models.NewScope(event.AccountID, event.OrgID, event.ProjectID)

	logger.GetLogger().WithFields(map[string]interface{}{
		"event_id":   event.EventID,
		"account_id": event.AccountID,
		"repo_url":   event.RepoURL,
		"branch":     event.Branch,
	}).Info("开始处理全量同步事件")

	// 按最新配置执行，事件里的仓库信息仅作追溯
	cfg, err := w.configs.GetByID(scope, event.ConfigID)
	if err != nil {
		logger.GetLogger().WithError(err).Warnf("全量同步事件对应的配置不可用 (ID: %d)", event.ConfigID)
		return
	}

	ctx := context.Background()

	// 全量同步不剔除任何文件
	if _, _, err := w.contentSync.branches.LookupOrCreateBranch(scope.AccountID, cfg.RepoURL, event.Branch); err != nil {
		logger.GetLogger().WithError(err).Error("全量同步落分支记录失败")
		return
	}
	if err := w.contentSync.SyncBranchContent(ctx, scope, cfg, event.Branch, ""); err != nil {
		logger.GetLogger().WithError(err).Errorf("全量同步失败: %s", event.EventID)
		return
	}

	if event.CreatePR && event.TargetBranch != "" && event.TargetBranch != event.Branch {
		w.createSyncPR(ctx, scope, cfg, &event)
	}
}

// createSyncPR 同步完成后按事件意图回建PR
func (w *FullSyncWorker) createSyncPR(ctx context.Context, scope models.Scope, cfg *models.GitSyncConfig, event *FullSyncEvent) {
	pr, err := Dispatch(ctx, w.contentSync.orchestrator, scope, func(f ScmFacilitator) (*scm.PullRequest, error) {
		return f.CreatePullRequest(ctx, scope, &CreatePullRequestRequest{
			Config:       cfg,
			Title:        fmt.Sprintf("全量同步 %s 至 %s", event.Branch, event.TargetBranch),
			SourceBranch: event.Branch,
			TargetBranch: event.TargetBranch,
		})
	})
	if err != nil {
		logger.GetLogger().WithError(err).Errorf("全量同步后创建PR失败: %s", event.EventID)
		return
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"event_id":  event.EventID,
		"repo_url":  cfg.RepoURL,
		"pr_number": pr.Number,
	}).Info("全量同步后已创建PR")
}
