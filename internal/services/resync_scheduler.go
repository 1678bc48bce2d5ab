package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"gitbridge/internal/models"
	"gitbridge/pkg/logger"
)

// ResyncScheduler 定时全量重同步调度器
//
// 为每个启用了定时重同步的同步配置注册cron任务，到点触发一次全量同步
// 事件投递。任务集可在配置增删改后热更新。
type ResyncScheduler struct {
	configs  *ConfigService
	fullSync *FullSyncService
	cron     *cron.Cron
	jobs     map[uint]cron.EntryID // configID -> cronJobID
	jobsLock sync.RWMutex
	running  bool
}

// NewResyncScheduler 创建重同步调度器
func NewResyncScheduler(configs *ConfigService, fullSync *FullSyncService) *ResyncScheduler {
	return &ResyncScheduler{
		configs:  configs,
		fullSync: fullSync,
		cron:     cron.New(),
		jobs:     make(map[uint]cron.EntryID),
	}
}

// Start 启动调度器
func (s *ResyncScheduler) Start() error {
	if s.running {
		return fmt.Errorf("调度器已经在运行")
	}

	logger.GetLogger().Info("启动定时重同步调度器")

	configs, err := s.configs.ListResyncEnabled()
	if err != nil {
		return fmt.Errorf("加载重同步配置失败: %v", err)
	}

	for i := range configs {
		if err := s.AddJob(&configs[i]); err != nil {
			logger.GetLogger().Errorf("添加配置 %s (ID: %d) 的定时任务失败: %v", configs[i].Identifier, configs[i].ID, err)
		}
	}

	s.cron.Start()
	s.running = true

	logger.GetLogger().Infof("定时重同步调度器启动成功，已加载 %d 个定时任务", len(s.jobs))
	return nil
}

// Stop 停止调度器
func (s *ResyncScheduler) Stop() {
	if !s.running {
		return
	}

	logger.GetLogger().Info("停止定时重同步调度器")
	s.cron.Stop()
	s.running = false
}

// AddJob 添加定时任务
func (s *ResyncScheduler) AddJob(cfg *models.GitSyncConfig) error {
	if !cfg.ResyncEnabled || cfg.ResyncCron == "" {
		return fmt.Errorf("配置未启用定时重同步或未设置cron表达式")
	}

	configID := cfg.ID
	scope := cfg.GetScope()
	identifier := cfg.Identifier

	entryID, err := s.cron.AddFunc(cfg.ResyncCron, func() {
		s.executeResync(scope, identifier, configID)
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %v", err)
	}

	s.jobsLock.Lock()
	s.jobs[configID] = entryID
	s.jobsLock.Unlock()

	logger.GetLogger().Infof("已添加同步配置 %s (ID: %d) 的定时重同步任务，cron: %s", cfg.Identifier, cfg.ID, cfg.ResyncCron)
	return nil
}

// RemoveJob 移除定时任务
func (s *ResyncScheduler) RemoveJob(configID uint) {
	s.jobsLock.Lock()
	defer s.jobsLock.Unlock()

	if entryID, exists := s.jobs[configID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, configID)
		logger.GetLogger().Infof("已移除同步配置 ID: %d 的定时重同步任务", configID)
	}
}

// UpdateJob 更新定时任务
func (s *ResyncScheduler) UpdateJob(cfg *models.GitSyncConfig) error {
	s.RemoveJob(cfg.ID)

	if cfg.ResyncEnabled && cfg.ResyncCron != "" {
		return s.AddJob(cfg)
	}
	return nil
}

// executeResync 到点触发全量同步
func (s *ResyncScheduler) executeResync(scope models.Scope, identifier string, configID uint) {
	// 重新加载配置，确保按最新数据触发
	current, err := s.configs.Get(scope, identifier)
	if err != nil {
		logger.GetLogger().Errorf("加载同步配置失败 (ID: %d): %v", configID, err)
		return
	}
	if !current.ResyncEnabled {
		logger.GetLogger().Warnf("同步配置 %s (ID: %d) 已禁用定时重同步", current.Identifier, current.ID)
		return
	}

	triggered := s.fullSync.Trigger(context.Background(), scope, current, current.DefaultBranch, false, "", "scheduler")
	if !triggered {
		logger.GetLogger().Errorf("同步配置 %s (ID: %d) 的定时重同步触发失败", current.Identifier, current.ID)
		return
	}
	logger.GetLogger().Infof("已触发同步配置 %s (ID: %d) 的定时重同步", current.Identifier, current.ID)
}

// GetJobStatus 获取任务状态
func (s *ResyncScheduler) GetJobStatus() map[string]interface{} {
	s.jobsLock.RLock()
	defer s.jobsLock.RUnlock()

	entries := s.cron.Entries()
	jobs := make([]map[string]interface{}, 0)

	for configID, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				jobs = append(jobs, map[string]interface{}{
					"config_id": configID,
					"next_run":  entry.Next,
					"prev_run":  entry.Prev,
				})
			}
		}
	}

	return map[string]interface{}{
		"running":   s.running,
		"job_count": len(s.jobs),
		"jobs":      jobs,
	}
}
