package services

import (
	"context"

	"gitbridge/internal/models"
	"gitbridge/pkg/logger"
)

// GitSyncOrchestrator 执行路由编排器
//
// 根据作用域/连接器的执行模式决定操作走本地执行器还是委托执行器。
// 每次分发都重新查询执行模式，不缓存决策；错误原样透传，不做重试。
type GitSyncOrchestrator struct {
	selector *ExecutionModeService
	manager  ScmFacilitator
	delegate ScmFacilitator
}

// NewGitSyncOrchestrator 创建编排器
func NewGitSyncOrchestrator(selector *ExecutionModeService, manager, delegate ScmFacilitator) *GitSyncOrchestrator {
	return &GitSyncOrchestrator{selector: selector, manager: manager, delegate: delegate}
}

// facilitatorFor 按作用域设置选择执行器
func (o *GitSyncOrchestrator) facilitatorFor(scope models.Scope) (ScmFacilitator, error) {
	onDelegate, err := o.selector.ShouldExecuteOnDelegate(scope)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id":  scope.AccountID,
		"on_delegate": onDelegate,
	}).Debug("选择SCM执行器")

	if onDelegate {
		return o.delegate, nil
	}
	return o.manager, nil
}

// facilitatorForConnector 按连接器覆盖选择执行器
func (o *GitSyncOrchestrator) facilitatorForConnector(scope models.Scope, connectorRef string) (ScmFacilitator, error) {
	onDelegate, err := o.selector.ShouldExecuteOnDelegateForConnector(scope, connectorRef)
	if err != nil {
		return nil, err
	}
	if onDelegate {
		return o.delegate, nil
	}
	return o.manager, nil
}

// Dispatch 按作用域执行模式分发操作
func Dispatch[R any](ctx context.Context, o *GitSyncOrchestrator, scope models.Scope, fn func(ScmFacilitator) (R, error)) (R, error) {
	var zero R
	facilitator, err := o.facilitatorFor(scope)
	if err != nil {
		return zero, err
	}
	return fn(facilitator)
}

// DispatchByConnector 按连接器执行模式分发操作
func DispatchByConnector[R any](ctx context.Context, o *GitSyncOrchestrator, scope models.Scope, connectorRef string, fn func(ScmFacilitator) (R, error)) (R, error) {
	var zero R
	facilitator, err := o.facilitatorForConnector(scope, connectorRef)
	if err != nil {
		return zero, err
	}
	return fn(facilitator)
}
