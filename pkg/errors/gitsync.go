package errors

import (
	"errors"
	"fmt"
)

// ========== Git同步错误类型定义 ==========
//
// 调用方用 errors.As 区分错误类别：配置类错误（连接器不存在、类型不符、
// 请求参数非法）不应重试，提供商错误原样透出，传输类错误可由调用方重试。

// ConnectorNotFoundError 作用域内找不到指定连接器
type ConnectorNotFoundError struct {
	Ref string
}

func (e *ConnectorNotFoundError) Error() string {
	return fmt.Sprintf("连接器不存在: %s", e.Ref)
}

// NewConnectorNotFound 创建连接器不存在错误
func NewConnectorNotFound(ref string) error {
	return &ConnectorNotFoundError{Ref: ref}
}

// NotAGitConnectorError 解析到的连接器不是Git类型
type NotAGitConnectorError struct {
	Ref  string
	Type string
}

func (e *NotAGitConnectorError) Error() string {
	return fmt.Sprintf("连接器 %s 不是Git类型连接器（实际类型: %s）", e.Ref, e.Type)
}

// NewNotAGitConnector 创建连接器类型错误
func NewNotAGitConnector(ref, connectorType string) error {
	return &NotAGitConnectorError{Ref: ref, Type: connectorType}
}

// InvalidRequestError 调用方参数违反约束
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// NewInvalidRequest 创建参数非法错误
func NewInvalidRequest(format string, args ...interface{}) error {
	return &InvalidRequestError{Message: fmt.Sprintf(format, args...)}
}

// ProviderError Git提供商拒绝操作（认证、不存在、冲突等）
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("Git提供商返回错误 [%d]: %s", e.StatusCode, e.Message)
}

// NewProviderError 创建提供商错误
func NewProviderError(statusCode int, message string) error {
	return &ProviderError{StatusCode: statusCode, Message: message}
}

// RemoteExecutionFailedError 委托端执行的传输层失败（超时、不可达、响应不可解析）
type RemoteExecutionFailedError struct {
	Reason string
	Err    error
}

func (e *RemoteExecutionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("委托端执行失败: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("委托端执行失败: %s", e.Reason)
}

func (e *RemoteExecutionFailedError) Unwrap() error {
	return e.Err
}

// NewRemoteExecutionFailed 创建委托端执行失败错误
func NewRemoteExecutionFailed(reason string, err error) error {
	return &RemoteExecutionFailedError{Reason: reason, Err: err}
}

// NewUnexpectedRemoteResponse 委托端返回了无法解析的响应
func NewUnexpectedRemoteResponse(detail string) error {
	return &RemoteExecutionFailedError{Reason: "响应格式异常: " + detail}
}

// PRCreationFailedError PR创建失败，携带源/目标分支上下文
type PRCreationFailedError struct {
	SourceBranch string
	TargetBranch string
	Err          error
}

func (e *PRCreationFailedError) Error() string {
	return fmt.Sprintf("创建PR失败（%s -> %s）: %v", e.SourceBranch, e.TargetBranch, e.Err)
}

func (e *PRCreationFailedError) Unwrap() error {
	return e.Err
}

// NewPRCreationFailed 创建PR失败错误
func NewPRCreationFailed(sourceBranch, targetBranch string, err error) error {
	return &PRCreationFailedError{SourceBranch: sourceBranch, TargetBranch: targetBranch, Err: err}
}

// ========== 判断辅助 ==========

// IsConnectorNotFound 是否为连接器不存在
func IsConnectorNotFound(err error) bool {
	var target *ConnectorNotFoundError
	return errors.As(err, &target)
}

// IsInvalidRequest 是否为参数非法
func IsInvalidRequest(err error) bool {
	var target *InvalidRequestError
	return errors.As(err, &target)
}

// IsProviderError 是否为提供商错误
func IsProviderError(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

// IsRemoteExecutionFailed 是否为委托端传输层失败
func IsRemoteExecutionFailed(err error) bool {
	var target *RemoteExecutionFailedError
	return errors.As(err, &target)
}
