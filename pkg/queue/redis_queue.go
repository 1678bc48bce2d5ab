package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue Redis队列实现
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// ScmTaskMessage 发往委托端的SCM任务消息
type ScmTaskMessage struct {
	TaskID    string          `json:"task_id"`
	TaskType  string          `json:"task_type"`
	AccountID string          `json:"account_id"`
	OrgID     string          `json:"org_id,omitempty"`
	ProjectID string          `json:"project_id,omitempty"`
	Params    json.RawMessage `json:"params"`
	Timeout   int             `json:"timeout"` // 秒，委托端以此为执行上限
	Created   int64           `json:"created"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisQueue 创建Redis队列实例
func NewRedisQueue(config *Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "gitbridge:queue"
	}

	return &RedisQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *RedisQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// SubmitAndWait 提交SCM任务并阻塞等待委托端结果
//
// 任务按账户入队（委托端按账户订阅自己的队列），结果写入以任务ID命名的
// 结果键。超过timeout仍未出现结果即返回超时错误，由调用方包装为委托端
// 执行失败；不做任何自动重试。
func (q *RedisQueue) SubmitAndWait(ctx context.Context, msg *ScmTaskMessage, timeout time.Duration) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("序列化任务消息失败: %v", err)
	}

	// 记录任务状态（用于排障查询）
	taskKey := q.getTaskKey(msg.TaskID)
	taskInfo := map[string]interface{}{
		"task_id":    msg.TaskID,
		"task_type":  msg.TaskType,
		"account_id": msg.AccountID,
		"status":     "queued",
		"queued_at":  time.Now().Unix(),
	}
	if err := q.client.HSet(ctx, taskKey, taskInfo).Err(); err != nil {
		return nil, fmt.Errorf("记录任务状态失败: %v", err)
	}
	q.client.Expire(ctx, taskKey, 24*time.Hour)

	// 入队（左侧入队，委托端右侧取出）
	queueKey := q.getAccountQueueKey(msg.AccountID)
	if err := q.client.LPush(ctx, queueKey, data).Err(); err != nil {
		return nil, fmt.Errorf("任务入队失败: %v", err)
	}

	// 轮询结果键，直到出现结果或超时
	resultKey := q.getResultKey(msg.TaskID)
	deadline := time.Now().Add(timeout)

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("等待任务 %s 结果超时", msg.TaskID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resultData, err := q.client.Get(ctx, resultKey).Bytes()
		if err == nil {
			q.client.Del(ctx, resultKey)
			return resultData, nil
		}
		if err != redis.Nil {
			return nil, fmt.Errorf("获取任务结果失败: %v", err)
		}

		time.Sleep(500 * time.Millisecond)
	}
}

// SetTaskResult 写入任务结果（委托端调用方向，测试亦用）
func (q *RedisQueue) SetTaskResult(taskID string, result []byte) error {
	ctx := context.Background()
	resultKey := q.getResultKey(taskID)
	return q.client.Set(ctx, resultKey, result, 10*time.Minute).Err()
}

// PublishStream 向持久化事件流追加一条消息，返回消息ID
func (q *RedisQueue) PublishStream(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
}

// GetQueueLength 获取指定账户队列的长度
func (q *RedisQueue) GetQueueLength(accountID string) (int64, error) {
	ctx := context.Background()
	return q.client.LLen(ctx, q.getAccountQueueKey(accountID)).Result()
}

// RemoveTask 从队列中移除任务记录
func (q *RedisQueue) RemoveTask(taskID string) error {
	ctx := context.Background()
	return q.client.Del(ctx, q.getTaskKey(taskID), q.getResultKey(taskID)).Err()
}

// 辅助方法

// getAccountQueueKey 获取账户任务队列键名
func (q *RedisQueue) getAccountQueueKey(accountID string) string {
	return fmt.Sprintf("%s:scm:%s", q.prefix, accountID)
}

// getTaskKey 获取任务键名
func (q *RedisQueue) getTaskKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", q.prefix, taskID)
}

// getResultKey 获取任务结果键名
func (q *RedisQueue) getResultKey(taskID string) string {
	return fmt.Sprintf("%s:result:%s", q.prefix, taskID)
}

// GetClient 获取Redis客户端（用于高级操作）
func (q *RedisQueue) GetClient() *redis.Client {
	return q.client
}

// PublishMessage 发布消息到指定频道
func (q *RedisQueue) PublishMessage(channel string, message interface{}) error {
	ctx := context.Background()

	// 序列化消息
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	// 发布消息
	channelKey := fmt.Sprintf("%s:channel:%s", q.prefix, channel)
	if err := q.client.Publish(ctx, channelKey, data).Err(); err != nil {
		return fmt.Errorf("发布消息失败: %v", err)
	}

	return nil
}

// SubscribeChannel 订阅指定频道
func (q *RedisQueue) SubscribeChannel(channel string) *redis.PubSub {
	ctx := context.Background()
	channelKey := fmt.Sprintf("%s:channel:%s", q.prefix, channel)
	return q.client.Subscribe(ctx, channelKey)
}
