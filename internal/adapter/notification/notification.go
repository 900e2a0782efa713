package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyDeploySuccess NotificationType = "deploy_success" // 部署成功
	NotifyDeployFailed  NotificationType = "deploy_failed"  // 部署失败
	NotifyRollback      NotificationType = "rollback"       // 回滚完成
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error
}

// ============= Webhook 通知适配器 =============

// WebhookNotifier 消息群 Webhook 通知器
type WebhookNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewWebhookNotifier 创建Webhook通知器
func NewWebhookNotifier(webhookURL string, enabled bool, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 发送通知
func (n *WebhookNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Webhook URL未配置")
		return nil
	}

	// 构建消息体
	payload := n.buildPayload(msg)

	// 发送HTTP请求
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Webhook返回错误状态码: %d", resp.StatusCode)
	}

	n.logger.Info("Webhook通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title))

	return nil
}

// buildPayload 构建卡片消息
func (n *WebhookNotifier) buildPayload(msg *NotificationMessage) map[string]interface{} {
	var color string
	switch msg.Type {
	case NotifyDeploySuccess:
		color = "green"
	case NotifyDeployFailed:
		color = "red"
	case NotifyRollback:
		color = "orange"
	default:
		color = "grey"
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title":    map[string]interface{}{"tag": "plain_text", "content": msg.Title},
				"template": color,
			},
			"elements": []map[string]interface{}{
				{
					"tag":  "markdown",
					"text": msg.Content,
				},
			},
		},
	}
}

// ============= 日志通知适配器 =============

// LogNotifier 仅输出日志的通知器（本地/测试环境）
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send 输出通知到日志
func (n *LogNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	n.logger.Info("通知",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content))
	return nil
}
