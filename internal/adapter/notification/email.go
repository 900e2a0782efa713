package notification

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// EmailConfig 邮件通知配置
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier SMTP 邮件通知器
type EmailNotifier struct {
	cfg    EmailConfig
	logger *zap.Logger
}

// NewEmailNotifier 创建邮件通知器
func NewEmailNotifier(cfg EmailConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

// Send 发送邮件通知
func (n *EmailNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if n.cfg.Host == "" || len(n.cfg.To) == 0 {
		n.logger.Debug("邮件通知未配置,跳过发送")
		return nil
	}

	body := n.buildBody(msg)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, n.cfg.To, []byte(body)); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	n.logger.Info("邮件通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.Strings("to", n.cfg.To))
	return nil
}

// buildBody 构建 HTML 邮件,正文做 HTML 转义,换行转 <br>
func (n *EmailNotifier) buildBody(msg *NotificationMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", n.cfg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(n.cfg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Title))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	content := strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>")
	b.WriteString(fmt.Sprintf("<html><body><h3>%s</h3><p>%s</p></body></html>",
		html.EscapeString(msg.Title), content))
	b.WriteString("\r\n")
	return b.String()
}
