package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEmailBuildBodyHTML(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{
		From: "cd@example.com",
		To:   []string{"ops@example.com", "dev@example.com"},
	}, zap.NewNop())

	body := n.buildBody(&NotificationMessage{
		Type:    NotifyDeployFailed,
		Title:   "部署失败: demo",
		Content: "项目: demo\n状态: error",
	})

	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, body, "MIME-Version: 1.0\r\n")
	assert.Contains(t, body, "Subject: 部署失败: demo\r\n")
	assert.Contains(t, body, "To: ops@example.com,dev@example.com\r\n")
	assert.Contains(t, body, "项目: demo<br>状态: error")
	assert.Contains(t, body, "<html><body>")
}

func TestEmailBuildBodyEscapesHTML(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{From: "cd@example.com", To: []string{"ops@example.com"}}, zap.NewNop())

	body := n.buildBody(&NotificationMessage{
		Type:    NotifyDeploySuccess,
		Title:   "部署成功: <demo>",
		Content: "revision <r-1> & ready",
	})

	assert.Contains(t, body, "<h3>部署成功: &lt;demo&gt;</h3>")
	assert.Contains(t, body, "revision &lt;r-1&gt; &amp; ready")
	assert.NotContains(t, body, "<r-1>")
}
