package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paas-cd/internal/dto"
	"paas-cd/internal/pkg/logger"
	"paas-cd/internal/service"
	"paas-cd/pkg/constants"
	"paas-cd/pkg/responses"
)

// WebhookHandler 仓库事件入口
type WebhookHandler struct {
	deployService *service.DeployService
	secret        string
}

// NewWebhookHandler 创建Webhook处理器
func NewWebhookHandler(deployService *service.DeployService, secret string) *WebhookHandler {
	return &WebhookHandler{
		deployService: deployService,
		secret:        secret,
	}
}

// Handle 接收仓库事件
// 签名校验先于任何解析；未注册仓库与不关心的事件一律返回成功
// @Summary 接收仓库Webhook事件
// @Tags Webhook
// @Accept json
// @Produce json
// @Param X-GitHub-Event header string true "事件类型"
// @Param X-Hub-Signature-256 header string true "HMAC签名"
// @Success 200 {object} responses.Response
// @Router /api/v1/webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		responses.ErrorWithCode(c, http.StatusBadRequest, "读取请求体失败")
		return
	}

	signature := c.GetHeader(constants.HeaderHubSignature)
	if !h.verifySignature(body, signature) {
		logger.Warn("Webhook签名验证失败",
			zap.String("ip", c.ClientIP()),
			zap.String("delivery", c.GetHeader(constants.HeaderGitHubDelivery)))
		responses.ErrorWithCode(c, http.StatusUnauthorized, "签名验证失败")
		return
	}

	event := c.GetHeader(constants.HeaderGitHubEvent)
	switch event {
	case constants.WebhookEventPing:
		responses.Success(c, gin.H{"message": "pong"})
		return

	case constants.WebhookEventPush:
		var payload dto.PushEvent
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.ErrorWithCode(c, http.StatusBadRequest, "事件载荷解析失败")
			return
		}
		if err := h.deployService.HandlePushEvent(&payload); err != nil {
			logger.Error("push事件处理失败",
				zap.String("repo", payload.Repository.FullName),
				zap.Error(err))
			responses.Error(c, err)
			return
		}

	case constants.WebhookEventPullRequest:
		var payload dto.PullRequestEvent
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.ErrorWithCode(c, http.StatusBadRequest, "事件载荷解析失败")
			return
		}
		if err := h.deployService.HandlePullRequestEvent(&payload); err != nil {
			logger.Error("pull_request事件处理失败",
				zap.String("repo", payload.Repository.FullName),
				zap.Error(err))
			responses.Error(c, err)
			return
		}

	default:
		// 不关心的事件类型静默接受
	}

	responses.Success(c, gin.H{"message": "accepted"})
}

// verifySignature 常数时间比较 HMAC-SHA256 签名
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	if !strings.HasPrefix(signature, constants.SignaturePrefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := constants.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
