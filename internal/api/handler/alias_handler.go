package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paas-cd/internal/api/middleware"
	"paas-cd/internal/dto"
	"paas-cd/internal/pkg/logger"
	"paas-cd/internal/service"
	"paas-cd/pkg/responses"
	"paas-cd/pkg/utils"
)

// AliasHandler 别名管理处理器
type AliasHandler struct {
	aliasService *service.AliasService
}

// NewAliasHandler 创建别名处理器
func NewAliasHandler(aliasService *service.AliasService) *AliasHandler {
	return &AliasHandler{aliasService: aliasService}
}

// Assign 绑定别名
// @Summary 将别名绑定到部署
// @Tags Alias
// @Accept json
// @Produce json
// @Param body body dto.AssignAliasRequest true "绑定请求"
// @Success 200 {object} responses.Response{data=dto.DeploymentResponse}
// @Router /api/v1/alias [post]
func (h *AliasHandler) Assign(c *gin.Context) {
	var req dto.AssignAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	actor := middleware.CurrentUsername(c)
	result, err := h.aliasService.Assign(c.Request.Context(), &req, actor)
	if err != nil {
		logger.Error("绑定别名失败",
			zap.Int64("deployment_id", req.DeploymentID),
			zap.String("alias", req.Alias),
			zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "别名已绑定", result)
}

// Remove 移除别名
// @Summary 从部署上移除别名
// @Tags Alias
// @Accept json
// @Produce json
// @Param body body dto.RemoveAliasRequest true "移除请求"
// @Success 200 {object} responses.Response{data=dto.DeploymentResponse}
// @Router /api/v1/alias [delete]
func (h *AliasHandler) Remove(c *gin.Context) {
	var req dto.RemoveAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	actor := middleware.CurrentUsername(c)
	result, err := h.aliasService.Remove(c.Request.Context(), &req, actor)
	if err != nil {
		logger.Error("移除别名失败",
			zap.Int64("deployment_id", req.DeploymentID),
			zap.String("alias", req.Alias),
			zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "别名已移除", result)
}
