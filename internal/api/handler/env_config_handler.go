package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paas-cd/internal/dto"
	"paas-cd/internal/pkg/logger"
	"paas-cd/internal/service"
	"paas-cd/pkg/responses"
	"paas-cd/pkg/utils"
)

// EnvConfigHandler 环境变量管理处理器
type EnvConfigHandler struct {
	envService *service.EnvService
}

// NewEnvConfigHandler 创建环境变量处理器
func NewEnvConfigHandler(envService *service.EnvService) *EnvConfigHandler {
	return &EnvConfigHandler{envService: envService}
}

// List 环境变量列表（机密值打码）
// @Summary 获取项目环境变量
// @Tags EnvConfig
// @Produce json
// @Param project_id query int true "项目ID"
// @Success 200 {object} responses.Response{data=[]dto.EnvVariableResponse}
// @Router /api/v1/env [get]
func (h *EnvConfigHandler) List(c *gin.Context) {
	var query dto.EnvVariableListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.envService.List(query.ProjectID)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}

// Create 创建环境变量
// @Summary 创建项目环境变量
// @Tags EnvConfig
// @Accept json
// @Produce json
// @Param body body dto.CreateEnvVariableRequest true "创建请求"
// @Success 200 {object} responses.Response{data=dto.EnvVariableResponse}
// @Router /api/v1/env [post]
func (h *EnvConfigHandler) Create(c *gin.Context) {
	var req dto.CreateEnvVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.envService.Create(&req)
	if err != nil {
		logger.Error("创建环境变量失败",
			zap.Int64("project_id", req.ProjectID),
			zap.String("key", req.Key),
			zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}

// Update 更新环境变量
// @Summary 更新项目环境变量
// @Tags EnvConfig
// @Accept json
// @Produce json
// @Param body body dto.UpdateEnvVariableRequest true "更新请求"
// @Success 200 {object} responses.Response{data=dto.EnvVariableResponse}
// @Router /api/v1/env [put]
func (h *EnvConfigHandler) Update(c *gin.Context) {
	var req dto.UpdateEnvVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.envService.Update(&req)
	if err != nil {
		logger.Error("更新环境变量失败", zap.Int64("id", req.ID), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}

// Delete 删除环境变量
// @Summary 删除项目环境变量
// @Tags EnvConfig
// @Produce json
// @Param id path int true "环境变量ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/env/{id} [delete]
func (h *EnvConfigHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c.Param("id"))
	if !ok {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "id 无效", c.Param("id"))
		return
	}

	if err := h.envService.Delete(id); err != nil {
		logger.Error("删除环境变量失败", zap.Int64("id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "已删除", nil)
}
