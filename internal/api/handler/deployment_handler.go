package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paas-cd/internal/api/middleware"
	"paas-cd/internal/dto"
	"paas-cd/internal/pkg/logger"
	"paas-cd/internal/service"
	"paas-cd/pkg/responses"
	"paas-cd/pkg/utils"
)

// DeploymentHandler 部署管理处理器
type DeploymentHandler struct {
	deployService *service.DeployService
}

// NewDeploymentHandler 创建部署处理器
func NewDeploymentHandler(deployService *service.DeployService) *DeploymentHandler {
	return &DeploymentHandler{deployService: deployService}
}

// List 部署列表
// @Summary 分页查询项目的部署记录
// @Tags Deployment
// @Produce json
// @Param project_id query int true "项目ID"
// @Param status query string false "状态过滤"
// @Param type query string false "类型过滤"
// @Param branch query string false "分支过滤"
// @Success 200 {object} responses.Response{data=dto.PageResponse}
// @Router /api/v1/deployments [get]
func (h *DeploymentHandler) List(c *gin.Context) {
	var query dto.DeploymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.deployService.List(c.Request.Context(), &query)
	if err != nil {
		logger.Error("查询部署列表失败", zap.Int64("project_id", query.ProjectID), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}

// Get 部署详情
// @Summary 获取部署详情
// @Tags Deployment
// @Produce json
// @Param id path int true "部署ID"
// @Success 200 {object} responses.Response{data=dto.DeploymentResponse}
// @Router /api/v1/deployment/{id} [get]
func (h *DeploymentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c.Param("id"))
	if !ok {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "deployment_id 无效", c.Param("id"))
		return
	}

	result, err := h.deployService.Get(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}

// Cancel 取消部署
// @Summary 取消进行中的部署
// @Tags Deployment
// @Produce json
// @Param id path int true "部署ID"
// @Success 200 {object} responses.Response{data=dto.DeploymentResponse}
// @Router /api/v1/deployment/{id}/cancel [post]
func (h *DeploymentHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c.Param("id"))
	if !ok {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "deployment_id 无效", c.Param("id"))
		return
	}

	actor := middleware.CurrentUsername(c)
	result, err := h.deployService.Cancel(id, actor)
	if err != nil {
		logger.Error("取消部署失败", zap.Int64("deployment_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "部署已取消", result)
}

// Rollback 回滚到历史部署
// @Summary 将流量全量切回历史部署
// @Tags Deployment
// @Accept json
// @Produce json
// @Param body body dto.RollbackRequest true "回滚请求"
// @Success 200 {object} responses.Response{data=dto.DeploymentResponse}
// @Router /api/v1/deployment/rollback [post]
func (h *DeploymentHandler) Rollback(c *gin.Context) {
	var req dto.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	actor := middleware.CurrentUsername(c)
	result, err := h.deployService.Rollback(c.Request.Context(), req.DeploymentID, actor)
	if err != nil {
		logger.Error("回滚失败", zap.Int64("deployment_id", req.DeploymentID), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.SuccessWithMessage(c, "回滚完成", result)
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
