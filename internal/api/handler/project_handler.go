package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paas-cd/internal/api/middleware"
	"paas-cd/internal/pkg/logger"
	"paas-cd/internal/service"
	"paas-cd/pkg/responses"
)

// ProjectHandler 项目级操作处理器
type ProjectHandler struct {
	teardownService *service.TeardownService
	deployService   *service.DeployService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(teardownService *service.TeardownService, deployService *service.DeployService) *ProjectHandler {
	return &ProjectHandler{
		teardownService: teardownService,
		deployService:   deployService,
	}
}

// Delete 删除项目并回收全部资源
// 平台侧回收是尽力而为，部分失败时返回 206 并附带失败明细
// @Summary 删除项目
// @Tags Project
// @Produce json
// @Param id path int true "项目ID"
// @Success 200 {object} responses.Response{data=service.TeardownResult}
// @Router /api/v1/project/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c.Param("id"))
	if !ok {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "project_id 无效", c.Param("id"))
		return
	}

	actor := middleware.CurrentUsername(c)
	result, err := h.teardownService.Teardown(c.Request.Context(), id, actor)
	if err != nil {
		logger.Error("项目删除失败", zap.Int64("project_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	if result.Partial() {
		responses.SuccessWithMessage(c, "项目已删除,部分平台资源回收失败", result)
		return
	}
	responses.SuccessWithMessage(c, "项目已删除", result)
}

// AuditLogs 项目审计日志
// @Summary 查询项目审计日志
// @Tags Project
// @Produce json
// @Param id path int true "项目ID"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} responses.Response{data=[]model.AuditLog}
// @Router /api/v1/project/{id}/audit-logs [get]
func (h *ProjectHandler) AuditLogs(c *gin.Context) {
	id, ok := parseIDParam(c.Param("id"))
	if !ok {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "project_id 无效", c.Param("id"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.deployService.ListAuditLogs(id, limit)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, logs)
}
