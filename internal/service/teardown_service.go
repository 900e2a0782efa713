package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/core"
	"paas-cd/internal/model"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
)

// TeardownResult 项目资源回收结果
type TeardownResult struct {
	DeletedServices []string `json:"deleted_services"`
	JobsDeleted     bool     `json:"jobs_deleted"`
	DeletedDomains  []string `json:"deleted_domains"`
	Errors          []string `json:"errors,omitempty"`
}

// Partial 是否存在未完成的回收项
func (r *TeardownResult) Partial() bool {
	return len(r.Errors) > 0
}

// TeardownService 项目删除时的资源回收
// 平台侧资源按阶段尽力回收，单项失败不阻断后续阶段；数据库清理无条件执行
type TeardownService struct {
	projectRepo repository.ProjectRepository
	depRepo     repository.DeploymentRepository
	auditRepo   repository.AuditLogRepository
	platform    serving.Platform
	registry    *core.PollerRegistry
	logger      *zap.Logger
}

// NewTeardownService 创建资源回收服务
func NewTeardownService(
	projectRepo repository.ProjectRepository,
	depRepo repository.DeploymentRepository,
	auditRepo repository.AuditLogRepository,
	platform serving.Platform,
	registry *core.PollerRegistry,
	logger *zap.Logger,
) *TeardownService {
	return &TeardownService{
		projectRepo: projectRepo,
		depRepo:     depRepo,
		auditRepo:   auditRepo,
		platform:    platform,
		registry:    registry,
		logger:      logger,
	}
}

// Teardown 回收项目的全部资源并删除项目
func (s *TeardownService) Teardown(ctx context.Context, projectID int64, actor string) (*TeardownResult, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, err
	}

	result := &TeardownResult{}
	log := s.logger.With(
		zap.Int64("project_id", projectID),
		zap.String("slug", project.Slug))

	// 进行中的部署先停掉轮询
	s.cancelActivePolls(projectID, log)

	// 阶段一：删除项目下全部服务（生产、分支、预览）
	services, err := s.platform.ListServices(ctx, project.Slug)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("枚举服务失败: %v", err))
		log.Warn("枚举服务失败", zap.Error(err))
	} else {
		for _, svc := range services {
			if err := s.platform.DeleteService(ctx, svc.Name); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("删除服务 %s 失败: %v", svc.Name, err))
				log.Warn("删除服务失败", zap.String("service", svc.Name), zap.Error(err))
				continue
			}
			result.DeletedServices = append(result.DeletedServices, svc.Name)
		}
	}

	// 阶段二：删除计划任务
	if err := s.platform.DeleteJobs(ctx, project.Slug); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("删除计划任务失败: %v", err))
		log.Warn("删除计划任务失败", zap.Error(err))
	} else {
		result.JobsDeleted = true
	}

	// 阶段三：删除域名映射
	for _, mapping := range project.DomainMappings {
		if err := s.platform.DeleteDomainMapping(ctx, mapping.Domain); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("删除域名 %s 失败: %v", mapping.Domain, err))
			log.Warn("删除域名映射失败", zap.String("domain", mapping.Domain), zap.Error(err))
			continue
		}
		result.DeletedDomains = append(result.DeletedDomains, mapping.Domain)
	}

	// 阶段四：数据库级联清理，无论前序阶段结果如何都执行
	s.writeAudit(projectID, actor, result)
	if err := s.projectRepo.DeleteCascade(projectID); err != nil {
		return nil, err
	}

	if result.Partial() {
		log.Warn("项目资源部分回收完成",
			zap.Strings("errors", result.Errors),
			zap.String("actor", actor))
	} else {
		log.Info("项目资源回收完成", zap.String("actor", actor))
	}

	return result, nil
}

// cancelActivePolls 停止项目下所有进行中部署的轮询协程
func (s *TeardownService) cancelActivePolls(projectID int64, log *zap.Logger) {
	deps, err := s.depRepo.ListActiveByProject(projectID)
	if err != nil {
		log.Warn("查询进行中的部署失败", zap.Error(err))
		return
	}
	for _, dep := range deps {
		s.registry.Cancel(dep.ID)
	}
}

// writeAudit 审计条目先于级联删除写入，随项目一起清理
func (s *TeardownService) writeAudit(projectID int64, actor string, result *TeardownResult) {
	entry := &model.AuditLog{
		ProjectID: projectID,
		Action:    constants.AuditActionProjectTeardown,
		Actor:     actor,
		Detail: map[string]interface{}{
			"deleted_services": result.DeletedServices,
			"deleted_domains":  result.DeletedDomains,
			"errors":           result.Errors,
		},
	}
	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.Warn("审计日志写入失败", zap.Error(err))
	}
}
