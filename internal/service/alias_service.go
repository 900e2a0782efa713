package service

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
	pkgErrors "paas-cd/pkg/errors"
)

// aliasPattern DNS标签格式：小写字母数字开头结尾，中间可含连字符
var aliasPattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// AliasService 别名（流量标签）管理
// 别名在项目内唯一；平台侧标签先行变更，数据库记录随后跟进
type AliasService struct {
	depRepo   repository.DeploymentRepository
	auditRepo repository.AuditLogRepository
	platform  serving.Platform
	logger    *zap.Logger
}

// NewAliasService 创建别名服务
func NewAliasService(
	depRepo repository.DeploymentRepository,
	auditRepo repository.AuditLogRepository,
	platform serving.Platform,
	logger *zap.Logger,
) *AliasService {
	return &AliasService{
		depRepo:   depRepo,
		auditRepo: auditRepo,
		platform:  platform,
		logger:    logger,
	}
}

// ValidateAlias 校验别名格式
func ValidateAlias(alias string) error {
	if len(alias) == 0 || len(alias) > constants.AliasMaxLength {
		return pkgErrors.ErrInvalidAlias
	}
	if !aliasPattern.MatchString(alias) {
		return pkgErrors.ErrInvalidAlias
	}
	return nil
}

// Assign 将别名绑定到部署
// 别名若已绑定在项目内其他部署上，会被原子地转移过来
func (s *AliasService) Assign(ctx context.Context, req *dto.AssignAliasRequest, actor string) (*dto.DeploymentResponse, error) {
	if err := ValidateAlias(req.Alias); err != nil {
		return nil, err
	}

	dep, err := s.depRepo.FindByID(req.DeploymentID)
	if err != nil {
		return nil, err
	}
	if dep.Status != model.DeploymentStatusReady || dep.Revision == nil || *dep.Revision == "" {
		return nil, pkgErrors.Wrap(pkgErrors.CodeConflict, "只有 ready 状态且存在 revision 的部署才能绑定别名", nil)
	}

	// 平台标签先落，失败则数据库不动
	if err := s.platform.SetTag(ctx, dep.Slug, req.Alias, *dep.Revision); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "平台标签设置失败", err)
	}

	if err := s.depRepo.ReassignAlias(dep.ProjectID, dep.ID, req.Alias); err != nil {
		return nil, err
	}

	s.writeAudit(dep.ProjectID, &dep.ID, constants.AuditActionAliasAssign, actor, req.Alias)

	s.logger.Info("别名已绑定",
		zap.Int64("deployment_id", dep.ID),
		zap.String("alias", req.Alias),
		zap.String("actor", actor))

	dep, err = s.depRepo.FindByID(dep.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewDeploymentResponse(dep), nil
}

// Remove 从部署上移除别名
// 平台侧按 revision 条件移除，避免误删已被转移走的标签
func (s *AliasService) Remove(ctx context.Context, req *dto.RemoveAliasRequest, actor string) (*dto.DeploymentResponse, error) {
	if err := ValidateAlias(req.Alias); err != nil {
		return nil, err
	}

	dep, err := s.depRepo.FindByID(req.DeploymentID)
	if err != nil {
		return nil, err
	}
	if !dep.HasAlias(req.Alias) {
		return nil, pkgErrors.Wrap(pkgErrors.CodeNotFound, "别名未绑定在该部署上", nil)
	}

	expected := ""
	if dep.Revision != nil {
		expected = *dep.Revision
	}
	if err := s.platform.RemoveTag(ctx, dep.Slug, req.Alias, expected); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "平台标签移除失败", err)
	}

	if err := s.depRepo.RemoveAlias(dep.ProjectID, dep.ID, req.Alias); err != nil {
		return nil, err
	}

	s.writeAudit(dep.ProjectID, &dep.ID, constants.AuditActionAliasRemove, actor, req.Alias)

	s.logger.Info("别名已移除",
		zap.Int64("deployment_id", dep.ID),
		zap.String("alias", req.Alias),
		zap.String("actor", actor))

	dep, err = s.depRepo.FindByID(dep.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewDeploymentResponse(dep), nil
}

func (s *AliasService) writeAudit(projectID int64, deploymentID *int64, action, actor, alias string) {
	entry := &model.AuditLog{
		ProjectID:    projectID,
		DeploymentID: deploymentID,
		Action:       action,
		Actor:        actor,
		Detail:       map[string]interface{}{"alias": alias},
	}
	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.Warn("审计日志写入失败",
			zap.String("action", action),
			zap.Error(err))
	}
}
