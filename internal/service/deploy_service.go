package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"paas-cd/internal/adapter/build"
	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/core"
	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/internal/pkg/crypto"
	"paas-cd/internal/pkg/framework"
	gitApi "paas-cd/internal/pkg/git/api"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
	pkgErrors "paas-cd/pkg/errors"
)

// DeployService 部署编排服务
// 承接 webhook 事件到部署流水线的全链路：分类、去重、落库、提交构建、轮询、通知
type DeployService struct {
	projectRepo repository.ProjectRepository
	depRepo     repository.DeploymentRepository
	auditRepo   repository.AuditLogRepository
	classifier  *ClassifierService
	envService  *EnvService
	builder     build.Builder
	platform    serving.Platform
	registry    *core.PollerRegistry
	poller      *core.BuildPoller
	fanout      *core.Fanout
	gitProvider gitApi.GitProvider
	envRepo     repository.EnvVariableRepository
	presets     framework.Presets
	logger      *zap.Logger
}

// NewDeployService 创建部署编排服务
func NewDeployService(
	projectRepo repository.ProjectRepository,
	depRepo repository.DeploymentRepository,
	auditRepo repository.AuditLogRepository,
	envRepo repository.EnvVariableRepository,
	classifier *ClassifierService,
	envService *EnvService,
	builder build.Builder,
	platform serving.Platform,
	registry *core.PollerRegistry,
	poller *core.BuildPoller,
	fanout *core.Fanout,
	gitProvider gitApi.GitProvider,
	presets framework.Presets,
	logger *zap.Logger,
) *DeployService {
	return &DeployService{
		projectRepo: projectRepo,
		depRepo:     depRepo,
		auditRepo:   auditRepo,
		envRepo:     envRepo,
		classifier:  classifier,
		envService:  envService,
		builder:     builder,
		platform:    platform,
		registry:    registry,
		poller:      poller,
		fanout:      fanout,
		gitProvider: gitProvider,
		presets:     presets,
		logger:      logger,
	}
}

// HandlePushEvent 处理 push 事件
// 未注册仓库与不触发部署的事件静默忽略
func (s *DeployService) HandlePushEvent(event *dto.PushEvent) error {
	project, err := s.projectRepo.FindByRepoFullName(event.Repository.FullName)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrProjectNotFound) {
			s.logger.Debug("仓库未注册,忽略push事件",
				zap.String("repo", event.Repository.FullName))
			return nil
		}
		return err
	}

	intent := s.classifier.ClassifyPush(project, event)
	if intent == nil {
		return nil
	}

	return s.startDeployment(project, intent)
}

// HandlePullRequestEvent 处理 pull_request 事件
// closed 动作回收预览环境，其余触发动作走预览部署
func (s *DeployService) HandlePullRequestEvent(event *dto.PullRequestEvent) error {
	project, err := s.projectRepo.FindByRepoFullName(event.Repository.FullName)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrProjectNotFound) {
			s.logger.Debug("仓库未注册,忽略pull_request事件",
				zap.String("repo", event.Repository.FullName))
			return nil
		}
		return err
	}

	if event.Action == constants.PRActionClosed {
		return s.teardownPreview(project, event.Number)
	}

	intent := s.classifier.ClassifyPullRequest(project, event)
	if intent == nil {
		return nil
	}

	return s.startDeployment(project, intent)
}

// startDeployment 落库并启动异步部署流水线
func (s *DeployService) startDeployment(project *model.Project, intent *DeploymentIntent) error {
	// 同一提交的非终态部署视为重复投递
	existing, err := s.depRepo.FindActiveByCommit(project.ID, intent.CommitSHA, intent.Type)
	if err != nil && !errors.Is(err, pkgErrors.ErrDeploymentNotFound) {
		return err
	}
	if existing != nil {
		s.logger.Info("提交已有进行中的部署,跳过",
			zap.Int64("project_id", project.ID),
			zap.String("commit_sha", intent.CommitSHA),
			zap.Int64("deployment_id", existing.ID))
		return nil
	}

	dep := &model.Deployment{
		ProjectID:     project.ID,
		Type:          intent.Type,
		Slug:          intent.Slug,
		Branch:        intent.Branch,
		CommitSHA:     intent.CommitSHA,
		CommitMessage: intent.CommitMsg,
		CommitAuthor:  intent.CommitBy,
		PRNumber:      intent.PRNumber,
		Status:        model.DeploymentStatusQueued,
		Environment:   intent.Environment,
		Aliases:       datatypes.JSONSlice[string]{},
	}
	if err := s.depRepo.Create(dep); err != nil {
		return err
	}

	s.writeAudit(project.ID, &dep.ID, constants.AuditActionDeploymentCreate, intent.CommitBy, map[string]interface{}{
		"type":        intent.Type,
		"branch":      intent.Branch,
		"commit_sha":  intent.CommitSHA,
		"environment": intent.Environment,
	})

	s.logger.Info("部署已入队",
		zap.Int64("deployment_id", dep.ID),
		zap.Int64("project_id", project.ID),
		zap.String("type", intent.Type),
		zap.String("slug", intent.Slug),
		zap.String("commit_sha", intent.CommitSHA))

	// pending 状态先行，提交与轮询在独立协程执行
	s.updateCommitStatus(project, dep, gitApi.CommitStatePending, "Deployment queued", "")

	s.registry.Start(dep.ID, func(ctx context.Context) {
		s.submitAndPoll(ctx, dep.ID)
	})

	return nil
}

// submitAndPoll 提交构建并轮询至终态
func (s *DeployService) submitAndPoll(ctx context.Context, deploymentID int64) {
	log := s.logger.With(zap.Int64("deployment_id", deploymentID))

	dep, err := s.depRepo.FindByID(deploymentID)
	if err != nil {
		log.Error("查询部署记录失败", zap.Error(err))
		return
	}
	project := dep.Project
	if project == nil {
		log.Error("部署记录缺少项目信息")
		return
	}

	req, err := s.buildSubmitRequest(project, dep)
	if err != nil {
		log.Error("构建请求组装失败", zap.Error(err))
		s.markSubmitFailed(ctx, deploymentID, "Build submission failed: "+err.Error())
		return
	}

	result, err := s.builder.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("部署在提交前被取消")
			return
		}
		log.Error("构建提交失败", zap.Error(err))
		s.markSubmitFailed(ctx, deploymentID, "Build submission failed: "+err.Error())
		return
	}

	err = s.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusBuilding, func(d *model.Deployment) {
		d.BuildID = &result.BuildID
		if result.LogURL != "" {
			d.LogURL = &result.LogURL
		}
	})
	if err != nil {
		if errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
			log.Info("部署已进入终态,不再轮询")
			return
		}
		log.Error("写入构建信息失败", zap.Error(err))
		return
	}

	log.Info("构建已提交",
		zap.String("build_id", result.BuildID),
		zap.String("log_url", result.LogURL))

	s.poller.Poll(ctx, deploymentID, result.BuildID)
}

// buildSubmitRequest 组装构建提交请求
// 环境变量解析与框架预设补全都在此处完成，凭证只进请求体不进日志
func (s *DeployService) buildSubmitRequest(project *model.Project, dep *model.Deployment) (*build.SubmitRequest, error) {
	vars, err := s.envRepo.ListByProject(project.ID)
	if err != nil {
		return nil, err
	}

	buildEnv, runtimeEnv, err := s.envService.ResolveEnv(vars, dep.Environment)
	if err != nil {
		return nil, err
	}

	installCmd, buildCmd, outputDir := s.presets.Apply(
		project.Framework, project.InstallCommand, project.BuildCommand, project.OutputDir)

	var credential *string
	if project.RepoCredential != nil && *project.RepoCredential != "" {
		plaintext, err := crypto.Encrypted(*project.RepoCredential).Reveal()
		if err != nil {
			return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "仓库凭证解密失败", err)
		}
		credential = &plaintext
	}

	return &build.SubmitRequest{
		RepoFullName:   project.RepoFullName,
		CommitSHA:      dep.CommitSHA,
		Branch:         dep.Branch,
		ServiceName:    dep.Slug,
		Region:         project.Region,
		Framework:      project.Framework,
		InstallCommand: installCmd,
		BuildCommand:   buildCmd,
		OutputDir:      outputDir,
		BuildEnv:       buildEnv,
		RuntimeEnv:     runtimeEnv,
		CPU:            project.CPU,
		Memory:         project.Memory,
		RepoCredential: credential,
		IdempotencyKey: uuid.NewString(),
	}, nil
}

// markSubmitFailed 提交失败即时落终态并通知
func (s *DeployService) markSubmitFailed(ctx context.Context, deploymentID int64, reason string) {
	err := s.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusError, func(d *model.Deployment) {
		d.ErrorMessage = &reason
	})
	if err != nil {
		if !errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
			s.logger.Error("标记部署失败出错",
				zap.Int64("deployment_id", deploymentID),
				zap.Error(err))
		}
		return
	}

	dep, err := s.depRepo.FindByID(deploymentID)
	if err != nil {
		return
	}
	if dep.Project != nil {
		s.fanout.NotifyFailure(ctx, dep, dep.Project, reason)
	}
}

// Cancel 取消部署
// 仅 queued/building 阶段可取消，deploying 之后已是不可中断的上线阶段
func (s *DeployService) Cancel(deploymentID int64, actor string) (*dto.DeploymentResponse, error) {
	dep, err := s.depRepo.FindByID(deploymentID)
	if err != nil {
		return nil, err
	}

	if dep.Status.Terminal() {
		return nil, pkgErrors.ErrDeploymentTerminal
	}
	if !dep.Status.CanTransitionTo(model.DeploymentStatusCancelled) {
		return nil, pkgErrors.ErrInvalidTransition
	}

	// 先停轮询协程，再落取消状态
	s.registry.Cancel(deploymentID)

	if err := s.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusCancelled, nil); err != nil {
		return nil, err
	}

	s.writeAudit(dep.ProjectID, &dep.ID, constants.AuditActionDeploymentCancel, actor, map[string]interface{}{
		"commit_sha":  dep.CommitSHA,
		"from_status": string(dep.Status),
	})

	s.logger.Info("部署已取消",
		zap.Int64("deployment_id", deploymentID),
		zap.String("actor", actor))

	dep, err = s.depRepo.FindByID(deploymentID)
	if err != nil {
		return nil, err
	}
	return dto.NewDeploymentResponse(dep), nil
}

// Rollback 回滚：把服务流量全量切回目标部署的 revision
// 生成一条新的 ready 部署记录承载此次切换，不复用旧记录
func (s *DeployService) Rollback(ctx context.Context, deploymentID int64, actor string) (*dto.DeploymentResponse, error) {
	target, err := s.depRepo.FindByID(deploymentID)
	if err != nil {
		return nil, err
	}

	if target.Status != model.DeploymentStatusReady || target.Revision == nil || *target.Revision == "" {
		return nil, pkgErrors.ErrRollbackNotReady
	}
	project := target.Project
	if project == nil {
		return nil, pkgErrors.ErrProjectNotFound
	}

	// 平台切流先行，失败则不落任何记录
	if err := s.platform.SetTraffic(ctx, target.Slug, *target.Revision, 100); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeUpstreamError, "流量切换失败", err)
	}

	dep := &model.Deployment{
		ProjectID:     target.ProjectID,
		Type:          target.Type,
		Slug:          target.Slug,
		Branch:        target.Branch,
		CommitSHA:     target.CommitSHA,
		CommitMessage: target.CommitMessage,
		CommitAuthor:  target.CommitAuthor,
		PRNumber:      target.PRNumber,
		Status:        model.DeploymentStatusReady,
		Environment:   target.Environment,
		Revision:      target.Revision,
		URL:           target.URL,
		Aliases:       datatypes.JSONSlice[string]{},
	}
	if err := s.depRepo.Create(dep); err != nil {
		return nil, err
	}

	s.writeAudit(target.ProjectID, &dep.ID, constants.AuditActionRollback, actor, map[string]interface{}{
		"rollback_to":   deploymentID,
		"revision":      *target.Revision,
		"commit_sha":    target.CommitSHA,
		"new_deployment": dep.ID,
	})

	s.logger.Info("回滚完成",
		zap.Int64("rollback_to", deploymentID),
		zap.Int64("new_deployment_id", dep.ID),
		zap.String("revision", *target.Revision),
		zap.String("actor", actor))

	s.fanout.NotifyRollback(ctx, dep, project)

	return dto.NewDeploymentResponse(dep), nil
}

// List 分页查询项目的部署记录
// 非终态记录按构建服务的实时状态刷新展示阶段
func (s *DeployService) List(ctx context.Context, query *dto.DeploymentListQuery) (*dto.PageResponse, error) {
	deps, total, err := s.depRepo.List(query)
	if err != nil {
		return nil, err
	}

	for _, d := range deps {
		s.syncLiveStatus(ctx, d)
	}

	items := lo.Map(deps, func(d *model.Deployment, _ int) *dto.DeploymentResponse {
		return dto.NewDeploymentResponse(d)
	})

	return dto.NewPageResponse(items, total, query.GetPage(), query.GetPageSize()), nil
}

// Get 部署详情
func (s *DeployService) Get(ctx context.Context, id int64) (*dto.DeploymentResponse, error) {
	dep, err := s.depRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.syncLiveStatus(ctx, dep)
	return dto.NewDeploymentResponse(dep), nil
}

// syncLiveStatus 按构建服务的实时状态刷新 building/deploying 展示阶段
// 终态收敛只由轮询协程负责，这里仅同步 WORKING 的阶段细分；
// 查询失败静默降级为落库状态
func (s *DeployService) syncLiveStatus(ctx context.Context, dep *model.Deployment) {
	if dep.Status.Terminal() || dep.BuildID == nil {
		return
	}

	res, err := s.builder.Status(ctx, *dep.BuildID)
	if err != nil {
		s.logger.Debug("实时构建状态查询失败",
			zap.Int64("deployment_id", dep.ID),
			zap.Error(err))
		return
	}
	if res.Status != build.StatusWorking {
		return
	}

	want := model.DeploymentStatusBuilding
	if res.Phase == build.PhaseDeploy {
		want = model.DeploymentStatusDeploying
	}
	if dep.Status == want {
		return
	}

	if err := s.depRepo.UpdateStatus(dep.ID, want, nil); err != nil {
		if !errors.Is(err, pkgErrors.ErrDeploymentTerminal) && !errors.Is(err, pkgErrors.ErrInvalidTransition) {
			s.logger.Warn("同步实时构建状态失败",
				zap.Int64("deployment_id", dep.ID),
				zap.Error(err))
		}
		return
	}
	dep.Status = want
}

// ListAuditLogs 项目审计日志（倒序）
func (s *DeployService) ListAuditLogs(projectID int64, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.auditRepo.ListByProject(projectID, limit)
}

// teardownPreview 回收 PR 预览环境
// 进行中的部署先取消，再删除平台上的预览服务
func (s *DeployService) teardownPreview(project *model.Project, prNumber int) error {
	slug := PreviewSlug(project.Slug, prNumber)

	active, err := s.depRepo.ListActiveBySlug(project.ID, slug)
	if err != nil {
		return err
	}
	for _, dep := range active {
		s.registry.Cancel(dep.ID)
		if err := s.depRepo.UpdateStatus(dep.ID, model.DeploymentStatusCancelled, nil); err != nil {
			if !errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
				s.logger.Warn("取消预览部署失败",
					zap.Int64("deployment_id", dep.ID),
					zap.Error(err))
			}
		}
	}

	ctx := context.Background()
	if err := s.platform.DeleteService(ctx, slug); err != nil {
		// 服务可能从未成功创建
		s.logger.Warn("删除预览服务失败",
			zap.String("slug", slug),
			zap.Error(err))
	}

	s.logger.Info("预览环境已回收",
		zap.Int64("project_id", project.ID),
		zap.Int("pr_number", prNumber),
		zap.String("slug", slug))
	return nil
}

// writeAudit 审计日志写入失败不影响主流程
func (s *DeployService) writeAudit(projectID int64, deploymentID *int64, action, actor string, detail map[string]interface{}) {
	entry := &model.AuditLog{
		ProjectID:    projectID,
		DeploymentID: deploymentID,
		Action:       action,
		Actor:        actor,
		Detail:       datatypes.JSONMap(detail),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.Warn("审计日志写入失败",
			zap.String("action", action),
			zap.Error(err))
	}
}

// updateCommitStatus commit status 更新失败不影响主流程
func (s *DeployService) updateCommitStatus(project *model.Project, dep *model.Deployment, state gitApi.CommitState, description, targetURL string) {
	if s.gitProvider == nil {
		return
	}
	status := &gitApi.CommitStatus{
		State:       state,
		TargetURL:   targetURL,
		Description: description,
		Context:     constants.CommitStatusContext,
	}
	if err := s.gitProvider.CreateCommitStatus(context.Background(), project.RepoFullName, dep.CommitSHA, status); err != nil {
		s.logger.Warn("commit status 更新失败",
			zap.String("repo", project.RepoFullName),
			zap.String("sha", dep.CommitSHA),
			zap.Error(err))
	}
}
