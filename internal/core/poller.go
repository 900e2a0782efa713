package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"paas-cd/internal/adapter/audit"
	"paas-cd/internal/adapter/build"
	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/model"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
	pkgErrors "paas-cd/pkg/errors"
)

// PollerOptions 轮询参数
type PollerOptions struct {
	GracePeriod  time.Duration // 首次轮询前的等待
	PollInterval time.Duration // 轮询间隔
	MaxPolls     int           // 轮询次数上限
}

// DefaultPollerOptions 默认轮询参数
func DefaultPollerOptions() PollerOptions {
	return PollerOptions{
		GracePeriod:  constants.PollGracePeriodSeconds * time.Second,
		PollInterval: constants.PollIntervalSeconds * time.Second,
		MaxPolls:     constants.PollMaxCount,
	}
}

// BuildPoller 构建状态轮询器
// 跟踪外部构建服务上的一次构建，将其状态同步到部署记录，
// 构建成功后完成上线收尾（查询 revision 与地址、记录耗时、触发审计与通知）
type BuildPoller struct {
	depRepo     repository.DeploymentRepository
	projectRepo repository.ProjectRepository
	builder     build.Builder
	platform    serving.Platform
	auditor     audit.Auditor
	fanout      *Fanout
	opts        PollerOptions
	logger      *zap.Logger
}

// NewBuildPoller 创建轮询器
func NewBuildPoller(
	depRepo repository.DeploymentRepository,
	projectRepo repository.ProjectRepository,
	builder build.Builder,
	platform serving.Platform,
	auditor audit.Auditor,
	fanout *Fanout,
	opts PollerOptions,
	logger *zap.Logger,
) *BuildPoller {
	return &BuildPoller{
		depRepo:     depRepo,
		projectRepo: projectRepo,
		builder:     builder,
		platform:    platform,
		auditor:     auditor,
		fanout:      fanout,
		opts:        opts,
		logger:      logger,
	}
}

// Poll 轮询指定构建直到终态或超限
// 构建服务的瞬时查询错误不计为失败，静默跳过本轮；
// 达到轮询上限仍未终态时，部署标记为失败
func (p *BuildPoller) Poll(ctx context.Context, deploymentID int64, buildID string) {
	log := p.logger.With(
		zap.Int64("deployment_id", deploymentID),
		zap.String("build_id", buildID))

	// 提交后的宽限期，此时构建服务侧记录可能尚未可查
	if !p.sleep(ctx, p.opts.GracePeriod) {
		log.Info("轮询被取消")
		return
	}

	for i := 0; i < p.opts.MaxPolls; i++ {
		if i > 0 {
			if !p.sleep(ctx, p.opts.PollInterval) {
				log.Info("轮询被取消")
				return
			}
		}

		res, err := p.builder.Status(ctx, buildID)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("轮询被取消")
				return
			}
			// 瞬时查询失败不终止轮询
			log.Warn("构建状态查询失败,跳过本轮", zap.Error(err))
			continue
		}

		switch res.Status {
		case build.StatusQueued:
			// 构建尚未开始，保持现状

		case build.StatusWorking:
			target := model.DeploymentStatusBuilding
			if res.Phase == build.PhaseDeploy {
				target = model.DeploymentStatusDeploying
			}
			if err := p.depRepo.UpdateStatus(deploymentID, target, nil); err != nil {
				if errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
					log.Info("部署已进入终态,停止轮询")
					return
				}
				log.Warn("状态同步失败", zap.Error(err))
			}

		case build.StatusSuccess:
			p.finalize(ctx, deploymentID, res, log)
			return

		case build.StatusFailure:
			p.fail(ctx, deploymentID, "Build failed", log)
			return

		case build.StatusTimeout:
			p.fail(ctx, deploymentID, constants.BuildTimedOutMessage, log)
			return

		case build.StatusCancelled:
			if err := p.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusCancelled, nil); err != nil {
				if !errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
					log.Warn("取消状态同步失败", zap.Error(err))
				}
			}
			return
		}
	}

	log.Warn("轮询次数超限,部署标记为失败")
	p.fail(ctx, deploymentID, constants.BuildTimedOutMessage, log)
}

// finalize 构建成功后的上线收尾
func (p *BuildPoller) finalize(ctx context.Context, deploymentID int64, res *build.StatusResult, log *zap.Logger) {
	dep, err := p.depRepo.FindByID(deploymentID)
	if err != nil {
		log.Error("查询部署记录失败", zap.Error(err))
		return
	}

	svc, err := p.platform.GetService(ctx, dep.Slug)
	if err != nil {
		p.fail(ctx, deploymentID, "服务查询失败: "+err.Error(), log)
		return
	}

	now := time.Now()
	durationMs := res.DurationMs()
	err = p.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusReady, func(d *model.Deployment) {
		d.Revision = &svc.Revision
		d.URL = &svc.URL
		d.ReadyAt = &now
		d.BuildDurationMs = durationMs
	})
	if err != nil {
		if errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
			log.Info("部署已进入终态,放弃收尾")
			return
		}
		log.Error("标记部署就绪失败", zap.Error(err))
		return
	}

	log.Info("部署成功",
		zap.String("revision", svc.Revision),
		zap.String("url", svc.URL),
		zap.Int64("duration_ms", durationMs))

	// 生产部署刷新项目的生产地址
	if dep.Type == constants.DeploymentTypeProduction {
		if err := p.projectRepo.UpdateProductionURL(dep.ProjectID, svc.URL); err != nil {
			log.Warn("更新生产地址失败", zap.Error(err))
		}
	}

	dep, err = p.depRepo.FindByID(deploymentID)
	if err != nil {
		log.Error("重读部署记录失败", zap.Error(err))
		return
	}

	if dep.Project != nil {
		p.fanout.NotifySuccess(ctx, dep, dep.Project)
	}

	// 性能审计异步执行，结果仅附加在部署记录上
	if p.auditor != nil && svc.URL != "" {
		go p.runAudit(deploymentID, svc.URL, log)
	}
}

// fail 部署标记为失败并分发通知
func (p *BuildPoller) fail(ctx context.Context, deploymentID int64, reason string, log *zap.Logger) {
	err := p.depRepo.UpdateStatus(deploymentID, model.DeploymentStatusError, func(d *model.Deployment) {
		d.ErrorMessage = &reason
	})
	if err != nil {
		if errors.Is(err, pkgErrors.ErrDeploymentTerminal) {
			log.Info("部署已进入终态,跳过失败标记")
			return
		}
		log.Error("标记部署失败出错", zap.Error(err))
		return
	}

	log.Info("部署失败", zap.String("reason", reason))

	dep, err := p.depRepo.FindByID(deploymentID)
	if err != nil {
		log.Error("查询部署记录失败", zap.Error(err))
		return
	}
	if dep.Project != nil {
		p.fanout.NotifyFailure(ctx, dep, dep.Project, reason)
	}
}

// runAudit 执行性能审计并回写结果
func (p *BuildPoller) runAudit(deploymentID int64, url string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	report, err := p.auditor.Run(ctx, url)
	if err != nil {
		log.Warn("性能审计失败", zap.Error(err))
		return
	}

	result := map[string]interface{}{
		"score": report.Score,
	}
	if report.ReportURL != "" {
		result["report_url"] = report.ReportURL
	}
	for k, v := range report.Metrics {
		result[k] = v
	}

	if err := p.depRepo.UpdateAuditResult(deploymentID, result); err != nil {
		log.Warn("审计结果写入失败", zap.Error(err))
	}
}

// sleep 可取消的等待，返回是否正常结束
func (p *BuildPoller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
