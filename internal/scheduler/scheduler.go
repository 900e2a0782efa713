package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paas-cd/internal/model"
	"paas-cd/internal/pkg/config"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
)

// Scheduler 调度器
// 清扫滞留在非终态的部署记录：轮询协程随进程丢失后，这些记录不会再有人推进
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	depRepo       repository.DeploymentRepository
	maxAge        time.Duration
	cronSchedules map[string]cron.EntryID
}

// NewScheduler 创建调度器
func NewScheduler(db *gorm.DB, logger *zap.Logger, cfg *config.Config) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	maxAge := 2 * time.Hour
	if d, err := time.ParseDuration(cfg.Sweep.MaxAge); err == nil && d > 0 {
		maxAge = d
	}

	return &Scheduler{
		cron:          c,
		logger:        logger,
		depRepo:       repository.NewDeploymentRepository(db),
		maxAge:        maxAge,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.Config) error {
	log := s.logger.Sugar()

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.Sweep.Cron
	if cronExpr == "" {
		cronExpr = "0 */10 * * * *" // 默认: 每10分钟
		log.Warn("未配置sweep.cron，使用默认值", zap.String("cron", cronExpr))
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.SweepStuckDeployments()
	})
	if err != nil {
		log.Errorf("注册滞留部署清扫任务失败: %v cron=%v", err, cronExpr)
		return err
	}

	s.cronSchedules["deployment_sweep"] = entryID
	log.Infof("滞留部署清扫任务已注册: %s entry_id=%d", cronExpr, entryID)

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// SweepStuckDeployments 将超龄的非终态部署标记为失败
func (s *Scheduler) SweepStuckDeployments() {
	cutoff := time.Now().Add(-s.maxAge)
	stuck, err := s.depRepo.ListStuck(cutoff)
	if err != nil {
		s.logger.Error("查询滞留部署失败", zap.Error(err))
		return
	}
	if len(stuck) == 0 {
		return
	}

	s.logger.Info("开始清扫滞留部署", zap.Int("count", len(stuck)))

	for _, dep := range stuck {
		message := constants.BuildTimedOutMessage
		err := s.depRepo.UpdateStatus(dep.ID, model.DeploymentStatusError, func(d *model.Deployment) {
			d.ErrorMessage = &message
		})
		if err != nil {
			s.logger.Warn("滞留部署清扫失败",
				zap.Int64("deployment_id", dep.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("滞留部署已标记为失败",
			zap.Int64("deployment_id", dep.ID),
			zap.String("status", string(dep.Status)))
	}
}
