package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paas-cd/internal/adapter/notification"
	"paas-cd/internal/model"
	gitApi "paas-cd/internal/pkg/git/api"
	"paas-cd/pkg/constants"
)

// Fanout 部署结果的多通道通知分发
// 各通道相互独立，单通道失败不影响其余通道
type Fanout struct {
	notifiers   []notification.Notifier
	gitProvider gitApi.GitProvider
	logger      *zap.Logger
}

// NewFanout 创建通知分发器
func NewFanout(notifiers []notification.Notifier, gitProvider gitApi.GitProvider, logger *zap.Logger) *Fanout {
	return &Fanout{
		notifiers:   notifiers,
		gitProvider: gitProvider,
		logger:      logger,
	}
}

// NotifySuccess 部署成功的全通道分发
func (f *Fanout) NotifySuccess(ctx context.Context, dep *model.Deployment, project *model.Project) {
	url := ""
	if dep.URL != nil {
		url = *dep.URL
	}

	msg := &notification.NotificationMessage{
		Type:      notification.NotifyDeploySuccess,
		Title:     fmt.Sprintf("✅ 部署成功: %s", project.Name),
		Content:   f.buildSuccessContent(dep, project, url),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"deployment_id": dep.ID,
			"url":           url,
		},
	}
	f.send(ctx, msg)

	f.updateCommitStatus(ctx, dep, project, gitApi.CommitStateSuccess, "Deployment succeeded", url)

	// 预览部署在 PR 下回帖预览地址
	if f.gitProvider != nil && dep.Type == constants.DeploymentTypePreview && dep.PRNumber != nil && url != "" {
		body := fmt.Sprintf("🚀 预览环境已就绪\n\n| 分支 | 提交 | 预览地址 |\n|---|---|---|\n| `%s` | `%s` | %s |",
			dep.Branch, shortSHA(dep.CommitSHA), url)
		if err := f.gitProvider.CreatePullRequestComment(ctx, project.RepoFullName, *dep.PRNumber, body); err != nil {
			f.logger.Warn("PR评论发送失败",
				zap.Int64("deployment_id", dep.ID),
				zap.Int("pr_number", *dep.PRNumber),
				zap.Error(err))
		}
	}
}

// NotifyFailure 部署失败的全通道分发
func (f *Fanout) NotifyFailure(ctx context.Context, dep *model.Deployment, project *model.Project, reason string) {
	logURL := ""
	if dep.LogURL != nil {
		logURL = *dep.LogURL
	}

	msg := &notification.NotificationMessage{
		Type:      notification.NotifyDeployFailed,
		Title:     fmt.Sprintf("❌ 部署失败: %s", project.Name),
		Content:   f.buildFailureContent(dep, project, reason, logURL),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"deployment_id": dep.ID,
			"reason":        reason,
		},
	}
	f.send(ctx, msg)

	f.updateCommitStatus(ctx, dep, project, gitApi.CommitStateFailure, reason, logURL)
}

// NotifyRollback 回滚完成的通知
func (f *Fanout) NotifyRollback(ctx context.Context, dep *model.Deployment, project *model.Project) {
	msg := &notification.NotificationMessage{
		Type:      notification.NotifyRollback,
		Title:     fmt.Sprintf("↩️ 回滚完成: %s", project.Name),
		Content:   fmt.Sprintf("**项目**: %s\n**提交**: `%s`\n**分支**: %s", project.Name, shortSHA(dep.CommitSHA), dep.Branch),
		Timestamp: time.Now(),
	}
	f.send(ctx, msg)
}

func (f *Fanout) send(ctx context.Context, msg *notification.NotificationMessage) {
	for _, n := range f.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			f.logger.Warn("通知发送失败",
				zap.String("type", string(msg.Type)),
				zap.Error(err))
		}
	}
}

func (f *Fanout) updateCommitStatus(ctx context.Context, dep *model.Deployment, project *model.Project, state gitApi.CommitState, description, targetURL string) {
	if f.gitProvider == nil {
		return
	}
	status := &gitApi.CommitStatus{
		State:       state,
		TargetURL:   targetURL,
		Description: truncate(description, 140),
		Context:     constants.CommitStatusContext,
	}
	if err := f.gitProvider.CreateCommitStatus(ctx, project.RepoFullName, dep.CommitSHA, status); err != nil {
		f.logger.Warn("commit status 更新失败",
			zap.String("repo", project.RepoFullName),
			zap.String("sha", dep.CommitSHA),
			zap.Error(err))
	}
}

func (f *Fanout) buildSuccessContent(dep *model.Deployment, project *model.Project, url string) string {
	content := fmt.Sprintf("**项目**: %s\n**环境**: %s\n**分支**: %s\n**提交**: `%s` %s",
		project.Name, dep.Environment, dep.Branch, shortSHA(dep.CommitSHA), dep.CommitMessage)
	if url != "" {
		content += fmt.Sprintf("\n**地址**: %s", url)
	}
	if dep.BuildDurationMs > 0 {
		content += fmt.Sprintf("\n**构建耗时**: %.1fs", float64(dep.BuildDurationMs)/1000)
	}
	return content
}

func (f *Fanout) buildFailureContent(dep *model.Deployment, project *model.Project, reason, logURL string) string {
	content := fmt.Sprintf("**项目**: %s\n**环境**: %s\n**分支**: %s\n**提交**: `%s`\n**原因**: %s",
		project.Name, dep.Environment, dep.Branch, shortSHA(dep.CommitSHA), reason)
	if logURL != "" {
		content += fmt.Sprintf("\n**构建日志**: %s", logURL)
	}
	return content
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
