package service

import (
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/pkg/constants"
	"paas-cd/pkg/utils"
)

// DeploymentIntent 仓库事件分类出的部署意图
type DeploymentIntent struct {
	Type        string // production/branch/preview
	Environment string // production/preview
	Slug        string // 托管平台服务名
	Branch      string
	CommitSHA   string
	CommitMsg   string
	CommitBy    string
	PRNumber    *int
}

// ClassifierService 仓库事件分类
// 决定一次 push / pull_request 事件是否触发部署，以及部署的类型与目标环境
type ClassifierService struct {
	logger *zap.Logger
}

// NewClassifierService 创建分类服务
func NewClassifierService(logger *zap.Logger) *ClassifierService {
	return &ClassifierService{logger: logger}
}

// ShouldAutoDeploy 分支是否在自动部署范围内
func (s *ClassifierService) ShouldAutoDeploy(project *model.Project, branch string) bool {
	return branch == project.DefaultBranch || lo.Contains(project.AutodeployBranches, branch)
}

// ClassifyPush 分类 push 事件，返回 nil 表示不触发部署
func (s *ClassifierService) ClassifyPush(project *model.Project, event *dto.PushEvent) *DeploymentIntent {
	// 分支删除推送没有 head_commit
	if event.Deleted || event.HeadCommit.ID == "" {
		return nil
	}

	branch := event.Branch()
	if !s.ShouldAutoDeploy(project, branch) {
		s.logger.Debug("分支不在自动部署范围,跳过",
			zap.String("repo", project.RepoFullName),
			zap.String("branch", branch))
		return nil
	}

	intent := &DeploymentIntent{
		Branch:    branch,
		CommitSHA: event.HeadCommit.ID,
		CommitMsg: event.HeadCommit.Message,
		CommitBy:  event.HeadCommit.Author.Username,
	}
	if intent.CommitBy == "" {
		intent.CommitBy = event.HeadCommit.Author.Name
	}

	if branch == project.DefaultBranch {
		intent.Type = constants.DeploymentTypeProduction
		intent.Environment = constants.EnvironmentProduction
		intent.Slug = project.Slug
		return intent
	}

	// 非默认分支部署到独立服务，环境默认为 preview，可被分支级配置覆盖
	intent.Type = constants.DeploymentTypeBranch
	intent.Environment = constants.EnvironmentPreview
	if env, ok := project.BranchEnvironments[branch]; ok {
		if envStr, ok := env.(string); ok && envStr == constants.EnvironmentProduction {
			intent.Environment = constants.EnvironmentProduction
		}
	}
	intent.Slug = branchSlug(project.Slug, branch)
	return intent
}

// ClassifyPullRequest 分类 pull_request 事件，返回 nil 表示不触发部署
// closed 动作不产生部署意图，由调用方走预览环境回收
func (s *ClassifierService) ClassifyPullRequest(project *model.Project, event *dto.PullRequestEvent) *DeploymentIntent {
	switch event.Action {
	case constants.PRActionOpened, constants.PRActionSynchronize, constants.PRActionReopened:
	default:
		return nil
	}

	if !project.PRDeployEnabled() {
		s.logger.Debug("项目已关闭PR预览部署,跳过",
			zap.String("repo", project.RepoFullName),
			zap.Int("pr_number", event.Number))
		return nil
	}

	number := event.Number
	return &DeploymentIntent{
		Type:        constants.DeploymentTypePreview,
		Environment: constants.EnvironmentPreview,
		Slug:        PreviewSlug(project.Slug, number),
		Branch:      event.PullRequest.Head.Ref,
		CommitSHA:   event.PullRequest.Head.SHA,
		CommitMsg:   event.PullRequest.Title,
		CommitBy:    event.PullRequest.User.Login,
		PRNumber:    &number,
	}
}

// PreviewSlug PR 预览服务名
func PreviewSlug(projectSlug string, prNumber int) string {
	return truncateSlug(fmt.Sprintf("%s-pr-%d", projectSlug, prNumber))
}

// branchSlug 分支服务名
func branchSlug(projectSlug, branch string) string {
	return truncateSlug(projectSlug + "-" + utils.Slugify(branch))
}

// truncateSlug 截断到DNS标签长度上限，去掉截断后的尾部连字符
func truncateSlug(s string) string {
	if len(s) > constants.AliasMaxLength {
		s = s[:constants.AliasMaxLength]
	}
	for len(s) > 0 && s[len(s)-1] == '-' {
		s = s[:len(s)-1]
	}
	return s
}
