package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/pkg/constants"
)

func classifierProject() *model.Project {
	p := &model.Project{
		Name:               "demo",
		Slug:               "demo",
		RepoFullName:       "acme/demo",
		DefaultBranch:      "main",
		AutodeployBranches: datatypes.NewJSONSlice([]string{"staging", "release/v2"}),
	}
	p.ID = 1
	return p
}

func pushEvent(ref, sha string) *dto.PushEvent {
	event := &dto.PushEvent{Ref: ref}
	event.HeadCommit.ID = sha
	event.HeadCommit.Message = "feat: something"
	event.HeadCommit.Author.Username = "alice"
	event.Repository.FullName = "acme/demo"
	return event
}

func TestClassifyPushDefaultBranch(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	intent := svc.ClassifyPush(classifierProject(), pushEvent("refs/heads/main", "abc1234"))

	require.NotNil(t, intent)
	assert.Equal(t, constants.DeploymentTypeProduction, intent.Type)
	assert.Equal(t, constants.EnvironmentProduction, intent.Environment)
	assert.Equal(t, "demo", intent.Slug)
	assert.Equal(t, "main", intent.Branch)
	assert.Equal(t, "abc1234", intent.CommitSHA)
	assert.Equal(t, "alice", intent.CommitBy)
	assert.Nil(t, intent.PRNumber)
}

func TestClassifyPushAutodeployBranch(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	intent := svc.ClassifyPush(classifierProject(), pushEvent("refs/heads/release/v2", "abc1234"))

	require.NotNil(t, intent)
	assert.Equal(t, constants.DeploymentTypeBranch, intent.Type)
	assert.Equal(t, constants.EnvironmentPreview, intent.Environment)
	assert.Equal(t, "demo-release-v2", intent.Slug)
}

func TestClassifyPushBranchEnvironmentOverride(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	project := classifierProject()
	project.BranchEnvironments = datatypes.JSONMap{"staging": "production"}

	intent := svc.ClassifyPush(project, pushEvent("refs/heads/staging", "abc1234"))

	require.NotNil(t, intent)
	assert.Equal(t, constants.DeploymentTypeBranch, intent.Type)
	assert.Equal(t, constants.EnvironmentProduction, intent.Environment)
}

func TestShouldAutoDeploy(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())

	cases := []struct {
		name     string
		branches []string
		branch   string
		want     bool
	}{
		{"默认分支始终允许", nil, "main", true},
		{"空白名单时非默认分支不部署", nil, "develop", false},
		{"白名单命中", []string{"staging"}, "staging", true},
		{"白名单未命中", []string{"staging"}, "develop", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			project := classifierProject()
			project.AutodeployBranches = datatypes.NewJSONSlice(tc.branches)
			assert.Equal(t, tc.want, svc.ShouldAutoDeploy(project, tc.branch))
		})
	}
}

func TestClassifyPushEmptyAllowListDefaultBranchOnly(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	project := classifierProject()
	project.AutodeployBranches = nil

	// 默认分支照常走生产部署
	intent := svc.ClassifyPush(project, pushEvent("refs/heads/main", "abc1234"))
	require.NotNil(t, intent)
	assert.Equal(t, constants.DeploymentTypeProduction, intent.Type)

	// 其余分支一律不触发
	assert.Nil(t, svc.ClassifyPush(project, pushEvent("refs/heads/develop", "abc1234")))
	assert.Nil(t, svc.ClassifyPush(project, pushEvent("refs/heads/staging", "abc1234")))
}

func TestClassifyPushSkipsUnknownBranch(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	assert.Nil(t, svc.ClassifyPush(classifierProject(), pushEvent("refs/heads/feature/x", "abc1234")))
}

func TestClassifyPushSkipsBranchDeletion(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())

	deleted := pushEvent("refs/heads/main", "abc1234")
	deleted.Deleted = true
	assert.Nil(t, svc.ClassifyPush(classifierProject(), deleted))

	// 删除推送也可能表现为空 head_commit
	assert.Nil(t, svc.ClassifyPush(classifierProject(), pushEvent("refs/heads/main", "")))
}

func TestClassifyPushCommitByFallsBackToName(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	event := pushEvent("refs/heads/main", "abc1234")
	event.HeadCommit.Author.Username = ""
	event.HeadCommit.Author.Name = "Alice Liu"

	intent := svc.ClassifyPush(classifierProject(), event)
	require.NotNil(t, intent)
	assert.Equal(t, "Alice Liu", intent.CommitBy)
}

func prEvent(action string, number int) *dto.PullRequestEvent {
	event := &dto.PullRequestEvent{Action: action, Number: number}
	event.PullRequest.Title = "Add feature"
	event.PullRequest.Head.Ref = "feature/x"
	event.PullRequest.Head.SHA = "def5678"
	event.PullRequest.User.Login = "bob"
	event.Repository.FullName = "acme/demo"
	return event
}

func TestClassifyPullRequestOpened(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	intent := svc.ClassifyPullRequest(classifierProject(), prEvent("opened", 7))

	require.NotNil(t, intent)
	assert.Equal(t, constants.DeploymentTypePreview, intent.Type)
	assert.Equal(t, constants.EnvironmentPreview, intent.Environment)
	assert.Equal(t, "demo-pr-7", intent.Slug)
	assert.Equal(t, "feature/x", intent.Branch)
	assert.Equal(t, "def5678", intent.CommitSHA)
	assert.Equal(t, "bob", intent.CommitBy)
	require.NotNil(t, intent.PRNumber)
	assert.Equal(t, 7, *intent.PRNumber)
}

func TestClassifyPullRequestIgnoredActions(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	for _, action := range []string{"closed", "labeled", "assigned"} {
		assert.Nil(t, svc.ClassifyPullRequest(classifierProject(), prEvent(action, 7)), action)
	}
}

func TestClassifyPullRequestDisabled(t *testing.T) {
	svc := NewClassifierService(zap.NewNop())
	project := classifierProject()
	disabled := false
	project.AutoDeployPRs = &disabled

	assert.Nil(t, svc.ClassifyPullRequest(project, prEvent("opened", 7)))
}

func TestPreviewSlugTruncation(t *testing.T) {
	long := strings.Repeat("a", 70)
	slug := PreviewSlug(long, 12)
	assert.LessOrEqual(t, len(slug), constants.AliasMaxLength)
	assert.NotEqual(t, byte('-'), slug[len(slug)-1])
}
