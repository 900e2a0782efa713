package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paas-cd/internal/adapter/build"
	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/core"
	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/internal/pkg/framework"
	pkgErrors "paas-cd/pkg/errors"
)

type deployFixture struct {
	svc       *DeployService
	depRepo   *fakeDeploymentRepo
	projRepo  *fakeProjectRepo
	auditRepo *fakeAuditRepo
	envRepo   *fakeEnvRepo
	builder   *build.MockBuilder
	platform  *serving.MockPlatform
	registry  *core.PollerRegistry
}

func newDeployFixture(t *testing.T) *deployFixture {
	t.Helper()

	project := classifierProject()
	depRepo := newFakeDeploymentRepo(project)
	projRepo := newFakeProjectRepo(project)
	auditRepo := newFakeAuditRepo()
	envRepo := newFakeEnvRepo()
	builder := build.NewMockBuilder()
	platform := serving.NewMockPlatform().
		AddService("demo", "demo-00042", "https://demo.example.com").
		AddService("demo-pr-7", "demo-pr-7-00001", "https://demo-pr-7.example.com")
	registry := core.NewPollerRegistry()
	t.Cleanup(registry.Stop)

	nop := zap.NewNop()
	fanout := core.NewFanout(nil, nil, nop)
	opts := core.PollerOptions{GracePeriod: time.Millisecond, PollInterval: time.Millisecond, MaxPolls: 10}
	poller := core.NewBuildPoller(depRepo, projRepo, builder, platform, nil, fanout, opts, nop)

	svc := NewDeployService(
		projRepo, depRepo, auditRepo, envRepo,
		NewClassifierService(nop), NewEnvService(envRepo, projRepo, nop),
		builder, platform, registry, poller, fanout,
		nil, framework.Presets{}, nop)

	return &deployFixture{
		svc:       svc,
		depRepo:   depRepo,
		projRepo:  projRepo,
		auditRepo: auditRepo,
		envRepo:   envRepo,
		builder:   builder,
		platform:  platform,
		registry:  registry,
	}
}

func (f *deployFixture) waitStatus(t *testing.T, id int64, want model.DeploymentStatus) *model.Deployment {
	t.Helper()
	require.Eventually(t, func() bool {
		dep := f.depRepo.get(id)
		return dep != nil && dep.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return f.depRepo.get(id)
}

func TestHandlePushEventFullPipeline(t *testing.T) {
	f := newDeployFixture(t)

	require.NoError(t, f.svc.HandlePushEvent(pushEvent("refs/heads/main", "abc1234")))
	require.Equal(t, 1, f.depRepo.count())

	dep := f.waitStatus(t, 1, model.DeploymentStatusReady)
	assert.Equal(t, "production", dep.Type)
	assert.Equal(t, "demo", dep.Slug)
	require.NotNil(t, dep.Revision)
	assert.Equal(t, "demo-00042", *dep.Revision)
	require.NotNil(t, dep.URL)
	assert.Equal(t, "https://demo.example.com", *dep.URL)
	require.NotNil(t, dep.BuildID)

	assert.Equal(t, 1, f.builder.SubmitCalled())
	assert.Equal(t, "https://demo.example.com", f.projRepo.productionURLs[1])
	assert.Contains(t, f.auditRepo.actions(), "deployment.create")
}

func TestHandlePushEventUnregisteredRepo(t *testing.T) {
	f := newDeployFixture(t)

	event := pushEvent("refs/heads/main", "abc1234")
	event.Repository.FullName = "someone/else"

	require.NoError(t, f.svc.HandlePushEvent(event))
	assert.Zero(t, f.depRepo.count())
	assert.Zero(t, f.builder.SubmitCalled())
}

func TestHandlePushEventDeduplicatesActiveCommit(t *testing.T) {
	f := newDeployFixture(t)

	existing := &model.Deployment{
		ProjectID: 1,
		Type:      "production",
		Slug:      "demo",
		CommitSHA: "abc1234",
		Status:    model.DeploymentStatusBuilding,
	}
	require.NoError(t, f.depRepo.Create(existing))

	require.NoError(t, f.svc.HandlePushEvent(pushEvent("refs/heads/main", "abc1234")))
	assert.Equal(t, 1, f.depRepo.count())
	assert.Zero(t, f.builder.SubmitCalled())
}

func TestSubmitFailureMarksDeploymentError(t *testing.T) {
	f := newDeployFixture(t)
	f.builder.SetSubmitError(errors.New("quota exceeded"))

	require.NoError(t, f.svc.HandlePushEvent(pushEvent("refs/heads/main", "abc1234")))

	dep := f.waitStatus(t, 1, model.DeploymentStatusError)
	require.NotNil(t, dep.ErrorMessage)
	assert.Contains(t, *dep.ErrorMessage, "Build submission failed")
}

func TestSubmitRequestCarriesResolvedEnv(t *testing.T) {
	f := newDeployFixture(t)

	_, err := f.svc.envService.Create(&dto.CreateEnvVariableRequest{
		ProjectID: 1, Key: "API_TOKEN", Value: "s3cr3t", IsSecret: true, Target: "build",
	})
	require.NoError(t, err)
	_, err = f.svc.envService.Create(&dto.CreateEnvVariableRequest{
		ProjectID: 1, Key: "NODE_ENV", Value: "production", Target: "runtime",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.HandlePushEvent(pushEvent("refs/heads/main", "abc1234")))
	f.waitStatus(t, 1, model.DeploymentStatusReady)

	req := f.builder.LastSubmitRequest()
	require.NotNil(t, req)
	assert.Equal(t, "s3cr3t", req.BuildEnv["API_TOKEN"]) // 机密变量解密后注入
	assert.NotContains(t, req.RuntimeEnv, "API_TOKEN")
	assert.Equal(t, "production", req.RuntimeEnv["NODE_ENV"])
	assert.NotEmpty(t, req.IdempotencyKey)
}

func TestCancelQueuedDeployment(t *testing.T) {
	f := newDeployFixture(t)

	dep := &model.Deployment{ProjectID: 1, Slug: "demo", CommitSHA: "abc1234", Status: model.DeploymentStatusQueued}
	require.NoError(t, f.depRepo.Create(dep))

	resp, err := f.svc.Cancel(dep.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Contains(t, f.auditRepo.actions(), "deployment.cancel")
}

func TestCancelRejectsDeployingPhase(t *testing.T) {
	f := newDeployFixture(t)

	dep := &model.Deployment{ProjectID: 1, Slug: "demo", CommitSHA: "abc1234", Status: model.DeploymentStatusDeploying}
	require.NoError(t, f.depRepo.Create(dep))

	_, err := f.svc.Cancel(dep.ID, "alice")
	assert.ErrorIs(t, err, pkgErrors.ErrInvalidTransition)
	assert.Equal(t, model.DeploymentStatusDeploying, f.depRepo.get(dep.ID).Status)
}

func TestCancelRejectsTerminalDeployment(t *testing.T) {
	f := newDeployFixture(t)

	dep := &model.Deployment{ProjectID: 1, Slug: "demo", CommitSHA: "abc1234", Status: model.DeploymentStatusReady}
	require.NoError(t, f.depRepo.Create(dep))

	_, err := f.svc.Cancel(dep.ID, "alice")
	assert.ErrorIs(t, err, pkgErrors.ErrDeploymentTerminal)
}

func TestRollbackSwitchesTrafficAndCreatesRecord(t *testing.T) {
	f := newDeployFixture(t)

	revision := "demo-00041"
	url := "https://demo.example.com"
	target := &model.Deployment{
		ProjectID: 1,
		Type:      "production",
		Slug:      "demo",
		CommitSHA: "abc1234",
		Status:    model.DeploymentStatusReady,
		Revision:  &revision,
		URL:       &url,
	}
	require.NoError(t, f.depRepo.Create(target))

	resp, err := f.svc.Rollback(context.Background(), target.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "ready", resp.Status)
	assert.NotEqual(t, target.ID, resp.ID)
	require.NotNil(t, resp.Revision)
	assert.Equal(t, "demo-00041", *resp.Revision)

	calls := f.platform.TrafficCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "demo", calls[0].Service)
	assert.Equal(t, "demo-00041", calls[0].Revision)
	assert.Equal(t, 100, calls[0].Percent)

	assert.Contains(t, f.auditRepo.actions(), "deployment.rollback")
}

func TestRollbackRequiresReadyWithRevision(t *testing.T) {
	f := newDeployFixture(t)

	building := &model.Deployment{ProjectID: 1, Slug: "demo", CommitSHA: "abc1234", Status: model.DeploymentStatusBuilding}
	require.NoError(t, f.depRepo.Create(building))
	_, err := f.svc.Rollback(context.Background(), building.ID, "alice")
	assert.ErrorIs(t, err, pkgErrors.ErrRollbackNotReady)

	noRevision := &model.Deployment{ProjectID: 1, Slug: "demo", CommitSHA: "abc1234", Status: model.DeploymentStatusReady}
	require.NoError(t, f.depRepo.Create(noRevision))
	_, err = f.svc.Rollback(context.Background(), noRevision.ID, "alice")
	assert.ErrorIs(t, err, pkgErrors.ErrRollbackNotReady)

	assert.Empty(t, f.platform.TrafficCalls())
}

func TestRollbackTrafficFailureCreatesNoRecord(t *testing.T) {
	f := newDeployFixture(t)
	f.platform.SetTrafficError(errors.New("upstream down"))

	revision := "demo-00041"
	target := &model.Deployment{
		ProjectID: 1, Type: "production", Slug: "demo", CommitSHA: "abc1234",
		Status: model.DeploymentStatusReady, Revision: &revision,
	}
	require.NoError(t, f.depRepo.Create(target))

	_, err := f.svc.Rollback(context.Background(), target.ID, "alice")
	require.Error(t, err)
	assert.Equal(t, 1, f.depRepo.count())
}

func TestPullRequestOpenedCreatesPreview(t *testing.T) {
	f := newDeployFixture(t)

	require.NoError(t, f.svc.HandlePullRequestEvent(prEvent("opened", 7)))
	require.Equal(t, 1, f.depRepo.count())

	dep := f.waitStatus(t, 1, model.DeploymentStatusReady)
	assert.Equal(t, "preview", dep.Type)
	assert.Equal(t, "demo-pr-7", dep.Slug)
	require.NotNil(t, dep.PRNumber)
	assert.Equal(t, 7, *dep.PRNumber)

	// 预览部署不刷新生产地址
	assert.Empty(t, f.projRepo.productionURLs)
}

func TestListSyncsLivePhaseFromBuildService(t *testing.T) {
	f := newDeployFixture(t)
	f.builder.SetStatusSequence(build.StatusResult{Status: build.StatusWorking, Phase: build.PhaseDeploy})

	buildID := "b-1"
	dep := &model.Deployment{
		ProjectID: 1, Type: "production", Slug: "demo", CommitSHA: "abc1234",
		Status: model.DeploymentStatusBuilding, BuildID: &buildID,
	}
	require.NoError(t, f.depRepo.Create(dep))

	resp, err := f.svc.List(context.Background(), &dto.DeploymentListQuery{ProjectID: 1})
	require.NoError(t, err)

	items, ok := resp.Items.([]*dto.DeploymentResponse)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "deploying", items[0].Status)

	// 落库状态同步刷新
	assert.Equal(t, model.DeploymentStatusDeploying, f.depRepo.get(dep.ID).Status)
}

func TestGetSkipsSyncForTerminalDeployment(t *testing.T) {
	f := newDeployFixture(t)

	buildID := "b-2"
	dep := &model.Deployment{
		ProjectID: 1, Type: "production", Slug: "demo", CommitSHA: "abc1234",
		Status: model.DeploymentStatusReady, BuildID: &buildID,
	}
	require.NoError(t, f.depRepo.Create(dep))

	resp, err := f.svc.Get(context.Background(), dep.ID)
	require.NoError(t, err)
	assert.Equal(t, "ready", resp.Status)

	// 终态记录不查询构建服务
	assert.Zero(t, f.builder.StatusCalled(buildID))
}

func TestGetStatusQueryFailureKeepsStoredStatus(t *testing.T) {
	f := newDeployFixture(t)
	f.builder.SetStatusError(errors.New("upstream down"), 1)

	buildID := "b-3"
	dep := &model.Deployment{
		ProjectID: 1, Type: "production", Slug: "demo", CommitSHA: "abc1234",
		Status: model.DeploymentStatusBuilding, BuildID: &buildID,
	}
	require.NoError(t, f.depRepo.Create(dep))

	resp, err := f.svc.Get(context.Background(), dep.ID)
	require.NoError(t, err)
	assert.Equal(t, "building", resp.Status)
	assert.Equal(t, model.DeploymentStatusBuilding, f.depRepo.get(dep.ID).Status)
}

func TestPullRequestClosedTearsDownPreview(t *testing.T) {
	f := newDeployFixture(t)

	active := &model.Deployment{
		ProjectID: 1,
		Type:      "preview",
		Slug:      "demo-pr-7",
		CommitSHA: "def5678",
		Status:    model.DeploymentStatusBuilding,
	}
	require.NoError(t, f.depRepo.Create(active))

	require.NoError(t, f.svc.HandlePullRequestEvent(prEvent("closed", 7)))

	assert.Equal(t, model.DeploymentStatusCancelled, f.depRepo.get(active.ID).Status)
	assert.Contains(t, f.platform.DeletedServices(), "demo-pr-7")
}
