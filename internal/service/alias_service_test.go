package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paas-cd/internal/adapter/serving"
	"paas-cd/internal/dto"
	"paas-cd/internal/model"
)

func TestValidateAlias(t *testing.T) {
	cases := []struct {
		alias string
		valid bool
	}{
		{"staging", true},
		{"v2", true},
		{"my-alias-1", true},
		{"a", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"UPPER", false},
		{"has_underscore", false},
		{"has.dot", false},
		{strings.Repeat("a", 63), true},
		{strings.Repeat("a", 64), false},
	}

	for _, tc := range cases {
		err := ValidateAlias(tc.alias)
		if tc.valid {
			assert.NoError(t, err, tc.alias)
		} else {
			assert.Error(t, err, tc.alias)
		}
	}
}

func readyDeployment(t *testing.T, depRepo *fakeDeploymentRepo, slug, revision string) *model.Deployment {
	t.Helper()
	dep := &model.Deployment{
		ProjectID: 1,
		Type:      "production",
		Slug:      slug,
		CommitSHA: "abc1234",
		Status:    model.DeploymentStatusReady,
	}
	if revision != "" {
		dep.Revision = &revision
	}
	require.NoError(t, depRepo.Create(dep))
	return dep
}

func newTestAliasService(t *testing.T) (*AliasService, *fakeDeploymentRepo, *fakeAuditRepo, *serving.MockPlatform) {
	t.Helper()
	depRepo := newFakeDeploymentRepo(classifierProject())
	auditRepo := newFakeAuditRepo()
	platform := serving.NewMockPlatform()
	svc := NewAliasService(depRepo, auditRepo, platform, zap.NewNop())
	return svc, depRepo, auditRepo, platform
}

func TestAliasAssign(t *testing.T) {
	svc, depRepo, auditRepo, platform := newTestAliasService(t)
	dep := readyDeployment(t, depRepo, "demo", "demo-00042")

	resp, err := svc.Assign(context.Background(), &dto.AssignAliasRequest{
		DeploymentID: dep.ID,
		Alias:        "staging",
	}, "alice")
	require.NoError(t, err)
	assert.Contains(t, resp.Aliases, "staging")

	calls := platform.TagCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "demo", calls[0].Service)
	assert.Equal(t, "staging", calls[0].Tag)
	assert.Equal(t, "demo-00042", calls[0].Revision)

	assert.Equal(t, []string{"alias.assign"}, auditRepo.actions())
}

func TestAliasAssignMovesAliasBetweenDeployments(t *testing.T) {
	svc, depRepo, _, _ := newTestAliasService(t)
	first := readyDeployment(t, depRepo, "demo", "demo-00001")
	second := readyDeployment(t, depRepo, "demo", "demo-00002")

	_, err := svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: first.ID, Alias: "staging"}, "alice")
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: second.ID, Alias: "staging"}, "alice")
	require.NoError(t, err)

	assert.Empty(t, depRepo.get(first.ID).Aliases)
	assert.Contains(t, depRepo.get(second.ID).Aliases, "staging")
}

func TestAliasAssignRequiresReadyWithRevision(t *testing.T) {
	svc, depRepo, _, _ := newTestAliasService(t)

	building := &model.Deployment{ProjectID: 1, Slug: "demo", Status: model.DeploymentStatusBuilding}
	require.NoError(t, depRepo.Create(building))
	_, err := svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: building.ID, Alias: "staging"}, "alice")
	assert.Error(t, err)

	noRevision := readyDeployment(t, depRepo, "demo", "")
	_, err = svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: noRevision.ID, Alias: "staging"}, "alice")
	assert.Error(t, err)
}

func TestAliasAssignPlatformFailureLeavesDBUntouched(t *testing.T) {
	svc, depRepo, auditRepo, platform := newTestAliasService(t)
	dep := readyDeployment(t, depRepo, "demo", "demo-00042")
	platform.SetTagError(errors.New("upstream down"))

	_, err := svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: dep.ID, Alias: "staging"}, "alice")
	require.Error(t, err)

	assert.Empty(t, depRepo.get(dep.ID).Aliases)
	assert.Empty(t, auditRepo.actions())
}

func TestAliasRemove(t *testing.T) {
	svc, depRepo, auditRepo, platform := newTestAliasService(t)
	dep := readyDeployment(t, depRepo, "demo", "demo-00042")

	_, err := svc.Assign(context.Background(), &dto.AssignAliasRequest{DeploymentID: dep.ID, Alias: "staging"}, "alice")
	require.NoError(t, err)

	resp, err := svc.Remove(context.Background(), &dto.RemoveAliasRequest{DeploymentID: dep.ID, Alias: "staging"}, "alice")
	require.NoError(t, err)
	assert.NotContains(t, resp.Aliases, "staging")

	calls := platform.RemoveTagCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "demo-00042", calls[0].Expected) // 按期望 revision 条件移除

	assert.Equal(t, []string{"alias.assign", "alias.remove"}, auditRepo.actions())
}

func TestAliasRemoveNotBound(t *testing.T) {
	svc, depRepo, _, _ := newTestAliasService(t)
	dep := readyDeployment(t, depRepo, "demo", "demo-00042")

	_, err := svc.Remove(context.Background(), &dto.RemoveAliasRequest{DeploymentID: dep.ID, Alias: "staging"}, "alice")
	assert.Error(t, err)
}
