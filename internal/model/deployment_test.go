package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeploymentStatusTerminal(t *testing.T) {
	assert.False(t, DeploymentStatusQueued.Terminal())
	assert.False(t, DeploymentStatusBuilding.Terminal())
	assert.False(t, DeploymentStatusDeploying.Terminal())
	assert.True(t, DeploymentStatusReady.Terminal())
	assert.True(t, DeploymentStatusError.Terminal())
	assert.True(t, DeploymentStatusCancelled.Terminal())
}

func TestDeploymentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    DeploymentStatus
		to      DeploymentStatus
		allowed bool
	}{
		{DeploymentStatusQueued, DeploymentStatusBuilding, true},
		{DeploymentStatusQueued, DeploymentStatusDeploying, true},
		{DeploymentStatusQueued, DeploymentStatusError, true},
		{DeploymentStatusQueued, DeploymentStatusCancelled, true},
		{DeploymentStatusQueued, DeploymentStatusReady, false},

		{DeploymentStatusBuilding, DeploymentStatusDeploying, true},
		{DeploymentStatusBuilding, DeploymentStatusReady, true},
		{DeploymentStatusBuilding, DeploymentStatusCancelled, true},
		{DeploymentStatusBuilding, DeploymentStatusError, true},

		// 上线阶段不可取消
		{DeploymentStatusDeploying, DeploymentStatusCancelled, false},
		{DeploymentStatusDeploying, DeploymentStatusReady, true},
		{DeploymentStatusDeploying, DeploymentStatusError, true},
		{DeploymentStatusDeploying, DeploymentStatusBuilding, true},

		// 终态没有出边
		{DeploymentStatusReady, DeploymentStatusError, false},
		{DeploymentStatusReady, DeploymentStatusBuilding, false},
		{DeploymentStatusError, DeploymentStatusQueued, false},
		{DeploymentStatusCancelled, DeploymentStatusBuilding, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestHasAlias(t *testing.T) {
	dep := &Deployment{Aliases: []string{"staging", "canary"}}
	assert.True(t, dep.HasAlias("staging"))
	assert.False(t, dep.HasAlias("prod"))
	assert.False(t, (&Deployment{}).HasAlias("staging"))
}
