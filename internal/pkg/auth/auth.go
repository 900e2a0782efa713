package auth

import "strings"

// Role 内置角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Permission 内置权限
type Permission string

const (
	PermDeploymentView     Permission = "deployment:view"
	PermDeploymentCancel   Permission = "deployment:cancel"
	PermDeploymentRollback Permission = "deployment:rollback"

	PermAliasAssign Permission = "alias:assign"
	PermAliasRemove Permission = "alias:remove"

	PermEnvView   Permission = "env:view"
	PermEnvUpdate Permission = "env:update"

	PermProjectDelete Permission = "project:delete"
)

// RolePermissions 每个角色拥有的权限集合
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		"*",
	},
	RoleMember: {
		"deployment:*",
		"alias:*",
		"env:*",
	},
	RoleViewer: {
		"deployment:view",
		"env:view",
	},
}

// Allow 判断一组角色是否包含所需权限，支持通配符
func Allow(roles []string, need Permission) bool {
	permissions := collectPermissions(roles)

	return len(permissions) > 0 && allow(permissions, need)
}

func collectPermissions(roles []string) []Permission {
	perms := make([]Permission, 0)
	for _, r := range roles {
		if ps, ok := RolePermissions[Role(r)]; ok {
			perms = append(perms, ps...)
		}
	}
	return perms
}

func allow(have []Permission, need Permission) bool {
	reqParts := strings.Split(string(need), ":")

	for _, p := range have {
		if p == need || p == "*" {
			return true
		}

		allParts := strings.Split(string(p), ":")
		if matchParts(allParts, reqParts) {
			return true
		}
	}
	return false
}

func matchParts(allowed, required []string) bool {
	for i := 0; i < len(allowed); i++ {
		if allowed[i] == "*" {
			// * 匹配剩余所有段
			return true
		}
		if i >= len(required) || allowed[i] != required[i] {
			return false
		}
	}
	// allowed 段已耗尽，required 必须也正好耗尽
	return len(allowed) == len(required)
}
