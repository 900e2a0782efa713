package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"main", "main"},
		{"feature/My_Branch", "feature-my-branch"},
		{"release/v2.1", "release-v2-1"},
		{"UPPER-case", "upper-case"},
		{"fix//double--slash", "fix-double-slash"},
		{"-leading-and-trailing-", "leading-and-trailing"},
		{"中文分支", ""},
		{"hotfix_#123", "hotfix-123"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}
