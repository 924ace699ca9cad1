package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementAllows(t *testing.T) {
	cases := []struct {
		req  Requirement
		role Role
		want bool
	}{
		{RequireAdmin, RoleAdmin, true},
		{RequireAdmin, RoleUser, false},
		{RequireUser, RoleUser, true},
		{RequireUser, RoleAdmin, false},
		{RequireBoth, RoleAdmin, true},
		{RequireBoth, RoleUser, true},
		{RequireBoth, Role("root"), false},
		{RequireAdmin, Role(""), false},
		{Requirement("any"), RoleAdmin, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, tc.req.Allows(tc.role), "%s allows %q", tc.req, tc.role)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("Admin")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}
