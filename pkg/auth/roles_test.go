package auth

import "testing"

func TestRole_Name(t *testing.T) {
	cases := []struct {
		role Role
		want string
	}{
		{RoleAdmin, "ROLE_ADMIN"},
		{RoleOperator, "ROLE_OPERATOR"},
		{Role(0), "ROLE_USER"},
		{Role(99), "ROLE_USER"},
	}
	for _, tc := range cases {
		if got := tc.role.Name(); got != tc.want {
			t.Errorf("Role(%d).Name() = %s, want %s", tc.role, got, tc.want)
		}
	}
}

func TestRole_Authorities(t *testing.T) {
	t.Run("admin holds every authority", func(t *testing.T) {
		for _, a := range []Authority{
			AuthorityManageUsers,
			AuthorityManageMachines,
			AuthorityOperateMachines,
			AuthorityViewReports,
		} {
			if !RoleAdmin.HasAuthority(a) {
				t.Errorf("admin should hold %s", a)
			}
		}
	})

	t.Run("operator scope", func(t *testing.T) {
		if !RoleOperator.HasAuthority(AuthorityOperateMachines) {
			t.Error("operator should operate machines")
		}
		if !RoleOperator.HasAuthority(AuthorityViewReports) {
			t.Error("operator should view reports")
		}
		if RoleOperator.HasAuthority(AuthorityManageUsers) {
			t.Error("operator must not manage users")
		}
	})

	t.Run("unknown role degrades to base user", func(t *testing.T) {
		unknown := Role(7)
		auths := unknown.Authorities()
		if len(auths) != 1 || auths[0] != AuthorityRoleUser {
			t.Errorf("unknown role should map to base user only, got %v", auths)
		}
		if unknown.HasAuthority(AuthorityManageMachines) {
			t.Error("unknown role must not gain privileged authorities")
		}
	})
}
