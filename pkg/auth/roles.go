package auth

// Role is the coarse-grained account role. Values 1 and 2 are the only
// assigned roles; anything else maps to the base user authority set.
type Role int

const (
	RoleAdmin    Role = 1
	RoleOperator Role = 2
)

// Authority is a permission label used for route-level authorization
type Authority string

const (
	AuthorityRoleAdmin    Authority = "ROLE_ADMIN"
	AuthorityRoleOperator Authority = "ROLE_OPERATOR"
	AuthorityRoleUser     Authority = "ROLE_USER"

	AuthorityFullAccess      Authority = "full:access"
	AuthorityManageUsers     Authority = "users:manage"
	AuthorityManageMachines  Authority = "machines:manage"
	AuthorityOperateMachines Authority = "machines:operate"
	AuthorityViewMachines    Authority = "machines:view"
	AuthorityViewReports     Authority = "reports:view"
)

// Name returns the security role label for the role
func (r Role) Name() string {
	switch r {
	case RoleAdmin:
		return string(AuthorityRoleAdmin)
	case RoleOperator:
		return string(AuthorityRoleOperator)
	default:
		return string(AuthorityRoleUser)
	}
}

// Authorities returns the full authority set for the role. The mapping is
// total: unknown role values get the base user authority only, never a
// silent fallthrough into a privileged set.
func (r Role) Authorities() []Authority {
	switch r {
	case RoleAdmin:
		return []Authority{
			AuthorityRoleAdmin,
			AuthorityFullAccess,
			AuthorityManageUsers,
			AuthorityManageMachines,
			AuthorityViewReports,
		}
	case RoleOperator:
		return []Authority{
			AuthorityRoleOperator,
			AuthorityOperateMachines,
			AuthorityViewMachines,
			AuthorityViewReports,
		}
	default:
		return []Authority{AuthorityRoleUser}
	}
}

// HasAuthority reports whether the role's authority set contains the given
// authority. Admins hold full access and therefore every authority.
func (r Role) HasAuthority(a Authority) bool {
	for _, held := range r.Authorities() {
		if held == a || held == AuthorityFullAccess {
			return true
		}
	}
	return false
}
