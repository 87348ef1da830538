package authroles

import (
	"strings"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
)

// StaticRoleMapper maps the role string stored on a user record to an application role.
// Matching ignores case and surrounding space; anything unrecognized maps to standard.
type StaticRoleMapper struct {
	AdminRole      string
	ManagerialRole string
	StandardRole   string
}

// New returns a mapper for the given vocabulary.
func New(admin, managerial, standard string) StaticRoleMapper {
	return StaticRoleMapper{AdminRole: admin, ManagerialRole: managerial, StandardRole: standard}
}

func (m StaticRoleMapper) Map(roleString string) domainauth.Role {
	v := strings.TrimSpace(roleString)
	switch {
	case m.AdminRole != "" && strings.EqualFold(v, m.AdminRole):
		return domainauth.RoleAdmin
	case m.ManagerialRole != "" && strings.EqualFold(v, m.ManagerialRole):
		return domainauth.RoleManagerial
	default:
		return domainauth.RoleStandard
	}
}

// RoleString returns the stored role string for role, the inverse of Map.
func (m StaticRoleMapper) RoleString(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return m.AdminRole
	case domainauth.RoleManagerial:
		return m.ManagerialRole
	default:
		return m.StandardRole
	}
}
