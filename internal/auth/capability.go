package auth

import "github.com/couchcryptid/pm25-field-data/internal/domain"

// Capability names an action guarded by role.
type Capability string

const (
	CapSubmit      Capability = "submit"
	CapEdit        Capability = "edit"
	CapMerge       Capability = "merge"
	CapCalculate   Capability = "calculate"
	CapReview      Capability = "review"
	CapManageUsers Capability = "manage-users"
)

var roleCapabilities = map[domain.Role][]Capability{
	domain.RoleAdmin:      {CapSubmit, CapEdit, CapMerge, CapCalculate, CapReview, CapManageUsers},
	domain.RoleCollector:  {CapSubmit, CapEdit},
	domain.RoleEditor:     {CapEdit, CapMerge, CapCalculate},
	domain.RoleViewer:     {CapCalculate},
	domain.RoleSupervisor: {CapMerge, CapCalculate, CapReview},
}

// RoleCan reports whether role grants capability.
func RoleCan(role domain.Role, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities lists what role grants.
func Capabilities(role domain.Role) []Capability {
	return append([]Capability(nil), roleCapabilities[role]...)
}
