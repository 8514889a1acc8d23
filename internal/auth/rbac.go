package auth

import (
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// Action names the protected operations of the API surface.
type Action string

const (
	ActionListDevices        Action = "devices:list"
	ActionRegisterDevice     Action = "devices:register"
	ActionAddHealthRecord    Action = "records:add"
	ActionListHealthRecords  Action = "records:list"
	ActionListPatientRecords Action = "records:list-patient"
)

// RoleAuthorizer evaluates the static role-capability matrix. There is
// no role hierarchy: a role is authorized for an action iff the matrix
// lists it. The matrix is fixed at startup and never mutated.
type RoleAuthorizer struct {
	capabilities map[Action]map[types.Role]struct{}
}

// NewRoleAuthorizer creates the authorizer with the capability matrix.
func NewRoleAuthorizer() *RoleAuthorizer {
	matrix := map[Action][]types.Role{
		ActionListDevices:        {types.RoleAdmin, types.RoleDoctor},
		ActionRegisterDevice:     {types.RoleAdmin, types.RoleDoctor},
		ActionAddHealthRecord:    {types.RoleDoctor},
		ActionListHealthRecords:  {types.RoleAdmin, types.RoleDoctor, types.RolePatient},
		ActionListPatientRecords: {types.RoleAdmin, types.RoleDoctor},
	}

	capabilities := make(map[Action]map[types.Role]struct{}, len(matrix))
	for action, roles := range matrix {
		set := make(map[types.Role]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		capabilities[action] = set
	}

	return &RoleAuthorizer{capabilities: capabilities}
}

// Authorize reports whether the role may perform the action.
func (a *RoleAuthorizer) Authorize(role types.Role, action Action) bool {
	roles, ok := a.capabilities[action]
	if !ok {
		return false
	}
	_, allowed := roles[role]
	return allowed
}
