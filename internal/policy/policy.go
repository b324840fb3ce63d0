// Package policy is the single source of truth for role-based permissions.
// Permissions are an explicit table keyed by (role, action) with ownership
// and department modifiers, not an ordinal role hierarchy: a reporter may
// close their own incident but can never resolve one, while staff resolve
// but do not close. Keep it that way when adding roles.
package policy

import "github.com/spec-kit/incident-service/internal/domain"

// Action identifies a permission-gated operation.
type Action string

const (
	ActionViewIncident    Action = "incident.view"
	ActionEditFields      Action = "incident.edit_fields"
	ActionChangeStatus    Action = "incident.change_status"
	ActionResolve         Action = "incident.resolve"
	ActionClose           Action = "incident.close"
	ActionCancel          Action = "incident.cancel"
	ActionAssign          Action = "incident.assign"
	ActionSetPriority     Action = "incident.set_priority"
	ActionComment         Action = "incident.comment"
	ActionCommentInternal Action = "incident.comment_internal"
	ActionViewStats       Action = "incident.view_stats"
	ActionViewWorkload    Action = "incident.view_workload"
	ActionManageProblem   Action = "problem.manage"
	ActionOverrideProblem Action = "problem.override_status"
	ActionManageCatalog   Action = "catalog.manage"
	ActionManageSLA       Action = "sla.manage"
	ActionManageUsers     Action = "user.manage"
)

type rule struct {
	allow           bool
	requireOwner    bool
	requireSameDept bool
}

var (
	unscoped  = rule{allow: true}
	ownerOnly = rule{allow: true, requireOwner: true}
	deptOnly  = rule{allow: true, requireSameDept: true}
)

// table maps (role, action) to a rule. Absence means deny.
var table = map[domain.UserRole]map[Action]rule{
	domain.RoleReporter: {
		ActionViewIncident: ownerOnly,
		ActionEditFields:   ownerOnly,
		ActionChangeStatus: ownerOnly,
		ActionClose:        ownerOnly,
		ActionCancel:       ownerOnly,
		ActionComment:      ownerOnly,
	},
	domain.RoleStaff: {
		ActionViewIncident:    deptOnly,
		ActionEditFields:      deptOnly,
		ActionChangeStatus:    deptOnly,
		ActionResolve:         deptOnly,
		ActionClose:           ownerOnly,
		ActionCancel:          deptOnly,
		ActionAssign:          deptOnly,
		ActionSetPriority:     deptOnly,
		ActionComment:         unscoped,
		ActionCommentInternal: unscoped,
		ActionManageProblem:   unscoped,
	},
	domain.RoleManager: {
		ActionViewIncident:    deptOnly,
		ActionEditFields:      deptOnly,
		ActionChangeStatus:    deptOnly,
		ActionResolve:         deptOnly,
		ActionClose:           ownerOnly,
		ActionCancel:          deptOnly,
		ActionAssign:          deptOnly,
		ActionSetPriority:     deptOnly,
		ActionComment:         unscoped,
		ActionCommentInternal: unscoped,
		ActionViewStats:       unscoped,
		ActionViewWorkload:    unscoped,
		ActionManageProblem:   unscoped,
	},
	domain.RoleAdmin: {
		ActionViewIncident:    unscoped,
		ActionEditFields:      unscoped,
		ActionChangeStatus:    unscoped,
		ActionResolve:         unscoped,
		ActionClose:           unscoped,
		ActionCancel:          unscoped,
		ActionAssign:          unscoped,
		ActionSetPriority:     unscoped,
		ActionComment:         unscoped,
		ActionCommentInternal: unscoped,
		ActionViewStats:       unscoped,
		ActionManageProblem:   unscoped,
		ActionOverrideProblem: unscoped,
		ActionManageCatalog:   unscoped,
		ActionManageSLA:       unscoped,
		ActionManageUsers:     unscoped,
	},
}

// Allows reports whether role may perform action given whether the actor
// owns the target incident and whether it belongs to the actor's department.
func Allows(role domain.UserRole, action Action, isOwner, sameDepartment bool) bool {
	r, ok := table[role][action]
	if !ok || !r.allow {
		return false
	}
	if r.requireOwner && !isOwner {
		return false
	}
	if r.requireSameDept && !sameDepartment {
		return false
	}
	return true
}

// AllowsRole reports whether role may perform an action that has no
// ownership or department dimension (stats, catalog, SLA administration).
func AllowsRole(role domain.UserRole, action Action) bool {
	r, ok := table[role][action]
	return ok && r.allow && !r.requireOwner && !r.requireSameDept
}
