package authz

import (
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// Action enumerates the mutating and reading operations gated per dossier.
type Action string

const (
	ActionView         Action = "view"
	ActionUpdateStatus Action = "update_status"
	ActionClose        Action = "close"
	ActionCancel       Action = "cancel"
	ActionSendMessage  Action = "send_message"
	ActionManageTeam   Action = "manage_team"
	ActionChangeLeader Action = "change_leader"
)

// Capabilities is the per-action authorization result for one actor on
// one dossier.
type Capabilities struct {
	CanView         bool `json:"can_view"`
	CanUpdateStatus bool `json:"can_update_status"`
	CanClose        bool `json:"can_close"`
	CanCancel       bool `json:"can_cancel"`
	CanSendMessage  bool `json:"can_send_message"`
	CanManageTeam   bool `json:"can_manage_team"`
	CanChangeLeader bool `json:"can_change_leader"`
}

func (c Capabilities) allows(action Action) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionUpdateStatus:
		return c.CanUpdateStatus
	case ActionClose:
		return c.CanClose
	case ActionCancel:
		return c.CanCancel
	case ActionSendMessage:
		return c.CanSendMessage
	case ActionManageTeam:
		return c.CanManageTeam
	case ActionChangeLeader:
		return c.CanChangeLeader
	default:
		return false
	}
}

func (c Capabilities) union(other Capabilities) Capabilities {
	return Capabilities{
		CanView:         c.CanView || other.CanView,
		CanUpdateStatus: c.CanUpdateStatus || other.CanUpdateStatus,
		CanClose:        c.CanClose || other.CanClose,
		CanCancel:       c.CanCancel || other.CanCancel,
		CanSendMessage:  c.CanSendMessage || other.CanSendMessage,
		CanManageTeam:   c.CanManageTeam || other.CanManageTeam,
		CanChangeLeader: c.CanChangeLeader || other.CanChangeLeader,
	}
}

var allCapabilities = Capabilities{
	CanView:         true,
	CanUpdateStatus: true,
	CanClose:        true,
	CanCancel:       true,
	CanSendMessage:  true,
	CanManageTeam:   true,
	CanChangeLeader: true,
}

// membershipKind positions a staff member relative to a dossier team.
type membershipKind int

const (
	membershipNone membershipKind = iota
	membershipMember
	membershipLeader
)

// Role and membership grants are table-driven. Administrative-tier roles
// short-circuit to allCapabilities in Resolve and never reach these tables.
var roleGrants = map[domain.StaffRole]Capabilities{
	domain.StaffRoleAvocat:    {},
	domain.StaffRoleAssistant: {},
	domain.StaffRolePartner:   {},
}

var membershipGrants = map[membershipKind]Capabilities{
	membershipNone:   {},
	membershipMember: {CanView: true},
	membershipLeader: allCapabilities,
}

// Resolve computes the capability set of an actor over a dossier.
func Resolve(actor *domain.Actor, dossier *domain.Dossier) Capabilities {
	if actor == nil {
		return Capabilities{}
	}
	if !actor.IsStaff() && !actor.IsImpersonating() {
		return Capabilities{}
	}

	role := actor.AuthorizationRole()
	if role.IsAdminTier() {
		return allCapabilities
	}

	membership := membershipNone
	if dossier != nil {
		switch {
		case dossier.IsTeamLeader(actor.ID):
			membership = membershipLeader
		case dossier.HasTeamMember(actor.ID):
			membership = membershipMember
		}
	}
	return roleGrants[role].union(membershipGrants[membership])
}

// Authorize resolves capabilities and checks the requested action. A
// denial carries the computed capability map and a generic reason, never
// dossier contents.
func Authorize(actor *domain.Actor, dossier *domain.Dossier, action Action) (Capabilities, error) {
	caps := Resolve(actor, dossier)
	if !caps.allows(action) {
		return caps, errorutil.NewForbidden("action not permitted", map[string]any{
			"action":       string(action),
			"capabilities": caps,
		})
	}
	return caps, nil
}
