package authz

import (
	"testing"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

func staffActor(id string, role domain.StaffRole) *domain.Actor {
	return &domain.Actor{
		ID:          id,
		Email:       id + "@cabinet.example",
		SubjectType: domain.SubjectTypeStaff,
		StaffRole:   role,
	}
}

func teamDossier(leaderID string, memberIDs ...string) *domain.Dossier {
	d := &domain.Dossier{
		ID:          "d-1",
		Status:      domain.StatusEnCoursInstruction,
		TeamMembers: memberIDs,
	}
	if leaderID != "" {
		d.TeamLeader = &leaderID
		d.TeamMembers = append(d.TeamMembers, leaderID)
	}
	return d
}

func TestResolveAdminTierGetsEverything(t *testing.T) {
	dossier := teamDossier("lead-1", "member-1")
	for _, role := range []domain.StaffRole{domain.StaffRoleSuperadmin, domain.StaffRoleAdmin} {
		caps := Resolve(staffActor("outsider", role), dossier)
		if caps != allCapabilities {
			t.Fatalf("Resolve(%s) = %+v, want all capabilities", role, caps)
		}
	}
}

func TestResolveTeamLeaderGetsEverything(t *testing.T) {
	dossier := teamDossier("lead-1", "member-1")
	caps := Resolve(staffActor("lead-1", domain.StaffRoleAvocat), dossier)
	if caps != allCapabilities {
		t.Fatalf("Resolve(leader) = %+v, want all capabilities", caps)
	}
}

func TestResolveTeamMemberViewOnly(t *testing.T) {
	dossier := teamDossier("lead-1", "member-1")
	caps := Resolve(staffActor("member-1", domain.StaffRoleAvocat), dossier)
	if !caps.CanView {
		t.Fatalf("team member should be able to view")
	}
	if caps.CanUpdateStatus || caps.CanManageTeam || caps.CanChangeLeader || caps.CanCancel {
		t.Fatalf("team member capabilities too broad: %+v", caps)
	}
}

func TestResolveNonMemberStaffDenied(t *testing.T) {
	dossier := teamDossier("lead-1", "member-1")
	for _, role := range []domain.StaffRole{domain.StaffRoleAvocat, domain.StaffRoleAssistant, domain.StaffRolePartner} {
		caps := Resolve(staffActor("outsider", role), dossier)
		if caps != (Capabilities{}) {
			t.Fatalf("Resolve(non-member %s) = %+v, want none", role, caps)
		}
	}
}

func TestResolveClientActorHasNoStaffCapabilities(t *testing.T) {
	client := &domain.Actor{ID: "client-1", SubjectType: domain.SubjectTypeUser}
	caps := Resolve(client, teamDossier("lead-1"))
	if caps != (Capabilities{}) {
		t.Fatalf("Resolve(client) = %+v, want none", caps)
	}
}

func TestResolveNilActor(t *testing.T) {
	if caps := Resolve(nil, teamDossier("lead-1")); caps != (Capabilities{}) {
		t.Fatalf("Resolve(nil) = %+v, want none", caps)
	}
}

func TestResolveImpersonatedClientUsesSupervisorRole(t *testing.T) {
	actor := &domain.Actor{
		ID:          "client-1",
		SubjectType: domain.SubjectTypeUser,
		Supervisor: &domain.Supervisor{
			ID:   "admin-1",
			Role: domain.StaffRoleAdmin,
		},
	}
	caps := Resolve(actor, teamDossier("lead-1"))
	if caps != allCapabilities {
		t.Fatalf("impersonated-by-admin = %+v, want all capabilities", caps)
	}
}

func TestAuthorizeDenialCarriesCapabilityMap(t *testing.T) {
	dossier := teamDossier("lead-1", "member-1")
	caps, err := Authorize(staffActor("member-1", domain.StaffRoleAvocat), dossier, ActionManageTeam)
	if err == nil {
		t.Fatalf("Authorize(member, manage_team) should fail")
	}
	if !errorutil.IsCode(err, "FORBIDDEN") {
		t.Fatalf("Authorize() error = %v, want FORBIDDEN", err)
	}
	if !caps.CanView {
		t.Fatalf("denial should still report the computed capabilities, got %+v", caps)
	}
}

func TestAuthorizeAllowsGrantedAction(t *testing.T) {
	dossier := teamDossier("lead-1")
	if _, err := Authorize(staffActor("lead-1", domain.StaffRoleAssistant), dossier, ActionChangeLeader); err != nil {
		t.Fatalf("Authorize(leader, change_leader) error = %v", err)
	}
}
