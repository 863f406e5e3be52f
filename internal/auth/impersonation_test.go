package auth

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

type fakeUserStore struct {
	users map[string]*domain.User
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error { return nil }

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeStaffStore struct {
	staff map[string]*domain.StaffMember
}

func (s *fakeStaffStore) Create(ctx context.Context, staff *domain.StaffMember) error { return nil }

func (s *fakeStaffStore) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if staff, ok := s.staff[id]; ok {
		return staff, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStaffStore) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	for _, staff := range s.staff {
		if staff.Email == email {
			return staff, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStaffStore) ListByRoles(ctx context.Context, roles []domain.StaffRole) ([]domain.StaffMember, error) {
	var result []domain.StaffMember
	for _, staff := range s.staff {
		for _, role := range roles {
			if staff.Role == role {
				result = append(result, *staff)
			}
		}
	}
	return result, nil
}

func (s *fakeStaffStore) ExistAll(ctx context.Context, ids []string) (bool, error) {
	for _, id := range ids {
		if _, ok := s.staff[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

type recordingAudit struct {
	entries []domain.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry domain.AuditEntry) {
	r.entries = append(r.entries, entry)
}

func adminPrincipal(id string) *Principal {
	return &Principal{
		SubjectType: domain.SubjectTypeStaff,
		Staff: &domain.StaffMember{
			ID:    id,
			Email: id + "@cabinet.example",
			Role:  domain.StaffRoleAdmin,
		},
	}
}

func newResolver(audit *recordingAudit) (*ImpersonationResolver, *fakeUserStore, *fakeStaffStore) {
	users := &fakeUserStore{users: map[string]*domain.User{
		"client-1": {ID: "client-1", Email: "client@exemple.fr"},
	}}
	staff := &fakeStaffStore{staff: map[string]*domain.StaffMember{
		"avocat-1": {ID: "avocat-1", Email: "avocat@cabinet.example", Role: domain.StaffRoleAvocat},
	}}
	return NewImpersonationResolver(users, staff, audit), users, staff
}

func TestResolveWithoutHeadersReturnsPrincipal(t *testing.T) {
	audit := &recordingAudit{}
	resolver, _, _ := newResolver(audit)

	actor, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "", "", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if actor.ID != "admin-1" || actor.IsImpersonating() {
		t.Fatalf("actor = %+v, want plain admin-1", actor)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("non-impersonated resolution must not write audit entries, got %d", len(audit.entries))
	}
}

func TestResolveRequiresBothHeaders(t *testing.T) {
	resolver, _, _ := newResolver(&recordingAudit{})

	_, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "admin-1", "", "", "")
	if !errorutil.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("Resolve() error = %v, want VALIDATION_FAILED", err)
	}
	_, err = resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "", "client-1", "", "")
	if !errorutil.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("Resolve() error = %v, want VALIDATION_FAILED", err)
	}
}

func TestResolveRejectsSupervisorMismatch(t *testing.T) {
	resolver, _, _ := newResolver(&recordingAudit{})

	_, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "somebody-else", "client-1", "", "")
	if !errorutil.IsCode(err, "FORBIDDEN") {
		t.Fatalf("Resolve() error = %v, want FORBIDDEN", err)
	}
}

func TestResolveRejectsNonAdminTier(t *testing.T) {
	resolver, _, _ := newResolver(&recordingAudit{})
	principal := &Principal{
		SubjectType: domain.SubjectTypeStaff,
		Staff:       &domain.StaffMember{ID: "avocat-1", Role: domain.StaffRoleAvocat},
	}

	_, err := resolver.Resolve(context.Background(), principal, "avocat-1", "client-1", "", "")
	if !errorutil.IsCode(err, "FORBIDDEN") {
		t.Fatalf("Resolve() error = %v, want FORBIDDEN", err)
	}
}

func TestResolveUnknownTarget(t *testing.T) {
	resolver, _, _ := newResolver(&recordingAudit{})

	_, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "admin-1", "ghost", "", "")
	if !errorutil.IsCode(err, "NOT_FOUND") {
		t.Fatalf("Resolve() error = %v, want NOT_FOUND", err)
	}
}

func TestResolveImpersonatesClient(t *testing.T) {
	audit := &recordingAudit{}
	resolver, _, _ := newResolver(audit)

	actor, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "admin-1", "client-1", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if actor.ID != "client-1" || actor.SubjectType != domain.SubjectTypeUser {
		t.Fatalf("actor should carry the target identity, got %+v", actor)
	}
	if !actor.IsImpersonating() || actor.Supervisor.ID != "admin-1" {
		t.Fatalf("supervisor missing from actor: %+v", actor.Supervisor)
	}
	if actor.AuthorizationRole() != domain.StaffRoleAdmin {
		t.Fatalf("authorization role = %q, want the supervisor's", actor.AuthorizationRole())
	}

	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Action != domain.AuditImpersonationStart {
		t.Fatalf("audit action = %q, want %q", entry.Action, domain.AuditImpersonationStart)
	}
	if entry.ActorID != "admin-1" || entry.TargetUserID == nil || *entry.TargetUserID != "client-1" {
		t.Fatalf("audit entry names wrong parties: %+v", entry)
	}
}

func TestResolveImpersonatesStaff(t *testing.T) {
	resolver, _, _ := newResolver(&recordingAudit{})

	actor, err := resolver.Resolve(context.Background(), adminPrincipal("admin-1"), "admin-1", "avocat-1", "", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if actor.SubjectType != domain.SubjectTypeStaff || actor.StaffRole != domain.StaffRoleAvocat {
		t.Fatalf("staff target not resolved: %+v", actor)
	}
	if actor.AuthorizationRole() != domain.StaffRoleAdmin {
		t.Fatalf("authorization role = %q, want admin", actor.AuthorizationRole())
	}
}
