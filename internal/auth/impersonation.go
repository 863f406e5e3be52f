package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// Impersonation request headers supplied by the transport layer.
const (
	HeaderImpersonateSupervisor = "X-Impersonate-Supervisor"
	HeaderImpersonateTarget     = "X-Impersonate-Target"
)

// AuditRecorder receives the impersonation_start trail entry. Satisfied by
// service.AuditService.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// ImpersonationResolver computes the effective actor for a request and
// enforces that only administrative-tier staff may substitute identity.
type ImpersonationResolver struct {
	users repository.UserRepository
	staff repository.StaffRepository
	audit AuditRecorder
}

// NewImpersonationResolver constructs the resolver.
func NewImpersonationResolver(users repository.UserRepository, staff repository.StaffRepository, audit AuditRecorder) *ImpersonationResolver {
	return &ImpersonationResolver{users: users, staff: staff, audit: audit}
}

// Resolve returns the effective actor. With no declared ids the actor is
// the authenticated principal and no audit entry is written. A successful
// substitution records impersonation_start and returns an actor carrying
// the target identity with the supervisor attached.
func (r *ImpersonationResolver) Resolve(ctx context.Context, principal *Principal, declaredSupervisorID, declaredTargetID, ip, userAgent string) (*domain.Actor, error) {
	if principal == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}

	if declaredSupervisorID == "" && declaredTargetID == "" {
		return actorFromPrincipal(principal, ip, userAgent), nil
	}
	if declaredSupervisorID == "" || declaredTargetID == "" {
		return nil, errorutil.NewValidationError("impersonation requires both supervisor and target ids", nil)
	}

	// An actor cannot claim to be impersonating as someone else.
	if declaredSupervisorID != principal.ID() {
		return nil, errorutil.NewForbidden("declared supervisor does not match authenticated actor", nil)
	}
	if principal.Staff == nil || !principal.Staff.Role.IsAdminTier() {
		return nil, errorutil.NewForbidden("impersonation restricted to administrative tier", nil)
	}

	target, err := r.lookupTarget(ctx, declaredTargetID)
	if err != nil {
		return nil, err
	}

	supervisor := &domain.Supervisor{
		ID:    principal.Staff.ID,
		Email: principal.Staff.Email,
		Role:  principal.Staff.Role,
	}
	actor := &domain.Actor{
		ID:          target.id,
		Email:       target.email,
		SubjectType: target.subjectType,
		StaffRole:   target.staffRole,
		Supervisor:  supervisor,
		IP:          ip,
		UserAgent:   userAgent,
	}

	if r.audit != nil {
		targetID := target.id
		r.audit.Record(ctx, domain.AuditEntry{
			ActorID:      supervisor.ID,
			ActorEmail:   supervisor.Email,
			TargetUserID: &targetID,
			Action:       domain.AuditImpersonationStart,
			Description:  "supervisor started acting as " + target.email,
			Metadata: map[string]any{
				"target_id": target.id,
			},
			IP:        ip,
			UserAgent: userAgent,
		})
	}

	return actor, nil
}

// Middleware resolves the effective actor from impersonation headers and
// stores it on the request for all downstream components.
func (r *ImpersonationResolver) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		actor, err := r.Resolve(
			c.Context(),
			principal,
			c.Get(HeaderImpersonateSupervisor),
			c.Get(HeaderImpersonateTarget),
			c.IP(),
			string(c.Request().Header.UserAgent()),
		)
		if err != nil {
			return err
		}
		StoreActor(c, actor)
		return c.Next()
	}
}

type resolvedTarget struct {
	id          string
	email       string
	subjectType domain.SubjectType
	staffRole   domain.StaffRole
}

func (r *ImpersonationResolver) lookupTarget(ctx context.Context, targetID string) (*resolvedTarget, error) {
	user, err := r.users.GetByID(ctx, targetID)
	if err == nil {
		return &resolvedTarget{id: user.ID, email: user.Email, subjectType: domain.SubjectTypeUser}, nil
	}
	if err != pgx.ErrNoRows {
		return nil, errorutil.MapError(err)
	}
	staff, err := r.staff.GetByID(ctx, targetID)
	if err == pgx.ErrNoRows {
		return nil, errorutil.NewNotFound("target user", map[string]any{"target_id": targetID})
	}
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return &resolvedTarget{id: staff.ID, email: staff.Email, subjectType: domain.SubjectTypeStaff, staffRole: staff.Role}, nil
}

func actorFromPrincipal(principal *Principal, ip, userAgent string) *domain.Actor {
	actor := &domain.Actor{
		SubjectType: principal.SubjectType,
		IP:          ip,
		UserAgent:   userAgent,
	}
	if principal.Staff != nil {
		actor.ID = principal.Staff.ID
		actor.Email = principal.Staff.Email
		actor.StaffRole = principal.Staff.Role
	} else if principal.User != nil {
		actor.ID = principal.User.ID
		actor.Email = principal.User.Email
	}
	return actor
}
