package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/authz"
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/internal/sequence"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// DossierService owns the case-file state machine and team rules.
type DossierService struct {
	dossiers   repository.DossierRepository
	users      repository.UserRepository
	staff      repository.StaffRepository
	allocator  *sequence.Allocator
	dispatcher events.Dispatcher
	audit      *AuditService
	notifier   *NotificationService
	presence   repository.PresenceStore
	logger     *zap.Logger
	clock      func() time.Time
}

// DossierDependencies bundles collaborators for the dossier service.
type DossierDependencies struct {
	DossierRepo repository.DossierRepository
	UserRepo    repository.UserRepository
	StaffRepo   repository.StaffRepository
	Allocator   *sequence.Allocator
	Dispatcher  events.Dispatcher
	Audit       *AuditService
	Notifier    *NotificationService
	Presence    repository.PresenceStore
	Logger      *zap.Logger
}

// NewDossierService constructs the service.
func NewDossierService(deps DossierDependencies) *DossierService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DossierService{
		dossiers:   deps.DossierRepo,
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		allocator:  deps.Allocator,
		dispatcher: deps.Dispatcher,
		audit:      deps.Audit,
		notifier:   deps.Notifier,
		presence:   deps.Presence,
		logger:     logger,
		clock:      time.Now,
	}
}

// DossierCreateInput describes dossier creation payload. Exactly one of
// ClientID / Contact identifies the owner.
type DossierCreateInput struct {
	Title       string
	Description string
	Priority    domain.DossierPriority
	ClientID    *string
	Contact     *domain.ContactInfo
}

// CancelIdentity carries the contact identity claimed by an anonymous
// canceller when no account is linked.
type CancelIdentity struct {
	Email string
	Phone string
}

// CreateDossier creates a numbered case file. actor is nil for the
// anonymous self-service intake flow.
func (s *DossierService) CreateDossier(ctx context.Context, actor *domain.Actor, input DossierCreateInput) (*domain.Dossier, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title required", nil)
	}
	if (input.ClientID == nil) == (input.Contact == nil) {
		return nil, errorutil.NewValidationError("exactly one of client_id or contact must be set", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormale
	}
	if !isValidPriority(priority) {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	if input.ClientID != nil {
		if _, err := s.users.GetByID(ctx, *input.ClientID); err != nil {
			if err == pgx.ErrNoRows {
				return nil, errorutil.NewNotFound("client", map[string]any{"client_id": *input.ClientID})
			}
			return nil, errorutil.MapError(err)
		}
	}

	dossier := &domain.Dossier{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.StatusRecu,
		Priority:    priority,
		ClientID:    input.ClientID,
		Contact:     input.Contact,
	}
	if actor != nil && actor.IsStaff() {
		createdBy := actor.ID
		dossier.CreatedBy = &createdBy
	}

	if err := s.allocator.Allocate(ctx, dossier, s.clock()); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventDossierCreated,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.DossierCreatedPayload{
			Number:   dossier.Number,
			Title:    dossier.Title,
			Priority: dossier.Priority,
			OwnerID:  dossier.ClientID,
		},
	})
	return dossier, nil
}

// GetDossier fetches a dossier, enforcing view permission. A denial never
// carries dossier contents.
func (s *DossierService) GetDossier(ctx context.Context, actor *domain.Actor, id string) (*domain.Dossier, authz.Capabilities, error) {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, authz.Capabilities{}, err
	}
	if actor != nil && !actor.IsStaff() && dossier.OwnedByClient(actor.ID) {
		return dossier, authz.Capabilities{CanView: true, CanCancel: !dossier.IsTerminal()}, nil
	}
	caps, err := authz.Authorize(actor, dossier, authz.ActionView)
	if err != nil {
		return nil, caps, err
	}
	return dossier, caps, nil
}

// ListDossiers returns dossiers visible to the actor.
func (s *DossierService) ListDossiers(ctx context.Context, actor *domain.Actor, filter repository.DossierFilter) ([]domain.Dossier, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	if actor.IsStaff() {
		if !actor.AuthorizationRole().IsAdminTier() {
			memberID := actor.ID
			filter.TeamMemberID = &memberID
		}
	} else {
		clientID := actor.ID
		filter.ClientID = &clientID
	}
	return s.dossiers.ListWithFilter(ctx, filter)
}

// UpdateStatus moves the dossier to a new status. Any declared status may
// follow any other; the authorizing capability is the only gate. Entering
// a terminal status clears the active collaborators in the same update.
func (s *DossierService) UpdateStatus(ctx context.Context, actor *domain.Actor, id string, newStatus domain.DossierStatus, customMessage string) (*domain.Dossier, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, dossier, authz.ActionUpdateStatus); err != nil {
		return nil, err
	}

	oldStatus := dossier.Status
	if oldStatus == newStatus {
		return dossier, nil
	}

	dossier.Status = newStatus
	if dossier.IsTerminal() {
		dossier.ActiveCollaborators = nil
	}
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return nil, errorutil.MapError(err)
	}
	if dossier.IsTerminal() {
		s.clearPresence(ctx, dossier.ID)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventStatusChanged,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.StatusChangedPayload{
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
			CustomMessage: customMessage,
			OwnerID:       dossier.ClientID,
			OwnerPhone:    s.ownerPhone(ctx, dossier),
			Number:        dossier.Number,
		},
	})
	return dossier, nil
}

// CancelDossier cancels a case file. Only the dossier's own client may
// cancel: by linked account id, or by matching contact identity when no
// account is linked. Cancelling an already-terminal dossier is a conflict.
func (s *DossierService) CancelDossier(ctx context.Context, actor *domain.Actor, id string, identity CancelIdentity, reason string) (*domain.Dossier, error) {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	authorized := false
	switch {
	case actor != nil && !actor.IsStaff() && dossier.OwnedByClient(actor.ID):
		authorized = true
	case dossier.ClientID == nil && dossier.MatchesContact(identity.Email, identity.Phone):
		authorized = true
	}
	if !authorized {
		return nil, errorutil.NewForbidden("only the dossier's client may cancel", nil)
	}

	if dossier.IsTerminal() {
		return nil, errorutil.NewConflict("dossier already in a terminal status", map[string]any{
			"status": dossier.Status,
		})
	}

	priorStatus := dossier.Status
	dossier.Status = domain.StatusAnnule
	dossier.ActiveCollaborators = nil
	note := "Annulation par le client"
	if reason != "" {
		note += " : " + reason
	}
	dossier.AppendNote(note, s.clock())
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return nil, errorutil.MapError(err)
	}
	s.clearPresence(ctx, dossier.ID)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventDossierCancelled,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.CancelledPayload{
			PriorStatus: priorStatus,
			Reason:      reason,
			Number:      dossier.Number,
			OwnerID:     dossier.ClientID,
			OwnerPhone:  s.ownerPhone(ctx, dossier),
		},
	})
	return dossier, nil
}

// UpdateDetails applies status-neutral edits. Permitted to the owning
// client, or to staff allowed to update the dossier.
func (s *DossierService) UpdateDetails(ctx context.Context, actor *domain.Actor, id, title, description string) (*domain.Dossier, error) {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	ownerEdit := actor != nil && !actor.IsStaff() && dossier.OwnedByClient(actor.ID)
	if !ownerEdit {
		if _, err := authz.Authorize(actor, dossier, authz.ActionUpdateStatus); err != nil {
			return nil, err
		}
	}
	if title = strings.TrimSpace(title); title != "" {
		dossier.Title = title
	}
	if description = strings.TrimSpace(description); description != "" {
		dossier.Description = description
	}
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return nil, errorutil.MapError(err)
	}
	return dossier, nil
}

// DeleteDossier irreversibly removes a case file. Superadmin only; the
// audit entry and the owner notification happen before the record goes.
func (s *DossierService) DeleteDossier(ctx context.Context, actor *domain.Actor, id string) error {
	if actor == nil || actor.AuthorizationRole() != domain.StaffRoleSuperadmin {
		return errorutil.NewForbidden("dossier deletion restricted to superadmin", nil)
	}
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditEntry{
			ActorID:      actor.ID,
			ActorEmail:   actor.Email,
			TargetUserID: dossier.ClientID,
			Action:       domain.AuditDossierDeleted,
			Description:  "dossier " + dossier.Number + " deleted",
			Metadata: map[string]any{
				"dossier_id": dossier.ID,
				"number":     dossier.Number,
				"status":     dossier.Status,
			},
			IP:        actor.IP,
			UserAgent: actor.UserAgent,
		})
	}
	if s.notifier != nil && dossier.ClientID != nil {
		s.notifier.Notify(ctx, *dossier.ClientID, domain.NotificationDeletion,
			"Dossier supprimé",
			fmt.Sprintf("Votre dossier %s a été supprimé.", dossier.Number),
			"", map[string]any{"number": dossier.Number})
	}

	if err := s.dossiers.Delete(ctx, id); err != nil {
		return errorutil.MapError(err)
	}
	s.clearPresence(ctx, id)
	return nil
}

// UpdateTeam replaces the dossier team membership. A set team leader stays
// on the team implicitly.
func (s *DossierService) UpdateTeam(ctx context.Context, actor *domain.Actor, id string, members []string) (*domain.Dossier, error) {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, dossier, authz.ActionManageTeam); err != nil {
		return nil, err
	}

	members = dedupe(members)
	ok, err := s.staff.ExistAll(ctx, members)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	if !ok {
		return nil, errorutil.NewValidationError("unknown staff member in team", nil)
	}
	if dossier.TeamLeader != nil && !contains(members, *dossier.TeamLeader) {
		members = append(members, *dossier.TeamLeader)
	}

	dossier.TeamMembers = members
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTeamChanged,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.TeamChangedPayload{
			Members: members,
			Number:  dossier.Number,
		},
	})
	return dossier, nil
}

// ChangeLeader assigns a new team leader. The new leader does not need to
// already belong to the team; membership is added implicitly.
func (s *DossierService) ChangeLeader(ctx context.Context, actor *domain.Actor, id, newLeaderID string) (*domain.Dossier, error) {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := authz.Authorize(actor, dossier, authz.ActionChangeLeader); err != nil {
		return nil, err
	}

	if _, err := s.staff.GetByID(ctx, newLeaderID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errorutil.NewNotFound("staff member", map[string]any{"staff_id": newLeaderID})
		}
		return nil, errorutil.MapError(err)
	}

	oldLeader := dossier.TeamLeader
	dossier.TeamLeader = &newLeaderID
	if !dossier.HasTeamMember(newLeaderID) {
		dossier.TeamMembers = append(dossier.TeamMembers, newLeaderID)
	}
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventLeaderChanged,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.LeaderChangedPayload{
			OldLeader: oldLeader,
			NewLeader: newLeaderID,
			Number:    dossier.Number,
		},
	})
	return dossier, nil
}

// SendMessage relays a free-text message to the dossier owner.
func (s *DossierService) SendMessage(ctx context.Context, actor *domain.Actor, id, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return errorutil.NewValidationError("body required", nil)
	}
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if _, err := authz.Authorize(actor, dossier, authz.ActionSendMessage); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventMessageSent,
		DossierID: dossier.ID,
		Actor:     events.ActorFrom(actor),
		Payload: events.MessageSentPayload{
			Body:    body,
			OwnerID: dossier.ClientID,
			Number:  dossier.Number,
		},
	})
	return nil
}

// Heartbeat records a staff member's presence on a dossier. The stored
// list is advisory; the Redis view expires entries on its own.
func (s *DossierService) Heartbeat(ctx context.Context, actor *domain.Actor, id string) error {
	dossier, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if _, err := authz.Authorize(actor, dossier, authz.ActionView); err != nil {
		return err
	}
	if dossier.IsTerminal() {
		return errorutil.NewConflict("dossier is closed", map[string]any{"status": dossier.Status})
	}

	now := s.clock()
	found := false
	for i := range dossier.ActiveCollaborators {
		if dossier.ActiveCollaborators[i].StaffID == actor.ID {
			dossier.ActiveCollaborators[i].LastActivity = now
			found = true
			break
		}
	}
	if !found {
		dossier.ActiveCollaborators = append(dossier.ActiveCollaborators, domain.Collaborator{
			StaffID:      actor.ID,
			JoinedAt:     now,
			LastActivity: now,
		})
	}
	if err := s.dossiers.Update(ctx, dossier); err != nil {
		return errorutil.MapError(err)
	}
	if s.presence != nil {
		if err := s.presence.Touch(ctx, dossier.ID, actor.ID); err != nil {
			s.logger.Warn("presence touch failed", zap.Error(err))
		}
	}
	return nil
}

// ownerPhone resolves the number to text for the dossier owner: the
// inline contact's phone, or the linked account's phone. A failed user
// lookup only suppresses the text.
func (s *DossierService) ownerPhone(ctx context.Context, dossier *domain.Dossier) string {
	if phone := dossier.OwnerPhone(); phone != "" {
		return phone
	}
	if dossier.ClientID == nil || s.users == nil {
		return ""
	}
	user, err := s.users.GetByID(ctx, *dossier.ClientID)
	if err != nil {
		s.logger.Warn("owner phone lookup failed",
			zap.String("dossier_id", dossier.ID),
			zap.Error(err))
		return ""
	}
	return user.Phone
}

func (s *DossierService) fetch(ctx context.Context, id string) (*domain.Dossier, error) {
	dossier, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errorutil.NewNotFound("dossier", map[string]any{"id": id})
		}
		return nil, errorutil.MapError(err)
	}
	return dossier, nil
}

func (s *DossierService) clearPresence(ctx context.Context, dossierID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Clear(ctx, dossierID); err != nil {
		s.logger.Warn("presence clear failed", zap.Error(err))
	}
}

func (s *DossierService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func isValidPriority(priority domain.DossierPriority) bool {
	switch priority {
	case domain.PriorityBasse, domain.PriorityNormale, domain.PriorityHaute, domain.PriorityUrgente:
		return true
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
