package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/repository"
)

// impersonationMarker prefixes the description of every audit entry
// produced while a supervisor acted as another account.
const impersonationMarker = "[IMPERSONATION] "

// AuditService appends immutable audit entries. Write failures are logged
// and swallowed; an audit miss never aborts the primary action.
type AuditService struct {
	entries repository.AuditRepository
	logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(entries repository.AuditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{entries: entries, logger: logger}
}

// Record appends one entry, best-effort.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditEntry) {
	if s.entries == nil {
		return
	}
	if err := s.entries.Create(ctx, &entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

// RegisterHandlers subscribes the audit trail to every dossier event.
func (s *AuditService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventDossierCreated,
		events.EventStatusChanged,
		events.EventDossierCancelled,
		events.EventTeamChanged,
		events.EventLeaderChanged,
		events.EventMessageSent,
	} {
		dispatcher.Subscribe(eventType, s.handleEvent)
	}
}

func (s *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	entry := domain.AuditEntry{
		ActorID:     event.Actor.ID,
		ActorEmail:  event.Actor.Email,
		Action:      actionForEvent(event.Type),
		Description: string(event.Type) + " on dossier " + event.DossierID,
		Metadata: map[string]any{
			"dossier_id": event.DossierID,
			"payload":    event.Payload,
		},
		IP:        event.Actor.IP,
		UserAgent: event.Actor.UserAgent,
	}
	if event.Actor.Impersonated {
		// Business data stays under the target's identity; the trail names
		// the supervisor.
		entry.ActorID = event.Actor.SupervisorID
		entry.ActorEmail = event.Actor.SupervisorEmail
		targetID := event.Actor.ID
		entry.TargetUserID = &targetID
		entry.Description = impersonationMarker + entry.Description
	}
	s.Record(ctx, entry)
	return nil
}

func actionForEvent(eventType events.EventType) domain.AuditAction {
	switch eventType {
	case events.EventDossierCreated:
		return domain.AuditDossierCreated
	case events.EventStatusChanged:
		return domain.AuditStatusChanged
	case events.EventDossierCancelled:
		return domain.AuditDossierCancelled
	case events.EventTeamChanged:
		return domain.AuditTeamChanged
	case events.EventLeaderChanged:
		return domain.AuditLeaderChanged
	case events.EventMessageSent:
		return domain.AuditMessageSent
	default:
		return domain.AuditAction(eventType)
	}
}
