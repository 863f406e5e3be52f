package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/repository"
)

// NotificationService fans lifecycle events out to in-app notifications
// and outbound texts. Every delivery is best-effort: failures are logged
// and never reach the publisher.
type NotificationService struct {
	notifications repository.NotificationRepository
	preferences   repository.PreferenceRepository
	staff         repository.StaffRepository
	sms           *SmsService
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	preferences repository.PreferenceRepository,
	staff repository.StaffRepository,
	sms *SmsService,
	logger *zap.Logger,
) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		preferences:   preferences,
		staff:         staff,
		sms:           sms,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to dossier events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventDossierCreated, n.handleDossierCreated)
	dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
	dispatcher.Subscribe(events.EventDossierCancelled, n.handleDossierCancelled)
	dispatcher.Subscribe(events.EventTeamChanged, n.handleTeamChanged)
	dispatcher.Subscribe(events.EventLeaderChanged, n.handleLeaderChanged)
	dispatcher.Subscribe(events.EventMessageSent, n.handleMessageSent)
}

// Notify stores one in-app notification, honoring the recipient's
// preference gate. The critical type can never be suppressed.
func (n *NotificationService) Notify(ctx context.Context, recipientID string, notificationType domain.NotificationType, title, message, link string, metadata map[string]any) {
	if recipientID == "" || n.notifications == nil {
		return
	}
	if notificationType != domain.NotificationCritical && n.preferences != nil {
		enabled, err := n.preferences.IsEnabled(ctx, recipientID, notificationType)
		if err != nil {
			n.logger.Warn("preference lookup failed", zap.String("recipient", recipientID), zap.Error(err))
		} else if !enabled {
			return
		}
	}
	notification := &domain.Notification{
		RecipientID: recipientID,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		Link:        link,
		Metadata:    metadata,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Warn("notification append failed",
			zap.String("recipient", recipientID),
			zap.String("type", string(notificationType)),
			zap.Error(err))
	}
}

func (n *NotificationService) handleDossierCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DossierCreatedPayload)
	if !ok {
		return nil
	}
	if payload.OwnerID != nil {
		n.Notify(ctx, *payload.OwnerID, domain.NotificationStatusChange,
			"Dossier créé",
			fmt.Sprintf("Votre dossier %s a été créé.", payload.Number),
			dossierLink(event.DossierID),
			map[string]any{"dossier_id": event.DossierID})
	}
	n.fanoutImpersonation(ctx, event, "création du dossier "+payload.Number)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil
	}

	message := payload.CustomMessage
	if message == "" {
		message = fmt.Sprintf("Votre dossier %s est passé de « %s » à « %s ».",
			payload.Number,
			domain.StatusLabel(payload.OldStatus),
			domain.StatusLabel(payload.NewStatus))
	}
	if payload.OwnerID != nil {
		n.Notify(ctx, *payload.OwnerID, domain.NotificationStatusChange,
			"Statut du dossier mis à jour", message,
			dossierLink(event.DossierID),
			map[string]any{
				"dossier_id": event.DossierID,
				"old_status": payload.OldStatus,
				"new_status": payload.NewStatus,
			})
	}

	if payload.OwnerPhone != "" && n.sms != nil {
		if code, ok := smsCodeForStatus(payload.NewStatus); ok {
			n.sms.SendTemplated(ctx, payload.OwnerPhone, code, map[string]string{
				"number": payload.Number,
				"status": domain.StatusLabel(payload.NewStatus),
			})
		}
	}

	n.fanoutImpersonation(ctx, event,
		fmt.Sprintf("changement de statut du dossier %s (%s → %s)", payload.Number, payload.OldStatus, payload.NewStatus))
	return nil
}

func (n *NotificationService) handleDossierCancelled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CancelledPayload)
	if !ok {
		return nil
	}

	// Every administrative-tier staff member hears about a cancellation.
	admins, err := n.adminTierStaff(ctx)
	if err != nil {
		n.logger.Warn("admin staff lookup failed", zap.Error(err))
	}
	for _, admin := range admins {
		n.Notify(ctx, admin.ID, domain.NotificationCancellation,
			"Dossier annulé",
			fmt.Sprintf("Le dossier %s a été annulé par son client.", payload.Number),
			dossierLink(event.DossierID),
			map[string]any{"dossier_id": event.DossierID, "reason": payload.Reason})
	}

	if payload.OwnerPhone != "" && n.sms != nil {
		n.sms.SendTemplated(ctx, payload.OwnerPhone, SmsCodeCancellation, map[string]string{
			"number": payload.Number,
		})
	}

	n.fanoutImpersonation(ctx, event, "annulation du dossier "+payload.Number)
	return nil
}

func (n *NotificationService) handleTeamChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TeamChangedPayload)
	if !ok {
		return nil
	}
	for _, memberID := range payload.Members {
		n.Notify(ctx, memberID, domain.NotificationTeamUpdate,
			"Équipe du dossier mise à jour",
			fmt.Sprintf("L'équipe du dossier %s a été modifiée.", payload.Number),
			dossierLink(event.DossierID),
			map[string]any{"dossier_id": event.DossierID})
	}
	n.fanoutImpersonation(ctx, event, "modification de l'équipe du dossier "+payload.Number)
	return nil
}

func (n *NotificationService) handleLeaderChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LeaderChangedPayload)
	if !ok {
		return nil
	}
	n.Notify(ctx, payload.NewLeader, domain.NotificationTeamUpdate,
		"Responsable du dossier",
		fmt.Sprintf("Vous êtes désormais responsable du dossier %s.", payload.Number),
		dossierLink(event.DossierID),
		map[string]any{"dossier_id": event.DossierID})
	n.fanoutImpersonation(ctx, event, "changement de responsable du dossier "+payload.Number)
	return nil
}

func (n *NotificationService) handleMessageSent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageSentPayload)
	if !ok {
		return nil
	}
	if payload.OwnerID != nil {
		n.Notify(ctx, *payload.OwnerID, domain.NotificationMessage,
			"Nouveau message", payload.Body,
			dossierLink(event.DossierID),
			map[string]any{"dossier_id": event.DossierID})
	}
	n.fanoutImpersonation(ctx, event, "message envoyé sur le dossier "+payload.Number)
	return nil
}

// fanoutImpersonation notifies the impersonated account that an action was
// taken on its behalf, and every other administrative-tier member except
// the acting supervisor. Each delivery is independent.
func (n *NotificationService) fanoutImpersonation(ctx context.Context, event events.Event, description string) {
	if !event.Actor.Impersonated {
		return
	}

	n.Notify(ctx, event.Actor.ID, domain.NotificationImpersonation,
		"Action effectuée sur votre compte",
		fmt.Sprintf("Un administrateur a effectué l'action suivante sur votre compte : %s.", description),
		dossierLink(event.DossierID),
		map[string]any{"dossier_id": event.DossierID, "supervisor_id": event.Actor.SupervisorID})

	admins, err := n.adminTierStaff(ctx)
	if err != nil {
		n.logger.Warn("admin staff lookup failed", zap.Error(err))
		return
	}
	for _, admin := range admins {
		if admin.ID == event.Actor.SupervisorID {
			continue
		}
		n.Notify(ctx, admin.ID, domain.NotificationImpersonation,
			"Action en mode impersonation",
			fmt.Sprintf("%s a agi au nom de %s : %s.", event.Actor.SupervisorEmail, event.Actor.Email, description),
			dossierLink(event.DossierID),
			map[string]any{
				"dossier_id":    event.DossierID,
				"supervisor_id": event.Actor.SupervisorID,
				"target_id":     event.Actor.ID,
			})
	}
}

func (n *NotificationService) adminTierStaff(ctx context.Context) ([]domain.StaffMember, error) {
	if n.staff == nil {
		return nil, nil
	}
	return n.staff.ListByRoles(ctx, []domain.StaffRole{domain.StaffRoleSuperadmin, domain.StaffRoleAdmin})
}

func smsCodeForStatus(status domain.DossierStatus) (string, bool) {
	switch status {
	case domain.StatusAccepte, domain.StatusReceptionConfirmee:
		return SmsCodeConfirmation, true
	case domain.StatusAnnule:
		return SmsCodeCancellation, true
	default:
		return "", false
	}
}

func dossierLink(dossierID string) string {
	return "/dossiers/" + dossierID
}
