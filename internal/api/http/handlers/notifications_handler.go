package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dossier-service/internal/api/dto"
	"github.com/spec-kit/dossier-service/internal/auth"
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// NotificationsHandler serves per-recipient notification endpoints.
type NotificationsHandler struct {
	notifications repository.NotificationRepository
	preferences   repository.PreferenceRepository
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications repository.NotificationRepository, preferences repository.PreferenceRepository) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, preferences: preferences}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	items, err := h.notifications.ListByRecipient(c.Context(), principal.ID(), unreadOnly, limit, offset)
	if err != nil {
		return errorutil.MapError(err)
	}
	out := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Metadata:  n.Metadata,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	if err := h.notifications.MarkRead(c.Context(), principal.ID(), c.Params("id")); err != nil {
		return errorutil.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetPreference PUT /notifications/preferences.
func (h *NotificationsHandler) SetPreference(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.SetPreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	notificationType := domain.NotificationType(req.Type)
	if notificationType == domain.NotificationCritical {
		return errorutil.NewValidationError("critical notifications cannot be disabled", nil)
	}
	if err := h.preferences.Set(c.Context(), principal.ID(), notificationType, *req.Enabled); err != nil {
		return errorutil.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
