package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dossier-service/internal/api/dto"
	"github.com/spec-kit/dossier-service/internal/auth"
	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/repository"
	"github.com/spec-kit/dossier-service/internal/service"
	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

// DossiersHandler exposes the case-file workflow endpoints.
type DossiersHandler struct {
	service *service.DossierService
}

// NewDossiersHandler constructs handler.
func NewDossiersHandler(dossierService *service.DossierService) *DossiersHandler {
	return &DossiersHandler{service: dossierService}
}

// Intake POST /intake/dossiers. Anonymous self-service creation.
func (h *DossiersHandler) Intake(c *fiber.Ctx) error {
	var req dto.IntakeDossierRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dossier, err := h.service.CreateDossier(c.Context(), nil, service.DossierCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Contact: &domain.ContactInfo{
			FirstName: req.Contact.FirstName,
			LastName:  req.Contact.LastName,
			Email:     req.Contact.Email,
			Phone:     req.Contact.Phone,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// Create POST /dossiers.
func (h *DossiersHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.CreateDossierRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.DossierCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		ClientID:    req.ClientID,
	}
	if req.Contact != nil {
		input.Contact = &domain.ContactInfo{
			FirstName: req.Contact.FirstName,
			LastName:  req.Contact.LastName,
			Email:     req.Contact.Email,
			Phone:     req.Contact.Phone,
		}
	}
	if !actor.IsStaff() && input.ClientID == nil && input.Contact == nil {
		clientID := actor.ID
		input.ClientID = &clientID
	}

	dossier, err := h.service.CreateDossier(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// List GET /dossiers.
func (h *DossiersHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}

	filter := repository.DossierFilter{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.DossierStatus{domain.DossierStatus(status)}
	}
	if priority := c.Query("priority"); priority != "" {
		filter.Priorities = []domain.DossierPriority{domain.DossierPriority(priority)}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}

	dossiers, err := h.service.ListDossiers(c.Context(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.DossierSummary, 0, len(dossiers))
	for i := range dossiers {
		items = append(items, dto.NewDossierSummary(&dossiers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /dossiers/:id.
func (h *DossiersHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	dossier, caps, err := h.service.GetDossier(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierDetail(dossier, caps)})
}

// UpdateStatus PATCH /dossiers/:id/status.
func (h *DossiersHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dossier, err := h.service.UpdateStatus(c.Context(), actor, c.Params("id"), req.Status, req.CustomMessage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// Cancel POST /dossiers/:id/cancel.
func (h *DossiersHandler) Cancel(c *fiber.Ctx) error {
	// Actor may be absent: anonymous clients cancel by contact identity.
	actor, _ := auth.ActorFromContext(c)
	var req dto.CancelDossierRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dossier, err := h.service.CancelDossier(c.Context(), actor, c.Params("id"), service.CancelIdentity{
		Email: req.Email,
		Phone: req.Phone,
	}, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// UpdateDetails PATCH /dossiers/:id.
func (h *DossiersHandler) UpdateDetails(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.UpdateDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	dossier, err := h.service.UpdateDetails(c.Context(), actor, c.Params("id"), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// Delete DELETE /dossiers/:id.
func (h *DossiersHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteDossier(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateTeam PUT /dossiers/:id/team.
func (h *DossiersHandler) UpdateTeam(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	dossier, err := h.service.UpdateTeam(c.Context(), actor, c.Params("id"), req.Members)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// ChangeLeader PUT /dossiers/:id/leader.
func (h *DossiersHandler) ChangeLeader(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.ChangeLeaderRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	dossier, err := h.service.ChangeLeader(c.Context(), actor, c.Params("id"), req.LeaderID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDossierSummary(dossier)})
}

// SendMessage POST /dossiers/:id/messages.
func (h *DossiersHandler) SendMessage(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := h.service.SendMessage(c.Context(), actor, c.Params("id"), req.Body); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// Heartbeat POST /dossiers/:id/presence.
func (h *DossiersHandler) Heartbeat(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	if err := h.service.Heartbeat(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
