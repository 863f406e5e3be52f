package dto

import (
	"time"

	"github.com/spec-kit/dossier-service/internal/authz"
	"github.com/spec-kit/dossier-service/internal/domain"
)

// ContactRequest carries inline client identity.
type ContactRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=6"`
}

// CreateDossierRequest payload.
type CreateDossierRequest struct {
	Title       string                 `json:"title" validate:"required,min=3"`
	Description string                 `json:"description"`
	Priority    domain.DossierPriority `json:"priority" validate:"omitempty,oneof=basse normale haute urgente"`
	ClientID    *string                `json:"client_id"`
	Contact     *ContactRequest        `json:"contact"`
}

// IntakeDossierRequest is the anonymous self-service variant; a contact
// identity is mandatory.
type IntakeDossierRequest struct {
	Title       string                 `json:"title" validate:"required,min=3"`
	Description string                 `json:"description"`
	Priority    domain.DossierPriority `json:"priority" validate:"omitempty,oneof=basse normale haute urgente"`
	Contact     ContactRequest         `json:"contact" validate:"required"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status        domain.DossierStatus `json:"status" validate:"required"`
	CustomMessage string               `json:"custom_message"`
}

// CancelDossierRequest payload. Email/phone identify an anonymous client.
type CancelDossierRequest struct {
	Reason string `json:"reason"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone"`
}

// UpdateDetailsRequest payload.
type UpdateDetailsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTeamRequest payload.
type UpdateTeamRequest struct {
	Members []string `json:"members" validate:"required"`
}

// ChangeLeaderRequest payload.
type ChangeLeaderRequest struct {
	LeaderID string `json:"leader_id" validate:"required"`
}

// SendMessageRequest payload.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// CollaboratorResponse presence entry.
type CollaboratorResponse struct {
	StaffID      string    `json:"staff_id"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActivity time.Time `json:"last_activity"`
}

// DossierSummary response.
type DossierSummary struct {
	ID        string                 `json:"id"`
	Number    string                 `json:"number"`
	Title     string                 `json:"title"`
	Status    domain.DossierStatus   `json:"status"`
	Priority  domain.DossierPriority `json:"priority"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// DossierDetail response.
type DossierDetail struct {
	ID                  string                 `json:"id"`
	Number              string                 `json:"number"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	Status              domain.DossierStatus   `json:"status"`
	StatusLabel         string                 `json:"status_label"`
	Priority            domain.DossierPriority `json:"priority"`
	ClientID            *string                `json:"client_id,omitempty"`
	Contact             *ContactRequest        `json:"contact,omitempty"`
	CreatedBy           *string                `json:"created_by,omitempty"`
	TeamMembers         []string               `json:"team_members"`
	TeamLeader          *string                `json:"team_leader,omitempty"`
	ActiveCollaborators []CollaboratorResponse `json:"active_collaborators"`
	Notes               string                 `json:"notes,omitempty"`
	Capabilities        authz.Capabilities     `json:"capabilities"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// NewDossierSummary maps a dossier to its summary.
func NewDossierSummary(d *domain.Dossier) DossierSummary {
	return DossierSummary{
		ID:        d.ID,
		Number:    d.Number,
		Title:     d.Title,
		Status:    d.Status,
		Priority:  d.Priority,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// NewDossierDetail maps a dossier plus resolved capabilities.
func NewDossierDetail(d *domain.Dossier, caps authz.Capabilities) DossierDetail {
	detail := DossierDetail{
		ID:           d.ID,
		Number:       d.Number,
		Title:        d.Title,
		Description:  d.Description,
		Status:       d.Status,
		StatusLabel:  domain.StatusLabel(d.Status),
		Priority:     d.Priority,
		ClientID:     d.ClientID,
		CreatedBy:    d.CreatedBy,
		TeamMembers:  d.TeamMembers,
		TeamLeader:   d.TeamLeader,
		Notes:        d.Notes,
		Capabilities: caps,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Contact != nil {
		detail.Contact = &ContactRequest{
			FirstName: d.Contact.FirstName,
			LastName:  d.Contact.LastName,
			Email:     d.Contact.Email,
			Phone:     d.Contact.Phone,
		}
	}
	for _, c := range d.ActiveCollaborators {
		detail.ActiveCollaborators = append(detail.ActiveCollaborators, CollaboratorResponse{
			StaffID:      c.StaffID,
			JoinedAt:     c.JoinedAt,
			LastActivity: c.LastActivity,
		})
	}
	return detail
}
