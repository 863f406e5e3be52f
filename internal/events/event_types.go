package events

import (
	"time"

	"github.com/spec-kit/dossier-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDossierCreated   EventType = "dossier_created"
	EventStatusChanged    EventType = "dossier_status_changed"
	EventDossierCancelled EventType = "dossier_cancelled"
	EventTeamChanged      EventType = "dossier_team_changed"
	EventLeaderChanged    EventType = "dossier_leader_changed"
	EventMessageSent      EventType = "dossier_message_sent"
)

// Actor encapsulates actor metadata for an event, including the
// supervisor identity when the action was impersonated.
type Actor struct {
	ID              string             `json:"id"`
	Email           string             `json:"email"`
	SubjectType     domain.SubjectType `json:"subject_type"`
	Impersonated    bool               `json:"impersonated"`
	SupervisorID    string             `json:"supervisor_id,omitempty"`
	SupervisorEmail string             `json:"supervisor_email,omitempty"`
	IP              string             `json:"ip,omitempty"`
	UserAgent       string             `json:"user_agent,omitempty"`
}

// ActorFrom converts a domain actor into event metadata.
func ActorFrom(actor *domain.Actor) Actor {
	if actor == nil {
		return Actor{}
	}
	out := Actor{
		ID:          actor.ID,
		Email:       actor.Email,
		SubjectType: actor.SubjectType,
		IP:          actor.IP,
		UserAgent:   actor.UserAgent,
	}
	if actor.IsImpersonating() {
		out.Impersonated = true
		out.SupervisorID = actor.Supervisor.ID
		out.SupervisorEmail = actor.Supervisor.Email
	}
	return out
}

// Event represents a domain event emitted after a dossier mutation commits.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	DossierID string      `json:"dossier_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DossierCreatedPayload payload.
type DossierCreatedPayload struct {
	Number   string                 `json:"number"`
	Title    string                 `json:"title"`
	Priority domain.DossierPriority `json:"priority"`
	OwnerID  *string                `json:"owner_id,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus     domain.DossierStatus `json:"old_status"`
	NewStatus     domain.DossierStatus `json:"new_status"`
	CustomMessage string               `json:"custom_message,omitempty"`
	OwnerID       *string              `json:"owner_id,omitempty"`
	OwnerPhone    string               `json:"owner_phone,omitempty"`
	Number        string               `json:"number"`
}

// CancelledPayload payload.
type CancelledPayload struct {
	PriorStatus domain.DossierStatus `json:"prior_status"`
	Reason      string               `json:"reason,omitempty"`
	Number      string               `json:"number"`
	OwnerID     *string              `json:"owner_id,omitempty"`
	OwnerPhone  string               `json:"owner_phone,omitempty"`
}

// TeamChangedPayload payload.
type TeamChangedPayload struct {
	Members []string `json:"members"`
	Number  string   `json:"number"`
}

// LeaderChangedPayload payload.
type LeaderChangedPayload struct {
	OldLeader *string `json:"old_leader,omitempty"`
	NewLeader string  `json:"new_leader"`
	Number    string  `json:"number"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	Body    string  `json:"body"`
	OwnerID *string `json:"owner_id,omitempty"`
	Number  string  `json:"number"`
}
