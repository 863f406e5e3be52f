package domain

import "time"

// AuditAction identifies what a sensitive operation did.
type AuditAction string

const (
	AuditDossierCreated     AuditAction = "dossier_created"
	AuditStatusChanged      AuditAction = "dossier_status_changed"
	AuditDossierCancelled   AuditAction = "dossier_cancelled"
	AuditDossierDeleted     AuditAction = "dossier_deleted"
	AuditTeamChanged        AuditAction = "dossier_team_changed"
	AuditLeaderChanged      AuditAction = "dossier_leader_changed"
	AuditMessageSent        AuditAction = "dossier_message_sent"
	AuditImpersonationStart AuditAction = "impersonation_start"
)

// AuditEntry is an append-only record of a sensitive action.
type AuditEntry struct {
	ID           string
	ActorID      string
	ActorEmail   string
	TargetUserID *string
	Action       AuditAction
	Description  string
	Metadata     map[string]any
	IP           string
	UserAgent    string
	CreatedAt    time.Time
}
