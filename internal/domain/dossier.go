package domain

import (
	"strings"
	"time"
)

// DossierStatus enumerates lifecycle states for case files.
type DossierStatus string

const (
	StatusRecu                DossierStatus = "recu"
	StatusAccepte             DossierStatus = "accepte"
	StatusRefuse              DossierStatus = "refuse"
	StatusEnAttenteOnboarding DossierStatus = "en_attente_onboarding"
	StatusEnCoursInstruction  DossierStatus = "en_cours_instruction"
	StatusPiecesManquantes    DossierStatus = "pieces_manquantes"
	StatusDossierComplet      DossierStatus = "dossier_complet"
	StatusDepose              DossierStatus = "depose"
	StatusReceptionConfirmee  DossierStatus = "reception_confirmee"
	StatusComplementDemande   DossierStatus = "complement_demande"
	StatusDecisionDefavorable DossierStatus = "decision_defavorable"
	StatusCommunicationMotifs DossierStatus = "communication_motifs"
	StatusRecoursPreparation  DossierStatus = "recours_preparation"
	StatusRefereMesuresUtiles DossierStatus = "refere_mesures_utiles"
	StatusRefereSuspensionRep DossierStatus = "refere_suspension_rep"
	StatusGainCause           DossierStatus = "gain_cause"
	StatusRejet               DossierStatus = "rejet"
	StatusDecisionFavorable   DossierStatus = "decision_favorable"
	StatusAutre               DossierStatus = "autre"
	StatusAnnule              DossierStatus = "annule"
)

// AllStatuses contains every declared status; any may follow any other.
var AllStatuses = []DossierStatus{
	StatusRecu, StatusAccepte, StatusRefuse, StatusEnAttenteOnboarding,
	StatusEnCoursInstruction, StatusPiecesManquantes, StatusDossierComplet,
	StatusDepose, StatusReceptionConfirmee, StatusComplementDemande,
	StatusDecisionDefavorable, StatusCommunicationMotifs, StatusRecoursPreparation,
	StatusRefereMesuresUtiles, StatusRefereSuspensionRep, StatusGainCause,
	StatusRejet, StatusDecisionFavorable, StatusAutre, StatusAnnule,
}

var terminalStatuses = map[DossierStatus]struct{}{
	StatusAnnule:              {},
	StatusDecisionFavorable:   {},
	StatusDecisionDefavorable: {},
	StatusRejet:               {},
	StatusGainCause:           {},
}

// IsTerminalStatus reports whether the workflow ends at the given status.
func IsTerminalStatus(status DossierStatus) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsValidStatus reports whether the label belongs to the declared set.
func IsValidStatus(status DossierStatus) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusLabel returns the human-readable French description for a status.
func StatusLabel(status DossierStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

var statusLabels = map[DossierStatus]string{
	StatusRecu:                "Dossier reçu",
	StatusAccepte:             "Dossier accepté",
	StatusRefuse:              "Dossier refusé",
	StatusEnAttenteOnboarding: "En attente d'onboarding",
	StatusEnCoursInstruction:  "En cours d'instruction",
	StatusPiecesManquantes:    "Pièces manquantes",
	StatusDossierComplet:      "Dossier complet",
	StatusDepose:              "Dossier déposé",
	StatusReceptionConfirmee:  "Réception confirmée",
	StatusComplementDemande:   "Complément demandé",
	StatusDecisionDefavorable: "Décision défavorable",
	StatusCommunicationMotifs: "Communication des motifs",
	StatusRecoursPreparation:  "Recours en préparation",
	StatusRefereMesuresUtiles: "Référé mesures utiles",
	StatusRefereSuspensionRep: "Référé suspension REP",
	StatusGainCause:           "Gain de cause",
	StatusRejet:               "Rejet",
	StatusDecisionFavorable:   "Décision favorable",
	StatusAutre:               "Autre",
	StatusAnnule:              "Dossier annulé",
}

// DossierPriority enumerates urgency levels.
type DossierPriority string

const (
	PriorityBasse   DossierPriority = "basse"
	PriorityNormale DossierPriority = "normale"
	PriorityHaute   DossierPriority = "haute"
	PriorityUrgente DossierPriority = "urgente"
)

// ContactInfo holds inline client identity when no account is linked.
type ContactInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Collaborator tracks a staff member currently working on a dossier.
// Presence is advisory only; entries may go stale outside terminal cleanup.
type Collaborator struct {
	StaffID      string    `json:"staff_id"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Dossier is the aggregate for one client's legal matter.
type Dossier struct {
	ID          string
	Number      string
	Title       string
	Description string
	Status      DossierStatus
	Priority    DossierPriority

	// Exactly one of ClientID / Contact identifies the owner.
	ClientID *string
	Contact  *ContactInfo

	CreatedBy           *string
	TeamMembers         []string
	TeamLeader          *string
	ActiveCollaborators []Collaborator
	Notes               string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the dossier reached a terminal status.
func (d *Dossier) IsTerminal() bool {
	return IsTerminalStatus(d.Status)
}

// HasTeamMember reports whether the staff id is on the dossier team.
func (d *Dossier) HasTeamMember(staffID string) bool {
	for _, id := range d.TeamMembers {
		if id == staffID {
			return true
		}
	}
	return false
}

// IsTeamLeader reports whether the staff id leads the dossier team.
func (d *Dossier) IsTeamLeader(staffID string) bool {
	return d.TeamLeader != nil && *d.TeamLeader == staffID
}

// OwnedByClient reports whether the linked account owns the dossier.
func (d *Dossier) OwnedByClient(clientID string) bool {
	return d.ClientID != nil && *d.ClientID == clientID
}

// MatchesContact reports whether the inline contact identity matches.
// Used to authorize cancellation when no account is linked.
func (d *Dossier) MatchesContact(email, phone string) bool {
	if d.Contact == nil {
		return false
	}
	if email != "" && strings.EqualFold(d.Contact.Email, email) {
		return true
	}
	return phone != "" && d.Contact.Phone == phone
}

// OwnerPhone returns the inline contact's phone number, if any. A linked
// account keeps its phone on the user record instead.
func (d *Dossier) OwnerPhone() string {
	if d.Contact != nil {
		return d.Contact.Phone
	}
	return ""
}

// AppendNote adds a timestamped annotation to the free-text notes.
func (d *Dossier) AppendNote(note string, at time.Time) {
	entry := "[" + at.Format("2006-01-02 15:04") + "] " + note
	if d.Notes == "" {
		d.Notes = entry
		return
	}
	d.Notes = d.Notes + "\n" + entry
}
