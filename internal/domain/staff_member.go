package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleSuperadmin StaffRole = "superadmin"
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleAvocat     StaffRole = "avocat"
	StaffRoleAssistant  StaffRole = "assistant"
	StaffRolePartner    StaffRole = "partner"
)

// IsAdminTier reports whether the role belongs to the administrative tier.
// Administrative-tier roles may impersonate accounts and see every dossier.
func (r StaffRole) IsAdminTier() bool {
	return r == StaffRoleSuperadmin || r == StaffRoleAdmin
}

// StaffMember models a lawyer, assistant or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
