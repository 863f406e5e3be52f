package domain

// SubjectType differentiates client vs staff tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// Supervisor identifies the authenticated administrator behind an
// impersonated request. It exists only for the duration of one request.
type Supervisor struct {
	ID    string
	Email string
	Role  StaffRole
}

// Actor is the effective identity a request operates as. When Supervisor
// is set the actor carries the impersonated user's identity for business
// records while authorization is evaluated against the supervisor's role.
type Actor struct {
	ID          string
	Email       string
	SubjectType SubjectType
	StaffRole   StaffRole // zero value for clients

	Supervisor *Supervisor

	IP        string
	UserAgent string
}

// IsImpersonating reports whether a supervisor substituted this identity.
func (a *Actor) IsImpersonating() bool {
	return a != nil && a.Supervisor != nil
}

// AuthorizationRole returns the staff role permission checks run against.
func (a *Actor) AuthorizationRole() StaffRole {
	if a.IsImpersonating() {
		return a.Supervisor.Role
	}
	return a.StaffRole
}

// IsStaff reports whether the effective subject is a staff member.
func (a *Actor) IsStaff() bool {
	return a != nil && a.SubjectType == SubjectTypeStaff
}
