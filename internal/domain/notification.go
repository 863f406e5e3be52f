package domain

import "time"

// NotificationType categorizes in-app notifications. The critical type is
// reserved for messages that can never be suppressed by user preferences.
type NotificationType string

const (
	NotificationStatusChange  NotificationType = "status_change"
	NotificationCancellation  NotificationType = "cancellation"
	NotificationDeletion      NotificationType = "deletion"
	NotificationTeamUpdate    NotificationType = "team_update"
	NotificationMessage       NotificationType = "message"
	NotificationImpersonation NotificationType = "impersonation"
	NotificationReminder      NotificationType = "reminder"
	NotificationCritical      NotificationType = "critical"
)

// Notification is an in-app message addressed to one account.
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	Link        string
	Metadata    map[string]any
	Read        bool
	CreatedAt   time.Time
}
