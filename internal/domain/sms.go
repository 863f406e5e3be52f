package domain

import "time"

// SmsTemplate is an outbound text template keyed by a string code.
// Bodies use {{variable}} placeholders substituted at send time.
type SmsTemplate struct {
	ID        string
	Code      string
	Body      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SmsDeliveryStatus records the outcome of one send attempt.
type SmsDeliveryStatus string

const (
	SmsStatusSent   SmsDeliveryStatus = "sent"
	SmsStatusFailed SmsDeliveryStatus = "failed"
)

// SmsHistory is an immutable record of one outbound text message.
type SmsHistory struct {
	ID           string
	Destination  string
	Body         string
	TemplateCode string
	Status       SmsDeliveryStatus
	ProviderID   string
	ErrorReason  string
	CreatedAt    time.Time
}
