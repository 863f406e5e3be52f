package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
	"github.com/spec-kit/dossier-service/internal/gateway"
	"github.com/spec-kit/dossier-service/internal/repository"
)

// Template codes for outbound texts.
const (
	SmsCodeConfirmation = "dossier_confirmation"
	SmsCodeCancellation = "dossier_cancellation"
	SmsCodeStatusUpdate = "dossier_status_update"
)

// defaultSmsBodies back every code when no active template matches.
var defaultSmsBodies = map[string]string{
	SmsCodeConfirmation: "Votre dossier {{number}} a été confirmé. Statut : {{status}}.",
	SmsCodeCancellation: "Votre dossier {{number}} a été annulé.",
	SmsCodeStatusUpdate: "Votre dossier {{number}} est passé au statut : {{status}}.",
}

// SmsService renders templated texts and sends them through the gateway.
// Every attempt appends an immutable history record regardless of outcome.
type SmsService struct {
	templates repository.SmsTemplateRepository
	history   repository.SmsHistoryRepository
	gateway   gateway.SmsGateway
	logger    *zap.Logger
}

// NewSmsService constructs the service.
func NewSmsService(templates repository.SmsTemplateRepository, history repository.SmsHistoryRepository, gw gateway.SmsGateway, logger *zap.Logger) *SmsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SmsService{templates: templates, history: history, gateway: gw, logger: logger}
}

// SendTemplated resolves the template for code, substitutes {{variable}}
// placeholders from data and sends the text. Delivery failures are logged
// and recorded in history, never returned.
func (s *SmsService) SendTemplated(ctx context.Context, destination, code string, data map[string]string) {
	if strings.TrimSpace(destination) == "" {
		return
	}

	body := s.resolveBody(ctx, code)
	body = RenderTemplate(body, data)

	record := &domain.SmsHistory{
		Destination:  destination,
		Body:         body,
		TemplateCode: code,
	}

	providerID, err := s.gateway.Send(ctx, destination, body)
	if err != nil {
		record.Status = domain.SmsStatusFailed
		record.ErrorReason = err.Error()
		s.logger.Warn("sms delivery failed",
			zap.String("destination", destination),
			zap.String("code", code),
			zap.Error(err))
	} else {
		record.Status = domain.SmsStatusSent
		record.ProviderID = providerID
	}

	if err := s.history.Create(ctx, record); err != nil {
		s.logger.Error("sms history append failed", zap.Error(err))
	}
}

func (s *SmsService) resolveBody(ctx context.Context, code string) string {
	if s.templates != nil {
		tpl, err := s.templates.GetActiveByCode(ctx, code)
		if err == nil && tpl != nil {
			return tpl.Body
		}
	}
	if body, ok := defaultSmsBodies[code]; ok {
		return body
	}
	return "Mise à jour de votre dossier {{number}}."
}

// RenderTemplate substitutes {{key}} placeholders against the data map.
// Unknown placeholders are left untouched.
func RenderTemplate(body string, data map[string]string) string {
	for key, value := range data {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}
	return body
}
