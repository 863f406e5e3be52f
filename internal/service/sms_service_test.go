package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
)

func TestRenderTemplate(t *testing.T) {
	body := "Votre dossier {{number}} est passé au statut : {{status}}."
	got := RenderTemplate(body, map[string]string{
		"number": "DOS-20260314-0001",
		"status": "Dossier accepté",
	})
	want := "Votre dossier DOS-20260314-0001 est passé au statut : Dossier accepté."
	if got != want {
		t.Fatalf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	got := RenderTemplate("Bonjour {{name}}, dossier {{number}}.", map[string]string{"number": "DOS-1"})
	if got != "Bonjour {{name}}, dossier DOS-1." {
		t.Fatalf("RenderTemplate() = %q", got)
	}
}

func TestSendTemplatedUsesStoredTemplate(t *testing.T) {
	history := &memSmsHistoryRepo{}
	gw := &fakeSmsGateway{}
	templates := &memTemplateRepo{templates: map[string]*domain.SmsTemplate{
		SmsCodeConfirmation: {Code: SmsCodeConfirmation, Body: "Cabinet : dossier {{number}} confirmé.", Active: true},
	}}
	svc := NewSmsService(templates, history, gw, zap.NewNop())

	svc.SendTemplated(context.Background(), "+33600000001", SmsCodeConfirmation, map[string]string{"number": "DOS-1"})

	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	record := history.records[0]
	if record.Body != "Cabinet : dossier DOS-1 confirmé." {
		t.Fatalf("body = %q, want the stored template rendered", record.Body)
	}
	if record.Status != domain.SmsStatusSent || record.ProviderID != "provider-1" {
		t.Fatalf("record = %+v, want sent with provider id", record)
	}
}

func TestSendTemplatedFallsBackToDefaultBody(t *testing.T) {
	history := &memSmsHistoryRepo{}
	gw := &fakeSmsGateway{}
	svc := NewSmsService(&memTemplateRepo{}, history, gw, zap.NewNop())

	svc.SendTemplated(context.Background(), "+33600000001", SmsCodeCancellation, map[string]string{"number": "DOS-1"})

	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	if history.records[0].Body != "Votre dossier DOS-1 a été annulé." {
		t.Fatalf("body = %q, want the default cancellation body", history.records[0].Body)
	}
}

func TestSendTemplatedRecordsFailure(t *testing.T) {
	history := &memSmsHistoryRepo{}
	gw := &fakeSmsGateway{err: errors.New("timeout")}
	svc := NewSmsService(&memTemplateRepo{}, history, gw, zap.NewNop())

	svc.SendTemplated(context.Background(), "+33600000001", SmsCodeStatusUpdate, nil)

	if len(history.records) != 1 {
		t.Fatalf("failed delivery must still append history, got %d records", len(history.records))
	}
	record := history.records[0]
	if record.Status != domain.SmsStatusFailed || record.ErrorReason == "" {
		t.Fatalf("record = %+v, want failed with reason", record)
	}
}

func TestSendTemplatedSkipsBlankDestination(t *testing.T) {
	history := &memSmsHistoryRepo{}
	gw := &fakeSmsGateway{}
	svc := NewSmsService(&memTemplateRepo{}, history, gw, zap.NewNop())

	svc.SendTemplated(context.Background(), "  ", SmsCodeConfirmation, nil)

	if len(history.records) != 0 || len(gw.sent) != 0 {
		t.Fatalf("blank destination must be a no-op, history=%d sent=%d", len(history.records), len(gw.sent))
	}
}
