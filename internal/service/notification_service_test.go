package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/dossier-service/internal/domain"
)

func newNotifier() (*NotificationService, *memNotificationRepo, *memPreferenceRepo) {
	notifications := &memNotificationRepo{}
	preferences := &memPreferenceRepo{}
	svc := NewNotificationService(notifications, preferences, &memStaffRepo{staff: map[string]*domain.StaffMember{}}, nil, zap.NewNop())
	return svc, notifications, preferences
}

func TestNotifyStoresNotification(t *testing.T) {
	svc, notifications, _ := newNotifier()

	svc.Notify(context.Background(), "client-1", domain.NotificationStatusChange,
		"Statut mis à jour", "Votre dossier avance.", "/dossiers/d-1", nil)

	if len(notifications.created) != 1 {
		t.Fatalf("created = %d, want 1", len(notifications.created))
	}
	n := notifications.created[0]
	if n.RecipientID != "client-1" || n.Link != "/dossiers/d-1" || n.Read {
		t.Fatalf("notification = %+v", n)
	}
}

func TestNotifyHonorsPreferenceGate(t *testing.T) {
	svc, notifications, preferences := newNotifier()
	if err := preferences.Set(context.Background(), "client-1", domain.NotificationStatusChange, false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	svc.Notify(context.Background(), "client-1", domain.NotificationStatusChange,
		"Statut mis à jour", "suppressed", "", nil)

	if len(notifications.created) != 0 {
		t.Fatalf("suppressed type still stored: %+v", notifications.created)
	}
}

func TestNotifyCriticalBypassesPreferences(t *testing.T) {
	svc, notifications, preferences := newNotifier()
	if err := preferences.Set(context.Background(), "client-1", domain.NotificationCritical, false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	svc.Notify(context.Background(), "client-1", domain.NotificationCritical,
		"Suppression du dossier", "delivered regardless", "", nil)

	if len(notifications.created) != 1 {
		t.Fatalf("critical notice suppressed, created = %d", len(notifications.created))
	}
}

func TestNotifySkipsEmptyRecipient(t *testing.T) {
	svc, notifications, _ := newNotifier()

	svc.Notify(context.Background(), "", domain.NotificationStatusChange, "t", "m", "", nil)

	if len(notifications.created) != 0 {
		t.Fatalf("empty recipient stored: %+v", notifications.created)
	}
}

func TestSmsCodeForStatus(t *testing.T) {
	cases := []struct {
		status domain.DossierStatus
		code   string
		ok     bool
	}{
		{domain.StatusAccepte, SmsCodeConfirmation, true},
		{domain.StatusReceptionConfirmee, SmsCodeConfirmation, true},
		{domain.StatusAnnule, SmsCodeCancellation, true},
		{domain.StatusEnCoursInstruction, "", false},
	}
	for _, tc := range cases {
		code, ok := smsCodeForStatus(tc.status)
		if code != tc.code || ok != tc.ok {
			t.Fatalf("smsCodeForStatus(%s) = (%q, %v), want (%q, %v)", tc.status, code, ok, tc.code, tc.ok)
		}
	}
}
