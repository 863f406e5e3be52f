package worker

import (
	"github.com/spec-kit/dossier-service/internal/events"
	"github.com/spec-kit/dossier-service/internal/service"
)

// StartNotificationWorker registers notification and audit handlers on
// the event dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, audit *service.AuditService) {
	if notifications != nil {
		notifications.RegisterHandlers(dispatcher)
	}
	if audit != nil {
		audit.RegisterHandlers(dispatcher)
	}
}
