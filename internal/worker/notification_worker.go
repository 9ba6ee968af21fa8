package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when
// configured, the Redis relay that mirrors events to other processes.
func StartNotificationWorker(notificationService *service.NotificationService, relay *events.RedisRelay, dispatcher events.Dispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	relay.Attach(dispatcher)
}
