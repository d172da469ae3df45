package worker

import (
	"github.com/spec-kit/staff-account-service/internal/service"
)

// StartSecurityWorker registers the security monitor handlers.
func StartSecurityWorker(monitor *service.SecurityMonitor) {
	if monitor == nil {
		return
	}
	monitor.RegisterHandlers()
}
