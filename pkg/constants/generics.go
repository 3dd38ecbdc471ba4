package constants

import "time"

// RFC3339DateTimeFormat is used for every timestamp we serialize.
const RFC3339DateTimeFormat = time.RFC3339

const (
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1

	// WaitlistRateLimitRequests bounds signups per client IP per minute.
	WaitlistRateLimitRequests = 30
	// MonitoringRateLimitRequests bounds health probes per client IP per minute.
	MonitoringRateLimitRequests = 10
)

const (
	NotificationSubject   = "New BillSync Waitlist Signup"
	NotificationQueuedMsg = "Notification sent successfully"
	WaitlistTable         = "waitlist"
	EmailsTable           = "emails"
	NotifyFunctionPath    = "/functions/v1/notify-waitlist"
	DefaultTriggerListKey = "billsync:rows:waitlist"
)

func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}
