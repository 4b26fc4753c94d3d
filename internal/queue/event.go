// Package queue defines message payloads exchanged over the message broker
// and the consumer that persists notifications.
package queue

// Queue names.  Both are durable; messages are published persistent.
const (
    NotificationQueue = "hostel.notifications"
    OTPQueue          = "hostel.otp"
)

// NotificationEvent is published after an allocation, vacate, room
// deletion, billing save or security alert has been committed.  The
// consumer stores it in the notifications table; EventID deduplicates
// redeliveries.
type NotificationEvent struct {
    EventID       string  `json:"event_id"`
    UserID        *uint64 `json:"user_id,omitempty"`
    RecipientType string  `json:"recipient_type"`
    AlertType     string  `json:"alert_type"`
    Title         string  `json:"title"`
    Message       string  `json:"message"`
    CreatedAt     string  `json:"created_at"`
}

// OTPEvent carries a registration code to the external mailer.  It is
// never persisted by this service.
type OTPEvent struct {
    EventID   string `json:"event_id"`
    Email     string `json:"email"`
    Name      string `json:"name"`
    Code      string `json:"code"`
    ExpiresAt string `json:"expires_at"`
}
