package model

import "time"

// Recipient types stored in notifications.recipient_type.
const (
    RecipientAdmin   = "Admin"
    RecipientStudent = "Student"
    RecipientAll     = "All"
)

// Notification is an in-app message shown on the admin or student
// dashboard.  UserID is nil for messages addressed to a whole recipient
// type.
type Notification struct {
    ID            uint64    `json:"notification_id"`
    UserID        *uint64   `json:"user_id,omitempty"`
    RecipientType string    `json:"recipient_type"`
    AlertType     string    `json:"alert_type"`
    Title         string    `json:"title"`
    Message       string    `json:"message"`
    IsRead        bool      `json:"is_read"`
    CreatedAt     time.Time `json:"created_at"`
}
