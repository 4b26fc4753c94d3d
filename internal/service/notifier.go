// Package service holds the outbound side of the application: the
// notification dispatcher used by the allocation, billing and auth flows.
package service

import (
    "context"
    "log"
    "time"

    "github.com/iliyamo/hostel-management/internal/model"
)

// Notifier dispatches in-app notifications and registration codes.
// Delivery is best effort; callers invoke it only after their
// transaction has committed.
type Notifier interface {
    Notify(ctx context.Context, n model.Notification) error
    SendOTP(ctx context.Context, email, name, code string, expiresAt time.Time) error
}

// Nop discards everything.  Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Notify(context.Context, model.Notification) error { return nil }

func (Nop) SendOTP(context.Context, string, string, string, time.Time) error { return nil }

// Dispatch sends n through notifier and logs a failure instead of
// returning it.  A nil notifier is allowed.
func Dispatch(ctx context.Context, notifier Notifier, n model.Notification) {
    if notifier == nil {
        return
    }
    if err := notifier.Notify(ctx, n); err != nil {
        log.Printf("notify: %s %q dropped: %v", n.AlertType, n.Title, err)
    }
}
