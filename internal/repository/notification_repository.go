package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-management/internal/model"
)

// NotificationRepo stores the in-app notifications written by the queue
// consumer and read by the dashboards.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert stores a notification.  eventID makes redelivered broker messages
// idempotent: a second insert with the same id is ignored.
func (r *NotificationRepo) Insert(ctx context.Context, n model.Notification, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO notifications (user_id, recipient_type, alert_type, title, message, event_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, n.RecipientType, n.AlertType, n.Title, n.Message, nullIfEmpty(eventID),
	)
	return err
}

// UnreadForAdmins returns unread notifications addressed to admins or to
// everyone, newest first.
func (r *NotificationRepo) UnreadForAdmins(ctx context.Context) ([]model.Notification, error) {
	return r.list(ctx,
		`SELECT notification_id, user_id, recipient_type, alert_type, title, message, is_read, created_at
		 FROM notifications
		 WHERE recipient_type IN ('Admin','All') AND is_read = 0
		 ORDER BY created_at DESC, notification_id DESC`)
}

// ForStudent returns the latest 100 notifications addressed to the user or
// broadcast to all students.
func (r *NotificationRepo) ForStudent(ctx context.Context, userID uint64) ([]model.Notification, error) {
	return r.list(ctx,
		`SELECT notification_id, user_id, recipient_type, alert_type, title, message, is_read, created_at
		 FROM notifications
		 WHERE (recipient_type = 'Student' AND user_id = ?)
		    OR (recipient_type IN ('Student','All') AND user_id IS NULL)
		 ORDER BY created_at DESC, notification_id DESC
		 LIMIT 100`, userID)
}

// MarkRead flags a notification as read.  Students may only mark their own
// notifications; pass ownerID 0 for admins.  Returns sql.ErrNoRows when the
// notification does not exist or belongs to someone else.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, ownerID uint64) error {
	q := `UPDATE notifications SET is_read = 1 WHERE notification_id = ?`
	args := []any{id}
	if ownerID != 0 {
		q += ` AND user_id = ?`
		args = append(args, ownerID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for a row that was already read, so look at the
		// owner before deciding.
		var uid sql.NullInt64
		if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM notifications WHERE notification_id = ?`, id).Scan(&uid); err != nil {
			return err
		}
		if ownerID != 0 && (!uid.Valid || uint64(uid.Int64) != ownerID) {
			return sql.ErrNoRows
		}
	}
	return nil
}

func (r *NotificationRepo) list(ctx context.Context, q string, args ...any) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		var uid sql.NullInt64
		if err := rows.Scan(&n.ID, &uid, &n.RecipientType, &n.AlertType, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			v := uint64(uid.Int64)
			n.UserID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
