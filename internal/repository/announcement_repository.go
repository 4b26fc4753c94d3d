package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hostel-management/internal/model"
)

type AnnouncementRepo struct {
	db *sql.DB
}

func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

// Create stores an announcement and returns its id.
func (r *AnnouncementRepo) Create(ctx context.Context, title, message string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (title, message) VALUES (?, ?)`, title, message)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// List returns announcements newest first.
func (r *AnnouncementRepo) List(ctx context.Context) ([]model.Announcement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, message, created_at FROM announcements ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Announcement, 0)
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an announcement.  It returns sql.ErrNoRows when id does
// not exist.
func (r *AnnouncementRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
