package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hostel-management/internal/utils"
)

// AdminSeed describes the bootstrap administrator created on first start.
type AdminSeed struct {
	Email    string
	FullName string
	Password string
	Cost     int // bcrypt cost
}

// SeedAdmin creates an ADMIN user from s unless a user with the same email
// already exists.  It reports whether a row was inserted.  An empty email
// or password disables seeding.
func SeedAdmin(ctx context.Context, db *sql.DB, s AdminSeed) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" || s.Password == "" {
		return false, nil
	}
	var id uint64
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? LIMIT 1`, email).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	hash, err := utils.HashPassword(s.Password, s.Cost)
	if err != nil {
		return false, err
	}
	name := strings.TrimSpace(s.FullName)
	if name == "" {
		name = "Administrator"
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO users (full_name, email, password_hash, role) VALUES (?, ?, ?, 'ADMIN')`,
		name, email, hash,
	); err != nil {
		return false, err
	}
	return true, nil
}
