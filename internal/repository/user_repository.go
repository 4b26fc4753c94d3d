package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hostel-management/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewStudent is the data needed to create a STUDENT user.  PasswordHash is
// already bcrypt-hashed; the raw password never reaches this layer.
type NewStudent struct {
	RollNo       string
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
}

const userColumns = `id, IFNULL(roll_no,''), full_name, email, IFNULL(phone,''), password_hash, role,
	IFNULL(hostel_name,''), IFNULL(room_no,''), login_attempts, last_attempt_at, created_at`

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	var last sql.NullTime
	err := s.Scan(&u.ID, &u.RollNo, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.HostelName, &u.RoomNo, &u.LoginAttempts, &last, &u.CreatedAt)
	if last.Valid {
		t := last.Time
		u.LastAttemptAt = &t
	}
	return u, err
}

// CreateStudent inserts a STUDENT user and returns its ID.  A taken roll
// number or email yields ErrUserExists.
func (r *UserRepo) CreateStudent(ctx context.Context, s NewStudent) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (roll_no, full_name, email, phone, password_hash, role) VALUES (?,?,?,?,?,'STUDENT')",
		s.RollNo, s.FullName, strings.ToLower(strings.TrimSpace(s.Email)), s.Phone, s.PasswordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Exists reports whether a user already uses rollNo or email.
func (r *UserRepo) Exists(ctx context.Context, rollNo, email string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE roll_no=? OR email=? LIMIT 1",
		rollNo, strings.ToLower(strings.TrimSpace(email))).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetByLogin fetches a user by roll number or (normalized) email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE roll_no=? OR email=? LIMIT 1",
		login, strings.ToLower(login)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// RecordFailedLogin increments the failure counter and stamps the attempt
// time, returning the new counter value.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, id uint64, at time.Time) (int, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_attempts = login_attempts + 1, last_attempt_at = ? WHERE id = ?",
		at.UTC(), id); err != nil {
		return 0, err
	}
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT login_attempts FROM users WHERE id = ?", id).Scan(&n)
	return n, err
}

// ResetLoginAttempts clears the failure counter after a successful login.
func (r *UserRepo) ResetLoginAttempts(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_attempts = 0, last_attempt_at = NULL WHERE id = ?", id)
	return err
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, login_attempts = 0, last_attempt_at = NULL WHERE id = ?",
		hash, id)
	return err
}

// UpdateContactTx copies approved application details onto the student's
// profile.  Empty email or phone keep the current value.  A clash with another user's email yields ErrUserExists.
func (r *UserRepo) UpdateContactTx(ctx context.Context, tx *sql.Tx, rollNo, fullName, email, phone string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = COALESCE(NULLIF(?, ''), email), phone = COALESCE(NULLIF(?, ''), phone)
		  WHERE roll_no = ? AND role = 'STUDENT'`,
		fullName, strings.ToLower(strings.TrimSpace(email)), phone, rollNo)
	if isDuplicateKey(err) {
		return ErrUserExists
	}
	return err
}

// IDByRoll returns the id of the STUDENT with rollNo or sql.ErrNoRows.
func (r *UserRepo) IDByRoll(ctx context.Context, rollNo string) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE roll_no = ? AND role = 'STUDENT' LIMIT 1", rollNo).Scan(&id)
	return id, err
}
