package model

import "time"

// Roles stored in users.role.
const (
    RoleAdmin   = "ADMIN"
    RoleStudent = "STUDENT"
)

// User represents a row of the `users` table: admins and students share
// it.  For students the row is also the profile record that carries the
// denormalized hostel/room labels written by the allocator.
//
// Fields:
//  ID            – primary key identifier.
//  RollNo        – student roll number; empty for admins.
//  FullName      – display name.
//  Email         – unique email address.
//  Phone         – contact number.
//  PasswordHash  – bcrypt hashed password.
//  Role          – ADMIN or STUDENT.
//  HostelName    – denormalized hostel of the current allocation.
//  RoomNo        – denormalized room number of the current allocation.
//  LoginAttempts – consecutive failed logins.
//  LastAttemptAt – time of the last failed login (nil after a success).
type User struct {
    ID            uint64
    RollNo        string
    FullName      string
    Email         string
    Phone         string
    PasswordHash  string
    Role          string
    HostelName    string
    RoomNo        string
    LoginAttempts int
    LastAttemptAt *time.Time
    CreatedAt     time.Time
}

// StudentProfile is the header shown above a student's billing sheet.  Room
// and hostel fall back to "-" when the student is not allocated.
type StudentProfile struct {
    RollNo     string `json:"roll_no"`
    Name       string `json:"name"`
    RoomNo     string `json:"room_no"`
    HostelName string `json:"hostel_name"`
    Course     string `json:"course"`
    Branch     string `json:"branch"`
    Year       string `json:"year"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
