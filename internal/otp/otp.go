// Package otp holds pending registrations while their one-time code is
// outstanding.  A Store keeps entries keyed by email with an expiry; two
// implementations exist, Redis for deployments and an in-memory map for
// single-process runs and tests.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

var (
	// ErrNotFound means no code was requested for the key.
	ErrNotFound = errors.New("otp: no request found")
	// ErrExpired means the code exists but its lifetime has passed.
	ErrExpired = errors.New("otp: expired")
	// ErrMismatch means the submitted code is wrong.
	ErrMismatch = errors.New("otp: invalid code")
	// ErrTooManyAttempts means the entry was discarded after MaxAttempts
	// wrong codes; a new code must be requested.
	ErrTooManyAttempts = errors.New("otp: too many attempts")
)

// MaxAttempts is the number of wrong codes tolerated per entry.
const MaxAttempts = 5

// Pending is a registration waiting for its code.  The password is kept
// only as a bcrypt hash.
type Pending struct {
	FullName     string    `json:"full_name"`
	RollNo       string    `json:"roll_no"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"password_hash"`
	Code         string    `json:"code"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store keeps pending registrations.  Get returns ErrNotFound or
// ErrExpired; an expired entry is evicted by the lookup.  Fail atomically
// counts a wrong code for key and returns the new count; Put resets it.
type Store interface {
	Put(ctx context.Context, key string, p Pending) error
	Get(ctx context.Context, key string) (Pending, error)
	Delete(ctx context.Context, key string) error
	Fail(ctx context.Context, key string) (int, error)
}

// Clock abstracts time for expiry checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Key normalizes an email into a store key.
func Key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// NewCode returns a random six digit code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Verify checks code against the pending entry for key and returns the
// entry on success.  The entry is left in the store; callers delete it once
// the account has been created.  Wrong codes are counted and the entry is
// discarded on the MaxAttempts-th miss.
func Verify(ctx context.Context, s Store, key, code string) (Pending, error) {
	p, err := s.Get(ctx, key)
	if err != nil {
		return Pending{}, err
	}
	if subtle.ConstantTimeCompare([]byte(p.Code), []byte(strings.TrimSpace(code))) != 1 {
		n, err := s.Fail(ctx, key)
		if err != nil {
			return Pending{}, err
		}
		if n >= MaxAttempts {
			if err := s.Delete(ctx, key); err != nil {
				return Pending{}, err
			}
			return Pending{}, ErrTooManyAttempts
		}
		return Pending{}, ErrMismatch
	}
	return p, nil
}
