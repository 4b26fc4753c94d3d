package handler

import (
	"context"  // provides context with cancellation for DB calls
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls and lockout window

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/config"     // app configuration
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/otp"
	"github.com/iliyamo/hostel-management/internal/repository" // DB repositories
	"github.com/iliyamo/hostel-management/internal/service"
	"github.com/iliyamo/hostel-management/internal/utils" // helper functions (hashing, token issuing)
)

const (
	maxLoginAttempts = 3
	lockoutWindow    = 15 * time.Minute
	dbTimeout        = 5 * time.Second
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	OTP      otp.Store
	Notifier service.Notifier
	now      func() time.Time
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, store otp.Store, n service.Notifier) *AuthHandler {
	if n == nil {
		n = service.Nop{}
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, OTP: store, Notifier: n, now: time.Now}
}

// ----- DTOs -----

type otpRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	RollNo   string `json:"roll_no" validate:"required,numeric,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Password string `json:"password" validate:"required,min=6"`
}
type otpVerify struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,len=6"`
}
type loginReq struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type passwordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}
type resetConfirm struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID         uint64 `json:"id"`
	RollNo     string `json:"roll_no,omitempty"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	HostelName string `json:"hostel_name,omitempty"`
	RoomNo     string `json:"room_no,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, RollNo: u.RollNo, FullName: u.FullName, Email: u.Email, Role: u.Role, HostelName: u.HostelName, RoomNo: u.RoomNo}
}

// RequestOTP stores a pending registration and sends its code out through
// the notifier.  The account is created only by VerifyOTP.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.RollNo = strings.TrimSpace(req.RollNo)
	req.Email = otp.Key(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	taken, err := h.Users.Exists(ctx, req.RollNo, req.Email)
	if err != nil {
		return fail(c, apperr.Persistence("check user", err))
	}
	if taken {
		return fail(c, apperr.Conflict("User already exists"))
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, apperr.Persistence("hash password", err))
	}
	code, err := otp.NewCode()
	if err != nil {
		return fail(c, apperr.Persistence("generate otp", err))
	}
	ttl := h.Cfg.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	p := otp.Pending{
		FullName:     req.FullName,
		RollNo:       req.RollNo,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Code:         code,
		ExpiresAt:    h.now().Add(ttl),
	}
	if err := h.OTP.Put(ctx, req.Email, p); err != nil {
		return fail(c, apperr.Persistence("store otp", err))
	}
	if err := h.Notifier.SendOTP(ctx, req.Email, req.FullName, code, p.ExpiresAt); err != nil {
		log.Printf("auth: send otp to %s: %v", req.Email, err)
		return failure(c, http.StatusBadGateway, "Failed to send OTP")
	}
	return respond(c, http.StatusOK, "OTP sent to your email", echo.Map{"expires_at": p.ExpiresAt.UTC()})
}

// VerifyOTP checks the code and creates the STUDENT account.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpVerify
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = otp.Key(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	p, err := otp.Verify(ctx, h.OTP, req.Email, req.Code)
	if err != nil {
		return otpFailure(c, err)
	}

	id, err := h.Users.CreateStudent(ctx, repository.NewStudent{
		RollNo:       p.RollNo,
		FullName:     p.FullName,
		Email:        p.Email,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
	})
	if errors.Is(err, repository.ErrUserExists) {
		_ = h.OTP.Delete(ctx, req.Email)
		return fail(c, apperr.Conflict("User already exists"))
	}
	if err != nil {
		return fail(c, apperr.Persistence("create student", err))
	}
	if err := h.OTP.Delete(ctx, req.Email); err != nil {
		log.Printf("auth: delete otp for %s: %v", req.Email, err)
	}
	return respond(c, http.StatusCreated, "Registration successful", echo.Map{
		"user": userPart{ID: id, RollNo: p.RollNo, FullName: p.FullName, Email: p.Email, Role: model.RoleStudent},
	})
}

// Login accepts a roll number or email.  Three consecutive failures lock
// the account for fifteen minutes and raise an admin security alert.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Login = strings.TrimSpace(req.Login)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, req.Login)
	if errors.Is(err, sql.ErrNoRows) {
		return failure(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}

	now := h.now()
	if u.LoginAttempts >= maxLoginAttempts && u.LastAttemptAt != nil {
		if now.Sub(*u.LastAttemptAt) < lockoutWindow {
			return failure(c, http.StatusTooManyRequests, "Account locked. Try again in 15 minutes.")
		}
		// lock window elapsed: start counting afresh
		if err := h.Users.ResetLoginAttempts(ctx, u.ID); err != nil {
			return fail(c, apperr.Persistence("reset attempts", err))
		}
		u.LoginAttempts = 0
	}

	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		n, err := h.Users.RecordFailedLogin(ctx, u.ID, now)
		if err != nil {
			return fail(c, apperr.Persistence("record failed login", err))
		}
		if n == maxLoginAttempts {
			service.Dispatch(ctx, h.Notifier, model.Notification{
				RecipientType: model.RecipientAdmin,
				AlertType:     "Security",
				Title:         "Account locked",
				Message:       fmt.Sprintf("Account %s locked after %d failed login attempts", loginName(u), n),
			})
		}
		return failure(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if u.LoginAttempts > 0 {
		if err := h.Users.ResetLoginAttempts(ctx, u.ID); err != nil {
			return fail(c, apperr.Persistence("reset attempts", err))
		}
	}
	return h.issue(ctx, c, u, http.StatusOK, "Login successful")
}

func loginName(u model.User) string {
	if u.RollNo != "" {
		return u.RollNo
	}
	return u.Email
}

// issue creates an access/refresh pair for u and writes it.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u model.User, code int, msg string) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, u.RollNo, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, apperr.Persistence("issue access", err))
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, apperr.Persistence("issue refresh", err))
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, apperr.Persistence("save refresh", err))
	}
	return respond(c, code, msg, echo.Map{
		"user":    toUserPart(u),
		"access":  tokenPart{Token: access.Token, Expires: access.Exp},
		"refresh": tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return failure(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.now())
	if errors.Is(err, sql.ErrNoRows) {
		return failure(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return fail(c, apperr.Persistence("validate refresh", err))
	}
	revoked, err := h.Tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return fail(c, apperr.Persistence("revoke refresh", err))
	}
	if !revoked {
		// another refresh with the same token won the race
		return failure(c, http.StatusUnauthorized, "invalid refresh token")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}
	return h.issue(ctx, c, u, http.StatusOK, "Token refreshed")
}

// Logout revokes the presented refresh token.  Unknown tokens are
// accepted silently.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return failure(c, http.StatusBadRequest, "refresh_token required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if _, err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return fail(c, apperr.Persistence("revoke refresh", err))
	}
	return respond(c, http.StatusOK, "Logged out", nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := getUserID(c)
	if err != nil {
		return failure(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return failure(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}
	return respond(c, http.StatusOK, "", echo.Map{"user": toUserPart(u)})
}

// otpFailure maps an otp.Verify error onto a response.
func otpFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, otp.ErrNotFound):
		return failure(c, http.StatusBadRequest, "No OTP request found for this email")
	case errors.Is(err, otp.ErrExpired):
		return failure(c, http.StatusBadRequest, "OTP expired")
	case errors.Is(err, otp.ErrMismatch):
		return failure(c, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, otp.ErrTooManyAttempts):
		return failure(c, http.StatusTooManyRequests, "Too many invalid attempts. Request a new OTP.")
	}
	return fail(c, apperr.Persistence("load otp", err))
}

// resetKey keeps password reset codes apart from pending registrations
// for the same address.
func resetKey(email string) string { return "reset:" + otp.Key(email) }

// ChangePassword handles POST /v1/me/password.  Every refresh token of the
// user is revoked afterwards.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := getUserID(c)
	if err != nil {
		return failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req passwordChange
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return failure(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return fail(c, apperr.Validation("old_password", "Current password is incorrect"))
	}
	if err := h.setPassword(ctx, u.ID, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Password updated", nil)
}

// RequestPasswordReset sends a reset code to a registered email.  Unknown
// addresses get the same answer so the endpoint does not reveal accounts.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = otp.Key(req.Email)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	const sent = "If the email is registered, a reset code has been sent"
	u, err := h.Users.GetByLogin(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && u.Email != req.Email) {
		return respond(c, http.StatusOK, sent, nil)
	}
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}
	code, err := otp.NewCode()
	if err != nil {
		return fail(c, apperr.Persistence("generate otp", err))
	}
	ttl := h.Cfg.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	p := otp.Pending{FullName: u.FullName, Email: u.Email, Code: code, ExpiresAt: h.now().Add(ttl)}
	if err := h.OTP.Put(ctx, resetKey(req.Email), p); err != nil {
		return fail(c, apperr.Persistence("store otp", err))
	}
	if err := h.Notifier.SendOTP(ctx, u.Email, u.FullName, code, p.ExpiresAt); err != nil {
		log.Printf("auth: send reset code to %s: %v", u.Email, err)
		return failure(c, http.StatusBadGateway, "Failed to send OTP")
	}
	return respond(c, http.StatusOK, sent, nil)
}

// ResetPassword checks a reset code and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetConfirm
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = otp.Key(req.Email)
	if err := apperr.Struct(req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	key := resetKey(req.Email)
	if _, err := otp.Verify(ctx, h.OTP, key, req.Code); err != nil {
		return otpFailure(c, err)
	}
	u, err := h.Users.GetByLogin(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		_ = h.OTP.Delete(ctx, key)
		return failure(c, http.StatusBadRequest, "No OTP request found for this email")
	}
	if err != nil {
		return fail(c, apperr.Persistence("load user", err))
	}
	if err := h.setPassword(ctx, u.ID, req.NewPassword); err != nil {
		return fail(c, err)
	}
	if err := h.OTP.Delete(ctx, key); err != nil {
		log.Printf("auth: delete reset code for %s: %v", req.Email, err)
	}
	return respond(c, http.StatusOK, "Password has been reset", nil)
}

func (h *AuthHandler) setPassword(ctx context.Context, id uint64, plain string) error {
	hash, err := utils.HashPassword(plain, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Persistence("hash password", err)
	}
	if err := h.Users.UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Persistence("update password", err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return apperr.Persistence("revoke tokens", err)
	}
	return nil
}
