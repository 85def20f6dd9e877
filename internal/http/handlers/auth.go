package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gathrio/gathrio/internal/auth"
	"github.com/gathrio/gathrio/internal/config"
	"github.com/gathrio/gathrio/internal/domain/job"
	"github.com/gathrio/gathrio/internal/domain/user"
	"github.com/gathrio/gathrio/internal/jobs"
	"github.com/gathrio/gathrio/internal/repo/postgres"
	"github.com/gathrio/gathrio/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keep these interfaces small so tests can fake them with function fields.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) error
}

type JobsCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users UserStore
	jobs  JobsCreator
	jwt   *auth.Manager
	cfg   config.Config
}

func NewAuthHandler(users UserStore, jobsRepo JobsCreator, jwtManager *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users: users,
		jobs:  jobsRepo,
		jwt:   jwtManager,
		cfg:   cfg,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"omitempty,oneof=attendee organizer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	// Binding already constrains the field; the domain check also covers
	// callers that construct the request without going through it.
	role := req.Role

	if !user.IsValidRole(role) {
		role = user.RoleAttendee
	}

	now := time.Now().UTC()

	newUser := user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	created, err := h.users.Create(cctx, newUser)

	if err != nil {
		// The unique index is the authority on duplicates, so the
		// concurrent-register race surfaces here too.
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	accessToken, err := h.issueTokens(ctx, created)

	if err != nil {
		RespondInternal(ctx, "Could not generate tokens")
		return
	}

	h.enqueueWelcomeEmail(cctx, created, requestIDFrom(ctx))

	ctx.JSON(http.StatusCreated, gin.H{
		"user":        created,
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	// Unknown email and wrong password must be indistinguishable.
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.issueTokens(ctx, foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not generate tokens")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":        foundUser,
		"accessToken": accessToken,
	})
}

// Logout only clears the cookie. Issued tokens stay valid until expiry; there
// is no server-side session to revoke.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearRefreshCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondError(ctx, http.StatusBadRequest, "user_not_found", "No account found with that email.", nil)
			return
		}

		RespondInternal(ctx, "Could not start password reset")
		return
	}

	plaintext, tokenHash, err := security.NewResetSecret()

	if err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	expiry := time.Now().UTC().Add(h.cfg.ResetTokenTTL())

	// Overwrites any pending reset; only the newest secret stays valid.
	err = h.users.SetResetToken(cctx, foundUser.ID, tokenHash, expiry)

	if err != nil {
		RespondInternal(ctx, "Could not start password reset")
		return
	}

	h.enqueueResetEmail(cctx, foundUser, plaintext, expiry, requestIDFrom(ctx))

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Password reset token generated.",
		"resetToken": plaintext,
	})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	newHash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.users.ConsumeResetToken(cctx, security.HashResetToken(req.Token), newHash)

	if err != nil {
		// Wrong token and expired token collapse into one answer.
		if errors.Is(err, postgres.ErrResetTokenInvalid) {
			RespondError(ctx, http.StatusBadRequest, "invalid_or_expired_token", "Reset token is invalid or has expired.", nil)
			return
		}

		RespondInternal(ctx, "Could not reset password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Password has been reset. Please log in with your new password.",
	})
}

// Helper functions

func (h *AuthHandler) issueTokens(ctx *gin.Context, u user.User) (string, error) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", err
	}

	refreshToken, err := h.jwt.GenerateRefreshToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", err
	}

	h.setRefreshCookie(ctx, refreshToken)

	return accessToken, nil
}

func (h *AuthHandler) enqueueWelcomeEmail(ctx context.Context, u user.User, requestID string) {
	payload := jobs.WelcomeEmailPayload{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	}

	raw, err := payload.JSON()

	if err != nil {
		return
	}

	key := "welcome:" + u.ID
	uid := u.ID

	// Best effort. Registration already succeeded.
	_, _ = h.jobs.Create(ctx, job.CreateRequest{
		Type:           jobs.TypeWelcomeEmail,
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    jobs.WelcomeMaxAttempts(),
		IdempotencyKey: &key,
		UserID:         &uid,
	})
}

func (h *AuthHandler) enqueueResetEmail(ctx context.Context, u user.User, plaintext string, expiry time.Time, requestID string) {
	payload := jobs.PasswordResetEmailPayload{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		ResetToken:  plaintext,
		ExpiresAt:   expiry,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	}

	raw, err := payload.JSON()

	if err != nil {
		return
	}

	uid := u.ID

	_, _ = h.jobs.Create(ctx, job.CreateRequest{
		Type:        jobs.TypePasswordResetEmail,
		Payload:     raw,
		RunAt:       time.Now().UTC(),
		MaxAttempts: 10,
		UserID:      &uid,
	})
}

func (h *AuthHandler) refreshCookieName() string {
	return "refreshToken"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string) {
	secure := h.cfg.Env == "prod"

	maxAge := int(h.cfg.RefreshTTL().Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
