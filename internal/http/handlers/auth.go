package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth"
	surfaceAPI        = "api"
)

// RefreshTokenStore persists refresh token digests. Rotate must lock the
// presented row so a token can be exchanged only once.
type RefreshTokenStore interface {
	Create(ctx context.Context, row auth.RefreshToken) error
	Rotate(ctx context.Context, id, presentedHash string, next auth.RefreshToken, now time.Time) (auth.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
}

type AuthHandler struct {
	registration *service.Registration
	accounts     *service.Accounts
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	prom         *observability.Prom
	log          *slog.Logger
	secure       bool
}

func NewAuthHandler(registration *service.Registration, accounts *service.Accounts, jwtManager *auth.Manager, refreshStore RefreshTokenStore, prom *observability.Prom, log *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		accounts:     accounts,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		prom:         prom,
		log:          log,
		secure:       secureCookies,
	}
}

type RegisterRequest struct {
	Token           string `json:"token" binding:"required"`
	Name            string `json:"name" binding:"required,max=150"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	User        user.User `json:"user"`
}

// Register redeems an invitation and signs the new applicant in.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	u, err := h.registration.Redeem(cctx, service.RegisterInput{
		Token:           req.Token,
		Name:            req.Name,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		h.prom.AuthEvent(surfaceAPI, "register", "rejected")
		RespondServiceError(ctx, h.log, err)
		return
	}

	h.prom.AuthEvent(surfaceAPI, "register", "ok")
	h.issue(ctx, cctx, http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.accounts.Login(cctx, req.Email, req.Password)
	if err != nil {
		h.prom.AuthEvent(surfaceAPI, "login", "rejected")
		RespondServiceError(ctx, h.log, err)
		return
	}

	h.prom.AuthEvent(surfaceAPI, "login", "ok")
	h.issue(ctx, cctx, http.StatusOK, u)
}

// Refresh exchanges the refresh cookie for a new access token and a rotated
// refresh token. Role and email are reloaded, not copied from the old claims.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.prom.AuthEvent(surfaceAPI, "refresh", "rejected")
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.accounts.Principal(cctx, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
			return
		}
		RespondServiceError(ctx, h.log, err)
		return
	}

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(p.UserID, p.Email, string(p.Role))
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	now := time.Now().UTC()
	_, err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), auth.RefreshToken{
		ID:        newJTI,
		UserID:    p.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: now,
	}, now)
	if err != nil {
		h.prom.AuthEvent(surfaceAPI, "refresh", "rejected")
		switch {
		case errors.Is(err, auth.ErrRefreshExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired")
		case errors.Is(err, auth.ErrRefreshNotFound), errors.Is(err, auth.ErrRefreshRevoked), errors.Is(err, auth.ErrRefreshMismatch):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "rotate refresh token", slog.Any("err", err))
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(p.UserID, p.Email, string(p.Role))
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.prom.AuthEvent(surfaceAPI, "refresh", "ok")
	h.setRefreshCookie(ctx, newRaw, newExpiresAt)
	ctx.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Logout revokes the presented refresh token. It always answers 204.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	defer func() {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
	}()

	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.refreshStore.Revoke(cctx, claims.JTI); err != nil {
		h.log.WarnContext(ctx.Request.Context(), "revoke refresh token", slog.Any("err", err))
	}
	h.prom.AuthEvent(surfaceAPI, "logout", "ok")
}

func (h *AuthHandler) issue(ctx *gin.Context, cctx context.Context, status int, u user.User) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefresh, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	err = h.refreshStore.Create(cctx, auth.RefreshToken{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefresh),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "store refresh token", slog.Any("err", err))
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefresh, expiresAt)
	ctx.JSON(status, tokenResponse{AccessToken: accessToken, User: u})
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, raw, int(time.Until(expiresAt).Seconds()), refreshCookiePath, "", h.secure, true)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secure, true)
}
