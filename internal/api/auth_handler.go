package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/auth"
	"jobPortal/internal/store"
	"jobPortal/internal/workflow"
)

const refreshTokenCookieName = "refresh_token"

type accountStore interface {
	FindAccount(ctx context.Context, username string) (*store.Account, error)
	LoadAccount(ctx context.Context, id uint) (*store.Account, error)
	CreateAccount(ctx context.Context, account *store.Account, cgpa *float64) error
	SetPassword(ctx context.Context, id uint, hash string) error
}

// AuthHandler 处理注册、登录、刷新、改密与退出。
type AuthHandler struct {
	accounts     accountStore
	tokens       *auth.AuthService
	guard        *sessionGuard
	cookieDomain string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(accounts accountStore, tokens *auth.AuthService, guard *sessionGuard, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		tokens:       tokens,
		guard:        guard,
		cookieDomain: strings.TrimSpace(cookieDomain),
	}
}

type registerRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=64"`
	Password string   `json:"password" binding:"required,min=8,max=72"`
	CGPA     *float64 `json:"cgpa" binding:"omitempty,min=0,max=10"`
}

// Register 创建候选人账号，可同时填写 CGPA。管理员只能通过 admin CLI 创建。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.String("username", req.Username))

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	account := store.Account{Username: req.Username, PasswordHash: hashed}
	if err := h.accounts.CreateAccount(c.Request.Context(), &account, req.CGPA); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			Conflict(c, "username already taken")
			return
		}
		logger.Error("create account failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(account.ID)))
	c.JSON(http.StatusCreated, gin.H{"user": gin.H{"id": account.ID, "username": account.Username}})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int    `json:"expires_in"`
	IsAdmin            bool   `json:"is_admin"`
	MustChangePassword bool   `json:"must_change_password"`
}

// Login 校验口令并签发令牌，失败次数过多时锁定账号。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.String("username", req.Username))

	if err := h.guard.Admit(ctx, c.ClientIP(), req.Username); err != nil {
		Error(c, http.StatusTooManyRequests, err.Error())
		return
	}

	account, err := h.accounts.FindAccount(ctx, req.Username)
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		logger.Info("login failed: user not found")
		h.recordFailure(ctx, logger, req.Username)
		Unauthorized(c)
		return
	case err != nil:
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, account.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(account.ID)))
		h.recordFailure(ctx, logger, req.Username)
		Unauthorized(c)
		return
	}
	if err := h.guard.Reset(ctx, req.Username); err != nil {
		logger.Warn("reset login failures", slog.Any("error", err))
	}

	h.issueTokens(c, logger, *account)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 轮换刷新令牌。管理员标记以数据库为准，权限变更在刷新后生效。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	claims, ok := h.refreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}

	revoked, err := h.guard.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if revoked {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	}

	account, err := h.accounts.LoadAccount(ctx, claims.UserID)
	if err != nil {
		logger.Info("refresh account not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if err := h.guard.Revoke(ctx, claims.ID, claims.ExpiresAt, h.tokens.RefreshTokenTTL()); err != nil {
		logger.Error("revoke rotated refresh token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.issueTokens(c, logger, *account)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=8,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword 校验当前密码后更新，并清除强制改密标记。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	account, err := h.accounts.LoadAccount(ctx, userID)
	if err != nil {
		logger.Info("change password: account not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, account.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.accounts.SetPassword(ctx, userID, hashed); err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 旧刷新令牌作废，避免其他会话继续续期。
	if claims, ok := h.refreshClaims(c, logger); ok {
		if err := h.guard.Revoke(ctx, claims.ID, claims.ExpiresAt, h.tokens.RefreshTokenTTL()); err != nil {
			logger.Error("change password: revoke refresh failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	account.MustChangePassword = false
	h.issueTokens(c, logger, *account)
}

// Logout 将刷新令牌加入黑名单并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	claims, ok := h.refreshClaims(c, logger)
	if !ok {
		BadRequest(c, "valid refresh token required")
		return
	}
	if err := h.guard.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt, h.tokens.RefreshTokenTTL()); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.writeRefreshCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) recordFailure(ctx context.Context, logger *slog.Logger, username string) {
	if err := h.guard.RecordFailure(ctx, username); err != nil {
		logger.Warn("record login failure", slog.Any("error", err))
	}
}

// refreshClaims 从 Cookie 或请求体读取刷新令牌，并校验类型与 jti。
func (h *AuthHandler) refreshClaims(c *gin.Context, logger *slog.Logger) (*auth.TokenClaims, bool) {
	raw, err := c.Cookie(refreshTokenCookieName)
	if err != nil || raw == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			return nil, false
		}
		raw = req.RefreshToken
	}

	claims, err := h.tokens.ValidateToken(raw)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		return nil, false
	}
	if claims.TokenType != auth.TokenTypeRefresh || claims.ID == "" {
		logger.Info("refresh token rejected", slog.String("token_type", claims.TokenType))
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) issueTokens(c *gin.Context, logger *slog.Logger, account store.Account) {
	pair, err := h.tokens.GenerateTokenPair(auth.Subject{
		UserID:             account.ID,
		IsAdmin:            account.IsAdmin,
		MustChangePassword: account.MustChangePassword,
	})
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	maxAge := int(h.tokens.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	h.writeRefreshCookie(c, pair.RefreshToken, maxAge)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        pair.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.tokens.AccessTokenTTL().Seconds()),
		IsAdmin:            account.IsAdmin,
		MustChangePassword: account.MustChangePassword,
	})
}

// writeRefreshCookie 写入或清除（maxAge < 0）刷新令牌 Cookie。
func (h *AuthHandler) writeRefreshCookie(c *gin.Context, value string, maxAge int) {
	secure := c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/v1/auth",
		Domain:   h.cookieDomain,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
