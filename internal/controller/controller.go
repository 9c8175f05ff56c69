package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/playtube/authcore/internal/models"
	"github.com/playtube/authcore/internal/service"
	"github.com/playtube/authcore/internal/util"
)

type ErrorResponse struct {
	Reason string `json:"reason"`
}

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewController(logger *zap.SugaredLogger, authService *service.AuthService, tokenCfg *util.TokenConfig) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		accessTTL:   tokenCfg.AccessTTL,
		refreshTTL:  tokenCfg.RefreshTTL,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/users/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := c.authService.Register(ctx.Request().Context(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, models.NewUserResponse(user))
}

// (POST /api/users/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, pair, err := c.authService.Login(ctx.Request().Context(), req.LoginIdentifier(), req.Password)
	if err != nil {
		return err
	}

	c.setTokenCookies(ctx, pair)

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"user":          models.NewUserResponse(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// (POST /api/users/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	presented := refreshTokenFromRequest(ctx)
	if presented == "" {
		return service.ErrInvalidRefreshToken
	}

	pair, err := c.authService.Refresh(ctx.Request().Context(), presented)
	if err != nil {
		return err
	}

	c.setTokenCookies(ctx, pair)

	return ctx.JSON(http.StatusOK, models.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// (POST /api/users/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	userID, ok := ctx.Get(models.MwUserIDKey).(int64)
	if !ok {
		return service.ErrTokenInvalid
	}

	if err := c.authService.Logout(ctx.Request().Context(), userID); err != nil {
		return err
	}

	c.clearTokenCookies(ctx)

	return ctx.JSON(http.StatusOK, map[string]string{"message": "user logged out"})
}

// (GET /api/users/me).
func (c *Controller) Me(ctx echo.Context) error {
	userID, ok := ctx.Get(models.MwUserIDKey).(int64)
	if !ok {
		return service.ErrTokenInvalid
	}

	user, err := c.authService.CurrentUser(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.NewUserResponse(user))
}

func (c *Controller) setTokenCookies(ctx echo.Context, pair *models.TokenPairResponse) {
	now := time.Now()
	ctx.SetCookie(tokenCookie(models.AccessTokenCookie, pair.AccessToken, now.Add(c.accessTTL)))
	ctx.SetCookie(tokenCookie(models.RefreshTokenCookie, pair.RefreshToken, now.Add(c.refreshTTL)))
}

func (c *Controller) clearTokenCookies(ctx echo.Context) {
	expired := time.Unix(0, 0)
	ctx.SetCookie(tokenCookie(models.AccessTokenCookie, "", expired))
	ctx.SetCookie(tokenCookie(models.RefreshTokenCookie, "", expired))
}

func tokenCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func refreshTokenFromRequest(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(models.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req models.RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}
