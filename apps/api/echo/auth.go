package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/user"
	metricsvc "github.com/mansourkira/evoluflow/services/metrics"
)

const (
	msgLoggedOut       = "Déconnexion réussie"
	msgPasswordChanged = "Mot de passe modifié avec succès"
	msgResetRequested  = "Si cette adresse est associée à un compte, un email de réinitialisation vient d'être envoyé."
	msgPasswordReset   = "Votre mot de passe a été réinitialisé"

	cookieMaxAge = 7 * 24 * time.Hour
)

type (
	loginResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
		Token   string    `json:"token"`
	}

	userResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
	}

	successResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}

	passwordResetRequest struct {
		Email string `json:"email"`
	}
)

type authAPI struct {
	svc     user.Authenticator
	conf    *core.Config
	logger  core.Logger
	metrics *metricsvc.Metrics
}

func registerAuthAPI(g *echo.Group, deps ServerDeps) {
	api := authAPI{
		svc:     deps.Auth,
		conf:    deps.Conf,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login, rateLimitMiddleware("login", deps.Conf, deps.Metrics))
	ag.POST("/logout", api.logout)
	ag.POST("/reset-password", api.resetPassword, rateLimitMiddleware("reset-password", deps.Conf, deps.Metrics))
	ag.POST("/reset-password/confirm", api.confirmPasswordReset)

	// authed endpoints
	authed := tokenMiddleware(deps.Conf.Auth.CookieName)
	ag.GET("/me", api.me, authed)
	ag.PUT("/change-password", api.changePassword, authed)
}

func (api *authAPI) setCookie(ctx echo.Context, token string, maxAge time.Duration) {
	ctx.SetCookie(&http.Cookie{
		Name:     api.conf.Auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   !(api.conf.Debug || api.conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
}

// Handlers

func (api *authAPI) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return user.ErrMissingCredentials
	}

	usr, token, err := api.svc.Login(ctx.Request().Context(), creds)
	if err != nil {
		api.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return errors.Wrap(err, "logging in")
	}
	api.metrics.LoginAttempts.WithLabelValues("success").Inc()

	api.setCookie(ctx, token, cookieMaxAge)
	return ctx.JSON(http.StatusOK, loginResponse{Success: true, User: usr, Token: token})
}

func (api *authAPI) logout(ctx echo.Context) error {
	token := bearerToken(ctx)
	if token == "" {
		if c, err := ctx.Cookie(api.conf.Auth.CookieName); err == nil {
			token = c.Value
		}
	}
	if token != "" {
		// the local session ends anyway
		if err := api.svc.Logout(ctx.Request().Context(), token); err != nil {
			api.logger.Warn("backend logout failed", err)
		}
	}
	api.setCookie(ctx, "", -time.Second)
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Message: msgLoggedOut})
}

func (api *authAPI) me(ctx echo.Context) error {
	usr, err := api.svc.Me(ctx.Request().Context(), contextToken(ctx))
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	ctx.Set(contextUserKey, usr)
	return ctx.JSON(http.StatusOK, userResponse{Success: true, User: usr})
}

func (api *authAPI) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), contextToken(ctx), data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Message: msgPasswordChanged})
}

func (api *authAPI) resetPassword(ctx echo.Context) error {
	var data passwordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to passwordResetRequest")
	}
	if data.Email = core.CleanString(data.Email, true /* lower */); data.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email requis")
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Message: msgResetRequested})
}

func (api *authAPI) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: true, Message: msgPasswordReset})
}
