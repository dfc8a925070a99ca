package echoapi

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/resource"
	metricsvc "github.com/mansourkira/evoluflow/services/metrics"
)

const (
	contextTokenKey = "token"
	contextUserKey  = "user"
)

// requestIDMiddleware tags every request with an id, reused when the client sends one.
func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: resource.HeaderRequestID,
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// tokenMiddleware rejects requests without a bearer token. With cookieName set, the
// auth cookie is accepted as a fallback.
func tokenMiddleware(cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx)
			if token == "" && cookieName != "" {
				if c, err := ctx.Cookie(cookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				return errMissingToken
			}
			ctx.Set(contextTokenKey, token)
			return next(ctx)
		}
	}
}

func contextToken(ctx echo.Context) string {
	token, _ := ctx.Get(contextTokenKey).(string)
	return token
}

// rateLimitMiddleware limits each client IP to conf.Auth.LoginRateLimit requests per second.
func rateLimitMiddleware(route string, conf *core.Config, metrics *metricsvc.Metrics) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(conf.Auth.LoginRateLimit),
		Burst:     conf.Auth.LoginBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errTooManyLogins
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			metrics.RateLimitHits.WithLabelValues(route).Inc()
			return ctx.JSON(errTooManyLogins.Code, echo.Map{"success": false, "error": errTooManyLogins.Message})
		},
	})
}
