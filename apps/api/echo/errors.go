package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/user"
)

const msgInvalidData = "Données invalides"

var (
	errMissingToken   = echo.NewHTTPError(http.StatusUnauthorized, resource.MsgMissingToken)
	errUnknownRoute   = echo.NewHTTPError(http.StatusNotFound, "Ressource inconnue")
	errTooManyLogins  = echo.NewHTTPError(http.StatusTooManyRequests, "Trop de tentatives, réessayez plus tard")
	errBackendFailure = echo.NewHTTPError(http.StatusBadGateway, resource.MsgTransportFailure)
)

// authFailureCode gives the status of the auth errors answered with {"success": false, "error": msg}.
func authFailureCode(err error) (int, bool) {
	switch {
	case errors.Is(err, user.ErrMissingCredentials):
		return http.StatusBadRequest, true
	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrInvalidPassword), errors.Is(err, user.ErrInvalidToken):
		return http.StatusUnauthorized, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if authCode, ok := authFailureCode(err); ok {
			code = authCode
			message = echo.Map{"success": false, "error": errors.Cause(err).Error()}
		} else if msgs, ok := core.FieldMessages(err, translator); ok {
			code = http.StatusBadRequest
			message = echo.Map{"success": false, "error": msgInvalidData, "errors": msgs}
		} else {
			var herr *echo.HTTPError
			var serr *resource.StatusError
			switch {
			case errors.As(err, &herr):
				if herr.Internal != nil {
					if inner, ok := herr.Internal.(*echo.HTTPError); ok {
						herr = inner
					}
				}
				code = herr.Code
				message = herr.Message
			case errors.As(err, &serr):
				code = serr.Code
				message = serr.Error()
			case errors.Is(err, resource.ErrTransport):
				code = errBackendFailure.Code
				message = errBackendFailure.Message
				logger.Warn(resource.MsgTransportFailure, err)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if u, ok := ctx.Get(contextUserKey).(user.User); ok {
					usr = u
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
