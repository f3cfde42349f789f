package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests      = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")

	// domainErrorCodes maps the domain sentinel errors to their response status.
	domainErrorCodes = map[error]int{
		user.ErrNotFound:           http.StatusNotFound,
		user.ErrEmailExists:        http.StatusConflict,
		user.ErrOrganizesEvents:    http.StatusConflict,
		user.ErrAccountDeactivated: http.StatusForbidden,

		event.ErrNotFound:          http.StatusNotFound,
		event.ErrForbidden:         http.StatusForbidden,
		event.ErrInvalidTransition: http.StatusUnprocessableEntity,
		event.ErrNotEditable:       http.StatusUnprocessableEntity,
		event.ErrNotDraft:          http.StatusUnprocessableEntity,
		event.ErrAlreadyStarted:    http.StatusUnprocessableEntity,

		registration.ErrNotFound:          http.StatusNotFound,
		registration.ErrNotRegistered:     http.StatusNotFound,
		registration.ErrAlreadyRegistered: http.StatusConflict,
		registration.ErrEventFull:         http.StatusConflict,
		registration.ErrEventNotOpen:      http.StatusUnprocessableEntity,
		registration.ErrEventStarted:      http.StatusUnprocessableEntity,

		notification.ErrNotFound: http.StatusNotFound,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if domainCode, ok := domainErrorCode(origErr); ok {
				code = domainCode
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
				usr.UserType = claims.UserType
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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

// domainErrorCode looks err up among the domain sentinels.
// Comparing rather than indexing keeps unhashable error types from panicking.
func domainErrorCode(err error) (int, bool) {
	for sentinel, code := range domainErrorCodes {
		if err == sentinel {
			return code, true
		}
	}
	return 0, false
}
