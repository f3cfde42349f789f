package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

const contextObjectKey = "object"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// managerMiddleware only lets admins and organizers through.
func managerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.CanManageEvents() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// userObjectMiddleware loads the user identified by the :id path param into the context.
func userObjectMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextObjectKey, usr)
			return next(ctx)
		}
	}
}

// eventObjectMiddleware loads the event identified by the :id path param into the context.
// Events the context user may not see are reported as not found.
func eventObjectMiddleware(svc event.Service, usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			evt, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == event.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding event by ID")
			}
			usr, err := getOptionalUser(ctx, usrSvc)
			if err != nil {
				return err
			}
			if !evt.VisibleTo(usr) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, evt)
			return next(ctx)
		}
	}
}

func getContextObjectUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextObjectKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errors.New("user object not found in echo.Context")
}

func getContextObjectEvent(ctx echo.Context) (event.Event, error) {
	if evt, ok := ctx.Get(contextObjectKey).(event.Event); ok {
		return evt, nil
	}
	return event.Event{}, errors.New("event object not found in echo.Context")
}
