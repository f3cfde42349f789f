package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
)

type registrationApi struct {
	svc registration.Service
}

func registerRegistrationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := registrationApi{svc: deps.RegistrationSvc}

	rg := g.Group("/registrations", jwt)
	rg.GET("/me", api.mine)
	rg.GET("", api.query, adminMiddleware())
}

func (api *registrationApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	regs, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing user registrations")
	}
	if regs == nil {
		regs = []registration.WithEvent{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *registrationApi) query(ctx echo.Context) error {
	filter := new(registration.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []registration.Registration{})
	}
	if err := bindTimeRange(ctx, "created_from", "created_to", &filter.CreatedFrom, &filter.CreatedTo); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rctx := ctx.Request().Context()
	regs, err := api.svc.Query(rctx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	count, err := api.svc.Count(rctx, filter)
	if err != nil {
		return errors.Wrap(err, "counting registrations")
	}
	if regs == nil {
		regs = []registration.Registration{}
	}
	ctx.Response().Header().Set(totalCountHeader, strconv.Itoa(count))
	return ctx.JSON(http.StatusOK, regs)
}
