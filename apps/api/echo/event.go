package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

const totalCountHeader = "X-Total-Count"

type eventApi struct {
	svc      event.Service
	regs     registration.Service
	users    user.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{
		svc:      deps.EventSvc,
		regs:     deps.RegistrationSvc,
		users:    deps.UserSvc,
		validate: deps.Validate,
	}
	optJWT := optionalJWT(deps.Conf)
	manager := managerMiddleware()
	object := eventObjectMiddleware(api.svc, api.users)

	eg := g.Group("/events")

	// public endpoints; a token, when sent, reveals the events the user manages
	eg.GET("", api.query, optJWT)
	eg.GET("/categories", api.categories)
	eg.GET("/featured", api.featured)
	eg.GET("/:id", api.retrieve, optJWT, object)

	// registration endpoints
	eg.GET("/:id/registration", api.registrationStatus, jwt, object)
	eg.POST("/:id/register", api.register, jwt, object)
	eg.DELETE("/:id/register", api.unregister, jwt, object)

	// management endpoints
	eg.POST("", api.create, jwt, manager)
	eg.PUT("/:id", api.update, jwt, manager, object)
	eg.DELETE("/:id", api.destroy, jwt, manager, object)
	eg.GET("/:id/registrations", api.registrations, jwt, manager, object)
	for _, action := range []string{event.ActionPublish, event.ActionCancel, event.ActionArchive} {
		eg.POST("/:id/"+action, api.transition(action), jwt, manager, object)
	}
}

// Handlers

func (api *eventApi) query(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}
	if err := bindTimeRange(ctx, "start_from", "start_to", &filter.StartFrom, &filter.StartTo); err != nil {
		return err
	}
	filter.Clean()

	usr, err := getOptionalUser(ctx, api.users)
	if err != nil {
		return err
	}
	restrictStatuses(filter, usr)

	ordering := new(Ordering)
	ordering.Bind(ctx)

	rctx := ctx.Request().Context()
	events, err := api.svc.Query(rctx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	count, err := api.svc.Count(rctx, filter)
	if err != nil {
		return errors.Wrap(err, "counting events")
	}
	if events == nil {
		events = []event.Event{}
	}
	ctx.Response().Header().Set(totalCountHeader, strconv.Itoa(count))
	return ctx.JSON(http.StatusOK, events)
}

// restrictStatuses limits the queried statuses to the ones usr may see:
// admins see everything, organizers their own unpublished events, everybody else the published ones.
func restrictStatuses(filter *event.QueryFilter, usr *user.User) {
	switch {
	case usr != nil && usr.IsAdmin():
		return
	case usr != nil && usr.IsOrganizer() && filter.OrganizerID == usr.ID:
		return
	}
	filter.Statuses = []string{event.StatusPublished}
}

func (api *eventApi) categories(ctx echo.Context) error {
	cats, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []string{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *eventApi) featured(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	events, err := api.svc.Featured(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying featured events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), evt)
	if err != nil {
		return errors.Wrap(err, "getting event detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	evt, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(evt, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	evt, err = api.svc.Update(ctx.Request().Context(), evt.ID, data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Delete(ctx.Request().Context(), evt.ID, ctxUsr); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) transition(action string) echo.HandlerFunc {
	target, _ := event.ActionTarget(action)
	return func(ctx echo.Context) error {
		evt, err := getContextObjectEvent(ctx)
		if err != nil {
			return errors.Wrap(err, "retrieving object from context")
		}
		ctxUsr, err := getContextUser(ctx, api.users)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		evt, err = api.svc.Transition(ctx.Request().Context(), evt.ID, target, ctxUsr)
		if err != nil {
			return errors.Wrapf(err, "%s event", action)
		}
		return ctx.JSON(http.StatusOK, evt)
	}
}

func (api *eventApi) registrations(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !evt.CanBeManagedBy(ctxUsr) {
		return errHttpForbidden
	}

	regs, err := api.regs.ListForEvent(ctx.Request().Context(), evt.ID)
	if err != nil {
		return errors.Wrap(err, "listing event registrations")
	}
	if regs == nil {
		regs = []registration.WithUser{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *eventApi) registrationStatus(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	status, err := api.regs.Status(ctx.Request().Context(), claims.Subject, evt.ID)
	if err != nil {
		return errors.Wrap(err, "getting registration status")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *eventApi) register(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reg, err := api.regs.Register(ctx.Request().Context(), ctxUsr, evt.ID)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	registrationsTotal.WithLabelValues(reg.Status).Inc()
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *eventApi) unregister(ctx echo.Context) error {
	evt, err := getContextObjectEvent(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reg, err := api.regs.Unregister(ctx.Request().Context(), ctxUsr, evt.ID)
	if err != nil {
		return errors.Wrap(err, "unregistering")
	}
	return ctx.JSON(http.StatusOK, reg)
}
