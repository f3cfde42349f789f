package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/an-shikaSingh/campus-connect-V0/core/stats"
)

type adminApi struct {
	stats stats.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{stats: deps.StatsSvc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/stats", api.overview)
}

func (api *adminApi) overview(ctx echo.Context) error {
	ov, err := api.stats.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, ov)
}
