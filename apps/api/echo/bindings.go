package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindTime parses the RFC 3339 query param into dst, leaving it untouched when the param is absent.
func bindTime(ctx echo.Context, param string, dst *time.Time) error {
	val := strings.TrimSpace(ctx.QueryParam(param))
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		herr := echo.NewHTTPError(http.StatusBadRequest, param+": expected an RFC 3339 date")
		herr.Internal = err
		return herr
	}
	*dst = t.UTC()
	return nil
}

// bindTimeRange binds the from & to query params.
func bindTimeRange(ctx echo.Context, fromParam, toParam string, from, to *time.Time) error {
	if err := bindTime(ctx, fromParam, from); err != nil {
		return err
	}
	return bindTime(ctx, toParam, to)
}
