package dig_container

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/dig"

	echoapi "github.com/an-shikaSingh/campus-connect-V0/apps/api/echo"
	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/services/broker"
	"github.com/an-shikaSingh/campus-connect-V0/services/scheduler"
)

func TestNew(t *testing.T) {
	c := New(dig.DryRun(true))

	err := c.Invoke(func(
		*core.Config,
		core.Logger,
		DBLoggerParam,
		*sqlx.DB,
		broker.Broker,
		*notification.Dispatcher,
		*scheduler.Scheduler,
		*echoapi.Server,
	) {
	})
	assert.NoError(t, err)
}
