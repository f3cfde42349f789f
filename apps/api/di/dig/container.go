package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/an-shikaSingh/campus-connect-V0/apps/api/echo"
	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/stats"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/services/broker"
	emailsvc "github.com/an-shikaSingh/campus-connect-V0/services/email"
	logsvc "github.com/an-shikaSingh/campus-connect-V0/services/logger"
	"github.com/an-shikaSingh/campus-connect-V0/services/scheduler"
	"github.com/an-shikaSingh/campus-connect-V0/storage/database"
	sqlxrepos "github.com/an-shikaSingh/campus-connect-V0/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc         user.Service
	EventSvc        event.Service
	RegistrationSvc registration.Service
	NotificationSvc notification.Service
	StatsSvc        stats.Service
	Broker          broker.Broker
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor, core.Transactor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, database.NewTransactor(db)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

// newBroker fans notifications out through Redis when configured, in-process otherwise.
func newBroker(conf *core.Config, logger core.Logger) broker.Broker {
	if conf.Redis.Address == "" {
		return broker.NewHub()
	}
	b, err := broker.NewRedisBroker(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up broker: %v", err), err)
	}
	return b
}

func newDispatcher(
	repo notification.Repository,
	users user.Service,
	mailSvc core.EmailService,
	b broker.Broker,
	logger core.Logger,
	conf *core.Config,
) *notification.Dispatcher {
	senders := []notification.Sender{notification.NewRealtimeSender(b)}
	if conf.Notification.EmailEnabled {
		senders = append(senders, notification.NewEmailSender(users, mailSvc))
	}
	return notification.NewDispatcher(repo, logger, conf, senders...)
}

func newScheduler(
	events event.Service,
	dispatcher *notification.Dispatcher,
	logger core.Logger,
	conf *core.Config,
) *scheduler.Scheduler {
	s := scheduler.New(logger)
	if err := s.Add("archive events", conf.Event.ArchiveSchedule, scheduler.ArchiveEvents(events, logger)); err != nil {
		logger.Fatal(err.Error(), err)
	}
	if err := s.Add("sweep deliveries", conf.Notification.SweepSchedule, scheduler.SweepDeliveries(dispatcher)); err != nil {
		logger.Fatal(err.Error(), err)
	}
	return s
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		EventSvc:        p.EventSvc,
		RegistrationSvc: p.RegistrationSvc,
		NotificationSvc: p.NotificationSvc,
		StatsSvc:        p.StatsSvc,
		Subscriber:      p.Broker,
	})
}

// New returns a new dependency injection dig.Container
func New(opts ...dig.Option) *dig.Container {
	c := dig.New(opts...)

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newBroker))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewEventRepository, dig.As(new(event.Repository))))
	must(c.Provide(
		sqlxrepos.NewRegistrationRepository,
		dig.As(new(registration.Repository), new(event.RegistrationReader)),
	))
	must(c.Provide(sqlxrepos.NewNotificationRepository, dig.As(new(notification.Repository))))
	must(c.Provide(sqlxrepos.NewStatsRepository, dig.As(new(stats.Repository))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(newDispatcher))
	must(c.Provide(func(d *notification.Dispatcher) notification.Waker { return d }))
	must(c.Provide(notification.NewService))
	must(c.Provide(func(svc notification.Service) notification.Notifier { return svc }))
	must(c.Provide(registration.NewPromoter, dig.As(new(event.WaitlistPromoter))))
	must(c.Provide(event.NewService))
	must(c.Provide(registration.NewService))
	must(c.Provide(stats.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
