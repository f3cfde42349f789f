package main

import (
	"log"
	"os"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/event"
	"github.com/an-shikaSingh/campus-connect-V0/core/notification"
	"github.com/an-shikaSingh/campus-connect-V0/core/registration"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	emailsvc "github.com/an-shikaSingh/campus-connect-V0/services/email"
	logsvc "github.com/an-shikaSingh/campus-connect-V0/services/logger"
	"github.com/an-shikaSingh/campus-connect-V0/storage/database"
	sqlxrepos "github.com/an-shikaSingh/campus-connect-V0/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up services; notifications are queued here and delivered by the API
	tx := database.NewTransactor(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	regRepo := sqlxrepos.NewRegistrationRepository(db)
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleService(logger, conf), logger, conf)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), tx, nil, conf)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		usrRepo:  usrRepo,
		events:   event.NewService(sqlxrepos.NewEventRepository(db), regRepo, registration.NewPromoter(regRepo), usrSvc, notifSvc, tx, conf),
		regs:     regRepo,
		notifier: notifSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed: "+err.Error(), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
